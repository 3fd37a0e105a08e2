// Package config provides the configuration of the telemetry engine.
//
// Configurations are YAML or JSON files. Every key is optional; missing keys
// take the defaults returned by Default.
//
// # Configuration Schema
//
//	spike:
//	  thresholdMs: 33.33
//	  capacity: 100
//
//	histogram:
//	  bucketsMs: [0, 5, 10, 16.67, 20, 33.33, 50, 100, 200]
//	  recentSamples: 1000
//
//	windows: [60, 300, 3600]
//
//	labels:
//	  maxLabels: 1024
//	  shards: 16
//
//	correlation:
//	  capacity: 100
//	  historyCapacity: 1000
//
//	analysis:
//	  interval: 5s
//	  topN: 10
//	  tickThresholdMs: 16.67
//	  significanceRatio: 0.10
//	  criticalRatio: 0.30
//
//	logging:
//	  level: info
//	  format: logfmt
//
//	metrics:
//	  namespace: tickscope
//
// # Usage
//
//	cfg, err := config.LoadConfig("tickscope.yaml")
//	if err != nil {
//	    // err is a *config.ValidationErrors when the file parsed but is invalid
//	}
//	prof := metrics.NewProfiler(cfg.ProfilerOptions())
package config
