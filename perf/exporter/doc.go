// Package exporter exposes profiler state as Prometheus metrics.
//
//	c := exporter.New("tickscope", prof)
//	prometheus.MustRegister(c)
//	release := drv.Register(c.Observe)
//	defer release()
package exporter
