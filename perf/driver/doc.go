// Package driver runs the periodic analysis pass of the telemetry engine.
//
// Hosts record samples on a metrics.Profiler from any goroutine and push
// host facts (heap usage, entity counts, ...) through Driver.PushFacts, or
// Driver.TryPushFacts when the caller must not wait. The driver loop wakes
// every interval, folds the queued facts into its current view, feeds the
// correlation analyzer and publishes a report.Document.
//
//	d, _ := driver.New(driver.Components{Profiler: prof, Detector: det}, driver.Options{})
//	release := d.Register(func(doc report.Document) { ... })
//	defer release()
//	go d.Run(ctx)
package driver
