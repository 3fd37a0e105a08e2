package exporter

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wesleyorama2/tickscope/perf/metrics"
	"github.com/wesleyorama2/tickscope/perf/report"
)

var _ prometheus.Collector = (*Collector)(nil)

// Collector exports profiler state to Prometheus. Point metrics are read
// from the profiler at scrape time; bottleneck and anomaly metrics come from
// the last document passed to Observe.
type Collector struct {
	prof *metrics.Profiler
	doc  atomic.Pointer[report.Document]

	samples        *prometheus.Desc
	clamped        *prometheus.Desc
	calls          *prometheus.Desc
	totalMicros    *prometheus.Desc
	maxMicros      *prometheus.Desc
	duration       *prometheus.Desc
	windowAvg      *prometheus.Desc
	windowMax      *prometheus.Desc
	labels         *prometheus.Desc
	spikes         *prometheus.Desc
	spikeWorst     *prometheus.Desc
	spikeThreshold *prometheus.Desc
	priority       *prometheus.Desc
	bottleneckMs   *prometheus.Desc
	anomalies      *prometheus.Desc
	cycle          *prometheus.Desc
}

// New creates a collector for prof. Register it with a prometheus.Registerer
// and feed it documents with Observe, typically as a driver subscriber.
func New(namespace string, prof *metrics.Profiler) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		prof: prof,

		samples: desc("samples_total", "Samples accepted by the profiler."),
		clamped: desc("clamped_samples_total", "Samples whose duration was clamped into range."),

		calls:       desc("point_calls_total", "Samples recorded per point.", "point"),
		totalMicros: desc("point_duration_microseconds_total", "Summed duration per point.", "point"),
		maxMicros:   desc("point_duration_max_microseconds", "Longest sample per point.", "point"),
		duration:    desc("point_duration_seconds", "Sample durations per point.", "point"),
		windowAvg:   desc("point_window_avg_milliseconds", "Rolling window average per point.", "point", "window"),
		windowMax:   desc("point_window_max_milliseconds", "Rolling window maximum per point.", "point", "window"),
		labels:      desc("point_labels", "Distinct labels recorded per point.", "point"),

		spikes:         desc("spikes_total", "Samples at or above the spike threshold."),
		spikeWorst:     desc("spike_worst_milliseconds", "Largest spike since the last reset."),
		spikeThreshold: desc("spike_threshold_milliseconds", "Current spike threshold."),

		priority:     desc("bottleneck_priority", "Priority of every ranked bottleneck in the last analysis cycle.", "bottleneck", "module"),
		bottleneckMs: desc("bottleneck_avg_milliseconds", "Average duration of every ranked bottleneck in the last analysis cycle.", "bottleneck"),
		anomalies:    desc("anomalies", "Anomalies found by the last analysis cycle.", "severity"),
		cycle:        desc("analysis_cycles_total", "Completed analysis cycles."),
	}
}

// Observe stores the document used for bottleneck metrics.
func (c *Collector) Observe(doc report.Document) {
	c.doc.Store(&doc)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.samples, c.clamped, c.calls, c.totalMicros, c.maxMicros, c.duration,
		c.windowAvg, c.windowMax, c.labels, c.spikes,
		c.spikeWorst, c.spikeThreshold, c.priority, c.bottleneckMs,
		c.anomalies, c.cycle,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.samples, prometheus.CounterValue, float64(c.prof.TotalSamples()))
	ch <- prometheus.MustNewConstMetric(c.clamped, prometheus.CounterValue, float64(c.prof.ClampedSamples()))

	for _, p := range metrics.Points() {
		acc := c.prof.Accumulator(p)
		if acc == nil || acc.Calls() == 0 {
			continue
		}
		c.collectPoint(ch, acc)
	}

	spikes := c.prof.Spikes()
	ch <- prometheus.MustNewConstMetric(c.spikes, prometheus.CounterValue, float64(spikes.TotalSpikes()))
	ch <- prometheus.MustNewConstMetric(c.spikeThreshold, prometheus.GaugeValue, spikes.ThresholdMs())
	var worst float64
	if w, ok := spikes.Worst(); ok {
		worst = w.DurationMs()
	}
	ch <- prometheus.MustNewConstMetric(c.spikeWorst, prometheus.GaugeValue, worst)

	doc := c.doc.Load()
	if doc == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.cycle, prometheus.CounterValue, float64(doc.Session.Cycle))
	for _, b := range doc.Bottlenecks.Top {
		ch <- prometheus.MustNewConstMetric(c.priority, prometheus.GaugeValue, float64(b.Priority), b.Name, string(b.Target))
		ch <- prometheus.MustNewConstMetric(c.bottleneckMs, prometheus.GaugeValue, b.AvgMs, b.Name)
	}
	bySeverity := map[string]int{}
	for _, a := range doc.Bottlenecks.Anomalies.Items {
		bySeverity[string(a.Severity)]++
	}
	for _, sev := range []string{"INFO", "WARNING", "CRITICAL"} {
		ch <- prometheus.MustNewConstMetric(c.anomalies, prometheus.GaugeValue, float64(bySeverity[sev]), sev)
	}
}

func (c *Collector) collectPoint(ch chan<- prometheus.Metric, acc *metrics.TimingAccumulator) {
	name := acc.Point().String()

	ch <- prometheus.MustNewConstMetric(c.calls, prometheus.CounterValue, float64(acc.Calls()), name)
	ch <- prometheus.MustNewConstMetric(c.totalMicros, prometheus.CounterValue, float64(acc.TotalMicros()), name)
	ch <- prometheus.MustNewConstMetric(c.maxMicros, prometheus.GaugeValue, float64(acc.MaxMicros()), name)
	ch <- prometheus.MustNewConstMetric(c.labels, prometheus.GaugeValue, float64(acc.LabelCount()), name)

	for _, w := range acc.Windows() {
		window := strconv.Itoa(w.Capacity())
		ch <- prometheus.MustNewConstMetric(c.windowAvg, prometheus.GaugeValue, float64(w.Average())/1000.0, name, window)
		ch <- prometheus.MustNewConstMetric(c.windowMax, prometheus.GaugeValue, float64(w.Max())/1000.0, name, window)
	}

	count, sum, buckets := histogramOf(acc)
	ch <- prometheus.MustNewConstHistogram(c.duration, count, sum, buckets, name)
}

// histogramOf converts lower-bound buckets into cumulative upper-bound
// buckets in seconds. The open-ended last bucket is covered by +Inf.
//
// Source buckets are half-open, [b_i, b_i+1), while Prometheus buckets are
// inclusive, le=b_i+1. A sample exactly on a bound b_i+1 was counted in the
// bucket above it, so it only shows up under the next le, not under
// le=b_i+1.
func histogramOf(acc *metrics.TimingAccumulator) (uint64, float64, map[float64]uint64) {
	h := acc.Histogram()
	bounds := h.Bounds()
	counts := h.Counts()

	buckets := make(map[float64]uint64, len(bounds))
	var cumulative uint64
	for i := 0; i < len(counts)-1; i++ {
		cumulative += uint64(counts[i])
		buckets[bounds[i+1]/1000.0] = cumulative
	}
	count := cumulative
	if len(counts) > 0 {
		count += uint64(counts[len(counts)-1])
	}
	return count, float64(acc.TotalMicros()) / 1e6, buckets
}
