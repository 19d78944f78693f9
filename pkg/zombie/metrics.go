package zombie

// metrics.go is a thin abstraction over Prometheus so the engine works with
// or without metrics: a metricsSink interface, a no-op implementation used
// when no registry is supplied, and a Prometheus-backed implementation
// registered lazily by newMetricsSink.
//
// ┌────────────────────────────────────┐
// │ Metric                     │ Type  │
// ├─────────────────────────────┼───────┤
// │ zombie_binds_total          │ Ctr   │
// │ zombie_replays_total{kind}  │ Ctr   │ kind=full|partial
// │ zombie_evictions_total      │ Ctr   │
// │ zombie_reap_steps_total     │ Ctr   │
// │ zombie_kinetic_recerts_total│ Ctr   │
// │ zombie_akasha_size          │ Gge   │
// │ zombie_eviction_heap_size    │ Gge   │
// │ zombie_uf_roots             │ Gge   │
// └────────────────────────────────────┘
//
// © 2025 zombie-cache authors. MIT License.

import "github.com/prometheus/client_golang/prometheus"

type metricsSink interface {
	incBind()
	incReplay(partial bool)
	incEviction()
	incReapStep()
	incKineticRecert(n int)
	setAkashaSize(n int)
	setEvictionHeapSize(n int)
	setUFRoots(n int)
}

type noopMetrics struct{}

func (noopMetrics) incBind()                {}
func (noopMetrics) incReplay(bool)          {}
func (noopMetrics) incEviction()            {}
func (noopMetrics) incReapStep()            {}
func (noopMetrics) incKineticRecert(int)    {}
func (noopMetrics) setAkashaSize(int)       {}
func (noopMetrics) setEvictionHeapSize(int) {}
func (noopMetrics) setUFRoots(int)          {}

type promMetrics struct {
	binds          prometheus.Counter
	replaysFull    prometheus.Counter
	replaysPartial prometheus.Counter
	evictions      prometheus.Counter
	reapSteps      prometheus.Counter
	kineticRecerts prometheus.Counter
	akashaSize     prometheus.Gauge
	heapSize       prometheus.Gauge
	ufRoots        prometheus.Gauge
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	pm := &promMetrics{
		binds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zombie", Name: "binds_total", Help: "Number of binds recorded.",
		}),
		replaysFull: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zombie", Name: "replays_total", Help: "Number of full replays.",
			ConstLabels: prometheus.Labels{"kind": "full"},
		}),
		replaysPartial: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zombie", Name: "replays_total", Help: "Number of partial replays.",
			ConstLabels: prometheus.Labels{"kind": "partial"},
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zombie", Name: "evictions_total", Help: "Number of contexts evicted.",
		}),
		reapSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zombie", Name: "reap_steps_total", Help: "Number of reaper evictions made by Reap and Murder.",
		}),
		kineticRecerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zombie", Name: "kinetic_recerts_total", Help: "Number of kinetic certificate recertifications.",
		}),
		akashaSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "zombie", Name: "akasha_size", Help: "Number of precise entries in the lineage index.",
		}),
		heapSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "zombie", Name: "eviction_heap_size", Help: "Number of evictable contexts in the eviction backend.",
		}),
		ufRoots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "zombie", Name: "uf_roots", Help: "Number of distinct union-find roots among evicted contexts.",
		}),
	}
	reg.MustRegister(pm.binds, pm.replaysFull, pm.replaysPartial, pm.evictions,
		pm.reapSteps, pm.kineticRecerts, pm.akashaSize, pm.heapSize, pm.ufRoots)
	return pm
}

func (m *promMetrics) incBind() { m.binds.Inc() }
func (m *promMetrics) incReplay(partial bool) {
	if partial {
		m.replaysPartial.Inc()
	} else {
		m.replaysFull.Inc()
	}
}
func (m *promMetrics) incEviction()              { m.evictions.Inc() }
func (m *promMetrics) incReapStep()              { m.reapSteps.Inc() }
func (m *promMetrics) incKineticRecert(n int)    { m.kineticRecerts.Add(float64(n)) }
func (m *promMetrics) setAkashaSize(n int)       { m.akashaSize.Set(float64(n)) }
func (m *promMetrics) setEvictionHeapSize(n int) { m.heapSize.Set(float64(n)) }
func (m *promMetrics) setUFRoots(n int)          { m.ufRoots.Set(float64(n)) }

func newMetricsSink(reg *prometheus.Registry) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}
	return newPromMetrics(reg)
}
