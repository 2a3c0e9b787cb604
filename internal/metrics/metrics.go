// Package metrics exports scheduler events as Prometheus series.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mlfq/internal/sched"
)

const namespace = "mlfq"

// Collector is a sched.Listener that keeps counters per event kind and a
// gauge per ready queue.
type Collector struct {
	enqueued   *prometheus.CounterVec
	dequeued   *prometheus.CounterVec
	queueLen   *prometheus.GaugeVec
	dispatches prometheus.Counter
	boosts     prometheus.Counter
	preempts   prometheus.Counter
	finished   prometheus.Counter
	ranTicks   prometheus.Histogram
	idleTicks  prometheus.Counter
	tick       prometheus.Gauge
}

// New registers the collector's series with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		enqueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "queue", Name: "enqueued_total",
			Help: "threads inserted into a ready queue",
		}, []string{"level"}),
		dequeued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "queue", Name: "dequeued_total",
			Help: "threads removed from a ready queue",
		}, []string{"level"}),
		queueLen: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "queue", Name: "length",
			Help: "threads currently waiting in a ready queue",
		}, []string{"level"}),
		dispatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sched", Name: "dispatches_total",
			Help: "context switches performed",
		}),
		boosts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sched", Name: "aging_boosts_total",
			Help: "priority boosts applied by aging",
		}),
		preempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sched", Name: "preempt_requests_total",
			Help: "preemption requests raised by aging",
		}),
		finished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sched", Name: "threads_destroyed_total",
			Help: "finished threads whose resources were released",
		}),
		ranTicks: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "sched", Name: "ran_ticks",
			Help:    "ticks the outgoing thread executed before each dispatch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		idleTicks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sched", Name: "idle_ticks_total",
			Help: "ticks the CPU spent with no ready thread",
		}),
		tick: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "sched", Name: "tick",
			Help: "tick of the most recent scheduler event",
		}),
	}
}

func (c *Collector) OnEvent(ev sched.StatusEvent) {
	c.tick.Set(float64(ev.Tick))
	switch ev.Kind {
	case sched.StatusEnqueue:
		c.enqueued.WithLabelValues(ev.Level.String()).Inc()
		c.queueLen.WithLabelValues(ev.Level.String()).Inc()
	case sched.StatusDequeue:
		c.dequeued.WithLabelValues(ev.Level.String()).Inc()
		c.queueLen.WithLabelValues(ev.Level.String()).Dec()
	case sched.StatusDispatch:
		c.dispatches.Inc()
		c.ranTicks.Observe(float64(ev.RanTicks))
	case sched.StatusPriority:
		c.boosts.Inc()
	case sched.StatusPreempt:
		c.preempts.Inc()
	case sched.StatusFinish:
		c.finished.Inc()
	case sched.StatusIdle:
		c.idleTicks.Add(float64(ev.RanTicks))
	}
}
