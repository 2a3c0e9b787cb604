package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mlfq/internal/sched"
)

func TestCollector(t *testing.T) {
	t.Parallel()
	c := New(prometheus.NewRegistry())

	for _, ev := range []sched.StatusEvent{
		{Tick: 0, Kind: sched.StatusEnqueue, ThreadID: 1, Level: sched.LevelL2},
		{Tick: 0, Kind: sched.StatusEnqueue, ThreadID: 2, Level: sched.LevelL3},
		{Tick: 0, Kind: sched.StatusDequeue, ThreadID: 1, Level: sched.LevelL2},
		{Tick: 0, Kind: sched.StatusDispatch, ThreadID: 1, RanTicks: 3},
		{Tick: 1600, Kind: sched.StatusPriority, ThreadID: 2, OldPriority: 45, Priority: 55},
		{Tick: 1600, Kind: sched.StatusDequeue, ThreadID: 2, Level: sched.LevelL3},
		{Tick: 1600, Kind: sched.StatusEnqueue, ThreadID: 2, Level: sched.LevelL2},
		{Tick: 1600, Kind: sched.StatusPreempt, ThreadID: 1},
		{Tick: 1700, Kind: sched.StatusFinish, ThreadID: 1},
		{Tick: 1700, Kind: sched.StatusIdle, ThreadID: 1, RanTicks: 40},
	} {
		c.OnEvent(ev)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"enqueued L2", testutil.ToFloat64(c.enqueued.WithLabelValues("L[2]")), 2},
		{"enqueued L3", testutil.ToFloat64(c.enqueued.WithLabelValues("L[3]")), 1},
		{"length L2", testutil.ToFloat64(c.queueLen.WithLabelValues("L[2]")), 1},
		{"length L3", testutil.ToFloat64(c.queueLen.WithLabelValues("L[3]")), 0},
		{"dispatches", testutil.ToFloat64(c.dispatches), 1},
		{"boosts", testutil.ToFloat64(c.boosts), 1},
		{"preempts", testutil.ToFloat64(c.preempts), 1},
		{"finished", testutil.ToFloat64(c.finished), 1},
		{"tick", testutil.ToFloat64(c.tick), 1700},
		{"idle ticks", testutil.ToFloat64(c.idleTicks), 40},
	}
	for _, ck := range checks {
		if ck.got != ck.want {
			t.Errorf("%s = %v, want %v", ck.name, ck.got, ck.want)
		}
	}
}
