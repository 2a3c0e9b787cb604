package kernel

import (
	"github.com/emirpasic/gods/queues/priorityqueue"
)

// alarm wakes a sleeping thread at a given tick.
type alarm struct {
	at int64
	kt *kthread
}

// alarmQueue holds pending wake-ups, earliest first. Equal ticks wake in
// thread id order so runs are reproducible.
type alarmQueue struct {
	q *priorityqueue.Queue
}

func newAlarmQueue() *alarmQueue {
	return &alarmQueue{q: priorityqueue.NewWith(func(a, b any) int {
		x, y := a.(alarm), b.(alarm)
		switch {
		case x.at < y.at:
			return -1
		case x.at > y.at:
			return 1
		case x.kt.t.ID < y.kt.t.ID:
			return -1
		case x.kt.t.ID > y.kt.t.ID:
			return 1
		default:
			return 0
		}
	})}
}

func (a *alarmQueue) schedule(at int64, kt *kthread) {
	a.q.Enqueue(alarm{at: at, kt: kt})
}

// next returns the tick of the earliest pending alarm.
func (a *alarmQueue) next() (int64, bool) {
	v, ok := a.q.Peek()
	if !ok {
		return 0, false
	}
	return v.(alarm).at, true
}

// due removes and returns every thread whose alarm is at or before now.
func (a *alarmQueue) due(now int64) []*kthread {
	var out []*kthread
	for {
		v, ok := a.q.Peek()
		if !ok || v.(alarm).at > now {
			return out
		}
		a.q.Dequeue()
		out = append(out, v.(alarm).kt)
	}
}

func (a *alarmQueue) len() int { return a.q.Size() }
