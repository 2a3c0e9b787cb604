// internal/sched/schedulerEvent.go

package sched

// StatusKind represents the type of scheduler event
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusEnqueue
	StatusDequeue
	StatusPriority
	StatusDispatch
	StatusPreempt
	StatusFinish
)

// StatusEvent is emitted on every queue mutation, priority change and
// dispatch. Which fields are meaningful depends on Kind.
type StatusEvent struct {
	Tick        int64
	Kind        StatusKind
	ThreadID    ThreadID
	Level       Level    // Enqueue, Dequeue: the queue touched
	OldPriority int      // Priority
	Priority    int      // Priority, Dispatch
	PrevID      ThreadID // Dispatch: the thread being replaced
	RanTicks    int64    // Dispatch: ticks the replaced thread executed. Idle: ticks the CPU sleeps
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusIdle:
		return "Idle"
	case StatusEnqueue:
		return "Enqueued"
	case StatusDequeue:
		return "Dequeued"
	case StatusPriority:
		return "Priority"
	case StatusDispatch:
		return "Dispatch"
	case StatusPreempt:
		return "Preempt"
	case StatusFinish:
		return "Finish"
	default:
		return "Unknown"
	}
}

// Tag returns the short trace marker of the kinds that have one: [A] insert,
// [B] remove, [C] priority change, [E] dispatch. Other kinds return "".
func (sk StatusKind) Tag() string {
	switch sk {
	case StatusEnqueue:
		return "[A]"
	case StatusDequeue:
		return "[B]"
	case StatusPriority:
		return "[C]"
	case StatusDispatch:
		return "[E]"
	default:
		return ""
	}
}

// Listener receives scheduler events synchronously, with interrupts off.
// Implementations must not block.
type Listener interface {
	OnEvent(ev StatusEvent)
}

// ListenerFunc adapts a plain function to a Listener.
type ListenerFunc func(ev StatusEvent)

func (f ListenerFunc) OnEvent(ev StatusEvent) { f(ev) }
