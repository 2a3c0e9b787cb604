package sched

import "fmt"

// ThreadID uniquely identifies a thread in the kernel.
type ThreadID uint64

// ThreadStatus is the lifecycle state of a thread as seen by the scheduler.
type ThreadStatus int

const (
	JustCreated ThreadStatus = iota
	Ready
	Running
	Blocked
	Finished
)

func (s ThreadStatus) String() string {
	switch s {
	case JustCreated:
		return "JUST_CREATED"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Blocked:
		return "BLOCKED"
	case Finished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Priority bounds and tier boundaries.
const (
	MinPriority = 0
	MaxPriority = 149

	// L1Floor is the lowest priority routed to the real-time tier.
	L1Floor = 100
	// L2Floor is the lowest priority routed to the priority tier.
	L2Floor = 50
)

// Level names one of the three ready queues. LevelNone means the thread is
// not queued (running, blocked or not yet admitted).
type Level int

const (
	LevelNone Level = iota
	LevelL1
	LevelL2
	LevelL3
)

func (l Level) String() string {
	if l == LevelNone {
		return "-"
	}
	return fmt.Sprintf("L[%d]", int(l))
}

// LevelOf returns the tier a priority is routed to.
func LevelOf(priority int) Level {
	switch {
	case priority >= L1Floor:
		return LevelL1
	case priority >= L2Floor:
		return LevelL2
	default:
		return LevelL3
	}
}

// UserContext is the user-mode half of a thread: its CPU registers and its
// address space. Kernel-only threads have none.
type UserContext interface {
	SaveUserState()
	RestoreUserState()
	SaveState()
	RestoreState()
}

// Thread is one schedulable kernel thread. The kernel owns it; the
// scheduler only links it into at most one ready queue at a time.
type Thread struct {
	ID       ThreadID
	Name     string
	Status   ThreadStatus
	Priority int // 0 - 149, higher runs first across tiers

	Burst              int64   // ticks used since the last dispatch
	PredictedBurst     float64 // estimate of the next CPU burst
	CompletionEstimate float64 // L1 order key, shortest first

	EnqueueTick      int64 // tick of the last ReadyToRun
	LastAgedTick     int64 // tick of the last aging boost, 0 if never
	DispatchTick     int64 // tick of the last dispatch
	PreemptRequested bool  // set by aging, honoured by the kernel at the next safe point

	User UserContext // nil for kernel threads

	level Level
	key   queueKey
}

// NewThread creates a thread with its priority clamped to the legal range.
// NOTE: it is not queued here. Call ReadyToRun to admit it.
func NewThread(id ThreadID, name string, priority int) *Thread {
	return &Thread{
		ID:       id,
		Name:     name,
		Status:   JustCreated,
		Priority: clampPriority(priority),
	}
}

// Level reports which ready queue currently holds the thread.
func (t *Thread) Level() Level { return t.level }

func (t *Thread) String() string {
	return fmt.Sprintf("%s(%d)", t.Name, t.ID)
}

func clampPriority(p int) int {
	if p < MinPriority {
		return MinPriority
	} else if p > MaxPriority {
		return MaxPriority
	}
	return p
}
