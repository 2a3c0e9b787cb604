// internal/sched/scheduler.go

package sched

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Machine is everything the scheduler needs from the hardware layer.
type Machine interface {
	// Ticks returns the global tick counter.
	Ticks() int64
	// InterruptsEnabled reports the interrupt level. Every scheduler entry
	// point requires it to be false.
	InterruptsEnabled() bool
	// StackOverflowed checks the thread's stack fence post.
	StackOverflowed(t *Thread) bool
	// Switch saves outgoing's execution context and resumes incoming. It
	// returns only when outgoing is dispatched again, on outgoing's stack.
	Switch(outgoing, incoming *Thread)
	// Destroy releases a finished thread's resources.
	Destroy(t *Thread)
}

// Scheduler implements a three level feedback queue for a uniprocessor.
//
// It never blocks and never locks: all entry points assume the caller has
// disabled interrupts, which on a single CPU is mutual exclusion. A lock
// here would be fatal, since waiting on it would call back into
// FindNextToRun.
type Scheduler struct {
	machine Machine
	log     *zap.Logger

	agingThreshold int64
	agingBoost     int

	l1 *readyQueue // real-time tier, shortest completion estimate first
	l2 *readyQueue // priority tier, highest priority first
	l3 *readyQueue // round-robin tier, FIFO

	current       *Thread
	toBeDestroyed *Thread // finished thread whose stack is still in use

	listeners []Listener
}

// New creates a scheduler with empty ready queues.
func New(cfg Config, m Machine, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	cfg.Normalize()
	return &Scheduler{
		machine:        m,
		log:            log,
		agingThreshold: cfg.AgingThreshold,
		agingBoost:     cfg.AgingBoost,
		l1:             newReadyQueue(LevelL1, ByCompletionEstimate),
		l2:             newReadyQueue(LevelL2, ByPriority),
		l3:             newReadyQueue(LevelL3, FIFO),
	}
}

// AddListener registers l for all subsequent events.
func (s *Scheduler) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Current returns the running thread.
func (s *Scheduler) Current() *Thread { return s.current }

// SetCurrent installs the boot thread as running without a context switch.
func (s *Scheduler) SetCurrent(t *Thread) {
	t.Status = Running
	t.Burst = 0
	t.DispatchTick = s.machine.Ticks()
	s.current = t
}

// ReadyToRun marks t ready and puts it on the queue of its tier. It does
// not reschedule.
func (s *Scheduler) ReadyToRun(t *Thread) {
	s.assertInterruptsOff()

	t.Status = Ready
	t.EnqueueTick = s.machine.Ticks()
	t.LastAgedTick = 0

	q := s.queueFor(t.Priority)
	q.Insert(t)
	s.emit(StatusEvent{Tick: t.EnqueueTick, Kind: StatusEnqueue, ThreadID: t.ID, Level: q.level, Priority: t.Priority})
}

// FindNextToRun removes and returns the next thread to run: the head of L1,
// else L2, else L3. It returns false when every queue is empty, which means
// the CPU should idle.
func (s *Scheduler) FindNextToRun() (*Thread, bool) {
	s.assertInterruptsOff()

	for _, q := range []*readyQueue{s.l1, s.l2, s.l3} {
		if t, ok := q.RemoveFront(); ok {
			s.emit(StatusEvent{Tick: s.machine.Ticks(), Kind: StatusDequeue, ThreadID: t.ID, Level: q.level, Priority: t.Priority})
			return t, true
		}
	}
	return nil, false
}

// Run dispatches the CPU to next. The outgoing thread's status must already
// have been changed from running. If finishing is set, the outgoing thread
// is destroyed once some other thread is running on its own stack.
//
// Run returns when the outgoing thread is dispatched again.
func (s *Scheduler) Run(next *Thread, finishing bool) {
	old := s.current
	if old == nil {
		s.halt(ErrNoCurrentThread)
	}
	s.assertInterruptsOff()

	if finishing {
		if s.toBeDestroyed != nil {
			s.halt(ErrDestroySlotBusy)
		}
		s.toBeDestroyed = old
	}

	if old.User != nil {
		old.User.SaveUserState()
		old.User.SaveState()
	}

	if s.machine.StackOverflowed(old) {
		s.halt(ErrStackOverflow)
	}

	now := s.machine.Ticks()
	s.emit(StatusEvent{
		Tick:     now,
		Kind:     StatusDispatch,
		ThreadID: next.ID,
		Priority: next.Priority,
		PrevID:   old.ID,
		RanTicks: old.Burst,
	})

	s.current = next
	next.Status = Running
	next.Burst = 0
	next.DispatchTick = now

	s.machine.Switch(old, next)

	// we're back, running old
	s.assertInterruptsOff()
	s.CheckToBeDestroyed()

	if old.User != nil {
		old.User.RestoreUserState()
		old.User.RestoreState()
	}
}

// CheckToBeDestroyed releases the thread that gave up the CPU by finishing.
// It must only run after the switch away from that thread's stack.
func (s *Scheduler) CheckToBeDestroyed() {
	if s.toBeDestroyed == nil {
		return
	}
	t := s.toBeDestroyed
	s.toBeDestroyed = nil
	s.emit(StatusEvent{Tick: s.machine.Ticks(), Kind: StatusFinish, ThreadID: t.ID, Priority: t.Priority})
	s.machine.Destroy(t)
}

// Idle reports that nothing is ready and the CPU will sit idle until tick
// until. It does not touch the queues.
func (s *Scheduler) Idle(until int64) {
	s.assertInterruptsOff()
	now := s.machine.Ticks()
	var id ThreadID
	if s.current != nil {
		id = s.current.ID
	}
	s.emit(StatusEvent{Tick: now, Kind: StatusIdle, ThreadID: id, RanTicks: until - now})
}

// Aging boosts every ready thread that has waited longer than the aging
// threshold and moves it up a tier when the boost crosses a boundary. It is
// called periodically from the timer interrupt.
//
// Migration may set PreemptRequested on the running thread. Nothing else
// happens to it here.
func (s *Scheduler) Aging() {
	s.assertInterruptsOff()
	now := s.machine.Ticks()

	// L1 is ordered by completion estimate, so a boost never moves anything.
	for _, t := range s.l1.Threads() {
		s.age(t, now)
	}
	for _, t := range s.l2.Threads() {
		if s.age(t, now) {
			s.promote(t, s.l2, now)
		}
	}
	for _, t := range s.l3.Threads() {
		if s.age(t, now) {
			s.promote(t, s.l3, now)
		}
	}
}

func (s *Scheduler) age(t *Thread, now int64) bool {
	since := t.EnqueueTick
	if t.LastAgedTick != 0 {
		since = t.LastAgedTick
	}
	if now-since <= s.agingThreshold {
		return false
	}

	old := t.Priority
	t.LastAgedTick = now
	t.Priority = clampPriority(old + s.agingBoost)
	s.emit(StatusEvent{Tick: now, Kind: StatusPriority, ThreadID: t.ID, OldPriority: old, Priority: t.Priority})
	return true
}

// promote moves a just-boosted thread to the queue its new priority belongs
// to, or re-sorts it in place when it stays.
func (s *Scheduler) promote(t *Thread, from *readyQueue, now int64) {
	to := s.queueFor(t.Priority)
	if to == from {
		from.Reorder(t)
		return
	}

	from.Remove(t)
	s.emit(StatusEvent{Tick: now, Kind: StatusDequeue, ThreadID: t.ID, Level: from.level, Priority: t.Priority})
	to.Insert(t)
	s.emit(StatusEvent{Tick: now, Kind: StatusEnqueue, ThreadID: t.ID, Level: to.level, Priority: t.Priority})

	cur := s.current
	if cur == nil {
		return
	}
	switch to.level {
	case LevelL1:
		// Only the running thread is compared, not the rest of L1.
		if cur.Priority < L1Floor || t.PredictedBurst < cur.PredictedBurst {
			s.requestPreempt(cur, now)
		}
	case LevelL2:
		if cur.Priority < L2Floor {
			s.requestPreempt(cur, now)
		}
	}
}

func (s *Scheduler) requestPreempt(t *Thread, now int64) {
	t.PreemptRequested = true
	s.emit(StatusEvent{Tick: now, Kind: StatusPreempt, ThreadID: t.ID, Priority: t.Priority})
}

// Len returns the number of threads waiting in the given queue.
func (s *Scheduler) Len(level Level) int {
	if q := s.queue(level); q != nil {
		return q.Len()
	}
	return 0
}

// Threads returns the members of a queue in service order.
func (s *Scheduler) Threads(level Level) []*Thread {
	if q := s.queue(level); q != nil {
		return q.Threads()
	}
	return nil
}

// PrintReadyQueues writes the contents of the ready queues. For debugging.
func (s *Scheduler) PrintReadyQueues(w io.Writer) {
	fmt.Fprintf(w, "Ready list contents at tick %d:\n", s.machine.Ticks())
	for _, q := range []*readyQueue{s.l1, s.l2, s.l3} {
		var b strings.Builder
		for i, t := range q.Threads() {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s prio=%d est=%.1f", t, t.Priority, t.CompletionEstimate)
		}
		fmt.Fprintf(w, "  %s: [%s]\n", q.level, b.String())
	}
}

func (s *Scheduler) queueFor(priority int) *readyQueue {
	return s.queue(LevelOf(priority))
}

func (s *Scheduler) queue(level Level) *readyQueue {
	switch level {
	case LevelL1:
		return s.l1
	case LevelL2:
		return s.l2
	case LevelL3:
		return s.l3
	default:
		return nil
	}
}

func (s *Scheduler) emit(ev StatusEvent) {
	for _, l := range s.listeners {
		l.OnEvent(ev)
	}
}

func (s *Scheduler) assertInterruptsOff() {
	if s.machine.InterruptsEnabled() {
		s.halt(ErrInterruptsEnabled)
	}
}

func (s *Scheduler) halt(err *Error) {
	s.log.Error("scheduler fault, halting",
		zap.String("module", err.Module),
		zap.String("message", err.Message),
		zap.Int64("tick", s.machine.Ticks()),
	)
	haltFn(err)
}
