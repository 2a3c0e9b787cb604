// Package kernel is a simulated uniprocessor kernel. It provides the
// collaborators the scheduler only sees through sched.Machine: a tick
// counter, an interrupt level, per-thread stacks and a context switch. Each
// simulated thread runs on its own goroutine, but only the goroutine holding
// the CPU ever executes; the others are parked inside a switch.
package kernel

import (
	"context"
	"errors"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mlfq/internal/job"
	"mlfq/internal/machine"
	"mlfq/internal/sched"
)

var (
	errIdleForever = &sched.Error{Module: "kernel", Message: "no ready thread and no pending alarm"}

	// ErrAlreadyRan is returned by a second call to Run.
	ErrAlreadyRan = errors.New("kernel: already ran")
)

// kthread is the kernel's side of a thread: what the scheduler does not see.
type kthread struct {
	t     *sched.Thread
	ctx   *machine.Context
	stack *machine.Stack
	prog  job.Program

	initialPriority int
	cpuBurst        int64 // ticks in the current CPU burst, across preemptions
	cpuTicks        int64
	dispatches      int
	finishTick      int64
}

// Kernel owns the simulated machine and the single scheduler instance.
type Kernel struct {
	cfg   sched.Config
	log   *zap.Logger
	runID uuid.UUID

	clock *machine.TickClock
	intr  *machine.Interrupt
	sched *sched.Scheduler

	alarms    *alarmQueue
	threads   map[sched.ThreadID]*kthread
	main      *kthread
	nextID    sched.ThreadID
	live      int
	nextTimer int64

	ctx    context.Context
	ran    bool
	report Report
}

// New boots a kernel. The calling goroutine becomes the main thread.
func New(cfg sched.Config, log *zap.Logger) *Kernel {
	cfg.Normalize()
	if log == nil {
		log = zap.NewNop()
	}
	runID := uuid.New()
	log = log.With(zap.String("run_id", runID.String()))

	k := &Kernel{
		cfg:       cfg,
		log:       log,
		runID:     runID,
		clock:     machine.NewTickClock(time.Duration(cfg.TickMS) * time.Millisecond),
		intr:      machine.NewInterrupt(),
		alarms:    newAlarmQueue(),
		threads:   make(map[sched.ThreadID]*kthread),
		nextTimer: cfg.TimerTicks,
		ctx:       context.Background(),
		report:    Report{RunID: runID.String()},
	}
	k.sched = sched.New(cfg, k, log.Named("sched"))

	k.main = &kthread{
		t:     sched.NewThread(0, "main", sched.MinPriority),
		ctx:   machine.NewContext(),
		stack: machine.NewStack(cfg.StackSize),
	}
	k.threads[k.main.t.ID] = k.main
	k.sched.SetCurrent(k.main.t)
	return k
}

// RunID identifies this boot in logs and traces.
func (k *Kernel) RunID() string { return k.runID.String() }

// AddListener subscribes l to scheduler events.
func (k *Kernel) AddListener(l sched.Listener) { k.sched.AddListener(l) }

// PrintReadyQueues dumps the ready queues to w.
func (k *Kernel) PrintReadyQueues(w io.Writer) { k.sched.PrintReadyQueues(w) }

// Fork creates a thread running spec's program and makes it ready. Call it
// from the main thread before Run, or from a running simulated thread.
func (k *Kernel) Fork(spec job.ThreadSpec) *sched.Thread {
	k.nextID++
	t := sched.NewThread(k.nextID, spec.Name, spec.Priority)
	t.PredictedBurst = spec.PredictedBurst

	kt := &kthread{
		t:               t,
		ctx:             machine.NewContext(),
		stack:           machine.NewStack(k.cfg.StackSize),
		prog:            spec.Program,
		initialPriority: t.Priority,
	}
	k.threads[t.ID] = kt
	k.live++
	kt.ctx.Start(func() { k.begin(kt) })

	old := k.intr.SetLevel(machine.IntOff)
	k.admit(kt)
	k.intr.SetLevel(old)

	k.log.Debug("thread forked",
		zap.Uint64("thread", uint64(t.ID)),
		zap.String("name", t.Name),
		zap.Int("priority", t.Priority),
		zap.Int64("cpu_ticks", spec.Program.CPUTicks()),
	)
	return t
}

// Run hands the CPU to the forked threads and returns once all of them have
// finished. Cancelling ctx makes every thread skip its remaining steps.
func (k *Kernel) Run(ctx context.Context) (Report, error) {
	if k.ran {
		return Report{}, ErrAlreadyRan
	}
	k.ran = true
	k.ctx = ctx

	k.log.Info("kernel starting", zap.Int("threads", k.live))

	old := k.intr.SetLevel(machine.IntOff)
	if k.live > 0 {
		// main sleeps until the last thread finishes and readies it again
		k.main.t.Status = sched.Blocked
		k.sched.Run(k.nextToRun(), false)
	}
	k.intr.SetLevel(old)

	k.report.TotalTicks = k.clock.Count()
	k.log.Info("kernel halted",
		zap.Int64("ticks", k.report.TotalTicks),
		zap.Int("finished", len(k.report.Threads)),
	)
	return k.report, ctx.Err()
}

// OneTick advances the clock by one tick on behalf of the running thread and
// services the timer. The running thread yields here if it was asked to.
func (k *Kernel) OneTick() {
	old := k.intr.SetLevel(machine.IntOff)
	now := k.clock.Advance(1)

	kt := k.current()
	kt.t.Burst++
	kt.cpuBurst++
	kt.cpuTicks++

	k.wake(now)
	for now >= k.nextTimer {
		k.nextTimer += k.cfg.TimerTicks
		k.sched.Aging()
	}

	// round-robin quantum for the lowest tier
	if kt.t.Priority < sched.L2Floor && kt.t.Burst >= k.cfg.SliceTicks {
		kt.t.PreemptRequested = true
	}

	yield := kt.t.PreemptRequested
	k.intr.SetLevel(old)
	if yield {
		k.Yield()
	}
}

// Yield gives up the CPU if any other thread is ready. The running thread
// goes back on a ready queue.
func (k *Kernel) Yield() {
	old := k.intr.SetLevel(machine.IntOff)
	kt := k.current()
	kt.t.PreemptRequested = false

	if next, ok := k.sched.FindNextToRun(); ok {
		k.admit(kt)
		k.sched.Run(next, false)
	}
	k.intr.SetLevel(old)
}

// Sleep blocks the running thread for ticks. It ends the thread's CPU
// burst, so the burst prediction is updated here.
func (k *Kernel) Sleep(ticks int64) {
	old := k.intr.SetLevel(machine.IntOff)
	kt := k.current()
	t := kt.t

	prev := t.PredictedBurst
	t.PredictedBurst = k.cfg.Alpha*float64(kt.cpuBurst) + (1-k.cfg.Alpha)*prev
	k.log.Debug("burst prediction updated",
		zap.Uint64("thread", uint64(t.ID)),
		zap.Float64("from", prev),
		zap.Float64("to", t.PredictedBurst),
		zap.Int64("burst", kt.cpuBurst),
	)
	kt.cpuBurst = 0

	t.PreemptRequested = false
	t.Status = sched.Blocked
	k.alarms.schedule(k.clock.Count()+ticks, kt)

	k.sched.Run(k.nextToRun(), false)
	k.intr.SetLevel(old)
}

// Finish ends the running thread. It never returns: the thread's goroutine
// exits once the next thread has destroyed it.
func (k *Kernel) Finish() {
	k.intr.SetLevel(machine.IntOff)
	kt := k.current()
	kt.t.Status = sched.Finished
	kt.finishTick = k.clock.Count()

	k.live--
	if k.live == 0 {
		k.admit(k.main)
	}

	k.sched.Run(k.nextToRun(), true)
	k.fault(&sched.Error{Module: "kernel", Message: "finished thread " + kt.t.Name + " was resumed"})
}

// begin is where a thread's goroutine enters on its first dispatch, instead
// of returning from the Run that switched to it.
func (k *Kernel) begin(kt *kthread) {
	k.sched.CheckToBeDestroyed()
	k.intr.SetLevel(machine.IntOn)
	k.execute(kt)
	k.Finish()
}

func (k *Kernel) execute(kt *kthread) {
	for _, step := range kt.prog {
		if k.ctx.Err() != nil {
			return
		}
		switch step.Kind {
		case job.StepCPU:
			for i := int64(0); i < step.Ticks && k.ctx.Err() == nil; i++ {
				k.OneTick()
			}
		case job.StepSleep:
			k.Sleep(step.Ticks)
		}
	}
}

// admit puts kt on a ready queue with a fresh completion estimate: what is
// left of its predicted burst.
func (k *Kernel) admit(kt *kthread) {
	t := kt.t
	t.CompletionEstimate = math.Max(0, t.PredictedBurst-float64(kt.cpuBurst))
	k.sched.ReadyToRun(t)
}

// wake readies every thread whose alarm is due and asks the running thread
// to yield if a woken thread outranks it.
func (k *Kernel) wake(now int64) {
	for _, kt := range k.alarms.due(now) {
		k.admit(kt)
		k.preemptFor(kt)
	}
}

func (k *Kernel) preemptFor(woken *kthread) {
	cur := k.current()
	if cur == woken || cur.t.Status != sched.Running {
		return
	}
	t, c := woken.t, cur.t
	switch sched.LevelOf(t.Priority) {
	case sched.LevelL1:
		remaining := c.PredictedBurst - float64(cur.cpuBurst)
		if c.Priority < sched.L1Floor || t.CompletionEstimate < remaining {
			c.PreemptRequested = true
		}
	case sched.LevelL2:
		if c.Priority < sched.L2Floor {
			c.PreemptRequested = true
		}
	}
}

// nextToRun returns the next thread to dispatch. With nothing ready the CPU
// idles: the clock jumps to the next alarm.
func (k *Kernel) nextToRun() *sched.Thread {
	for {
		if t, ok := k.sched.FindNextToRun(); ok {
			return t
		}
		at, ok := k.alarms.next()
		if !ok {
			k.fault(errIdleForever)
		}
		k.sched.Idle(at)
		now := k.clock.AdvanceTo(at)
		// the ready queues are empty, so skipped timer interrupts have nothing to age
		for k.nextTimer <= now {
			k.nextTimer += k.cfg.TimerTicks
		}
		k.wake(now)
	}
}

func (k *Kernel) current() *kthread {
	return k.threads[k.sched.Current().ID]
}

func (k *Kernel) fault(err *sched.Error) {
	k.log.Error("kernel fault, halting",
		zap.String("module", err.Module),
		zap.String("message", err.Message),
		zap.Int64("tick", k.clock.Count()),
		zap.Stringer("interrupts", k.intr.Level()),
	)
	panic(err)
}

// Ticks implements sched.Machine.
func (k *Kernel) Ticks() int64 { return k.clock.Count() }

// InterruptsEnabled implements sched.Machine.
func (k *Kernel) InterruptsEnabled() bool { return k.intr.Enabled() }

// StackOverflowed implements sched.Machine.
func (k *Kernel) StackOverflowed(t *sched.Thread) bool {
	kt, ok := k.threads[t.ID]
	return ok && kt.stack.Overflowed()
}

// Switch implements sched.Machine.
func (k *Kernel) Switch(outgoing, incoming *sched.Thread) {
	out, in := k.threads[outgoing.ID], k.threads[incoming.ID]
	in.dispatches++
	machine.Switch(out.ctx, in.ctx)
}

// Destroy implements sched.Machine.
func (k *Kernel) Destroy(t *sched.Thread) {
	kt, ok := k.threads[t.ID]
	if !ok {
		return
	}
	delete(k.threads, t.ID)
	t.Status = sched.Finished

	k.report.Threads = append(k.report.Threads, ThreadReport{
		ID:              t.ID,
		Name:            t.Name,
		InitialPriority: kt.initialPriority,
		FinalPriority:   t.Priority,
		Dispatches:      kt.dispatches,
		CPUTicks:        kt.cpuTicks,
		PredictedBurst:  t.PredictedBurst,
		FinishTick:      kt.finishTick,
	})
	k.log.Debug("thread destroyed",
		zap.Uint64("thread", uint64(t.ID)),
		zap.String("name", t.Name),
		zap.Int64("cpu_ticks", kt.cpuTicks),
	)
	kt.ctx.Kill()
}
