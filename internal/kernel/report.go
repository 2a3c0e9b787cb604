package kernel

import (
	"fmt"
	"io"

	"mlfq/internal/sched"
)

// ThreadReport summarises one thread after it has been destroyed.
type ThreadReport struct {
	ID              sched.ThreadID
	Name            string
	InitialPriority int
	FinalPriority   int
	Dispatches      int
	CPUTicks        int64
	PredictedBurst  float64
	FinishTick      int64
}

// Report is the outcome of one kernel run. Threads are listed in the order
// they were destroyed.
type Report struct {
	RunID      string
	TotalTicks int64
	Threads    []ThreadReport
}

// Thread returns the report for the named thread.
func (r Report) Thread(name string) (ThreadReport, bool) {
	for _, t := range r.Threads {
		if t.Name == name {
			return t, true
		}
	}
	return ThreadReport{}, false
}

// Print writes the report as a table.
func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "run %s finished at tick %d\n", r.RunID, r.TotalTicks)
	fmt.Fprintf(w, "%-4s %-12s %6s %6s %6s %8s %9s %8s\n",
		"id", "name", "prio0", "prio", "disp", "cpu", "predict", "finish")
	for _, t := range r.Threads {
		fmt.Fprintf(w, "%-4d %-12s %6d %6d %6d %8d %9.1f %8d\n",
			t.ID, t.Name, t.InitialPriority, t.FinalPriority, t.Dispatches, t.CPUTicks, t.PredictedBurst, t.FinishTick)
	}
}
