package sched

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// TracePrinter writes one human-readable line per event.
type TracePrinter struct {
	w io.Writer
}

// NewTracePrinter returns a listener printing to w.
func NewTracePrinter(w io.Writer) *TracePrinter {
	return &TracePrinter{w: w}
}

func (p *TracePrinter) OnEvent(ev StatusEvent) {
	// an auxiliary function to center the event kind in the output
	center := func(str string, width int) string {
		spaces := int(float64(width-len(str)) / 2)
		return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
	}

	var detail string
	switch ev.Kind {
	case StatusEnqueue:
		detail = fmt.Sprintf("inserted into %s, priority=%d", ev.Level, ev.Priority)
	case StatusDequeue:
		detail = fmt.Sprintf("removed from %s, priority=%d", ev.Level, ev.Priority)
	case StatusPriority:
		detail = fmt.Sprintf("priority %d -> %d", ev.OldPriority, ev.Priority)
	case StatusDispatch:
		detail = fmt.Sprintf("replaces %04d which ran %d ticks", ev.PrevID, ev.RanTicks)
	case StatusPreempt:
		detail = "asked to yield"
	case StatusFinish:
		detail = "destroyed"
	case StatusIdle:
		detail = fmt.Sprintf("cpu idle for %d ticks", ev.RanTicks)
	}

	prefix := ""
	if tag := ev.Kind.Tag(); tag != "" {
		prefix = tag + " "
	}
	fmt.Fprintf(p.w, "%sTick: %07d [%s] => Thread: %04d, %s\n",
		prefix,
		ev.Tick,
		center(ev.Kind.String(), 12),
		ev.ThreadID,
		detail,
	)
}

// CSVRecorder logs every event as a CSV row.
type CSVRecorder struct {
	runID string
	f     *os.File
	w     *csv.Writer
	err   error
}

// NewCSVRecorder creates path and writes the header row.
func NewCSVRecorder(path, runID string) (*CSVRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace %s: %w", path, err)
	}
	w := csv.NewWriter(f)

	// write header
	if err := w.Write([]string{"run_id", "tick", "event", "thread_id", "level", "old_priority", "priority", "prev_id", "ran_ticks"}); err != nil {
		f.Close()
		return nil, fmt.Errorf("write trace header: %w", err)
	}
	return &CSVRecorder{runID: runID, f: f, w: w}, nil
}

// OnEvent buffers the row. Write errors are kept and reported by Close, so
// the scheduler never waits on disk.
func (r *CSVRecorder) OnEvent(ev StatusEvent) {
	if r.err != nil {
		return
	}
	r.err = r.w.Write([]string{
		r.runID,
		strconv.FormatInt(ev.Tick, 10),
		ev.Kind.String(),
		strconv.FormatUint(uint64(ev.ThreadID), 10),
		ev.Level.String(),
		strconv.Itoa(ev.OldPriority),
		strconv.Itoa(ev.Priority),
		strconv.FormatUint(uint64(ev.PrevID), 10),
		strconv.FormatInt(ev.RanTicks, 10),
	})
}

// Close flushes buffered rows and closes the file.
func (r *CSVRecorder) Close() error {
	r.w.Flush()
	if r.err == nil {
		r.err = r.w.Error()
	}
	if err := r.f.Close(); r.err == nil {
		r.err = err
	}
	return r.err
}

// LogListener logs every event at debug level. Kinds with a trace tag are
// logged as "<tag> <kind>", e.g. "[A] Enqueued".
func LogListener(log *zap.Logger) Listener {
	return ListenerFunc(func(ev StatusEvent) {
		msg := ev.Kind.String()
		if tag := ev.Kind.Tag(); tag != "" {
			msg = tag + " " + msg
		}
		if ce := log.Check(zap.DebugLevel, msg); ce != nil {
			ce.Write(
				zap.Int64("tick", ev.Tick),
				zap.Uint64("thread", uint64(ev.ThreadID)),
				zap.Stringer("level", ev.Level),
				zap.Int("old_priority", ev.OldPriority),
				zap.Int("priority", ev.Priority),
				zap.Uint64("prev", uint64(ev.PrevID)),
				zap.Int64("ran_ticks", ev.RanTicks),
			)
		}
	})
}
