package job

import (
	"fmt"
	"strconv"
	"strings"
)

// StepKind is what a thread does for one step of its program.
type StepKind int

const (
	StepCPU   StepKind = iota // compute for Ticks ticks
	StepSleep                 // block for Ticks ticks
)

func (k StepKind) String() string {
	switch k {
	case StepCPU:
		return "cpu"
	case StepSleep:
		return "sleep"
	default:
		return "unknown"
	}
}

// Step is one CPU burst or one blocking wait.
type Step struct {
	Kind  StepKind
	Ticks int64
}

// CPU returns a step that keeps the CPU busy for ticks.
func CPU(ticks int64) Step { return Step{Kind: StepCPU, Ticks: ticks} }

// Sleep returns a step that blocks the thread for ticks.
func Sleep(ticks int64) Step { return Step{Kind: StepSleep, Ticks: ticks} }

func (s Step) String() string {
	return fmt.Sprintf("%s %d", s.Kind, s.Ticks)
}

// Program is the sequence of steps a simulated thread executes.
type Program []Step

// CPUTicks returns the total compute demand of the program.
func (p Program) CPUTicks() int64 {
	var n int64
	for _, s := range p {
		if s.Kind == StepCPU {
			n += s.Ticks
		}
	}
	return n
}

// ParseStep parses "cpu 300" or "sleep 40".
func ParseStep(raw string) (Step, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	if len(fields) != 2 {
		return Step{}, fmt.Errorf("invalid step %q: want \"<cpu|sleep> <ticks>\"", raw)
	}

	ticks, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Step{}, fmt.Errorf("invalid step %q: %w", raw, err)
	}
	if ticks <= 0 {
		return Step{}, fmt.Errorf("invalid step %q: ticks must be positive", raw)
	}

	switch fields[0] {
	case "cpu", "run":
		return CPU(ticks), nil
	case "sleep", "io":
		return Sleep(ticks), nil
	default:
		return Step{}, fmt.Errorf("invalid step %q: unknown kind %q", raw, fields[0])
	}
}

// ParseProgram parses every step of a program, stopping at the first error.
func ParseProgram(raw []string) (Program, error) {
	prog := make(Program, 0, len(raw))
	for i, r := range raw {
		s, err := ParseStep(r)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		prog = append(prog, s)
	}
	return prog, nil
}
