package sched

// Error describes an unrecoverable scheduler fault. Faults are declared as
// package variables so callers can compare against them after a halt.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return "[" + e.Module + "] " + e.Message
}

var (
	ErrInterruptsEnabled = &Error{Module: "sched", Message: "scheduler entered with interrupts enabled"}
	ErrDestroySlotBusy   = &Error{Module: "sched", Message: "deferred destruction slot already occupied"}
	ErrStackOverflow     = &Error{Module: "sched", Message: "stack overflow detected on outgoing thread"}
	ErrNoCurrentThread   = &Error{Module: "sched", Message: "dispatch without a current thread"}
)

// haltFn stops the kernel. Calls to it never return. Tests replace it.
var haltFn = func(err *Error) {
	panic(err)
}
