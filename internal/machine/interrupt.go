package machine

// IntStatus is the interrupt level of the simulated CPU.
type IntStatus int

const (
	IntOff IntStatus = iota
	IntOn
)

func (s IntStatus) String() string {
	if s == IntOn {
		return "on"
	}
	return "off"
}

// Interrupt models the CPU interrupt enable flag. The simulated machine has
// a single CPU, so the flag is only ever touched by the thread holding it.
type Interrupt struct {
	level IntStatus
}

// NewInterrupt returns a controller in the boot state: interrupts off.
func NewInterrupt() *Interrupt {
	return &Interrupt{level: IntOff}
}

// Level returns the current interrupt level.
func (i *Interrupt) Level() IntStatus { return i.level }

// Enabled reports whether interrupts are on.
func (i *Interrupt) Enabled() bool { return i.level == IntOn }

// SetLevel changes the interrupt level and returns the previous one, so
// callers can restore it.
func (i *Interrupt) SetLevel(level IntStatus) IntStatus {
	old := i.level
	i.level = level
	return old
}
