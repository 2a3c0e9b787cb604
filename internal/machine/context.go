package machine

import "runtime"

// Context is the saved execution context of one simulated thread: the
// goroutine that runs it and the channel it parks on while switched out.
//
// Exactly one context is unparked at a time. Handing off the CPU is a send
// on the incoming context followed by a park of the outgoing one, so every
// switch is also a happens-before edge between the two goroutines.
type Context struct {
	resume chan struct{}
	dead   chan struct{}
	killed bool
}

// NewContext creates a parked context.
func NewContext() *Context {
	return &Context{
		resume: make(chan struct{}, 1), // a thread may switch to itself
		dead:   make(chan struct{}),
	}
}

// Start runs fn on a new goroutine the first time the context is resumed.
func (c *Context) Start(fn func()) {
	go func() {
		c.park()
		fn()
	}()
}

// Switch resumes in and parks out. It returns on out's goroutine when out is
// resumed again. If out is killed while parked, its goroutine exits instead
// and Switch never returns.
func Switch(out, in *Context) {
	in.resume <- struct{}{}
	out.park()
}

// Kill releases a parked context. Its goroutine unwinds without running
// any more simulated code. Killing twice is a no-op.
func (c *Context) Kill() {
	if c.killed {
		return
	}
	c.killed = true
	close(c.dead)
}

func (c *Context) park() {
	select {
	case <-c.resume:
	case <-c.dead:
		runtime.Goexit()
	}
}
