package machine

import "encoding/binary"

// StackFencepost is written at the far end of every stack. If it changes,
// the thread ran off its stack.
const StackFencepost uint32 = 0xdedbeef

// Stack is a thread's execution stack. It grows down, so the fence post
// sits at the lowest address.
type Stack struct {
	mem []byte
}

// NewStack allocates a stack of size bytes with the fence post in place.
func NewStack(size int) *Stack {
	if size < 4 {
		size = 4
	}
	s := &Stack{mem: make([]byte, size)}
	binary.LittleEndian.PutUint32(s.mem, StackFencepost)
	return s
}

// Size returns the stack size in bytes.
func (s *Stack) Size() int { return len(s.mem) }

// Overflowed reports whether the fence post has been overwritten.
func (s *Stack) Overflowed() bool {
	return binary.LittleEndian.Uint32(s.mem) != StackFencepost
}

// Smash overwrites the fence post, as a runaway thread would.
func (s *Stack) Smash() {
	binary.LittleEndian.PutUint32(s.mem, 0)
}
