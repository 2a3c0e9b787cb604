package sched

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// OrderKey maps a thread to its position in a ready queue. Smaller keys are
// served first; equal keys are served in insertion order.
type OrderKey func(t *Thread) float64

// ByCompletionEstimate orders the real-time tier, shortest remaining first.
func ByCompletionEstimate(t *Thread) float64 { return t.CompletionEstimate }

// ByPriority orders the priority tier, highest priority first.
func ByPriority(t *Thread) float64 { return -float64(t.Priority) }

// FIFO orders purely by insertion.
func FIFO(*Thread) float64 { return 0 }

// queueKey is used as a key in the red-black tree. The sequence number is
// unique per queue, so every key is distinct and ties fall back to
// insertion order.
type queueKey struct {
	order float64
	seq   uint64
}

func compareKeys(a, b any) int {
	ka, kb := a.(queueKey), b.(queueKey)
	switch {
	case ka.order < kb.order:
		return -1
	case ka.order > kb.order:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}

// readyQueue is an ordered list of ready threads for one tier.
type readyQueue struct {
	level Level
	order OrderKey
	tree  *redblacktree.Tree
	seq   uint64
}

func newReadyQueue(level Level, order OrderKey) *readyQueue {
	return &readyQueue{
		level: level,
		order: order,
		tree:  redblacktree.NewWith(compareKeys),
	}
}

// Insert links t in sorted position. The key is captured now; later changes
// to the thread's fields do not move it until Reorder is called.
func (q *readyQueue) Insert(t *Thread) {
	q.seq++
	t.key = queueKey{order: q.order(t), seq: q.seq}
	t.level = q.level
	q.tree.Put(t.key, t)
}

// Remove unlinks t. It reports false if t is not a member of this queue.
func (q *readyQueue) Remove(t *Thread) bool {
	if t.level != q.level {
		return false
	}
	q.tree.Remove(t.key)
	t.level = LevelNone
	return true
}

// RemoveFront unlinks and returns the head of the queue.
func (q *readyQueue) RemoveFront() (*Thread, bool) {
	node := q.tree.Left()
	if node == nil {
		return nil, false
	}
	t := node.Value.(*Thread)
	q.tree.Remove(node.Key)
	t.level = LevelNone
	return t, true
}

// Reorder recomputes t's key after a field it is ordered by has changed.
// The insertion sequence is kept, so t does not lose its place among equals.
func (q *readyQueue) Reorder(t *Thread) {
	if t.level != q.level {
		return
	}
	q.tree.Remove(t.key)
	t.key.order = q.order(t)
	q.tree.Put(t.key, t)
}

func (q *readyQueue) Len() int      { return q.tree.Size() }
func (q *readyQueue) IsEmpty() bool { return q.tree.Empty() }

// Threads returns a snapshot of the members in service order. Callers may
// mutate the queue while walking the snapshot.
func (q *readyQueue) Threads() []*Thread {
	out := make([]*Thread, 0, q.tree.Size())
	it := q.tree.Iterator()
	for it.Next() {
		out = append(out, it.Value().(*Thread))
	}
	return out
}
