package sched

import (
	"testing"
)

func names(ts []*Thread) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReadyQueueOrder(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		order OrderKey
		want  []string
	}{
		{name: "completion estimate", order: ByCompletionEstimate, want: []string{"c", "a", "d", "b"}},
		{name: "priority", order: ByPriority, want: []string{"b", "a", "d", "c"}},
		{name: "fifo", order: FIFO, want: []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q := newReadyQueue(LevelL1, tt.order)
			for _, th := range []*Thread{
				{ID: 1, Name: "a", Priority: 80, CompletionEstimate: 20},
				{ID: 2, Name: "b", Priority: 90, CompletionEstimate: 40},
				{ID: 3, Name: "c", Priority: 60, CompletionEstimate: 10},
				{ID: 4, Name: "d", Priority: 80, CompletionEstimate: 20},
			} {
				q.Insert(th)
			}
			if got := names(q.Threads()); !equal(got, tt.want) {
				t.Fatalf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadyQueueRemove(t *testing.T) {
	t.Parallel()
	q := newReadyQueue(LevelL2, ByPriority)
	a := &Thread{ID: 1, Name: "a", Priority: 70}
	b := &Thread{ID: 2, Name: "b", Priority: 70}
	c := &Thread{ID: 3, Name: "c", Priority: 70}
	q.Insert(a)
	q.Insert(b)
	q.Insert(c)

	if !q.Remove(b) {
		t.Fatal("Remove(b) = false")
	}
	if b.Level() != LevelNone {
		t.Fatalf("removed thread still on %s", b.Level())
	}
	if q.Remove(b) {
		t.Fatal("second Remove(b) = true")
	}
	if got := names(q.Threads()); !equal(got, []string{"a", "c"}) {
		t.Fatalf("order = %v", got)
	}

	head, ok := q.RemoveFront()
	if !ok || head != a {
		t.Fatalf("RemoveFront = %v, %v", head, ok)
	}
	if q.Len() != 1 || q.IsEmpty() {
		t.Fatalf("Len = %d", q.Len())
	}
}

func TestReadyQueueReorderKeepsSequence(t *testing.T) {
	t.Parallel()
	q := newReadyQueue(LevelL2, ByPriority)
	a := &Thread{ID: 1, Name: "a", Priority: 60}
	b := &Thread{ID: 2, Name: "b", Priority: 70}
	c := &Thread{ID: 3, Name: "c", Priority: 70}
	q.Insert(a)
	q.Insert(b)
	q.Insert(c)

	// a catches up with b and c and, being older, goes ahead of them
	a.Priority = 70
	q.Reorder(a)
	if got := names(q.Threads()); !equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("order = %v, want [a b c]", got)
	}

	// a key change without Reorder is not seen
	c.Priority = 99
	if got := names(q.Threads()); !equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("order = %v, want [a b c]", got)
	}
	q.Reorder(c)
	if got := names(q.Threads()); !equal(got, []string{"c", "a", "b"}) {
		t.Fatalf("order = %v, want [c a b]", got)
	}
}

func TestReadyQueueSnapshotSurvivesMutation(t *testing.T) {
	t.Parallel()
	q := newReadyQueue(LevelL3, FIFO)
	for i := 1; i <= 5; i++ {
		q.Insert(&Thread{ID: ThreadID(i), Name: string(rune('a' + i - 1))})
	}
	snap := q.Threads()
	for _, th := range snap {
		q.Remove(th)
	}
	if !q.IsEmpty() || len(snap) != 5 {
		t.Fatalf("Len = %d, snapshot = %d", q.Len(), len(snap))
	}
}
