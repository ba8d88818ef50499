package queue

import "testing"

func TestQueueFIFOOrder(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}

	for i := 0; i < 5; i++ {
		v, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop %d: expected ok", i)
		}
		if v != i {
			t.Errorf("Pop %d: got %d, want %d", i, v, i)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue: expected ok=false")
	}
}

func TestQueueLen(t *testing.T) {
	q := New[string]()
	if q.Len() != 0 {
		t.Errorf("Len on empty queue: got %d, want 0", q.Len())
	}

	q.Push("a")
	q.Push("b")
	if q.Len() != 2 {
		t.Errorf("Len: got %d, want 2", q.Len())
	}

	q.Pop()
	if q.Len() != 1 {
		t.Errorf("Len after Pop: got %d, want 1", q.Len())
	}
}

func TestQueueDrain(t *testing.T) {
	q := New[int]()
	for i := 0; i < 4; i++ {
		q.Push(i)
	}

	var drained []int
	q.Drain(func(v int) { drained = append(drained, v) })

	if len(drained) != 4 {
		t.Fatalf("Drain: got %d items, want 4", len(drained))
	}
	for i, v := range drained {
		if v != i {
			t.Errorf("Drain[%d]: got %d, want %d", i, v, i)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len after Drain: got %d, want 0", q.Len())
	}
}

func TestQueueCompaction(t *testing.T) {
	q := New[int]()
	for i := 0; i < 100; i++ {
		q.Push(i)
	}
	for i := 0; i < 90; i++ {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Fatalf("Pop %d: got (%d, %v)", i, v, ok)
		}
	}
	if q.Len() != 10 {
		t.Fatalf("Len after partial drain: got %d, want 10", q.Len())
	}
	for i := 90; i < 100; i++ {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Fatalf("Pop %d: got (%d, %v)", i, v, ok)
		}
	}
}
