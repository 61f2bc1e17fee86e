package repetition

import (
	"reflect"
	"testing"
)

func TestWindow_PushEvictsOldest(t *testing.T) {
	w := NewWindow(3)

	for _, v := range []float64{1, 2, 3} {
		if _, ok := w.Push(v); ok {
			t.Fatalf("Push(%v) evicted before window was full", v)
		}
	}
	if !w.Full() {
		t.Fatal("window should be full after 3 pushes")
	}

	evicted, ok := w.Push(4)
	if !ok || evicted != 1 {
		t.Errorf("Push(4) evicted (%v, %v), want (1, true)", evicted, ok)
	}

	if got := w.Values(nil); !reflect.DeepEqual(got, []float64{2, 3, 4}) {
		t.Errorf("Values() = %v, want [2 3 4]", got)
	}
	if w.at(0) != 2 || w.at(2) != 4 {
		t.Errorf("at(0)=%v at(2)=%v, want 2 and 4", w.at(0), w.at(2))
	}
	if w.Len() != 3 || w.Cap() != 3 {
		t.Errorf("Len()=%d Cap()=%d, want 3 and 3", w.Len(), w.Cap())
	}
}

func TestWindow_Reset(t *testing.T) {
	w := NewWindow(2)
	w.Push(1)
	w.Push(2)
	w.Push(3)

	w.Reset()

	if w.Len() != 0 || w.Full() {
		t.Errorf("window not empty after Reset: len=%d", w.Len())
	}

	w.Push(5)
	if got := w.Values(nil); !reflect.DeepEqual(got, []float64{5}) {
		t.Errorf("Values() = %v, want [5]", got)
	}
}

func TestWindow_MinimumCapacity(t *testing.T) {
	w := NewWindow(0)
	if w.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1", w.Cap())
	}
}

func TestWindow_IndexOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("at() should panic for an out-of-range index")
		}
	}()

	w := NewWindow(2)
	w.Push(1)
	w.at(1)
}
