package stackmeter

import (
	"errors"
	"testing"
)

func TestEnter_ReturnsDepthBeforeIncrement(t *testing.T) {
	m := New(0)

	d0, exit0 := m.Enter()
	d1, exit1 := m.Enter()
	d2, exit2 := m.Enter()

	if d0 != 0 || d1 != 1 || d2 != 2 {
		t.Errorf("depths = %d, %d, %d; want 0, 1, 2", d0, d1, d2)
	}
	if m.Depth() != 3 {
		t.Errorf("Depth() = %d, want 3", m.Depth())
	}

	exit2()
	exit1()
	exit0()

	if m.Depth() != 0 {
		t.Errorf("Depth() after exits = %d, want 0", m.Depth())
	}
}

func TestEnter_StartsFromInitialDepth(t *testing.T) {
	m := New(5)

	d, exit := m.Enter()
	defer exit()

	if d != 5 {
		t.Errorf("Enter() depth = %d, want 5", d)
	}
}

func TestExit_IsIdempotent(t *testing.T) {
	m := New(0)

	_, exit := m.Enter()
	exit()
	exit()

	if m.Depth() != 0 {
		t.Errorf("Depth() = %d after double exit, want 0", m.Depth())
	}
}

func TestDo_RestoresDepthOnError(t *testing.T) {
	m := New(0)
	wantErr := errors.New("boom")

	err := m.Do(func(depth int) error {
		if depth != 0 {
			t.Errorf("depth = %d, want 0", depth)
		}
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("Do() error = %v, want %v", err, wantErr)
	}
	if m.Depth() != 0 {
		t.Errorf("Depth() = %d, want 0", m.Depth())
	}
}

func TestDo_RestoresDepthOnPanic(t *testing.T) {
	m := New(0)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = m.Do(func(int) error {
			panic("boom")
		})
	}()

	if m.Depth() != 0 {
		t.Errorf("Depth() = %d after panic, want 0", m.Depth())
	}
}

func TestDo_Nested(t *testing.T) {
	m := New(0)
	var seen []int

	var recurse func(n int) error
	recurse = func(n int) error {
		return m.Do(func(depth int) error {
			seen = append(seen, depth)
			if n > 0 {
				return recurse(n - 1)
			}
			return nil
		})
	}

	if err := recurse(3); err != nil {
		t.Fatalf("recurse() error = %v", err)
	}

	want := []int{0, 1, 2, 3}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %d, want %d", i, seen[i], want[i])
		}
	}
	if m.Depth() != 0 {
		t.Errorf("Depth() = %d, want 0", m.Depth())
	}
}
