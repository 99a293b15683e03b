// Package stackmeter counts how deeply a guarded operation is currently nested.
//
// A Meter is meant for single-threaded cooperative code that needs to tell a
// top-level call (depth 0) apart from a reentrant one (depth > 0), such as a
// module reload that recursively reloads the modules it includes. It performs
// no locking.
package stackmeter

// Meter tracks the reentrancy depth of one guarded resource.
type Meter struct {
	depth int
}

// New returns a Meter starting at the given depth.
func New(depth int) *Meter {
	return &Meter{depth: depth}
}

// Depth returns the number of currently active entries.
func (m *Meter) Depth() int {
	return m.depth
}

// Enter increments the depth and returns the value observed before the
// increment together with an exit function that restores it.
// Calling exit more than once has no further effect.
func (m *Meter) Enter() (depth int, exit func()) {
	depth = m.depth
	m.depth++

	exited := false
	return depth, func() {
		if exited {
			return
		}
		exited = true
		m.depth--
	}
}

// Do runs fn inside an Enter/exit pair. The depth is restored when fn returns
// an error and when it panics; a panic keeps propagating.
func (m *Meter) Do(fn func(depth int) error) error {
	depth, exit := m.Enter()
	defer exit()
	return fn(depth)
}
