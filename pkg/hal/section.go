// Package hal models the on-chip peripherals of a small
// microcontroller: an interrupt-style critical section, a tick clock,
// a line-oriented serial channel and an analog conversion scheduler.
// The structures are fixed-size and allocation-free on the hot paths,
// and everything shared between the main loop and interrupt contexts
// is serialized through one Section per board.
package hal

import (
	"sync"
	"time"
)

// waitQuantum is the sleep between polls of a busy-wait helper.
const waitQuantum = 50 * time.Microsecond

// Policy selects how leaving an atomic section treats the interrupt
// state, mirroring the two hardware exit flavors.
type Policy int

const (
	// Restore re-establishes the interrupt state observed at the
	// matching Enter.
	Restore Policy = iota
	// ForceOn enables interrupts when the outermost nesting level
	// exits, regardless of the state on entry.
	ForceOn
)

// Section serializes the execution contexts of one board the way the
// global interrupt-enable flag serializes a microcontroller. Exactly
// one Section exists per board; every peripheral structure shared
// between main-line code and interrupt handlers is touched only while
// inside it.
type Section struct {
	gate sync.Mutex // held while any owner is inside

	mu    sync.Mutex // guards owner and depth
	owner *Owner
	depth int
}

// Owner identifies one execution context of the section: the main
// polling loop, or one simulated interrupt source. An Owner stands in
// for a thread identity and must not be shared between goroutines.
type Owner struct {
	sect *Section
	name string
}

// Guard witnesses that its owner is inside the section. Peripheral
// methods with an ISR suffix take a Guard: they are callable only from
// code that already holds the section. A Guard is valid until its
// Leave.
type Guard struct {
	owner  *Owner
	policy Policy
}

// NewSection creates a Section.
func NewSection() *Section {
	return &Section{}
}

// NewOwner mints an execution-context identity for this section.
// The name shows up in diagnostics only.
func (s *Section) NewOwner(name string) *Owner {
	return &Owner{sect: s, name: name}
}

// Name returns the diagnostic name of the owner.
func (o *Owner) Name() string {
	return o.name
}

// Section returns the section this owner belongs to.
func (o *Owner) Section() *Section {
	return o.sect
}

// Enter brings the owner into the section, blocking while a different
// owner is inside. Reentry by the same owner nests without blocking.
// Enter never fails.
func (o *Owner) Enter(policy Policy) Guard {
	s := o.sect
	s.mu.Lock()
	held := s.depth > 0 && s.owner == o
	s.mu.Unlock()
	if !held {
		s.gate.Lock()
	}
	s.mu.Lock()
	s.owner = o
	s.depth++
	s.mu.Unlock()
	return Guard{owner: o, policy: policy}
}

// Owner returns the execution context holding this guard.
func (g Guard) Owner() *Owner {
	return g.owner
}

// Leave exits the section. Only the transition to nesting depth zero
// releases it; with the section modeled as a lock, Restore and ForceOn
// coincide there, and a nested ForceOn does not release early.
func (g Guard) Leave() {
	s := g.owner.sect
	s.mu.Lock()
	if s.depth <= 0 || s.owner != g.owner {
		s.mu.Unlock()
		panic("hal: Leave without matching Enter")
	}
	s.depth--
	last := s.depth == 0
	if last {
		s.owner = nil
	}
	s.mu.Unlock()
	if last {
		s.gate.Unlock()
	}
}

// Nonatomic releases the section entirely, runs fn, then re-enters and
// restores the saved nesting depth. This is the interrupts-reenabled
// window inside an interrupt handler: the clock keeps ticking and other
// contexts can run while fn does.
func (g Guard) Nonatomic(fn func()) {
	s := g.owner.sect
	s.mu.Lock()
	if s.depth <= 0 || s.owner != g.owner {
		s.mu.Unlock()
		panic("hal: Nonatomic outside the section")
	}
	depth := s.depth
	s.depth = 0
	s.owner = nil
	s.mu.Unlock()
	s.gate.Unlock()

	fn()

	s.gate.Lock()
	s.mu.Lock()
	s.owner = g.owner
	s.depth = depth
	s.mu.Unlock()
}

// Held reports whether any owner is currently inside the section.
// Intended for tests and assertions.
func (s *Section) Held() bool {
	s.mu.Lock()
	held := s.depth > 0
	s.mu.Unlock()
	return held
}

// mustHold rejects guards minted by a different section.
func (s *Section) mustHold(g Guard) {
	if g.owner == nil || g.owner.sect != s {
		panic("hal: guard from a different section")
	}
}
