// Package dataflow implements a small sparse fixpoint solver over a
// join-semilattice of facts. Clients model their problem as nodes holding
// facts plus constraint edges, pin the facts they know, and ask for the
// least solution.
//
// The solver is direction-agnostic: a forward analysis adds edges from
// producers to consumers, a backward analysis adds the reversed edges.
package dataflow

import (
	"github.com/pkg/errors"
)

// Lattice defines a join-semilattice over facts of type E. Join must be
// commutative, associative and idempotent, with Bottom as identity; the
// solver only terminates for monotone lattices of finite height.
type Lattice[E comparable] interface {
	Bottom() E
	Join(a, b E) E
}

// Solver computes the least fixpoint of the constraints
//
//	state(v) >= Join over every edge (u, v) of state(u)
//	state(k) >= fact          for every Pin(k, fact)
//
// over nodes of type K. The zero Solver is unusable; use New.
type Solver[K comparable, E comparable] struct {
	lattice Lattice[E]
	states  map[K]E
	succs   map[K][]K

	work   []K
	inWork map[K]bool
}

// New returns an empty solver over the given lattice.
func New[K comparable, E comparable](lattice Lattice[E]) *Solver[K, E] {
	return &Solver[K, E]{
		lattice: lattice,
		states:  make(map[K]E),
		succs:   make(map[K][]K),
		inWork:  make(map[K]bool),
	}
}

// Pin joins fact into the node's state, seeding the propagation.
func (s *Solver[K, E]) Pin(node K, fact E) {
	s.raise(node, fact)
}

// AddEdge records the constraint state(to) >= state(from).
func (s *Solver[K, E]) AddEdge(from, to K) {
	s.succs[from] = append(s.succs[from], to)
	// A late edge from an already-raised node must still propagate.
	if s.state(from) != s.lattice.Bottom() {
		s.enqueue(from)
	}
}

// State returns the node's current fact, Bottom when never raised.
func (s *Solver[K, E]) State(node K) E {
	return s.state(node)
}

// Solve propagates facts until fixpoint. maxSteps bounds the number of
// worklist pops; exceeding it means the lattice is not of finite height (or
// Join is not monotone) and returns an error, leaving the partial states in
// place for the caller's fallback.
func (s *Solver[K, E]) Solve(maxSteps int) error {
	for steps := 0; len(s.work) > 0; steps++ {
		if steps >= maxSteps {
			return errors.Errorf("dataflow: no fixpoint after %d steps (%d nodes pending)",
				maxSteps, len(s.work))
		}
		node := s.work[0]
		s.work = s.work[1:]
		s.inWork[node] = false

		fact := s.state(node)
		for _, succ := range s.succs[node] {
			s.raise(succ, fact)
		}
	}
	return nil
}

func (s *Solver[K, E]) state(node K) E {
	if fact, found := s.states[node]; found {
		return fact
	}
	return s.lattice.Bottom()
}

// raise joins fact into the node's state and enqueues it on change.
func (s *Solver[K, E]) raise(node K, fact E) {
	old := s.state(node)
	joined := s.lattice.Join(old, fact)
	if joined == old {
		return
	}
	s.states[node] = joined
	s.enqueue(node)
}

func (s *Solver[K, E]) enqueue(node K) {
	if s.inWork[node] {
		return
	}
	s.inWork[node] = true
	s.work = append(s.work, node)
}
