// Package chain defines the mesh chain API consumed by this module and the
// guarded decorator every adapter writes through.
//
// A Chain is a navigable handle into the mesh graph. The module assumes
// nothing about the mesh beyond Get, Put and Once.
package chain

import (
	"errors"
	"strings"
)

// Ack is the acknowledgement delivered by the mesh for a put. A non-empty
// Err means the mesh rejected the write.
type Ack struct {
	Err string
}

// AckFunc receives the acknowledgement for a put. It may be invoked more
// than once, or never.
type AckFunc func(ack *Ack)

// Chain is a handle into the mesh graph.
type Chain interface {
	// Get navigates to a child node.
	Get(key string) Chain

	// Put writes value at the current node. A returned error means the
	// write never reached the mesh; otherwise delivery is reported through
	// ack.
	Put(value any, ack AckFunc) error

	// Once delivers a single snapshot of the current node. cb may receive
	// nil when the node is absent.
	Once(cb func(data any))
}

// Validator is the policy check run before every guarded put.
type Validator interface {
	ValidateWrite(path string, payload any) error
}

// ReadyChecker reports whether local hydration has completed.
type ReadyChecker interface {
	Ready() bool
}

// ErrNotHydrated is returned by a guarded put issued before the client's
// hydration barrier is ready.
var ErrNotHydrated = errors.New("chain: write before hydration barrier is ready")

// Guarded wraps a raw chain and tracks the path navigated so far. Put is
// validated against the tracked path before anything reaches the raw chain.
type Guarded struct {
	raw     Chain
	path    string
	guard   Validator
	barrier ReadyChecker
}

var _ Chain = (*Guarded)(nil)

// Guard wraps raw at path. path should end in "/" unless it is empty.
func Guard(raw Chain, barrier ReadyChecker, guard Validator, path string) *Guarded {
	if path != "" && !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return &Guarded{raw: raw, path: path, guard: guard, barrier: barrier}
}

// Path returns the tracked path, always ending in "/".
func (g *Guarded) Path() string {
	return g.path
}

// Get returns a guarded chain for the child key.
func (g *Guarded) Get(key string) Chain {
	return g.Child(key)
}

// Child is Get with a concrete return type.
func (g *Guarded) Child(key string) *Guarded {
	return &Guarded{
		raw:     g.raw.Get(key),
		path:    g.path + key + "/",
		guard:   g.guard,
		barrier: g.barrier,
	}
}

// Put validates value against the tracked path, then delegates unchanged.
// A policy failure is returned directly and ack is never called.
func (g *Guarded) Put(value any, ack AckFunc) error {
	if err := g.guard.ValidateWrite(g.path, value); err != nil {
		return err
	}
	if g.barrier != nil && !g.barrier.Ready() {
		return ErrNotHydrated
	}
	return g.raw.Put(value, ack)
}

// Once delegates to the raw chain.
func (g *Guarded) Once(cb func(data any)) {
	g.raw.Once(cb)
}
