package testutil

import (
	"sync"
	"time"

	"github.com/roach88/vhmesh/internal/chain"
)

// PutCall records one put that reached a RecordingChain.
type PutCall struct {
	Path  string
	Value any
}

// AckPolicy decides how a RecordingChain acknowledges a put.
type AckPolicy func(path string, ack chain.AckFunc)

// AckImmediately acknowledges every put synchronously without error.
func AckImmediately(_ string, ack chain.AckFunc) {
	if ack != nil {
		ack(&chain.Ack{})
	}
}

// AckNever drops every acknowledgement.
func AckNever(string, chain.AckFunc) {}

// AckWithError rejects every put with msg.
func AckWithError(msg string) AckPolicy {
	return func(_ string, ack chain.AckFunc) {
		if ack != nil {
			ack(&chain.Ack{Err: msg})
		}
	}
}

// AckAfter acknowledges every put from a goroutine after d, followed by a
// duplicate ack carrying an error. Callers that settle once never see the
// duplicate.
func AckAfter(d time.Duration) AckPolicy {
	return func(_ string, ack chain.AckFunc) {
		if ack == nil {
			return
		}
		go func() {
			time.Sleep(d)
			ack(&chain.Ack{})
			ack(&chain.Ack{Err: "duplicate ack"})
		}()
	}
}

// RecordingChain is an in-memory chain.Chain that records every put and
// serves reads from seeded data.
//
// Thread-safety: every node shares one recorder guarded by a mutex.
type RecordingChain struct {
	path string
	rec  *recorder
}

type recorder struct {
	mu     sync.Mutex
	puts   []PutCall
	data   map[string]any
	policy AckPolicy
}

var _ chain.Chain = (*RecordingChain)(nil)

// NewRecordingChain creates a root chain at the empty path that
// acknowledges immediately.
func NewRecordingChain() *RecordingChain {
	return &RecordingChain{rec: &recorder{
		data:   make(map[string]any),
		policy: AckImmediately,
	}}
}

// Get returns the child node.
func (c *RecordingChain) Get(key string) chain.Chain {
	return &RecordingChain{path: c.path + key + "/", rec: c.rec}
}

// Put records the write, stores value for later reads and applies the ack
// policy.
func (c *RecordingChain) Put(value any, ack chain.AckFunc) error {
	c.rec.mu.Lock()
	c.rec.puts = append(c.rec.puts, PutCall{Path: c.path, Value: value})
	c.rec.data[c.path] = value
	policy := c.rec.policy
	c.rec.mu.Unlock()

	policy(c.path, ack)
	return nil
}

// Once delivers whatever is stored at this node, or nil.
func (c *RecordingChain) Once(cb func(data any)) {
	c.rec.mu.Lock()
	data := c.rec.data[c.path]
	c.rec.mu.Unlock()
	cb(data)
}

// Path returns the node's path.
func (c *RecordingChain) Path() string {
	return c.path
}

// SetAckPolicy replaces the ack policy for every node of this chain.
func (c *RecordingChain) SetAckPolicy(p AckPolicy) {
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()
	c.rec.policy = p
}

// Seed stores data at path without recording a put.
func (c *RecordingChain) Seed(path string, data any) {
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()
	c.rec.data[path] = data
}

// Puts returns a copy of every recorded put in order.
func (c *RecordingChain) Puts() []PutCall {
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()
	out := make([]PutCall, len(c.rec.puts))
	copy(out, c.rec.puts)
	return out
}
