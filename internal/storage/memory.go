package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Memory is the in-process fallback backend.
//
// Thread-safety: all methods are safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	signal  Signal
	now     func() time.Time
	closed  bool
}

var _ Adapter = (*Memory)(nil)

// ErrClosed is returned by operations on a closed adapter.
var ErrClosed = errors.New("storage: adapter closed")

// NewMemory creates an empty memory backend.
func NewMemory(signal Signal, now func() time.Time) *Memory {
	return &Memory{records: make(map[string]Record), signal: signal, now: now}
}

// Backend returns BackendMemory.
func (m *Memory) Backend() string { return BackendMemory }

// Hydrate has nothing to load and releases the barrier immediately.
func (m *Memory) Hydrate(ctx context.Context) error {
	if m.signal != nil {
		m.signal.MarkReady()
	}
	return nil
}

// Write replaces the record at rec.Key. The value is copied, so later
// changes to the caller's maps do not reach the store.
func (m *Memory) Write(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	rec = stamp(rec, m.now)
	rec.Value = cloneValue(rec.Value)
	m.records[rec.Key] = rec
	return nil
}

// Read returns a copy of the record at key, or nil.
func (m *Memory) Read(ctx context.Context, key string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	rec.Value = cloneValue(rec.Value)
	return &rec, nil
}

// Keys returns every stored key in ascending order.
func (m *Memory) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close drops all records.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.records = nil
	return nil
}

// cloneValue deep-copies the JSON containers of v. Scalars are shared.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
