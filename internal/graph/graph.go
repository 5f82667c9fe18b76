// Package graph is an in-process implementation of the mesh chain API.
//
// A Graph is a tree of JSON objects addressed by path segments. It follows
// the mesh's merge semantics: putting an object merges its fields into the
// existing node, putting a scalar replaces the field. Snapshots carry a "_"
// metadata object at every level, like nodes read from a real peer.
//
// A Graph can journal every put into a storage.Adapter and restore itself
// from one, which is how a client hydrates its local replica.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/storage"
)

// Journal is the subset of storage.Adapter the graph persists through.
type Journal interface {
	Write(ctx context.Context, rec storage.Record) error
	Read(ctx context.Context, key string) (*storage.Record, error)
	Keys(ctx context.Context) ([]string, error)
}

type mode int

const (
	modeOnline mode = iota
	modeOffline
	modeFailing
)

// Graph is the node tree.
//
// Thread-safety: all methods are safe for concurrent use.
type Graph struct {
	mu       sync.RWMutex
	root     map[string]any
	mode     mode
	failMsg  string
	ackDelay time.Duration
	journal  Journal
	logger   *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithJournal persists every put into j.
func WithJournal(j Journal) Option {
	return func(g *Graph) { g.journal = j }
}

// WithLogger sets the logger used for journal failures.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) { g.logger = l }
}

// WithAckDelay delays every acknowledgement by d.
func WithAckDelay(d time.Duration) Option {
	return func(g *Graph) { g.ackDelay = d }
}

// New creates an empty graph that acknowledges every put.
func New(opts ...Option) *Graph {
	g := &Graph{root: make(map[string]any), logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Root returns the chain at the empty path.
func (g *Graph) Root() chain.Chain {
	return &node{g: g}
}

// SetOffline stops (or resumes) acknowledgements. Puts still apply.
func (g *Graph) SetOffline(offline bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if offline {
		g.mode = modeOffline
	} else {
		g.mode = modeOnline
	}
}

// FailWith makes every later put be rejected with msg. An empty msg
// restores normal acknowledgements.
func (g *Graph) FailWith(msg string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failMsg = msg
	if msg == "" {
		g.mode = modeOnline
	} else {
		g.mode = modeFailing
	}
}

// Snapshot returns a deep copy of the value at path, without metadata.
func (g *Graph) Snapshot(path string) any {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return clone(lookup(g.root, split(path)), "", false)
}

// Restore merges every journaled record back into the tree. Records are
// replayed oldest first; ties go to the shorter path so parents land before
// their children.
func (g *Graph) Restore(ctx context.Context, j Journal) error {
	keys, err := j.Keys(ctx)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	records := make([]*storage.Record, 0, len(keys))
	for _, key := range keys {
		rec, err := j.Read(ctx, key)
		if err != nil {
			return fmt.Errorf("restore %q: %w", key, err)
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	sort.SliceStable(records, func(a, b int) bool {
		if records[a].UpdatedAt != records[b].UpdatedAt {
			return records[a].UpdatedAt < records[b].UpdatedAt
		}
		return len(records[a].Key) < len(records[b].Key)
	})

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, rec := range records {
		g.apply(split(rec.Key), rec.Value)
	}
	return nil
}

// apply merges value at segs. Callers hold mu.
func (g *Graph) apply(segs []string, value any) {
	if len(segs) == 0 {
		if m, ok := value.(map[string]any); ok {
			merge(g.root, m)
		}
		return
	}
	parent := g.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := parent[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			parent[seg] = child
		}
		parent = child
	}
	last := segs[len(segs)-1]
	incoming, isObject := value.(map[string]any)
	if !isObject {
		parent[last] = value
		return
	}
	existing, ok := parent[last].(map[string]any)
	if !ok {
		existing = make(map[string]any)
		parent[last] = existing
	}
	merge(existing, incoming)
}

type node struct {
	g    *Graph
	segs []string
}

var _ chain.Chain = (*node)(nil)

func (n *node) Get(key string) chain.Chain {
	segs := make([]string, len(n.segs), len(n.segs)+1)
	copy(segs, n.segs)
	return &node{g: n.g, segs: append(segs, key)}
}

func (n *node) Path() string {
	if len(n.segs) == 0 {
		return ""
	}
	return strings.Join(n.segs, "/") + "/"
}

// Put merges value into the node and acknowledges asynchronously.
func (n *node) Put(value any, ack chain.AckFunc) error {
	decoded, err := toJSON(value)
	if err != nil {
		return fmt.Errorf("graph put %s: %w", n.Path(), err)
	}

	g := n.g
	g.mu.Lock()
	if g.mode == modeFailing {
		msg := g.failMsg
		g.mu.Unlock()
		g.deliver(ack, &chain.Ack{Err: msg})
		return nil
	}
	g.apply(n.segs, decoded)
	merged := clone(lookup(g.root, n.segs), "", false)
	m := g.mode
	g.mu.Unlock()

	if g.journal != nil {
		rec := storage.Record{Key: n.Path(), Value: merged}
		if err := g.journal.Write(context.Background(), rec); err != nil {
			g.logger.Warn("journal write failed",
				"component", "graph",
				"path", n.Path(),
				"error", err,
			)
		}
	}

	if m == modeOnline {
		g.deliver(ack, &chain.Ack{})
	}
	return nil
}

// Once delivers a snapshot of the node from a goroutine. Objects carry a
// "_" metadata entry naming their path.
func (n *node) Once(cb func(data any)) {
	n.g.mu.RLock()
	snap := clone(lookup(n.g.root, n.segs), strings.Join(n.segs, "/"), true)
	n.g.mu.RUnlock()
	go cb(snap)
}

func (g *Graph) deliver(ack chain.AckFunc, a *chain.Ack) {
	if ack == nil {
		return
	}
	delay := g.ackDelay
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		ack(a)
	}()
}

func split(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func lookup(root map[string]any, segs []string) any {
	var cur any = root
	for _, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return cur
}

// merge copies src into dst, merging nested objects.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if k == "_" {
			continue
		}
		incoming, isObject := v.(map[string]any)
		if !isObject {
			dst[k] = v
			continue
		}
		existing, ok := dst[k].(map[string]any)
		if !ok {
			existing = make(map[string]any)
			dst[k] = existing
		}
		merge(existing, incoming)
	}
}

// clone deep-copies v. With meta set, every object gains a "_" entry
// holding its soul.
func clone(v any, soul string, meta bool) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t)+1)
		for k, val := range t {
			child := soul + "/" + k
			if soul == "" {
				child = k
			}
			out[k] = clone(val, child, meta)
		}
		if meta {
			out["_"] = map[string]any{"#": soul}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = clone(val, soul, false)
		}
		return out
	default:
		return v
	}
}

// toJSON normalizes value to a decoded JSON tree.
func toJSON(value any) (any, error) {
	switch value.(type) {
	case nil, string, bool, float64:
		return value, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
