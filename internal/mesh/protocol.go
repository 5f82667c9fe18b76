package mesh

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/schema"
)

// MetaKey is the key the mesh uses for node metadata.
const MetaKey = "_"

// StripMeta returns v without its top-level metadata key. Non-objects are
// returned unchanged. The input is never modified.
func StripMeta(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if _, has := m[MetaKey]; !has {
		return m
	}
	out := make(map[string]any, len(m)-1)
	for k, val := range m {
		if k != MetaKey {
			out[k] = val
		}
	}
	return out
}

// StripMetaDeep returns a copy of v with metadata removed from every nested
// object. Lists are copied element-wise.
func StripMetaDeep(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if k != MetaKey {
				out[k] = StripMetaDeep(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = StripMetaDeep(val)
		}
		return out
	}
	return v
}

// ToNode converts a struct or map into a decoded JSON object.
func ToNode(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("to node: %w", err)
	}
	var node map[string]any
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("to node: %w", err)
	}
	return node, nil
}

// Env carries what the protocol needs from a client.
type Env struct {
	Schemas     *schema.Registry
	AckTimeout  time.Duration
	ReadTimeout time.Duration
	Logger      *slog.Logger
}

// Write validates v as kind, scans the canonical node with policy and puts
// it at c. It returns the node that was written.
func (e Env) Write(c chain.Chain, kind schema.Kind, policy *KeyPolicy, v any) (map[string]any, error) {
	node, err := e.Sanitize(kind, policy, v, nil)
	if err != nil {
		return nil, err
	}
	if err := e.Put(c, node); err != nil {
		return nil, err
	}
	return node, nil
}

// Sanitize validates v as kind and scans the canonical node with policy.
// When out is non-nil the node is also decoded into it.
func (e Env) Sanitize(kind schema.Kind, policy *KeyPolicy, v any, out any) (map[string]any, error) {
	node, err := e.Schemas.Validate(kind, v)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(node); err != nil {
		return nil, err
	}
	if out != nil {
		data, err := json.Marshal(node)
		if err != nil {
			return nil, fmt.Errorf("sanitize %s: %w", kind, err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("sanitize %s: %w", kind, err)
		}
	}
	return node, nil
}

// Put writes value at c and waits for the acknowledgement.
func (e Env) Put(c chain.Chain, value any) error {
	return chain.PutWithAck(c, value, e.AckTimeout, e.logger())
}

// ReadRaw takes a single snapshot of c with metadata stripped. It returns
// nil when the node is absent or the read timed out.
func (e Env) ReadRaw(ctx context.Context, c chain.Chain) any {
	raw := chain.ReadOnce(ctx, c, e.ReadTimeout)
	if raw == nil {
		return nil
	}
	return StripMeta(raw)
}

// Read snapshots c and decodes it into out. It reports false when the node
// is absent or fails the policy or schema check.
func (e Env) Read(ctx context.Context, c chain.Chain, kind schema.Kind, policy *KeyPolicy, out any) bool {
	return e.Decode(e.ReadRaw(ctx, c), kind, policy, out)
}

// Decode checks an already-read node and decodes it into out.
func (e Env) Decode(raw any, kind schema.Kind, policy *KeyPolicy, out any) bool {
	raw = StripMetaDeep(raw)
	if raw == nil {
		return false
	}
	if err := policy.Check(raw); err != nil {
		e.logger().Debug("dropping node with forbidden fields",
			"component", "mesh",
			"kind", kind,
			"error", err,
		)
		return false
	}
	if err := e.Schemas.Decode(kind, raw, out); err != nil {
		e.logger().Debug("dropping invalid node",
			"component", "mesh",
			"kind", kind,
			"error", err,
		)
		return false
	}
	return true
}

// Children snapshots c and returns its child nodes keyed by name, metadata
// excluded.
func (e Env) Children(ctx context.Context, c chain.Chain) map[string]any {
	m, ok := e.ReadRaw(ctx, c).(map[string]any)
	if !ok {
		return nil
	}
	return m
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// List decodes every child of c as kind, drops the ones that fail, and
// sorts the rest with less.
func List[T any](ctx context.Context, e Env, c chain.Chain, kind schema.Kind, policy *KeyPolicy, less func(a, b T) bool) []T {
	children := e.Children(ctx, c)
	out := make([]T, 0, len(children))
	for _, key := range SortedKeys(children) {
		var item T
		if e.Decode(children[key], kind, policy, &item) {
			out = append(out, item)
		}
	}
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
