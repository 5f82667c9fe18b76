// Package adapter implements the domain read/write operations on top of a
// client: news, synthesis, analysis, aggregates, sentiment, bridge, forum,
// messaging, docs and the directory.
//
// Every write validates its payload against the artifact's schema, scans
// it for forbidden keys, derives the path from the validated fields and
// puts it through the guarded chain. Reads never fail: an absent, invalid
// or undecryptable node reads as nil.
//
// Data under the user's own graph ("~<pub>/...") is sealed whole with the
// device identity before it is written.
package adapter

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/client"
	"github.com/roach88/vhmesh/internal/mesh"
	"github.com/roach88/vhmesh/internal/schema"
)

// write sanitizes v as kind, resolves the target node from the decoded
// value and puts the canonical node there.
func write[T any](ctx context.Context, c *client.Client, kind schema.Kind, policy *mesh.KeyPolicy, v any, at func(*T) (chain.Chain, error)) (*T, error) {
	env := c.Env()
	out := new(T)
	node, err := env.Sanitize(kind, policy, v, out)
	if err != nil {
		return nil, err
	}
	target, err := at(out)
	if err != nil {
		return nil, err
	}
	if err := c.Prepare(ctx); err != nil {
		return nil, err
	}
	if err := env.Put(target, node); err != nil {
		return nil, err
	}
	return out, nil
}

// writeSealed is write for the user graph: the canonical node is sealed
// with the device identity and the envelope is put instead.
func writeSealed[T any](ctx context.Context, c *client.Client, kind schema.Kind, policy *mesh.KeyPolicy, v any, at func(*T) (chain.Chain, error)) (*T, error) {
	env := c.Env()
	out := new(T)
	node, err := env.Sanitize(kind, policy, v, out)
	if err != nil {
		return nil, err
	}
	target, err := at(out)
	if err != nil {
		return nil, err
	}
	sealed, err := c.Identity().Seal(node)
	if err != nil {
		return nil, fmt.Errorf("seal %s: %w", kind, err)
	}
	if err := c.Prepare(ctx); err != nil {
		return nil, err
	}
	if err := env.Put(target, sealed); err != nil {
		return nil, err
	}
	return out, nil
}

// read snapshots node and decodes it as kind, or returns nil.
func read[T any](ctx context.Context, c *client.Client, node chain.Chain, kind schema.Kind, policy *mesh.KeyPolicy) *T {
	out := new(T)
	if !c.Env().Read(ctx, node, kind, policy, out) {
		return nil
	}
	return out
}

// readSealed snapshots node, opens it with the device identity and
// decodes it as kind, or returns nil.
func readSealed[T any](ctx context.Context, c *client.Client, node chain.Chain, kind schema.Kind, policy *mesh.KeyPolicy) *T {
	return openSealed[T](c, c.Env().ReadRaw(ctx, node), kind, policy)
}

func openSealed[T any](c *client.Client, raw any, kind schema.Kind, policy *mesh.KeyPolicy) *T {
	if raw == nil {
		return nil
	}
	var node map[string]any
	if err := c.Identity().Open(raw, &node); err != nil {
		c.Logger().Debug("dropping unreadable sealed node",
			"component", "adapter",
			"kind", kind,
			"error", err,
		)
		return nil
	}
	out := new(T)
	if !c.Env().Decode(node, kind, policy, out) {
		return nil
	}
	return out
}

// listSealed opens and decodes every child of node, dropping the ones that
// fail.
func listSealed[T any](ctx context.Context, c *client.Client, node chain.Chain, kind schema.Kind, policy *mesh.KeyPolicy) []T {
	children := c.Env().Children(ctx, node)
	out := make([]T, 0, len(children))
	for _, key := range mesh.SortedKeys(children) {
		if v := openSealed[T](c, children[key], kind, policy); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// put writes an already-checked value at node after hydration.
func put(ctx context.Context, c *client.Client, node chain.Chain, value any) error {
	if err := c.Prepare(ctx); err != nil {
		return err
	}
	return c.Env().Put(node, value)
}

func sortStable[T any](s []T, less func(a, b T) bool) {
	sort.SliceStable(s, func(i, j int) bool { return less(s[i], s[j]) })
}
