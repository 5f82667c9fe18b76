package adapter

import (
	"context"

	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/client"
	"github.com/roach88/vhmesh/internal/mesh"
	"github.com/roach88/vhmesh/internal/schema"
)

func directoryChain(c *client.Client, nullifier string) (*chain.Guarded, error) {
	n, err := mesh.RequireID(nullifier, "nullifier")
	if err != nil {
		return nil, err
	}
	return c.Mesh().Child("directory").Child(n), nil
}

// PublishDirectoryEntry announces this device under nullifier at
// vh/directory/<nullifier>/. The device keys come from the client; the
// registration time is kept across republishing.
func PublishDirectoryEntry(ctx context.Context, c *client.Client, nullifier, displayName string) (*schema.DirectoryEntry, error) {
	now := c.Now().UnixMilli()
	entry := schema.DirectoryEntry{
		SchemaVersion: schema.DirectoryEntryVersion,
		Nullifier:     nullifier,
		DevicePub:     c.Pair().Pub(),
		EPub:          c.Pair().EPub(),
		DisplayName:   displayName,
		RegisteredAt:  now,
		LastSeenAt:    now,
	}
	if prev := LookupDirectory(ctx, c, nullifier); prev != nil && prev.DevicePub == entry.DevicePub {
		entry.RegisteredAt = prev.RegisteredAt
	}
	return write(ctx, c, schema.KindDirectoryEntry, mesh.DirectoryPolicy, entry, func(v *schema.DirectoryEntry) (chain.Chain, error) {
		return directoryChain(c, v.Nullifier)
	})
}

// LookupDirectory returns the entry published under nullifier, or nil.
func LookupDirectory(ctx context.Context, c *client.Client, nullifier string) *schema.DirectoryEntry {
	node, err := directoryChain(c, nullifier)
	if err != nil {
		return nil
	}
	return read[schema.DirectoryEntry](ctx, c, node, schema.KindDirectoryEntry, mesh.DirectoryPolicy)
}
