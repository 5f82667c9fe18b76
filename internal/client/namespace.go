package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/mesh"
	"github.com/roach88/vhmesh/internal/schema"
)

// ErrSessionNotReady is returned by namespace operations before the session
// is marked ready, when the client requires one.
var ErrSessionNotReady = errors.New("session not ready")

// Namespace is a key/value view of one mesh subtree, gated on the client's
// session.
type Namespace struct {
	c    *Client
	name string
}

// SetSessionReady opens (or closes) the session gate.
func (c *Client) SetSessionReady(ready bool) {
	c.session.Store(ready)
}

// SessionReady reports whether namespace operations are allowed.
func (c *Client) SessionReady() bool {
	return c.session.Load()
}

// UserNamespace is the public per-user subtree at vh/user/.
func (c *Client) UserNamespace() *Namespace { return &Namespace{c: c, name: "user"} }

// ChatNamespace is the sensitive subtree at vh/chat/. Values must be
// envelopes.
func (c *Client) ChatNamespace() *Namespace { return &Namespace{c: c, name: "chat"} }

// OutboxNamespace is the sensitive subtree at vh/outbox/. Values must be
// envelopes.
func (c *Client) OutboxNamespace() *Namespace { return &Namespace{c: c, name: "outbox"} }

// Name returns the namespace's path segment.
func (n *Namespace) Name() string { return n.name }

func (n *Namespace) node(key string) (*chain.Guarded, error) {
	if !n.c.SessionReady() {
		return nil, ErrSessionNotReady
	}
	k, err := mesh.RequireID(key, "key")
	if err != nil {
		return nil, err
	}
	return n.c.Mesh().Child(n.name).Child(k), nil
}

// Read returns the value stored at key, or nil.
func (n *Namespace) Read(ctx context.Context, key string) (any, error) {
	node, err := n.node(key)
	if err != nil {
		return nil, err
	}
	return n.c.Env().ReadRaw(ctx, node), nil
}

// Write validates value against the topology, waits for hydration and a
// first answer from the mesh, then puts it.
func (n *Namespace) Write(ctx context.Context, key string, value any) error {
	node, err := n.node(key)
	if err != nil {
		return err
	}
	if err := n.c.guard.ValidateWrite(node.Path(), value); err != nil {
		return err
	}
	if err := n.c.waitForRemote(ctx, node); err != nil {
		return err
	}
	return n.c.Env().Put(node, value)
}

// waitForRemote prepares the barrier, then gives the mesh up to the remote
// wait timeout to answer a read of node. A missing answer is not an error.
func (c *Client) waitForRemote(ctx context.Context, node chain.Chain) error {
	if err := c.barrier.Prepare(ctx); err != nil {
		return err
	}

	timeout := c.cfg.RemoteWaitTimeout
	if timeout <= 0 {
		return nil
	}
	answered := make(chan struct{})
	var once sync.Once
	node.Once(func(any) { once.Do(func() { close(answered) }) })

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-answered:
	case <-timer.C:
		c.logger.Warn("waitForRemote timed out, proceeding anyway",
			"component", "client",
			"path", pathOf(node),
			"timeout", timeout,
		)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func pathOf(c chain.Chain) string {
	if p, ok := c.(interface{ Path() string }); ok {
		return p.Path()
	}
	return ""
}

// LinkDevice records deviceKey under this user's devices. It is gated on
// the session like the namespaces.
func (c *Client) LinkDevice(ctx context.Context, deviceKey string) error {
	if !c.SessionReady() {
		return ErrSessionNotReady
	}
	key, err := mesh.RequireID(deviceKey, "deviceKey")
	if err != nil {
		return err
	}
	if err := c.barrier.Prepare(ctx); err != nil {
		return err
	}
	node := c.User().Child("devices").Child(key)
	_, err = c.Env().Write(node, schema.KindLinkedDevice, nil, schema.LinkedDevice{LinkedAt: c.now().UnixMilli()})
	return err
}
