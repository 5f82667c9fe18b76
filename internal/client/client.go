// Package client assembles a mesh client: hydration barrier, encrypted
// local store, topology guard, schema registry, device identity and the
// guarded roots every adapter navigates from.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/vhmesh/internal/barrier"
	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/config"
	"github.com/roach88/vhmesh/internal/graph"
	"github.com/roach88/vhmesh/internal/mesh"
	"github.com/roach88/vhmesh/internal/schema"
	"github.com/roach88/vhmesh/internal/seal"
	"github.com/roach88/vhmesh/internal/storage"
	"github.com/roach88/vhmesh/internal/topology"
)

// Options configures New. Zero values select the defaults.
type Options struct {
	Config config.Config
	Logger *slog.Logger

	// Root is the raw mesh chain. Nil creates an in-process graph that
	// journals into local storage.
	Root chain.Chain

	// Pair is the device identity. Nil generates a fresh pair.
	Pair *seal.DevicePair

	// Rules overrides the default topology rules.
	Rules []topology.Rule

	// Schemas shares a compiled registry between clients.
	Schemas *schema.Registry

	// Now is the clock. Nil uses time.Now.
	Now func() time.Time
}

// Client is one device's view of the mesh.
//
// Thread-safety: safe for concurrent use. The barrier and the storage key
// are set-once state owned by the client.
type Client struct {
	id      string
	cfg     config.Config
	logger  *slog.Logger
	now     func() time.Time
	barrier *barrier.Barrier
	store   storage.Adapter
	guard   *topology.Guard
	schemas *schema.Registry
	graph   *graph.Graph
	raw     chain.Chain
	pair    *seal.DevicePair
	sealer  *seal.Sealer

	session   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New builds a client. It does not hydrate; call Prepare before writing.
func New(opts Options) (*Client, error) {
	cfg := opts.Config
	if cfg.Env == "" {
		cfg = config.Default()
	}
	cfg.Peers = config.NormalizePeers(cfg.Peers)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("client config: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	schemas := opts.Schemas
	if schemas == nil {
		var err error
		if schemas, err = schema.NewRegistry(); err != nil {
			return nil, fmt.Errorf("client schemas: %w", err)
		}
	}

	pair := opts.Pair
	if pair == nil {
		var err error
		if pair, err = seal.GenerateDevicePair(); err != nil {
			return nil, fmt.Errorf("client identity: %w", err)
		}
	}
	sealer, err := seal.NewSealer(pair.SelfKey())
	if err != nil {
		return nil, fmt.Errorf("client identity: %w", err)
	}

	id := uuid.NewString()
	c := &Client{
		id:      id,
		cfg:     cfg,
		logger:  logger.With("client", id),
		now:     now,
		guard:   topology.NewGuard(opts.Rules...),
		schemas: schemas,
		pair:    pair,
		sealer:  sealer,
	}
	c.barrier = barrier.New(c.logger)
	c.store = storage.New(storage.Options{
		Path: cfg.Storage.Path,
		Keys: cfg.KeySource(),
		Now:  now,
	}, c.barrier, c.logger)

	c.raw = opts.Root
	if c.raw == nil {
		c.graph = graph.New(graph.WithJournal(c.store), graph.WithLogger(c.logger))
		c.raw = c.graph.Root()
	}
	c.barrier.SetHydrator(c.hydrate)

	if !cfg.RequireSession {
		c.session.Store(true)
	}

	c.logger.Debug("client created",
		"component", "client",
		"backend", c.store.Backend(),
		"peers", cfg.Peers,
		"device", pair.Pub(),
	)
	return c, nil
}

// hydrate replays the local replica into the owned graph, then lets the
// store release the barrier.
func (c *Client) hydrate(ctx context.Context) error {
	if c.graph != nil {
		if err := c.graph.Restore(ctx, c.store); err != nil {
			return fmt.Errorf("hydrate graph: %w", err)
		}
	}
	return c.store.Hydrate(ctx)
}

// Prepare waits for hydration.
func (c *Client) Prepare(ctx context.Context) error {
	return c.barrier.Prepare(ctx)
}

// ID returns the client instance id.
func (c *Client) ID() string { return c.id }

// Config returns the effective configuration.
func (c *Client) Config() config.Config { return c.cfg }

// Logger returns the client logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Barrier returns the hydration barrier.
func (c *Client) Barrier() *barrier.Barrier { return c.barrier }

// Storage returns the encrypted local store.
func (c *Client) Storage() storage.Adapter { return c.store }

// Guard returns the topology guard.
func (c *Client) Guard() *topology.Guard { return c.guard }

// Schemas returns the schema registry.
func (c *Client) Schemas() *schema.Registry { return c.schemas }

// Graph returns the in-process graph, or nil when a raw root was injected.
func (c *Client) Graph() *graph.Graph { return c.graph }

// Pair returns the device identity.
func (c *Client) Pair() *seal.DevicePair { return c.pair }

// Identity returns the sealer keyed to this device's own data.
func (c *Client) Identity() *seal.Sealer { return c.sealer }

// Now returns the client clock's current time.
func (c *Client) Now() time.Time { return c.now() }

// Env returns the protocol settings adapters write and read with.
func (c *Client) Env() mesh.Env {
	return mesh.Env{
		Schemas:     c.schemas,
		AckTimeout:  c.cfg.AckTimeout,
		ReadTimeout: c.cfg.ReadTimeout,
		Logger:      c.logger,
	}
}

// Mesh returns the guarded public root at "vh/".
func (c *Client) Mesh() *chain.Guarded {
	return chain.Guard(c.raw.Get("vh"), c.barrier, c.guard, "vh/")
}

// User returns the guarded root of this device's user graph at "~<pub>/".
func (c *Client) User() *chain.Guarded {
	return c.UserOf(c.pair.Pub())
}

// UserOf returns the guarded root of another user's graph. Writes there are
// still checked against the topology.
func (c *Client) UserOf(pub string) *chain.Guarded {
	key := "~" + pub
	return chain.Guard(c.raw.Get(key), c.barrier, c.guard, key+"/")
}

// Shutdown releases the barrier and closes local storage. It is safe to
// call more than once.
func (c *Client) Shutdown(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.barrier.MarkReady()
		if c.graph != nil {
			c.graph.SetOffline(true)
		}
		c.closeErr = c.store.Close()
		c.logger.Debug("client shut down", "component", "client")
	})
	return c.closeErr
}
