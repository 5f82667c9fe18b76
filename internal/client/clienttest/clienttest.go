// Package clienttest builds clients for tests.
package clienttest

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/vhmesh/internal/client"
	"github.com/roach88/vhmesh/internal/config"
	"github.com/roach88/vhmesh/internal/schema"
	"github.com/roach88/vhmesh/internal/seal"
	"github.com/roach88/vhmesh/internal/testutil"
)

var (
	schemasOnce sync.Once
	schemas     *schema.Registry
)

// Schemas returns a registry shared by every test in the process.
func Schemas() *schema.Registry {
	schemasOnce.Do(func() { schemas = schema.MustNewRegistry() })
	return schemas
}

// Config is a memory-backed configuration with short timeouts.
func Config() config.Config {
	cfg := config.Default()
	cfg.Env = config.EnvTest
	cfg.RequireSession = false
	cfg.AckTimeout = 100 * time.Millisecond
	cfg.ReadTimeout = 100 * time.Millisecond
	cfg.RemoteWaitTimeout = 20 * time.Millisecond
	cfg.Storage.KeyIterations = 1000
	return cfg
}

// Pair returns a deterministic device pair for seed byte b.
func Pair(t *testing.T, b byte) *seal.DevicePair {
	t.Helper()
	p, err := seal.DevicePairFromSeed(bytes.Repeat([]byte{b}, seal.SeedSize))
	require.NoError(t, err)
	return p
}

// New builds a prepared client over an in-process graph. mutate may
// adjust the options before construction.
func New(t *testing.T, mutate ...func(*client.Options)) *client.Client {
	t.Helper()
	clock := testutil.NewDeterministicClock()
	opts := client.Options{
		Config:  Config(),
		Logger:  testutil.DiscardLogger(),
		Pair:    Pair(t, 1),
		Schemas: Schemas(),
		Now:     clock.Now,
	}
	for _, m := range mutate {
		m(&opts)
	}

	c, err := client.New(opts)
	require.NoError(t, err)
	require.NoError(t, c.Prepare(context.Background()))
	t.Cleanup(func() { c.Shutdown(context.Background()) })
	return c
}
