package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/vhmesh/internal/seal"
)

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Record is one persisted graph fragment.
type Record struct {
	Key       string `json:"key"`
	Value     any    `json:"value"`
	UpdatedAt int64  `json:"updatedAt"` // epoch milliseconds
}

// Signal is released when hydration completes.
type Signal interface {
	MarkReady()
}

// Adapter is the contract both backends satisfy.
type Adapter interface {
	Backend() string
	Hydrate(ctx context.Context) error
	Write(ctx context.Context, rec Record) error
	Read(ctx context.Context, key string) (*Record, error)
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Path is the SQLite file. Empty selects the memory backend.
	Path string

	// Keys derives the encryption key. Nil uses the development fallbacks.
	Keys *seal.KeySource

	// Now stamps records written without UpdatedAt. Nil uses time.Now.
	Now func() time.Time
}

// New opens the persistent backend when Path is set and usable, and falls
// back to memory otherwise.
func New(opts Options, signal Signal, logger *slog.Logger) Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Path == "" {
		logger.Debug("no storage path configured, using memory backend", "component", "storage")
		return NewMemory(signal, opts.Now)
	}
	s, err := OpenSQLite(opts.Path, opts.Keys, signal, opts.Now)
	if err != nil {
		logger.Warn("persistent store unavailable, falling back to memory",
			"component", "storage",
			"path", opts.Path,
			"error", err,
		)
		return NewMemory(signal, opts.Now)
	}
	return s
}

func stamp(rec Record, now func() time.Time) Record {
	if rec.UpdatedAt == 0 {
		if now == nil {
			now = time.Now
		}
		rec.UpdatedAt = now().UnixMilli()
	}
	return rec
}
