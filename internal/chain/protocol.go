package chain

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultAckTimeout bounds how long a put waits for its acknowledgement.
	DefaultAckTimeout = time.Second

	// DefaultReadTimeout bounds a single-shot read.
	DefaultReadTimeout = 2 * time.Second
)

// AckError is an explicit rejection reported by the mesh.
type AckError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *AckError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Message + " (path=" + e.Path + ")"
}

// IsAckError reports whether err is a mesh rejection.
func IsAckError(err error) bool {
	var ae *AckError
	return errors.As(err, &ae)
}

type pather interface {
	Path() string
}

func pathOf(c Chain) string {
	if p, ok := c.(pather); ok {
		return p.Path()
	}
	return ""
}

// PutWithAck writes value and waits for the acknowledgement.
//
// An ack carrying an error yields *AckError. A clean ack yields nil. When no
// ack arrives within timeout the put resolves to nil and a warning is logged:
// delivery is unknown, not failed. The first of these outcomes settles the
// call and everything arriving later is ignored.
//
// A put cannot be cancelled once issued.
func PutWithAck(c Chain, value any, timeout time.Duration, logger *slog.Logger) error {
	if timeout <= 0 {
		timeout = DefaultAckTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	path := pathOf(c)

	result := make(chan error, 1)
	var once sync.Once
	settle := func(err error) bool {
		won := false
		once.Do(func() {
			won = true
			result <- err
		})
		return won
	}

	err := c.Put(value, func(ack *Ack) {
		if ack != nil && ack.Err != "" {
			settle(&AckError{Path: path, Message: ack.Err})
			return
		}
		settle(nil)
	})
	if err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-timer.C:
		if settle(nil) {
			logger.Warn("put timed out, proceeding without ack",
				"component", "chain",
				"path", path,
				"timeout", timeout,
			)
		}
		return <-result
	}
}

// ReadOnce takes a single snapshot of the node at c. It returns nil when the
// node is absent, when timeout elapses, or when ctx is done. Reads never fail.
func ReadOnce(ctx context.Context, c Chain, timeout time.Duration) any {
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}

	result := make(chan any, 1)
	var once sync.Once
	c.Once(func(data any) {
		once.Do(func() { result <- data })
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-result:
		return data
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return nil
	}
}
