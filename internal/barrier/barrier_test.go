package barrier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBarrier_StartsNotReady(t *testing.T) {
	b := New(quietLogger())
	assert.False(t, b.Ready())
}

func TestBarrier_MarkReadyIsIdempotent(t *testing.T) {
	b := New(quietLogger())
	b.MarkReady()
	b.MarkReady()
	assert.True(t, b.Ready())

	select {
	case <-b.Done():
	default:
		t.Fatal("Done channel should be closed")
	}
}

func TestBarrier_PrepareWithoutHydrator(t *testing.T) {
	b := New(quietLogger())
	require.NoError(t, b.Prepare(context.Background()))
	assert.True(t, b.Ready())
}

func TestBarrier_PrepareRunsHydratorOnce(t *testing.T) {
	b := New(quietLogger())
	var calls atomic.Int32
	release := make(chan struct{})
	b.SetHydrator(func(ctx context.Context) error {
		calls.Add(1)
		<-release
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, b.Prepare(context.Background()))
		}()
	}

	time.Sleep(20 * time.Millisecond)
	assert.False(t, b.Ready(), "must not be ready while hydration is running")
	close(release)
	wg.Wait()

	assert.True(t, b.Ready())
	assert.Equal(t, int32(1), calls.Load())

	// Already ready: the hydrator is not invoked again.
	require.NoError(t, b.Prepare(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestBarrier_HydrationFailureStillReleases(t *testing.T) {
	b := New(quietLogger())
	b.SetHydrator(func(ctx context.Context) error {
		return errors.New("disk unavailable")
	})

	require.NoError(t, b.Prepare(context.Background()))
	assert.True(t, b.Ready())
}

func TestBarrier_PrepareHonoursContext(t *testing.T) {
	b := New(quietLogger())
	block := make(chan struct{})
	defer close(block)
	b.SetHydrator(func(ctx context.Context) error {
		<-block
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := b.Prepare(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, b.Ready())
}

func TestBarrier_HydratorMayMarkReady(t *testing.T) {
	b := New(quietLogger())
	b.SetHydrator(func(ctx context.Context) error {
		b.MarkReady()
		return nil
	})
	require.NoError(t, b.Prepare(context.Background()))
	assert.True(t, b.Ready())
}
