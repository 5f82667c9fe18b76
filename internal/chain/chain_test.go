package chain_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vhmesh/internal/barrier"
	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/testutil"
	"github.com/roach88/vhmesh/internal/topology"
)

func readyBarrier() *barrier.Barrier {
	b := barrier.New(testutil.DiscardLogger())
	b.MarkReady()
	return b
}

type recordingValidator struct {
	paths []string
}

func (v *recordingValidator) ValidateWrite(path string, payload any) error {
	v.paths = append(v.paths, path)
	return nil
}

func TestGuarded_TracksNavigatedPath(t *testing.T) {
	raw := testutil.NewRecordingChain()
	v := &recordingValidator{}
	root := chain.Guard(raw.Get("vh"), readyBarrier(), v, "vh/")

	require.NoError(t, root.Get("a").Get("b").Put(map[string]any{"x": 1}, nil))

	assert.Equal(t, []string{"vh/a/b/"}, v.paths)
	puts := raw.Puts()
	require.Len(t, puts, 1)
	assert.Equal(t, "vh/a/b/", puts[0].Path)
}

func TestGuarded_PathNormalization(t *testing.T) {
	raw := testutil.NewRecordingChain()
	g := chain.Guard(raw, readyBarrier(), topology.NewGuard(), "vh")
	assert.Equal(t, "vh/", g.Path())
	assert.Equal(t, "vh/x/y/", g.Child("x").Child("y").Path())
}

func TestGuarded_PolicyFailureNeverReachesMesh(t *testing.T) {
	raw := testutil.NewRecordingChain()
	root := chain.Guard(raw.Get("vh"), readyBarrier(), topology.NewGuard(), "vh/")

	ackCalled := false
	err := root.Get("forum").Get("threads").Get("t1").Put(
		map[string]any{"title": "hi", "nullifier": "n"},
		func(*chain.Ack) { ackCalled = true },
	)
	require.Error(t, err)
	assert.True(t, topology.IsPIIViolation(err))
	assert.False(t, ackCalled)
	assert.Empty(t, raw.Puts())
}

func TestGuarded_ValidatesBeforeBarrier(t *testing.T) {
	raw := testutil.NewRecordingChain()
	notReady := barrier.New(testutil.DiscardLogger())
	root := chain.Guard(raw.Get("vh"), notReady, topology.NewGuard(), "vh/")

	err := root.Get("unknown").Put(map[string]any{}, nil)
	assert.True(t, topology.IsDisallowedPath(err))

	err = root.Get("public").Get("x").Put(map[string]any{}, nil)
	assert.ErrorIs(t, err, chain.ErrNotHydrated)
	assert.Empty(t, raw.Puts())
}

func TestGuarded_EncryptedChatEnvelopeSucceeds(t *testing.T) {
	raw := testutil.NewRecordingChain()
	root := chain.Guard(raw.Get("vh"), readyBarrier(), topology.NewGuard(), "vh/")

	env := map[string]any{"__encrypted": true, "ciphertext": "..."}
	err := chain.PutWithAck(root.Get("chat").Get("c1"), env, time.Second, testutil.DiscardLogger())
	require.NoError(t, err)
	require.Len(t, raw.Puts(), 1)
	assert.Equal(t, env, raw.Puts()[0].Value)
}

func TestGuarded_OnceDelegates(t *testing.T) {
	raw := testutil.NewRecordingChain()
	raw.Seed("vh/public/x/", map[string]any{"a": "b"})
	root := chain.Guard(raw.Get("vh"), nil, topology.NewGuard(), "vh/")

	got := chain.ReadOnce(context.Background(), root.Get("public").Get("x"), time.Second)
	assert.Equal(t, map[string]any{"a": "b"}, got)
}

func TestPutWithAck_AckError(t *testing.T) {
	raw := testutil.NewRecordingChain()
	raw.SetAckPolicy(testutil.AckWithError("write rejected"))

	err := chain.PutWithAck(raw.Get("k"), "v", time.Second, testutil.DiscardLogger())
	require.Error(t, err)
	assert.True(t, chain.IsAckError(err))
	assert.Contains(t, err.Error(), "write rejected")
}

func TestPutWithAck_TimeoutResolvesWithWarning(t *testing.T) {
	raw := testutil.NewRecordingChain()
	raw.SetAckPolicy(testutil.AckNever)
	logger, logs := testutil.CaptureLogger()

	start := time.Now()
	err := chain.PutWithAck(raw.Get("k"), "v", 30*time.Millisecond, logger)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.Contains(t, logs.String(), "put timed out, proceeding without ack")
	assert.Contains(t, logs.String(), "path=k/")
}

func TestPutWithAck_LateAckIsIgnored(t *testing.T) {
	raw := testutil.NewRecordingChain()
	raw.SetAckPolicy(testutil.AckAfter(60 * time.Millisecond))
	logger, logs := testutil.CaptureLogger()

	err := chain.PutWithAck(raw.Get("k"), "v", 10*time.Millisecond, logger)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, strings.Count(logs.String(), "put timed out"))
}

func TestPutWithAck_DuplicateAcksSettleOnce(t *testing.T) {
	raw := testutil.NewRecordingChain()
	raw.SetAckPolicy(testutil.AckAfter(5 * time.Millisecond))

	err := chain.PutWithAck(raw.Get("k"), "v", time.Second, testutil.DiscardLogger())
	assert.NoError(t, err, "the error ack arrives after the first ack and is ignored")
}

type syncErrChain struct{ *testutil.RecordingChain }

func (syncErrChain) Put(any, chain.AckFunc) error { return assert.AnError }

func TestPutWithAck_SynchronousErrorReturned(t *testing.T) {
	err := chain.PutWithAck(syncErrChain{testutil.NewRecordingChain()}, "v", time.Second, testutil.DiscardLogger())
	assert.ErrorIs(t, err, assert.AnError)
}

type silentChain struct{ *testutil.RecordingChain }

func (silentChain) Once(func(any)) {}

func TestReadOnce_TimeoutReturnsNil(t *testing.T) {
	got := chain.ReadOnce(context.Background(), silentChain{testutil.NewRecordingChain()}, 10*time.Millisecond)
	assert.Nil(t, got)
}

func TestReadOnce_ContextCancelReturnsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Nil(t, chain.ReadOnce(ctx, silentChain{testutil.NewRecordingChain()}, time.Second))
}

type countingChain struct {
	*testutil.RecordingChain
	acks *atomic.Int32
}

func (c countingChain) Put(_ any, ack chain.AckFunc) error {
	go func() {
		for i := 0; i < 3; i++ {
			c.acks.Add(1)
			ack(&chain.Ack{})
		}
	}()
	return nil
}

func TestProperty_PutWithAckSettlesExactlyOnce(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("never-acking puts resolve within the window", prop.ForAll(
		func(ms int) bool {
			raw := testutil.NewRecordingChain()
			raw.SetAckPolicy(testutil.AckNever)
			timeout := time.Duration(ms) * time.Millisecond

			start := time.Now()
			err := chain.PutWithAck(raw.Get("k"), "v", timeout, testutil.DiscardLogger())
			elapsed := time.Since(start)
			return err == nil && elapsed >= timeout && elapsed < timeout+500*time.Millisecond
		},
		gen.IntRange(1, 15),
	))

	properties.Property("repeated acks do not block or panic", prop.ForAll(
		func(ms int) bool {
			c := countingChain{RecordingChain: testutil.NewRecordingChain(), acks: &atomic.Int32{}}
			err := chain.PutWithAck(c, "v", time.Duration(ms)*time.Millisecond, testutil.DiscardLogger())
			return err == nil
		},
		gen.IntRange(1, 15),
	))

	properties.TestingRun(t)
}
