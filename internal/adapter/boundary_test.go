package adapter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vhmesh/internal/adapter"
	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/client"
	"github.com/roach88/vhmesh/internal/client/clienttest"
	"github.com/roach88/vhmesh/internal/testutil"
	"github.com/roach88/vhmesh/internal/topology"
)

func TestBoundary_IdentityFieldOnPublicForumPath(t *testing.T) {
	rec := testutil.NewRecordingChain()
	c := clienttest.New(t, func(o *client.Options) { o.Root = rec })

	thread := map[string]any{
		"id":            "thread-1",
		"schemaVersion": "hermes-thread-v0",
		"title":         "Transit",
		"content":       "Thoughts?",
		"author":        "author-1",
		"timestamp":     1,
		"upvotes":       0,
		"downvotes":     0,
		"score":         0,
		"nullifier":     "null-1",
	}
	err := c.Mesh().Child("forum").Child("threads").Child("thread-1").Put(thread, nil)
	require.Error(t, err)
	assert.True(t, topology.IsPIIViolation(err), err.Error())
	assert.Empty(t, rec.Puts(), "rejected before any mesh call")
}

func TestBoundary_EnvelopeOnSensitiveChatPath(t *testing.T) {
	rec := testutil.NewRecordingChain()
	c := clienttest.New(t, func(o *client.Options) { o.Root = rec })

	envelope := map[string]any{"__encrypted": true, "ciphertext": "opaque"}
	require.NoError(t, chain.PutWithAck(c.Mesh().Child("chat").Child("channel-1"), envelope, 0, nil))

	puts := rec.Puts()
	require.Len(t, puts, 1)
	assert.Equal(t, "vh/chat/channel-1/", puts[0].Path)
	assert.Equal(t, envelope, puts[0].Value)
}

func TestBoundary_NonObjectNodesReadAsNil(t *testing.T) {
	rec := testutil.NewRecordingChain()
	c := clienttest.New(t, func(o *client.Options) { o.Root = rec })
	ctx := context.Background()
	user := "~" + c.Pair().Pub() + "/"

	for _, path := range []string{
		"vh/news/stories/story-1/",
		"vh/news/stories/story-1/analysis_latest/",
		"vh/news/stories/story-1/analysis/",
		"vh/topics/topic-1/latest/",
		"vh/topics/topic-1/epochs/1/synthesis/",
		"vh/topics/topic-1/epochs/1/candidates/cand-1/",
		"vh/topics/topic-1/digests/digest-1/",
		"vh/forum/threads/thread-1/",
		"vh/forum/threads/thread-1/comments/comment-1/",
		"vh/bridge/stats/rep-1/",
		"vh/directory/null-1/",
		user + "hermes/bridge/actions/action-1/",
		user + "hermes/bridge/receipts/",
		user + "hermes/docs/doc-1/",
		user + "outbox/sentiment/",
	} {
		rec.Seed(path, 42.0)
	}

	assert.Nil(t, adapter.ReadNewsStory(ctx, c, "story-1"))
	assert.Nil(t, adapter.ReadLatestAnalysis(ctx, c, "story-1"))
	assert.Nil(t, adapter.ReadTopicLatestSynthesis(ctx, c, "topic-1"))
	assert.Nil(t, adapter.ReadTopicEpochSynthesis(ctx, c, "topic-1", 1))
	assert.Nil(t, adapter.ReadTopicEpochCandidate(ctx, c, "topic-1", 1, "cand-1"))
	assert.Nil(t, adapter.ReadTopicDigest(ctx, c, "topic-1", "digest-1"))
	assert.Nil(t, adapter.ReadThread(ctx, c, "thread-1"))
	assert.Nil(t, adapter.ReadComment(ctx, c, "thread-1", "comment-1"))
	assert.Nil(t, adapter.ReadRepStats(ctx, c, "rep-1"))
	assert.Nil(t, adapter.LookupDirectory(ctx, c, "null-1"))
	assert.Nil(t, adapter.LoadAction(ctx, c, "action-1"))
	assert.Nil(t, adapter.ReadDocument(ctx, c, "doc-1"))
	assert.Empty(t, adapter.ListReceipts(ctx, c, "action-1"))
	assert.Empty(t, adapter.ReadUserEvents(ctx, c, "topic-1", 1))
}

func TestAck_ErrorSurfaces(t *testing.T) {
	rec := testutil.NewRecordingChain()
	rec.SetAckPolicy(testutil.AckWithError("quota exceeded"))
	c := clienttest.New(t, func(o *client.Options) { o.Root = rec })

	_, err := adapter.WriteNewsStory(context.Background(), c, testutil.StoryBundle("story-1", "topic-1", 1000))
	require.Error(t, err)
	assert.True(t, chain.IsAckError(err))
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Contains(t, err.Error(), "vh/news/stories/story-1/")
}

func TestAck_TimeoutProceeds(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	rec := testutil.NewRecordingChain()
	rec.SetAckPolicy(testutil.AckNever)
	c := clienttest.New(t, func(o *client.Options) {
		o.Root = rec
		o.Logger = logger
	})

	_, err := adapter.WriteTopicDigest(context.Background(), c, testutil.TopicDigest("topic-1", "digest-1"))
	require.NoError(t, err, "an unacknowledged put is not a failure")
	assert.Contains(t, logs.String(), "put timed out, proceeding without ack")
	assert.Len(t, rec.Puts(), 1)
}

func TestWritesWaitForHydration(t *testing.T) {
	rec := testutil.NewRecordingChain()
	c, err := client.New(client.Options{
		Config:  clienttest.Config(),
		Logger:  testutil.DiscardLogger(),
		Root:    rec,
		Schemas: clienttest.Schemas(),
	})
	require.NoError(t, err)
	defer c.Shutdown(context.Background())
	assert.False(t, c.Barrier().Ready())

	_, err = adapter.WriteNewsStory(context.Background(), c, testutil.StoryBundle("story-1", "topic-1", 1000))
	require.NoError(t, err)
	assert.True(t, c.Barrier().Ready(), "adapter writes prepare the client")
	assert.Len(t, rec.Puts(), 1)
}
