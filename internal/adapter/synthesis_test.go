package adapter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vhmesh/internal/adapter"
	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/client/clienttest"
	"github.com/roach88/vhmesh/internal/mesh"
	"github.com/roach88/vhmesh/internal/schema"
	"github.com/roach88/vhmesh/internal/testutil"
)

func TestCandidates_SortedByID(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()

	for _, id := range []string{"cand-c", "cand-a", "cand-b"} {
		_, err := adapter.WriteTopicEpochCandidate(ctx, c, testutil.CandidateSynthesis("topic-1", 3, id))
		require.NoError(t, err)
	}

	got := adapter.ReadTopicEpochCandidates(ctx, c, "topic-1", 3.7)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"cand-a", "cand-b", "cand-c"},
		[]string{got[0].CandidateID, got[1].CandidateID, got[2].CandidateID})

	one := adapter.ReadTopicEpochCandidate(ctx, c, "topic-1", 3, "cand-b")
	require.NotNil(t, one)
	assert.Equal(t, "prov-a", one.Provider.ProviderID)

	assert.Empty(t, adapter.ReadTopicEpochCandidates(ctx, c, "topic-1", 4))
	assert.Empty(t, adapter.ReadTopicEpochCandidates(ctx, c, "topic-1", -1))
}

func TestCandidates_SkipInvalidChildren(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()

	_, err := adapter.WriteTopicEpochCandidate(ctx, c, testutil.CandidateSynthesis("topic-1", 1, "cand-a"))
	require.NoError(t, err)

	parent, err := adapter.CandidatesChain(c, "topic-1", 1)
	require.NoError(t, err)
	require.NoError(t, chain.PutWithAck(parent.Child("junk"), map[string]any{"candidate_id": "junk"}, 0, nil))

	got := adapter.ReadTopicEpochCandidates(ctx, c, "topic-1", 1)
	require.Len(t, got, 1)
	assert.Equal(t, "cand-a", got[0].CandidateID)
}

func TestCandidate_RejectsIdentityFields(t *testing.T) {
	c := clienttest.New(t)

	node, err := mesh.ToNode(testutil.CandidateSynthesis("topic-1", 1, "cand-a"))
	require.NoError(t, err)
	node["provider"].(map[string]any)["access_token"] = "x"

	_, err = adapter.WriteTopicEpochCandidate(context.Background(), c, node)
	assert.Error(t, err)
	assert.Nil(t, adapter.ReadTopicEpochCandidate(context.Background(), c, "topic-1", 1, "cand-a"))
}

func TestTopicSynthesis_WritesEpochThenLatest(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()

	first := testutil.TopicSynthesis("topic-1", 1, "syn-1")
	_, err := adapter.WriteTopicSynthesis(ctx, c, first)
	require.NoError(t, err)
	second := testutil.TopicSynthesis("topic-1", 2, "syn-2")
	_, err = adapter.WriteTopicSynthesis(ctx, c, second)
	require.NoError(t, err)

	epoch1 := adapter.ReadTopicEpochSynthesis(ctx, c, "topic-1", 1)
	require.NotNil(t, epoch1)
	assert.Equal(t, "syn-1", epoch1.SynthesisID)

	latest := adapter.ReadTopicLatestSynthesis(ctx, c, "topic-1")
	require.NotNil(t, latest)
	assert.Equal(t, "syn-2", latest.SynthesisID)
	assert.Equal(t, 2, latest.Epoch)
}

func TestTopicSynthesis_FailedEpochLeavesLatest(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()

	_, err := adapter.WriteTopicSynthesis(ctx, c, testutil.TopicSynthesis("topic-1", 1, "syn-1"))
	require.NoError(t, err)

	bad := testutil.TopicSynthesis("topic-1", 2, "syn-2")
	bad.DivergenceMetrics.DisagreementScore = 3
	_, err = adapter.WriteTopicSynthesis(ctx, c, bad)
	assert.True(t, schema.IsValidationError(err))

	latest := adapter.ReadTopicLatestSynthesis(ctx, c, "topic-1")
	require.NotNil(t, latest)
	assert.Equal(t, "syn-1", latest.SynthesisID)
}

func TestTopicDigest(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()

	digest := testutil.TopicDigest("topic-1", "digest-1")
	_, err := adapter.WriteTopicDigest(ctx, c, digest)
	require.NoError(t, err)

	got := adapter.ReadTopicDigest(ctx, c, "topic-1", "digest-1")
	require.NotNil(t, got)
	assert.Equal(t, digest, *got)

	digest.WindowEnd = digest.WindowStart - 1
	_, err = adapter.WriteTopicDigest(ctx, c, digest)
	assert.True(t, schema.IsValidationError(err))
}

func TestAnalysis_LatestPointer(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()

	older := testutil.StoryAnalysis("story-1", "key-a", "2024-01-01T00:00:00Z")
	newer := testutil.StoryAnalysis("story-1", "key-b", "2024-02-01T00:00:00Z")
	_, err := adapter.WriteAnalysis(ctx, c, newer)
	require.NoError(t, err)
	_, err = adapter.WriteAnalysis(ctx, c, older)
	require.NoError(t, err)

	latest := adapter.ReadLatestAnalysis(ctx, c, "story-1")
	require.NotNil(t, latest)
	assert.Equal(t, "key-a", latest.AnalysisKey, "the pointer names the last write")

	list := adapter.ListAnalyses(ctx, c, "story-1")
	require.Len(t, list, 2)
	assert.Equal(t, "key-b", list[0].AnalysisKey, "the list is newest first")

	got := adapter.ReadAnalysis(ctx, c, "story-1", "key-b")
	require.NotNil(t, got)
	assert.Equal(t, newer, *got)
}

func TestAnalysis_LatestFallsBackToList(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()

	_, err := adapter.WriteAnalysis(ctx, c, testutil.StoryAnalysis("story-1", "key-b", "2024-01-01T00:00:00Z"))
	require.NoError(t, err)
	_, err = adapter.WriteAnalysis(ctx, c, testutil.StoryAnalysis("story-1", "key-a", "2024-01-01T00:00:00Z"))
	require.NoError(t, err)

	story, err := adapter.StoryChain(c, "story-1")
	require.NoError(t, err)
	require.NoError(t, chain.PutWithAck(story.Child("analysis_latest"), map[string]any{"analysisKey": ""}, 0, nil))

	latest := adapter.ReadLatestAnalysis(ctx, c, "story-1")
	require.NotNil(t, latest)
	assert.Equal(t, "key-a", latest.AnalysisKey, "equal timestamps fall back to key order")

	assert.Nil(t, adapter.ReadLatestAnalysis(ctx, c, "story-2"))
}
