package adapter_test

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vhmesh/internal/adapter"
	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/client"
	"github.com/roach88/vhmesh/internal/client/clienttest"
	"github.com/roach88/vhmesh/internal/mesh"
	"github.com/roach88/vhmesh/internal/schema"
	"github.com/roach88/vhmesh/internal/testutil"
)

func TestNewsStory_RoundTrip(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()

	story := testutil.StoryBundle("story-1", "topic-1", 1_700_000_000_500)
	got, err := adapter.WriteNewsStory(ctx, c, story)
	require.NoError(t, err)
	assert.Equal(t, "story-1", got.StoryID)

	read := adapter.ReadNewsStory(ctx, c, "story-1")
	require.NotNil(t, read)
	assert.Equal(t, story, *read)

	assert.Nil(t, adapter.ReadNewsStory(ctx, c, "missing"))
	assert.Nil(t, adapter.ReadNewsStory(ctx, c, " "))
}

func TestNewsStory_RejectsInvalid(t *testing.T) {
	rec := testutil.NewRecordingChain()
	c := clienttest.New(t, func(o *client.Options) { o.Root = rec })
	ctx := context.Background()

	story := testutil.StoryBundle("story-1", "topic-1", 1000)
	story.Sources = nil
	_, err := adapter.WriteNewsStory(ctx, c, story)
	assert.True(t, schema.IsValidationError(err), "a bundle needs at least one source")

	story = testutil.StoryBundle("story-1", "topic-1", 1000)
	story.ClusterWindowStart = story.ClusterWindowEnd + 1
	_, err = adapter.WriteNewsStory(ctx, c, story)
	assert.True(t, schema.IsValidationError(err))

	assert.Empty(t, rec.Puts())
}

func TestNewsStory_ForbiddenNestedKey(t *testing.T) {
	rec := testutil.NewRecordingChain()
	c := clienttest.New(t, func(o *client.Options) { o.Root = rec })

	node, err := mesh.ToNode(testutil.StoryBundle("story-1", "topic-1", 1000))
	require.NoError(t, err)
	node["cluster_features"].(map[string]any)["identity_hint"] = "someone"

	_, err = adapter.WriteNewsStory(context.Background(), c, node)
	require.Error(t, err)
	assert.True(t, mesh.IsForbiddenField(err), err.Error())
	assert.Empty(t, rec.Puts(), "nothing reaches the mesh")
}

func TestNewsBundle_WritesIndex(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()

	_, err := adapter.WriteNewsBundle(ctx, c, testutil.StoryBundle("story-1", "topic-1", 2000.9))
	require.NoError(t, err)
	_, err = adapter.WriteNewsBundle(ctx, c, testutil.StoryBundle("story-2", "topic-1", 3000))
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"story-1": 2000, "story-2": 3000}, adapter.ReadNewsLatestIndex(ctx, c))
	assert.Equal(t, []string{"story-2", "story-1"}, adapter.ReadLatestStoryIDs(ctx, c, adapter.DefaultLatestLimit))
}

func TestLatestIndex_ParsesLegacyShapes(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()
	latest := c.Mesh().Child("news").Child("index").Child("latest")

	require.NoError(t, chain.PutWithAck(latest, map[string]any{
		"numeric": 500.0,
		"text":    "700",
		"object":  map[string]any{"created_at": 600.0},
		"bad":     "soon",
	}, 0, nil))
	require.NoError(t, adapter.WriteNewsLatestIndexEntry(ctx, c, "negative", -5))

	assert.Equal(t, map[string]int64{
		"numeric":  500,
		"text":     700,
		"object":   600,
		"negative": 0,
	}, adapter.ReadNewsLatestIndex(ctx, c))
}

func TestReadLatestStoryIDs_Limits(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()

	for i, ts := range []float64{100, 300, 300, 200} {
		require.NoError(t, adapter.WriteNewsLatestIndexEntry(ctx, c, fmt.Sprintf("s%d", i), ts))
	}

	assert.Equal(t, []string{}, adapter.ReadLatestStoryIDs(ctx, c, 0))
	assert.Equal(t, []string{}, adapter.ReadLatestStoryIDs(ctx, c, -3))
	assert.Equal(t, []string{"s1", "s2"}, adapter.ReadLatestStoryIDs(ctx, c, 2), "ties break by id")
	assert.Equal(t, []string{"s1", "s2", "s3", "s0"}, adapter.ReadLatestStoryIDs(ctx, c, 10))
}

func TestReadLatestStoryIDs_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)
	ctx := context.Background()

	properties.Property("newest first, ties by id, at most limit", prop.ForAll(
		func(stamps []int, limit int) bool {
			c := clienttest.New(t)
			ids := make([]string, len(stamps))
			byID := make(map[string]int, len(stamps))
			for i, ts := range stamps {
				ids[i] = fmt.Sprintf("story-%02d", i)
				byID[ids[i]] = ts
				if err := adapter.WriteNewsLatestIndexEntry(ctx, c, ids[i], float64(ts)); err != nil {
					return false
				}
			}

			sort.Slice(ids, func(i, j int) bool {
				if byID[ids[i]] != byID[ids[j]] {
					return byID[ids[i]] > byID[ids[j]]
				}
				return ids[i] < ids[j]
			})
			if len(ids) > limit {
				ids = ids[:limit]
			}
			return assert.ObjectsAreEqual(ids, adapter.ReadLatestStoryIDs(ctx, c, limit))
		},
		gen.SliceOfN(6, gen.IntRange(0, 4)),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}

func TestNewsRemoval(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()

	removal := schema.NewsRemoval{URLHash: "urlhash-1", StoryID: "story-1", Reason: "publisher request", RemovedAt: 42}
	_, err := adapter.WriteNewsRemoval(ctx, c, removal)
	require.NoError(t, err)

	got := adapter.ReadNewsRemoval(ctx, c, "urlhash-1")
	require.NotNil(t, got)
	assert.Equal(t, removal, *got)

	_, err = adapter.WriteNewsRemoval(ctx, c, schema.NewsRemoval{Reason: "x"})
	assert.Error(t, err)
}
