package adapter

import (
	"context"
	"time"

	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/client"
	"github.com/roach88/vhmesh/internal/mesh"
	"github.com/roach88/vhmesh/internal/schema"
)

func analysesChain(c *client.Client, storyID string) (*chain.Guarded, error) {
	story, err := StoryChain(c, storyID)
	if err != nil {
		return nil, err
	}
	return story.Child("analysis"), nil
}

func analysisChain(c *client.Client, storyID, analysisKey string) (*chain.Guarded, error) {
	parent, err := analysesChain(c, storyID)
	if err != nil {
		return nil, err
	}
	key, err := mesh.RequireID(analysisKey, "analysisKey")
	if err != nil {
		return nil, err
	}
	return parent.Child(key), nil
}

func analysisLatestChain(c *client.Client, storyID string) (*chain.Guarded, error) {
	story, err := StoryChain(c, storyID)
	if err != nil {
		return nil, err
	}
	return story.Child("analysis_latest"), nil
}

// WriteAnalysis writes the artifact under
// vh/news/stories/<story_id>/analysis/<analysisKey>/ and then points
// analysis_latest at it.
func WriteAnalysis(ctx context.Context, c *client.Client, artifact any) (*schema.StoryAnalysis, error) {
	a, err := write(ctx, c, schema.KindStoryAnalysis, mesh.AnalysisPolicy, artifact, func(v *schema.StoryAnalysis) (chain.Chain, error) {
		return analysisChain(c, v.StoryID, v.AnalysisKey)
	})
	if err != nil {
		return nil, err
	}

	pointer := schema.AnalysisLatest{
		AnalysisKey:    a.AnalysisKey,
		ProvenanceHash: a.ProvenanceHash,
		ModelScope:     a.ModelScope,
		CreatedAt:      a.CreatedAt,
	}
	latest, err := analysisLatestChain(c, a.StoryID)
	if err != nil {
		return nil, err
	}
	if _, err := c.Env().Write(latest, schema.KindAnalysisLatest, mesh.AnalysisPolicy, pointer); err != nil {
		return nil, err
	}
	return a, nil
}

// ReadAnalysis returns one analysis, or nil.
func ReadAnalysis(ctx context.Context, c *client.Client, storyID, analysisKey string) *schema.StoryAnalysis {
	node, err := analysisChain(c, storyID, analysisKey)
	if err != nil {
		return nil
	}
	return read[schema.StoryAnalysis](ctx, c, node, schema.KindStoryAnalysis, mesh.AnalysisPolicy)
}

// ReadLatestAnalysis follows the latest pointer. Without a usable pointer
// it falls back to the newest listed analysis.
func ReadLatestAnalysis(ctx context.Context, c *client.Client, storyID string) *schema.StoryAnalysis {
	node, err := analysisLatestChain(c, storyID)
	if err != nil {
		return nil
	}
	if p := read[schema.AnalysisLatest](ctx, c, node, schema.KindAnalysisLatest, mesh.AnalysisPolicy); p != nil {
		return ReadAnalysis(ctx, c, storyID, p.AnalysisKey)
	}
	all := ListAnalyses(ctx, c, storyID)
	if len(all) == 0 {
		return nil
	}
	return &all[0]
}

// ListAnalyses returns every valid analysis of a story, newest first with
// ties broken by analysis key.
func ListAnalyses(ctx context.Context, c *client.Client, storyID string) []schema.StoryAnalysis {
	node, err := analysesChain(c, storyID)
	if err != nil {
		return []schema.StoryAnalysis{}
	}
	return mesh.List(ctx, c.Env(), node, schema.KindStoryAnalysis, mesh.AnalysisPolicy,
		func(a, b schema.StoryAnalysis) bool {
			ta, tb := createdAtMillis(a.CreatedAt), createdAtMillis(b.CreatedAt)
			if ta != tb {
				return ta > tb
			}
			return a.AnalysisKey < b.AnalysisKey
		})
}

// createdAtMillis parses an RFC 3339 timestamp. Unparseable values sort as
// the epoch.
func createdAtMillis(s string) int64 {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}
