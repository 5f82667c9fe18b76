package adapter

import (
	"context"
	"math"
	"sort"
	"strconv"

	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/client"
	"github.com/roach88/vhmesh/internal/mesh"
	"github.com/roach88/vhmesh/internal/schema"
)

// DefaultLatestLimit is the number of story ids ReadLatestStoryIDs returns
// when the caller passes no limit.
const DefaultLatestLimit = 50

func storiesChain(c *client.Client) *chain.Guarded {
	return c.Mesh().Child("news").Child("stories")
}

func latestIndexChain(c *client.Client) *chain.Guarded {
	return c.Mesh().Child("news").Child("index").Child("latest")
}

// StoryChain returns the node at vh/news/stories/<storyID>/.
func StoryChain(c *client.Client, storyID string) (*chain.Guarded, error) {
	id, err := mesh.RequireID(storyID, "storyId")
	if err != nil {
		return nil, err
	}
	return storiesChain(c).Child(id), nil
}

// WriteNewsStory validates story and writes it to vh/news/stories/<story_id>/.
func WriteNewsStory(ctx context.Context, c *client.Client, story any) (*schema.StoryBundle, error) {
	return write(ctx, c, schema.KindStoryBundle, mesh.NewsPolicy, story, func(s *schema.StoryBundle) (chain.Chain, error) {
		return StoryChain(c, s.StoryID)
	})
}

// ReadNewsStory returns the story bundle for storyID, or nil.
func ReadNewsStory(ctx context.Context, c *client.Client, storyID string) *schema.StoryBundle {
	node, err := StoryChain(c, storyID)
	if err != nil {
		return nil
	}
	return read[schema.StoryBundle](ctx, c, node, schema.KindStoryBundle, mesh.NewsPolicy)
}

// WriteNewsLatestIndexEntry records createdAt (epoch ms, floored and
// clamped at zero) for storyID in the latest index.
func WriteNewsLatestIndexEntry(ctx context.Context, c *client.Client, storyID string, createdAt float64) error {
	id, err := mesh.RequireID(storyID, "storyId")
	if err != nil {
		return err
	}
	ts := math.Floor(createdAt)
	if ts < 0 || math.IsNaN(ts) {
		ts = 0
	}
	return put(ctx, c, latestIndexChain(c).Child(id), ts)
}

// ReadNewsLatestIndex returns story id to created-at milliseconds. Entries
// that are not non-negative numbers are skipped.
func ReadNewsLatestIndex(ctx context.Context, c *client.Client) map[string]int64 {
	children := c.Env().Children(ctx, latestIndexChain(c))
	index := make(map[string]int64, len(children))
	for id, v := range children {
		if ts, ok := parseLatestTimestamp(v); ok {
			index[id] = ts
		}
	}
	return index
}

// parseLatestTimestamp accepts a number, a numeric string, or an object
// carrying created_at.
func parseLatestTimestamp(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return 0, false
		}
		return int64(math.Floor(t)), true
	case int64:
		return t, t >= 0
	case int:
		return int64(t), t >= 0
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return parseLatestTimestamp(f)
	case map[string]any:
		if created, ok := t["created_at"]; ok {
			return parseLatestTimestamp(created)
		}
	}
	return 0, false
}

// WriteNewsBundle writes the story and then its latest-index entry.
func WriteNewsBundle(ctx context.Context, c *client.Client, story any) (*schema.StoryBundle, error) {
	s, err := WriteNewsStory(ctx, c, story)
	if err != nil {
		return nil, err
	}
	if err := WriteNewsLatestIndexEntry(ctx, c, s.StoryID, s.CreatedAt); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadLatestStoryIDs returns up to limit story ids, newest first with ties
// broken by id. A limit of zero or less yields an empty list.
func ReadLatestStoryIDs(ctx context.Context, c *client.Client, limit int) []string {
	if limit <= 0 {
		return []string{}
	}
	index := ReadNewsLatestIndex(ctx, c)
	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if index[ids[i]] != index[ids[j]] {
			return index[ids[i]] > index[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// WriteNewsRemoval marks a source URL as withdrawn at
// vh/news/removed/<url_hash>/.
func WriteNewsRemoval(ctx context.Context, c *client.Client, removal any) (*schema.NewsRemoval, error) {
	return write(ctx, c, schema.KindNewsRemoval, mesh.NewsPolicy, removal, func(r *schema.NewsRemoval) (chain.Chain, error) {
		return removalChain(c, r.URLHash)
	})
}

// ReadNewsRemoval returns the removal entry for urlHash, or nil.
func ReadNewsRemoval(ctx context.Context, c *client.Client, urlHash string) *schema.NewsRemoval {
	node, err := removalChain(c, urlHash)
	if err != nil {
		return nil
	}
	return read[schema.NewsRemoval](ctx, c, node, schema.KindNewsRemoval, mesh.NewsPolicy)
}

func removalChain(c *client.Client, urlHash string) (*chain.Guarded, error) {
	h, err := mesh.RequireID(urlHash, "urlHash")
	if err != nil {
		return nil, err
	}
	return c.Mesh().Child("news").Child("removed").Child(h), nil
}
