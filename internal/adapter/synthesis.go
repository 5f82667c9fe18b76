package adapter

import (
	"context"

	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/client"
	"github.com/roach88/vhmesh/internal/mesh"
	"github.com/roach88/vhmesh/internal/schema"
)

func topicChain(c *client.Client, topicID string) (*chain.Guarded, error) {
	id, err := mesh.RequireID(topicID, "topicId")
	if err != nil {
		return nil, err
	}
	return c.Mesh().Child("topics").Child(id), nil
}

func epochChain(c *client.Client, topicID string, epoch float64) (*chain.Guarded, error) {
	topic, err := topicChain(c, topicID)
	if err != nil {
		return nil, err
	}
	e, err := mesh.NormalizeEpoch(epoch)
	if err != nil {
		return nil, err
	}
	return topic.Child("epochs").Child(e), nil
}

// CandidatesChain returns vh/topics/<topicID>/epochs/<epoch>/candidates/.
func CandidatesChain(c *client.Client, topicID string, epoch float64) (*chain.Guarded, error) {
	e, err := epochChain(c, topicID, epoch)
	if err != nil {
		return nil, err
	}
	return e.Child("candidates"), nil
}

func candidateChain(c *client.Client, topicID string, epoch float64, candidateID string) (*chain.Guarded, error) {
	parent, err := CandidatesChain(c, topicID, epoch)
	if err != nil {
		return nil, err
	}
	id, err := mesh.RequireID(candidateID, "candidateId")
	if err != nil {
		return nil, err
	}
	return parent.Child(id), nil
}

func epochSynthesisChain(c *client.Client, topicID string, epoch float64) (*chain.Guarded, error) {
	e, err := epochChain(c, topicID, epoch)
	if err != nil {
		return nil, err
	}
	return e.Child("synthesis"), nil
}

func latestSynthesisChain(c *client.Client, topicID string) (*chain.Guarded, error) {
	topic, err := topicChain(c, topicID)
	if err != nil {
		return nil, err
	}
	return topic.Child("latest"), nil
}

func digestChain(c *client.Client, topicID, digestID string) (*chain.Guarded, error) {
	topic, err := topicChain(c, topicID)
	if err != nil {
		return nil, err
	}
	id, err := mesh.RequireID(digestID, "digestId")
	if err != nil {
		return nil, err
	}
	return topic.Child("digests").Child(id), nil
}

// WriteTopicEpochCandidate writes a candidate to
// vh/topics/<topic_id>/epochs/<epoch>/candidates/<candidate_id>/.
func WriteTopicEpochCandidate(ctx context.Context, c *client.Client, candidate any) (*schema.CandidateSynthesis, error) {
	return write(ctx, c, schema.KindCandidateSynthesis, mesh.SynthesisPolicy, candidate, func(v *schema.CandidateSynthesis) (chain.Chain, error) {
		return candidateChain(c, v.TopicID, float64(v.Epoch), v.CandidateID)
	})
}

// ReadTopicEpochCandidate returns one candidate, or nil.
func ReadTopicEpochCandidate(ctx context.Context, c *client.Client, topicID string, epoch float64, candidateID string) *schema.CandidateSynthesis {
	node, err := candidateChain(c, topicID, epoch, candidateID)
	if err != nil {
		return nil
	}
	return read[schema.CandidateSynthesis](ctx, c, node, schema.KindCandidateSynthesis, mesh.SynthesisPolicy)
}

// ReadTopicEpochCandidates returns every valid candidate of an epoch,
// ordered by candidate id.
func ReadTopicEpochCandidates(ctx context.Context, c *client.Client, topicID string, epoch float64) []schema.CandidateSynthesis {
	node, err := CandidatesChain(c, topicID, epoch)
	if err != nil {
		return []schema.CandidateSynthesis{}
	}
	return mesh.List(ctx, c.Env(), node, schema.KindCandidateSynthesis, mesh.SynthesisPolicy,
		func(a, b schema.CandidateSynthesis) bool { return a.CandidateID < b.CandidateID })
}

// WriteTopicEpochSynthesis writes the accepted synthesis of an epoch.
func WriteTopicEpochSynthesis(ctx context.Context, c *client.Client, synthesis any) (*schema.TopicSynthesis, error) {
	return write(ctx, c, schema.KindTopicSynthesis, mesh.SynthesisPolicy, synthesis, func(v *schema.TopicSynthesis) (chain.Chain, error) {
		return epochSynthesisChain(c, v.TopicID, float64(v.Epoch))
	})
}

// ReadTopicEpochSynthesis returns the synthesis of an epoch, or nil.
func ReadTopicEpochSynthesis(ctx context.Context, c *client.Client, topicID string, epoch float64) *schema.TopicSynthesis {
	node, err := epochSynthesisChain(c, topicID, epoch)
	if err != nil {
		return nil
	}
	return read[schema.TopicSynthesis](ctx, c, node, schema.KindTopicSynthesis, mesh.SynthesisPolicy)
}

// WriteTopicLatestSynthesis writes synthesis to vh/topics/<topic_id>/latest/.
func WriteTopicLatestSynthesis(ctx context.Context, c *client.Client, synthesis any) (*schema.TopicSynthesis, error) {
	return write(ctx, c, schema.KindTopicSynthesis, mesh.SynthesisPolicy, synthesis, func(v *schema.TopicSynthesis) (chain.Chain, error) {
		return latestSynthesisChain(c, v.TopicID)
	})
}

// ReadTopicLatestSynthesis returns the latest synthesis of a topic, or nil.
func ReadTopicLatestSynthesis(ctx context.Context, c *client.Client, topicID string) *schema.TopicSynthesis {
	node, err := latestSynthesisChain(c, topicID)
	if err != nil {
		return nil
	}
	return read[schema.TopicSynthesis](ctx, c, node, schema.KindTopicSynthesis, mesh.SynthesisPolicy)
}

// WriteTopicSynthesis writes the epoch synthesis, then the latest pointer.
// A failure of the first write leaves latest untouched.
func WriteTopicSynthesis(ctx context.Context, c *client.Client, synthesis any) (*schema.TopicSynthesis, error) {
	s, err := WriteTopicEpochSynthesis(ctx, c, synthesis)
	if err != nil {
		return nil, err
	}
	return WriteTopicLatestSynthesis(ctx, c, s)
}

// WriteTopicDigest writes a digest to vh/topics/<topic_id>/digests/<digest_id>/.
func WriteTopicDigest(ctx context.Context, c *client.Client, digest any) (*schema.TopicDigest, error) {
	return write(ctx, c, schema.KindTopicDigest, mesh.SynthesisPolicy, digest, func(v *schema.TopicDigest) (chain.Chain, error) {
		return digestChain(c, v.TopicID, v.DigestID)
	})
}

// ReadTopicDigest returns a digest, or nil.
func ReadTopicDigest(ctx context.Context, c *client.Client, topicID, digestID string) *schema.TopicDigest {
	node, err := digestChain(c, topicID, digestID)
	if err != nil {
		return nil
	}
	return read[schema.TopicDigest](ctx, c, node, schema.KindTopicDigest, mesh.SynthesisPolicy)
}
