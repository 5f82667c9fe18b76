package adapter

import (
	"context"

	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/client"
	"github.com/roach88/vhmesh/internal/mesh"
	"github.com/roach88/vhmesh/internal/schema"
)

// PointAggregate tallies the public votes on one synthesis point.
type PointAggregate struct {
	PointID      string  `json:"point_id"`
	Agree        int     `json:"agree"`
	Disagree     int     `json:"disagree"`
	Weight       float64 `json:"weight"`
	Participants int     `json:"participants"`
}

// VotersChain returns
// vh/aggregates/topics/<topicID>/syntheses/<synthesisID>/epochs/<epoch>/voters/.
func VotersChain(c *client.Client, topicID, synthesisID string, epoch float64) (*chain.Guarded, error) {
	topic, err := mesh.RequireID(topicID, "topicId")
	if err != nil {
		return nil, err
	}
	synth, err := mesh.RequireID(synthesisID, "synthesisId")
	if err != nil {
		return nil, err
	}
	e, err := mesh.NormalizeEpoch(epoch)
	if err != nil {
		return nil, err
	}
	return c.Mesh().Child("aggregates").Child("topics").Child(topic).
		Child("syntheses").Child(synth).
		Child("epochs").Child(e).
		Child("voters"), nil
}

// WriteVoterNode writes one voter's vote on one point at
// .../voters/<voterID>/<point_id>/. voterID is expected to come from
// ids.AggregateVoterID so no nullifier reaches the public path.
func WriteVoterNode(ctx context.Context, c *client.Client, topicID, synthesisID string, epoch float64, voterID string, node any) (*schema.AggregateVoter, error) {
	voters, err := VotersChain(c, topicID, synthesisID, epoch)
	if err != nil {
		return nil, err
	}
	voter, err := mesh.RequireID(voterID, "voterId")
	if err != nil {
		return nil, err
	}
	return write(ctx, c, schema.KindAggregateVoter, mesh.AggregatePolicy, node, func(v *schema.AggregateVoter) (chain.Chain, error) {
		point, err := mesh.RequireID(v.PointID, "pointId")
		if err != nil {
			return nil, err
		}
		return voters.Child(voter).Child(point), nil
	})
}

// ReadAggregates tallies every voter's vote on pointID. Neutral votes are
// not counted; invalid voter nodes are skipped.
func ReadAggregates(ctx context.Context, c *client.Client, topicID, synthesisID string, epoch float64, pointID string) PointAggregate {
	agg := PointAggregate{PointID: pointID}
	voters, err := VotersChain(c, topicID, synthesisID, epoch)
	if err != nil {
		return agg
	}
	point, err := mesh.RequireID(pointID, "pointId")
	if err != nil {
		return agg
	}
	agg.PointID = point

	env := c.Env()
	children := env.Children(ctx, voters)
	for _, id := range mesh.SortedKeys(children) {
		votes, ok := mesh.StripMeta(children[id]).(map[string]any)
		if !ok {
			continue
		}
		var vote schema.AggregateVoter
		if !env.Decode(votes[point], schema.KindAggregateVoter, mesh.AggregatePolicy, &vote) {
			continue
		}
		switch vote.Agreement {
		case 1:
			agg.Agree++
		case -1:
			agg.Disagree++
		default:
			continue
		}
		agg.Weight += vote.Weight
		agg.Participants++
	}
	return agg
}
