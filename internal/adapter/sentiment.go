package adapter

import (
	"context"
	"math"

	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/client"
	"github.com/roach88/vhmesh/internal/ids"
	"github.com/roach88/vhmesh/internal/mesh"
	"github.com/roach88/vhmesh/internal/schema"
)

// SentimentOutboxChain returns ~<pub>/outbox/sentiment/.
func SentimentOutboxChain(c *client.Client) *chain.Guarded {
	return c.User().Child("outbox").Child("sentiment")
}

// WriteSentimentEvent seals event into the user's sentiment outbox under
// its derived event id and returns that id.
func WriteSentimentEvent(ctx context.Context, c *client.Client, event any) (string, *schema.SentimentEvent, error) {
	var eventID string
	e, err := writeSealed(ctx, c, schema.KindSentimentEvent, nil, event, func(v *schema.SentimentEvent) (chain.Chain, error) {
		eventID = ids.SentimentEventID(v.ConstituencyProof.Nullifier, v.TopicID, float64(v.Epoch), v.PointID)
		return SentimentOutboxChain(c).Child(eventID), nil
	})
	if err != nil {
		return "", nil, err
	}
	return eventID, e, nil
}

// ReadUserEvents returns this user's events for topicID and the floor of
// epoch, oldest first.
func ReadUserEvents(ctx context.Context, c *client.Client, topicID string, epoch float64) []schema.SentimentEvent {
	topic, err := mesh.RequireID(topicID, "topicId")
	if err != nil {
		return []schema.SentimentEvent{}
	}
	want := int(math.Floor(epoch))

	all := listSealed[schema.SentimentEvent](ctx, c, SentimentOutboxChain(c), schema.KindSentimentEvent, nil)
	out := all[:0]
	for _, e := range all {
		if e.TopicID == topic && e.Epoch == want {
			out = append(out, e)
		}
	}
	sortStable(out, func(a, b schema.SentimentEvent) bool { return a.EmittedAt < b.EmittedAt })
	return out
}
