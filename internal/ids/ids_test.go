package ids

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownVectors(t *testing.T) {
	assert.Equal(t,
		"4901b5ef1c9e8a546f6bd89f7736a17a4d2fae2a7421f1cff58cf41a6d14e7c8",
		AggregateVoterID("  NULL-1 ", "Topic-1"))

	assert.Equal(t,
		"2f0f402cfe2759587cc89b556828fced93ebb91e10547e8c7054cfb26809796f",
		AnalysisKey("story-1", "prov-1", "pipe-v1", "model-a", ""))
	assert.Equal(t,
		AnalysisKey("story-1", "prov-1", "pipe-v1", "model-a", ""),
		AnalysisKey("story-1", "prov-1", "pipe-v1", "model-a", DefaultAnalysisSchemaVersion))

	assert.Equal(t,
		"b5bc544d3fc427de172606f4623c5b4ca9356a3ee17d30d0a5f25d1d65397879",
		SentimentEventID("null-1", "topic-1", 3.9, "point-1"))

	assert.Equal(t, "receipt-7f7c31ffda0f403b", ReceiptID("action-1", 2))

	assert.Equal(t,
		"cf6b6703e37bd4cd3c02a0f24dbb26c2ce41214d70ddf1cab9ad73f731149121",
		PointID("ABC", "frame", "  Hello \n\t World "))
}

func TestSentimentEventID_EpochClamp(t *testing.T) {
	assert.Equal(t, SentimentEventID("n", "t", 0, "p"), SentimentEventID("n", "t", -4, "p"))
	assert.Equal(t, SentimentEventID("n", "t", 2, "p"), SentimentEventID("n", "t", 2.7, "p"))
	assert.NotEqual(t, SentimentEventID("n", "t", 1, "p"), SentimentEventID("n", "t", 2, "p"))
}

func TestPointID_ColumnIsVerbatim(t *testing.T) {
	assert.NotEqual(t, PointID("k", "frame", "x"), PointID("k", "Frame", "x"))
}

func TestChannelID_Symmetric(t *testing.T) {
	assert.Equal(t, ChannelID("alice", "bob"), ChannelID("Bob ", "alice"))
	assert.NotEqual(t, ChannelID("alice", "bob"), ChannelID("alice", "carol"))
	assert.True(t, strings.HasPrefix(ChannelID("a", "b"), "channel-"))
}

func TestMessageID_ContentCaseSensitive(t *testing.T) {
	assert.NotEqual(t, MessageID("c", "s", 1, "Hi"), MessageID("c", "s", 1, "hi"))
	assert.Equal(t, MessageID("C", "s", 1, "Hi"), MessageID("c", "S", 1, "Hi"))
}

func TestPrefixedIDs(t *testing.T) {
	assert.Regexp(t, `^thread-[0-9a-f]{32}$`, ThreadID("author", 1, "Title"))
	assert.Regexp(t, `^comment-[0-9a-f]{32}$`, CommentID("thread-1", "author", 1, "text"))
	assert.Regexp(t, `^msg-[0-9a-f]{32}$`, MessageID("c", "s", 1, "text"))
	assert.Regexp(t, `^op-[0-9a-f]{32}$`, DocumentOpID("doc", "author", 7))
	assert.Regexp(t, `^receipt-[0-9a-f]{16}$`, ReceiptID("a", 1))
}

func TestNormalizeToken_NFC(t *testing.T) {
	assert.Equal(t, NormalizeToken("caf\u00e9"), NormalizeToken("cafe\u0301"))
	assert.Equal(t, "a b c", NormalizeText(" A\n\nB   c "))
}

func TestChecksum_Canonical(t *testing.T) {
	sum, err := Checksum(map[string]any{"b": 1.5, "a": "x"})
	require.NoError(t, err)
	assert.Equal(t, "099f4bcf556f24a56bad74cab2ccce1a7c040735ddb42f2a0df2043a865b5271", sum)

	type ordered struct {
		B float64 `json:"b"`
		A string  `json:"a"`
	}
	assert.Equal(t, sum, MustChecksum(ordered{B: 1.5, A: "x"}), "field order does not matter")

	_, err = Checksum(func() {})
	assert.Error(t, err)
	assert.Panics(t, func() { MustChecksum(make(chan int)) })
}

func TestProperty_IdentifiersAreDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("same inputs, same id", prop.ForAll(
		func(a, b string, n int) bool {
			return AggregateVoterID(a, b) == AggregateVoterID(a, b) &&
				ReceiptID(a, n) == ReceiptID(a, n) &&
				SentimentEventID(a, b, float64(n), a) == SentimentEventID(a, b, float64(n), a)
		},
		gen.AnyString(),
		gen.AnyString(),
		gen.IntRange(0, 1000),
	))

	properties.Property("different natural keys, different ids", prop.ForAll(
		func(a, b string) bool {
			if NormalizeToken(a) == NormalizeToken(b) {
				return true
			}
			return AggregateVoterID(a, "topic") != AggregateVoterID(b, "topic")
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("receipt attempts never collide", prop.ForAll(
		func(action string, n int) bool {
			return ReceiptID(action, n) != ReceiptID(action, n+1)
		},
		gen.Identifier(),
		gen.IntRange(0, 10000),
	))

	properties.TestingRun(t)
}
