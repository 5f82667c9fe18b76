// Package ids derives deterministic identifiers for mesh artifacts.
//
// An identifier is the hex SHA-256 of a seed string built from the
// artifact's natural key: each token is NFC normalized, trimmed and
// lower-cased, and tokens are joined with "|". The same inputs always yield
// the same identifier, so retries are idempotent and devices agree without
// coordination.
package ids

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"
)

// DefaultAnalysisSchemaVersion is the analysis artifact version used when
// none is given.
const DefaultAnalysisSchemaVersion = "story-analysis-v1"

// ReceiptPrefix prefixes every delivery receipt id.
const ReceiptPrefix = "receipt-"

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeToken canonicalizes one seed token.
func NormalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// NormalizeText canonicalizes free text: runs of whitespace collapse to a
// single space.
func NormalizeText(s string) string {
	return whitespace.ReplaceAllString(NormalizeToken(s), " ")
}

// Seed joins already-normalized tokens.
func Seed(tokens ...string) string {
	return strings.Join(tokens, "|")
}

// Hash returns the hex SHA-256 of seed.
func Hash(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

func hashTokens(tokens ...string) string {
	normalized := make([]string, len(tokens))
	for i, t := range tokens {
		normalized[i] = NormalizeToken(t)
	}
	return Hash(Seed(normalized...))
}

// AnalysisKey identifies one analysis of a story. An empty schemaVersion
// means DefaultAnalysisSchemaVersion.
func AnalysisKey(storyID, provenanceHash, pipelineVersion, modelScope, schemaVersion string) string {
	if strings.TrimSpace(schemaVersion) == "" {
		schemaVersion = DefaultAnalysisSchemaVersion
	}
	return hashTokens(storyID, provenanceHash, pipelineVersion, modelScope, schemaVersion)
}

// PointID identifies a frame or reframe point within an analysis. column
// is used verbatim; text is whitespace-collapsed.
func PointID(analysisKey, column, text string) string {
	return Hash(Seed(NormalizeToken(analysisKey), column, NormalizeText(text)))
}

// AggregateVoterID identifies a voter within a topic without exposing the
// nullifier.
func AggregateVoterID(nullifier, topicID string) string {
	return hashTokens(nullifier, topicID)
}

// SentimentEventID identifies one sentiment signal. Negative or fractional
// epochs are floored at zero.
func SentimentEventID(nullifier, topicID string, epoch float64, pointID string) string {
	e := math.Floor(epoch)
	if e < 0 || math.IsNaN(e) {
		e = 0
	}
	return Hash(Seed(
		NormalizeToken(nullifier),
		NormalizeToken(topicID),
		strconv.FormatFloat(e, 'f', 0, 64),
		NormalizeToken(pointID),
	))
}

// ReceiptID identifies the delivery receipt for attempt of actionID.
func ReceiptID(actionID string, attempt int) string {
	return ReceiptPrefix + hashTokens(actionID, strconv.Itoa(attempt))[:16]
}

// ThreadID identifies a forum thread.
func ThreadID(author string, timestamp int64, title string) string {
	return "thread-" + hashTokens("thread", author, strconv.FormatInt(timestamp, 10), title)[:32]
}

// CommentID identifies a comment within a thread.
func CommentID(threadID, author string, timestamp int64, content string) string {
	return "comment-" + Hash(Seed(
		"comment",
		NormalizeToken(threadID),
		NormalizeToken(author),
		strconv.FormatInt(timestamp, 10),
		NormalizeText(content),
	))[:32]
}

// ChannelID identifies the direct channel between two participants. The
// order of the arguments does not matter.
func ChannelID(a, b string) string {
	pair := []string{NormalizeToken(a), NormalizeToken(b)}
	sort.Strings(pair)
	return "channel-" + Hash(Seed("channel", pair[0], pair[1]))[:32]
}

// MessageID identifies a message within a channel. content is hashed as
// given since message bodies are case sensitive.
func MessageID(channelID, sender string, timestamp int64, content string) string {
	return "msg-" + Hash(Seed(
		"message",
		NormalizeToken(channelID),
		NormalizeToken(sender),
		strconv.FormatInt(timestamp, 10),
		Hash(content),
	))[:32]
}

// DocumentOpID identifies a document operation by author and sequence.
func DocumentOpID(docID, author string, seq int64) string {
	return "op-" + hashTokens("doc-op", docID, author, strconv.FormatInt(seq, 10))[:32]
}

// Checksum returns the hex SHA-256 of v's RFC 8785 canonical JSON.
func Checksum(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("Checksum: failed to marshal: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("Checksum: failed to canonicalize: %w", err)
	}
	return Hash(string(canonical)), nil
}

// MustChecksum is like Checksum but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustChecksum(v any) string {
	sum, err := Checksum(v)
	if err != nil {
		panic(err)
	}
	return sum
}
