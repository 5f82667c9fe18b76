package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/vhmesh/internal/ids"
)

// IDResult is the JSON shape of `id`.
type IDResult struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

type idKind struct {
	fields   []string
	optional int // trailing fields that may be omitted
	derive   func(args []string) (string, error)
}

var idKinds = map[string]idKind{
	"analysis-key": {
		fields:   []string{"storyId", "provenanceHash", "pipelineVersion", "modelScope", "schemaVersion"},
		optional: 1,
		derive: func(a []string) (string, error) {
			schemaVersion := ""
			if len(a) > 4 {
				schemaVersion = a[4]
			}
			return ids.AnalysisKey(a[0], a[1], a[2], a[3], schemaVersion), nil
		},
	},
	"point": {
		fields: []string{"analysisKey", "column", "text"},
		derive: func(a []string) (string, error) { return ids.PointID(a[0], a[1], a[2]), nil },
	},
	"voter": {
		fields: []string{"nullifier", "topicId"},
		derive: func(a []string) (string, error) { return ids.AggregateVoterID(a[0], a[1]), nil },
	},
	"sentiment-event": {
		fields: []string{"nullifier", "topicId", "epoch", "pointId"},
		derive: func(a []string) (string, error) {
			epoch, err := strconv.ParseFloat(a[2], 64)
			if err != nil {
				return "", fmt.Errorf("epoch: %w", err)
			}
			return ids.SentimentEventID(a[0], a[1], epoch, a[3]), nil
		},
	},
	"receipt": {
		fields: []string{"actionId", "attempt"},
		derive: func(a []string) (string, error) {
			attempt, err := strconv.Atoi(a[1])
			if err != nil {
				return "", fmt.Errorf("attempt: %w", err)
			}
			return ids.ReceiptID(a[0], attempt), nil
		},
	},
	"thread": {
		fields: []string{"author", "timestamp", "title"},
		derive: func(a []string) (string, error) {
			ts, err := parseTimestamp(a[1])
			if err != nil {
				return "", err
			}
			return ids.ThreadID(a[0], ts, a[2]), nil
		},
	},
	"comment": {
		fields: []string{"threadId", "author", "timestamp", "content"},
		derive: func(a []string) (string, error) {
			ts, err := parseTimestamp(a[2])
			if err != nil {
				return "", err
			}
			return ids.CommentID(a[0], a[1], ts, a[3]), nil
		},
	},
	"channel": {
		fields: []string{"participantA", "participantB"},
		derive: func(a []string) (string, error) { return ids.ChannelID(a[0], a[1]), nil },
	},
	"message": {
		fields: []string{"channelId", "sender", "timestamp", "content"},
		derive: func(a []string) (string, error) {
			ts, err := parseTimestamp(a[2])
			if err != nil {
				return "", err
			}
			return ids.MessageID(a[0], a[1], ts, a[3]), nil
		},
	},
	"doc-op": {
		fields: []string{"docId", "author", "seq"},
		derive: func(a []string) (string, error) {
			seq, err := strconv.ParseInt(a[2], 10, 64)
			if err != nil {
				return "", fmt.Errorf("seq: %w", err)
			}
			return ids.DocumentOpID(a[0], a[1], seq), nil
		},
	},
	"checksum": {
		fields: []string{"payloadFile"},
		derive: func(a []string) (string, error) {
			payload, err := LoadPayload(a[0])
			if err != nil {
				return "", err
			}
			return ids.Checksum(payload)
		},
	},
}

// IDKinds returns the names accepted by `id`, sorted.
func IDKinds() []string {
	names := make([]string, 0, len(idKinds))
	for name := range idKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeriveID computes the id of kind from its positional fields.
func DeriveID(kind string, args []string) (string, error) {
	k, ok := idKinds[kind]
	if !ok {
		return "", &LoadError{Code: ErrCodeUnknownKind, Message: fmt.Sprintf("unknown id kind %q (known: %s)", kind, strings.Join(IDKinds(), ", "))}
	}
	required := len(k.fields) - k.optional
	if len(args) < required || len(args) > len(k.fields) {
		return "", &LoadError{Code: ErrCodeBadArgument, Message: fmt.Sprintf("%s expects %s", kind, usageFields(k))}
	}
	id, err := k.derive(args)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return "", err
		}
		return "", &LoadError{Code: ErrCodeBadArgument, Message: fmt.Sprintf("%s: %v", kind, err)}
	}
	return id, nil
}

func usageFields(k idKind) string {
	parts := make([]string, len(k.fields))
	required := len(k.fields) - k.optional
	for i, f := range k.fields {
		if i >= required {
			parts[i] = "[" + f + "]"
			continue
		}
		parts[i] = "<" + f + ">"
	}
	return strings.Join(parts, " ")
}

func parseTimestamp(s string) (int64, error) {
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("timestamp: %w", err)
	}
	return ts, nil
}

// NewIDCommand creates the id command.
func NewIDCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "id <kind> <fields...>",
		Short: "Derive a deterministic id",
		Long: `Derive the deterministic id the adapters compute for a record.

Kinds: ` + strings.Join(IDKinds(), ", ") + `.

Examples:
  vhmesh id receipt action-1 0
  vhmesh id channel <devicePubA> <devicePubB>
  vhmesh id checksum action.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := newReporter(rootOpts, cmd)
			id, err := DeriveID(args[0], args[1:])
			if err != nil {
				p := loadProblem(err)
				if p.Code == ErrCodeUnknownKind {
					p.Known = IDKinds()
				}
				return r.Fail(ExitCommandError, p)
			}
			return r.Result(IDResult{Kind: args[0], ID: id}, func(w io.Writer) {
				fmt.Fprintln(w, id)
			})
		},
	}
	return cmd
}
