// Package schema validates domain artifacts against CUE definitions.
//
// Every payload that crosses the mesh boundary is checked against a closed
// (or, for a few legacy shapes, open) definition in schemas.cue. Validation
// returns the canonical node: the JSON tree CUE produces after unification,
// with list defaults filled in. That node is what gets written.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schemas.cue
var schemasCUE string

// Kind names a domain artifact definition.
type Kind string

const (
	KindStoryBundle        Kind = "StoryBundle"
	KindNewsRemoval        Kind = "NewsRemoval"
	KindCandidateSynthesis Kind = "CandidateSynthesis"
	KindTopicSynthesis     Kind = "TopicSynthesis"
	KindTopicDigest        Kind = "TopicDigest"
	KindArticle            Kind = "Article"
	KindStoryAnalysis      Kind = "StoryAnalysis"
	KindAnalysisLatest     Kind = "AnalysisLatest"
	KindSentimentEvent     Kind = "SentimentEvent"
	KindAggregateVoter     Kind = "AggregateVoter"
	KindCivicAction        Kind = "CivicAction"
	KindDeliveryReceipt    Kind = "DeliveryReceipt"
	KindBridgeReport       Kind = "BridgeReport"
	KindRepStats           Kind = "RepStats"
	KindForumThread        Kind = "ForumThread"
	KindForumComment       Kind = "ForumComment"
	KindForumCommentV0     Kind = "ForumCommentV0"
	KindHermesMessage      Kind = "HermesMessage"
	KindDirectoryEntry     Kind = "DirectoryEntry"
	KindLinkedDevice       Kind = "LinkedDevice"
	KindDocument           Kind = "Document"
	KindDocumentOp         Kind = "DocumentOp"
	KindDocumentKeyShare   Kind = "DocumentKeyShare"
)

var allKinds = []Kind{
	KindStoryBundle, KindNewsRemoval, KindCandidateSynthesis, KindTopicSynthesis,
	KindTopicDigest, KindArticle, KindStoryAnalysis, KindAnalysisLatest,
	KindSentimentEvent, KindAggregateVoter, KindCivicAction, KindDeliveryReceipt,
	KindBridgeReport, KindRepStats, KindForumThread, KindForumComment,
	KindForumCommentV0, KindHermesMessage, KindDirectoryEntry, KindLinkedDevice,
	KindDocument, KindDocumentOp, KindDocumentKeyShare,
}

// Kinds returns every known kind in sorted order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseKind resolves a kind by name, case-insensitively.
func ParseKind(name string) (Kind, bool) {
	for _, k := range allKinds {
		if strings.EqualFold(string(k), name) {
			return k, true
		}
	}
	return "", false
}

// Issue is a single validation failure.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// ValidationError reports why a payload does not satisfy its definition.
type ValidationError struct {
	Kind   Kind
	Issues []Issue
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Path == "" {
			parts = append(parts, is.Message)
			continue
		}
		parts = append(parts, is.Path+": "+is.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Kind, strings.Join(parts, "; "))
}

// IsValidationError reports whether err is a schema validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Registry holds the compiled definitions.
//
// Thread-safety: a cue.Context is not safe for concurrent use, so every
// operation holds mu.
type Registry struct {
	mu   sync.Mutex
	ctx  *cue.Context
	defs map[Kind]cue.Value
}

// NewRegistry compiles the embedded definitions.
func NewRegistry() (*Registry, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(schemasCUE, cue.Filename("schemas.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile schemas: %w", err)
	}

	defs := make(map[Kind]cue.Value)
	for _, k := range Kinds() {
		def := root.LookupPath(cue.ParsePath("#" + string(k)))
		if !def.Exists() {
			return nil, fmt.Errorf("compile schemas: definition #%s not found", k)
		}
		defs[k] = def
	}
	return &Registry{ctx: ctx, defs: defs}, nil
}

// MustNewRegistry is NewRegistry that panics on error.
func MustNewRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// Validate checks v (a struct or decoded JSON tree) against kind and
// returns the canonical node.
func (r *Registry) Validate(kind Kind, v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &ValidationError{Kind: kind, Issues: []Issue{{Message: "not JSON encodable: " + err.Error()}}}
	}
	return r.ValidateJSON(kind, data)
}

// ValidateJSON is Validate for an encoded payload.
func (r *Registry) ValidateJSON(kind Kind, data []byte) (map[string]any, error) {
	canonical, err := r.unify(kind, data)
	if err != nil {
		return nil, err
	}

	var node map[string]any
	if err := json.Unmarshal(canonical, &node); err != nil || node == nil {
		return nil, &ValidationError{Kind: kind, Issues: []Issue{{Message: "expected an object"}}}
	}
	if check, ok := crossField[kind]; ok {
		if issues := check(node); len(issues) > 0 {
			return nil, &ValidationError{Kind: kind, Issues: issues}
		}
	}
	return node, nil
}

// Decode validates v against kind and decodes the canonical node into out.
func (r *Registry) Decode(kind Kind, v any, out any) error {
	node, err := r.Validate(kind, v)
	if err != nil {
		return err
	}
	data, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ValidationError{Kind: kind, Issues: []Issue{{Message: err.Error()}}}
	}
	return nil
}

func (r *Registry) unify(kind Kind, data []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.defs[kind]
	if !ok {
		return nil, &ValidationError{Kind: kind, Issues: []Issue{{Message: "unknown kind"}}}
	}

	value := r.ctx.CompileBytes(data, cue.Filename(string(kind)+".json"))
	if err := value.Err(); err != nil {
		return nil, &ValidationError{Kind: kind, Issues: issuesOf(err)}
	}

	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &ValidationError{Kind: kind, Issues: issuesOf(err)}
	}

	out, err := unified.MarshalJSON()
	if err != nil {
		return nil, &ValidationError{Kind: kind, Issues: issuesOf(err)}
	}
	return out, nil
}

// issuesOf flattens a CUE error list into issues, one per distinct path.
func issuesOf(err error) []Issue {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return []Issue{{Message: err.Error()}}
	}

	seen := make(map[string]bool)
	var issues []Issue
	for _, e := range errs {
		format, args := e.Msg()
		is := Issue{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		key := is.Path + "\x00" + is.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		issues = append(issues, is)
	}
	return issues
}
