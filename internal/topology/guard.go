// Package topology classifies mesh paths and enforces what may be written
// to them.
//
// Every write path maps to exactly one classification:
//
//   - public: replicated in the clear; identity fields are forbidden
//   - sensitive: replicated only inside an encryption envelope
//   - local: never leaves the device; no runtime check
//
// Rules are checked in declaration order and the first match wins. A Guard
// copies its rule table at construction, so the table is fixed for the
// lifetime of the guard. ValidateWrite is pure and synchronous: it performs
// no I/O and must run before any network or storage effect.
package topology

import (
	"encoding/json"
	"path"
	"reflect"
	"strings"

	"github.com/roach88/vhmesh/internal/keyscan"
)

// Classification is the topology class of a path.
type Classification string

const (
	Public    Classification = "public"
	Sensitive Classification = "sensitive"
	Local     Classification = "local"
)

// EncryptedFlag is the envelope marker key required on sensitive writes.
const EncryptedFlag = "__encrypted"

// piiFragments are the key-name fragments that make a public payload invalid.
var piiFragments = []string{"nullifier", "district_hash", "email", "wallet", "address"}

// Rule pins a path pattern to a classification.
//
// Pattern segments are separated by "/". A literal pattern is an exact
// prefix. A "*" segment (or a glob inside a segment, such as "~*") matches
// exactly one non-empty path segment; a "**" segment matches any suffix.
// Wildcards never cross a "/".
type Rule struct {
	Pattern             string         `json:"pattern" yaml:"pattern"`
	Class               Classification `json:"class" yaml:"class"`
	AllowIdentityFields bool           `json:"allow_identity_fields,omitempty" yaml:"allow_identity_fields,omitempty"`
}

// Encrypted is implemented by payload types that carry the envelope flag.
type Encrypted interface {
	IsEncrypted() bool
}

// Guard validates writes against a fixed rule table.
type Guard struct {
	rules []Rule
}

// NewGuard creates a guard over rules. With no rules, DefaultRules is used.
func NewGuard(rules ...Rule) *Guard {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	owned := make([]Rule, len(rules))
	copy(owned, rules)
	return &Guard{rules: owned}
}

// Rules returns a copy of the rule table in match order.
func (g *Guard) Rules() []Rule {
	out := make([]Rule, len(g.rules))
	copy(out, g.rules)
	return out
}

// Classify returns the first rule matching p.
func (g *Guard) Classify(p string) (Rule, bool) {
	for _, r := range g.rules {
		if Match(r.Pattern, p) {
			return r, true
		}
	}
	return Rule{}, false
}

// ValidateWrite checks payload against the classification of p.
func (g *Guard) ValidateWrite(p string, payload any) error {
	rule, ok := g.Classify(p)
	if !ok {
		return &PolicyError{Code: ErrCodeDisallowedPath, Path: p, Message: "disallowed path"}
	}

	switch rule.Class {
	case Public:
		if rule.AllowIdentityFields {
			return nil
		}
		if key, found := keyscan.Find(normalize(payload), isPIIKey); found {
			return &PolicyError{
				Code:    ErrCodePIIInPublicPath,
				Path:    p,
				Field:   key,
				Message: "PII in public path",
			}
		}
	case Sensitive:
		if !hasEncryptedFlag(payload) {
			return &PolicyError{
				Code:    ErrCodeUnencrypted,
				Path:    p,
				Message: "sensitive write without encryption flag",
			}
		}
	case Local:
	}
	return nil
}

func isPIIKey(key string) bool {
	k := strings.ToLower(key)
	for _, frag := range piiFragments {
		if strings.Contains(k, frag) {
			return true
		}
	}
	return false
}

func hasEncryptedFlag(payload any) bool {
	switch v := payload.(type) {
	case nil:
		return false
	case Encrypted:
		return v.IsEncrypted()
	case map[string]any:
		flag, ok := v[EncryptedFlag].(bool)
		return ok && flag
	}
	m, ok := normalize(payload).(map[string]any)
	if !ok {
		return false
	}
	flag, ok := m[EncryptedFlag].(bool)
	return ok && flag
}

// normalize turns typed payloads (structs, typed maps) into their JSON tree
// so key names are the ones that will actually be replicated. JSON-shaped
// values pass through untouched, which keeps identity for cycle detection.
func normalize(payload any) any {
	switch payload.(type) {
	case nil, map[string]any, []any, string, bool, float64, int, int64, json.Number:
		return payload
	}
	rv := reflect.ValueOf(payload)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return payload
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return payload
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return payload
	}
	return tree
}

// Match reports whether pattern matches path p under the prefix semantics
// described on Rule.
func Match(pattern, p string) bool {
	patSegs := strings.Split(pattern, "/")
	pathSegs := strings.Split(p, "/")

	last := len(patSegs) - 1
	for i, seg := range patSegs {
		if seg == "**" {
			return true
		}
		if i == last {
			if seg == "" {
				// Pattern ended with "/": the path must continue past it.
				return len(pathSegs) > i
			}
			if i >= len(pathSegs) {
				return false
			}
			if hasGlob(seg) {
				return matchSegment(seg, pathSegs[i])
			}
			return strings.HasPrefix(pathSegs[i], seg)
		}
		if i >= len(pathSegs) || !matchSegment(seg, pathSegs[i]) {
			return false
		}
		// A complete segment in the pattern needs a "/" after it in the path.
		if i == len(pathSegs)-1 {
			return false
		}
	}
	return true
}

func hasGlob(seg string) bool {
	return strings.ContainsAny(seg, "*?[")
}

func matchSegment(pattern, seg string) bool {
	if !hasGlob(pattern) {
		return pattern == seg
	}
	if seg == "" {
		return false
	}
	ok, err := path.Match(pattern, seg)
	return err == nil && ok
}
