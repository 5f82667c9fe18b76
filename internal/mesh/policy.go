// Package mesh implements the shared write/read/list protocol used by every
// domain adapter: forbidden-field policies, id normalization, metadata
// stripping and the validate-scan-put pipeline.
package mesh

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/vhmesh/internal/keyscan"
)

// KeyPolicy is a set of key names that must never appear in a domain's
// payloads. Keys are lower-cased before matching.
type KeyPolicy struct {
	Name     string
	Exact    []string
	Prefixes []string
	Suffixes []string
	Contains []string
}

// Forbidden reports whether key is rejected by the policy.
func (p *KeyPolicy) Forbidden(key string) bool {
	k := strings.ToLower(key)
	for _, e := range p.Exact {
		if k == e {
			return true
		}
	}
	for _, pre := range p.Prefixes {
		if strings.HasPrefix(k, pre) {
			return true
		}
	}
	for _, suf := range p.Suffixes {
		if strings.HasSuffix(k, suf) {
			return true
		}
	}
	for _, sub := range p.Contains {
		if strings.Contains(k, sub) {
			return true
		}
	}
	return false
}

// Check scans v recursively and returns *ForbiddenFieldError for the first
// forbidden key. A nil policy accepts everything.
func (p *KeyPolicy) Check(v any) error {
	if p == nil {
		return nil
	}
	if key, ok := keyscan.Find(v, p.Forbidden); ok {
		return &ForbiddenFieldError{Policy: p.Name, Field: key}
	}
	return nil
}

var tokenKeys = []string{
	"token",
	"access_token",
	"refresh_token",
	"id_token",
	"session_token",
	"auth_token",
	"oauth_token",
	"authorization",
	"bearer_token",
}

func withTokens(names ...string) []string {
	out := append([]string{}, names...)
	return append(out, tokenKeys...)
}

// NewsPolicy guards story bundles and the latest index.
var NewsPolicy = &KeyPolicy{
	Name: "news",
	Exact: withTokens(
		"identity", "identity_id", "nullifier",
		"devicepub", "device_pub", "epub",
		"email", "wallet", "address",
	),
	Prefixes: []string{"identity_"},
	Suffixes: []string{"_token"},
	Contains: []string{"oauth", "bearer", "nullifier"},
}

// SynthesisPolicy guards candidates, syntheses, digests and articles.
var SynthesisPolicy = &KeyPolicy{
	Name: "synthesis",
	Exact: withTokens(
		"identity", "identity_id", "nullifier", "district_hash",
		"email", "wallet", "address",
	),
	Prefixes: []string{"identity_"},
	Suffixes: []string{"_token"},
	Contains: []string{"oauth", "bearer", "nullifier"},
}

// AnalysisPolicy guards story analyses and their latest pointers.
var AnalysisPolicy = &KeyPolicy{
	Name:     "analysis",
	Exact:    SynthesisPolicy.Exact,
	Prefixes: SynthesisPolicy.Prefixes,
	Suffixes: SynthesisPolicy.Suffixes,
	Contains: SynthesisPolicy.Contains,
}

// AggregatePolicy guards public voter nodes.
var AggregatePolicy = &KeyPolicy{
	Name: "aggregate",
	Exact: []string{
		"nullifier", "district_hash", "constituency_proof", "merkle_root",
		"identity", "identity_id",
		"token", "access_token", "refresh_token", "auth_token", "oauth_token",
	},
	Prefixes: []string{"identity_"},
	Suffixes: []string{"_token"},
	Contains: []string{"oauth", "bearer", "nullifier"},
}

// ForumPolicy guards public threads and comments.
var ForumPolicy = &KeyPolicy{
	Name: "forum",
	Exact: withTokens(
		"identity", "identity_id", "nullifier", "district_hash",
		"constituency_proof", "email", "wallet", "address",
	),
	Prefixes: []string{"identity_"},
	Suffixes: []string{"_token"},
	Contains: []string{"oauth", "bearer", "nullifier"},
}

// DirectoryPolicy guards directory entries. Entries are keyed by and carry
// a nullifier, so only token keys are rejected.
var DirectoryPolicy = &KeyPolicy{
	Name:     "directory",
	Exact:    withTokens(),
	Suffixes: []string{"_token"},
	Contains: []string{"oauth", "bearer"},
}

// BridgePolicy guards civic actions, receipts, reports and rep stats.
// Only exact names are matched.
var BridgePolicy = &KeyPolicy{
	Name: "bridge",
	Exact: []string{
		"accesstoken", "access_token",
		"refreshtoken", "refresh_token",
		"bearer", "bearertoken", "bearer_token",
		"providersecret", "provider_secret", "secret",
		"privatemessagebody", "private_message_body",
		"token",
	},
}

// ForbiddenFieldError is returned when a payload carries a key its domain
// policy forbids.
type ForbiddenFieldError struct {
	Policy string
	Field  string
}

// Error implements the error interface.
func (e *ForbiddenFieldError) Error() string {
	return fmt.Sprintf("%s payload contains forbidden identity/token fields: %q", e.Policy, e.Field)
}

// IsForbiddenField reports whether err is a forbidden-field rejection.
func IsForbiddenField(err error) bool {
	var fe *ForbiddenFieldError
	return errors.As(err, &fe)
}
