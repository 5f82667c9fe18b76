package topology

import (
	"errors"
	"fmt"
)

// PolicyErrorCode categorizes topology violations.
type PolicyErrorCode string

const (
	// ErrCodeDisallowedPath indicates the path matches no rule. This is a
	// configuration error: every adapter path must be covered by the table.
	ErrCodeDisallowedPath PolicyErrorCode = "DISALLOWED_PATH"

	// ErrCodePIIInPublicPath indicates identity fields in a public payload.
	ErrCodePIIInPublicPath PolicyErrorCode = "PII_IN_PUBLIC_PATH"

	// ErrCodeUnencrypted indicates a sensitive write without the envelope flag.
	ErrCodeUnencrypted PolicyErrorCode = "UNENCRYPTED_SENSITIVE_WRITE"
)

// PolicyError is returned by Guard.ValidateWrite.
type PolicyError struct {
	Code    PolicyErrorCode
	Path    string
	Field   string // offending key for PII violations
	Message string
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (path=%s, field=%s)", e.Code, e.Message, e.Path, e.Field)
	}
	return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
}

// IsPolicyError reports whether err (or anything it wraps) is a PolicyError.
func IsPolicyError(err error) bool {
	var pe *PolicyError
	return errors.As(err, &pe)
}

// IsDisallowedPath reports whether err is an unmatched-path error.
func IsDisallowedPath(err error) bool {
	return hasCode(err, ErrCodeDisallowedPath)
}

// IsPIIViolation reports whether err is a PII-in-public-path error.
func IsPIIViolation(err error) bool {
	return hasCode(err, ErrCodePIIInPublicPath)
}

// IsUnencrypted reports whether err is a missing-envelope error.
func IsUnencrypted(err error) bool {
	return hasCode(err, ErrCodeUnencrypted)
}

func hasCode(err error, code PolicyErrorCode) bool {
	var pe *PolicyError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}
