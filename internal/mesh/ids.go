package mesh

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// RequiredError is returned when an id or path component is missing or
// malformed.
type RequiredError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *RequiredError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Field + " is required"
}

// IsRequiredError reports whether err is a missing-argument error.
func IsRequiredError(err error) bool {
	var re *RequiredError
	return errors.As(err, &re)
}

// RequireID trims value and rejects it when empty. Ids become path
// segments, so a "/" is rejected too.
func RequireID(value, name string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", &RequiredError{Field: name}
	}
	if strings.Contains(v, "/") {
		return "", &RequiredError{Field: name, Message: name + " must not contain '/'"}
	}
	return v, nil
}

// NormalizeEpoch renders a non-negative finite epoch as its floor.
func NormalizeEpoch(epoch float64) (string, error) {
	if math.IsNaN(epoch) || math.IsInf(epoch, 0) || epoch < 0 {
		return "", &RequiredError{Field: "epoch", Message: "epoch must be a non-negative finite number"}
	}
	return strconv.FormatInt(int64(math.Floor(epoch)), 10), nil
}
