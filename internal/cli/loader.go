package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadError represents an error that occurred while loading a payload file.
type LoadError struct {
	Code    string
	Message string
	File    string
	Line    int // YAML line if available
}

func (e *LoadError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// loadProblem describes a payload or argument error, keeping the file
// location when there is one.
func loadProblem(err error) *Problem {
	var le *LoadError
	if errors.As(err, &le) {
		return &Problem{Code: le.Code, Message: le.Message, File: le.File, Line: le.Line, cause: err}
	}
	return problemOf(ErrCodeGeneric, err)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeParseFailed  = "E002" // Payload parse error
	ErrCodeEmptyPayload = "E003" // Payload file is empty
	ErrCodeLoadFailed   = "E004" // Config or store load failed
	ErrCodeNotFound     = "E005" // File or key not found
	ErrCodeUnknownKind  = "E006" // Unknown schema or id kind
	ErrCodeWriteFailed  = "E007" // Store write error

	// Payload checks
	ErrCodeInvalidPayload = "E101" // Schema validation failed
	ErrCodePolicy         = "E102" // Topology policy violation
	ErrCodeBadArgument    = "E103" // Malformed command argument
)

// LoadPayload reads a JSON or YAML payload file and returns it as a JSON
// tree (maps, slices, strings, float64, bools and nil). Files ending in
// .yaml or .yml are parsed as YAML; everything else as JSON.
func LoadPayload(path string) (any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("payload file not found: %s", path), File: path}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error reading payload: %v", err), File: path}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &LoadError{Code: ErrCodeEmptyPayload, Message: fmt.Sprintf("payload file is empty: %s", path), File: path}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(path, data)
	default:
		return ParsePayload(data)
	}
}

// ParsePayload decodes an inline JSON payload.
func ParsePayload(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("parsing JSON: %v", err)}
	}
	return v, nil
}

func parseYAML(path string, data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("parsing YAML: %v", err), File: path}
	}
	var v any
	if err := doc.Decode(&v); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("decoding YAML: %v", err), File: path, Line: doc.Line}
	}

	// Re-encode through JSON so YAML ints and typed maps become the same
	// tree a JSON payload would produce.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("payload is not JSON compatible: %v", err), File: path, Line: doc.Line}
	}
	return ParsePayload(raw)
}
