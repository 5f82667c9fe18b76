package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/vhmesh/internal/schema"
	"github.com/roach88/vhmesh/internal/topology"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a payload, path or record check failed
	ExitCommandError = 2 // the command could not run
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// GetExitCode extracts the exit code from err. Errors that do not carry
// one map to ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the JSON envelope every command prints with --format json.
type Response struct {
	Status string   `json:"status"` // "ok" or "error"
	Data   any      `json:"data,omitempty"`
	Error  *Problem `json:"error,omitempty"`
}

// Problem describes why a command or check failed. Only the fields that
// apply to the failure are set.
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Payload location, for load errors.
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`

	// Accepted kinds, for unknown kind errors.
	Known []string `json:"known,omitempty"`

	Policy *PolicyViolation `json:"policy,omitempty"`
	Issues []schema.Issue   `json:"issues,omitempty"`

	cause error
}

// PolicyViolation is the topology rule a path or payload broke.
type PolicyViolation struct {
	Code  topology.PolicyErrorCode `json:"code"`
	Path  string                   `json:"path"`
	Field string                   `json:"field,omitempty"`
}

func (p *Problem) Error() string {
	if p.File != "" && p.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", p.File, p.Line, p.Code, p.Message)
	}
	return fmt.Sprintf("%s: %s", p.Code, p.Message)
}

func (p *Problem) Unwrap() error { return p.cause }

// problemOf wraps err under code.
func problemOf(code string, err error) *Problem {
	return &Problem{Code: code, Message: err.Error(), cause: err}
}

// policyProblem describes a topology rejection.
func policyProblem(err error) *Problem {
	p := problemOf(ErrCodePolicy, err)
	var pe *topology.PolicyError
	if errors.As(err, &pe) {
		p.Policy = &PolicyViolation{Code: pe.Code, Path: pe.Path, Field: pe.Field}
	}
	return p
}

// Reporter prints command results as text or as a JSON Response.
// Diagnostics go to Diag so they never corrupt JSON on Out.
type Reporter struct {
	JSON    bool
	Out     io.Writer
	Diag    io.Writer
	Verbose bool
}

// Result prints a successful result. text renders the human form.
func (r *Reporter) Result(data any, text func(w io.Writer)) error {
	if r.JSON {
		return r.encode(Response{Status: "ok", Data: data})
	}
	text(r.Out)
	return nil
}

// Reject prints a failed check together with its data and returns an
// ExitFailure wrapping p.
func (r *Reporter) Reject(data any, p *Problem, text func(w io.Writer)) error {
	if r.JSON {
		if err := r.encode(Response{Status: "error", Data: data, Error: p}); err != nil {
			return err
		}
	} else {
		text(r.Out)
	}
	return &ExitError{Code: ExitFailure, Err: p}
}

// Fail prints p and returns it as an ExitError with exitCode.
func (r *Reporter) Fail(exitCode int, p *Problem) error {
	if r.JSON {
		_ = r.encode(Response{Status: "error", Error: p})
	} else {
		fmt.Fprintf(r.Out, "✗ %s\n", p.Error())
		if len(p.Known) > 0 {
			fmt.Fprintf(r.Out, "  known: %s\n", strings.Join(p.Known, ", "))
		}
	}
	return &ExitError{Code: exitCode, Err: p}
}

// Logf writes a diagnostic line when verbose.
func (r *Reporter) Logf(format string, args ...any) {
	if !r.Verbose || r.Diag == nil {
		return
	}
	fmt.Fprintf(r.Diag, format+"\n", args...)
}

func (r *Reporter) encode(resp Response) error {
	enc := json.NewEncoder(r.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
