package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/vhmesh/internal/schema"
)

// ValidationResult is the JSON shape of `validate`. Issues of an invalid
// payload are reported in the response error.
type ValidationResult struct {
	Valid bool        `json:"valid"`
	Kind  schema.Kind `json:"kind"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <kind> <file>",
		Short: "Validate a payload against a record definition",
		Long: `Validate a JSON or YAML payload against one of the record definitions
the adapters enforce before writing.

Kinds are matched case-insensitively. Cross-field rules such as time
windows and comment stances are checked along with field types.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, kindName, file string, cmd *cobra.Command) error {
	r := newReporter(opts, cmd)

	kind, ok := schema.ParseKind(kindName)
	if !ok {
		return r.Fail(ExitCommandError, &Problem{
			Code:    ErrCodeUnknownKind,
			Message: fmt.Sprintf("unknown kind %q", kindName),
			Known:   kindNames(),
		})
	}

	payload, err := LoadPayload(file)
	if err != nil {
		return r.Fail(ExitCommandError, loadProblem(err))
	}
	r.Logf("Loaded %s as %s", file, kind)

	registry, err := schema.NewRegistry()
	if err != nil {
		return r.Fail(ExitCommandError, problemOf(ErrCodeLoadFailed, err))
	}

	issues, err := ValidatePayload(registry, kind, payload)
	if err != nil {
		return r.Fail(ExitCommandError, problemOf(ErrCodeGeneric, err))
	}
	if len(issues) > 0 {
		p := &Problem{
			Code:    ErrCodeInvalidPayload,
			Message: fmt.Sprintf("validation failed with %d issue(s)", len(issues)),
			Issues:  issues,
		}
		return r.Reject(ValidationResult{Kind: kind}, p, func(w io.Writer) {
			fmt.Fprintf(w, "✗ Invalid %s\n\n", kind)
			for _, is := range issues {
				fmt.Fprintf(w, "  %s: %s\n", ErrCodeInvalidPayload, describeIssue(is))
			}
		})
	}
	return r.Result(ValidationResult{Valid: true, Kind: kind}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Valid %s\n", kind)
	})
}

func kindNames() []string {
	kinds := schema.Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// ValidatePayload validates payload against kind. Schema failures are
// returned as issues; err is reserved for anything else.
func ValidatePayload(registry *schema.Registry, kind schema.Kind, payload any) ([]schema.Issue, error) {
	_, err := registry.Validate(kind, payload)
	if err == nil {
		return nil, nil
	}
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		return ve.Issues, nil
	}
	return nil, err
}

func describeIssue(is schema.Issue) string {
	if is.Path == "" {
		return is.Message
	}
	return strings.TrimSpace(is.Path) + ": " + is.Message
}
