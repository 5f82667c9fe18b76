package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/vhmesh/internal/topology"
)

// TopologyListing is the JSON shape of `topology list`.
type TopologyListing struct {
	Rules     []topology.Rule         `json:"rules"`
	Catalogue []topology.PathTemplate `json:"catalogue"`
}

// TopologyCheck is the JSON shape of `topology check`.
type TopologyCheck struct {
	Path      string                  `json:"path"`
	Class     topology.Classification `json:"class,omitempty"`
	Pattern   string                  `json:"pattern,omitempty"`
	Allowed   bool                    `json:"allowed"`
	Violation *Problem                `json:"violation,omitempty"`
}

// NewTopologyCommand creates the topology command group.
func NewTopologyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Inspect path classifications",
	}
	cmd.AddCommand(newTopologyListCommand(rootOpts))
	cmd.AddCommand(newTopologyCheckCommand(rootOpts))
	return cmd
}

func newTopologyListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List the rule table and the adapter path catalogue",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			listing := TopologyListing{
				Rules:     topology.NewGuard().Rules(),
				Catalogue: topology.Catalogue(),
			}
			return newReporter(rootOpts, cmd).Result(listing, func(w io.Writer) {
				writeTopologyText(w, listing)
			})
		},
	}
}

func writeTopologyText(w io.Writer, listing TopologyListing) {
	fmt.Fprintln(w, "RULES")
	for _, r := range listing.Rules {
		suffix := ""
		if r.AllowIdentityFields {
			suffix = "  [identity fields allowed]"
		}
		fmt.Fprintf(w, "  %-9s  %s%s\n", r.Class, r.Pattern, suffix)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "CATALOGUE")
	for _, pt := range listing.Catalogue {
		fmt.Fprintf(w, "  %-22s  %-9s  %s\n", pt.Name, pt.Class, pt.Template)
	}
}

func newTopologyCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var payloadFile string

	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Classify a path and optionally check a payload against it",
		Long: `Classify a mesh path against the rule table.

With --payload, the JSON or YAML file is checked the way a guarded write
would check it: identity fields are rejected on public paths and sensitive
paths require the encryption flag.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopologyCheck(rootOpts, cmd, args[0], payloadFile)
		},
	}
	cmd.Flags().StringVar(&payloadFile, "payload", "", "JSON or YAML payload to check")
	return cmd
}

func runTopologyCheck(opts *RootOptions, cmd *cobra.Command, path, payloadFile string) error {
	r := newReporter(opts, cmd)
	guard := topology.NewGuard()
	result := TopologyCheck{Path: path}

	rule, ok := guard.Classify(path)
	if ok {
		result.Class = rule.Class
		result.Pattern = rule.Pattern
	}
	r.Logf("Classified %s as %q", path, result.Class)

	var checkErr error
	if payloadFile != "" {
		payload, err := LoadPayload(payloadFile)
		if err != nil {
			return r.Fail(ExitCommandError, loadProblem(err))
		}
		checkErr = guard.ValidateWrite(path, payload)
	} else if !ok {
		checkErr = guard.ValidateWrite(path, nil)
	}

	text := func(w io.Writer) { writeCheckText(w, result) }
	if checkErr != nil {
		result.Violation = policyProblem(checkErr)
		return r.Reject(result, result.Violation, text)
	}
	result.Allowed = true
	return r.Result(result, text)
}

func writeCheckText(w io.Writer, result TopologyCheck) {
	if result.Allowed {
		fmt.Fprintf(w, "✓ %s: %s (%s)\n", result.Path, result.Class, result.Pattern)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", result.Path)
	fmt.Fprintf(w, "  %s: %s\n", result.Violation.Code, result.Violation.Message)
}
