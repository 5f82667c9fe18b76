package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/vhmesh/internal/config"
	"github.com/roach88/vhmesh/internal/storage"
)

// StoreOptions holds flags shared by the store subcommands.
type StoreOptions struct {
	DBPath string
}

// StoreGetResult is the JSON shape of `store get`.
type StoreGetResult struct {
	Key       string `json:"key"`
	Value     any    `json:"value"`
	UpdatedAt int64  `json:"updatedAt"`
}

// NewStoreCommand creates the store command group.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	storeOpts := &StoreOptions{}

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Read and write the encrypted local store",
		Long: `Read and write records in the encrypted SQLite store a client persists
its graph to.

The store path and key material come from --config and the VH_* environment
variables; --db overrides the path.`,
	}
	cmd.PersistentFlags().StringVar(&storeOpts.DBPath, "db", "", "path to the SQLite store (overrides config)")

	cmd.AddCommand(newStorePutCommand(rootOpts, storeOpts))
	cmd.AddCommand(newStoreGetCommand(rootOpts, storeOpts))
	cmd.AddCommand(newStoreKeysCommand(rootOpts, storeOpts))
	return cmd
}

// openStore resolves configuration and opens the SQLite store.
func openStore(rootOpts *RootOptions, storeOpts *StoreOptions, r *Reporter) (*storage.SQLite, error) {
	cfg, err := config.Load(rootOpts.Config)
	if err != nil {
		return nil, r.Fail(ExitCommandError, problemOf(ErrCodeLoadFailed, err))
	}
	path := cfg.Storage.Path
	if storeOpts.DBPath != "" {
		path = storeOpts.DBPath
	}
	if path == "" {
		return nil, r.Fail(ExitCommandError, &Problem{Code: ErrCodeNotFound, Message: "no store path: pass --db or set storage.path"})
	}
	r.Logf("Opening store at %s", path)

	s, err := storage.OpenSQLite(path, cfg.KeySource(), nil, nil)
	if err != nil {
		return nil, r.Fail(ExitCommandError, problemOf(ErrCodeLoadFailed, err))
	}
	return s, nil
}

func newStorePutCommand(rootOpts *RootOptions, storeOpts *StoreOptions) *cobra.Command {
	var inline string

	cmd := &cobra.Command{
		Use:           "put <key> [payload-file]",
		Short:         "Encrypt and store a JSON or YAML payload",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := newReporter(rootOpts, cmd)

			var (
				value any
				err   error
			)
			switch {
			case len(args) == 2 && inline != "":
				return r.Fail(ExitCommandError, &Problem{Code: ErrCodeBadArgument, Message: "pass either a payload file or --value, not both"})
			case len(args) == 2:
				value, err = LoadPayload(args[1])
			case inline != "":
				value, err = ParsePayload([]byte(inline))
			default:
				return r.Fail(ExitCommandError, &Problem{Code: ErrCodeBadArgument, Message: "missing payload: pass a file or --value"})
			}
			if err != nil {
				return r.Fail(ExitCommandError, loadProblem(err))
			}

			s, err := openStore(rootOpts, storeOpts, r)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Write(cmd.Context(), storage.Record{Key: args[0], Value: value}); err != nil {
				return r.Fail(ExitCommandError, problemOf(ErrCodeWriteFailed, err))
			}
			return r.Result(map[string]string{"key": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Stored %s\n", args[0])
			})
		},
	}
	cmd.Flags().StringVar(&inline, "value", "", "inline JSON value")
	return cmd
}

func newStoreGetCommand(rootOpts *RootOptions, storeOpts *StoreOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <key>",
		Short:         "Decrypt and print one record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := newReporter(rootOpts, cmd)
			s, err := openStore(rootOpts, storeOpts, r)
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.Read(cmd.Context(), args[0])
			if err != nil {
				return r.Fail(ExitCommandError, problemOf(ErrCodeLoadFailed, err))
			}
			if rec == nil {
				return r.Fail(ExitFailure, &Problem{Code: ErrCodeNotFound, Message: fmt.Sprintf("no record at %q", args[0])})
			}
			return r.Result(StoreGetResult{Key: rec.Key, Value: rec.Value, UpdatedAt: rec.UpdatedAt}, func(w io.Writer) {
				writeValueText(w, rec.Value)
			})
		},
	}
}

func newStoreKeysCommand(rootOpts *RootOptions, storeOpts *StoreOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "keys",
		Short:         "List stored keys",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := newReporter(rootOpts, cmd)
			s, err := openStore(rootOpts, storeOpts, r)
			if err != nil {
				return err
			}
			defer s.Close()

			keys, err := s.Keys(cmd.Context())
			if err != nil {
				return r.Fail(ExitCommandError, problemOf(ErrCodeLoadFailed, err))
			}
			if keys == nil {
				keys = []string{}
			}

			r.Logf("%d key(s)", len(keys))
			return r.Result(map[string][]string{"keys": keys}, func(w io.Writer) {
				for _, k := range keys {
					fmt.Fprintln(w, k)
				}
			})
		},
	}
}

// writeValueText prints strings bare and everything else as indented JSON.
func writeValueText(w io.Writer, v any) {
	if str, ok := v.(string); ok {
		fmt.Fprintln(w, str)
		return
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
