package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/querystore/internal/query"
	"github.com/roach88/querystore/internal/querystore"
)

// ExistsOptions holds flags for the exists command.
type ExistsOptions struct {
	*RootOptions
	Where []string
}

// ExistsResult is the JSON payload of the exists command.
type ExistsResult struct {
	Kind   string `json:"kind"`
	Exists bool   `json:"exists"`
	Result string `json:"result"`
}

// NewExistsCommand creates the exists command.
func NewExistsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExistsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exists <kind>",
		Short: "Check whether any entity matches",
		Long: `Check whether any entity of a kind satisfies every --where expression.

The check counts matching keys inside a transaction. A check that cannot
complete exits with code 1 and is never reported as "does not exist".

Exit codes:
  0 - Check completed (either answer)
  1 - Check failed
  2 - Command error (bad expression, database not openable)

Example:
  querystore exists Widget --where 'name == "foo"' --where 'age > 3'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExists(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "constraint expression (repeatable)")

	return cmd
}

func runExists(opts *ExistsOptions, kind string, cmd *cobra.Command) error {
	constraints, _, err := parseWhereSort(opts.Where, nil)
	if err != nil {
		return err
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(opts.RootOptions, st)

	formatter := newFormatter(opts.RootOptions, cmd)
	qs := newQueryStore(opts.RootOptions, st)

	existence, err := qs.Check(cmd.Context(), kind, constraints)
	if err != nil {
		code := ExitFailure
		if query.IsInvalidArgument(err) {
			code = ExitCommandError
		}
		return formatter.Fail(code, "existence check failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(ExistsResult{
			Kind:   kind,
			Exists: existence == querystore.Exists,
			Result: existence.String(),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), existence)
	return nil
}
