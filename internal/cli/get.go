package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/querystore/internal/ir"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one entity by key",
		Long: `Print one entity by its key, written as Kind/name.

Example:
  querystore get Widget/a --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], cmd)
		},
	}
}

func runGet(opts *RootOptions, rawKey string, cmd *cobra.Command) error {
	key, err := ir.ParseKey(rawKey)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid key", err)
	}

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore(opts, st)

	formatter := newFormatter(opts, cmd)
	entity, err := st.Get(cmd.Context(), key)
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to get entity", err)
	}

	view, err := newEntityView(entity)
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to encode entity", err)
	}
	if opts.Format == "json" {
		return formatter.Success(view)
	}
	return writeEntityText(cmd.OutOrStdout(), view.Key, view.Properties)
}
