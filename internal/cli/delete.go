package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/querystore/internal/ir"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <key>",
		Short:         "Delete one entity by key",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], cmd)
		},
	}
}

func runDelete(opts *RootOptions, rawKey string, cmd *cobra.Command) error {
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
	if err := st.Delete(cmd.Context(), key); err != nil {
		return formatter.Fail(ExitFailure, "failed to delete entity", err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]string{"deleted": key.String()})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", key)
	return nil
}
