package cli

import (
	"fmt"
	"iter"

	"github.com/spf13/cobra"

	"github.com/roach88/querystore/internal/filterexpr"
	"github.com/roach88/querystore/internal/ir"
	"github.com/roach88/querystore/internal/iterutil"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Sort []string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list [kind]",
		Short: "List kinds, or the keys of one kind",
		Long: `Without an argument, list every kind that holds entities.
With a kind, list its keys in key order, or by --sort.

Examples:
  querystore list
  querystore list Widget --sort age:desc`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runListKinds(opts, cmd)
			}
			return runListKeys(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Sort, "sort", "s", nil, "sort spec field[:asc|desc] (repeatable)")

	return cmd
}

func runListKinds(opts *ListOptions, cmd *cobra.Command) error {
	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(opts.RootOptions, st)

	formatter := newFormatter(opts.RootOptions, cmd)
	kinds, err := st.Kinds(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to list kinds", err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{"kinds": kinds})
	}
	for _, k := range kinds {
		fmt.Fprintln(cmd.OutOrStdout(), k)
	}
	return nil
}

func runListKeys(opts *ListOptions, kind string, cmd *cobra.Command) error {
	sorts, err := filterexpr.ParseSorts(opts.Sort...)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --sort", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(opts.RootOptions, st)

	formatter := newFormatter(opts.RootOptions, cmd)
	qs := newQueryStore(opts.RootOptions, st)

	var seq iter.Seq2[ir.Entity, error]
	if sorts.Len() == 0 {
		seq, err = qs.ListAll(cmd.Context(), kind)
	} else {
		seq, err = qs.ListSorted(cmd.Context(), kind, sorts)
	}
	if err != nil {
		return formatter.Fail(ExitFailure, "list failed", err)
	}
	entities, err := iterutil.Collect(seq)
	if err != nil {
		return formatter.Fail(ExitFailure, "list failed", err)
	}

	keys := make([]string, len(entities))
	for i, e := range entities {
		keys[i] = e.Key.String()
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{"kind": kind, "keys": keys})
	}
	for _, k := range keys {
		fmt.Fprintln(cmd.OutOrStdout(), k)
	}
	return nil
}
