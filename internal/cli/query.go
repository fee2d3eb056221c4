package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/querystore/internal/iterutil"
	"github.com/roach88/querystore/internal/query"
	"github.com/roach88/querystore/internal/querystore"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Where []string
	Sort  []string
	Skip  int
	Limit int
}

// QueryResult is the JSON payload of the query command.
type QueryResult struct {
	Kind     string           `json:"kind"`
	Plan     string           `json:"plan"`
	Entities []map[string]any `json:"entities"`
	Count    int              `json:"count"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <kind>",
		Short: "Run a constraint query",
		Long: `Run a constraint query against one kind.

Every --where expression must hold. A sort on a constrained field is applied
right after that field's filter; other sorts follow in the order given.
Results are windowed when --limit (or the config default_limit) is set.

Examples:
  querystore query Widget --where 'age >= 18' --sort age:desc
  querystore query Widget --where 'name == ["foo", "bar"]' --skip 10 --limit 10`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "constraint expression (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Sort, "sort", "s", nil, "sort spec field[:asc|desc] (repeatable)")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "results to skip (needs a limit)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum results (0 uses the config default)")

	return cmd
}

func runQuery(opts *QueryOptions, kind string, cmd *cobra.Command) error {
	constraints, sorts, err := parseWhereSort(opts.Where, opts.Sort)
	if err != nil {
		return err
	}

	var skip, limit *int
	switch {
	case opts.Limit != 0:
		limit = &opts.Limit
	case opts.DefaultLimit > 0:
		limit = &opts.DefaultLimit
	}
	if opts.Skip != 0 {
		if limit == nil {
			return NewExitError(ExitCommandError, "--skip requires --limit or a configured default_limit")
		}
		skip = &opts.Skip
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(opts.RootOptions, st)

	formatter := newFormatter(opts.RootOptions, cmd)
	qs := newQueryStore(opts.RootOptions, st, querystore.WithMapper(entityViewMapper))

	p, err := qs.Plan(kind, constraints, sorts)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid query", err)
	}
	formatter.VerboseLog("plan: %s", p)

	seq, err := qs.Query(cmd.Context(), kind, constraints, sorts, skip, limit)
	if err != nil {
		code := ExitFailure
		if query.IsInvalidArgument(err) {
			code = ExitCommandError
		}
		return formatter.Fail(code, "query failed", err)
	}
	records, err := iterutil.Collect(seq)
	if err != nil {
		return formatter.Fail(ExitFailure, "query failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(QueryResult{
			Kind:     kind,
			Plan:     p.String(),
			Entities: records,
			Count:    len(records),
		})
	}

	w := cmd.OutOrStdout()
	for _, r := range records {
		props, _ := r["properties"].(map[string]any)
		if err := writeEntityText(w, r["key"].(string), props); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "(%d results)\n", len(records))
	return nil
}
