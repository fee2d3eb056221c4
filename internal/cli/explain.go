package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querystore/internal/plan"
	"github.com/roach88/querystore/internal/query"
	"github.com/roach88/querystore/internal/querysql"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Where    []string
	Sort     []string
	KeysOnly bool
	Count    bool
	Strict   bool
}

// ExplainResult is the JSON payload of the explain command.
type ExplainResult struct {
	Plan        string         `json:"plan"`
	Description map[string]any `json:"description"`
	Fingerprint string         `json:"fingerprint"`
	SQL         string         `json:"sql"`
	Params      []any          `json:"params"`
	Portable    bool           `json:"portable"`
	Warnings    []string       `json:"warnings"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <kind>",
		Short: "Show the plan and SQL for a query without running it",
		Long: `Build the query plan for the given constraints and sorts and print it
with its fingerprint, the SQL it compiles to and any portability warnings.
No database is opened.

Examples:
  querystore explain Widget --where 'age > 3' --sort name
  querystore explain Widget --where '_id == "42"' --count --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "constraint expression (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Sort, "sort", "s", nil, "sort spec field[:asc|desc] (repeatable)")
	cmd.Flags().BoolVar(&opts.KeysOnly, "keys-only", false, "plan a keys-only query")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "show the existence-check COUNT query (implies --keys-only, ignores --sort)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "leave out sorts on fields without a constraint")

	return cmd
}

func runExplain(opts *ExplainOptions, kind string, cmd *cobra.Command) error {
	constraints, sorts, err := parseWhereSort(opts.Where, opts.Sort)
	if err != nil {
		return err
	}

	var buildOpts []query.BuildOption
	if opts.Strict {
		buildOpts = append(buildOpts, query.DropUnmatchedSorts())
	}
	if opts.KeysOnly || opts.Count {
		buildOpts = append(buildOpts, query.KeysOnlyPlan())
	}
	if opts.Count {
		sorts = query.NewSorts()
	}

	formatter := newFormatter(opts.RootOptions, cmd)
	p, err := query.Build(kind, constraints, sorts, buildOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid query", err)
	}

	compile := querysql.Compile
	if opts.Count {
		compile = querysql.CompileCount
	}
	sql, params, err := compile(p)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to compile plan", err)
	}
	desc, err := p.Describe()
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to describe plan", err)
	}
	fingerprint, err := p.Fingerprint()
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to fingerprint plan", err)
	}
	validation := plan.Validate(p)

	result := ExplainResult{
		Plan:        p.String(),
		Description: desc,
		Fingerprint: fingerprint,
		SQL:         sql,
		Params:      params,
		Portable:    validation.IsPortable,
		Warnings:    validation.Warnings,
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Plan:        %s\n", result.Plan)
	fmt.Fprintf(w, "Fingerprint: %s\n", result.Fingerprint)
	fmt.Fprintf(w, "SQL:         %s\n", result.SQL)
	fmt.Fprintf(w, "Params:      %s\n", formatParams(result.Params))
	if result.Portable {
		fmt.Fprintln(w, "Portable:    yes")
		return nil
	}
	fmt.Fprintln(w, "Portable:    no")
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "  - %s\n", warning)
	}
	return nil
}

func formatParams(params []any) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = plan.FormatValue(p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
