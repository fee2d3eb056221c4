package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/querystore/internal/filterexpr"
	"github.com/roach88/querystore/internal/ir"
	"github.com/roach88/querystore/internal/query"
	"github.com/roach88/querystore/internal/querystore"
	"github.com/roach88/querystore/internal/store"
)

// EntityView is the printable form of an entity. Property values are in
// their storage encoding (times and bytes as strings, keys as "Kind/name").
type EntityView struct {
	Key        string         `json:"key"`
	Properties map[string]any `json:"properties,omitempty"`
}

func newEntityView(e ir.Entity) (EntityView, error) {
	view := EntityView{Key: e.Key.String()}
	if e.Properties == nil {
		return view, nil
	}
	view.Properties = make(map[string]any, len(e.Properties))
	for field, v := range e.Properties {
		enc, err := ir.EncodeValue(v)
		if err != nil {
			return EntityView{}, fmt.Errorf("property %q: %w", field, err)
		}
		view.Properties[field] = enc
	}
	return view, nil
}

// entityViewMapper is the querystore Mapper used by the query command.
func entityViewMapper(e ir.Entity) (map[string]any, error) {
	view, err := newEntityView(e)
	if err != nil {
		return nil, err
	}
	return map[string]any{"key": view.Key, "properties": view.Properties}, nil
}

// writeEntityText writes "Kind/name {props}" with canonical property JSON.
func writeEntityText(w io.Writer, key string, props map[string]any) error {
	if props == nil {
		_, err := fmt.Fprintln(w, key)
		return err
	}
	data, err := ir.MarshalCanonical(props)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s %s\n", key, data)
	return err
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func openStore(opts *RootOptions) (*store.Store, error) {
	opts.logger().Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func closeStore(opts *RootOptions, st *store.Store) {
	if err := st.Close(); err != nil {
		opts.logger().Error("error closing database", "error", err)
	}
}

func newQueryStore(opts *RootOptions, st *store.Store, qsOpts ...querystore.Option) *querystore.QueryStore {
	qsOpts = append([]querystore.Option{querystore.WithLogger(opts.logger())}, qsOpts...)
	return querystore.New(querystore.FromStore(st), qsOpts...)
}

// parseWhereSort parses --where and --sort values.
func parseWhereSort(where, sort []string) (*query.Constraints, *query.Sorts, error) {
	constraints, err := filterexpr.ParseConstraints(where...)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "invalid --where", err)
	}
	sorts, err := filterexpr.ParseSorts(sort...)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "invalid --sort", err)
	}
	return constraints, sorts, nil
}
