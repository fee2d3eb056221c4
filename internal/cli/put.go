package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querystore/internal/harness"
)

// PutOptions holds flags for the put command.
type PutOptions struct {
	*RootOptions
	Props string
	Types []string
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <kind> [name]",
		Short: "Create or replace an entity",
		Long: `Create or replace an entity.

Properties are given as a JSON object of scalars. Values whose JSON form
is ambiguous take a type override: time (RFC 3339 string), bytes (base64
string), key ("Kind/name") or float. Without a name, one is allocated.

Examples:
  querystore put Widget a --props '{"name":"foo","age":30}'
  querystore put Widget --props '{"created":"2024-01-02T03:04:05Z"}' --type created=time`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			return runPut(opts, args[0], name, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Props, "props", "{}", "entity properties as a JSON object")
	cmd.Flags().StringArrayVar(&opts.Types, "type", nil, "property type override field=time|bytes|key|float (repeatable)")

	return cmd
}

func runPut(opts *PutOptions, kind, name string, cmd *cobra.Command) error {
	props, err := decodeProps(opts.Props)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --props", err)
	}
	seed := harness.SeedEntity{Kind: kind, Name: name, Properties: props, Types: map[string]string{}}
	for _, t := range opts.Types {
		field, typ, ok := strings.Cut(t, "=")
		if !ok || field == "" {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid --type %q: want field=type", t))
		}
		seed.Types[field] = typ
	}

	entity, err := seed.Entity()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid properties", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(opts.RootOptions, st)

	formatter := newFormatter(opts.RootOptions, cmd)
	key, err := st.Put(cmd.Context(), entity)
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to store entity", err)
	}
	opts.logger().Info("entity stored", "key", key.String())

	if opts.Format == "json" {
		return formatter.Success(map[string]string{"key": key.String()})
	}
	fmt.Fprintln(cmd.OutOrStdout(), key.String())
	return nil
}

// decodeProps decodes a JSON object, keeping integers apart from floats.
func decodeProps(raw string) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
	decoder.UseNumber()

	var props map[string]any
	if err := decoder.Decode(&props); err != nil {
		return nil, err
	}
	for field, v := range props {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			props[field] = int(i)
			continue
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", field, err)
		}
		props[field] = f
	}
	return props, nil
}
