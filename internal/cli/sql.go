package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mickamy/kanboard/orm"
	"github.com/mickamy/kanboard/router"
)

type sqlOptions struct {
	params  []string
	execute bool
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &sqlOptions{}

	cmd := &cobra.Command{
		Use:   "sql <binding> [query]",
		Short: "Render or run the named queries of a binding",
		Long: `Render the named queries of a binding with the given parameters.
Integer values are passed as integers, "null" as NULL. The session
parameter uuid defaults to NULL.

With --execute the queries run against the configured database and the
rows are printed as JSON.

Examples:
  kanboard sql dashboard --param uuid=3f2b...
  kanboard sql board_details board --param board_id=7 --param uuid=3f2b... --execute`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(cmd, rootOpts, opts, args)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().BoolVarP(&opts.execute, "execute", "x", false, "run the queries and print their rows")
	return cmd
}

func runSQL(cmd *cobra.Command, rootOpts *RootOptions, opts *sqlOptions, args []string) error {
	params, err := parseParams(opts.params)
	if err != nil {
		return err
	}

	e, err := loadEnv(rootOpts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	r, err := e.newRouter(nil, nil)
	if err != nil {
		return err
	}
	queries, err := bindingQueries(r, args)
	if err != nil {
		return err
	}

	if !opts.execute {
		return renderQueries(cmd.OutOrStdout(), r, args[0], queries, params)
	}

	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	results := make(map[string]orm.Rows, len(queries))
	for _, name := range queries {
		q, _ := r.Query(args[0], name)
		stmt, err := q.Build(params)
		if err != nil {
			return fmt.Errorf("query %s: %w", name, err)
		}
		rows, err := db.Run(cmd.Context(), stmt)
		if err != nil {
			return fmt.Errorf("query %s: %w", name, err)
		}
		results[name] = rows
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// bindingQueries returns the query names to handle: the one named in args,
// or every query of the binding.
func bindingQueries(r *router.Router, args []string) ([]string, error) {
	for _, b := range r.Bindings() {
		if b.Name != args[0] {
			continue
		}
		if len(args) == 2 {
			if _, ok := r.Query(b.Name, args[1]); !ok {
				return nil, fmt.Errorf("binding %s has no query %s", b.Name, args[1])
			}
			return args[1:], nil
		}
		names := make([]string, len(b.Queries))
		for i, q := range b.Queries {
			names[i] = q.Name
		}
		return names, nil
	}
	return nil, fmt.Errorf("unknown binding: %s", args[0])
}

func renderQueries(w io.Writer, r *router.Router, binding string, names []string, params orm.Params) error {
	header := color.New(color.FgGreen, color.Bold)
	for _, name := range names {
		q, _ := r.Query(binding, name)
		text, err := q.Render(params)
		if err != nil {
			return fmt.Errorf("query %s: %w", name, err)
		}
		_, _ = header.Fprintf(w, "-- %s: %s\n", name, q.Message())
		_, _ = fmt.Fprintln(w, text)
	}
	return nil
}

func parseParams(raw []string) (orm.Params, error) {
	params := orm.Params{router.SessionUserKey: nil}
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid param %q: want key=value", kv)
		}
		switch {
		case v == "null":
			params[k] = nil
		default:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				params[k] = n
			} else {
				params[k] = v
			}
		}
	}
	return params, nil
}
