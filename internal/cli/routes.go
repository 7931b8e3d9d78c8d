package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mickamy/kanboard/router"
)

// NewRoutesCommand creates the routes command.
func NewRoutesCommand(rootOpts *RootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the registered bindings",
		Long: `List every binding with its path, guards, and named queries.

Examples:
  kanboard routes
  kanboard routes --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			r, err := e.newRouter(nil, nil)
			if err != nil {
				return err
			}
			return writeRoutes(cmd.OutOrStdout(), format, r.Bindings())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table|yaml)")
	return cmd
}

func writeRoutes(w io.Writer, format string, bindings []router.BindingInfo) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(bindings); err != nil {
			return fmt.Errorf("failed to encode routes: %w", err)
		}
		return enc.Close()
	case "table":
	default:
		return fmt.Errorf("invalid format %q: must be table or yaml", format)
	}

	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = bold.Fprintln(tw, "NAME\tPATH\tMETHOD\tSESSION\tQUERIES")
	for _, b := range bindings {
		method := b.Method
		if method == "" {
			method = "*"
		}
		session := "no"
		if b.Session {
			session = yellow.Sprint("yes")
		}
		names := make([]string, len(b.Queries))
		for i, q := range b.Queries {
			names[i] = q.Name
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			cyan.Sprint(b.Name), b.Path, method, session, strings.Join(names, ", "))
	}
	return tw.Flush()
}
