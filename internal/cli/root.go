// Package cli implements the kanboard command line.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the kanboard root command.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "kanboard",
		Short:   "Kanban board server over a registry-driven query layer",
		Version: version,
		Long: `kanboard serves boards, columns, and cards as JSON.

Configuration is read from --config (yaml, json, or toml), a .env file in
the working directory, and KANBOARD_* environment variables such as
KANBOARD_DATABASE_DSN.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRoutesCommand(opts))
	cmd.AddCommand(NewSQLCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))

	return cmd
}
