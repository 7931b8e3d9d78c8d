package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mickamy/kanboard/internal/schema"
)

// NewMigrateCommand creates the migrate command and its subcommands.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, rootOpts, func(m *schema.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert every applied migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, rootOpts, func(m *schema.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, rootOpts, func(m *schema.Migrator) error {
				return printVersion(cmd, m)
			})
		},
	})

	return cmd
}

func withMigrator(cmd *cobra.Command, rootOpts *RootOptions, fn func(*schema.Migrator) error) error {
	e, err := loadEnv(rootOpts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	m, err := schema.New(e.dialect, e.cfg.Database.DSN, e.logger)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return fn(m)
}

func printVersion(cmd *cobra.Command, m *schema.Migrator) error {
	version, dirty, ok, err := m.Version()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch {
	case !ok:
		_, err = fmt.Fprintln(out, "no migration applied")
	case dirty:
		_, err = fmt.Fprintf(out, "version %d (dirty)\n", version)
	default:
		_, err = fmt.Fprintf(out, "version %d\n", version)
	}
	return err
}
