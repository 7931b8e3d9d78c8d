package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mickamy/kanboard/session"
)

// NewSessionCommand creates the session command. It manages sessions of
// the persistent backends; memory sessions only live inside serve.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage login sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <user-uuid>",
		Short: "Create a session for a user and print its token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, rootOpts, func(s session.Store) error {
				token, err := s.Create(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <token>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, rootOpts, func(s session.Store) error {
				return s.Delete(cmd.Context(), args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired sessions of the sql backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, rootOpts, func(s session.Store) error {
				sqlStore, ok := s.(*session.SQL)
				if !ok {
					return errors.New("purge requires the sql session backend")
				}
				n, err := sqlStore.Purge(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "purged %d sessions\n", n)
				return err
			})
		},
	})

	return cmd
}

func withStore(cmd *cobra.Command, rootOpts *RootOptions, fn func(session.Store) error) error {
	e, err := loadEnv(rootOpts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if e.cfg.Session.Backend == "memory" {
		return errors.New("the memory session backend cannot be managed from the command line")
	}
	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	store, closeStore, err := e.store(db)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()
	return fn(store)
}
