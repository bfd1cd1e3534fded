package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/georgemunganga/tillkeeper/internal/platform/database"
)

// NewMigrateCommand creates the migrate command and its up/down/version
// subcommands.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the embedded schema migrations",
	}

	run := func(fn func(cmd *cobra.Command, m *database.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			rt, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			m, err := database.NewMigrator(rt.db, rt.logger)
			if err != nil {
				return err
			}
			return fn(cmd, m)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, m *database.Migrator) error {
			return m.Up()
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, m *database.Migrator) error {
			return m.Down()
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, m *database.Migrator) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		}),
	})

	return cmd
}
