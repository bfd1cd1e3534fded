// Package cli implements shiftctl, the operator tool for migrations, lock
// diagnostics and maintenance jobs.
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/config"
	"github.com/georgemunganga/tillkeeper/internal/platform/database"
	"github.com/georgemunganga/tillkeeper/internal/platform/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile string
	Verbose bool
}

// NewRootCommand creates the root command for shiftctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "shiftctl",
		Short:         "Operate the tillkeeper shift service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "load variables from this file instead of .env")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewBackfillCommand(opts))
	cmd.AddCommand(NewLockKeyCommand())
	cmd.AddCommand(NewCreateUserCommand(opts))

	return cmd
}

// runtime is what commands that touch the database share.
type runtime struct {
	cfg    *config.Config
	db     *sql.DB
	logger *zap.Logger
}

func (o *RootOptions) open(ctx context.Context) (*runtime, error) {
	var files []string
	if o.EnvFile != "" {
		files = append(files, o.EnvFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if o.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, false)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, cfg.DatabaseURL, database.PoolConfig{MaxOpenConns: 4})
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, db: db, logger: logger}, nil
}

func (r *runtime) Close() {
	r.db.Close()
	_ = r.logger.Sync()
}
