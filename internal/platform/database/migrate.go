package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrator applies the embedded schema migrations.
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// NewMigrator builds a golang-migrate instance over db using the embedded
// migration files.
func NewMigrator(db *sql.DB, logger *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return &Migrator{m: m, logger: logger}, nil
}

// Up applies all pending migrations. No pending migrations is not an error.
func (mg *Migrator) Up() error {
	return mg.handle(mg.m.Up(), "up")
}

// Down rolls back a single migration step.
func (mg *Migrator) Down() error {
	return mg.handle(mg.m.Steps(-1), "down")
}

// Version reports the applied version and whether the schema is dirty.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (mg *Migrator) handle(err error, direction string) error {
	if err == nil {
		mg.logger.Info("migrations applied", zap.String("direction", direction))
		return nil
	}
	if errors.Is(err, migrate.ErrNoChange) {
		mg.logger.Info("no migrations to apply", zap.String("direction", direction))
		return nil
	}
	var dirty migrate.ErrDirty
	if errors.As(err, &dirty) {
		return fmt.Errorf("migration %s failed: dirty database version %d", direction, dirty.Version)
	}
	return fmt.Errorf("migration %s failed: %w", direction, err)
}
