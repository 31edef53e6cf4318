package postgres

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/subsync/subsync/internal/config"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/migrations"
)

// Migrate applies (up) or reverts (down) the embedded schema
func Migrate(cfg *config.Configuration, log *logger.Logger, command string) error {
	if command == "" {
		command = "up"
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return ierr.WithError(err).WithHint("Failed to load migration files").Mark(ierr.ErrDatabase)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.Postgres.GetURL())
	if err != nil {
		return ierr.WithError(err).WithHint("Failed to connect for migrations").Mark(ierr.ErrDatabase)
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		return ierr.NewError("unknown migration command").
			WithHintf("Unknown migration command %q, expected up or down", command).
			Mark(ierr.ErrValidation)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Infow("no migrations to apply", "command", command)
		return nil
	}
	if err != nil {
		return ierr.WithError(err).WithHintf("Migration %s failed", command).Mark(ierr.ErrDatabase)
	}

	version, dirty, _ := m.Version()
	log.Infow("migrations applied", "command", command, "version", version, "dirty", dirty)
	return nil
}
