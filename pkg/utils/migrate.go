package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrateCommands lists what RunMigrate accepts.
var MigrateCommands = []string{"up", "down", "version", "force"}

// RunMigrate applies or rolls back schema migrations from fsys (the .sql
// files sit under dir). dsn must be the postgres:// URL form.
func RunMigrate(log *slog.Logger, dsn string, fsys fs.FS, dir, command string, args []string) error {
	if err := checkMigrateCommand(command, args); err != nil {
		return err
	}

	source, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()
	m.Log = &migrateLogger{log: log}

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
		ver, dirty, _ := m.Version()
		log.Info("migration complete", slog.Uint64("version", uint64(ver)), slog.Bool("dirty", dirty))
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		log.Info("all migrations rolled back")
	case "version":
		ver, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info("no migration applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrate version: %w", err)
		}
		log.Info("current version", slog.Uint64("version", uint64(ver)), slog.Bool("dirty", dirty))
	case "force":
		version, _ := strconv.Atoi(args[0])
		if err := m.Force(version); err != nil {
			return fmt.Errorf("migrate force: %w", err)
		}
		log.Info("forced version", slog.Int("version", version))
	}
	return nil
}

func checkMigrateCommand(command string, args []string) error {
	switch command {
	case "up", "down", "version":
		return nil
	case "force":
		if len(args) == 0 {
			return errors.New("force requires a version number argument")
		}
		if _, err := strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return nil
	default:
		return fmt.Errorf("unknown migrate command: %s (use: up, down, version, force)", command)
	}
}

type migrateLogger struct {
	log *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
