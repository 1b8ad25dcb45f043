package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/SandLosT/Attendant/db"
	"github.com/SandLosT/Attendant/internal/config"
	"github.com/SandLosT/Attendant/pkg/logger"
	"github.com/SandLosT/Attendant/pkg/utils"

	_ "github.com/joho/godotenv/autoload"
)

// usage: migrate up | down | version | force N
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate up|down|version|force N")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.App.Env)

	if err := utils.RunMigrate(log, cfg.MigrateDSN(), db.MigrationsFS, "migrations", os.Args[1], os.Args[2:]); err != nil {
		log.Error("migrate failed", "err", err)
		os.Exit(1)
	}
}
