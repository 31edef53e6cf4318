package main

import (
	"flag"
	"log"

	"github.com/subsync/subsync/internal/config"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/postgres"
)

func main() {
	command := flag.String("command", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("running migrations", "host", cfg.Postgres.Host, "dbname", cfg.Postgres.DBName, "command", *command)
	if err := postgres.Migrate(cfg, logger, *command); err != nil {
		logger.Fatalw("migration failed", "error", err)
	}
}
