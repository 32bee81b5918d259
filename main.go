package main

import (
	"go.uber.org/zap"

	"labelsweep/internal/config"
	"labelsweep/internal/notifier"
	"labelsweep/internal/repository"
	"labelsweep/internal/server"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// Load configuration
	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection (runs migrations for postgres, bootstraps
	// the schema for sqlite)
	db, err := repository.Open(cfg.Database.Driver, cfg.Database.URL, cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Optional Telegram notifier
	bot, err := notifier.NewBot(cfg, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram notifier, continuing without it", zap.Error(err))
		bot = nil
	}

	srv := server.NewServer(db, cfg, bot, logger)
	srv.Run(":" + cfg.Server.Port)
}
