package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vintage-The-Gemini/space/internal/common/database"
	"github.com/Vintage-The-Gemini/space/internal/common/logger"
	"github.com/Vintage-The-Gemini/space/internal/config"
	"github.com/Vintage-The-Gemini/space/internal/repository"

	"go.uber.org/zap"
)

func runMigrate(ctx context.Context) error {
	cfg := config.Load()
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	if !cfg.Database.Configured() {
		return errors.New("DATABASE_URL (or DB_HOST) is required for migrate")
	}
	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	stmts := repository.SchemaStatements()
	if err := repository.ApplySchema(ctx, db); err != nil {
		return err
	}
	log.Info("Schema applied", zap.Int("statements", len(stmts)))
	return nil
}
