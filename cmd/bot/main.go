package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/cf-daily-bot/internal/app"
	"github.com/example/cf-daily-bot/internal/config"
	"github.com/example/cf-daily-bot/internal/repository"
)

func main() {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	var store repository.Store
	if cfg.DBConnString != "" {
		store, err = repository.NewPostgresStore(cfg.DBConnString)
	} else {
		store, err = repository.NewFileStore(cfg.StatePath)
	}
	if err != nil {
		sugar.Fatalw("open store", "err", err)
	}

	application := app.New(cfg, store, sugar)
	if err := application.Run(context.Background()); err != nil {
		sugar.Fatalw("run", "err", err)
	}
}
