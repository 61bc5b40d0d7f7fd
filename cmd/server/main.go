package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/saqibsattar03/basecamp-server/api"
	"github.com/saqibsattar03/basecamp-server/api/validator"
	"github.com/saqibsattar03/basecamp-server/config"
	"github.com/saqibsattar03/basecamp-server/postgres"
	"github.com/saqibsattar03/basecamp-server/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	v, err := config.Load("config")
	if err != nil {
		return err
	}
	cfg, err := config.Parse(v)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Logger.SlogLevel(),
	}))

	ctx := context.Background()

	pg, err := postgres.Connect(ctx, cfg.Bun.DSN)
	if err != nil {
		return err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		return err
	}

	cache, err := redis.Connect(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}

	a := &api.API{
		Logger: logger,
		DB:     pg,
		Cache:  cache,
		Val:    validator.New(),
	}

	logger.Info("Listening", "addr", cfg.Server.Addr)
	return http.ListenAndServe(cfg.Server.Addr, a)
}
