package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/config"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/adapters/file"
	"github.com/aretw0/parley/pkg/adapters/memory"
	redisadapter "github.com/aretw0/parley/pkg/adapters/redis"
	"github.com/aretw0/parley/pkg/adapters/whisper"
	"github.com/aretw0/parley/pkg/observability"
)

// buildEngine assembles the engine from config and shared flags. It is used
// by every command that needs a live engine.
func buildEngine(cmd *cobra.Command, metrics *observability.Metrics) (*parley.Engine, *config.Config, *slog.Logger, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if dir, _ := cmd.Flags().GetString("commands"); dir != "" {
		cfg.CatalogDir = dir
	}

	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	opts := []parley.Option{
		parley.WithLogger(logger),
		parley.WithLoginURL(cfg.Auth.LoginURL),
		parley.WithThreshold(cfg.MatchThreshold),
		parley.WithRetryLimit(cfg.RetryLimit),
		parley.WithGatewayTimeout(cfg.Gateway.Timeout),
	}

	switch cfg.Store.Backend {
	case "memory":
		opts = append(opts, parley.WithStore(memory.NewStore()))
	case "file":
		opts = append(opts, parley.WithStore(file.New(cfg.Store.Path)))
	case "redis":
		store := redisadapter.New(
			cfg.Store.Redis.Addr,
			cfg.Store.Redis.Password,
			cfg.Store.Redis.DB,
			redisadapter.WithTTL(cfg.Store.TTL),
		)
		opts = append(opts, parley.WithStore(store), parley.WithLocker(store.Locker()))
	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Whisper.Endpoint != "" {
		opts = append(opts, parley.WithTranscriber(
			whisper.New(cfg.Whisper.Endpoint, whisper.WithTimeout(cfg.Whisper.Timeout)),
		))
	}
	if metrics != nil {
		opts = append(opts, parley.WithObserver(metrics))
	}

	eng, err := parley.New(cmd.Context(), cfg.CatalogDir, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	return eng, cfg, logger, nil
}
