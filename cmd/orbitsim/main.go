package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/star/orbitsim/internal/api"
	"github.com/star/orbitsim/internal/auth"
	"github.com/star/orbitsim/internal/nbody"
	"github.com/star/orbitsim/internal/simcore"
	"github.com/star/orbitsim/internal/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	addr := os.Getenv("ORBITSIM_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	worldCfg := loadWorldConfig(logger)
	presetPath := os.Getenv("ORBITSIM_PRESET_FILE")

	preset := simcore.SolTerraEmber()
	if presetPath != "" {
		loaded, err := simcore.LoadPresetFile(presetPath)
		if err != nil {
			logger.Error("failed to load preset file", "path", presetPath, "error", err)
			os.Exit(1)
		}
		preset = loaded
	}

	world := simcore.New(worldCfg, logger)
	world.Reset(preset)

	tickInterval := time.Duration(nbody.DtFixed * float64(time.Second))
	runner := simcore.NewRunner(world, tickInterval, logger)

	streamCfg := loadStreamConfig(logger)

	srv := api.NewServer(addr, runner, logger, authCfg, streamCfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runner.Run(ctx)

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled, "preset", preset.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("ORBITSIM_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("ORBITSIM_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("ORBITSIM_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("ORBITSIM_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadWorldConfig(logger *slog.Logger) simcore.Config {
	cfg := simcore.DefaultConfig()

	if v := os.Getenv("ORBITSIM_PLANNER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITSIM_PLANNER_WORKERS value, using default", "value", v, "default", cfg.PlannerWorkers)
		} else {
			cfg.PlannerWorkers = n
		}
	} else {
		cfg.PlannerWorkers = runtime.NumCPU()
	}

	if v := os.Getenv("ORBITSIM_PREDICTOR_HORIZON_FRAMES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITSIM_PREDICTOR_HORIZON_FRAMES value, using default", "value", v, "default", cfg.Predictor.HorizonFrames)
		} else {
			cfg.Predictor.HorizonFrames = n
		}
	}

	logger.Info("world config",
		"planner_workers", cfg.PlannerWorkers,
		"predictor_horizon_frames", cfg.Predictor.HorizonFrames,
	)

	return cfg
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
		DefaultIntervalMs:  100,
	}

	if v := os.Getenv("ORBITSIM_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITSIM_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("ORBITSIM_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITSIM_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("ORBITSIM_STREAM_DEFAULT_INTERVAL_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 20 {
			logger.Warn("invalid ORBITSIM_STREAM_DEFAULT_INTERVAL_MS value, using default", "value", v, "default", 100)
		} else {
			cfg.DefaultIntervalMs = n
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
		"default_interval_ms", cfg.DefaultIntervalMs,
	)

	return cfg
}
