package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/l0p7/imgctrl/internal/config"
	"github.com/l0p7/imgctrl/internal/logging"
	"github.com/l0p7/imgctrl/internal/metrics"
	"github.com/l0p7/imgctrl/internal/resize"
	"github.com/l0p7/imgctrl/internal/resize/locking"
	"github.com/l0p7/imgctrl/internal/server"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	var (
		configFile = flag.String("config", "", "path to server configuration file")
		envPrefix  = flag.String("env-prefix", "IMGCTRL", "environment variable prefix")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(*envPrefix, *configFile)
	cfg, err := loader.Load(ctx)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Server.Logging)
	if err != nil {
		log.Fatalf("failed to configure logger: %v", err)
	}

	promRegistry := prometheus.NewRegistry()
	metricsRecorder := metrics.NewRecorder(promRegistry)

	locks := buildLockGroup(logger)
	httpClient := &http.Client{Timeout: 30 * time.Second}

	orch, err := resize.NewOrchestrator(logger, locks, metricsRecorder, orchestratorOptions(cfg, httpClient, logger))
	if err != nil {
		logger.Error("unable to construct orchestrator", slog.Any("error", err))
		os.Exit(1)
	}

	var watcher *config.Watcher
	if *configFile != "" {
		watcher, err = loader.Watch(ctx, func(next config.Config) {
			if err := orch.Reload(orchestratorOptions(next, httpClient, logger)); err != nil {
				logger.Error("orchestrator reload failed", slog.Any("error", err))
			}
		}, func(err error) {
			if err != nil {
				logger.Error("config watcher error", slog.Any("error", err))
			}
		})
		if err != nil {
			logger.Error("config watcher setup failed", slog.Any("error", err))
		} else {
			defer watcher.Stop()
		}
	}

	rootAbs, err := filepath.Abs(cfg.Source.Root)
	if err != nil {
		logger.Error("unable to resolve source root", slog.Any("error", err))
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/img", server.NewImageHandler(orch, rootAbs, logger))
	mux.Handle("/healthz", server.HealthHandler())
	mux.Handle("/metrics", metricsRecorder.Handler())

	srv, err := server.New(cfg, logger, mux)
	if err != nil {
		logger.Error("unable to construct server", slog.Any("error", err))
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server terminated unexpectedly", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}

// orchestratorOptions assembles the reloadable orchestrator options from a
// configuration snapshot.
func orchestratorOptions(cfg config.Config, client *http.Client, logger *slog.Logger) resize.Options {
	return resize.Options{
		SourceRoot:    cfg.Source.Root,
		CacheDir:      cfg.Cache.Dir,
		Quality:       cfg.Resize.Quality,
		StripMetadata: cfg.Resize.StripMetadata,
		Backends:      buildBackends(cfg, client, logger),
	}
}

// buildBackends maps the configured converter chain onto backend instances,
// preserving order. Unknown names were already rejected by validation.
func buildBackends(cfg config.Config, client *http.Client, logger *slog.Logger) []resize.Backend {
	backends := make([]resize.Backend, 0, len(cfg.Resize.Converters))
	for _, name := range cfg.Resize.Converters {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case config.ConverterImaginary:
			backends = append(backends, resize.NewRemoteBackend(
				cfg.Imaginary.BaseURL(),
				cfg.Imaginary.SourceBaseURL,
				client,
				logger,
			))
		case config.ConverterNative:
			backends = append(backends, resize.NewNativeBackend(logger))
		case config.ConverterBasic:
			backends = append(backends, resize.NewBasicBackend(logger))
		}
	}
	return backends
}

// buildLockGroup prefers cross-process advisory locks so several imgctrl
// processes can share one cache tree, falling back to in-process mutexes.
func buildLockGroup(logger *slog.Logger) locking.Group {
	group, err := locking.NewFileLock("")
	if err != nil {
		logger.Warn("file locks unavailable, falling back to in-process locks", slog.Any("error", err))
		return locking.NewMemLock()
	}
	return group
}
