// slackfiles lists every file in a Slack workspace, resolves channel
// names, finds abandoned files and optionally deletes abandoned images.
//
// Features:
// - Paginated files.list with fixed-delay retries
// - Session cache in local, S3, MinIO, Redis, Postgres or MySQL storage
// - Prometheus metrics, OpenTelemetry traces and structured logging (zap)
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fruitsalade/slackfiles/internal/config"
	"github.com/fruitsalade/slackfiles/internal/logging"
	"github.com/fruitsalade/slackfiles/internal/metrics"
	"github.com/fruitsalade/slackfiles/internal/tracing"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "TOML config file (default $SLACKFILES_CONFIG)")
	token := flag.String("token", "", "Slack API token (default $SLACK_TOKEN or the token file)")
	useCache := flag.Bool("cache", false, "Load and save session state in the cache store")
	noFileCache := flag.Bool("no-file-cache", false, "Reuse cached raw files but recompute enriched and abandoned files")
	refetch := flag.Bool("refetch", false, "Refetch raw files even when cached")
	users := flag.Bool("users", false, "Also fetch the user directory")
	deleteImages := flag.Bool("delete-images", false, "Offer to delete abandoned images")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}
	if *token != "" {
		cfg.Token = *token
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	if err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: cfg.LogOutput,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "logging init error: %v\n", err)
		os.Exit(2)
	}

	if err := cfg.ResolveToken(); err != nil {
		logging.Fatal("cannot start without a token", zap.Error(err))
	}

	os.Exit(run(cfg, options{
		cache:        *useCache,
		noFileCache:  *noFileCache,
		refetch:      *refetch,
		users:        *users,
		deleteImages: *deleteImages,
	}))
}

func run(cfg *config.Config, opts options) int {
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, runID := logging.WithRunID(ctx)
	logger := logging.WithContext(ctx)

	logger.Info("slackfiles starting",
		zap.String("version", version),
		zap.String("run_id", runID),
		zap.Bool("cache", opts.cache),
		zap.String("cache_backend", cfg.Cache.Backend))

	shutdownTracing, err := tracing.Init(ctx, "slackfiles", version, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("tracing init failed", zap.Error(err))
		return 1
	}
	defer shutdownTracing(context.Background())

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: metrics.Handler(),
		}
		go func() {
			logger.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
		defer metricsServer.Close()
	}

	a := &app{
		cfg:     cfg,
		opts:    opts,
		out:     os.Stdout,
		confirm: newPromptConfirmer(os.Stdin, os.Stdout),
		logger:  logger,
	}
	if err := a.run(ctx); err != nil {
		logger.Error("run failed", zap.Error(err))
		return 1
	}
	return 0
}
