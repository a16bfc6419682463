package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"swarmsync/internal/config"
	"swarmsync/internal/configcache"
	"swarmsync/internal/constants"
	"swarmsync/internal/crypto"
	"swarmsync/internal/database"
	"swarmsync/internal/ingest"
	"swarmsync/internal/jobs"
	"swarmsync/internal/media"
	"swarmsync/internal/metrics"
	"swarmsync/internal/models"
	"swarmsync/internal/notify"
	"swarmsync/internal/receive"
	"swarmsync/internal/retry"
	"swarmsync/internal/tracing"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes session ids and message bodies)")
	configPath = flag.String("config", "config.json", "Path to configuration file (.json or .yaml)")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("swarmsync %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting swarmsync")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	verboseLogging := *verbose || cfg.Privacy.VerboseLogging
	applyLogLevel(logger, cfg.LogLevel, *verbose)
	if verboseLogging {
		logger.Info("Verbose logging enabled - session ids and message bodies will be logged")
	}

	tracingManager := tracing.NewManager(cfg.Tracing, Version, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	db, err := openDatabase(ctx, cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	keys, err := crypto.NewUserKeysFromHex(cfg.User.Ed25519Seed)
	if err != nil {
		return fmt.Errorf("failed to derive user keys: %w", err)
	}
	logger.WithField("session_id", keys.SessionID()).Info("Loaded account keys")

	state := configcache.NewState()
	if err := config.ApplyBootstrap(cfg.Bootstrap, state); err != nil {
		return fmt.Errorf("failed to apply bootstrap state: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	scheduler := jobs.NewScheduler(db, logger)
	notifier := notify.New(notify.NewLogSink(logger, verboseLogging), cfg.Notifications, m, verboseLogging, logger)

	// The feed pushes while the application is in the foreground; without
	// it only the background poller delivers.
	var feed *ingest.FeedClient
	appState := func() models.ApplicationState {
		if feed != nil && feed.IsConnected() {
			return models.ApplicationActive
		}
		return models.ApplicationBackground
	}

	receiver := receive.New(receive.Dependencies{
		UserSessionID:          keys.SessionID(),
		Crypto:                 crypto.NewEngine(keys),
		Config:                 state,
		ConfigMutator:          state,
		Jobs:                   scheduler,
		Notifier:               notifier,
		Logger:                 logger,
		AppState:               appState,
		VerboseLogging:         verboseLogging,
		TypingTimeout:          time.Duration(cfg.Processing.TypingTimeoutSec) * time.Second,
		KeyPairRequestInterval: time.Duration(cfg.Processing.KeyPairRequestIntervalSec) * time.Second,
	})
	processor := ingest.NewProcessor(receiver, db, m, cfg.Processing.Concurrency, verboseLogging, logger)
	if cfg.Feed.URL != "" {
		feed = ingest.NewFeedClient(cfg.Feed, processor, m, logger)
	}

	downloader, err := jobs.NewHTTPDownloader(
		&http.Client{Timeout: time.Duration(cfg.Attachments.DownloadTimeoutSec) * time.Second},
		cfg.Attachments.Dir,
		media.NewRouter(cfg.Attachments.MaxSizeMB),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize attachment downloader: %w", err)
	}
	runner := jobs.NewRunner(db, scheduler, downloader, m, jobs.RunnerConfig{
		Interval:        time.Duration(cfg.Processing.JobIntervalSec) * time.Second,
		MaxAttempts:     cfg.Attachments.MaxAttempts,
		DownloadTimeout: time.Duration(cfg.Attachments.DownloadTimeoutSec) * time.Second,
		BreakerFailures: cfg.Attachments.BreakerFailures,
		BreakerCooldown: time.Duration(cfg.Attachments.BreakerCooldownSec) * time.Second,
	}, logger)
	go runner.Start(ctx)
	defer runner.Stop()

	var poller *ingest.Poller
	if cfg.Feed.PollURL != "" {
		source := ingest.NewHTTPSource(&http.Client{Timeout: time.Duration(cfg.Server.ReadTimeoutSec) * time.Second},
			cfg.Feed.PollURL, cfg.Feed.ReadLimitBytes)
		poller = ingest.NewPoller(source, processor, cfg.Feed, logger)
		if err := poller.Start(ctx); err != nil {
			logger.Warnf("Failed to start poller: %v", err)
		}
		defer poller.Stop()
	}

	if feed != nil {
		go func() {
			if err := feed.Run(ctx); err != nil {
				logger.WithError(err).Error("Delivery feed exited")
			}
		}()
	}

	watcher := config.NewConfigWatcher(*configPath, cfg, logger)
	watcher.OnChange(func(change config.Change) {
		if change.LogLevel {
			applyLogLevel(logger, change.New.LogLevel, *verbose)
		}
		if change.Bootstrap {
			if err := config.ApplyBootstrap(change.New.Bootstrap, state); err != nil {
				logger.WithError(err).Error("Failed to apply reloaded bootstrap state")
				return
			}
			receiver.GroupKeysUpdated(bootstrapGroupIDs(change.New.Bootstrap)...)
		}
	})
	go watcher.Run(ctx)

	status := func() map[string]bool {
		out := map[string]bool{}
		if feed != nil {
			out["feed_connected"] = feed.IsConnected()
		}
		if poller != nil {
			out["poller_running"] = poller.IsRunning()
		}
		return out
	}

	server := NewServer(cfg.Server, db, registry, m, status, receiver.TypingIn, verboseLogging, logger)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}

func bootstrapGroupIDs(cfg models.BootstrapConfig) []string {
	ids := make([]string, 0, len(cfg.Groups))
	for _, g := range cfg.Groups {
		ids = append(ids, g.ID)
	}
	return ids
}

// applyLogLevel honors the configured level; the verbose flag forces debug.
func applyLogLevel(logger *logrus.Logger, level string, verboseFlag bool) {
	if verboseFlag {
		logger.SetLevel(logrus.DebugLevel)
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", level)
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
}

// openDatabase retries while another process holds the database lock.
func openDatabase(ctx context.Context, path string, logger *logrus.Logger) (*database.Database, error) {
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(constants.DefaultRetryBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(constants.DefaultMaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	})

	var db *database.Database
	err := backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	return db, nil
}
