package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/chatguard/chatguard/internal/audit"
	"github.com/chatguard/chatguard/internal/config"
	"github.com/chatguard/chatguard/internal/eventlog"
	"github.com/chatguard/chatguard/internal/observability"
	"github.com/chatguard/chatguard/internal/policy"
	"github.com/chatguard/chatguard/internal/ratelimit"
	"github.com/chatguard/chatguard/internal/remote"
	"github.com/chatguard/chatguard/internal/reporter"
	"github.com/chatguard/chatguard/internal/server"
	"github.com/chatguard/chatguard/internal/strikes"
	"github.com/chatguard/chatguard/internal/structural"
	"github.com/chatguard/chatguard/internal/validator"
)

func newServeCmd() *cobra.Command {
	var configPath string
	var modeOverride string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the validation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if modeOverride != "" {
				cfg.Mode = modeOverride
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&modeOverride, "mode", "", "Override validation mode (enforce|monitor)")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.Logging)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	limiter := ratelimit.NewLimiter(ratelimit.Policy{
		Window:   cfg.RateLimit.Window(),
		MaxCount: cfg.RateLimit.MaxCount,
	})
	events := eventlog.NewLog(cfg.EventLog.Capacity)
	tracker, err := strikes.NewTracker(cfg.Strikes.Window(), cfg.Strikes.MaxIdentities)
	if err != nil {
		return err
	}

	vcfg := validator.Config{
		Limits: structural.Limits{
			MaxLength: cfg.Limits.MaxLength,
			MaxLines:  cfg.Limits.MaxLines,
			MaxWords:  cfg.Limits.MaxWords,
		},
		Limiter: limiter,
		Events:  events,
		Strikes: tracker,
		Mode:    policy.Mode(cfg.Mode),
		Logger:  logger,
		Metrics: metrics,
	}

	if cfg.Audit.Path != "" {
		auditLog, closeAudit, err := audit.Open(cfg.ResolvePath(cfg.Audit.Path), audit.Rotation{
			MaxSizeMB:  cfg.Audit.MaxSizeMB,
			MaxBackups: cfg.Audit.MaxBackups,
			MaxAgeDays: cfg.Audit.MaxAgeDays,
		})
		if err != nil {
			return err
		}
		defer func() { _ = closeAudit() }()
		vcfg.Audit = auditLog
	}

	if cfg.Reporting.WebhookURL != "" || len(cfg.Reporting.NotifyURLs) > 0 {
		notify := reporter.New(cfg.Reporting.WebhookURL, cfg.Reporting.NotifyURLs, cfg.Reporting.PerMinute, logger)
		defer notify.Close()
		vcfg.Notifier = notify
	}

	if cfg.Remote.Endpoint != "" {
		vcfg.Remote = remote.NewClient(cfg.Remote.Endpoint, cfg.Remote.Timeout())
	}

	engine, err := validator.New(vcfg)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Config:    cfg,
		Validator: engine,
		Events:    events,
		Metrics:   metrics,
		Registry:  registry,
		Logger:    logger,
		Version:   version,
	})
	if err != nil {
		return err
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every 1m", func() {
		now := time.Now()
		limiter.Sweep(now)
		tracker.Sweep(now)
		srv.SweepTransport(now)
	}); err != nil {
		return err
	}
	if _, err := sweeper.AddFunc("@every 15m", func() {
		s := events.Summarize(15 * time.Minute)
		logger.Info("event summary",
			"total", s.Total,
			"recent", s.RecentCount,
			"categories", len(s.ByCategory),
			"identities", len(s.ByIdentity))
	}); err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	metricsSrv := startMetricsServer(cfg, metrics, registry)
	defer func() {
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(context.Background())
		}
	}()

	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpSrv.ListenAndServe()
	}()

	logger.Info("listening", "addr", cfg.Server.Listen, "mode", cfg.Mode)

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-signalCtx.Done():
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func startMetricsServer(cfg *config.Config, metrics *observability.Metrics, registry *prometheus.Registry) *http.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))

	srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
