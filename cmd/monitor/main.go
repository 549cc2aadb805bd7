package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nimas-seat-alert/internal/browser"
	"nimas-seat-alert/internal/config"
	"nimas-seat-alert/internal/logging"
	"nimas-seat-alert/internal/lookup"
	"nimas-seat-alert/internal/models"
	"nimas-seat-alert/internal/monitor"
	"nimas-seat-alert/internal/notifier"
	"nimas-seat-alert/internal/scraper"
	"nimas-seat-alert/internal/telemetry"
)

const (
	serviceName = "nimas-seat-alert"
	version     = "0.1.0"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line flags
	configPath := flag.String("config", config.GetConfigPath(), "Config file path (optional, env vars take precedence)")
	backend := flag.String("backend", "", "Override SCRAPER_BACKEND (api, rendered, auto)")
	testNotify := flag.Bool("test-notify", false, "Send a Telegram test message and exit")
	dryRun := flag.Bool("dry-run", false, "Log the alert instead of sending it")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 2
	}
	if *backend != "" {
		cfg.Target.Backend = *backend
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config:\n%v\n", err)
		return 2
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry.OTLPEndpoint, serviceName, version)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("tracer shutdown", zap.Error(err))
			}
		}()
	}

	telegram, err := notifier.NewTelegram(notifier.TelegramConfig{
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		APIURL:   cfg.Telegram.APIURL,
		Timeout:  cfg.Telegram.Timeout,
	}, telemetry.HTTPClient(cfg.Telegram.Timeout))
	if err != nil {
		logger.Error("failed to initialize notifier", zap.Error(err))
		return 2
	}

	// Test notification if requested
	if *testNotify {
		if err := telegram.SendTestMessage(ctx); err != nil {
			logger.Error("test message failed", zap.Error(err))
			return 1
		}
		logger.Info("test message sent")
		return 0
	}

	mode := cfg.Backend()
	selector := newSelector(cfg, mode, logger)

	m := monitor.New(selector, telegram, monitor.Target{
		PageURL:    cfg.Target.PageURL,
		Identifier: cfg.Target.Identifier,
		Threshold:  cfg.ThresholdValue(),
		Backend:    mode,
		DryRun:     *dryRun,
	}, logger)

	metrics := telemetry.NewMetrics()
	check, err := m.Run(ctx)
	if err != nil {
		metrics.ObserveFailure(err, time.Now().Unix())
		pushMetrics(cfg, metrics, logger)
		logger.Error("check failed",
			zap.String("identifier", cfg.Target.Identifier),
			zap.String("class", models.ErrorClass(err)),
			zap.Error(err),
		)
		return 1
	}

	metrics.ObserveCheck(check)
	pushMetrics(cfg, metrics, logger)
	fmt.Println(check.StatusLine())
	return 0
}

// newSelector wires the lookups available for mode. The rendered lookup is
// left out, with a reason, when it is disabled or the driver is missing.
func newSelector(cfg *config.Config, mode models.Backend, logger *zap.Logger) *lookup.Selector {
	var api lookup.Lookuper
	if cfg.API.URL != "" {
		api = scraper.NewAPIClient(scraper.APIOptions{
			URL:     cfg.API.URL,
			Timeout: cfg.API.Timeout,
			Payload: scraper.PayloadOptions{
				PageSize:   cfg.API.PageSize,
				TemplateID: cfg.API.TemplateID,
				Category:   cfg.API.Category,
			},
			EnvelopeFallback: *cfg.API.EnvelopeFallback,
		}, telemetry.HTTPClient(cfg.API.Timeout))
	}

	var (
		rendered    lookup.Lookuper
		unavailable error
	)
	switch {
	case mode == models.BackendAPI:
		unavailable = errors.New("not used in api mode")
	case !*cfg.Browser.Enabled:
		unavailable = errors.New("disabled by BROWSER_ENABLED")
	default:
		if err := browser.Probe(); err != nil {
			unavailable = err
			logger.Warn("rendered-page lookup unavailable", zap.Error(err))
		} else {
			rendered = browser.NewRenderer(browser.Options{
				PageURL:   cfg.Target.PageURL,
				Timeout:   cfg.Browser.Timeout,
				UserAgent: cfg.Browser.UserAgent,
			})
		}
	}
	return lookup.NewSelector(api, rendered, unavailable)
}

func pushMetrics(cfg *config.Config, metrics *telemetry.Metrics, logger *zap.Logger) {
	if cfg.Telemetry.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := metrics.Push(ctx, cfg.Telemetry.PushgatewayURL, cfg.Telemetry.Job, cfg.Target.Identifier, telemetry.HTTPClient(10*time.Second))
	if err != nil {
		logger.Warn("failed to push metrics", zap.Error(err))
	}
}
