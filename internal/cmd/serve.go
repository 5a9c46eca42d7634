package cmd

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	errwrap "github.com/docgate/docgate/internal/errors"
	"github.com/docgate/docgate/internal/observability"
	"github.com/docgate/docgate/internal/server"
	"github.com/docgate/docgate/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// limiterHealthChecker reports unhealthy if the shared limiter is missing
type limiterHealthChecker struct {
	limiter handlers.LimitReporter
}

func (l limiterHealthChecker) CheckHealth(ctx context.Context) error {
	if l.limiter == nil {
		return errwrap.NewInternalError("rate limiter not initialized")
	}
	if state := l.limiter.State(); state.Limit <= 0 || state.Window <= 0 {
		return errwrap.NewInternalError("rate limiter misconfigured")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP submission gateway",
	Long: `Start the HTTP gateway. All requests share one rate limiter, so the
configured limit holds across concurrent clients.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config file re-read (limits apply on restart)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		registryHost := cfg.Registry.BaseURL
		if parsed, err := url.Parse(cfg.Registry.BaseURL); err == nil && parsed.Host != "" {
			registryHost = parsed.Host
		}
		observability.InitServerLogger(cfg.Logging.Level, cfg.Logging.Environment, registryHost)

		health := handlers.NewHealthManager(versionInfo.Version)
		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(cfg.Metrics.Port); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics",
					zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
			health.RegisterChecker("telemetry", telemetryHealthChecker{})
		}

		gw, err := newGateway(cmd.Context(), cfg)
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "gateway initialization failed")
		}
		health.RegisterChecker("rate_limiter", limiterHealthChecker{limiter: gw.limiter})
		if gw.journal != nil {
			health.RegisterOptionalChecker("journal", gw.journal)
		}

		handlers.SetGatewayInfo(handlers.NewGatewayInfo(registryHost, cfg.Registry.CreatePath,
			cfg.RateLimit.Limit, cfg.RateLimit.Window, gw.journal != nil))

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", observability.ServiceName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("metrics_port", observability.GetMetricsPort()),
			zap.Int("rate_limit", cfg.RateLimit.Limit),
			zap.Duration("rate_window", cfg.RateLimit.Window),
			zap.Bool("journal", gw.journal != nil))

		srv := server.New(cfg.Server, server.Dependencies{
			Dispatcher: gw.dispatcher,
			Limiter:    gw.limiter,
			Health:     health,
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Close the attempt journal
		signals.OnShutdown(func(ctx context.Context) error {
			if err := gw.Close(); err != nil {
				observability.ServerLogger.Warn("Failed to close attempt journal", zap.Error(err))
			}
			return nil
		})

		// Handler 3: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: re-reading config file")

			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					observability.ServerLogger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				observability.ServerLogger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			// The limiter is never rebuilt while serving; a new window or
			// limit would reset admission state mid-window.
			if _, err := loadConfig(); err != nil {
				return errwrap.WrapConfigInvalid(ctx, err, "reloaded config is invalid")
			}
			observability.ServerLogger.Info("Configuration re-read; rate limit changes apply on restart",
				zap.String("file", viper.ConfigFileUsed()))
			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
