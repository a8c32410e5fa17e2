package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TWRT/sprint-manager/internal/app"
	"github.com/TWRT/sprint-manager/internal/config"
	"github.com/TWRT/sprint-manager/internal/logging"
	"github.com/TWRT/sprint-manager/internal/metrics"
	"github.com/TWRT/sprint-manager/internal/tracing"
)

const shutdownTimeout = 30 * time.Second

type serveFlags struct {
	envFile       string
	port          string
	dbPath        string
	calendarURL   string
	identityURL   string
	sessionCookie string
	clientTimeout time.Duration
	logLevel      string
	logFormat     string
	metricsAddr   string
	traceStdout   bool
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sprint task API",
		Long: `Start the HTTP API. Configuration is read from a .env file and the
environment; flags given on the command line take precedence.

Environment:
  PORT, DB_PATH, CALENDAR_BASE_URL, IDENTITY_BASE_URL, SESSION_COOKIE,
  HTTP_CLIENT_TIMEOUT, LOG_LEVEL, LOG_FORMAT, METRICS_ADDR, TRACE_STDOUT`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var envFiles []string
			if flags.envFile != "" {
				envFiles = append(envFiles, flags.envFile)
			}
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return err
			}
			applyServeFlags(cmd, flags, &cfg)
			return runServe(cmd.Context(), cfg)
		},
	}

	defaults := config.Default()
	cmd.Flags().StringVar(&flags.envFile, "env-file", "", "Env file to load instead of .env")
	cmd.Flags().StringVar(&flags.port, "port", defaults.Port, "Port for the task API. Can also use PORT env var.")
	cmd.Flags().StringVar(&flags.dbPath, "db", defaults.DBPath, "SQLite database path. Can also use DB_PATH env var.")
	cmd.Flags().StringVar(&flags.calendarURL, "calendar-url", defaults.CalendarBaseURL, "Calendar service base URL. Can also use CALENDAR_BASE_URL env var.")
	cmd.Flags().StringVar(&flags.identityURL, "identity-url", defaults.IdentityBaseURL, "Identity service base URL. Can also use IDENTITY_BASE_URL env var.")
	cmd.Flags().StringVar(&flags.sessionCookie, "session-cookie", defaults.SessionCookie, "Name of the session cookie forwarded to both services. Can also use SESSION_COOKIE env var.")
	cmd.Flags().DurationVar(&flags.clientTimeout, "client-timeout", defaults.ClientTimeout, "Timeout for outbound calls, 0 for none. Can also use HTTP_CLIENT_TIMEOUT env var.")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error). Can also use LOG_LEVEL env var.")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", defaults.LogFormat, "Log format (text, json). Can also use LOG_FORMAT env var.")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", defaults.MetricsAddr, "Metrics server address, empty to disable. Can also use METRICS_ADDR env var.")
	cmd.Flags().BoolVar(&flags.traceStdout, "trace-stdout", false, "Write trace spans to stdout. Can also use TRACE_STDOUT env var.")

	return cmd
}

// applyServeFlags overrides cfg with flags that were set explicitly.
func applyServeFlags(cmd *cobra.Command, flags serveFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("port") {
		cfg.Port = flags.port
	}
	if changed("db") {
		cfg.DBPath = flags.dbPath
	}
	if changed("calendar-url") {
		cfg.CalendarBaseURL = flags.calendarURL
	}
	if changed("identity-url") {
		cfg.IdentityBaseURL = flags.identityURL
	}
	if changed("session-cookie") {
		cfg.SessionCookie = flags.sessionCookie
	}
	if changed("client-timeout") {
		cfg.ClientTimeout = flags.clientTimeout
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = flags.logFormat
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = flags.metricsAddr
	}
	if changed("trace-stdout") {
		cfg.TraceStdout = flags.traceStdout
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	shutdownTracing, err := tracing.Setup(cfg.TraceStdout, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("tracing shutdown failed", logging.Err(err))
		}
	}()

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("database ready", "path", cfg.DBPath)

	var metricsServer *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsAddr, a.Metrics, logger)
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", logging.Err(err))
			}
		}()
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		logger.Info("starting task api",
			"addr", server.Addr,
			"calendar", cfg.CalendarBaseURL,
			"identity", cfg.IdentityBaseURL,
			"version", version,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping task api")
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("task api stopped with error: %w", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", logging.Err(err))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shut down task api: %w", err)
	}

	logger.Info("task api stopped")
	return nil
}
