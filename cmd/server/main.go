// Command server runs the Snowflake query monitor dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"snowmon/internal/config"
	"snowmon/internal/live"
	"snowmon/internal/middleware"
	"snowmon/internal/service/monitor"
	"snowmon/internal/snowflake"
	"snowmon/internal/ui"
)

func main() {
	var (
		listenAddr  string
		configPath  string
		secretsPath string
	)

	root := &cobra.Command{
		Use:   "server",
		Short: "Snowflake query monitor dashboard",
		Long: `Serves a browser dashboard over Snowflake's account-usage views:
query status breakdown, top queries, long-running queries, live running
queries, and per-query cost estimates.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), listenAddr, configPath, secretsPath)
		},
	}
	root.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides LISTEN_ADDR)")
	root.Flags().StringVar(&configPath, "config", "config.json", "path to the JSON config file")
	root.Flags().StringVar(&secretsPath, "secrets", "secrets.yaml", "path to the YAML secrets file")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, listenAddr, configPath, secretsPath string) error {
	// Load .env file (if present); real env vars still win.
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	srvCfg, err := config.LoadServerFromEnv()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		srvCfg.ListenAddr = listenAddr
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: srvCfg.SlogLevel()}))
	for _, warning := range srvCfg.Warnings {
		logger.Warn(warning)
	}

	// Missing credentials are the one fatal startup error.
	connCfg, err := config.ResolveConnection(config.DefaultProviders(secretsPath, configPath)...)
	if err != nil {
		return err
	}

	client, err := snowflake.Open(ctx, connCfg, logger.With("component", "snowflake"))
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	monitorSvc := monitor.NewService(client, srvCfg.WarehouseCacheTTL, logger.With("component", "monitor"))
	liveAdapter := live.NewAdapter(client, logger.With("component", "live"))
	handler := ui.NewHandler(monitorSvc, liveAdapter, srvCfg.FallbackMinutes, logger.With("component", "ui"))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger.With("component", "http")))
	r.Use(chimw.Recoverer)
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: srvCfg.RateLimitRPS,
		Burst:             srvCfg.RateLimitBurst,
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: srvCfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	}))
	ui.MountRoutes(r, handler)

	srv := &http.Server{
		Addr:              srvCfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening", "addr", srvCfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
