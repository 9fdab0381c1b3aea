package kero

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kareemzeiad-ops/kero-feeder/internal/advisory"
	"github.com/kareemzeiad-ops/kero-feeder/internal/httpapi"
	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
	"github.com/kareemzeiad-ops/kero-feeder/internal/service"
	"github.com/kareemzeiad-ops/kero-feeder/internal/session"
)

const (
	defaultAddr     = ":8080"
	shutdownTimeout = 10 * time.Second
)

var (
	serveAddr       string
	serveAPIKey     string
	serveModel      string
	serveDebounce   time.Duration
	serveOrigins    []string
	serveNoAdvisory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve formulation sessions over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		loadEnv()
		logger := newLogger(cmd.ErrOrStderr())

		var (
			data     *ration.Dataset
			settings service.Settings
		)
		err := withDB(func(sqldb *sql.DB) error {
			var err error
			if data, err = service.LoadDataset(sqldb); err != nil {
				return err
			}
			settings, err = resolveSettings(sqldb, serveModel, serveDebounce)
			return err
		})
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		opts := session.Options{
			Dataset:    data,
			Rules:      settings.Rules,
			Logger:     logger,
			Debounce:   settings.Debounce,
			AutoAdvise: true,
		}
		if !serveNoAdvisory {
			metrics := advisory.NewMetrics(reg)
			key := resolveAPIKey(serveAPIKey)
			if key == "" {
				logger.Warn("advisory_key_missing", "env", envAPIKey)
			}
			opts.Advisor = advisory.Instrument(&advisory.GeminiClient{APIKey: key, Model: settings.AdvisoryModel}, metrics)
			opts.Metrics = metrics
		}
		mgr := session.NewManager(opts)
		defer mgr.Close()

		router := httpapi.NewRouter(mgr, httpapi.Options{
			AllowOrigins: serveOrigins,
			Registerer:   reg,
			Gatherer:     reg,
			Logger:       logger,
		})
		addr := firstNonEmpty(serveAddr, os.Getenv(envAddr), defaultAddr)
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("server_listening",
				"addr", addr,
				"model", settings.AdvisoryModel,
				"debounce", settings.Debounce.String(),
				"ingredients", len(data.Ingredients),
				"origins", strings.Join(serveOrigins, ","),
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			logger.Info("server_stopping")
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown server: %w", err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			logger.Error("server_terminated", "err", err)
			return err
		}
		logger.Info("server_stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: $KERO_ADDR, then :8080)")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "Gemini API key (default: $GEMINI_API_KEY)")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "Advisory model (default: $GEMINI_MODEL, then config)")
	serveCmd.Flags().DurationVar(&serveDebounce, "debounce", 0, "Quiet period before background analysis (default: config, then 1.5s)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "allow-origin", nil, "CORS origin allowed to call the API (repeatable)")
	serveCmd.Flags().BoolVar(&serveNoAdvisory, "no-advisory", false, "Disable the advisory model")
}
