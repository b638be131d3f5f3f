package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rpattn/cagetrack/internal/httpapi"
	"github.com/rpattn/cagetrack/internal/ingestion"
	"github.com/rpattn/cagetrack/internal/metrics"
	"github.com/rpattn/cagetrack/internal/notify"
	"github.com/rpattn/cagetrack/internal/report"
	"github.com/rpattn/cagetrack/internal/scale"
	"github.com/rpattn/cagetrack/internal/tracking"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the optional MQTT scale listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context(), opts, !skipMigrations)
			if err != nil {
				return err
			}
			defer env.Close()
			return serve(cmd.Context(), env)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations at startup")
	return cmd
}

func serve(ctx context.Context, env *environment) error {
	logger := env.logger

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return err
	}

	svc := tracking.NewService(env.store, notify.NewLog(env.cfg.Notifications.Capacity),
		tracking.WithThreshold(env.cfg.Tracking.DivergenceThreshold),
		tracking.WithCodePrefix(env.cfg.Tracking.CodePrefix),
		tracking.WithPublicBaseURL(env.cfg.Tracking.PublicBaseURL),
		tracking.WithLogger(logger.Named("tracking")),
		tracking.WithMetrics(m),
	)

	handler := httpapi.NewHandler(httpapi.Config{
		Tracking:       svc,
		Reports:        report.NewService(env.store),
		Ingestion:      ingestion.NewService(svc, logger.Named("ingestion")),
		Hospitals:      env.store.Repositories().Hospitals,
		Logger:         logger.Named("http"),
		Metrics:        m,
		Registry:       registry,
		AllowedOrigins: env.cfg.HTTP.AllowedOrigins,
	})

	if env.cfg.MQTT.Enabled {
		listener := scale.NewListener(env.cfg.MQTT.Scale(), svc, logger.Named("scale"), m)
		if err := listener.Start(ctx); err != nil {
			return err
		}
		defer listener.Stop()
	}

	server := &http.Server{
		Addr:         env.cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}
