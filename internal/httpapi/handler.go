// Package httpapi exposes cage tracking as a JSON API under /api/v1.
package httpapi

import (
	"net/http"

	"github.com/rpattn/cagetrack/internal/ingestion"
	"github.com/rpattn/cagetrack/internal/metrics"
	"github.com/rpattn/cagetrack/internal/middleware"
	"github.com/rpattn/cagetrack/internal/report"
	"github.com/rpattn/cagetrack/internal/repository"
	"github.com/rpattn/cagetrack/internal/tracking"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const defaultNotificationLimit = 50

// Config wires the handler to its services.
type Config struct {
	Tracking       *tracking.Service
	Reports        *report.Service
	Ingestion      *ingestion.Service
	Hospitals      repository.HospitalRepository
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	Registry       *prometheus.Registry
	AllowedOrigins []string
}

type server struct {
	tracking *tracking.Service
	reports  *report.Service
	logger   *zap.Logger
}

// NewHandler builds the routed API wrapped in CORS, request logging, user attribution and the hospital loader.
func NewHandler(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &server{tracking: cfg.Tracking, reports: cfg.Reports, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("POST /api/v1/hospitals", s.createHospital)
	mux.HandleFunc("GET /api/v1/hospitals", s.listHospitals)
	mux.HandleFunc("GET /api/v1/hospitals/{id}", s.getHospital)
	mux.HandleFunc("PUT /api/v1/hospitals/{id}", s.updateHospital)

	mux.HandleFunc("POST /api/v1/cages", s.createCage)
	mux.HandleFunc("GET /api/v1/cages", s.listCages)
	mux.HandleFunc("GET /api/v1/cages/by-code/{code}", s.getCageByCode)
	mux.HandleFunc("GET /api/v1/cages/{id}", s.getCage)
	mux.HandleFunc("PUT /api/v1/cages/{id}", s.updateCage)
	mux.HandleFunc("PUT /api/v1/cages/{id}/stage", s.setStage)
	mux.HandleFunc("GET /api/v1/cages/{id}/qr-payload", s.qrPayload)

	mux.HandleFunc("POST /api/v1/weighings", s.recordWeighing)
	mux.HandleFunc("GET /api/v1/weighings", s.listWeighings)
	mux.HandleFunc("GET /api/v1/weighings/{id}", s.getWeighing)
	mux.HandleFunc("POST /api/v1/weighings/scale", s.recordScaleWeighing)
	if cfg.Ingestion != nil {
		mux.Handle("POST /api/v1/weighings/import", ingestion.NewHTTPHandler(cfg.Ingestion))
	}

	mux.HandleFunc("POST /api/v1/transports", s.recordTransport)
	mux.HandleFunc("GET /api/v1/transports", s.listTransports)
	mux.HandleFunc("GET /api/v1/transports/{id}", s.getTransport)
	mux.HandleFunc("PUT /api/v1/transports/{id}", s.updateTransport)

	mux.HandleFunc("POST /api/v1/process-steps", s.recordProcessStep)
	mux.HandleFunc("GET /api/v1/process-steps", s.listProcessSteps)
	mux.HandleFunc("GET /api/v1/process-steps/{id}", s.getProcessStep)
	mux.HandleFunc("PUT /api/v1/process-steps/{id}", s.closeProcessStep)

	mux.HandleFunc("GET /api/v1/reports/expedition", s.expeditionReport)
	mux.HandleFunc("GET /api/v1/reports/divergences", s.divergenceReport)
	mux.HandleFunc("GET /api/v1/reports/productivity", s.productivityReport)

	mux.HandleFunc("GET /api/v1/notifications", s.notifications)

	var h http.Handler = mux
	if cfg.Hospitals != nil {
		h = middleware.DataLoaderMiddleware(cfg.Hospitals)(h)
	}
	h = middleware.UserMiddleware(h)
	h = middleware.LoggingMiddleware(logger, cfg.Metrics)(h)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return corsHandler.Handler(h)
}

func (s *server) notifications(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultNotificationLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.tracking.Notifications().Recent(limit))
}
