// Package tracking implements the cage lifecycle: the registry, the weighing,
// transport and process recorders, and the stage state machine that ties them
// together. Every store-backed sequence runs in one store transaction; stage
// change notifications are published only after that transaction commits.
package tracking

import (
	"context"
	"strings"
	"time"

	"github.com/rpattn/cagetrack/internal/divergence"
	"github.com/rpattn/cagetrack/internal/domain"
	"github.com/rpattn/cagetrack/internal/metrics"
	"github.com/rpattn/cagetrack/internal/notify"
	"github.com/rpattn/cagetrack/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QRIssuer produces an opaque reference (file path, object key, URL) for a cage's QR artifact.
type QRIssuer interface {
	Issue(ctx context.Context, cage domain.Cage, payload domain.QRPayload) (string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithThreshold sets the divergence alert threshold in percent.
func WithThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold >= 0 {
			s.threshold = threshold
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the audit logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCodePrefix sets the prefix used for generated cage codes.
func WithCodePrefix(prefix string) Option {
	return func(s *Service) {
		if p := strings.TrimSpace(prefix); p != "" {
			s.codePrefix = p
		}
	}
}

// WithQRIssuer registers the collaborator invoked after a cage is created.
func WithQRIssuer(issuer QRIssuer) Option {
	return func(s *Service) { s.qr = issuer }
}

// WithPublicBaseURL sets the base URL embedded in QR payloads.
func WithPublicBaseURL(baseURL string) Option {
	return func(s *Service) { s.baseURL = baseURL }
}

// Service coordinates the store, the divergence calculator and the notification log.
type Service struct {
	store         repository.Store
	notifications *notify.Log

	threshold  float64
	now        func() time.Time
	logger     *zap.Logger
	metrics    *metrics.Metrics
	codePrefix string
	qr         QRIssuer
	baseURL    string
}

// NewService builds a Service. A nil notification log gets a default-capacity one.
func NewService(store repository.Store, notifications *notify.Log, opts ...Option) *Service {
	if notifications == nil {
		notifications = notify.NewLog(notify.DefaultCapacity)
	}
	s := &Service{
		store:         store,
		notifications: notifications,
		threshold:     divergence.DefaultThreshold,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        zap.NewNop(),
		codePrefix:    domain.DefaultCodePrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Threshold reports the configured divergence alert threshold.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// Notifications exposes the injected stage change log.
func (s *Service) Notifications() *notify.Log {
	return s.notifications
}

// changeStage writes the new stage inside the current transaction.
// It returns nil when the cage is already at that stage.
func (s *Service) changeStage(
	ctx context.Context,
	repos repository.Repositories,
	cage domain.Cage,
	to domain.Stage,
	userID *uuid.UUID,
	notes *string,
) (*domain.StageChangeEvent, error) {
	if cage.Stage == to {
		return nil, nil
	}
	if err := repos.Cages.UpdateStage(ctx, cage.ID, to); err != nil {
		return nil, err
	}
	return &domain.StageChangeEvent{
		CageCode:  cage.Code,
		From:      cage.Stage,
		To:        to,
		Timestamp: s.now(),
		UserID:    userID,
		Notes:     notes,
	}, nil
}

// publish appends a committed stage change to the log. Never called before commit.
func (s *Service) publish(event *domain.StageChangeEvent) {
	if event == nil {
		return
	}
	s.notifications.Append(*event)

	fields := []zap.Field{
		zap.String("cage", event.CageCode),
		zap.String("from", event.From.String()),
		zap.String("to", event.To.String()),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user", event.UserID.String()))
	}
	s.logger.Info("STATUS_CHANGE", fields...)
	s.metrics.StageChanged(event.To.String(), s.notifications.Len())
}

func (s *Service) timestampOr(ts *time.Time) time.Time {
	if ts == nil || ts.IsZero() {
		return s.now()
	}
	return ts.UTC()
}
