package tracking

import (
	"context"
	"strings"
	"time"

	"github.com/rpattn/cagetrack/internal/divergence"
	"github.com/rpattn/cagetrack/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WeighingInput is a weighing taken by an operator.
type WeighingInput struct {
	CageID    uuid.UUID           `json:"cageId"`
	Kind      domain.WeighingKind `json:"kind"`
	Weight    *decimal.Decimal    `json:"weight"`
	ScaleID   *string             `json:"scaleId"`
	Timestamp *time.Time          `json:"timestamp"`
	UserID    *uuid.UUID          `json:"-"`
	Notes     *string             `json:"notes"`
}

// ScaleReading is a weighing pushed by a scale, addressed by cage code and never attributed to a user.
type ScaleReading struct {
	CageCode  string              `json:"cageCode"`
	Kind      domain.WeighingKind `json:"kind"`
	Weight    *decimal.Decimal    `json:"weight"`
	ScaleID   *string             `json:"scaleId"`
	Timestamp *time.Time          `json:"timestamp"`
}

type weighingDraft struct {
	kind      domain.WeighingKind
	weight    *decimal.Decimal
	scaleID   *string
	timestamp *time.Time
	userID    *uuid.UUID
	notes     *string
}

// RecordWeighing stores a weighing, computes its divergence against the latest
// departure weighing and moves the cage to the mapped stage.
func (s *Service) RecordWeighing(ctx context.Context, input WeighingInput) (domain.Weighing, error) {
	return s.recordWeighing(ctx, func(ctx context.Context, repos repositories) (domain.Cage, error) {
		return repos.Cages.GetForUpdate(ctx, input.CageID)
	}, weighingDraft{
		kind:      input.Kind,
		weight:    input.Weight,
		scaleID:   input.ScaleID,
		timestamp: input.Timestamp,
		userID:    input.UserID,
		notes:     input.Notes,
	})
}

// RecordScaleWeighing is RecordWeighing for readings that identify the cage by code.
func (s *Service) RecordScaleWeighing(ctx context.Context, reading ScaleReading) (domain.Weighing, error) {
	code := strings.TrimSpace(reading.CageCode)
	if code == "" {
		return domain.Weighing{}, domain.InvalidInputf("cage code is required")
	}
	return s.recordWeighing(ctx, func(ctx context.Context, repos repositories) (domain.Cage, error) {
		cage, err := repos.Cages.GetByCode(ctx, code)
		if err != nil {
			return domain.Cage{}, err
		}
		return repos.Cages.GetForUpdate(ctx, cage.ID)
	}, weighingDraft{
		kind:      reading.Kind,
		weight:    reading.Weight,
		scaleID:   reading.ScaleID,
		timestamp: reading.Timestamp,
	})
}

func (s *Service) recordWeighing(
	ctx context.Context,
	resolve func(context.Context, repositories) (domain.Cage, error),
	draft weighingDraft,
) (domain.Weighing, error) {
	if !draft.kind.Valid() {
		return domain.Weighing{}, domain.InvalidInputf("unknown weighing kind %q", draft.kind)
	}
	submitted, err := domain.RequireWeight(draft.weight)
	if err != nil {
		return domain.Weighing{}, err
	}

	var (
		recorded domain.Weighing
		event    *domain.StageChangeEvent
		cageCode string
	)
	err = s.store.WithTx(ctx, func(repos repositories) error {
		cage, err := resolve(ctx, repos)
		if err != nil {
			return err
		}

		history, err := repos.Weighings.ListByCage(ctx, cage.ID)
		if err != nil {
			return err
		}

		weight := submitted.Round(domain.WeightPlaces)
		div, alert := divergence.ForInsert(history, draft.kind, weight, s.threshold)

		recorded, err = repos.Weighings.Create(ctx, domain.Weighing{
			ID:                uuid.New(),
			CageID:            cage.ID,
			Kind:              draft.kind,
			Weight:            weight,
			ScaleID:           domain.OptionalString(draft.scaleID),
			Timestamp:         s.timestampOr(draft.timestamp),
			UserID:            draft.userID,
			DivergencePercent: div,
			DivergenceAlert:   alert,
			Notes:             domain.OptionalString(draft.notes),
		})
		if err != nil {
			return err
		}

		if stage, ok := domain.StageForWeighing(draft.kind); ok {
			event, err = s.changeStage(ctx, repos, cage, stage, draft.userID, nil)
			if err != nil {
				return err
			}
		}
		cageCode = cage.Code
		return nil
	})
	if err != nil {
		return domain.Weighing{}, err
	}

	if recorded.DivergenceAlert {
		s.logger.Warn("weight divergence above threshold",
			zap.String("cage", cageCode),
			zap.String("kind", string(recorded.Kind)),
			zap.String("divergence", recorded.DivergencePercent.String()),
			zap.Float64("threshold", s.threshold),
		)
	}

	s.metrics.WeighingRecorded(string(recorded.Kind), recorded.DivergenceAlert)
	s.publish(event)
	return recorded, nil
}

// GetWeighing returns a weighing by id.
func (s *Service) GetWeighing(ctx context.Context, id uuid.UUID) (domain.Weighing, error) {
	return s.store.Repositories().Weighings.GetByID(ctx, id)
}

// ListWeighings lists weighings chronologically.
func (s *Service) ListWeighings(ctx context.Context, filter domain.WeighingFilter) ([]domain.Weighing, error) {
	return s.store.Repositories().Weighings.List(ctx, filter)
}
