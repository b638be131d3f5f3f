package tracking

import (
	"context"

	"github.com/rpattn/cagetrack/internal/domain"

	"github.com/google/uuid"
)

// TransportInput opens a transport leg.
type TransportInput struct {
	CageID  uuid.UUID            `json:"cageId"`
	Kind    domain.TransportKind `json:"kind"`
	Driver  *string              `json:"driver"`
	Vehicle *string              `json:"vehicle"`
	UserID  *uuid.UUID           `json:"-"`
}

// RecordTransport opens an in-transit leg departing now and moves the cage to the mapped stage.
func (s *Service) RecordTransport(ctx context.Context, input TransportInput) (domain.Transport, error) {
	if !input.Kind.Valid() {
		return domain.Transport{}, domain.InvalidInputf("unknown transport kind %q", input.Kind)
	}

	var (
		created domain.Transport
		event   *domain.StageChangeEvent
	)
	err := s.store.WithTx(ctx, func(repos repositories) error {
		cage, err := repos.Cages.GetForUpdate(ctx, input.CageID)
		if err != nil {
			return err
		}

		created, err = repos.Transports.Create(ctx, domain.Transport{
			ID:         uuid.New(),
			CageID:     cage.ID,
			Kind:       input.Kind,
			Driver:     domain.OptionalString(input.Driver),
			Vehicle:    domain.OptionalString(input.Vehicle),
			DepartedAt: s.now(),
			Status:     domain.TransportInTransit,
		})
		if err != nil {
			return err
		}

		if stage, ok := domain.StageForTransport(created.Kind, created.Status); ok {
			event, err = s.changeStage(ctx, repos, cage, stage, input.UserID, nil)
		}
		return err
	})
	if err != nil {
		return domain.Transport{}, err
	}

	s.publish(event)
	return created, nil
}

// UpdateTransport applies a partial update. Marking a leg delivered fills a
// missing arrival time, and a delivered return leg marks the cage delivered.
func (s *Service) UpdateTransport(ctx context.Context, id uuid.UUID, update domain.TransportUpdate, userID *uuid.UUID) (domain.Transport, error) {
	if update.Status != nil && !update.Status.Valid() {
		return domain.Transport{}, domain.InvalidInputf("unknown transport status %q", *update.Status)
	}

	var (
		updated domain.Transport
		event   *domain.StageChangeEvent
	)
	err := s.store.WithTx(ctx, func(repos repositories) error {
		current, err := repos.Transports.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if update.Driver != nil {
			current.Driver = domain.OptionalString(update.Driver)
		}
		if update.Vehicle != nil {
			current.Vehicle = domain.OptionalString(update.Vehicle)
		}
		if update.ArrivedAt != nil {
			arrived := update.ArrivedAt.UTC()
			if arrived.Before(current.DepartedAt) {
				return domain.InvalidInputf("arrival %s precedes departure %s", arrived.Format(timeLayout), current.DepartedAt.Format(timeLayout))
			}
			current.ArrivedAt = &arrived
		}

		delivered := update.Status != nil && *update.Status == domain.TransportDelivered
		if update.Status != nil {
			current.Status = *update.Status
		}
		if delivered && current.ArrivedAt == nil {
			now := s.now()
			current.ArrivedAt = &now
		}

		if updated, err = repos.Transports.Update(ctx, current); err != nil {
			return err
		}

		if !delivered {
			return nil
		}
		if stage, ok := domain.StageForTransport(current.Kind, current.Status); ok && stage == domain.StageDelivered {
			cage, err := repos.Cages.GetForUpdate(ctx, current.CageID)
			if err != nil {
				return err
			}
			event, err = s.changeStage(ctx, repos, cage, stage, userID, nil)
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Transport{}, err
	}

	s.publish(event)
	return updated, nil
}

// GetTransport returns a transport leg by id.
func (s *Service) GetTransport(ctx context.Context, id uuid.UUID) (domain.Transport, error) {
	return s.store.Repositories().Transports.GetByID(ctx, id)
}

// ListTransports lists legs, most recent departure first.
func (s *Service) ListTransports(ctx context.Context, filter domain.TransportFilter) ([]domain.Transport, error) {
	return s.store.Repositories().Transports.List(ctx, filter)
}
