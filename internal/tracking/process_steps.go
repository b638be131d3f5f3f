package tracking

import (
	"context"
	"time"

	"github.com/rpattn/cagetrack/internal/domain"

	"github.com/google/uuid"
)

const timeLayout = time.RFC3339

// ProcessStepInput opens a processing step.
type ProcessStepInput struct {
	CageID    uuid.UUID       `json:"cageId"`
	Kind      domain.StepKind `json:"kind"`
	MachineID *string         `json:"machineId"`
	UserID    *uuid.UUID      `json:"-"`
	Notes     *string         `json:"notes"`
}

// RecordProcessStep starts a step now and moves the cage to the matching stage.
func (s *Service) RecordProcessStep(ctx context.Context, input ProcessStepInput) (domain.ProcessStep, error) {
	if !input.Kind.Valid() {
		return domain.ProcessStep{}, domain.InvalidInputf("unknown process step %q", input.Kind)
	}

	var (
		created domain.ProcessStep
		event   *domain.StageChangeEvent
	)
	err := s.store.WithTx(ctx, func(repos repositories) error {
		cage, err := repos.Cages.GetForUpdate(ctx, input.CageID)
		if err != nil {
			return err
		}

		created, err = repos.ProcessSteps.Create(ctx, domain.ProcessStep{
			ID:        uuid.New(),
			CageID:    cage.ID,
			Kind:      input.Kind,
			StartedAt: s.now(),
			MachineID: domain.OptionalString(input.MachineID),
			UserID:    input.UserID,
			Notes:     domain.OptionalString(input.Notes),
		})
		if err != nil {
			return err
		}

		if stage, ok := domain.StageForStep(created.Kind); ok {
			event, err = s.changeStage(ctx, repos, cage, stage, input.UserID, nil)
		}
		return err
	})
	if err != nil {
		return domain.ProcessStep{}, err
	}

	s.publish(event)
	return created, nil
}

// CloseProcessStep ends a step. An explicit end time wins; otherwise an open step ends now.
// Closing never changes the cage stage.
func (s *Service) CloseProcessStep(ctx context.Context, id uuid.UUID, update domain.ProcessStepUpdate) (domain.ProcessStep, error) {
	var closed domain.ProcessStep
	err := s.store.WithTx(ctx, func(repos repositories) error {
		current, err := repos.ProcessSteps.GetByID(ctx, id)
		if err != nil {
			return err
		}

		switch {
		case update.EndedAt != nil:
			ended := update.EndedAt.UTC()
			current.EndedAt = &ended
		case current.EndedAt == nil:
			now := s.now()
			current.EndedAt = &now
		}
		if current.EndedAt.Before(current.StartedAt) {
			return domain.InvalidInputf("end %s precedes start %s", current.EndedAt.Format(timeLayout), current.StartedAt.Format(timeLayout))
		}
		if update.MachineID != nil {
			current.MachineID = domain.OptionalString(update.MachineID)
		}
		if update.Notes != nil {
			current.Notes = domain.OptionalString(update.Notes)
		}

		closed, err = repos.ProcessSteps.Update(ctx, current)
		return err
	})
	if err != nil {
		return domain.ProcessStep{}, err
	}
	return closed, nil
}

// GetProcessStep returns a step by id.
func (s *Service) GetProcessStep(ctx context.Context, id uuid.UUID) (domain.ProcessStep, error) {
	return s.store.Repositories().ProcessSteps.GetByID(ctx, id)
}

// ListProcessSteps lists steps by start time.
func (s *Service) ListProcessSteps(ctx context.Context, filter domain.ProcessStepFilter) ([]domain.ProcessStep, error) {
	return s.store.Repositories().ProcessSteps.List(ctx, filter)
}
