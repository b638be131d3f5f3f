package tracking

import (
	"context"
	"strings"

	"github.com/rpattn/cagetrack/internal/domain"
	"github.com/rpattn/cagetrack/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type repositories = repository.Repositories

// CageInput is the payload for registering a cage. A missing code is generated.
type CageInput struct {
	HospitalID uuid.UUID `json:"hospitalId"`
	Code       *string   `json:"code"`
	Notes      *string   `json:"notes"`
}

// CreateCage registers a cage in stage Created and then asks the QR issuer for a reference.
func (s *Service) CreateCage(ctx context.Context, input CageInput) (domain.Cage, error) {
	var created domain.Cage
	err := s.store.WithTx(ctx, func(repos repositories) error {
		if _, err := repos.Hospitals.GetByID(ctx, input.HospitalID); err != nil {
			return err
		}

		code := ""
		if input.Code != nil {
			code = strings.TrimSpace(*input.Code)
		}
		if code == "" {
			latest, err := repos.Cages.LatestCodeWithPrefix(ctx, s.codePrefix)
			if err != nil {
				return err
			}
			code = domain.NextCode(s.codePrefix, latest)
		}

		var err error
		created, err = repos.Cages.Create(ctx, domain.NewCage(code, input.HospitalID, input.Notes, s.now()))
		return err
	})
	if err != nil {
		return domain.Cage{}, err
	}

	s.logger.Info("cage created", zap.String("cage", created.Code), zap.String("hospital", created.HospitalID.String()))
	return s.issueQR(ctx, created), nil
}

// issueQR stores the issuer's reference on the cage. Issuer failures are logged and swallowed.
func (s *Service) issueQR(ctx context.Context, cage domain.Cage) domain.Cage {
	if s.qr == nil {
		return cage
	}
	ref, err := s.qr.Issue(ctx, cage, domain.NewQRPayload(cage, s.baseURL))
	if err != nil {
		s.logger.Warn("qr issue failed", zap.String("cage", cage.Code), zap.Error(err))
		return cage
	}
	if strings.TrimSpace(ref) == "" {
		return cage
	}
	cage.QRReference = &ref
	updated, err := s.store.Repositories().Cages.Update(ctx, cage)
	if err != nil {
		s.logger.Warn("qr reference not stored", zap.String("cage", cage.Code), zap.Error(err))
		cage.QRReference = nil
		return cage
	}
	return updated
}

// GetCage returns a cage by id.
func (s *Service) GetCage(ctx context.Context, id uuid.UUID) (domain.Cage, error) {
	return s.store.Repositories().Cages.GetByID(ctx, id)
}

// GetCageByCode returns a cage by its business code.
func (s *Service) GetCageByCode(ctx context.Context, code string) (domain.Cage, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Cage{}, domain.InvalidInputf("cage code is required")
	}
	return s.store.Repositories().Cages.GetByCode(ctx, code)
}

// ListCages lists cages newest first.
func (s *Service) ListCages(ctx context.Context, filter domain.CageFilter) ([]domain.Cage, error) {
	return s.store.Repositories().Cages.List(ctx, filter)
}

// UpdateCage moves a cage to another hospital or edits its notes. The stage is untouched.
func (s *Service) UpdateCage(ctx context.Context, id uuid.UUID, update domain.CageUpdate) (domain.Cage, error) {
	var updated domain.Cage
	err := s.store.WithTx(ctx, func(repos repositories) error {
		current, err := repos.Cages.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if update.HospitalID != nil {
			if _, err := repos.Hospitals.GetByID(ctx, *update.HospitalID); err != nil {
				return err
			}
		}
		updated, err = repos.Cages.Update(ctx, update.Apply(current))
		return err
	})
	if err != nil {
		return domain.Cage{}, err
	}
	return updated, nil
}

// SetStage overrides the stage directly, outside of the event mapping.
func (s *Service) SetStage(ctx context.Context, id uuid.UUID, stage domain.Stage, userID *uuid.UUID, notes *string) (domain.Cage, error) {
	if !stage.Valid() {
		return domain.Cage{}, domain.InvalidInputf("unknown stage %q", stage)
	}
	notes = domain.OptionalString(notes)

	var (
		cage  domain.Cage
		event *domain.StageChangeEvent
	)
	err := s.store.WithTx(ctx, func(repos repositories) error {
		var err error
		if cage, err = repos.Cages.GetForUpdate(ctx, id); err != nil {
			return err
		}
		event, err = s.changeStage(ctx, repos, cage, stage, userID, notes)
		return err
	})
	if err != nil {
		return domain.Cage{}, err
	}

	s.publish(event)
	return cage.WithStage(stage), nil
}

// QRPayload renders the payload encoded into the cage's QR artifact.
func (s *Service) QRPayload(ctx context.Context, id uuid.UUID) (domain.QRPayload, error) {
	cage, err := s.GetCage(ctx, id)
	if err != nil {
		return domain.QRPayload{}, err
	}
	return domain.NewQRPayload(cage, s.baseURL), nil
}
