package tracking

import (
	"context"
	"strings"

	"github.com/rpattn/cagetrack/internal/domain"

	"github.com/google/uuid"
)

// HospitalInput is the payload for registering a hospital.
type HospitalInput struct {
	Name    string  `json:"name"`
	TaxID   *string `json:"taxId"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
}

// CreateHospital registers an active hospital. A duplicate tax id is a Conflict.
func (s *Service) CreateHospital(ctx context.Context, input HospitalInput) (domain.Hospital, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.Hospital{}, domain.InvalidInputf("hospital name is required")
	}

	h := domain.NewHospital(name, s.now())
	h.TaxID = domain.OptionalString(input.TaxID)
	h.Address = domain.OptionalString(input.Address)
	h.Phone = domain.OptionalString(input.Phone)
	h.Email = domain.OptionalString(input.Email)

	return s.store.Repositories().Hospitals.Create(ctx, h)
}

// GetHospital returns a hospital by id.
func (s *Service) GetHospital(ctx context.Context, id uuid.UUID) (domain.Hospital, error) {
	return s.store.Repositories().Hospitals.GetByID(ctx, id)
}

// ListHospitals lists hospitals by name, optionally only active or inactive ones.
func (s *Service) ListHospitals(ctx context.Context, active *bool, limit, offset int) ([]domain.Hospital, error) {
	return s.store.Repositories().Hospitals.List(ctx, active, limit, offset)
}

// UpdateHospital applies a partial update.
func (s *Service) UpdateHospital(ctx context.Context, id uuid.UUID, update domain.HospitalUpdate) (domain.Hospital, error) {
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if trimmed == "" {
			return domain.Hospital{}, domain.InvalidInputf("hospital name cannot be empty")
		}
		update.Name = &trimmed
	}

	var updated domain.Hospital
	err := s.store.WithTx(ctx, func(repos repositories) error {
		current, err := repos.Hospitals.GetByID(ctx, id)
		if err != nil {
			return err
		}
		updated, err = repos.Hospitals.Update(ctx, update.Apply(current, s.now()))
		return err
	})
	if err != nil {
		return domain.Hospital{}, err
	}
	return updated, nil
}
