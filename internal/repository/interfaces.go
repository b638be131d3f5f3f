package repository

import (
	"context"

	"github.com/rpattn/cagetrack/internal/domain"

	"github.com/google/uuid"
)

// HospitalRepository defines the interface for hospital operations
type HospitalRepository interface {
	Create(ctx context.Context, hospital domain.Hospital) (domain.Hospital, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Hospital, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Hospital, error)
	List(ctx context.Context, active *bool, limit int, offset int) ([]domain.Hospital, error)
	Update(ctx context.Context, hospital domain.Hospital) (domain.Hospital, error)
}

// CageRepository defines the interface for cage registry operations
type CageRepository interface {
	Create(ctx context.Context, cage domain.Cage) (domain.Cage, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Cage, error)
	GetByCode(ctx context.Context, code string) (domain.Cage, error)
	// GetForUpdate reads the cage and, inside a transaction, locks it until commit.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Cage, error)
	List(ctx context.Context, filter domain.CageFilter) ([]domain.Cage, error)
	// LatestCodeWithPrefix returns the highest "<prefix>-N" code, or "" when none exists.
	LatestCodeWithPrefix(ctx context.Context, prefix string) (string, error)
	Update(ctx context.Context, cage domain.Cage) (domain.Cage, error)
	UpdateStage(ctx context.Context, id uuid.UUID, stage domain.Stage) error
}

// WeighingRepository defines the interface for weighing records
type WeighingRepository interface {
	Create(ctx context.Context, weighing domain.Weighing) (domain.Weighing, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Weighing, error)
	ListByCage(ctx context.Context, cageID uuid.UUID) ([]domain.Weighing, error)
	ListByCages(ctx context.Context, cageIDs []uuid.UUID) (map[uuid.UUID][]domain.Weighing, error)
	List(ctx context.Context, filter domain.WeighingFilter) ([]domain.Weighing, error)
}

// TransportRepository defines the interface for transport legs
type TransportRepository interface {
	Create(ctx context.Context, transport domain.Transport) (domain.Transport, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Transport, error)
	Update(ctx context.Context, transport domain.Transport) (domain.Transport, error)
	List(ctx context.Context, filter domain.TransportFilter) ([]domain.Transport, error)
}

// ProcessStepRepository defines the interface for processing steps
type ProcessStepRepository interface {
	Create(ctx context.Context, step domain.ProcessStep) (domain.ProcessStep, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ProcessStep, error)
	Update(ctx context.Context, step domain.ProcessStep) (domain.ProcessStep, error)
	List(ctx context.Context, filter domain.ProcessStepFilter) ([]domain.ProcessStep, error)
}

// Repositories groups the repositories that share one transaction scope.
type Repositories struct {
	Hospitals    HospitalRepository
	Cages        CageRepository
	Weighings    WeighingRepository
	Transports   TransportRepository
	ProcessSteps ProcessStepRepository
}

// Store hands out repositories, either bound to the shared pool or to a single transaction.
type Store interface {
	Repositories() Repositories
	// WithTx runs fn against transaction-bound repositories. Returning an error rolls back every write.
	WithTx(ctx context.Context, fn func(Repositories) error) error
}
