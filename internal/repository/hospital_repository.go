package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/cagetrack/internal/domain"

	"github.com/google/uuid"
)

const hospitalColumns = `id, name, tax_id, address, phone, email, active, created_at, updated_at`

// hospitalRepository implements HospitalRepository interface
type hospitalRepository struct {
	q DBTX
}

// NewHospitalRepository creates a new hospital repository
func NewHospitalRepository(q DBTX) HospitalRepository {
	return &hospitalRepository{q: q}
}

func scanHospital(row rowScanner) (domain.Hospital, error) {
	var h domain.Hospital
	err := row.Scan(&h.ID, &h.Name, &h.TaxID, &h.Address, &h.Phone, &h.Email, &h.Active, &h.CreatedAt, &h.UpdatedAt)
	return h, err
}

// Create inserts a new hospital
func (r *hospitalRepository) Create(ctx context.Context, h domain.Hospital) (domain.Hospital, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO hospitals (`+hospitalColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+hospitalColumns,
		h.ID, h.Name, h.TaxID, h.Address, h.Phone, h.Email, h.Active, h.CreatedAt, h.UpdatedAt,
	)
	created, err := scanHospital(row)
	if err != nil {
		return domain.Hospital{}, translateError(err, "hospital", "create")
	}
	return created, nil
}

// GetByID retrieves a hospital by ID
func (r *hospitalRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Hospital, error) {
	row := r.q.QueryRow(ctx, `SELECT `+hospitalColumns+` FROM hospitals WHERE id = $1`, id)
	h, err := scanHospital(row)
	if err != nil {
		return domain.Hospital{}, translateError(err, "hospital", "get")
	}
	return h, nil
}

// GetByIDs retrieves every hospital whose ID is listed. Unknown IDs are skipped.
func (r *hospitalRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Hospital, error) {
	if len(ids) == 0 {
		return []domain.Hospital{}, nil
	}
	rows, err := r.q.Query(ctx, `SELECT `+hospitalColumns+` FROM hospitals WHERE id = ANY($1::uuid[])`, uuidStrings(ids))
	if err != nil {
		return nil, translateError(err, "hospital", "batch load")
	}
	defer rows.Close()

	out := make([]domain.Hospital, 0, len(ids))
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hospital: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// List returns hospitals ordered by name, optionally filtered by the active flag
func (r *hospitalRepository) List(ctx context.Context, active *bool, limit int, offset int) ([]domain.Hospital, error) {
	var where whereClause
	if active != nil {
		where.add("active = $%d", *active)
	}
	query := `SELECT ` + hospitalColumns + ` FROM hospitals` + where.String() + ` ORDER BY name, id` + where.page(limit, offset)

	rows, err := r.q.Query(ctx, query, where.args...)
	if err != nil {
		return nil, translateError(err, "hospital", "list")
	}
	defer rows.Close()

	out := []domain.Hospital{}
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hospital: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Update overwrites the mutable hospital columns
func (r *hospitalRepository) Update(ctx context.Context, h domain.Hospital) (domain.Hospital, error) {
	row := r.q.QueryRow(ctx,
		`UPDATE hospitals
		 SET name = $2, tax_id = $3, address = $4, phone = $5, email = $6, active = $7, updated_at = $8
		 WHERE id = $1
		 RETURNING `+hospitalColumns,
		h.ID, h.Name, h.TaxID, h.Address, h.Phone, h.Email, h.Active, h.UpdatedAt,
	)
	updated, err := scanHospital(row)
	if err != nil {
		return domain.Hospital{}, translateError(err, "hospital", "update")
	}
	return updated, nil
}
