package repository

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rpattn/cagetrack/internal/domain"

	"github.com/google/uuid"
)

const cageColumns = `id, code, hospital_id, stage, qr_reference, created_at, notes`

type cageRepository struct {
	q DBTX
}

// NewCageRepository creates a new cage repository
func NewCageRepository(q DBTX) CageRepository {
	return &cageRepository{q: q}
}

func scanCage(row rowScanner) (domain.Cage, error) {
	var (
		c     domain.Cage
		stage string
	)
	if err := row.Scan(&c.ID, &c.Code, &c.HospitalID, &stage, &c.QRReference, &c.CreatedAt, &c.Notes); err != nil {
		return domain.Cage{}, err
	}
	c.Stage = domain.Stage(stage)
	return c, nil
}

func (r *cageRepository) Create(ctx context.Context, c domain.Cage) (domain.Cage, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO cages (`+cageColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+cageColumns,
		c.ID, c.Code, c.HospitalID, string(c.Stage), c.QRReference, c.CreatedAt, c.Notes,
	)
	created, err := scanCage(row)
	if err != nil {
		return domain.Cage{}, translateError(err, "cage", "create")
	}
	return created, nil
}

func (r *cageRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Cage, error) {
	c, err := scanCage(r.q.QueryRow(ctx, `SELECT `+cageColumns+` FROM cages WHERE id = $1`, id))
	if err != nil {
		return domain.Cage{}, translateError(err, "cage", "get")
	}
	return c, nil
}

func (r *cageRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Cage, error) {
	c, err := scanCage(r.q.QueryRow(ctx, `SELECT `+cageColumns+` FROM cages WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return domain.Cage{}, translateError(err, "cage", "lock")
	}
	return c, nil
}

func (r *cageRepository) GetByCode(ctx context.Context, code string) (domain.Cage, error) {
	c, err := scanCage(r.q.QueryRow(ctx, `SELECT `+cageColumns+` FROM cages WHERE code = $1`, code))
	if err != nil {
		return domain.Cage{}, translateError(err, "cage", "get")
	}
	return c, nil
}

func (r *cageRepository) List(ctx context.Context, filter domain.CageFilter) ([]domain.Cage, error) {
	var where whereClause
	if filter.Stage != nil {
		where.add("stage = $%d", string(*filter.Stage))
	}
	if filter.HospitalID != nil {
		where.add("hospital_id = $%d", *filter.HospitalID)
	}
	if filter.CreatedFrom != nil {
		where.add("created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		where.add("created_at <= $%d", *filter.CreatedTo)
	}
	query := `SELECT ` + cageColumns + ` FROM cages` + where.String() +
		` ORDER BY created_at DESC, code` + where.page(filter.Limit, filter.Offset)

	rows, err := r.q.Query(ctx, query, where.args...)
	if err != nil {
		return nil, translateError(err, "cage", "list")
	}
	defer rows.Close()

	out := []domain.Cage{}
	for rows.Next() {
		c, err := scanCage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cage: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LatestCodeWithPrefix orders numerically by comparing length first, so GAIOL-1000 sorts after GAIOL-999.
func (r *cageRepository) LatestCodeWithPrefix(ctx context.Context, prefix string) (string, error) {
	pattern := "^" + regexp.QuoteMeta(prefix) + "-[0-9]+$"
	var code string
	err := r.q.QueryRow(ctx,
		`SELECT code FROM cages WHERE code ~ $1 ORDER BY length(code) DESC, code DESC LIMIT 1`,
		pattern,
	).Scan(&code)
	if err != nil {
		err = translateError(err, "cage", "find latest code")
		if isNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return code, nil
}

func (r *cageRepository) Update(ctx context.Context, c domain.Cage) (domain.Cage, error) {
	row := r.q.QueryRow(ctx,
		`UPDATE cages SET hospital_id = $2, qr_reference = $3, notes = $4
		 WHERE id = $1
		 RETURNING `+cageColumns,
		c.ID, c.HospitalID, c.QRReference, c.Notes,
	)
	updated, err := scanCage(row)
	if err != nil {
		return domain.Cage{}, translateError(err, "cage", "update")
	}
	return updated, nil
}

func (r *cageRepository) UpdateStage(ctx context.Context, id uuid.UUID, stage domain.Stage) error {
	tag, err := r.q.Exec(ctx, `UPDATE cages SET stage = $2 WHERE id = $1`, id, string(stage))
	if err != nil {
		return translateError(err, "cage", "update stage of")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("cage %s not found", id)
	}
	return nil
}
