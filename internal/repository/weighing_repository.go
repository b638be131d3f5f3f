package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/cagetrack/internal/domain"

	"github.com/google/uuid"
)

// numeric columns travel as text so decimal values never pass through float64
const weighingColumns = `id, cage_id, kind, weight::text, scale_id, recorded_at, user_id, divergence_percent::text, divergence_alert, notes`

type weighingRepository struct {
	q DBTX
}

// NewWeighingRepository creates a new weighing repository
func NewWeighingRepository(q DBTX) WeighingRepository {
	return &weighingRepository{q: q}
}

func scanWeighing(row rowScanner) (domain.Weighing, error) {
	var (
		w          domain.Weighing
		kind       string
		weight     string
		divergence *string
	)
	err := row.Scan(&w.ID, &w.CageID, &kind, &weight, &w.ScaleID, &w.Timestamp, &w.UserID, &divergence, &w.DivergenceAlert, &w.Notes)
	if err != nil {
		return domain.Weighing{}, err
	}
	w.Kind = domain.WeighingKind(kind)
	parsed, err := parseDecimal(&weight)
	if err != nil {
		return domain.Weighing{}, err
	}
	w.Weight = *parsed
	if w.DivergencePercent, err = parseDecimal(divergence); err != nil {
		return domain.Weighing{}, err
	}
	return w, nil
}

func (r *weighingRepository) Create(ctx context.Context, w domain.Weighing) (domain.Weighing, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO weighings (id, cage_id, kind, weight, scale_id, recorded_at, user_id, divergence_percent, divergence_alert, notes)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8::numeric, $9, $10)
		 RETURNING `+weighingColumns,
		w.ID, w.CageID, string(w.Kind), w.Weight.String(), w.ScaleID, w.Timestamp, w.UserID,
		decimalArg(w.DivergencePercent), w.DivergenceAlert, w.Notes,
	)
	created, err := scanWeighing(row)
	if err != nil {
		return domain.Weighing{}, translateError(err, "weighing", "create")
	}
	return created, nil
}

func (r *weighingRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Weighing, error) {
	w, err := scanWeighing(r.q.QueryRow(ctx, `SELECT `+weighingColumns+` FROM weighings WHERE id = $1`, id))
	if err != nil {
		return domain.Weighing{}, translateError(err, "weighing", "get")
	}
	return w, nil
}

func (r *weighingRepository) ListByCage(ctx context.Context, cageID uuid.UUID) ([]domain.Weighing, error) {
	return r.List(ctx, domain.WeighingFilter{CageID: &cageID})
}

func (r *weighingRepository) ListByCages(ctx context.Context, cageIDs []uuid.UUID) (map[uuid.UUID][]domain.Weighing, error) {
	out := make(map[uuid.UUID][]domain.Weighing, len(cageIDs))
	if len(cageIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+weighingColumns+` FROM weighings WHERE cage_id = ANY($1::uuid[]) ORDER BY recorded_at, id`,
		uuidStrings(cageIDs),
	)
	if err != nil {
		return nil, translateError(err, "weighing", "batch load")
	}
	defer rows.Close()

	for rows.Next() {
		w, err := scanWeighing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weighing: %w", err)
		}
		out[w.CageID] = append(out[w.CageID], w)
	}
	return out, rows.Err()
}

func (r *weighingRepository) List(ctx context.Context, filter domain.WeighingFilter) ([]domain.Weighing, error) {
	var where whereClause
	if filter.CageID != nil {
		where.add("cage_id = $%d", *filter.CageID)
	}
	if filter.Kind != nil {
		where.add("kind = $%d", string(*filter.Kind))
	}
	query := `SELECT ` + weighingColumns + ` FROM weighings` + where.String() +
		` ORDER BY recorded_at, id` + where.page(filter.Limit, filter.Offset)

	rows, err := r.q.Query(ctx, query, where.args...)
	if err != nil {
		return nil, translateError(err, "weighing", "list")
	}
	defer rows.Close()

	out := []domain.Weighing{}
	for rows.Next() {
		w, err := scanWeighing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weighing: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
