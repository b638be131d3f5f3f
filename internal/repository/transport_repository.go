package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/cagetrack/internal/domain"

	"github.com/google/uuid"
)

const transportColumns = `id, cage_id, kind, driver, vehicle, departed_at, arrived_at, status`

type transportRepository struct {
	q DBTX
}

// NewTransportRepository creates a new transport repository
func NewTransportRepository(q DBTX) TransportRepository {
	return &transportRepository{q: q}
}

func scanTransport(row rowScanner) (domain.Transport, error) {
	var (
		t            domain.Transport
		kind, status string
	)
	if err := row.Scan(&t.ID, &t.CageID, &kind, &t.Driver, &t.Vehicle, &t.DepartedAt, &t.ArrivedAt, &status); err != nil {
		return domain.Transport{}, err
	}
	t.Kind = domain.TransportKind(kind)
	t.Status = domain.TransportStatus(status)
	return t, nil
}

func (r *transportRepository) Create(ctx context.Context, t domain.Transport) (domain.Transport, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO transports (`+transportColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+transportColumns,
		t.ID, t.CageID, string(t.Kind), t.Driver, t.Vehicle, t.DepartedAt, t.ArrivedAt, string(t.Status),
	)
	created, err := scanTransport(row)
	if err != nil {
		return domain.Transport{}, translateError(err, "transport", "create")
	}
	return created, nil
}

func (r *transportRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Transport, error) {
	t, err := scanTransport(r.q.QueryRow(ctx, `SELECT `+transportColumns+` FROM transports WHERE id = $1`, id))
	if err != nil {
		return domain.Transport{}, translateError(err, "transport", "get")
	}
	return t, nil
}

func (r *transportRepository) Update(ctx context.Context, t domain.Transport) (domain.Transport, error) {
	row := r.q.QueryRow(ctx,
		`UPDATE transports SET driver = $2, vehicle = $3, arrived_at = $4, status = $5
		 WHERE id = $1
		 RETURNING `+transportColumns,
		t.ID, t.Driver, t.Vehicle, t.ArrivedAt, string(t.Status),
	)
	updated, err := scanTransport(row)
	if err != nil {
		return domain.Transport{}, translateError(err, "transport", "update")
	}
	return updated, nil
}

func (r *transportRepository) List(ctx context.Context, filter domain.TransportFilter) ([]domain.Transport, error) {
	var where whereClause
	if filter.CageID != nil {
		where.add("cage_id = $%d", *filter.CageID)
	}
	query := `SELECT ` + transportColumns + ` FROM transports` + where.String() +
		` ORDER BY departed_at DESC, id` + where.page(filter.Limit, filter.Offset)

	rows, err := r.q.Query(ctx, query, where.args...)
	if err != nil {
		return nil, translateError(err, "transport", "list")
	}
	defer rows.Close()

	out := []domain.Transport{}
	for rows.Next() {
		t, err := scanTransport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transport: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
