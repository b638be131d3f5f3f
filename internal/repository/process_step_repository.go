package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/cagetrack/internal/domain"

	"github.com/google/uuid"
)

const processStepColumns = `id, cage_id, kind, started_at, ended_at, machine_id, user_id, notes`

type processStepRepository struct {
	q DBTX
}

// NewProcessStepRepository creates a new process step repository
func NewProcessStepRepository(q DBTX) ProcessStepRepository {
	return &processStepRepository{q: q}
}

func scanProcessStep(row rowScanner) (domain.ProcessStep, error) {
	var (
		p    domain.ProcessStep
		kind string
	)
	if err := row.Scan(&p.ID, &p.CageID, &kind, &p.StartedAt, &p.EndedAt, &p.MachineID, &p.UserID, &p.Notes); err != nil {
		return domain.ProcessStep{}, err
	}
	p.Kind = domain.StepKind(kind)
	return p, nil
}

func (r *processStepRepository) Create(ctx context.Context, p domain.ProcessStep) (domain.ProcessStep, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO process_steps (`+processStepColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+processStepColumns,
		p.ID, p.CageID, string(p.Kind), p.StartedAt, p.EndedAt, p.MachineID, p.UserID, p.Notes,
	)
	created, err := scanProcessStep(row)
	if err != nil {
		return domain.ProcessStep{}, translateError(err, "process step", "create")
	}
	return created, nil
}

func (r *processStepRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ProcessStep, error) {
	p, err := scanProcessStep(r.q.QueryRow(ctx, `SELECT `+processStepColumns+` FROM process_steps WHERE id = $1`, id))
	if err != nil {
		return domain.ProcessStep{}, translateError(err, "process step", "get")
	}
	return p, nil
}

func (r *processStepRepository) Update(ctx context.Context, p domain.ProcessStep) (domain.ProcessStep, error) {
	row := r.q.QueryRow(ctx,
		`UPDATE process_steps SET ended_at = $2, machine_id = $3, notes = $4
		 WHERE id = $1
		 RETURNING `+processStepColumns,
		p.ID, p.EndedAt, p.MachineID, p.Notes,
	)
	updated, err := scanProcessStep(row)
	if err != nil {
		return domain.ProcessStep{}, translateError(err, "process step", "update")
	}
	return updated, nil
}

func (r *processStepRepository) List(ctx context.Context, filter domain.ProcessStepFilter) ([]domain.ProcessStep, error) {
	var where whereClause
	if filter.CageID != nil {
		where.add("cage_id = $%d", *filter.CageID)
	}
	if filter.StartedFrom != nil {
		where.add("started_at >= $%d", *filter.StartedFrom)
	}
	if filter.StartedTo != nil {
		where.add("started_at <= $%d", *filter.StartedTo)
	}
	query := `SELECT ` + processStepColumns + ` FROM process_steps` + where.String() +
		` ORDER BY started_at, id` + where.page(filter.Limit, filter.Offset)

	rows, err := r.q.Query(ctx, query, where.args...)
	if err != nil {
		return nil, translateError(err, "process step", "list")
	}
	defer rows.Close()

	out := []domain.ProcessStep{}
	for rows.Next() {
		p, err := scanProcessStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan process step: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
