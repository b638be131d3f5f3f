package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rpattn/cagetrack/internal/db"
	"github.com/rpattn/cagetrack/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresStore hands out pgx-backed repositories.
type PostgresStore struct {
	conn *db.Connection
}

// NewPostgresStore wires a store on top of the shared connection pool.
func NewPostgresStore(conn *db.Connection) *PostgresStore {
	return &PostgresStore{conn: conn}
}

// Repositories returns repositories bound to the pool (autocommit).
func (s *PostgresStore) Repositories() Repositories {
	return NewPostgresRepositories(s.conn.Pool)
}

// WithTx runs fn against repositories bound to a single pgx transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(Repositories) error) error {
	return s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(NewPostgresRepositories(tx))
	})
}

// NewPostgresRepositories binds every repository to the same executor.
func NewPostgresRepositories(q DBTX) Repositories {
	return Repositories{
		Hospitals:    NewHospitalRepository(q),
		Cages:        NewCageRepository(q),
		Weighings:    NewWeighingRepository(q),
		Transports:   NewTransportRepository(q),
		ProcessSteps: NewProcessStepRepository(q),
	}
}

// translateError maps driver errors onto the domain sentinels.
func translateError(err error, entity string, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFoundf("%s not found", entity)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return domain.Conflictf("%s violates unique constraint %s", entity, pgErr.ConstraintName)
		case "23503":
			return domain.NotFoundf("%s references a missing record (%s)", entity, pgErr.ConstraintName)
		case "23514":
			return domain.InvalidInputf("%s violates check constraint %s", entity, pgErr.ConstraintName)
		case "22003":
			return domain.InvalidInputf("%s has a value out of range: %s", entity, pgErr.Message)
		}
	}
	return fmt.Errorf("failed to %s %s: %w", action, entity, err)
}

type whereClause struct {
	conditions []string
	args       []any
}

// add appends a condition; format must contain a single %d for the placeholder index.
func (w *whereClause) add(format string, arg any) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, fmt.Sprintf(format, len(w.args)))
}

func (w *whereClause) String() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

// page appends LIMIT/OFFSET placeholders. A non-positive limit is unbounded.
func (w *whereClause) page(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		w.args = append(w.args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(w.args))
	}
	if offset > 0 {
		w.args = append(w.args, offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(w.args))
	}
	return b.String()
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func decimalArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDecimal(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, fmt.Errorf("invalid numeric value %q: %w", *raw, err)
	}
	return &d, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
