package compensation

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxRepository persists compensation gaps for the external reconciliation
// job. ListPending and MarkDone are the job-facing half of the contract.
type OutboxRepository interface {
	Insert(ctx context.Context, row *PendingCompensation) error
	ListPending(ctx context.Context, limit int) ([]*PendingCompensation, error)
	MarkDone(ctx context.Context, id string) error
}

type pgxOutboxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxOutboxRepository(pool *pgxpool.Pool) OutboxRepository {
	return &pgxOutboxRepository{pool: pool}
}

func (r *pgxOutboxRepository) Insert(ctx context.Context, row *PendingCompensation) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.compensation_outbox").
		Columns("id", "authorization_ref", "action", "reason", "status", "attempts", "last_error").
		Values(row.ID, row.AuthorizationRef, row.Action, row.Reason, row.Status, row.Attempts, row.LastError).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert outbox query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&row.CreatedAt, &row.UpdatedAt); err != nil {
		return fmt.Errorf("insert outbox row failed: %w", err)
	}
	return nil
}

func (r *pgxOutboxRepository) ListPending(ctx context.Context, limit int) ([]*PendingCompensation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"id", "authorization_ref", "action", "reason", "status", "attempts", "last_error", "created_at", "updated_at",
	).
		From("public.compensation_outbox").
		Where(squirrel.Eq{"status": OutboxStatusPending}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list pending query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending compensations failed: %w", err)
	}
	defer rows.Close()

	var items []*PendingCompensation
	for rows.Next() {
		var p PendingCompensation
		if err := rows.Scan(
			&p.ID, &p.AuthorizationRef, &p.Action, &p.Reason, &p.Status,
			&p.Attempts, &p.LastError, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox row failed: %w", err)
		}
		items = append(items, &p)
	}
	return items, nil
}

func (r *pgxOutboxRepository) MarkDone(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.compensation_outbox").
		Set("status", OutboxStatusDone).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark done query failed: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("mark outbox row done failed: %w", err)
	}
	return nil
}
