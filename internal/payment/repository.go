package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, a *Authorization) error
	GetByRef(ctx context.Context, ref string) (*Authorization, error)
	GetByKey(ctx context.Context, idempotencyKey string) (*Authorization, error)
	UpdateStatus(ctx context.Context, ref string, status Status, declineReason string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, a *Authorization) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.payment_authorizations").
		Columns("ref", "idempotency_key", "amount_cents", "currency", "status", "client_secret", "decline_reason").
		Values(a.Ref, a.IdempotencyKey, a.AmountCents, a.Currency, a.Status, a.ClientSecret, a.DeclineReason).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create authorization query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// A concurrent request with the same idempotency key won; the
			// caller re-reads by key and replays that row.
			return ErrIdempotencyMismatch
		}
		return fmt.Errorf("create authorization failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByRef(ctx context.Context, ref string) (*Authorization, error) {
	return r.getBy(ctx, squirrel.Eq{"ref": ref})
}

func (r *pgxRepository) GetByKey(ctx context.Context, idempotencyKey string) (*Authorization, error) {
	return r.getBy(ctx, squirrel.Eq{"idempotency_key": idempotencyKey})
}

func (r *pgxRepository) getBy(ctx context.Context, pred squirrel.Eq) (*Authorization, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"ref", "idempotency_key", "amount_cents", "currency", "status",
		"client_secret", "decline_reason", "created_at", "updated_at",
	).
		From("public.payment_authorizations").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get authorization query failed: %w", err)
	}

	var a Authorization
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&a.Ref, &a.IdempotencyKey, &a.AmountCents, &a.Currency, &a.Status,
		&a.ClientSecret, &a.DeclineReason, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAuthorizationNotFound
		}
		return nil, fmt.Errorf("get authorization failed: %w", err)
	}
	return &a, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, ref string, status Status, declineReason string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.payment_authorizations").
		Set("status", status).
		Set("decline_reason", declineReason).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"ref": ref}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update authorization query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update authorization failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrAuthorizationNotFound
	}
	return nil
}
