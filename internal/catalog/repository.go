package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Service, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Service, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"id", "resource_id", "name", "price_cents", "currency", "duration_minutes", "created_at",
	).
		From("public.services").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get service query failed: %w", err)
	}

	var s Service
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&s.ID, &s.ResourceID, &s.Name, &s.PriceCents, &s.Currency, &s.DurationMinutes, &s.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get service failed: %w", err)
	}
	return &s, nil
}
