package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// CreateHold atomically claims the slot. Expired holds on the same slot
	// are treated as absent. Returns ErrSlotConflict when a live hold or a
	// confirmed reservation overlaps; the attempt must not retry.
	CreateHold(ctx context.Context, hold *SlotHold, now time.Time) error

	// FindHoldByPaymentRef returns the hold linked to a payment, or nil when
	// no such hold exists (expired and reaped, or already promoted).
	FindHoldByPaymentRef(ctx context.Context, ref string) (*SlotHold, error)

	// SetHoldPaymentRef links an authorized payment to the hold.
	SetHoldPaymentRef(ctx context.Context, holdID, ref string) error

	// PromoteHold re-validates the hold, inserts the confirmed reservation,
	// and deletes the hold, all in one transaction. Returns ErrHoldExpired if
	// the TTL lapsed and ErrSlotConflict if another reservation won the slot.
	PromoteHold(ctx context.Context, holdID string, now time.Time) (*Reservation, error)

	// ReleaseHold deletes a hold. Idempotent: releasing an absent hold is a no-op.
	ReleaseHold(ctx context.Context, holdID string) error

	// DeleteExpiredHolds reaps every hold past its expiry.
	DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error)

	GetReservationByID(ctx context.Context, id string) (*Reservation, error)
	GetReservationByPaymentRef(ctx context.Context, ref string) (*Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	UpdateReservationStatus(ctx context.Context, id string, status Status) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) CreateHold(ctx context.Context, h *SlotHold, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create hold tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// An expired hold no longer blocks the slot; clear it so the exclusion
	// constraint only arbitrates between live claims.
	_, err = tx.Exec(ctx, `
		DELETE FROM public.slot_holds
		WHERE resource_id = $1
		  AND expires_at <= $2
		  AND tstzrange(start_time, end_time) && tstzrange($3, $4)`,
		h.ResourceID, now, h.StartTime, h.EndTime,
	)
	if err != nil {
		return fmt.Errorf("clear expired holds failed: %w", err)
	}

	// Confirmed reservations also own the slot; their exclusion constraint
	// lives on a different table, so check here before inserting. This read
	// is best-effort: a reservation committed after it is caught at
	// PromoteHold by the reservations exclusion constraint, which is the
	// authoritative cross-table guard.
	var taken bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM public.reservations
			WHERE resource_id = $1
			  AND status = 'confirmed'
			  AND tstzrange(start_time, end_time) && tstzrange($2, $3)
		)`,
		h.ResourceID, h.StartTime, h.EndTime,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("check reservation overlap failed: %w", err)
	}
	if taken {
		return ErrSlotConflict
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO public.slot_holds
			(id, resource_id, service_id, holder_id, start_time, end_time, expires_at, notes, contact_phone, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		h.ID, h.ResourceID, h.ServiceID, h.HolderID, h.StartTime, h.EndTime,
		h.ExpiresAt, h.Notes, h.ContactPhone, h.Version,
	).Scan(&h.CreatedAt)
	if err != nil {
		// The exclusion constraint is the tie-break between concurrent
		// attempts: exactly one insert commits, the rest land here.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ExclusionViolation {
			return ErrSlotConflict
		}
		return fmt.Errorf("create hold failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create hold tx failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) FindHoldByPaymentRef(ctx context.Context, ref string) (*SlotHold, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"id", "resource_id", "service_id", "holder_id", "start_time", "end_time",
		"expires_at", "COALESCE(payment_ref, '')", "notes", "contact_phone", "version", "created_at",
	).
		From("public.slot_holds").
		Where(squirrel.Eq{"payment_ref": ref}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find hold query failed: %w", err)
	}

	var h SlotHold
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&h.ID, &h.ResourceID, &h.ServiceID, &h.HolderID, &h.StartTime, &h.EndTime,
		&h.ExpiresAt, &h.PaymentRef, &h.Notes, &h.ContactPhone, &h.Version, &h.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find hold by payment ref failed: %w", err)
	}
	return &h, nil
}

func (r *pgxRepository) SetHoldPaymentRef(ctx context.Context, holdID, ref string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.slot_holds").
		Set("payment_ref", ref).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": holdID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set hold payment ref query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set hold payment ref failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrHoldExpired
	}
	return nil
}

func (r *pgxRepository) PromoteHold(ctx context.Context, holdID string, now time.Time) (*Reservation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin promote tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var h SlotHold
	err = tx.QueryRow(ctx, `
		SELECT id, resource_id, service_id, holder_id, start_time, end_time,
		       expires_at, COALESCE(payment_ref, ''), notes, contact_phone
		FROM public.slot_holds
		WHERE id = $1
		FOR UPDATE`,
		holdID,
	).Scan(
		&h.ID, &h.ResourceID, &h.ServiceID, &h.HolderID, &h.StartTime, &h.EndTime,
		&h.ExpiresAt, &h.PaymentRef, &h.Notes, &h.ContactPhone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Reaped, released, or already promoted.
			return nil, ErrHoldExpired
		}
		return nil, fmt.Errorf("lock hold failed: %w", err)
	}

	if !h.ExpiresAt.After(now) {
		if _, err := tx.Exec(ctx, `DELETE FROM public.slot_holds WHERE id = $1`, holdID); err != nil {
			return nil, fmt.Errorf("delete expired hold failed: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit expired hold cleanup failed: %w", err)
		}
		return nil, ErrHoldExpired
	}

	res := &Reservation{
		ID:           h.ID,
		ResourceID:   h.ResourceID,
		ServiceID:    h.ServiceID,
		OwnerID:      h.HolderID,
		StartTime:    h.StartTime,
		EndTime:      h.EndTime,
		Status:       StatusConfirmed,
		PaymentRef:   h.PaymentRef,
		Notes:        h.Notes,
		ContactPhone: h.ContactPhone,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO public.reservations
			(id, resource_id, service_id, owner_id, start_time, end_time, status, payment_ref, notes, contact_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		res.ID, res.ResourceID, res.ServiceID, res.OwnerID, res.StartTime, res.EndTime,
		res.Status, res.PaymentRef, res.Notes, res.ContactPhone,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ExclusionViolation {
			// Another attempt confirmed the slot between our hold lapsing
			// and this promote.
			return nil, ErrSlotConflict
		}
		return nil, fmt.Errorf("insert reservation failed: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM public.slot_holds WHERE id = $1`, holdID); err != nil {
		return nil, fmt.Errorf("delete promoted hold failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit promote tx failed: %w", err)
	}
	return res, nil
}

func (r *pgxRepository) ReleaseHold(ctx context.Context, holdID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM public.slot_holds WHERE id = $1`, holdID); err != nil {
		return fmt.Errorf("release hold failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM public.slot_holds WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired holds failed: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (r *pgxRepository) GetReservationByID(ctx context.Context, id string) (*Reservation, error) {
	return r.getReservationBy(ctx, squirrel.Eq{"id": id})
}

func (r *pgxRepository) GetReservationByPaymentRef(ctx context.Context, ref string) (*Reservation, error) {
	return r.getReservationBy(ctx, squirrel.Eq{"payment_ref": ref})
}

func (r *pgxRepository) getReservationBy(ctx context.Context, pred squirrel.Eq) (*Reservation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"id", "resource_id", "service_id", "owner_id", "start_time", "end_time",
		"status", "payment_ref", "notes", "contact_phone", "created_at", "updated_at",
	).
		From("public.reservations").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reservation query failed: %w", err)
	}

	var res Reservation
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&res.ID, &res.ResourceID, &res.ServiceID, &res.OwnerID, &res.StartTime, &res.EndTime,
		&res.Status, &res.PaymentRef, &res.Notes, &res.ContactPhone, &res.CreatedAt, &res.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("get reservation failed: %w", err)
	}
	return &res, nil
}

func (r *pgxRepository) DeleteReservation(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM public.reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reservation failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrReservationNotFound
	}
	return nil
}

func (r *pgxRepository) UpdateReservationStatus(ctx context.Context, id string, status Status) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.reservations").
		Set("status", status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update reservation status query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update reservation status failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrReservationNotFound
	}
	return nil
}
