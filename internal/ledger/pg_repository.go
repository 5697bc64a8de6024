package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telecare/scheduling-engine/internal/civil"
)

// PgRepository stores entries in the booking_ledger table. The schema carries
// a GiST exclusion constraint over (provider_id, date, [start_min, end_min))
// restricted to active statuses, so even a race that slips past the
// conditional insert surfaces as a constraint violation, not a double
// booking.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// dateArg encodes a civil date for a Postgres date column. UTC midnight is a
// container only; the day triple goes in and comes out unchanged.
func dateArg(d civil.Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var (
		e         Entry
		day       time.Time
		start     int
		end       int
		expiresAt *time.Time
	)
	err := row.Scan(&e.ID, &e.ProviderID, &day, &start, &end, &e.AppointmentID, &e.Status, &e.ReservedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	e.Date = civil.DateOf(day)
	e.Start = civil.Minutes(start)
	e.End = civil.Minutes(end)
	e.ExpiresAt = expiresAt
	return &e, nil
}

const entryColumns = `id, provider_id, date, start_min, end_min, appointment_id, status, reserved_at, expires_at`

func (r *PgRepository) ListActive(ctx context.Context, providerID uuid.UUID, date civil.Date) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM booking_ledger
		WHERE provider_id = $1
		  AND date = $2
		  AND (status = 'confirmed'
		       OR (status = 'reserved' AND (expires_at IS NULL OR expires_at > now())))
		ORDER BY start_min
	`, providerID, dateArg(date))
	if err != nil {
		return nil, fmt.Errorf("list active entries: %w", err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) Reserve(ctx context.Context, e Entry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reserve: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lapsed holds would otherwise trip the exclusion constraint and
	// block a window that is rightfully free.
	_, err = tx.Exec(ctx, `
		UPDATE booking_ledger
		SET status = 'released'
		WHERE provider_id = $1
		  AND date = $2
		  AND status = 'reserved'
		  AND expires_at IS NOT NULL
		  AND expires_at <= now()
	`, e.ProviderID, dateArg(e.Date))
	if err != nil {
		return fmt.Errorf("release lapsed holds: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO booking_ledger (`+entryColumns+`)
		SELECT $1, $2, $3, $4, $5, $6, 'reserved', $7, $8
		WHERE NOT EXISTS (
			SELECT 1 FROM booking_ledger
			WHERE provider_id = $2
			  AND date = $3
			  AND status IN ('reserved', 'confirmed')
			  AND start_min < $5
			  AND $4 < end_min
		)
	`, e.ID, e.ProviderID, dateArg(e.Date), int(e.Start), int(e.End), e.AppointmentID, e.ReservedAt, e.ExpiresAt)
	if err != nil {
		if isOverlapViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("reserve window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	if err := tx.Commit(ctx); err != nil {
		if isOverlapViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("commit reserve: %w", err)
	}
	return nil
}

// isOverlapViolation recognizes the exclusion (or unique) constraint firing
// when two transactions raced for overlapping windows.
func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23P01" || pgErr.Code == "23505"
}

func (r *PgRepository) Confirm(ctx context.Context, entryID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE booking_ledger
		SET status = 'confirmed',
		    expires_at = NULL
		WHERE id = $1
		  AND status = 'reserved'
	`, entryID)
	if err != nil {
		return fmt.Errorf("confirm entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *PgRepository) Release(ctx context.Context, entryID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE booking_ledger
		SET status = 'released'
		WHERE id = $1
		  AND status IN ('reserved', 'confirmed')
	`, entryID)
	if err != nil {
		return fmt.Errorf("release entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *PgRepository) ReleaseExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE booking_ledger
		SET status = 'released'
		WHERE status = 'reserved'
		  AND expires_at IS NOT NULL
		  AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("release expired entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PgRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM booking_ledger
		WHERE appointment_id = $1
		ORDER BY reserved_at DESC
		LIMIT 1
	`, appointmentID)
	return scanEntry(row)
}
