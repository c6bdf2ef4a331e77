package credit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientCredit = errors.New("insufficient available credit")
)

const selectColumns = `id, user_id, type, amount_cents, status, origin_booking_id,
	used_on_booking_id, expires_at, created_at, used_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Issue claims a grant the same way payment rows are claimed: the partial
// unique index on (origin_booking_id, user_id, type) turns a retried grant
// into a no-op insert, and the existing row is returned instead.
func (r *repository) Issue(ctx context.Context, userID int, ctype string, amountCents int64, originBookingID *int, expiresAt *time.Time) (*Credit, error) {
	if expiresAt == nil {
		t := time.Now().Add(DefaultValidity)
		expiresAt = &t
	}

	query := `
		INSERT INTO credits (user_id, type, amount_cents, status, origin_booking_id, expires_at)
		VALUES ($1, $2, $3, 'available', $4, $5)
		ON CONFLICT (origin_booking_id, user_id, type)
			WHERE origin_booking_id IS NOT NULL AND type <> 'split_remainder'
			DO NOTHING
		RETURNING ` + selectColumns

	var c Credit
	err := r.db.GetContext(ctx, &c, query, userID, ctype, amountCents, originBookingID, expiresAt)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) || originBookingID == nil {
		return nil, err
	}

	return r.getGrant(ctx, userID, ctype, *originBookingID)
}

func (r *repository) getGrant(ctx context.Context, userID int, ctype string, originBookingID int) (*Credit, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM credits
		WHERE user_id = $1 AND type = $2 AND origin_booking_id = $3
	`

	var c Credit
	if err := r.db.GetContext(ctx, &c, query, userID, ctype, originBookingID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) Consume(ctx context.Context, creditID, usedOnBookingID int) (bool, error) {
	query := `
		UPDATE credits
		SET status = 'used', used_on_booking_id = $2, used_at = NOW()
		WHERE id = $1 AND status = 'available'
	`

	result, err := r.db.ExecContext(ctx, query, creditID, usedOnBookingID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *repository) ConsumeAmount(ctx context.Context, userID int, amountCents int64, usedOnBookingID int) ([]Credit, error) {
	var consumed []Credit
	remaining := amountCents

	for remaining > 0 {
		c, err := r.nextAvailable(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return consumed, ErrInsufficientCredit
			}
			return consumed, err
		}

		ok, err := r.Consume(ctx, c.ID, usedOnBookingID)
		if err != nil {
			return consumed, err
		}
		if !ok {
			// Lost the race for this row; reselect rather than double-count.
			continue
		}

		consumed = append(consumed, *c)
		if c.AmountCents > remaining {
			leftover := c.AmountCents - remaining
			if _, err := r.Issue(ctx, userID, TypeSplitRemainder, leftover, c.OriginBookingID, c.ExpiresAt); err != nil {
				return consumed, err
			}
			remaining = 0
		} else {
			remaining -= c.AmountCents
		}
	}

	return consumed, nil
}

func (r *repository) nextAvailable(ctx context.Context, userID int) (*Credit, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM credits
		WHERE user_id = $1 AND status = 'available'
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY expires_at NULLS LAST, id
		LIMIT 1
	`

	var c Credit
	if err := r.db.GetContext(ctx, &c, query, userID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) AvailableBalance(ctx context.Context, userID int) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM credits
		WHERE user_id = $1 AND status = 'available'
		  AND (expires_at IS NULL OR expires_at > NOW())
	`

	var balance int64
	if err := r.db.GetContext(ctx, &balance, query, userID); err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int) ([]Credit, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM credits
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	var credits []Credit
	if err := r.db.SelectContext(ctx, &credits, query, userID); err != nil {
		return nil, err
	}
	return credits, nil
}
