package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ClaimPayment(ctx context.Context, bookingID int, ptype string, amountCents int64) (*Payment, bool, error) {
	query := `
		INSERT INTO payments (booking_id, type, status, amount_cents, currency)
		VALUES ($1, $2, 'initiated', $3, $4)
		ON CONFLICT (booking_id, type) DO NOTHING
		RETURNING id, booking_id, type, status, amount_cents, currency,
		          gateway_reference, refund_reference, created_at, updated_at
	`

	var p Payment
	err := r.db.GetContext(ctx, &p, query, bookingID, ptype, amountCents, Currency)
	if err == nil {
		return &p, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	// A row for (booking_id, type) already exists: a duplicate submission
	// short-circuits to the already-applied claim.
	existing, err := r.GetByBookingAndType(ctx, bookingID, ptype)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *repository) MarkSucceeded(ctx context.Context, id int, gatewayRef string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'succeeded', gateway_reference = COALESCE($2, gateway_reference), updated_at = NOW()
		WHERE id = $1 AND status = 'initiated'
	`
	return r.exec(ctx, query, id, nullable(gatewayRef))
}

func (r *repository) MarkRefundSucceeded(ctx context.Context, id int, refundRef string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'succeeded', refund_reference = COALESCE($2, refund_reference), updated_at = NOW()
		WHERE id = $1 AND status = 'initiated'
	`
	return r.exec(ctx, query, id, nullable(refundRef))
}

func (r *repository) MarkPayoutDue(ctx context.Context, id int) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'payout_due', updated_at = NOW()
		WHERE id = $1 AND status = 'initiated'
	`
	return r.exec(ctx, query, id)
}

func (r *repository) MarkPaid(ctx context.Context, id int) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'paid', updated_at = NOW()
		WHERE id = $1 AND status = 'payout_due'
	`
	return r.exec(ctx, query, id)
}

func (r *repository) MarkFailed(ctx context.Context, id int) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status = 'initiated'
	`
	return r.exec(ctx, query, id)
}

// DeleteInitiated removes a claimed row whose external call is known to have
// failed before producing any effect. Succeeded rows are append-only and
// cannot be removed this way.
func (r *repository) DeleteInitiated(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM payments WHERE id = $1 AND status = 'initiated'`, id)
	return err
}

func (r *repository) GetByBookingAndType(ctx context.Context, bookingID int, ptype string) (*Payment, error) {
	query := `
		SELECT id, booking_id, type, status, amount_cents, currency,
		       gateway_reference, refund_reference, created_at, updated_at
		FROM payments
		WHERE booking_id = $1 AND type = $2
	`

	var p Payment
	err := r.db.GetContext(ctx, &p, query, bookingID, ptype)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListByBooking(ctx context.Context, bookingID int) ([]Payment, error) {
	query := `
		SELECT id, booking_id, type, status, amount_cents, currency,
		       gateway_reference, refund_reference, created_at, updated_at
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at
	`

	var payments []Payment
	if err := r.db.SelectContext(ctx, &payments, query, bookingID); err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) ListPayoutsDue(ctx context.Context) ([]Payment, error) {
	query := `
		SELECT id, booking_id, type, status, amount_cents, currency,
		       gateway_reference, refund_reference, created_at, updated_at
		FROM payments
		WHERE status = 'payout_due'
		ORDER BY created_at
	`

	var payments []Payment
	if err := r.db.SelectContext(ctx, &payments, query); err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) exec(ctx context.Context, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
