package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrSlotTaken       = errors.New("bike is already booked for this slot")
	ErrBikeNotFound    = errors.New("bike not found")
	ErrOwnBike         = errors.New("owner cannot book own bike")
)

const selectColumns = `id, bike_id, borrower_id, owner_id, scheduled_start, created_at,
	borrower_paid, owner_deposit_paid,
	borrower_checked_in, borrower_checked_in_at, owner_checked_in, owner_checked_in_at,
	borrower_confirmed_complete, owner_confirmed_complete, completed,
	cancelled, cancelled_by,
	settled, settled_at, settlement_outcome,
	needs_review, review_reason,
	owner_deposit_choice,
	force_majeure_borrower_agreed_at, force_majeure_owner_agreed_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create goes through the create_booking database function. The partial
// unique index on (bike_id, scheduled_start) WHERE NOT cancelled makes this
// the single race-free point: two concurrent bookings of the same slot
// cannot both succeed.
func (r *repository) Create(ctx context.Context, bikeID, borrowerID int, scheduledStart time.Time) (*Booking, error) {
	query := `SELECT ` + selectColumns + ` FROM create_booking($1, $2, $3)`

	var b Booking
	err := r.db.GetContext(ctx, &b, query, bikeID, borrowerID, scheduledStart)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return nil, ErrSlotTaken
			case "no_data_found":
				return nil, ErrBikeNotFound
			case "check_violation":
				return nil, ErrOwnBike
			}
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Booking, error) {
	query := `SELECT ` + selectColumns + ` FROM bookings WHERE id = $1`

	var b Booking
	err := r.db.GetContext(ctx, &b, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) MarkBorrowerPaid(ctx context.Context, id int) (bool, error) {
	query := `
		UPDATE bookings
		SET borrower_paid = TRUE
		WHERE id = $1 AND NOT borrower_paid
	`
	return r.exec(ctx, query, id)
}

// MarkOwnerDepositPaid requires the borrower fee to already be confirmed:
// owner_deposit_paid can only ever become true after borrower_paid.
func (r *repository) MarkOwnerDepositPaid(ctx context.Context, id int) (bool, error) {
	query := `
		UPDATE bookings
		SET owner_deposit_paid = TRUE
		WHERE id = $1 AND borrower_paid AND NOT owner_deposit_paid
	`
	return r.exec(ctx, query, id)
}

func (r *repository) SetCheckedIn(ctx context.Context, id int, role Role) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("invalid role %q", role)
	}
	query := fmt.Sprintf(`
		UPDATE bookings
		SET %[1]s_checked_in = TRUE, %[1]s_checked_in_at = NOW()
		WHERE id = $1 AND NOT %[1]s_checked_in AND NOT cancelled
	`, role)
	return r.exec(ctx, query, id)
}

func (r *repository) SetConfirmedComplete(ctx context.Context, id int, role Role) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("invalid role %q", role)
	}
	query := fmt.Sprintf(`
		UPDATE bookings
		SET %[1]s_confirmed_complete = TRUE
		WHERE id = $1 AND NOT %[1]s_confirmed_complete AND NOT cancelled
	`, role)
	return r.exec(ctx, query, id)
}

func (r *repository) MarkCompleted(ctx context.Context, id int) (bool, error) {
	query := `
		UPDATE bookings
		SET completed = TRUE
		WHERE id = $1 AND borrower_confirmed_complete AND owner_confirmed_complete
		  AND NOT completed AND NOT cancelled
	`
	return r.exec(ctx, query, id)
}

// MarkCancelled is the terminal alternative to settlement: a cancelled
// booking never reaches settled, and vice versa.
func (r *repository) MarkCancelled(ctx context.Context, id int, by Role) (bool, error) {
	query := `
		UPDATE bookings
		SET cancelled = TRUE, cancelled_by = $2
		WHERE id = $1 AND NOT cancelled AND NOT settled
	`
	return r.exec(ctx, query, id, string(by))
}

func (r *repository) MarkSettled(ctx context.Context, id int, outcome string) (bool, error) {
	query := `
		UPDATE bookings
		SET settled = TRUE, settled_at = NOW(), settlement_outcome = $2
		WHERE id = $1 AND NOT settled AND NOT cancelled
		  AND borrower_paid AND owner_deposit_paid
	`
	return r.exec(ctx, query, id, outcome)
}

func (r *repository) SetForceMajeureAgreed(ctx context.Context, id int, role Role) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("invalid role %q", role)
	}
	query := fmt.Sprintf(`
		UPDATE bookings
		SET force_majeure_%[1]s_agreed_at = NOW()
		WHERE id = $1 AND force_majeure_%[1]s_agreed_at IS NULL
		  AND NOT borrower_checked_in AND NOT owner_checked_in
		  AND NOT cancelled AND NOT settled
	`, role)
	return r.exec(ctx, query, id)
}

// ClaimReview records a review reason at most once per booking, so two
// concurrent no-show claims cannot both win.
func (r *repository) ClaimReview(ctx context.Context, id int, reason string) (bool, error) {
	query := `
		UPDATE bookings
		SET needs_review = TRUE, review_reason = $2
		WHERE id = $1 AND review_reason IS NULL AND NOT cancelled AND NOT settled
	`
	return r.exec(ctx, query, id, reason)
}

func (r *repository) SetDepositChoice(ctx context.Context, id int, choice string) (bool, error) {
	query := `
		UPDATE bookings
		SET owner_deposit_choice = $2
		WHERE id = $1 AND NOT settled
	`
	return r.exec(ctx, query, id, choice)
}

func (r *repository) ListNeedingReview(ctx context.Context) ([]Booking, error) {
	query := `SELECT ` + selectColumns + ` FROM bookings
		WHERE needs_review AND NOT settled AND NOT cancelled
		ORDER BY scheduled_start`

	var bookings []Booking
	if err := r.db.SelectContext(ctx, &bookings, query); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int) ([]Booking, error) {
	query := `SELECT ` + selectColumns + ` FROM bookings
		WHERE borrower_id = $1 OR owner_id = $1
		ORDER BY scheduled_start DESC`

	var bookings []Booking
	if err := r.db.SelectContext(ctx, &bookings, query); err != nil {
		return nil, err
	}
	return bookings, nil
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
