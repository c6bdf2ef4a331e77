package credit

import "time"

// Credit is a non-cash balance a user can spend on a future booking fee or
// deposit. Rows are append-only: consumption flips status exactly once, and
// a partial spend reissues the remainder as a new row.
type Credit struct {
	ID              int        `db:"id" json:"id"`
	UserID          int        `db:"user_id" json:"user_id"`
	Type            string     `db:"type" json:"type"`
	AmountCents     int64      `db:"amount_cents" json:"amount_cents"`
	Status          string     `db:"status" json:"status"`
	OriginBookingID *int       `db:"origin_booking_id" json:"origin_booking_id,omitempty"`
	UsedOnBookingID *int       `db:"used_on_booking_id" json:"used_on_booking_id,omitempty"`
	ExpiresAt       *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UsedAt          *time.Time `db:"used_at" json:"used_at,omitempty"`
}

const (
	StatusAvailable = "available"
	StatusUsed      = "used"
)

const (
	TypeDepositReturn  = "deposit_return"
	TypeFeeReturn      = "fee_return"
	TypeRefundFallback = "refund_fallback"
	TypeForceMajeure   = "force_majeure"
	TypeRebook         = "rebook"
	TypeSplitRemainder = "split_remainder"
	TypeCancellation   = "cancellation_return"
)

// DefaultValidity is how long an issued credit stays spendable.
const DefaultValidity = 180 * 24 * time.Hour
