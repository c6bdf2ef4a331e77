package ledger

import "time"

// Payment is one money-movement intent. Rows are created as initiated
// before any external effect and flipped exactly once afterwards; a
// succeeded row is never deleted.
type Payment struct {
	ID               int       `db:"id" json:"id"`
	BookingID        int       `db:"booking_id" json:"booking_id"`
	Type             string    `db:"type" json:"type"`
	Status           string    `db:"status" json:"status"`
	AmountCents      int64     `db:"amount_cents" json:"amount_cents"`
	Currency         string    `db:"currency" json:"currency"`
	GatewayReference *string   `db:"gateway_reference" json:"gateway_reference,omitempty"`
	RefundReference  *string   `db:"refund_reference" json:"refund_reference,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

const (
	TypeBorrowerBookingFee   = "borrower_booking_fee"
	TypeOwnerDeposit         = "owner_deposit"
	TypeOwnerPayout          = "owner_payout"
	TypeBorrowerCompensation = "borrower_compensation"
	TypePlatformIncome       = "platform_income"
	TypeBorrowerFeeRefund    = "borrower_fee_refund"
	TypeOwnerDepositRefund   = "owner_deposit_refund"
	TypeCancellationRefund   = "cancellation_refund"
)

const (
	StatusInitiated = "initiated"
	StatusSucceeded = "succeeded"
	StatusPayoutDue = "payout_due"
	StatusPaid      = "paid"
	StatusFailed    = "failed"
)
