package ledger

import "context"

type Repository interface {
	// ClaimPayment inserts an initiated row for (bookingID, ptype), or
	// returns the existing row when one was already claimed. The second
	// return value reports whether this call created the row.
	ClaimPayment(ctx context.Context, bookingID int, ptype string, amountCents int64) (*Payment, bool, error)

	MarkSucceeded(ctx context.Context, id int, gatewayRef string) (bool, error)
	MarkRefundSucceeded(ctx context.Context, id int, refundRef string) (bool, error)
	MarkPayoutDue(ctx context.Context, id int) (bool, error)
	MarkPaid(ctx context.Context, id int) (bool, error)

	// MarkFailed terminally fails an initiated row whose external call was
	// abandoned in favor of a fallback. Unlike DeleteInitiated the row
	// stays, so a retried invocation sees the abandonment instead of
	// re-running the external call.
	MarkFailed(ctx context.Context, id int) (bool, error)
	DeleteInitiated(ctx context.Context, id int) error

	GetByBookingAndType(ctx context.Context, bookingID int, ptype string) (*Payment, error)
	ListByBooking(ctx context.Context, bookingID int) ([]Payment, error)
	ListPayoutsDue(ctx context.Context) ([]Payment, error)
}
