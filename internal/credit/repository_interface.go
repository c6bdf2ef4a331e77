package credit

import (
	"context"
	"time"
)

type Repository interface {
	// Issue grants a credit. Grants with an origin booking are idempotent
	// per (origin, user, type): reissuing an already-granted credit returns
	// the existing row instead of inserting a second one.
	Issue(ctx context.Context, userID int, ctype string, amountCents int64, originBookingID *int, expiresAt *time.Time) (*Credit, error)

	// Consume flips one credit available→used. False without error means a
	// concurrent request already consumed it; the caller must reselect and
	// never count the amount.
	Consume(ctx context.Context, creditID, usedOnBookingID int) (bool, error)

	// ConsumeAmount spends amountCents from the user's available credits,
	// oldest expiry first, splitting the last row by reissuing its
	// remainder as a fresh available credit.
	ConsumeAmount(ctx context.Context, userID int, amountCents int64, usedOnBookingID int) ([]Credit, error)

	AvailableBalance(ctx context.Context, userID int) (int64, error)
	ListByUser(ctx context.Context, userID int) ([]Credit, error)
}
