package booking

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, bikeID, borrowerID int, scheduledStart time.Time) (*Booking, error)
	GetByID(ctx context.Context, id int) (*Booking, error)

	MarkBorrowerPaid(ctx context.Context, id int) (bool, error)
	MarkOwnerDepositPaid(ctx context.Context, id int) (bool, error)
	SetCheckedIn(ctx context.Context, id int, role Role) (bool, error)
	SetConfirmedComplete(ctx context.Context, id int, role Role) (bool, error)
	MarkCompleted(ctx context.Context, id int) (bool, error)
	MarkCancelled(ctx context.Context, id int, by Role) (bool, error)
	MarkSettled(ctx context.Context, id int, outcome string) (bool, error)
	SetForceMajeureAgreed(ctx context.Context, id int, role Role) (bool, error)
	ClaimReview(ctx context.Context, id int, reason string) (bool, error)
	SetDepositChoice(ctx context.Context, id int, choice string) (bool, error)

	ListNeedingReview(ctx context.Context) ([]Booking, error)
	ListByUser(ctx context.Context, userID int) ([]Booking, error)
}
