package booking

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func setupBookingMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func TestCreateMapsDatabaseErrors(t *testing.T) {
	tests := []struct {
		name     string
		pqCode   pq.ErrorCode
		expected error
	}{
		{"slot taken", "23505", ErrSlotTaken},
		{"bike missing", "P0002", ErrBikeNotFound},
		{"own bike", "23514", ErrOwnBike},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, close := setupBookingMock(t)
			defer close()

			mock.ExpectQuery(`FROM create_booking`).
				WithArgs(1, 2, sqlmock.AnyArg()).
				WillReturnError(&pq.Error{Code: tt.pqCode})

			_, err := repo.Create(context.Background(), 1, 2, time.Now().Add(48*time.Hour))
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock, close := setupBookingMock(t)
	defer close()

	mock.ExpectQuery(`FROM bookings WHERE id = \$1`).
		WithArgs(404).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 404)
	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestMarkBorrowerPaidIsIdempotent(t *testing.T) {
	repo, mock, close := setupBookingMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectExec(`UPDATE bookings\s+SET borrower_paid = TRUE\s+WHERE id = \$1 AND NOT borrower_paid`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkBorrowerPaid(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)

	// second flip matches zero rows
	mock.ExpectExec(`UPDATE bookings\s+SET borrower_paid = TRUE`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = repo.MarkBorrowerPaid(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMarkOwnerDepositPaidRequiresBorrowerPaid(t *testing.T) {
	repo, mock, close := setupBookingMock(t)
	defer close()

	mock.ExpectExec(`SET owner_deposit_paid = TRUE\s+WHERE id = \$1 AND borrower_paid AND NOT owner_deposit_paid`).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkOwnerDepositPaid(context.Background(), 2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMarkSettledGuardedAgainstCancelled(t *testing.T) {
	repo, mock, close := setupBookingMock(t)
	defer close()

	mock.ExpectExec(`SET settled = TRUE, settled_at = NOW\(\), settlement_outcome = \$2\s+WHERE id = \$1 AND NOT settled AND NOT cancelled\s+AND borrower_paid AND owner_deposit_paid`).
		WithArgs(3, "happy_path").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkSettled(context.Background(), 3, "happy_path")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMarkCancelledGuardedAgainstSettled(t *testing.T) {
	repo, mock, close := setupBookingMock(t)
	defer close()

	mock.ExpectExec(`SET cancelled = TRUE, cancelled_by = \$2\s+WHERE id = \$1 AND NOT cancelled AND NOT settled`).
		WithArgs(4, "borrower").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkCancelled(context.Background(), 4, RoleBorrower)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetCheckedInRejectsUnknownRole(t *testing.T) {
	repo, _, close := setupBookingMock(t)
	defer close()

	_, err := repo.SetCheckedIn(context.Background(), 1, Role("intruder"))
	require.Error(t, err)
}

func TestClaimReviewOnlyOnce(t *testing.T) {
	repo, mock, close := setupBookingMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectExec(`SET needs_review = TRUE, review_reason = \$2\s+WHERE id = \$1 AND review_reason IS NULL`).
		WithArgs(5, ReviewBorrowerNoShow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.ClaimReview(ctx, 5, ReviewBorrowerNoShow)
	require.NoError(t, err)
	require.True(t, ok)

	mock.ExpectExec(`SET needs_review = TRUE`).
		WithArgs(5, ReviewOwnerNoShow).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = repo.ClaimReview(ctx, 5, ReviewOwnerNoShow)
	require.NoError(t, err)
	require.False(t, ok)
}
