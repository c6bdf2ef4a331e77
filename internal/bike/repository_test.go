package bike

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupBikeMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func TestCreateAndGetBike(t *testing.T) {
	repo, mock, close := setupBikeMock(t)
	defer close()

	ctx := context.Background()
	now := time.Now()
	cols := []string{"id", "owner_id", "model", "plate", "created_at"}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bikes (owner_id, model, plate) VALUES ($1, $2, $3) RETURNING id, owner_id, model, plate, created_at")).
		WithArgs(7, "Honda CB500F", "12GA3456").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 7, "Honda CB500F", "12GA3456", now))

	b, err := repo.Create(ctx, 7, "Honda CB500F", "12GA3456")
	require.NoError(t, err)
	require.Equal(t, 1, b.ID)
	require.Equal(t, 7, b.OwnerID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, model, plate, created_at FROM bikes WHERE id = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 7, "Honda CB500F", "12GA3456", now))

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Honda CB500F", got.Model)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBikeNotFound(t *testing.T) {
	repo, mock, close := setupBikeMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, model, plate, created_at FROM bikes WHERE id = $1")).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 99)
	require.ErrorIs(t, err, ErrBikeNotFound)
}
