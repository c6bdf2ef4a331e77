package bike

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrBikeNotFound = errors.New("bike not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, ownerID int, model, plate string) (*Bike, error) {
	query := `
		INSERT INTO bikes (owner_id, model, plate)
		VALUES ($1, $2, $3)
		RETURNING id, owner_id, model, plate, created_at
	`

	var b Bike
	err := r.db.GetContext(ctx, &b, query, ownerID, model, plate)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Bike, error) {
	query := `
		SELECT id, owner_id, model, plate, created_at
		FROM bikes
		WHERE id = $1
	`

	var b Bike
	err := r.db.GetContext(ctx, &b, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBikeNotFound
		}
		return nil, err
	}

	return &b, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID int) ([]Bike, error) {
	query := `
		SELECT id, owner_id, model, plate, created_at
		FROM bikes
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	var bikes []Bike
	err := r.db.SelectContext(ctx, &bikes, query, ownerID)
	if err != nil {
		return nil, err
	}

	return bikes, nil
}

func (r *repository) ListAll(ctx context.Context) ([]Bike, error) {
	query := `
		SELECT id, owner_id, model, plate, created_at
		FROM bikes
		ORDER BY created_at DESC
	`

	var bikes []Bike
	err := r.db.SelectContext(ctx, &bikes, query)
	if err != nil {
		return nil, err
	}

	return bikes, nil
}
