package bike

import "context"

type Repository interface {
	Create(ctx context.Context, ownerID int, model, plate string) (*Bike, error)
	GetByID(ctx context.Context, id int) (*Bike, error)
	ListByOwner(ctx context.Context, ownerID int) ([]Bike, error)
	ListAll(ctx context.Context) ([]Bike, error)
}
