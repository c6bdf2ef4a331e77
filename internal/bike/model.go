package bike

import "time"

type Bike struct {
	ID        int       `db:"id" json:"id"`
	OwnerID   int       `db:"owner_id" json:"owner_id"`
	Model     string    `db:"model" json:"model"`
	Plate     string    `db:"plate" json:"plate"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type RegisterBikeRequest struct {
	Model string `json:"model" binding:"required,max=255"`
	Plate string `json:"plate" binding:"required,max=32"`
}
