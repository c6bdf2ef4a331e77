// Package audit appends best-effort records of settlement decisions.
// A failed audit write is logged and swallowed: it must never fail the
// settlement it describes.
package audit

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/c6lbmb/borrowmybike-sub000/internal/logger"
)

type Entry struct {
	ID        int       `db:"id" json:"id"`
	BookingID int       `db:"booking_id" json:"booking_id"`
	Actor     string    `db:"actor" json:"actor"`
	Action    string    `db:"action" json:"action"`
	Note      string    `db:"note" json:"note"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Log struct {
	db *sqlx.DB
}

func NewLog(db *sqlx.DB) *Log {
	return &Log{db: db}
}

func (l *Log) Record(ctx context.Context, bookingID int, actor, action, note string) {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO settlement_audit (booking_id, actor, action, note) VALUES ($1, $2, $3, $4)`,
		bookingID, actor, action, note)
	if err != nil {
		logger.Error("audit write failed", "booking_id", bookingID, "action", action, "error", err)
	}
}

func (l *Log) ListByBooking(ctx context.Context, bookingID int) ([]Entry, error) {
	var entries []Entry
	err := l.db.SelectContext(ctx, &entries,
		`SELECT id, booking_id, actor, action, note, created_at
		 FROM settlement_audit WHERE booking_id = $1 ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
