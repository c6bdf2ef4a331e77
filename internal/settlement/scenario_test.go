package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c6lbmb/borrowmybike-sub000/internal/booking"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestClassify(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		b    *booking.Booking
		want Scenario
	}{
		{
			"completed without review is the happy path",
			&booking.Booking{ID: 1, Completed: true},
			ScenarioHappyPath,
		},
		{
			"unsafe bike review is owner fault",
			&booking.Booking{ID: 2, NeedsReview: true, ReviewReason: strPtr(booking.ReviewUnsafeBike)},
			ScenarioOwnerFault,
		},
		{
			"invalid documents review is owner fault",
			&booking.Booking{ID: 3, NeedsReview: true, ReviewReason: strPtr(booking.ReviewInvalidDocuments)},
			ScenarioOwnerFault,
		},
		{
			"borrower fault review on an incomplete ride",
			&booking.Booking{ID: 4, NeedsReview: true, ReviewReason: strPtr(booking.ReviewBorrowerFault)},
			ScenarioBorrowerFault,
		},
		{
			"borrower no-show claim",
			&booking.Booking{ID: 5, NeedsReview: true, ReviewReason: strPtr(booking.ReviewBorrowerNoShow)},
			ScenarioBorrowerNoShow,
		},
		{
			"owner no-show claim",
			&booking.Booking{ID: 6, NeedsReview: true, ReviewReason: strPtr(booking.ReviewOwnerNoShow)},
			ScenarioOwnerNoShow,
		},
		{
			"mutual force majeure agreement wins over everything",
			&booking.Booking{
				ID:                           7,
				NeedsReview:                  true,
				ReviewReason:                 strPtr(booking.ReviewBorrowerFault),
				ForceMajeureBorrowerAgreedAt: timePtr(now),
				ForceMajeureOwnerAgreedAt:    timePtr(now),
			},
			ScenarioForceMajeure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyUnmatchedStateFailsLoudly(t *testing.T) {
	tests := []struct {
		name string
		b    *booking.Booking
	}{
		{
			"neither completed nor reviewed",
			&booking.Booking{ID: 10},
		},
		{
			"borrower fault on a completed ride",
			&booking.Booking{ID: 11, Completed: true, NeedsReview: true, ReviewReason: strPtr(booking.ReviewBorrowerFault)},
		},
		{
			"unknown review reason",
			&booking.Booking{ID: 12, NeedsReview: true, ReviewReason: strPtr("meteor_strike")},
		},
		{
			"one-sided force majeure agreement",
			&booking.Booking{ID: 13, ForceMajeureBorrowerAgreedAt: timePtr(time.Now())},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.b)
			require.ErrorIs(t, err, ErrUnclassifiable)
		})
	}
}
