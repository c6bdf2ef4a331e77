package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var start = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func TestAcceptance(t *testing.T) {
	createdAt := start.Add(-72 * time.Hour)

	tests := []struct {
		name    string
		now     time.Time
		allowed bool
	}{
		{"right after creation", createdAt.Add(time.Minute), true},
		{"7h59m after creation", createdAt.Add(8*time.Hour - time.Minute), true},
		{"exactly 8h after creation", createdAt.Add(8 * time.Hour), false},
		{"well past the window", createdAt.Add(24 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Acceptance(tt.now, createdAt, start)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestAcceptanceCutoffBeforeStart(t *testing.T) {
	// Booking created 1h before start: window closes at start-15m, not
	// createdAt+8h.
	createdAt := start.Add(-time.Hour)

	d := Acceptance(start.Add(-30*time.Minute), createdAt, start)
	assert.True(t, d.Allowed)
	assert.Equal(t, start.Add(-15*time.Minute), d.Closes)

	d = Acceptance(start.Add(-10*time.Minute), createdAt, start)
	assert.False(t, d.Allowed)
}

func TestCheckIn(t *testing.T) {
	tests := []struct {
		name    string
		now     time.Time
		allowed bool
	}{
		{"20m early", start.Add(-20 * time.Minute), false},
		{"15m early", start.Add(-15 * time.Minute), true},
		{"at start", start, true},
		{"59m late", start.Add(59 * time.Minute), true},
		{"61m late", start.Add(61 * time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CheckIn(tt.now, start)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, start.Add(-15*time.Minute), d.Opens)
			assert.Equal(t, start.Add(60*time.Minute), d.Closes)
		})
	}
}

func TestCompletion(t *testing.T) {
	tests := []struct {
		name       string
		now        time.Time
		borrowerIn bool
		ownerIn    bool
		allowed    bool
	}{
		{"both in at 20m", start.Add(20 * time.Minute), true, true, true},
		{"both in at 19m", start.Add(19 * time.Minute), true, true, false},
		{"only borrower in", start.Add(30 * time.Minute), true, false, false},
		{"nobody in", start.Add(30 * time.Minute), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Completion(tt.now, start, tt.borrowerIn, tt.ownerIn)
			assert.Equal(t, tt.allowed, d.Allowed)
		})
	}
}

func TestNoShowClaim(t *testing.T) {
	tests := []struct {
		name       string
		now        time.Time
		claimantIn bool
		otherIn    bool
		allowed    bool
	}{
		{"at 20m is too early", start.Add(20 * time.Minute), true, false, false},
		{"at 31m is valid", start.Add(31 * time.Minute), true, false, true},
		{"exactly 30m is valid", start.Add(30 * time.Minute), true, false, true},
		{"claimant absent", start.Add(31 * time.Minute), false, false, false},
		{"both present", start.Add(31 * time.Minute), true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NoShowClaim(tt.now, start, tt.claimantIn, tt.otherIn)
			assert.Equal(t, tt.allowed, d.Allowed)
		})
	}
}

func TestForceMajeure(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		checkedIn bool
		allowed   bool
	}{
		{"25h before is too early", start.Add(-25 * time.Hour), false, false},
		{"23h before is allowed", start.Add(-23 * time.Hour), false, true},
		{"one minute before start", start.Add(-time.Minute), false, true},
		{"at start", start, false, false},
		{"after a check-in", start.Add(-2 * time.Hour), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ForceMajeure(tt.now, start, tt.checkedIn)
			assert.Equal(t, tt.allowed, d.Allowed)
		})
	}
}

func TestCancellationFaultLine(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want FaultLine
	}{
		{"10 days ahead", start.Add(-10 * 24 * time.Hour), FaultLineEarly},
		{"just over 5 days ahead", start.Add(-5*24*time.Hour - time.Minute), FaultLineEarly},
		{"exactly 5 days ahead", start.Add(-5 * 24 * time.Hour), FaultLineLate},
		{"3 days ahead", start.Add(-3 * 24 * time.Hour), FaultLineLate},
		{"after start", start.Add(time.Hour), FaultLineLate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CancellationFaultLine(tt.now, start))
		})
	}
}
