// Package policy holds the time-window rules for booking actions.
// Every function is a pure predicate of timestamps so that handlers can
// re-evaluate "is it time yet" on each request instead of running timers.
package policy

import "time"

const (
	// Owner must pay the deposit within this long after booking creation.
	// The legacy system carried three conflicting acceptance tables; the
	// flat 8h rule is the authoritative one here.
	AcceptanceDuration = 8 * time.Hour

	// Acceptance always closes by this margin before the scheduled start,
	// even when the 8h window would still be open.
	AcceptanceCutoff = 15 * time.Minute

	CheckInOpensBefore = 15 * time.Minute
	CheckInClosesAfter = 60 * time.Minute

	CompletionDelay = 20 * time.Minute

	NoShowClaimDelay = 30 * time.Minute

	ForceMajeureLead = 24 * time.Hour

	// Cancellations strictly more than this far ahead of the start are
	// "early"; day 5 itself counts as late/forfeiting.
	EarlyCancellationLead = 5 * 24 * time.Hour
)

// FaultLine classifies a cancellation by how far ahead of the start it happens.
type FaultLine string

const (
	FaultLineEarly FaultLine = "early"
	FaultLineLate  FaultLine = "late"
)

// Decision is the outcome of a window check plus the bounds for UI display.
type Decision struct {
	Allowed bool
	Opens   time.Time
	Closes  time.Time
	Reason  string
}

func allowed(opens, closes time.Time) Decision {
	return Decision{Allowed: true, Opens: opens, Closes: closes}
}

func denied(opens, closes time.Time, reason string) Decision {
	return Decision{Allowed: false, Opens: opens, Closes: closes, Reason: reason}
}

// Acceptance reports whether the owner may still accept (pay the deposit).
// The window runs from booking creation to the earlier of createdAt+8h and
// scheduledStart-15m.
func Acceptance(now, createdAt, scheduledStart time.Time) Decision {
	closes := createdAt.Add(AcceptanceDuration)
	if cutoff := scheduledStart.Add(-AcceptanceCutoff); cutoff.Before(closes) {
		closes = cutoff
	}

	if now.Before(createdAt) {
		return denied(createdAt, closes, "booking not yet created")
	}
	if !now.Before(closes) {
		return denied(createdAt, closes, "acceptance window has closed")
	}
	return allowed(createdAt, closes)
}

// CheckIn reports whether either party may check in right now.
func CheckIn(now, scheduledStart time.Time) Decision {
	opens := scheduledStart.Add(-CheckInOpensBefore)
	closes := scheduledStart.Add(CheckInClosesAfter)

	if now.Before(opens) {
		return denied(opens, closes, "check-in has not opened yet")
	}
	if now.After(closes) {
		return denied(opens, closes, "check-in window has closed")
	}
	return allowed(opens, closes)
}

// Completion reports whether the parties may confirm the test ride complete.
// Requires both check-ins and at least 20 minutes past the scheduled start.
func Completion(now, scheduledStart time.Time, borrowerCheckedIn, ownerCheckedIn bool) Decision {
	opens := scheduledStart.Add(CompletionDelay)

	if !borrowerCheckedIn || !ownerCheckedIn {
		return denied(opens, time.Time{}, "both parties must check in first")
	}
	if now.Before(opens) {
		return denied(opens, time.Time{}, "completion cannot be confirmed yet")
	}
	return allowed(opens, time.Time{})
}

// NoShowClaim reports whether the claimant may claim the other party a
// no-show. Valid only from 30 minutes past the start, and only while exactly
// one party (the claimant) has checked in.
func NoShowClaim(now, scheduledStart time.Time, claimantCheckedIn, otherCheckedIn bool) Decision {
	opens := scheduledStart.Add(NoShowClaimDelay)

	if now.Before(opens) {
		return denied(opens, time.Time{}, "no-show cannot be claimed yet")
	}
	if !claimantCheckedIn {
		return denied(opens, time.Time{}, "claimant has not checked in")
	}
	if otherCheckedIn {
		return denied(opens, time.Time{}, "both parties checked in")
	}
	return allowed(opens, time.Time{})
}

// ForceMajeure reports whether a force-majeure agreement may be recorded.
// Open only within the 24 hours preceding the start, strictly before the
// start, and closes permanently on the first check-in.
func ForceMajeure(now, scheduledStart time.Time, anyCheckedIn bool) Decision {
	opens := scheduledStart.Add(-ForceMajeureLead)
	closes := scheduledStart

	if anyCheckedIn {
		return denied(opens, closes, "a party has already checked in")
	}
	if !now.After(opens) {
		return denied(opens, closes, "too early to agree force majeure")
	}
	if !now.Before(closes) {
		return denied(opens, closes, "scheduled start has passed")
	}
	return allowed(opens, closes)
}

// CancellationFaultLine classifies a cancellation happening now.
func CancellationFaultLine(now, scheduledStart time.Time) FaultLine {
	if scheduledStart.Sub(now) > EarlyCancellationLead {
		return FaultLineEarly
	}
	return FaultLineLate
}
