package settlement

import (
	"fmt"

	"github.com/c6lbmb/borrowmybike-sub000/internal/booking"
)

// Scenario is the closed set of terminal outcomes for a fully paid,
// non-cancelled booking. Cancellation is handled entirely by the
// cancellation entry point and never reaches the classifier.
type Scenario string

const (
	ScenarioHappyPath      Scenario = "happy_path"
	ScenarioOwnerFault     Scenario = "owner_fault"
	ScenarioBorrowerFault  Scenario = "borrower_fault"
	ScenarioBorrowerNoShow Scenario = "borrower_no_show"
	ScenarioOwnerNoShow    Scenario = "owner_no_show"
	ScenarioForceMajeure   Scenario = "force_majeure"
)

// State is the classification view of a booking: the handful of flags the
// classifier is allowed to look at, extracted from the loosely shaped row.
type State struct {
	Completed          bool
	NeedsReview        bool
	ReviewReason       string
	ForceMajeureAgreed bool
}

func StateOf(b *booking.Booking) State {
	s := State{
		Completed:          b.Completed,
		NeedsReview:        b.NeedsReview,
		ForceMajeureAgreed: b.ForceMajeureBorrowerAgreedAt != nil && b.ForceMajeureOwnerAgreedAt != nil,
	}
	if b.ReviewReason != nil {
		s.ReviewReason = *b.ReviewReason
	}
	return s
}

// Classify maps a booking state to exactly one scenario. An unmatched state
// is a defect and comes back as an error to be surfaced loudly, never
// silently defaulted.
func Classify(b *booking.Booking) (Scenario, error) {
	s := StateOf(b)

	switch {
	case s.ForceMajeureAgreed:
		// Validity (before start, before any check-in) was enforced when
		// the agreements were recorded.
		return ScenarioForceMajeure, nil

	case s.NeedsReview && (s.ReviewReason == booking.ReviewUnsafeBike || s.ReviewReason == booking.ReviewInvalidDocuments):
		return ScenarioOwnerFault, nil

	case s.NeedsReview && s.ReviewReason == booking.ReviewBorrowerFault && !s.Completed:
		return ScenarioBorrowerFault, nil

	case s.NeedsReview && s.ReviewReason == booking.ReviewBorrowerNoShow:
		return ScenarioBorrowerNoShow, nil

	case s.NeedsReview && s.ReviewReason == booking.ReviewOwnerNoShow:
		return ScenarioOwnerNoShow, nil

	case s.Completed && !s.NeedsReview:
		return ScenarioHappyPath, nil
	}

	return "", fmt.Errorf("%w: booking %d (completed=%t needs_review=%t reason=%q)",
		ErrUnclassifiable, b.ID, s.Completed, s.NeedsReview, s.ReviewReason)
}
