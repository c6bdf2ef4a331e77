package booking

import "time"

// Role identifies which side of a booking a caller acts for.
type Role string

const (
	RoleBorrower Role = "borrower"
	RoleOwner    Role = "owner"
)

func (r Role) Valid() bool {
	return r == RoleBorrower || r == RoleOwner
}

// Other returns the counterparty role.
func (r Role) Other() Role {
	if r == RoleBorrower {
		return RoleOwner
	}
	return RoleBorrower
}

const (
	DepositChoiceKeep   = "keep"
	DepositChoiceRefund = "refund"
)

// Review reasons drive the settlement classifier.
const (
	ReviewBorrowerFault    = "borrower_fault"
	ReviewBorrowerNoShow   = "borrower_no_show"
	ReviewOwnerNoShow      = "owner_no_show"
	ReviewUnsafeBike       = "unsafe_bike"
	ReviewInvalidDocuments = "invalid_documents"
)

type Booking struct {
	ID             int       `db:"id" json:"id"`
	BikeID         int       `db:"bike_id" json:"bike_id"`
	BorrowerID     int       `db:"borrower_id" json:"borrower_id"`
	OwnerID        int       `db:"owner_id" json:"owner_id"`
	ScheduledStart time.Time `db:"scheduled_start" json:"scheduled_start"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`

	BorrowerPaid     bool `db:"borrower_paid" json:"borrower_paid"`
	OwnerDepositPaid bool `db:"owner_deposit_paid" json:"owner_deposit_paid"`

	BorrowerCheckedIn   bool       `db:"borrower_checked_in" json:"borrower_checked_in"`
	BorrowerCheckedInAt *time.Time `db:"borrower_checked_in_at" json:"borrower_checked_in_at,omitempty"`
	OwnerCheckedIn      bool       `db:"owner_checked_in" json:"owner_checked_in"`
	OwnerCheckedInAt    *time.Time `db:"owner_checked_in_at" json:"owner_checked_in_at,omitempty"`

	BorrowerConfirmedComplete bool `db:"borrower_confirmed_complete" json:"borrower_confirmed_complete"`
	OwnerConfirmedComplete    bool `db:"owner_confirmed_complete" json:"owner_confirmed_complete"`
	Completed                 bool `db:"completed" json:"completed"`

	Cancelled   bool    `db:"cancelled" json:"cancelled"`
	CancelledBy *string `db:"cancelled_by" json:"cancelled_by,omitempty"`

	Settled           bool       `db:"settled" json:"settled"`
	SettledAt         *time.Time `db:"settled_at" json:"settled_at,omitempty"`
	SettlementOutcome *string    `db:"settlement_outcome" json:"settlement_outcome,omitempty"`

	NeedsReview  bool    `db:"needs_review" json:"needs_review"`
	ReviewReason *string `db:"review_reason" json:"review_reason,omitempty"`

	OwnerDepositChoice string `db:"owner_deposit_choice" json:"owner_deposit_choice"`

	ForceMajeureBorrowerAgreedAt *time.Time `db:"force_majeure_borrower_agreed_at" json:"force_majeure_borrower_agreed_at,omitempty"`
	ForceMajeureOwnerAgreedAt    *time.Time `db:"force_majeure_owner_agreed_at" json:"force_majeure_owner_agreed_at,omitempty"`
}

// FullyPaid reports whether both inbound payments are confirmed.
func (b *Booking) FullyPaid() bool {
	return b.BorrowerPaid && b.OwnerDepositPaid
}

// AnyCheckedIn reports whether either party has checked in.
func (b *Booking) AnyCheckedIn() bool {
	return b.BorrowerCheckedIn || b.OwnerCheckedIn
}

// CheckedIn reports whether the given role has checked in.
func (b *Booking) CheckedIn(role Role) bool {
	if role == RoleBorrower {
		return b.BorrowerCheckedIn
	}
	return b.OwnerCheckedIn
}

// UserID returns the user acting as the given role on this booking.
func (b *Booking) UserID(role Role) int {
	if role == RoleBorrower {
		return b.BorrowerID
	}
	return b.OwnerID
}

// RoleOf resolves a user id to its role on this booking.
func (b *Booking) RoleOf(userID int) (Role, bool) {
	switch userID {
	case b.BorrowerID:
		return RoleBorrower, true
	case b.OwnerID:
		return RoleOwner, true
	}
	return "", false
}

type AcceptResponse struct {
	Status      string `json:"status"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

type CheckInResponse struct {
	OK     bool   `json:"ok"`
	Opens  string `json:"opens,omitempty"`
	Closes string `json:"closes,omitempty"`
}

type ForceMajeureResponse struct {
	BothAgreed bool `json:"both_agreed"`
}
