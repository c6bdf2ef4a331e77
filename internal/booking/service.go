package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/c6lbmb/borrowmybike-sub000/internal/credit"
	"github.com/c6lbmb/borrowmybike-sub000/internal/email"
	"github.com/c6lbmb/borrowmybike-sub000/internal/gateway"
	"github.com/c6lbmb/borrowmybike-sub000/internal/ledger"
	"github.com/c6lbmb/borrowmybike-sub000/internal/logger"
	"github.com/c6lbmb/borrowmybike-sub000/internal/metrics"
	"github.com/c6lbmb/borrowmybike-sub000/internal/policy"
	"github.com/c6lbmb/borrowmybike-sub000/internal/user"
)

var (
	ErrNotParticipant = errors.New("user is not a party to this booking")
	ErrPaymentPending = errors.New("payment is not confirmed yet")
	ErrTerminal       = errors.New("booking is already cancelled or settled")
)

// WindowError is a closed or not-yet-open action window. The embedded
// decision carries the bounds for UI display.
type WindowError struct {
	policy.Decision
}

func (e *WindowError) Error() string {
	return e.Reason
}

// ChargeCreator opens gateway checkout sessions for inbound payments.
type ChargeCreator interface {
	CreateCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.Charge, error)
}

type Service interface {
	Create(ctx context.Context, bikeID, borrowerID int, scheduledStart time.Time) (*Booking, string, error)
	Accept(ctx context.Context, bookingID, ownerID int) (*AcceptResponse, error)
	CheckIn(ctx context.Context, bookingID, userID int) (*Booking, policy.Decision, error)
	ConfirmComplete(ctx context.Context, bookingID, userID int) (*Booking, error)
	AgreeForceMajeure(ctx context.Context, bookingID, userID int) (bool, error)
	SetDepositChoice(ctx context.Context, bookingID, ownerID int, choice string) error
	GetForUser(ctx context.Context, bookingID, userID int) (*Booking, error)
	ListForUser(ctx context.Context, userID int) ([]Booking, error)
}

type service struct {
	repo     Repository
	payments ledger.Repository
	charges  ChargeCreator
	credits  credit.Repository
	userRepo user.Repository
	email    *email.Service
	now      func() time.Time
}

func NewService(repo Repository, payments ledger.Repository, charges ChargeCreator, credits credit.Repository, userRepo user.Repository, emailService *email.Service) Service {
	return &service{
		repo:     repo,
		payments: payments,
		charges:  charges,
		credits:  credits,
		userRepo: userRepo,
		email:    emailService,
		now:      time.Now,
	}
}

// Create reserves the slot race-free and opens a checkout session for the
// borrower's booking fee. The booking only becomes payable-forward once the
// signed webhook confirms the charge.
func (s *service) Create(ctx context.Context, bikeID, borrowerID int, scheduledStart time.Time) (*Booking, string, error) {
	if !scheduledStart.After(s.now()) {
		return nil, "", &WindowError{policy.Decision{Reason: "scheduled start must be in the future"}}
	}

	b, err := s.repo.Create(ctx, bikeID, borrowerID, scheduledStart)
	if err != nil {
		return nil, "", err
	}
	metrics.RecordBooking("created")

	checkoutURL, err := s.openCharge(ctx, b, ledger.TypeBorrowerBookingFee, ledger.BookingFeeCents)
	if err != nil {
		return b, "", err
	}

	return b, checkoutURL, nil
}

// Accept is the owner's commitment: paying the deposit within the
// acceptance window. The deposit can only be charged after the borrower's
// fee is confirmed.
func (s *service) Accept(ctx context.Context, bookingID, ownerID int) (*AcceptResponse, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.OwnerID != ownerID {
		return nil, ErrNotParticipant
	}
	if b.Cancelled || b.Settled {
		return nil, ErrTerminal
	}
	if b.OwnerDepositPaid {
		return &AcceptResponse{Status: "already_accepted"}, nil
	}
	if !b.BorrowerPaid {
		return nil, ErrPaymentPending
	}

	if d := policy.Acceptance(s.now(), b.CreatedAt, b.ScheduledStart); !d.Allowed {
		return nil, &WindowError{d}
	}

	checkoutURL, err := s.openCharge(ctx, b, ledger.TypeOwnerDeposit, ledger.OwnerDepositCents)
	if err != nil {
		return nil, err
	}
	if checkoutURL == "" {
		// Deposit covered in full by available credit; no checkout needed.
		return &AcceptResponse{Status: "accepted"}, nil
	}

	return &AcceptResponse{Status: "checkout", CheckoutURL: checkoutURL}, nil
}

func (s *service) openCharge(ctx context.Context, b *Booking, ptype string, amount int64) (string, error) {
	p, created, err := s.payments.ClaimPayment(ctx, b.ID, ptype, amount)
	if err != nil {
		return "", err
	}
	if !created && p.Status != ledger.StatusInitiated {
		// Charge already confirmed; nothing left to pay.
		return "", nil
	}

	paid, err := s.payWithCredit(ctx, b, p.ID, ptype, amount)
	if err != nil {
		return "", err
	}
	if paid {
		return "", nil
	}

	charge, err := s.charges.CreateCharge(ctx, gateway.ChargeRequest{
		BookingID:   b.ID,
		PaymentID:   p.ID,
		AmountCents: amount,
		PaymentType: ptype,
		Description: fmt.Sprintf("booking %d %s", b.ID, ptype),
	})
	if err != nil {
		// The claim row only survives if the external call might have had
		// an effect; a failed charge creation had none.
		if created {
			if delErr := s.payments.DeleteInitiated(ctx, p.ID); delErr != nil {
				logger.Error("failed to roll back claimed payment", "payment_id", p.ID, "error", delErr)
			}
		}
		return "", err
	}

	return charge.CheckoutURL, nil
}

// payWithCredit settles a claimed charge from the payer's available credit
// when the balance covers the full amount; partial redemption still goes
// through the gateway. The ledger row is already claimed, so a concurrent
// webhook for the same charge loses the succeeded-flip race harmlessly.
func (s *service) payWithCredit(ctx context.Context, b *Booking, paymentID int, ptype string, amount int64) (bool, error) {
	if s.credits == nil {
		return false, nil
	}

	payerID := b.BorrowerID
	if ptype == ledger.TypeOwnerDeposit {
		payerID = b.OwnerID
	}

	balance, err := s.credits.AvailableBalance(ctx, payerID)
	if err != nil {
		logger.Error("failed to read credit balance", "user_id", payerID, "error", err)
		return false, nil
	}
	if balance < amount {
		return false, nil
	}

	if _, err := s.credits.ConsumeAmount(ctx, payerID, amount, b.ID); err != nil {
		return false, err
	}
	if _, err := s.payments.MarkSucceeded(ctx, paymentID, "credit"); err != nil {
		return true, err
	}

	switch ptype {
	case ledger.TypeOwnerDeposit:
		_, err = s.repo.MarkOwnerDepositPaid(ctx, b.ID)
	default:
		_, err = s.repo.MarkBorrowerPaid(ctx, b.ID)
	}
	if err != nil {
		return true, err
	}

	metrics.RecordBooking("paid_with_credit")
	return true, nil
}

func (s *service) CheckIn(ctx context.Context, bookingID, userID int) (*Booking, policy.Decision, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, policy.Decision{}, err
	}

	role, ok := b.RoleOf(userID)
	if !ok {
		return nil, policy.Decision{}, ErrNotParticipant
	}
	if b.Cancelled || b.Settled {
		return nil, policy.Decision{}, ErrTerminal
	}
	if !b.FullyPaid() {
		return nil, policy.Decision{}, ErrPaymentPending
	}

	d := policy.CheckIn(s.now(), b.ScheduledStart)
	if !d.Allowed {
		return nil, d, &WindowError{d}
	}

	// A repeated check-in finds the flag already set and is a no-op.
	if _, err := s.repo.SetCheckedIn(ctx, b.ID, role); err != nil {
		return nil, d, err
	}

	b, err = s.repo.GetByID(ctx, bookingID)
	return b, d, err
}

func (s *service) ConfirmComplete(ctx context.Context, bookingID, userID int) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	role, ok := b.RoleOf(userID)
	if !ok {
		return nil, ErrNotParticipant
	}
	if b.Cancelled || b.Settled {
		return nil, ErrTerminal
	}

	if d := policy.Completion(s.now(), b.ScheduledStart, b.BorrowerCheckedIn, b.OwnerCheckedIn); !d.Allowed {
		return nil, &WindowError{d}
	}

	if _, err := s.repo.SetConfirmedComplete(ctx, b.ID, role); err != nil {
		return nil, err
	}

	// Flip completed once both confirmations are in; losing this race to a
	// concurrent confirmation is fine.
	if _, err := s.repo.MarkCompleted(ctx, b.ID); err != nil {
		return nil, err
	}

	b, err = s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if b.Completed {
		s.notify(ctx, b.BorrowerID, "Test ride completed",
			fmt.Sprintf("Booking %d is confirmed complete by both parties.", b.ID))
	}
	return b, nil
}

func (s *service) AgreeForceMajeure(ctx context.Context, bookingID, userID int) (bool, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return false, err
	}

	role, ok := b.RoleOf(userID)
	if !ok {
		return false, ErrNotParticipant
	}
	if b.Cancelled || b.Settled {
		return false, ErrTerminal
	}

	if d := policy.ForceMajeure(s.now(), b.ScheduledStart, b.AnyCheckedIn()); !d.Allowed {
		return false, &WindowError{d}
	}

	if _, err := s.repo.SetForceMajeureAgreed(ctx, b.ID, role); err != nil {
		return false, err
	}

	b, err = s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return false, err
	}
	return b.ForceMajeureBorrowerAgreedAt != nil && b.ForceMajeureOwnerAgreedAt != nil, nil
}

func (s *service) SetDepositChoice(ctx context.Context, bookingID, ownerID int, choice string) error {
	if choice != DepositChoiceKeep && choice != DepositChoiceRefund {
		return fmt.Errorf("invalid deposit choice %q", choice)
	}

	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.OwnerID != ownerID {
		return ErrNotParticipant
	}
	if b.Settled {
		return ErrTerminal
	}

	_, err = s.repo.SetDepositChoice(ctx, bookingID, choice)
	return err
}

func (s *service) GetForUser(ctx context.Context, bookingID, userID int) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, ok := b.RoleOf(userID); !ok {
		return nil, ErrNotParticipant
	}
	return b, nil
}

func (s *service) ListForUser(ctx context.Context, userID int) ([]Booking, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) notify(ctx context.Context, userID int, subject, body string) {
	if s.email == nil || s.userRepo == nil {
		return
	}
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil || u == nil {
		return
	}
	if err := s.email.Send(ctx, u.Email, u.Name, subject, body); err != nil {
		logger.Error("failed to queue notification", "user_id", userID, "error", err)
	}
}
