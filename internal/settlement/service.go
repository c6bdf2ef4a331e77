package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/c6lbmb/borrowmybike-sub000/internal/booking"
	"github.com/c6lbmb/borrowmybike-sub000/internal/credit"
	"github.com/c6lbmb/borrowmybike-sub000/internal/gateway"
	"github.com/c6lbmb/borrowmybike-sub000/internal/ledger"
	"github.com/c6lbmb/borrowmybike-sub000/internal/logger"
	"github.com/c6lbmb/borrowmybike-sub000/internal/metrics"
	"github.com/c6lbmb/borrowmybike-sub000/internal/policy"
	"github.com/c6lbmb/borrowmybike-sub000/internal/user"
)

// Gateway is the outbound payment provider surface the executor needs.
type Gateway interface {
	Refund(ctx context.Context, chargeRef string, amountCents int64, idempotencyKey string) (string, error)
}

// AuditLog records settlement decisions best-effort.
type AuditLog interface {
	Record(ctx context.Context, bookingID int, actor, action, note string)
}

// Notifier queues outcome mail to a party. Satisfied by *email.Service.
type Notifier interface {
	Send(ctx context.Context, to, name, subject, body string) error
}

// Result reports what a settlement (or an idempotent re-call) did.
type Result struct {
	Scenario            Scenario `json:"scenario"`
	RefundedCents       int64    `json:"refunded_cents"`
	CreditedCents       int64    `json:"credited_cents"`
	PaidOutCents        int64    `json:"paid_out_cents"`
	PlatformIncomeCents int64    `json:"platform_income_cents"`
	AlreadySettled      bool     `json:"already_settled"`
	Steps               []string `json:"steps,omitempty"`
}

func (r *Result) addStep(format string, args ...interface{}) {
	r.Steps = append(r.Steps, fmt.Sprintf(format, args...))
}

// CancelResult reports the outcome of a cancellation.
type CancelResult struct {
	Outcome             string `json:"outcome"`
	CancelledBy         string `json:"cancelled_by"`
	RefundedCents       int64  `json:"refunded_cents"`
	CreditedCents       int64  `json:"credited_cents"`
	PlatformIncomeCents int64  `json:"platform_income_cents"`
	RebookCreditCents   int64  `json:"rebook_credit_cents"`
	AlreadyCancelled    bool   `json:"already_cancelled"`
}

type Service struct {
	bookings booking.Repository
	payments ledger.Repository
	credits  credit.Repository
	gateway  Gateway
	audit    AuditLog
	users    user.Repository
	notifier Notifier
	now      func() time.Time
}

func NewService(bookings booking.Repository, payments ledger.Repository, credits credit.Repository, gw Gateway, audit AuditLog, users user.Repository, notifier Notifier) *Service {
	return &Service{
		bookings: bookings,
		payments: payments,
		credits:  credits,
		gateway:  gw,
		audit:    audit,
		users:    users,
		notifier: notifier,
		now:      time.Now,
	}
}

// Settle classifies a fully paid, unsettled booking and performs its money
// movement, then flips settled exactly once. Repeated calls after the first
// are no-ops returning the original outcome.
func (s *Service) Settle(ctx context.Context, bookingID int, actor string) (*Result, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if b.Cancelled {
		return nil, ErrBookingCancelled
	}
	if b.Settled {
		return s.settledResult(b), nil
	}
	if !b.FullyPaid() {
		return nil, ErrNotFullyPaid
	}

	scenario, err := Classify(b)
	if err != nil {
		logger.Error("unclassifiable booking reached settlement", "booking_id", b.ID, "error", err)
		return nil, err
	}

	res := &Result{Scenario: scenario}
	if execErr := s.execute(ctx, b, scenario, res); execErr != nil {
		if len(res.Steps) > 0 {
			ie := &IntegrityError{BookingID: b.ID, CompletedSteps: res.Steps, Err: execErr}
			logger.Error("settlement partially applied", "booking_id", b.ID, "steps", res.Steps, "error", execErr)
			metrics.SettlementFailuresTotal.Inc()
			return res, ie
		}
		return nil, execErr
	}

	ok, err := s.bookings.MarkSettled(ctx, b.ID, string(scenario))
	if err != nil {
		metrics.SettlementFailuresTotal.Inc()
		return res, &IntegrityError{BookingID: b.ID, CompletedSteps: res.Steps, Err: err}
	}
	if !ok {
		// Someone else settled concurrently; their outcome stands. Every
		// money movement above was claim-guarded, so nothing applied twice.
		b2, err := s.bookings.GetByID(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		return s.settledResult(b2), nil
	}

	s.audit.Record(ctx, b.ID, actor, "settle", string(scenario))
	metrics.RecordSettlement(string(scenario))
	s.notifyParties(ctx, b, "Your booking has been settled",
		fmt.Sprintf("Booking %d is settled (%s). Refunds, credits and payouts are reflected on your account.", b.ID, scenario))
	return res, nil
}

func (s *Service) execute(ctx context.Context, b *booking.Booking, scenario Scenario, res *Result) error {
	switch scenario {
	case ScenarioHappyPath:
		if err := s.payoutDue(ctx, b.ID, ledger.TypeOwnerPayout, ledger.BookingFeeCents, res); err != nil {
			return err
		}
		return s.returnPayment(ctx, b, b.OwnerID, ledger.TypeOwnerDeposit, ledger.TypeOwnerDepositRefund,
			ledger.OwnerDepositCents, b.OwnerDepositChoice, credit.TypeDepositReturn, res)

	case ScenarioOwnerFault:
		// The borrower is made whole in full; the platform's cut comes out
		// of the owner's deposit, the deposit being the owner's
		// accountability collateral.
		if err := s.returnPayment(ctx, b, b.BorrowerID, ledger.TypeBorrowerBookingFee, ledger.TypeBorrowerFeeRefund,
			ledger.BookingFeeCents, booking.DepositChoiceRefund, credit.TypeFeeReturn, res); err != nil {
			return err
		}
		if err := s.platformIncome(ctx, b.ID, ledger.PlatformIncomeCents, res); err != nil {
			return err
		}
		return s.returnPayment(ctx, b, b.OwnerID, ledger.TypeOwnerDeposit, ledger.TypeOwnerDepositRefund,
			ledger.OwnerDepositCents-ledger.PlatformIncomeCents, b.OwnerDepositChoice, credit.TypeDepositReturn, res)

	case ScenarioBorrowerFault:
		if err := s.platformIncome(ctx, b.ID, ledger.PlatformIncomeCents, res); err != nil {
			return err
		}
		if err := s.payoutDue(ctx, b.ID, ledger.TypeOwnerPayout, ledger.CompensationCents, res); err != nil {
			return err
		}
		return s.returnPayment(ctx, b, b.OwnerID, ledger.TypeOwnerDeposit, ledger.TypeOwnerDepositRefund,
			ledger.OwnerDepositCents, b.OwnerDepositChoice, credit.TypeDepositReturn, res)

	case ScenarioBorrowerNoShow:
		if err := s.platformIncome(ctx, b.ID, ledger.PlatformIncomeCents, res); err != nil {
			return err
		}
		if err := s.payoutDue(ctx, b.ID, ledger.TypeOwnerPayout, ledger.CompensationCents, res); err != nil {
			return err
		}
		return s.returnPayment(ctx, b, b.OwnerID, ledger.TypeOwnerDeposit, ledger.TypeOwnerDepositRefund,
			ledger.OwnerDepositCents, b.OwnerDepositChoice, credit.TypeDepositReturn, res)

	case ScenarioOwnerNoShow:
		if err := s.platformIncome(ctx, b.ID, ledger.PlatformIncomeCents, res); err != nil {
			return err
		}
		if err := s.payoutDue(ctx, b.ID, ledger.TypeBorrowerCompensation, ledger.CompensationCents, res); err != nil {
			return err
		}
		return s.returnPayment(ctx, b, b.BorrowerID, ledger.TypeBorrowerBookingFee, ledger.TypeBorrowerFeeRefund,
			ledger.BookingFeeCents, booking.DepositChoiceRefund, credit.TypeFeeReturn, res)

	case ScenarioForceMajeure:
		// A pure wash: both payments come back as credit only, no gateway
		// refunds, no payouts, no platform income.
		if err := s.issueCredit(ctx, b, b.BorrowerID, credit.TypeForceMajeure, ledger.BookingFeeCents, res); err != nil {
			return err
		}
		return s.issueCredit(ctx, b, b.OwnerID, credit.TypeForceMajeure, ledger.OwnerDepositCents, res)
	}

	return fmt.Errorf("%w: unknown scenario %q", ErrUnclassifiable, scenario)
}

// Cancel is the terminal alternative to settlement. The flip of cancelled is
// the claim; money moves only in the invocation that wins it.
func (s *Service) Cancel(ctx context.Context, bookingID int, by booking.Role, actor string) (*CancelResult, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if b.Settled {
		return nil, &PreconditionError{Reason: "booking is already settled"}
	}
	if b.Cancelled {
		return s.cancelledResult(b), nil
	}

	faultLine := policy.CancellationFaultLine(s.now(), b.ScheduledStart)

	ok, err := s.bookings.MarkCancelled(ctx, b.ID, by)
	if err != nil {
		return nil, err
	}
	if !ok {
		b2, err := s.bookings.GetByID(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		return s.cancelledResult(b2), nil
	}

	res := &CancelResult{
		Outcome:     "cancelled_" + string(faultLine),
		CancelledBy: string(by),
	}

	if err := s.cancellationMoney(ctx, b, by, faultLine, res); err != nil {
		logger.Error("cancellation money movement incomplete", "booking_id", b.ID, "error", err)
		metrics.SettlementFailuresTotal.Inc()
		return res, &IntegrityError{BookingID: b.ID, CompletedSteps: []string{"cancelled"}, Err: err}
	}

	s.audit.Record(ctx, b.ID, actor, "cancel", res.Outcome)
	metrics.RecordCancellation(string(faultLine))
	s.notifyParties(ctx, b, "Your booking has been cancelled",
		fmt.Sprintf("Booking %d was cancelled by the %s. Any refund or credit due is already on its way.", b.ID, by))
	return res, nil
}

// notifyParties queues outcome mail to both sides, best-effort.
func (s *Service) notifyParties(ctx context.Context, b *booking.Booking, subject, body string) {
	if s.users == nil || s.notifier == nil {
		return
	}
	for _, userID := range []int{b.BorrowerID, b.OwnerID} {
		u, err := s.users.FindByID(ctx, userID)
		if err != nil || u == nil {
			continue
		}
		if err := s.notifier.Send(ctx, u.Email, u.Name, subject, body); err != nil {
			logger.Error("failed to queue settlement mail", "booking_id", b.ID, "user_id", userID, "error", err)
		}
	}
}

func (s *Service) cancellationMoney(ctx context.Context, b *booking.Booking, by booking.Role, faultLine policy.FaultLine, res *CancelResult) error {
	cancellerPaid, cancellerType := s.inboundPayment(b, by)
	otherRole := by.Other()
	otherPaid, otherType := s.inboundPayment(b, otherRole)

	if cancellerPaid {
		amount := inboundAmount(cancellerType)
		if faultLine == policy.FaultLineEarly {
			// Early: 75% back, 25% platform income.
			returned := amount * 75 / 100
			kept := amount - returned

			sub := &Result{}
			if err := s.returnPayment(ctx, b, b.UserID(by), cancellerType, ledger.TypeCancellationRefund,
				returned, booking.DepositChoiceRefund, credit.TypeCancellation, sub); err != nil {
				return err
			}
			if err := s.platformIncome(ctx, b.ID, kept, sub); err != nil {
				return err
			}
			res.RefundedCents += sub.RefundedCents
			res.CreditedCents += sub.CreditedCents
			res.PlatformIncomeCents += sub.PlatformIncomeCents
		} else {
			// Late: the canceller forfeits everything.
			sub := &Result{}
			if err := s.platformIncome(ctx, b.ID, amount, sub); err != nil {
				return err
			}
			res.PlatformIncomeCents += sub.PlatformIncomeCents
		}
	}

	if otherPaid {
		amount := inboundAmount(otherType)
		refundRow := ledger.TypeBorrowerFeeRefund
		if otherType == ledger.TypeOwnerDeposit {
			refundRow = ledger.TypeOwnerDepositRefund
		}
		sub := &Result{}
		if err := s.returnPayment(ctx, b, b.UserID(otherRole), otherType, refundRow,
			amount, booking.DepositChoiceRefund, credit.TypeCancellation, sub); err != nil {
			return err
		}
		res.RefundedCents += sub.RefundedCents
		res.CreditedCents += sub.CreditedCents
	}

	// The non-cancelling party gets a fixed credit toward rebooking.
	origin := b.ID
	if _, err := s.credits.Issue(ctx, b.UserID(otherRole), credit.TypeRebook, ledger.RebookCreditCents, &origin, nil); err != nil {
		return err
	}
	metrics.RecordCreditIssued(credit.TypeRebook)
	res.RebookCreditCents = ledger.RebookCreditCents

	return nil
}

// ClaimNoShow lets the party who showed up claim the other a no-show. A
// successful claim settles the booking immediately.
func (s *Service) ClaimNoShow(ctx context.Context, bookingID int, claimant booking.Role, actor string) (*Result, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if b.Cancelled {
		return nil, ErrBookingCancelled
	}
	if b.Settled {
		return s.settledResult(b), nil
	}
	if !b.FullyPaid() {
		return nil, ErrNotFullyPaid
	}

	other := claimant.Other()
	d := policy.NoShowClaim(s.now(), b.ScheduledStart, b.CheckedIn(claimant), b.CheckedIn(other))
	if !d.Allowed {
		return nil, &PreconditionError{Reason: d.Reason}
	}

	reason := booking.ReviewOwnerNoShow
	if other == booking.RoleBorrower {
		reason = booking.ReviewBorrowerNoShow
	}

	ok, err := s.bookings.ClaimReview(ctx, b.ID, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		b2, err := s.bookings.GetByID(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		if b2.ReviewReason == nil || *b2.ReviewReason != reason {
			return nil, &PreconditionError{Reason: "booking is already under review"}
		}
		// Same claim raced or was retried; fall through to settle.
	}

	s.audit.Record(ctx, b.ID, actor, "claim_no_show", reason)
	return s.Settle(ctx, bookingID, actor)
}

// --- money movement primitives -------------------------------------------

// payoutDue claims a ledger row and marks it payable out-of-band.
func (s *Service) payoutDue(ctx context.Context, bookingID int, ptype string, amount int64, res *Result) error {
	p, _, err := s.payments.ClaimPayment(ctx, bookingID, ptype, amount)
	if err != nil {
		return err
	}
	if p.Status == ledger.StatusInitiated {
		if _, err := s.payments.MarkPayoutDue(ctx, p.ID); err != nil {
			return err
		}
	}
	res.PaidOutCents += amount
	res.addStep("%s %d payout_due", ptype, amount)
	return nil
}

// platformIncome records the platform's cut. No external call is involved,
// so the row flips straight to succeeded.
func (s *Service) platformIncome(ctx context.Context, bookingID int, amount int64, res *Result) error {
	p, _, err := s.payments.ClaimPayment(ctx, bookingID, ledger.TypePlatformIncome, amount)
	if err != nil {
		return err
	}
	if p.Status == ledger.StatusInitiated {
		if _, err := s.payments.MarkSucceeded(ctx, p.ID, ""); err != nil {
			return err
		}
	}
	res.PlatformIncomeCents += amount
	res.addStep("platform_income %d", amount)
	return nil
}

func (s *Service) issueCredit(ctx context.Context, b *booking.Booking, userID int, ctype string, amount int64, res *Result) error {
	origin := b.ID
	if _, err := s.credits.Issue(ctx, userID, ctype, amount, &origin, nil); err != nil {
		return err
	}
	metrics.RecordCreditIssued(ctype)
	res.CreditedCents += amount
	res.addStep("credit %s %d to user %d", ctype, amount, userID)
	return nil
}

// returnPayment gives an inbound payment back to its payer. choice=refund
// attempts a gateway refund of the original charge and degrades to credit
// when the reference is missing or the call fails; choice=keep converts the
// amount to platform credit directly. Refund failure never blocks
// settlement.
func (s *Service) returnPayment(ctx context.Context, b *booking.Booking, userID int, sourceType, refundRowType string, amount int64, choice, creditType string, res *Result) error {
	if choice != booking.DepositChoiceRefund {
		return s.issueCredit(ctx, b, userID, creditType, amount, res)
	}

	source, err := s.payments.GetByBookingAndType(ctx, b.ID, sourceType)
	if err != nil || source.GatewayReference == nil {
		return s.issueCredit(ctx, b, userID, creditType, amount, res)
	}

	row, created, err := s.payments.ClaimPayment(ctx, b.ID, refundRowType, amount)
	if err != nil {
		return err
	}
	if !created {
		switch row.Status {
		case ledger.StatusInitiated:
			// An earlier invocation claimed the refund but died before the
			// gateway call resolved; resume it below.
		case ledger.StatusFailed:
			// An earlier invocation already degraded this refund to credit.
			// The grant is claim-guarded, so reissuing is a no-op lookup.
			return s.issueCredit(ctx, b, userID, credit.TypeRefundFallback, amount, res)
		default:
			res.RefundedCents += amount
			res.addStep("%s %d already refunded", refundRowType, amount)
			return nil
		}
	}

	idemKey := gateway.IdempotencyKey(b.ID, row.ID, amount)
	refundRef, err := s.gateway.Refund(ctx, *source.GatewayReference, amount, idemKey)
	if err != nil {
		// The external call failed before producing any effect: fail the
		// claim terminally and fall back to credit so the booking never
		// sticks and a retry never refunds on top of the credit.
		logger.Error("gateway refund failed, issuing credit instead",
			"booking_id", b.ID, "type", refundRowType, "error", err)
		if _, failErr := s.payments.MarkFailed(ctx, row.ID); failErr != nil {
			return failErr
		}
		return s.issueCredit(ctx, b, userID, credit.TypeRefundFallback, amount, res)
	}

	if _, err := s.payments.MarkRefundSucceeded(ctx, row.ID, refundRef); err != nil {
		// Money moved but the ledger write failed; make sure the partial
		// result names the refund so an operator can reconcile it.
		res.addStep("%s %d refunded (ledger write failed, ref %s)", refundRowType, amount, refundRef)
		return err
	}
	res.RefundedCents += amount
	res.addStep("%s %d refunded", refundRowType, amount)
	return nil
}

func (s *Service) inboundPayment(b *booking.Booking, role booking.Role) (bool, string) {
	if role == booking.RoleBorrower {
		return b.BorrowerPaid, ledger.TypeBorrowerBookingFee
	}
	return b.OwnerDepositPaid, ledger.TypeOwnerDeposit
}

func inboundAmount(ptype string) int64 {
	if ptype == ledger.TypeOwnerDeposit {
		return ledger.OwnerDepositCents
	}
	return ledger.BookingFeeCents
}

func (s *Service) settledResult(b *booking.Booking) *Result {
	res := &Result{AlreadySettled: true}
	if b.SettlementOutcome != nil {
		res.Scenario = Scenario(*b.SettlementOutcome)
	}
	return res
}

func (s *Service) cancelledResult(b *booking.Booking) *CancelResult {
	res := &CancelResult{Outcome: "cancelled", AlreadyCancelled: true}
	if b.CancelledBy != nil {
		res.CancelledBy = *b.CancelledBy
	}
	return res
}
