package ledger

// Fixed platform amounts, in cents. The compensation paid to the wronged
// party plus the platform's cut always re-divides one forfeited payment:
// CompensationCents + PlatformIncomeCents == BookingFeeCents.
const (
	BookingFeeCents     int64 = 50_000
	OwnerDepositCents   int64 = 50_000
	CompensationCents   int64 = 30_000
	PlatformIncomeCents int64 = 20_000
	RebookCreditCents   int64 = 10_000
)

const Currency = "KRW"
