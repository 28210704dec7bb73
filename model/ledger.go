package model

// Payment statuses derived from the deposit ledger.
const (
	PaymentPaid    = "paid"
	PaymentPartial = "partial"
	PaymentUnpaid  = "unpaid"
)

// SumDeposits returns the total amount across the given deposits.
func SumDeposits(deposits []Deposit) float64 {
	var sum float64
	for _, d := range deposits {
		sum += d.Amount
	}
	return sum
}

// TotalAmount returns the visit's explicit total when set, otherwise its cost.
func TotalAmount(v Visit) float64 {
	if v.TotalAmount != nil {
		return *v.TotalAmount
	}
	return v.Cost
}

// PaidAmount returns how much of the visit has been paid. The deposit ledger
// takes precedence over the cached payment summary; the cached summary takes
// precedence over the binary paid flag.
func PaidAmount(v Visit) float64 {
	if sum := SumDeposits(v.Deposits); sum > 0 {
		return sum
	}
	if v.Paid {
		if v.AmountPaid != nil {
			return *v.AmountPaid
		}
		return TotalAmount(v)
	}
	if v.AmountPaid != nil {
		return *v.AmountPaid
	}
	return 0
}

// OutstandingAmount returns the unpaid remainder, never negative.
// Overpaid legacy records are clamped to zero.
func OutstandingAmount(v Visit) float64 {
	outstanding := TotalAmount(v) - PaidAmount(v)
	if outstanding < 0 {
		return 0
	}
	return outstanding
}

// PaymentStatus classifies the visit as paid, partial or unpaid.
// Zero-cost visits are always unpaid.
func PaymentStatus(v Visit) string {
	total := TotalAmount(v)
	paid := PaidAmount(v)
	switch {
	case paid >= total && total > 0:
		return PaymentPaid
	case paid > 0 && paid < total:
		return PaymentPartial
	default:
		return PaymentUnpaid
	}
}

// LastDeposit returns the deposit with the most recent paid-at timestamp,
// or nil when the ledger is empty.
func LastDeposit(v Visit) *Deposit {
	if len(v.Deposits) == 0 {
		return nil
	}
	latest := v.Deposits[0]
	for _, d := range v.Deposits[1:] {
		if d.PaidAt.After(latest.PaidAt) {
			latest = d
		}
	}
	return &latest
}
