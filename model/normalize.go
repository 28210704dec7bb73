package model

import "strings"

// legacyStatusNames maps status values found in exports of the legacy
// record keeper to the canonical names.
var legacyStatusNames = map[string]string{
	"programmata": StatusScheduled,
	"completata":  StatusCompleted,
	"cancellata":  StatusCancelled,
}

// CanonicalStatus maps a possibly-legacy status name to a canonical one.
// Unknown or empty values default to scheduled.
func CanonicalStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if mapped, ok := legacyStatusNames[s]; ok {
		return mapped
	}
	for _, known := range VisitStatuses {
		if s == known {
			return s
		}
	}
	return StatusScheduled
}

// CanonicalPaymentMethod maps a free-form method label to a canonical one.
// Recognizes the Italian labels used by older exports (contanti, bonifico,
// pos). Unrecognized values fall back to cash.
func CanonicalPaymentMethod(method string) string {
	m := strings.ToLower(strings.TrimSpace(method))
	switch {
	case m == MethodTransfer || strings.Contains(m, "bon"):
		return MethodTransfer
	case m == MethodCard || strings.Contains(m, "pos") || strings.Contains(m, "card"):
		return MethodCard
	default:
		return MethodCash
	}
}

// NormalizeVisit repairs a visit record into the canonical deposit-ledger
// shape and recomputes the cached payment summary. Records written before the
// ledger existed carry only the paid flag and cached amount; for those exactly
// one deposit is synthesized. Idempotent: the presence of any deposit
// short-circuits re-synthesis, and the recomputed cache is a pure function of
// the ledger.
func NormalizeVisit(v *Visit) {
	v.Status = CanonicalStatus(v.Status)
	total := TotalAmount(*v)

	if len(v.Deposits) == 0 {
		implied := 0.0
		if v.AmountPaid != nil {
			implied = *v.AmountPaid
		} else if v.Paid {
			implied = total
		}
		if v.Paid || implied > 0 {
			if implied == 0 {
				implied = total
			}
			paidAt := v.End
			if v.PaidAt != nil {
				paidAt = *v.PaidAt
			}
			v.Deposits = []Deposit{{
				VisitID: v.ID,
				Amount:  implied,
				Method:  CanonicalPaymentMethod(v.PaymentMethod),
				PaidAt:  paidAt,
			}}
		}
	}

	sum := SumDeposits(v.Deposits)
	v.Paid = sum >= total && total > 0
	if len(v.Deposits) > 0 {
		last := v.Deposits[len(v.Deposits)-1]
		v.PaymentMethod = last.Method
		paidAt := last.PaidAt
		v.PaidAt = &paidAt
		amount := sum
		v.AmountPaid = &amount
	}
	if v.TotalAmount == nil {
		v.TotalAmount = &total
	}
}
