package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func f64(v float64) *float64 { return &v }

func visitWithDeposits(cost float64, amounts ...float64) Visit {
	v := Visit{Cost: cost, Status: StatusCompleted}
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, a := range amounts {
		v.Deposits = append(v.Deposits, Deposit{
			Amount: a,
			Method: MethodCash,
			PaidAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	return v
}

func TestPaidAmount_DepositsTakePrecedence(t *testing.T) {
	v := visitWithDeposits(100, 40, 60)
	// The cached summary disagrees with the ledger on purpose.
	v.Paid = false
	v.AmountPaid = f64(10)

	assert.Equal(t, 100.0, PaidAmount(v))
	assert.Equal(t, 0.0, OutstandingAmount(v))
	assert.Equal(t, PaymentPaid, PaymentStatus(v))
}

func TestPaidAmount_PartialDeposits(t *testing.T) {
	v := visitWithDeposits(100, 30)

	assert.Equal(t, 30.0, PaidAmount(v))
	assert.Equal(t, 70.0, OutstandingAmount(v))
	assert.Equal(t, PaymentPartial, PaymentStatus(v))
}

func TestPaidAmount_PaidFlagFallback(t *testing.T) {
	v := Visit{Cost: 80, Paid: true}
	assert.Equal(t, 80.0, PaidAmount(v))
	assert.Equal(t, PaymentPaid, PaymentStatus(v))

	// An explicit cached amount wins over the implied full total.
	v.AmountPaid = f64(50)
	assert.Equal(t, 50.0, PaidAmount(v))
	assert.Equal(t, PaymentPartial, PaymentStatus(v))
}

func TestPaidAmount_AmountPaidWithoutFlag(t *testing.T) {
	v := Visit{Cost: 60, AmountPaid: f64(20)}
	assert.Equal(t, 20.0, PaidAmount(v))
	assert.Equal(t, PaymentPartial, PaymentStatus(v))
}

func TestPaidAmount_NoEvidence(t *testing.T) {
	v := Visit{Cost: 60}
	assert.Equal(t, 0.0, PaidAmount(v))
	assert.Equal(t, PaymentUnpaid, PaymentStatus(v))
}

func TestTotalAmount_ExplicitOverridesCost(t *testing.T) {
	v := Visit{Cost: 60, TotalAmount: f64(90)}
	assert.Equal(t, 90.0, TotalAmount(v))

	v.TotalAmount = nil
	assert.Equal(t, 60.0, TotalAmount(v))
}

func TestPaymentStatus_ZeroCostVisitIsUnpaid(t *testing.T) {
	v := Visit{Cost: 0}
	assert.Equal(t, PaymentUnpaid, PaymentStatus(v))

	// Even a paid flag cannot make a zero-total visit paid.
	v.Paid = true
	assert.Equal(t, PaymentUnpaid, PaymentStatus(v))
}

func TestOutstandingAmount_OverpaymentClampedToZero(t *testing.T) {
	v := visitWithDeposits(50, 40, 40)
	assert.Equal(t, 80.0, PaidAmount(v))
	assert.Equal(t, 0.0, OutstandingAmount(v))
	assert.Equal(t, PaymentPaid, PaymentStatus(v))
}

func TestLastDeposit(t *testing.T) {
	assert.Nil(t, LastDeposit(Visit{}))

	v := visitWithDeposits(100, 30, 20)
	last := LastDeposit(v)
	assert.NotNil(t, last)
	assert.Equal(t, 20.0, last.Amount)

	// Order in the slice does not matter, only the paid-at timestamp.
	v.Deposits[0].PaidAt = v.Deposits[1].PaidAt.Add(time.Hour)
	last = LastDeposit(v)
	assert.Equal(t, 30.0, last.Amount)
}
