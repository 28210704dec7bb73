package model

import (
	"time"

	"gorm.io/gorm"
)

// Visit statuses. Older exports used the Italian names, see CanonicalStatus.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no-show"
)

// Payment methods accepted for deposits.
const (
	MethodCash     = "cash"
	MethodTransfer = "transfer"
	MethodCard     = "card"
)

// VisitStatuses lists every valid visit status.
var VisitStatuses = []string{StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow}

// PaymentMethods lists every valid deposit method.
var PaymentMethods = []string{MethodCash, MethodTransfer, MethodCard}

// Visit represents a single scheduled home session for a patient.
// The Paid/PaymentMethod/PaidAt/AmountPaid columns are a denormalized cache
// of the deposit ledger; NormalizeVisit recomputes them on every write path.
type Visit struct {
	gorm.Model
	PatientID     uint       `json:"patient_id" gorm:"not null;index"`
	Start         time.Time  `json:"start" gorm:"not null;index"`
	End           time.Time  `json:"end" gorm:"not null"`
	Location      string     `json:"location" gorm:"type:varchar(255)"`
	Treatment     string     `json:"treatment" gorm:"type:varchar(255)"`
	Cost          float64    `json:"cost"`
	TotalAmount   *float64   `json:"total_amount,omitempty"`
	Status        string     `json:"status" gorm:"type:varchar(16);index"`
	SeriesID      *string    `json:"series_id,omitempty" gorm:"type:varchar(36);index"`
	Paid          bool       `json:"paid"`
	PaymentMethod string     `json:"payment_method" gorm:"type:varchar(16)"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	AmountPaid    *float64   `json:"amount_paid,omitempty"`
	Subjective    string     `json:"subjective" gorm:"type:text"`
	Objective     string     `json:"objective" gorm:"type:text"`
	Assessment    string     `json:"assessment" gorm:"type:text"`
	Plan          string     `json:"plan" gorm:"type:text"`
	Deposits      []Deposit  `json:"deposits"`
}

// Deposit is one discrete payment applied toward a visit's cost.
// Deposits are the source of truth for how much of a visit has been paid.
type Deposit struct {
	gorm.Model
	VisitID uint      `json:"visit_id" gorm:"not null;index"`
	Amount  float64   `json:"amount" gorm:"not null"`
	Method  string    `json:"method" gorm:"type:varchar(16)"`
	PaidAt  time.Time `json:"paid_at"`
	Note    string    `json:"note" gorm:"type:varchar(255)"`
}

// Series groups the visits generated together from one recurrence rule.
// Members reference it through Visit.SeriesID.
type Series struct {
	ID        string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	Pattern   string         `json:"pattern" gorm:"type:varchar(16)"`
	Count     int            `json:"count"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// ListVisitResponse decorates a visit with patient info and the derived
// ledger values so list views never recompute them client-side.
type ListVisitResponse struct {
	Visit
	PatientName       string  `json:"patient_name"`
	TotalDue          float64 `json:"total_due"`
	PaidTotal         float64 `json:"paid_total"`
	OutstandingTotal  float64 `json:"outstanding_total"`
	PaymentStatusName string  `json:"payment_status"`
}

// NewListVisitResponse fills the derived fields from the ledger functions.
func NewListVisitResponse(v Visit, patientName string) ListVisitResponse {
	return ListVisitResponse{
		Visit:             v,
		PatientName:       patientName,
		TotalDue:          TotalAmount(v),
		PaidTotal:         PaidAmount(v),
		OutstandingTotal:  OutstandingAmount(v),
		PaymentStatusName: PaymentStatus(v),
	}
}
