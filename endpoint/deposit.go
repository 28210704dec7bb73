package endpoint

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmontagna/fisioagenda/model"
	"github.com/lmontagna/fisioagenda/util"
	"gorm.io/gorm"
)

type depositRequest struct {
	Amount float64    `json:"amount" example:"30"`
	Method string     `json:"method" example:"cash"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
	Note   string     `json:"note,omitempty" example:"Initial deposit"`
}

// AddDeposit godoc
// @Summary      Record a deposit on a visit
// @Description  Append one payment to the visit's ledger. A deposit that would push the paid total above the visit total is rejected.
// @Tags         Deposit
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Visit ID"
// @Param        request body depositRequest true "Deposit fields"
// @Success      200 {object} util.APIResponse "Deposit recorded"
// @Failure      400 {object} util.APIResponse "Invalid deposit"
// @Router       /visit/{id}/deposit [post]
func AddDeposit(c *gin.Context) {
	visitID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	var req depositRequest
	if !bindJSONOrRespond(c, &req, "Invalid input data") {
		return
	}
	if req.Amount <= 0 {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Deposit amount must be positive",
			Err: fmt.Errorf("amount must be > 0, got %v", req.Amount),
		})
		return
	}
	if !util.Contains(model.CanonicalPaymentMethod(req.Method), model.PaymentMethods) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid payment method",
			Err: fmt.Errorf("unknown method %q", req.Method),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var visit model.Visit
	if err := db.Preload("Deposits").First(&visit, visitID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Visit not found",
			Err: err,
		})
		return
	}

	total := model.TotalAmount(visit)
	if model.SumDeposits(visit.Deposits)+req.Amount > total {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Deposit exceeds the outstanding balance",
			Err: fmt.Errorf("paid total would exceed visit total of %v", total),
		})
		return
	}

	paidAt := time.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	deposit := model.Deposit{
		VisitID: visit.ID,
		Amount:  req.Amount,
		Method:  model.CanonicalPaymentMethod(req.Method),
		PaidAt:  paidAt,
		Note:    req.Note,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&deposit).Error; err != nil {
			return err
		}
		visit.Deposits = append(visit.Deposits, deposit)
		model.NormalizeVisit(&visit)
		return tx.Omit("Deposits").Save(&visit).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to record deposit",
			Err: err,
		})
		return
	}

	util.LogAuditEvent(util.AuditEvent{
		EventType: util.EventDepositAdded,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   fmt.Sprintf("Recorded deposit of %v for %s", deposit.Amount, util.GetPatientName(db, visit.PatientID)),
		Details:   map[string]interface{}{"visit_id": visit.ID, "deposit_id": deposit.ID, "amount": deposit.Amount, "method": deposit.Method},
	})

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Deposit recorded",
		Data: model.NewListVisitResponse(visit, util.GetPatientName(db, visit.PatientID)),
	})
}

// RemoveDeposit deletes one deposit from a visit's ledger and recomputes the
// cached payment summary.
func RemoveDeposit(c *gin.Context) {
	visitID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	depositID, ok := paramIDOrRespond(c, "depositId")
	if !ok {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var visit model.Visit
	if err := db.Preload("Deposits").First(&visit, visitID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Visit not found",
			Err: err,
		})
		return
	}

	var target *model.Deposit
	remaining := make([]model.Deposit, 0, len(visit.Deposits))
	for _, d := range visit.Deposits {
		if d.ID == depositID {
			deposit := d
			target = &deposit
			continue
		}
		remaining = append(remaining, d)
	}
	if target == nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Deposit not found",
			Err: fmt.Errorf("deposit %d does not belong to visit %d", depositID, visitID),
		})
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(target).Error; err != nil {
			return err
		}
		visit.Deposits = remaining
		// An emptied ledger keeps the visit unpaid: clear the cached summary
		// so normalization doesn't re-synthesize the removed deposit.
		if len(remaining) == 0 {
			visit.Paid = false
			visit.PaidAt = nil
			visit.AmountPaid = nil
			visit.PaymentMethod = ""
		}
		model.NormalizeVisit(&visit)
		return tx.Omit("Deposits").Save(&visit).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to remove deposit",
			Err: err,
		})
		return
	}

	util.LogAuditEvent(util.AuditEvent{
		EventType: util.EventDepositRemoved,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   fmt.Sprintf("Removed deposit of %v from visit %d", target.Amount, visit.ID),
		Details:   map[string]interface{}{"visit_id": visit.ID, "deposit_id": target.ID},
	})

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Deposit removed",
		Data: model.NewListVisitResponse(visit, util.GetPatientName(db, visit.PatientID)),
	})
}

type visitPaymentRequest struct {
	Paid       bool       `json:"paid"`
	Method     string     `json:"method,omitempty" example:"cash"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	AmountPaid *float64   `json:"amount_paid,omitempty"`
}

// UpdateVisitPayment writes the payment summary the way the old single-flag
// model did. The visit then passes through normalization, which turns the
// flag into a real deposit when the ledger is empty.
func UpdateVisitPayment(c *gin.Context) {
	visitID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	var req visitPaymentRequest
	if !bindJSONOrRespond(c, &req, "Invalid input data") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var visit model.Visit
	if err := db.Preload("Deposits").First(&visit, visitID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Visit not found",
			Err: err,
		})
		return
	}

	visit.Paid = req.Paid
	visit.PaymentMethod = req.Method
	visit.PaidAt = req.PaidAt
	visit.AmountPaid = req.AmountPaid
	model.NormalizeVisit(&visit)
	if err := persistNormalizedVisit(db, &visit); err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to update payment",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Payment updated",
		Data: model.NewListVisitResponse(visit, util.GetPatientName(db, visit.PatientID)),
	})
}
