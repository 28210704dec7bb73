package endpoint

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lmontagna/fisioagenda/model"
	"github.com/lmontagna/fisioagenda/util"
	"gorm.io/gorm"
)

type visitRequest struct {
	PatientID   uint      `json:"patient_id" example:"1"`
	Start       time.Time `json:"start" example:"2024-01-01T09:00:00Z"`
	End         time.Time `json:"end" example:"2024-01-01T10:00:00Z"`
	Location    string    `json:"location" example:"Via Garibaldi 12, Milano"`
	Treatment   string    `json:"treatment" example:"Posture treatment"`
	Cost        float64   `json:"cost" example:"60"`
	TotalAmount *float64  `json:"total_amount,omitempty"`
	Status      string    `json:"status" example:"scheduled"`
}

type createVisitRequest struct {
	visitRequest
	Recurrence model.RecurrenceRule `json:"recurrence"`
}

func (r visitRequest) validate() error {
	if r.PatientID == 0 {
		return fmt.Errorf("patient_id is required")
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("start and end are required")
	}
	if !r.End.After(r.Start) {
		return fmt.Errorf("end must be after start")
	}
	if r.Cost < 0 {
		return fmt.Errorf("cost must not be negative")
	}
	if r.TotalAmount != nil && *r.TotalAmount < 0 {
		return fmt.Errorf("total_amount must not be negative")
	}
	return nil
}

func (r visitRequest) toVisit() model.Visit {
	return model.Visit{
		PatientID:   r.PatientID,
		Start:       r.Start,
		End:         r.End,
		Location:    r.Location,
		Treatment:   r.Treatment,
		Cost:        r.Cost,
		TotalAmount: r.TotalAmount,
		Status:      model.CanonicalStatus(r.Status),
	}
}

// persistNormalizedVisit saves a visit after NormalizeVisit ran on it,
// creating any deposit the normalization synthesized.
func persistNormalizedVisit(tx *gorm.DB, visit *model.Visit) error {
	if err := tx.Omit("Deposits").Save(visit).Error; err != nil {
		return err
	}
	for i := range visit.Deposits {
		if visit.Deposits[i].ID == 0 {
			visit.Deposits[i].VisitID = visit.ID
			if err := tx.Create(&visit.Deposits[i]).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

type visitListQuery struct {
	Period    string
	Status    string
	Paid      string
	Keyword   string
	PatientID uint
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}

func parseVisitListQuery(c *gin.Context) visitListQuery {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	patientID, _ := strconv.ParseUint(c.Query("patient_id"), 10, 32)
	startDate, _ := time.Parse("2006-01-02", c.Query("start_date"))
	endDate, _ := time.Parse("2006-01-02", c.Query("end_date"))
	return visitListQuery{
		Period:    c.DefaultQuery("period", "all"),
		Status:    c.DefaultQuery("status", "all"),
		Paid:      c.DefaultQuery("paid", "all"),
		Keyword:   c.Query("keyword"),
		PatientID: uint(patientID),
		StartDate: startDate,
		EndDate:   endDate,
		Limit:     limit,
		Offset:    offset,
	}
}

// applyPeriodFilter restricts visits.start to the requested period.
// today is the current calendar day; week and month are sliding windows of
// the last 7 and 30 days; custom is an inclusive date range.
func applyPeriodFilter(query *gorm.DB, q visitListQuery, now time.Time) *gorm.DB {
	switch q.Period {
	case "today":
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		query = query.Where("visits.start >= ? AND visits.start < ?", dayStart, dayStart.AddDate(0, 0, 1))
	case "week":
		query = query.Where("visits.start >= ?", now.AddDate(0, 0, -7))
	case "month":
		query = query.Where("visits.start >= ?", now.AddDate(0, 0, -30))
	case "custom":
		if !q.StartDate.IsZero() {
			query = query.Where("visits.start >= ?", q.StartDate)
		}
		if !q.EndDate.IsZero() {
			// End date is inclusive
			query = query.Where("visits.start < ?", q.EndDate.AddDate(0, 0, 1))
		}
	}
	return query
}

// fetchVisits runs the SQL-expressible filters and returns the visits with
// deposits preloaded plus a patientID -> name lookup for the result set.
// The paid filter derives from the deposit ledger, so it is applied by the
// caller in Go, not here.
func fetchVisits(db *gorm.DB, q visitListQuery, now time.Time) ([]model.Visit, map[uint]string, error) {
	var visits []model.Visit
	query := db.Model(&model.Visit{}).Preload("Deposits").Order("visits.start ASC")

	query = applyPeriodFilter(query, q, now)
	if q.Status != "" && q.Status != "all" {
		query = query.Where("visits.status = ?", model.CanonicalStatus(q.Status))
	}
	if q.PatientID != 0 {
		query = query.Where("visits.patient_id = ?", q.PatientID)
	}
	if q.Keyword != "" {
		kw := "%" + strings.ToLower(strings.TrimSpace(q.Keyword)) + "%"
		query = query.Joins("LEFT JOIN patients ON patients.id = visits.patient_id").
			Where("LOWER(visits.treatment) LIKE ? OR LOWER(visits.location) LIKE ? OR LOWER(patients.first_name) LIKE ? OR LOWER(patients.last_name) LIKE ? OR LOWER(patients.address) LIKE ?",
				kw, kw, kw, kw, kw)
	}

	if err := query.Find(&visits).Error; err != nil {
		return nil, nil, err
	}

	names := map[uint]string{}
	ids := make([]uint, 0, len(visits))
	for _, v := range visits {
		if _, seen := names[v.PatientID]; !seen {
			names[v.PatientID] = ""
			ids = append(ids, v.PatientID)
		}
	}
	if len(ids) > 0 {
		var patients []model.Patient
		if err := db.Select("id", "first_name", "last_name").Where("id IN ?", ids).Find(&patients).Error; err != nil {
			return nil, nil, err
		}
		for _, p := range patients {
			names[p.ID] = p.FullName()
		}
	}
	return visits, names, nil
}

// matchesPaidFilter implements the three-state paid filter against the
// derived payment status.
func matchesPaidFilter(v model.Visit, paid string) bool {
	switch paid {
	case "", "all":
		return true
	case model.PaymentPaid, model.PaymentPartial, model.PaymentUnpaid:
		return model.PaymentStatus(v) == paid
	default:
		return true
	}
}

// ListVisits godoc
// @Summary      List visits
// @Description  List visits filtered by period, status, payment state, patient and free text
// @Tags         Visit
// @Produce      json
// @Security     SessionToken
// @Param        period query string false "today|week|month|custom|all"
// @Param        status query string false "scheduled|completed|cancelled|no-show|all"
// @Param        paid query string false "paid|partial|unpaid|all"
// @Param        patient_id query int false "Restrict to one patient"
// @Param        keyword query string false "Text search over treatment, location and patient"
// @Param        start_date query string false "Custom period start (YYYY-MM-DD)"
// @Param        end_date query string false "Custom period end, inclusive (YYYY-MM-DD)"
// @Success      200 {object} util.APIResponse{data=object} "Visits retrieved"
// @Router       /visit [get]
func ListVisits(c *gin.Context) {
	q := parseVisitListQuery(c)
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	visits, names, err := fetchVisits(db, q, time.Now())
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve visits",
			Err: err,
		})
		return
	}

	filtered := make([]model.ListVisitResponse, 0, len(visits))
	for _, v := range visits {
		if !matchesPaidFilter(v, q.Paid) {
			continue
		}
		filtered = append(filtered, model.NewListVisitResponse(v, names[v.PatientID]))
	}

	total := len(filtered)
	if q.Offset > 0 {
		if q.Offset >= total {
			filtered = filtered[:0]
		} else {
			filtered = filtered[q.Offset:]
		}
	}
	if q.Limit > 0 && len(filtered) > q.Limit {
		filtered = filtered[:q.Limit]
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Visits retrieved",
		Data: map[string]interface{}{"total": total, "total_fetched": len(filtered), "visits": filtered},
	})
}

// GetVisit returns one visit with its deposits and derived ledger values.
func GetVisit(c *gin.Context) {
	visitID, ok := paramIDOrRespond(c, "id")
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

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Visit retrieved",
		Data: model.NewListVisitResponse(visit, util.GetPatientName(db, visit.PatientID)),
	})
}

// CreateVisit godoc
// @Summary      Create a visit or a recurring series
// @Description  Create one visit, or expand it into a series when a recurrence rule is given
// @Tags         Visit
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body createVisitRequest true "Draft visit and recurrence rule"
// @Success      200 {object} util.APIResponse{data=object} "Visits created"
// @Failure      400 {object} util.APIResponse "Invalid input data"
// @Router       /visit [post]
func CreateVisit(c *gin.Context) {
	var req createVisitRequest
	if !bindJSONOrRespond(c, &req, "Invalid input data") {
		return
	}
	if err := req.validate(); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid visit data",
			Err: err,
		})
		return
	}
	if err := req.Recurrence.Validate(); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid recurrence rule",
			Err: err,
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var patient model.Patient
	if err := db.First(&patient, req.PatientID).Error; err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Patient not found",
			Err: err,
		})
		return
	}

	draft := req.toVisit()
	model.NormalizeVisit(&draft)

	var visits []model.Visit
	err := db.Transaction(func(tx *gorm.DB) error {
		if req.Recurrence.IsNone() {
			visits = model.ExpandSeries(draft, req.Recurrence, "")
		} else {
			series := model.Series{
				ID:      uuid.NewString(),
				Pattern: req.Recurrence.Pattern,
				Count:   req.Recurrence.Count,
			}
			if err := tx.Create(&series).Error; err != nil {
				return err
			}
			visits = model.ExpandSeries(draft, req.Recurrence, series.ID)
		}
		return tx.Create(&visits).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to create visit",
			Err: err,
		})
		return
	}

	util.LogAuditEvent(util.AuditEvent{
		EventType: util.EventVisitCreated,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   fmt.Sprintf("Created %d visit(s) for %s", len(visits), patient.FullName()),
		Details:   map[string]interface{}{"patient_id": patient.ID, "pattern": req.Recurrence.Pattern, "count": len(visits)},
	})

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Visits created",
		Data: map[string]interface{}{"total_created": len(visits), "visits": visits},
	})
}

// UpdateVisit godoc
// @Summary      Update a visit
// @Description  Update one visit (scope=single, default) or propagate field changes to every visit of its series (scope=series). Series edits never touch each member's own start/end.
// @Tags         Visit
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Visit ID"
// @Param        scope query string false "single|series"
// @Param        request body visitRequest true "Visit fields"
// @Success      200 {object} util.APIResponse "Visit updated"
// @Router       /visit/{id} [patch]
func UpdateVisit(c *gin.Context) {
	visitID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	var req visitRequest
	if !bindJSONOrRespond(c, &req, "Invalid input data") {
		return
	}
	if err := req.validate(); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid visit data",
			Err: err,
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

	scope := c.DefaultQuery("scope", "single")
	src := req.toVisit()

	if scope == "series" && visit.SeriesID != nil {
		var members []model.Visit
		if err := db.Preload("Deposits").Where("series_id = ?", *visit.SeriesID).Find(&members).Error; err != nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Failed to load series",
				Err: err,
			})
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			for i := range members {
				model.ApplySeriesEdit(&members[i], src)
				model.NormalizeVisit(&members[i])
				if err := persistNormalizedVisit(tx, &members[i]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Failed to update series",
				Err: err,
			})
			return
		}
		util.CallSuccessOK(c, util.APISuccessParams{
			Msg:  "Series updated",
			Data: map[string]interface{}{"total_updated": len(members), "visits": members},
		})
		return
	}

	visit.PatientID = src.PatientID
	visit.Start = src.Start
	visit.End = src.End
	visit.Location = src.Location
	visit.Treatment = src.Treatment
	visit.Cost = src.Cost
	visit.TotalAmount = src.TotalAmount
	visit.Status = src.Status
	model.NormalizeVisit(&visit)
	if err := persistNormalizedVisit(db, &visit); err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to update visit",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Visit updated",
		Data: visit,
	})
}

// DeleteVisit godoc
// @Summary      Delete a visit
// @Description  Delete one visit, or with scope=series the whole series it belongs to
// @Tags         Visit
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Visit ID"
// @Param        scope query string false "single|series"
// @Success      200 {object} util.APIResponse "Visit deleted"
// @Router       /visit/{id} [delete]
func DeleteVisit(c *gin.Context) {
	visitID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var visit model.Visit
	if err := db.First(&visit, visitID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Visit not found",
			Err: err,
		})
		return
	}

	scope := c.DefaultQuery("scope", "single")
	deleted := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		if scope == "series" && visit.SeriesID != nil {
			var memberIDs []uint
			if err := tx.Model(&model.Visit{}).Where("series_id = ?", *visit.SeriesID).Pluck("id", &memberIDs).Error; err != nil {
				return err
			}
			if err := tx.Where("visit_id IN ?", memberIDs).Delete(&model.Deposit{}).Error; err != nil {
				return err
			}
			if err := tx.Where("series_id = ?", *visit.SeriesID).Delete(&model.Visit{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&model.Series{}, "id = ?", *visit.SeriesID).Error; err != nil {
				return err
			}
			deleted = len(memberIDs)
			return nil
		}
		if err := tx.Where("visit_id = ?", visit.ID).Delete(&model.Deposit{}).Error; err != nil {
			return err
		}
		deleted = 1
		return tx.Delete(&visit).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to delete visit",
			Err: err,
		})
		return
	}

	util.LogAuditEvent(util.AuditEvent{
		EventType: util.EventVisitDeleted,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   fmt.Sprintf("Deleted %d visit(s) for %s", deleted, util.GetPatientName(db, visit.PatientID)),
		Details:   map[string]interface{}{"visit_id": visit.ID, "scope": scope},
	})

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Visit deleted",
		Data: map[string]interface{}{"total_deleted": deleted, "scope": scope},
	})
}

// DuplicateVisit clones a visit with a fresh identity, scheduled status and
// an empty ledger.
func DuplicateVisit(c *gin.Context) {
	visitID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var original model.Visit
	if err := db.First(&original, visitID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Visit not found",
			Err: err,
		})
		return
	}

	clone := original
	clone.Model = gorm.Model{}
	clone.Status = model.StatusScheduled
	clone.SeriesID = nil
	clone.Deposits = nil
	clone.Paid = false
	clone.PaymentMethod = ""
	clone.PaidAt = nil
	clone.AmountPaid = nil
	model.NormalizeVisit(&clone)
	if err := db.Create(&clone).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to duplicate visit",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Visit duplicated",
		Data: clone,
	})
}

type visitStatusRequest struct {
	Status string `json:"status" example:"completed"`
}

// UpdateVisitStatus changes only the visit status.
func UpdateVisitStatus(c *gin.Context) {
	visitID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	var req visitStatusRequest
	if !bindJSONOrRespond(c, &req, "Invalid input data") {
		return
	}
	if !util.Contains(model.CanonicalStatus(req.Status), model.VisitStatuses) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid visit status",
			Err: fmt.Errorf("unknown status %q", req.Status),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var visit model.Visit
	if err := db.First(&visit, visitID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Visit not found",
			Err: err,
		})
		return
	}

	visit.Status = model.CanonicalStatus(req.Status)
	if err := db.Model(&visit).Update("status", visit.Status).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to update visit status",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Visit status updated",
		Data: visit,
	})
}

type visitScheduleRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// UpdateVisitSchedule moves a single visit's own time range, e.g. after a
// drag-and-drop on the calendar. Always single-instance scoped.
func UpdateVisitSchedule(c *gin.Context) {
	visitID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	var req visitScheduleRequest
	if !bindJSONOrRespond(c, &req, "Invalid input data") {
		return
	}
	if req.Start.IsZero() || req.End.IsZero() || !req.End.After(req.Start) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid time range",
			Err: fmt.Errorf("end must be after start"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var visit model.Visit
	if err := db.First(&visit, visitID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Visit not found",
			Err: err,
		})
		return
	}

	visit.Start = req.Start
	visit.End = req.End
	if err := db.Model(&visit).Updates(map[string]interface{}{"start": req.Start, "end": req.End}).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to reschedule visit",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Visit rescheduled",
		Data: visit,
	})
}

type visitNotesRequest struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

// UpdateVisitNotes replaces the visit's SOAP notes.
func UpdateVisitNotes(c *gin.Context) {
	visitID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	var req visitNotesRequest
	if !bindJSONOrRespond(c, &req, "Invalid input data") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var visit model.Visit
	if err := db.First(&visit, visitID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Visit not found",
			Err: err,
		})
		return
	}

	updates := map[string]interface{}{
		"subjective": req.Subjective,
		"objective":  req.Objective,
		"assessment": req.Assessment,
		"plan":       req.Plan,
	}
	if err := db.Model(&visit).Updates(updates).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to update visit notes",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Visit notes updated",
		Data: visit,
	})
}
