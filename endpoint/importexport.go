package endpoint

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lmontagna/fisioagenda/model"
	"github.com/lmontagna/fisioagenda/util"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// The import document mirrors the single JSON blob the legacy record
// keeper persisted in browser storage. Field pairs (treatment/trattamento,
// paid/pagata, ...) accept both the canonical names and the legacy Italian
// ones found in old exports.

type importPatient struct {
	ID            string         `json:"id"`
	FirstName     string         `json:"first_name"`
	Nome          string         `json:"nome"`
	LastName      string         `json:"last_name"`
	Cognome       string         `json:"cognome"`
	PhoneNumber   string         `json:"phone_number"`
	Telefono      string         `json:"telefono"`
	Email         string         `json:"email"`
	Address       string         `json:"address"`
	Indirizzo     string         `json:"indirizzo"`
	ClinicalNotes string         `json:"clinical_notes"`
	NoteCliniche  string         `json:"noteCliniche"`
	LogisticNotes string         `json:"logistic_notes"`
	NoteLog       string         `json:"noteLogistiche"`
	Tags          datatypes.JSON `json:"tags"`
	Clinical      datatypes.JSON `json:"clinicalNotes"`
}

type importPayment struct {
	Paid       bool     `json:"paid"`
	Method     string   `json:"method"`
	PaidAt     string   `json:"paidAt"`
	AmountPaid *float64 `json:"amountPaid"`
}

type importDeposit struct {
	Amount float64 `json:"amount"`
	Method string  `json:"method"`
	PaidAt string  `json:"paidAt"`
	Note   string  `json:"note"`
}

type importVisit struct {
	ID          string          `json:"id"`
	PatientID   string          `json:"patientId"`
	Start       string          `json:"start"`
	End         string          `json:"end"`
	Location    string          `json:"location"`
	Luogo       string          `json:"luogo"`
	Treatment   string          `json:"treatment"`
	Trattamento string          `json:"trattamento"`
	Cost        float64         `json:"cost"`
	Costo       float64         `json:"costo"`
	TotalAmount *float64        `json:"totalAmount"`
	Status      string          `json:"status"`
	Stato       string          `json:"stato"`
	Paid        *bool           `json:"paid"`
	Pagata      *bool           `json:"pagata"`
	Method      string          `json:"paymentMethod"`
	MetodoPag   string          `json:"metodoPagamento"`
	PaidAt      string          `json:"paidAt"`
	Payment     *importPayment  `json:"payment"`
	Deposits    []importDeposit `json:"deposits"`
	SeriesID    string          `json:"seriesId"`
}

type importFile struct {
	ID         string `json:"id"`
	PatientID  string `json:"patientId"`
	VisitID    string `json:"visitId"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	UploadedAt string `json:"uploadedAt"`
	DataURL    string `json:"dataUrl"`
}

type importSettings struct {
	StandardRate    *float64       `json:"standard_rate"`
	StandardRateAlt *float64       `json:"standardRate"`
	TariffaStandard *float64       `json:"tariffaStandard"`
	Treatments      datatypes.JSON `json:"treatments"`
	PaymentMethods  datatypes.JSON `json:"payment_methods"`
	PaymentMethAlt  datatypes.JSON `json:"paymentMethods"`
}

type importDocumentRequest struct {
	Patients         []importPatient `json:"patients"`
	Appointments     []importVisit   `json:"appointments"`
	Settings         *importSettings `json:"settings"`
	Documents        []importFile    `json:"documents"`
	VisitAttachments []importFile    `json:"visitAttachments"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseImportTime accepts RFC3339 timestamps and the zone-less
// datetime-local format older exports used.
func parseImportTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04", raw)
}

func (iv importVisit) toVisit(patientID uint) (model.Visit, error) {
	start, err := parseImportTime(iv.Start)
	if err != nil {
		return model.Visit{}, fmt.Errorf("visit %s: invalid start: %w", iv.ID, err)
	}
	end, err := parseImportTime(iv.End)
	if err != nil {
		return model.Visit{}, fmt.Errorf("visit %s: invalid end: %w", iv.ID, err)
	}

	visit := model.Visit{
		PatientID:   patientID,
		Start:       start,
		End:         end,
		Location:    firstNonEmpty(iv.Location, iv.Luogo),
		Treatment:   firstNonEmpty(iv.Treatment, iv.Trattamento),
		Cost:        iv.Cost,
		TotalAmount: iv.TotalAmount,
		Status:      model.CanonicalStatus(firstNonEmpty(iv.Status, iv.Stato)),
	}
	if visit.Cost == 0 {
		visit.Cost = iv.Costo
	}

	// Legacy payment evidence feeds the cache columns; NormalizeVisit turns
	// them into a synthesized deposit when the ledger is empty.
	if iv.Paid != nil {
		visit.Paid = *iv.Paid
	}
	if iv.Pagata != nil && *iv.Pagata {
		visit.Paid = true
	}
	visit.PaymentMethod = firstNonEmpty(iv.Method, iv.MetodoPag)
	if iv.PaidAt != "" {
		if t, err := parseImportTime(iv.PaidAt); err == nil {
			visit.PaidAt = &t
		}
	}
	if iv.Payment != nil {
		if iv.Payment.Paid {
			visit.Paid = true
		}
		visit.PaymentMethod = firstNonEmpty(iv.Payment.Method, visit.PaymentMethod)
		visit.AmountPaid = iv.Payment.AmountPaid
		if iv.Payment.PaidAt != "" {
			if t, err := parseImportTime(iv.Payment.PaidAt); err == nil {
				visit.PaidAt = &t
			}
		}
	}

	for _, d := range iv.Deposits {
		paidAt, err := parseImportTime(d.PaidAt)
		if err != nil {
			paidAt = end
		}
		visit.Deposits = append(visit.Deposits, model.Deposit{
			Amount: d.Amount,
			Method: model.CanonicalPaymentMethod(d.Method),
			PaidAt: paidAt,
			Note:   d.Note,
		})
	}

	model.NormalizeVisit(&visit)
	return visit, nil
}

// ImportLegacyDocument godoc
// @Summary      Import a legacy document export
// @Description  Import the whole-document JSON of the legacy record keeper. Every appointment passes through ledger normalization; an unparseable payload is rejected, never silently replaced.
// @Tags         Import
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body importDocumentRequest true "Legacy document"
// @Success      200 {object} util.APIResponse{data=object} "Document imported"
// @Failure      400 {object} util.APIResponse "Invalid document"
// @Router       /import [post]
func ImportLegacyDocument(c *gin.Context) {
	var doc importDocumentRequest
	if !bindJSONOrRespond(c, &doc, "Invalid legacy document") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var importedPatients, importedVisits int
	err := db.Transaction(func(tx *gorm.DB) error {
		patientIDs := map[string]uint{}
		for _, ip := range doc.Patients {
			patient := model.Patient{
				FirstName:      util.NormalizeName(firstNonEmpty(ip.FirstName, ip.Nome)),
				LastName:       util.NormalizeName(firstNonEmpty(ip.LastName, ip.Cognome)),
				PhoneNumber:    firstNonEmpty(ip.PhoneNumber, ip.Telefono),
				Email:          ip.Email,
				Address:        firstNonEmpty(ip.Address, ip.Indirizzo),
				ClinicalNotes:  firstNonEmpty(ip.ClinicalNotes, ip.NoteCliniche),
				LogisticNotes:  firstNonEmpty(ip.LogisticNotes, ip.NoteLog),
				Tags:           ip.Tags,
				ClinicalRecord: ip.Clinical,
			}
			if err := tx.Create(&patient).Error; err != nil {
				return err
			}
			patientIDs[ip.ID] = patient.ID
			importedPatients++
		}

		// Legacy series carried no stored rule, only the shared key. One
		// Series row per distinct key keeps series edits working.
		seriesIDs := map[string]string{}
		visitIDs := map[string]uint{}
		for _, iv := range doc.Appointments {
			patientID, found := patientIDs[iv.PatientID]
			if !found {
				// Orphaned visits are kept; the legacy app tolerated
				// missing patients and rendered a placeholder.
				patientID = 0
			}
			visit, err := iv.toVisit(patientID)
			if err != nil {
				return err
			}
			if iv.SeriesID != "" {
				newID, seen := seriesIDs[iv.SeriesID]
				if !seen {
					newID = uuid.NewString()
					seriesIDs[iv.SeriesID] = newID
					if err := tx.Create(&model.Series{ID: newID}).Error; err != nil {
						return err
					}
				}
				visit.SeriesID = &newID
			}
			if err := tx.Create(&visit).Error; err != nil {
				return err
			}
			visitIDs[iv.ID] = visit.ID
			importedVisits++
		}
		for oldID, members := range countSeriesMembers(doc.Appointments) {
			if newID, seen := seriesIDs[oldID]; seen {
				if err := tx.Model(&model.Series{}).Where("id = ?", newID).Update("count", members).Error; err != nil {
					return err
				}
			}
		}

		for _, f := range doc.Documents {
			patientID, found := patientIDs[f.PatientID]
			if !found {
				continue
			}
			uploadedAt, err := parseImportTime(f.UploadedAt)
			if err != nil {
				uploadedAt = time.Now()
			}
			category := f.Category
			if !util.Contains(category, model.PatientDocumentCategories) {
				category = "other"
			}
			document := model.PatientDocument{
				PatientID:  patientID,
				Name:       f.Name,
				Category:   category,
				UploadedAt: uploadedAt,
				DataURL:    f.DataURL,
			}
			if err := tx.Create(&document).Error; err != nil {
				return err
			}
		}
		if doc.Settings != nil {
			if err := upsertImportedSettings(tx, doc.Settings); err != nil {
				return err
			}
		}

		for _, f := range doc.VisitAttachments {
			visitID, found := visitIDs[f.VisitID]
			if !found {
				continue
			}
			uploadedAt, err := parseImportTime(f.UploadedAt)
			if err != nil {
				uploadedAt = time.Now()
			}
			category := f.Category
			if !util.Contains(category, model.VisitAttachmentCategories) {
				category = "other"
			}
			attachment := model.VisitAttachment{
				VisitID:    visitID,
				Name:       f.Name,
				Category:   category,
				UploadedAt: uploadedAt,
				DataURL:    f.DataURL,
			}
			if err := tx.Create(&attachment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Failed to import legacy document",
			Err: err,
		})
		return
	}

	util.LogAuditEvent(util.AuditEvent{
		EventType: util.EventLegacyImport,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   fmt.Sprintf("Imported %d patients and %d visits", importedPatients, importedVisits),
		Details:   map[string]interface{}{"patients": importedPatients, "visits": importedVisits},
	})

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Document imported",
		Data: map[string]interface{}{"patients": importedPatients, "visits": importedVisits},
	})
}

// upsertImportedSettings applies the document's settings onto the singleton
// settings row, accepting both canonical and legacy field names.
func upsertImportedSettings(tx *gorm.DB, is *importSettings) error {
	settings, err := loadOrCreateSettings(tx)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{}
	rate := is.StandardRate
	if rate == nil {
		rate = is.StandardRateAlt
	}
	if rate == nil {
		rate = is.TariffaStandard
	}
	if rate != nil {
		updates["standard_rate"] = *rate
	}
	if len(is.Treatments) > 0 {
		updates["treatments"] = is.Treatments
	}
	methods := is.PaymentMethods
	if len(methods) == 0 {
		methods = is.PaymentMethAlt
	}
	if len(methods) > 0 {
		updates["payment_methods"] = methods
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&settings).Updates(updates).Error
}

func countSeriesMembers(visits []importVisit) map[string]int {
	counts := map[string]int{}
	for _, v := range visits {
		if v.SeriesID != "" {
			counts[v.SeriesID]++
		}
	}
	return counts
}

// ExportDocument returns the whole database in the document shape the
// original record keeper used, with canonical field names.
func ExportDocument(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var patients []model.Patient
	if err := db.Find(&patients).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to export patients",
			Err: err,
		})
		return
	}
	var visits []model.Visit
	if err := db.Preload("Deposits").Find(&visits).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to export visits",
			Err: err,
		})
		return
	}
	var documents []model.PatientDocument
	if err := db.Find(&documents).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to export documents",
			Err: err,
		})
		return
	}
	var attachments []model.VisitAttachment
	if err := db.Find(&attachments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to export attachments",
			Err: err,
		})
		return
	}
	settings, err := loadOrCreateSettings(db)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to export settings",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Document exported",
		Data: map[string]interface{}{
			"patients":         patients,
			"appointments":     visits,
			"settings":         settings,
			"documents":        documents,
			"visitAttachments": attachments,
		},
	})
}
