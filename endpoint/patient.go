package endpoint

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lmontagna/fisioagenda/model"
	"github.com/lmontagna/fisioagenda/util"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type patientRequest struct {
	FirstName      string         `json:"first_name" example:"Giulia"`
	LastName       string         `json:"last_name" example:"Rossi"`
	PhoneNumber    string         `json:"phone_number" example:"+39 348 1122334"`
	Email          string         `json:"email" example:"giulia.rossi@email.it"`
	Address        string         `json:"address" example:"Via Garibaldi 12, Milano"`
	ClinicalNotes  string         `json:"clinical_notes"`
	LogisticNotes  string         `json:"logistic_notes"`
	Tags           datatypes.JSON `json:"tags"`
	ClinicalRecord datatypes.JSON `json:"clinical_record"`
}

func fetchPatients(db *gorm.DB, q listQuery, sortBy, sortDir string) ([]model.Patient, int64, error) {
	var patients []model.Patient
	var totalPatients int64
	query := db.Model(&model.Patient{})

	// Only allow asc/desc for the order direction
	orderDir := "ASC"
	if strings.ToLower(sortDir) == "desc" {
		orderDir = "DESC"
	}
	switch sortBy {
	case "last_name":
		query = query.Order(fmt.Sprintf("patients.last_name %s, patients.first_name %s", orderDir, orderDir))
	default:
		query = query.Order("patients.created_at DESC")
	}

	if q.Keyword != "" {
		kw := "%" + q.Keyword + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR address LIKE ? OR phone_number LIKE ?", kw, kw, kw, kw)
	}
	if err := query.Count(&totalPatients).Error; err != nil {
		return nil, 0, err
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}

	if err := query.Find(&patients).Error; err != nil {
		return nil, 0, err
	}
	return patients, totalPatients, nil
}

// ListPatients godoc
// @Summary      List all patients
// @Description  Get a paginated list of patients with optional keyword filtering
// @Tags         Patient
// @Produce      json
// @Security     SessionToken
// @Param        limit query int false "Limit number of results"
// @Param        offset query int false "Offset for pagination"
// @Param        keyword query string false "Search keyword for patient name, address, or phone"
// @Param        sort query string false "Optional sort field: last_name"
// @Param        sort_dir query string false "Optional sort direction: asc|desc"
// @Success      200 {object} util.APIResponse{data=object} "Patients retrieved"
// @Router       /patient [get]
func ListPatients(c *gin.Context) {
	q := parseListQuery(c)

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patients, totalPatients, err := fetchPatients(db, q, c.Query("sort"), c.Query("sort_dir"))
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve patients",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patients retrieved",
		Data: map[string]interface{}{"total": totalPatients, "total_fetched": len(patients), "patients": patients},
	})
}

// GetPatient returns a single patient by ID.
func GetPatient(c *gin.Context) {
	patientID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var patient model.Patient
	if err := db.First(&patient, patientID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Patient not found",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patient retrieved",
		Data: patient,
	})
}

// CreatePatient godoc
// @Summary      Create a patient
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body patientRequest true "Patient fields"
// @Success      200 {object} util.APIResponse "Patient created"
// @Router       /patient [post]
func CreatePatient(c *gin.Context) {
	var req patientRequest
	if !bindJSONOrRespond(c, &req, "Invalid input data") {
		return
	}

	req.FirstName = util.NormalizeName(req.FirstName)
	req.LastName = util.NormalizeName(req.LastName)
	if req.FirstName == "" && req.LastName == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Patient name is required",
			Err: fmt.Errorf("first_name and last_name are both empty"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patient := model.Patient{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		PhoneNumber:    req.PhoneNumber,
		Email:          req.Email,
		Address:        req.Address,
		ClinicalNotes:  req.ClinicalNotes,
		LogisticNotes:  req.LogisticNotes,
		Tags:           req.Tags,
		ClinicalRecord: req.ClinicalRecord,
	}
	if err := db.Create(&patient).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to create patient",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patient created",
		Data: patient,
	})
}

// UpdatePatient applies a partial update to a patient record.
func UpdatePatient(c *gin.Context) {
	patientID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}

	var req patientRequest
	if !bindJSONOrRespond(c, &req, "Invalid input data") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var existingPatient model.Patient
	if err := db.First(&existingPatient, patientID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Patient not found",
			Err: err,
		})
		return
	}

	updates := model.Patient{
		FirstName:      util.NormalizeName(req.FirstName),
		LastName:       util.NormalizeName(req.LastName),
		PhoneNumber:    req.PhoneNumber,
		Email:          req.Email,
		Address:        req.Address,
		ClinicalNotes:  req.ClinicalNotes,
		LogisticNotes:  req.LogisticNotes,
		Tags:           req.Tags,
		ClinicalRecord: req.ClinicalRecord,
	}
	if err := db.Model(&existingPatient).Updates(updates).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to update patient",
			Err: err,
		})
		return
	}
	util.PatientNameCacheInvalidate(patientID)

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patient updated",
		Data: existingPatient,
	})
}

// DeletePatient godoc
// @Summary      Delete a patient
// @Description  Delete a patient; pass cascade=true to also delete the patient's visits and documents
// @Tags         Patient
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Patient ID"
// @Param        cascade query bool false "Also delete the patient's visits and documents"
// @Success      200 {object} util.APIResponse "Patient deleted"
// @Router       /patient/{id} [delete]
func DeletePatient(c *gin.Context) {
	patientID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var existingPatient model.Patient
	if err := db.First(&existingPatient, patientID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Patient not found",
			Err: err,
		})
		return
	}

	cascade := c.Query("cascade") == "true"
	err := db.Transaction(func(tx *gorm.DB) error {
		if cascade {
			var visitIDs []uint
			if err := tx.Model(&model.Visit{}).Where("patient_id = ?", patientID).Pluck("id", &visitIDs).Error; err != nil {
				return err
			}
			if len(visitIDs) > 0 {
				if err := tx.Where("visit_id IN ?", visitIDs).Delete(&model.Deposit{}).Error; err != nil {
					return err
				}
				if err := tx.Where("visit_id IN ?", visitIDs).Delete(&model.VisitAttachment{}).Error; err != nil {
					return err
				}
				if err := tx.Where("patient_id = ?", patientID).Delete(&model.Visit{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("patient_id = ?", patientID).Delete(&model.PatientDocument{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&existingPatient).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to delete patient",
			Err: err,
		})
		return
	}
	util.PatientNameCacheInvalidate(patientID)

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patient deleted",
		Data: map[string]interface{}{"cascade": cascade},
	})
}

// ListPatientVisits returns the patient's visits, newest first, with the
// derived ledger values attached.
func ListPatientVisits(c *gin.Context) {
	patientID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var patient model.Patient
	if err := db.First(&patient, patientID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Patient not found",
			Err: err,
		})
		return
	}

	var visits []model.Visit
	if err := db.Preload("Deposits").Where("patient_id = ?", patientID).Order("start DESC").Find(&visits).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve visits",
			Err: err,
		})
		return
	}

	responses := make([]model.ListVisitResponse, 0, len(visits))
	for _, v := range visits {
		responses = append(responses, model.NewListVisitResponse(v, patient.FullName()))
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Visits retrieved",
		Data: map[string]interface{}{"total_fetched": len(responses), "visits": responses},
	})
}
