package endpoint

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmontagna/fisioagenda/model"
	"github.com/lmontagna/fisioagenda/util"
)

type documentRequest struct {
	Name     string `json:"name" example:"Exercise_plan.pdf"`
	Category string `json:"category" example:"report"`
	DataURL  string `json:"data_url,omitempty"`
}

func (r documentRequest) validate(categories []string) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if r.Category != "" && !util.Contains(r.Category, categories) {
		return fmt.Errorf("unknown category %q", r.Category)
	}
	// Attachments are inline base64 payloads, never external references.
	if r.DataURL != "" && !strings.HasPrefix(r.DataURL, "data:") {
		return fmt.Errorf("data_url must be a data: URI")
	}
	return nil
}

// ListPatientDocuments returns the documents attached to a patient.
func ListPatientDocuments(c *gin.Context) {
	patientID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var documents []model.PatientDocument
	if err := db.Where("patient_id = ?", patientID).Order("uploaded_at DESC").Find(&documents).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve documents",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Documents retrieved",
		Data: map[string]interface{}{"total_fetched": len(documents), "documents": documents},
	})
}

// UploadPatientDocument stores a document on a patient record.
func UploadPatientDocument(c *gin.Context) {
	patientID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	var req documentRequest
	if !bindJSONOrRespond(c, &req, "Invalid input data") {
		return
	}
	if err := req.validate(model.PatientDocumentCategories); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid document",
			Err: err,
		})
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

	category := req.Category
	if category == "" {
		category = "other"
	}
	document := model.PatientDocument{
		PatientID:  patientID,
		Name:       req.Name,
		Category:   category,
		UploadedAt: time.Now(),
		DataURL:    req.DataURL,
	}
	if err := db.Create(&document).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to store document",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Document stored",
		Data: document,
	})
}

// DeletePatientDocument removes a stored document.
func DeletePatientDocument(c *gin.Context) {
	documentID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var document model.PatientDocument
	if err := db.First(&document, documentID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Document not found",
			Err: err,
		})
		return
	}

	if err := db.Delete(&document).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to delete document",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Document deleted",
		Data: nil,
	})
}

// ListVisitAttachments returns the files attached to a visit.
func ListVisitAttachments(c *gin.Context) {
	visitID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var attachments []model.VisitAttachment
	if err := db.Where("visit_id = ?", visitID).Order("uploaded_at DESC").Find(&attachments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve attachments",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Attachments retrieved",
		Data: map[string]interface{}{"total_fetched": len(attachments), "attachments": attachments},
	})
}

// UploadVisitAttachment stores a file on a visit.
func UploadVisitAttachment(c *gin.Context) {
	visitID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	var req documentRequest
	if !bindJSONOrRespond(c, &req, "Invalid input data") {
		return
	}
	if err := req.validate(model.VisitAttachmentCategories); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid attachment",
			Err: err,
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

	category := req.Category
	if category == "" {
		category = "other"
	}
	attachment := model.VisitAttachment{
		VisitID:    visitID,
		Name:       req.Name,
		Category:   category,
		UploadedAt: time.Now(),
		DataURL:    req.DataURL,
	}
	if err := db.Create(&attachment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to store attachment",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Attachment stored",
		Data: attachment,
	})
}

// DeleteVisitAttachment removes a stored attachment.
func DeleteVisitAttachment(c *gin.Context) {
	attachmentID, ok := paramIDOrRespond(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var attachment model.VisitAttachment
	if err := db.First(&attachment, attachmentID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Attachment not found",
			Err: err,
		})
		return
	}

	if err := db.Delete(&attachment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to delete attachment",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Attachment deleted",
		Data: nil,
	})
}
