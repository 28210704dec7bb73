package model

import (
	"time"

	"gorm.io/gorm"
)

// Document categories.
var (
	PatientDocumentCategories = []string{"report", "prescription", "other"}
	VisitAttachmentCategories = []string{"report", "photo", "exercises", "other"}
)

// PatientDocument is a file attached to a patient record. The payload is an
// inline base64 data URL; there is no external blob storage.
type PatientDocument struct {
	gorm.Model
	PatientID  uint      `json:"patient_id" gorm:"not null;index"`
	Name       string    `json:"name" gorm:"type:varchar(255);not null"`
	Category   string    `json:"category" gorm:"type:varchar(32)"`
	UploadedAt time.Time `json:"uploaded_at"`
	DataURL    string    `json:"data_url,omitempty" gorm:"type:longtext"`
}

// VisitAttachment is a file attached to a single visit.
type VisitAttachment struct {
	gorm.Model
	VisitID    uint      `json:"visit_id" gorm:"not null;index"`
	Name       string    `json:"name" gorm:"type:varchar(255);not null"`
	Category   string    `json:"category" gorm:"type:varchar(32)"`
	UploadedAt time.Time `json:"uploaded_at"`
	DataURL    string    `json:"data_url,omitempty" gorm:"type:longtext"`
}
