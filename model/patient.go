package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Patient is a person receiving home visits. Deleting a patient does not
// cascade to visits unless the caller asks for it explicitly.
type Patient struct {
	gorm.Model
	FirstName      string         `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName       string         `json:"last_name" gorm:"type:varchar(100);not null"`
	PhoneNumber    string         `json:"phone_number" gorm:"type:varchar(32)"`
	Email          string         `json:"email" gorm:"type:varchar(191)"`
	Address        string         `json:"address" gorm:"type:varchar(255)"`
	ClinicalNotes  string         `json:"clinical_notes" gorm:"type:text"`
	LogisticNotes  string         `json:"logistic_notes" gorm:"type:text"`
	Tags           datatypes.JSON `json:"tags" gorm:"type:json"`
	ClinicalRecord datatypes.JSON `json:"clinical_record" gorm:"type:json"`
}

// FullName joins first and last name for display and search.
func (p Patient) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// ClinicalRecordFields is the structured clinical-notes payload stored in
// Patient.ClinicalRecord.
type ClinicalRecordFields struct {
	Problem   string `json:"problem"`
	Goals     string `json:"goals"`
	Logistics string `json:"logistics,omitempty"`
	Exercises string `json:"exercises"`
	Notes     string `json:"notes"`
	UpdatedAt string `json:"updated_at,omitempty"`
}
