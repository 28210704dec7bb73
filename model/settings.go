package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Settings is the practice configuration. Exactly one row exists; reads
// create it with defaults when missing.
type Settings struct {
	gorm.Model
	StandardRate   float64        `json:"standard_rate"`
	Treatments     datatypes.JSON `json:"treatments" gorm:"type:json"`
	PaymentMethods datatypes.JSON `json:"payment_methods" gorm:"type:json"`
}

// TreatmentOption is one entry of the treatment catalog stored in Settings.
type TreatmentOption struct {
	Name            string  `json:"name"`
	DurationMinutes int     `json:"duration_minutes"`
	DefaultCost     float64 `json:"default_cost"`
}

// PaymentMethodOption is one entry of the payment method catalog.
type PaymentMethodOption struct {
	Name string `json:"name"`
}
