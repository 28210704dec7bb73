package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func mustJSON(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return datatypes.JSON(b)
}

// DefaultSettings returns the settings row created on first read.
func DefaultSettings() Settings {
	return Settings{
		StandardRate: 60,
		Treatments: mustJSON([]TreatmentOption{
			{Name: "Posture treatment", DurationMinutes: 60, DefaultCost: 60},
			{Name: "Post-surgery rehabilitation", DurationMinutes: 60, DefaultCost: 75},
			{Name: "Therapeutic massage", DurationMinutes: 45, DefaultCost: 50},
			{Name: "Sports rehabilitation", DurationMinutes: 60, DefaultCost: 70},
		}),
		PaymentMethods: mustJSON([]PaymentMethodOption{
			{Name: MethodCash},
			{Name: MethodTransfer},
			{Name: MethodCard},
		}),
	}
}

// SeedDemoData populates an empty database with a small demo practice:
// three patients and a handful of visits covering paid, partially paid and
// unpaid states. Visits pass through NormalizeVisit like any other write.
func SeedDemoData(db *gorm.DB, now time.Time) error {
	patients := []Patient{
		{
			FirstName:     "Giulia",
			LastName:      "Rossi",
			PhoneNumber:   "+39 348 1122334",
			Email:         "giulia.rossi@email.it",
			Address:       "Via Garibaldi 12, Milano",
			ClinicalNotes: "Chronic low back pain, improving after the previous cycle.",
			LogisticNotes: "Stair B, side-street parking.",
			Tags:          mustJSON([]string{"posture", "home"}),
			ClinicalRecord: mustJSON(ClinicalRecordFields{
				Problem:   "Low back pain from sedentary posture.",
				Goals:     "Pain reduction and increased mobility.",
				Exercises: "Posterior chain stretching, core stability.",
				Notes:     "Weekly check-in with steady progress.",
			}),
		},
		{
			FirstName:     "Marco",
			LastName:      "Bianchi",
			PhoneNumber:   "+39 333 5566778",
			Email:         "marco.bianchi@email.it",
			Address:       "Corso Europa 45, Milano",
			ClinicalNotes: "Right shoulder recovery after surgery.",
			LogisticNotes: "Second floor, no elevator.",
			Tags:          mustJSON([]string{"rehabilitation"}),
		},
		{
			FirstName:     "Elena",
			LastName:      "Sala",
			PhoneNumber:   "+39 320 9988776",
			Email:         "elena.sala@email.it",
			Address:       "Via dei Navigli 8, Milano",
			ClinicalNotes: "Neck pain, weekly sessions recommended.",
			Tags:          mustJSON([]string{"cervical"}),
		},
	}
	if err := db.Create(&patients).Error; err != nil {
		return fmt.Errorf("failed to seed patients: %w", err)
	}

	at := func(daysFromNow, hour int) time.Time {
		d := now.AddDate(0, 0, daysFromNow)
		return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, now.Location())
	}

	visits := []Visit{
		{
			PatientID: patients[0].ID,
			Start:     at(-3, 9),
			End:       at(-3, 10),
			Location:  patients[0].Address,
			Treatment: "Posture treatment",
			Cost:      75,
			Status:    StatusCompleted,
			Deposits:  []Deposit{{Amount: 75, Method: MethodCard, PaidAt: at(-3, 10)}},
		},
		{
			PatientID: patients[0].ID,
			Start:     at(2, 9),
			End:       at(2, 10),
			Location:  patients[0].Address,
			Treatment: "Posture treatment",
			Cost:      75,
			Status:    StatusScheduled,
		},
		{
			PatientID: patients[1].ID,
			Start:     at(-12, 15),
			End:       at(-12, 16),
			Location:  patients[1].Address,
			Treatment: "Post-surgery rehabilitation",
			Cost:      80,
			Status:    StatusCompleted,
			Deposits:  []Deposit{{Amount: 30, Method: MethodCash, PaidAt: at(-12, 16), Note: "Initial deposit"}},
		},
		{
			PatientID: patients[2].ID,
			Start:     at(1, 11),
			End:       at(1, 12),
			Location:  patients[2].Address,
			Treatment: "Therapeutic massage",
			Cost:      65,
			Status:    StatusScheduled,
		},
	}
	for i := range visits {
		NormalizeVisit(&visits[i])
	}
	if err := db.Create(&visits).Error; err != nil {
		return fmt.Errorf("failed to seed visits: %w", err)
	}

	settings := DefaultSettings()
	if err := db.Create(&settings).Error; err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	return nil
}
