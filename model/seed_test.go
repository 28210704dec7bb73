package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupModelTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb_model_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&Patient{}, &Visit{}, &Deposit{}, &Series{}, &Settings{}, &Role{})
	assert.NoError(t, err)

	return db
}

func TestSeedRoles(t *testing.T) {
	db := setupModelTestDB(t)

	assert.NoError(t, SeedRoles(db))
	// Idempotent: re-running must not duplicate roles.
	assert.NoError(t, SeedRoles(db))

	var count int64
	db.Model(&Role{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestSeedDemoData(t *testing.T) {
	db := setupModelTestDB(t)
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, SeedDemoData(db, now))

	var patients []Patient
	assert.NoError(t, db.Find(&patients).Error)
	assert.Len(t, patients, 3)

	var visits []Visit
	assert.NoError(t, db.Preload("Deposits").Find(&visits).Error)
	assert.Len(t, visits, 4)

	statuses := map[string]int{}
	for _, v := range visits {
		statuses[PaymentStatus(v)]++
	}
	assert.Equal(t, 1, statuses[PaymentPaid])
	assert.Equal(t, 1, statuses[PaymentPartial])
	assert.Equal(t, 2, statuses[PaymentUnpaid])

	var settingsCount int64
	db.Model(&Settings{}).Count(&settingsCount)
	assert.Equal(t, int64(1), settingsCount)
}

func TestSeriesRoundTrip(t *testing.T) {
	db := setupModelTestDB(t)

	series := Series{ID: "abc-123", Pattern: RecurrenceWeekly, Count: 3}
	assert.NoError(t, db.Create(&series).Error)

	id := series.ID
	visits := ExpandSeries(Visit{
		PatientID: 1,
		Start:     time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Cost:      60,
		Status:    StatusScheduled,
	}, RecurrenceRule{Pattern: series.Pattern, Count: series.Count}, id)
	assert.NoError(t, db.Create(&visits).Error)

	var members []Visit
	assert.NoError(t, db.Where("series_id = ?", id).Order("start").Find(&members).Error)
	assert.Len(t, members, 3)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC).Unix(), members[2].Start.Unix())
}
