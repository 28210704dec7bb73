package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func draftVisit() Visit {
	return Visit{
		PatientID: 1,
		Start:     time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Treatment: "Posture treatment",
		Cost:      60,
		Status:    StatusScheduled,
	}
}

func TestRecurrenceRuleValidate(t *testing.T) {
	assert.NoError(t, RecurrenceRule{}.Validate())
	assert.NoError(t, RecurrenceRule{Pattern: RecurrenceNone}.Validate())
	assert.NoError(t, RecurrenceRule{Pattern: RecurrenceWeekly, Count: 1}.Validate())
	assert.NoError(t, RecurrenceRule{Pattern: RecurrenceYearly, Count: MaxSeriesCount}.Validate())

	assert.Error(t, RecurrenceRule{Pattern: RecurrenceWeekly, Count: 0}.Validate())
	assert.Error(t, RecurrenceRule{Pattern: RecurrenceMonthly, Count: MaxSeriesCount + 1}.Validate())
	assert.Error(t, RecurrenceRule{Pattern: "daily", Count: 3}.Validate())
}

func TestExpandSeries_NoneReturnsSingleVisit(t *testing.T) {
	visits := ExpandSeries(draftVisit(), RecurrenceRule{}, "unused")

	assert.Len(t, visits, 1)
	assert.Nil(t, visits[0].SeriesID)
}

func TestExpandSeries_Weekly(t *testing.T) {
	visits := ExpandSeries(draftVisit(), RecurrenceRule{Pattern: RecurrenceWeekly, Count: 3}, "series-1")

	assert.Len(t, visits, 3)
	wantStarts := []time.Time{
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
	}
	for i, v := range visits {
		assert.Equal(t, wantStarts[i], v.Start)
		assert.Equal(t, time.Hour, v.End.Sub(v.Start))
		assert.NotNil(t, v.SeriesID)
		assert.Equal(t, "series-1", *v.SeriesID)
		assert.Zero(t, v.ID)
	}

	// Each occurrence owns its series id pointer.
	*visits[0].SeriesID = "mutated"
	assert.Equal(t, "series-1", *visits[1].SeriesID)
}

func TestExpandSeries_MonthlyEndOfMonthRollsOver(t *testing.T) {
	draft := draftVisit()
	draft.Start = time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC)
	draft.End = time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)

	visits := ExpandSeries(draft, RecurrenceRule{Pattern: RecurrenceMonthly, Count: 2}, "series-2")

	// Jan 31 + 1 month rolls into March (2024 has Feb 29).
	assert.Equal(t, time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), visits[1].Start)
}

func TestExpandSeries_Yearly(t *testing.T) {
	visits := ExpandSeries(draftVisit(), RecurrenceRule{Pattern: RecurrenceYearly, Count: 2}, "series-3")

	assert.Equal(t, time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), visits[1].Start)
}

func TestApplySeriesEdit_LeavesScheduleAlone(t *testing.T) {
	member := draftVisit()
	member.ID = 42
	member.Start = time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	member.End = time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)

	src := draftVisit()
	src.Treatment = "Sports rehabilitation"
	src.Cost = 70
	src.Location = "Via Roma 1"
	src.Status = StatusCompleted
	src.Start = time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)

	ApplySeriesEdit(&member, src)

	assert.Equal(t, "Sports rehabilitation", member.Treatment)
	assert.Equal(t, 70.0, member.Cost)
	assert.Equal(t, "Via Roma 1", member.Location)
	assert.Equal(t, StatusCompleted, member.Status)
	// Identity and schedule of the member are preserved.
	assert.Equal(t, uint(42), member.ID)
	assert.Equal(t, time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC), member.Start)
}
