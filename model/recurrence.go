package model

import (
	"fmt"
	"time"
)

// Recurrence patterns.
const (
	RecurrenceNone    = "none"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
	RecurrenceYearly  = "yearly"
)

// MaxSeriesCount caps how many occurrences one rule may generate.
const MaxSeriesCount = 24

// RecurrenceRule describes how a draft visit expands into a series.
// The rule is persisted on the Series record so series-wide operations
// stay well-defined after creation.
type RecurrenceRule struct {
	Pattern string `json:"pattern"`
	Count   int    `json:"count"`
}

// Validate checks pattern and count. Count is ignored when the pattern is
// none (or empty, treated as none).
func (r RecurrenceRule) Validate() error {
	switch r.Pattern {
	case "", RecurrenceNone:
		return nil
	case RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		if r.Count < 1 || r.Count > MaxSeriesCount {
			return fmt.Errorf("recurrence count must be between 1 and %d, got %d", MaxSeriesCount, r.Count)
		}
		return nil
	default:
		return fmt.Errorf("unknown recurrence pattern %q", r.Pattern)
	}
}

// IsNone reports whether the rule produces a single stand-alone visit.
func (r RecurrenceRule) IsNone() bool {
	return r.Pattern == "" || r.Pattern == RecurrenceNone
}

// shiftByPeriods moves t forward by k periods of the given pattern.
// Calendar arithmetic uses time.AddDate, so end-of-month dates roll over
// (Jan 31 + 1 month lands in early March) rather than clamping.
func shiftByPeriods(t time.Time, pattern string, k int) time.Time {
	switch pattern {
	case RecurrenceWeekly:
		return t.AddDate(0, 0, 7*k)
	case RecurrenceMonthly:
		return t.AddDate(0, k, 0)
	case RecurrenceYearly:
		return t.AddDate(k, 0, 0)
	default:
		return t
	}
}

// ExpandSeries generates the occurrence set for a draft visit. With a none
// rule it returns the draft alone, without a series id. Otherwise it returns
// Count visits whose start/end are shifted by k periods each, all sharing
// seriesID, each with a fresh identity.
func ExpandSeries(draft Visit, rule RecurrenceRule, seriesID string) []Visit {
	if rule.IsNone() {
		draft.ID = 0
		draft.SeriesID = nil
		return []Visit{draft}
	}

	visits := make([]Visit, 0, rule.Count)
	for k := 0; k < rule.Count; k++ {
		occurrence := draft
		occurrence.ID = 0
		occurrence.Start = shiftByPeriods(draft.Start, rule.Pattern, k)
		occurrence.End = shiftByPeriods(draft.End, rule.Pattern, k)
		id := seriesID
		occurrence.SeriesID = &id
		visits = append(visits, occurrence)
	}
	return visits
}

// ApplySeriesEdit copies the series-editable fields from src onto dst,
// leaving dst's identity and its own start/end untouched.
func ApplySeriesEdit(dst *Visit, src Visit) {
	dst.PatientID = src.PatientID
	dst.Location = src.Location
	dst.Treatment = src.Treatment
	dst.Cost = src.Cost
	dst.TotalAmount = src.TotalAmount
	dst.Status = src.Status
}
