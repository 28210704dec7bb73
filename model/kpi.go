package model

import "time"

// VisitKpis holds the dashboard counters derived from a visit set.
type VisitKpis struct {
	TodayCount      int     `json:"today_count"`
	Next7Count      int     `json:"next7_count"`
	UnpaidCount     int     `json:"unpaid_count"`
	UnpaidTotal     float64 `json:"unpaid_total"`
	ToCompleteCount int     `json:"to_complete_count"`
	MonthPaidCount  int     `json:"month_paid_count"`
	MonthPaidTotal  float64 `json:"month_paid_total"`
}

// SameCalendarDay reports whether a and b fall on the same calendar day.
func SameCalendarDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// ComputeVisitKpis derives the dashboard counters from an already-filtered
// visit set. Payments received this month are counted by deposit date, not
// visit date.
func ComputeVisitKpis(visits []Visit, now time.Time) VisitKpis {
	var kpis VisitKpis
	weekAhead := now.AddDate(0, 0, 7)

	for _, v := range visits {
		if SameCalendarDay(v.Start, now) {
			kpis.TodayCount++
		}
		if !v.Start.Before(now) && !v.Start.After(weekAhead) {
			kpis.Next7Count++
		}
		if PaymentStatus(v) != PaymentPaid {
			kpis.UnpaidCount++
			kpis.UnpaidTotal += OutstandingAmount(v)
		}
		if v.Start.Before(now) && v.Status == StatusScheduled {
			kpis.ToCompleteCount++
		}
		for _, d := range v.Deposits {
			if d.PaidAt.Year() == now.Year() && d.PaidAt.Month() == now.Month() {
				kpis.MonthPaidCount++
				kpis.MonthPaidTotal += d.Amount
			}
		}
	}
	return kpis
}
