package endpoint

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/lmontagna/fisioagenda/model"
	"github.com/stretchr/testify/assert"
)

func TestGetDashboardKpis(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)
	kpiCache.Flush()
	patient := createTestPatient(t, db, "Giulia", "Rossi")
	now := time.Now()

	// Completed so the to-complete counter only sees the older visit,
	// whatever time of day the test runs.
	noonToday := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, now.Location())
	createTestVisit(t, db, VisitSpec{PatientID: patient.ID, Start: noonToday, Cost: 60, Status: model.StatusCompleted})
	createTestVisit(t, db, VisitSpec{PatientID: patient.ID, Start: now.AddDate(0, 0, -2), Cost: 100,
		Deposits: []model.Deposit{{Amount: 100, Method: model.MethodCash, PaidAt: now.Add(-time.Hour)}}})

	rr := doJSON(t, r, "GET", "/dashboard/kpi", nil)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var kpis model.VisitKpis
	assert.NoError(t, json.Unmarshal(parseAPIResp(t, rr).Data, &kpis))
	assert.Equal(t, 1, kpis.TodayCount)
	assert.Equal(t, 1, kpis.UnpaidCount)
	assert.Equal(t, 60.0, kpis.UnpaidTotal)
	assert.Equal(t, 1, kpis.ToCompleteCount)
	assert.Equal(t, 1, kpis.MonthPaidCount)
	assert.Equal(t, 100.0, kpis.MonthPaidTotal)
}

func fetchKpis(t *testing.T, r http.Handler, path string) model.VisitKpis {
	t.Helper()
	rr := doJSON(t, r, "GET", path, nil)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var kpis model.VisitKpis
	assert.NoError(t, json.Unmarshal(parseAPIResp(t, rr).Data, &kpis))
	return kpis
}

func TestGetDashboardKpis_KeywordFilterGetsOwnCacheEntry(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)
	kpiCache.Flush()
	rossi := createTestPatient(t, db, "Giulia", "Rossi")
	bianchi := createTestPatient(t, db, "Marco", "Bianchi")
	yesterday := time.Now().AddDate(0, 0, -1)
	createTestVisit(t, db, VisitSpec{PatientID: rossi.ID, Start: yesterday, Cost: 60})
	createTestVisit(t, db, VisitSpec{PatientID: bianchi.ID, Start: yesterday, Cost: 80})

	first := fetchKpis(t, r, "/dashboard/kpi?keyword=rossi")
	assert.Equal(t, 60.0, first.UnpaidTotal)

	// A different keyword must not be served the previous keyword's numbers.
	second := fetchKpis(t, r, "/dashboard/kpi?keyword=bianchi")
	assert.Equal(t, 80.0, second.UnpaidTotal)
}

func TestGetDashboardKpis_PaidFilterApplies(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)
	kpiCache.Flush()
	patient := createTestPatient(t, db, "Giulia", "Rossi")
	yesterday := time.Now().AddDate(0, 0, -1)
	createTestVisit(t, db, VisitSpec{PatientID: patient.ID, Start: yesterday, Cost: 60})
	createTestVisit(t, db, VisitSpec{PatientID: patient.ID, Start: yesterday, Cost: 100,
		Deposits: []model.Deposit{{Amount: 100, Method: model.MethodCash, PaidAt: time.Now()}}})

	unpaidOnly := fetchKpis(t, r, "/dashboard/kpi?paid=unpaid")
	assert.Equal(t, 1, unpaidOnly.UnpaidCount)
	assert.Equal(t, 60.0, unpaidOnly.UnpaidTotal)
	assert.Equal(t, 0, unpaidOnly.MonthPaidCount)

	paidOnly := fetchKpis(t, r, "/dashboard/kpi?paid=paid")
	assert.Equal(t, 0, paidOnly.UnpaidCount)
	assert.Equal(t, 1, paidOnly.MonthPaidCount)
	assert.Equal(t, 100.0, paidOnly.MonthPaidTotal)
}

func TestGetDashboardKpis_ServesCachedResult(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)
	kpiCache.Flush()
	patient := createTestPatient(t, db, "Giulia", "Rossi")
	createTestVisit(t, db, VisitSpec{PatientID: patient.ID, Start: time.Now().AddDate(0, 0, -1), Cost: 60})

	rr := doJSON(t, r, "GET", "/dashboard/kpi", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var first model.VisitKpis
	assert.NoError(t, json.Unmarshal(parseAPIResp(t, rr).Data, &first))
	assert.Equal(t, 1, first.UnpaidCount)

	// A mutation inside the TTL window is not reflected yet.
	createTestVisit(t, db, VisitSpec{PatientID: patient.ID, Start: time.Now().AddDate(0, 0, -1), Cost: 60})

	rr = doJSON(t, r, "GET", "/dashboard/kpi", nil)
	var second model.VisitKpis
	assert.NoError(t, json.Unmarshal(parseAPIResp(t, rr).Data, &second))
	assert.Equal(t, first.UnpaidCount, second.UnpaidCount)
}
