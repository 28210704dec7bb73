package endpoint

import (
	"net/http"
	"testing"
	"time"

	"github.com/lmontagna/fisioagenda/model"
	"github.com/stretchr/testify/assert"
)

func legacyDocument() map[string]interface{} {
	return map[string]interface{}{
		"patients": []map[string]interface{}{
			{
				"id":        "p-1",
				"nome":      "Giulia",
				"cognome":   "Rossi",
				"telefono":  "+39 348 1122334",
				"indirizzo": "Via Garibaldi 12, Milano",
			},
			{
				"id":         "p-2",
				"first_name": "Marco",
				"last_name":  "Bianchi",
			},
		},
		"appointments": []map[string]interface{}{
			{
				// Fully legacy: Italian fields, flat paid flag, no deposits.
				"id":          "v-1",
				"patientId":   "p-1",
				"start":       "2023-11-05T16:00",
				"end":         "2023-11-05T17:00",
				"trattamento": "Massaggio terapeutico",
				"costo":       50,
				"stato":       "completata",
				"pagata":      true,
				"paymentMethod": "contanti",
			},
			{
				// Newer shape: deposits array, canonical names.
				"id":        "v-2",
				"patientId": "p-2",
				"start":     "2024-01-08T09:00:00Z",
				"end":       "2024-01-08T10:00:00Z",
				"treatment": "Post-surgery rehabilitation",
				"cost":      100,
				"status":    "scheduled",
				"seriesId":  "old-series",
				"deposits": []map[string]interface{}{
					{"amount": 30, "method": "bonifico", "paidAt": "2024-01-08T10:00:00Z", "note": "Acconto"},
				},
			},
			{
				"id":        "v-3",
				"patientId": "p-2",
				"start":     "2024-01-15T09:00:00Z",
				"end":       "2024-01-15T10:00:00Z",
				"treatment": "Post-surgery rehabilitation",
				"cost":      100,
				"status":    "scheduled",
				"seriesId":  "old-series",
			},
		},
		"settings": map[string]interface{}{
			"tariffaStandard": 75,
			"paymentMethods":  []map[string]interface{}{{"name": "cash"}, {"name": "transfer"}},
		},
		"documents": []map[string]interface{}{
			{"id": "d-1", "patientId": "p-1", "name": "referto.pdf", "category": "report", "uploadedAt": "2023-11-06T08:00:00Z", "dataUrl": "data:application/pdf;base64,AAAA"},
		},
		"visitAttachments": []map[string]interface{}{
			{"id": "a-1", "visitId": "v-2", "name": "esercizi.pdf", "category": "exercises", "uploadedAt": "2024-01-08T11:00:00Z", "dataUrl": "data:application/pdf;base64,BBBB"},
		},
	}
}

func TestImportLegacyDocument(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)

	rr := doJSON(t, r, "POST", "/import", legacyDocument())
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	data := parseDataToMap(t, parseAPIResp(t, rr).Data)
	assert.Equal(t, 2, int(data["patients"].(float64)))
	assert.Equal(t, 3, int(data["visits"].(float64)))

	var patients []model.Patient
	assert.NoError(t, db.Order("id").Find(&patients).Error)
	assert.Len(t, patients, 2)
	assert.Equal(t, "Giulia", patients[0].FirstName)
	assert.Equal(t, "Via Garibaldi 12, Milano", patients[0].Address)

	// The fully-legacy visit got exactly one synthesized deposit.
	var legacy model.Visit
	assert.NoError(t, db.Preload("Deposits").Where("treatment = ?", "Massaggio terapeutico").First(&legacy).Error)
	assert.Equal(t, model.StatusCompleted, legacy.Status)
	assert.Len(t, legacy.Deposits, 1)
	assert.Equal(t, 50.0, legacy.Deposits[0].Amount)
	assert.Equal(t, model.MethodCash, legacy.Deposits[0].Method)
	assert.True(t, legacy.Paid)

	// Series membership is preserved under a fresh series id.
	var seriesMembers []model.Visit
	assert.NoError(t, db.Where("series_id IS NOT NULL").Order("start").Find(&seriesMembers).Error)
	assert.Len(t, seriesMembers, 2)
	assert.Equal(t, *seriesMembers[0].SeriesID, *seriesMembers[1].SeriesID)
	assert.NotEqual(t, "old-series", *seriesMembers[0].SeriesID)

	var series model.Series
	assert.NoError(t, db.First(&series, "id = ?", *seriesMembers[0].SeriesID).Error)
	assert.Equal(t, 2, series.Count)

	// Deposit methods are canonicalized on import.
	var partial model.Visit
	assert.NoError(t, db.Preload("Deposits").Where("id = ?", seriesMembers[0].ID).First(&partial).Error)
	assert.Len(t, partial.Deposits, 1)
	assert.Equal(t, model.MethodTransfer, partial.Deposits[0].Method)

	var documents, attachments int64
	db.Model(&model.PatientDocument{}).Count(&documents)
	db.Model(&model.VisitAttachment{}).Count(&attachments)
	assert.Equal(t, int64(1), documents)
	assert.Equal(t, int64(1), attachments)

	// Document settings land on the singleton row, legacy names included.
	var settings model.Settings
	assert.NoError(t, db.First(&settings).Error)
	assert.Equal(t, 75.0, settings.StandardRate)
	assert.Contains(t, string(settings.PaymentMethods), "transfer")
	var settingsCount int64
	db.Model(&model.Settings{}).Count(&settingsCount)
	assert.Equal(t, int64(1), settingsCount)
}

func TestImportLegacyDocument_CanonicalSettingsNames(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)

	doc := map[string]interface{}{
		"settings": map[string]interface{}{
			"standard_rate": 90,
			"treatments":    []map[string]interface{}{{"name": "Massaggio terapeutico", "duration_minutes": 45, "default_cost": 90}},
		},
	}
	rr := doJSON(t, r, "POST", "/import", doc)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var settings model.Settings
	assert.NoError(t, db.First(&settings).Error)
	assert.Equal(t, 90.0, settings.StandardRate)
	assert.Contains(t, string(settings.Treatments), "Massaggio terapeutico")
}

func TestImportLegacyDocument_RejectsInvalidTimestamps(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)

	doc := map[string]interface{}{
		"patients": []map[string]interface{}{{"id": "p-1", "first_name": "Giulia", "last_name": "Rossi"}},
		"appointments": []map[string]interface{}{
			{"id": "v-1", "patientId": "p-1", "start": "not-a-date", "end": "2024-01-08T10:00:00Z", "cost": 50},
		},
	}
	rr := doJSON(t, r, "POST", "/import", doc)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// The transaction rolled back: nothing was imported.
	var patientCount int64
	db.Model(&model.Patient{}).Count(&patientCount)
	assert.Equal(t, int64(0), patientCount)
}

func TestExportDocument(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)
	patient := createTestPatient(t, db, "Giulia", "Rossi")
	createTestVisit(t, db, VisitSpec{PatientID: patient.ID, Start: time.Now(), Cost: 60,
		Deposits: []model.Deposit{{Amount: 60, Method: model.MethodCash, PaidAt: time.Now()}}})

	rr := doJSON(t, r, "GET", "/export", nil)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	data := parseDataToMap(t, parseAPIResp(t, rr).Data)
	assert.Len(t, data["patients"].([]interface{}), 1)
	appointments := data["appointments"].([]interface{})
	assert.Len(t, appointments, 1)
	visit := appointments[0].(map[string]interface{})
	assert.Len(t, visit["deposits"].([]interface{}), 1)
	assert.NotNil(t, data["settings"])
}

func TestImportThenExportRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db)

	rr := doJSON(t, r, "POST", "/import", legacyDocument())
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doJSON(t, r, "GET", "/export", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	data := parseDataToMap(t, parseAPIResp(t, rr).Data)
	assert.Len(t, data["patients"].([]interface{}), 2)
	assert.Len(t, data["appointments"].([]interface{}), 3)
	assert.Len(t, data["documents"].([]interface{}), 1)
	assert.Len(t, data["visitAttachments"].([]interface{}), 1)

	// Imported settings survive the round trip.
	exported := data["settings"].(map[string]interface{})
	assert.Equal(t, 75.0, exported["standard_rate"].(float64))
}
