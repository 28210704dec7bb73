package endpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmontagna/fisioagenda/middleware"
	"github.com/lmontagna/fisioagenda/model"
	"github.com/lmontagna/fisioagenda/util"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens an in-memory database, migrates the full schema and
// prepares the globals the endpoints rely on.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	t.Setenv("APPENV", "test")
	prevSecret := util.GetJWTSecret()
	util.SetJWTSecret("test-secret")
	t.Cleanup(func() { util.SetJWTSecret(prevSecret) })

	dsn := fmt.Sprintf("file:testdb_endpoint_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("connect test db: %v", err)
	}

	if err := db.AutoMigrate(
		&model.Patient{},
		&model.Visit{},
		&model.Deposit{},
		&model.Series{},
		&model.PatientDocument{},
		&model.VisitAttachment{},
		&model.Settings{},
		&model.User{},
		&model.Session{},
		&model.Role{},
		&model.AuditLog{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	if err := model.SeedRoles(db); err != nil {
		t.Fatalf("seed roles: %v", err)
	}

	util.InitPatientNameCache(64)

	return db
}

// setupRouter wires every endpoint without the auth middleware, so handler
// tests exercise the handlers directly.
func setupRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))

	r.POST("/login", Login)
	r.POST("/signup", Signup)
	r.DELETE("/logout", Logout)
	r.GET("/token/validate", ValidateToken)

	r.GET("/patient", ListPatients)
	r.POST("/patient", CreatePatient)
	r.GET("/patient/:id", GetPatient)
	r.PATCH("/patient/:id", UpdatePatient)
	r.DELETE("/patient/:id", DeletePatient)
	r.GET("/patient/:id/visit", ListPatientVisits)
	r.GET("/patient/:id/document", ListPatientDocuments)
	r.POST("/patient/:id/document", UploadPatientDocument)
	r.DELETE("/document/:id", DeletePatientDocument)

	r.GET("/visit", ListVisits)
	r.POST("/visit", CreateVisit)
	r.GET("/visit/:id", GetVisit)
	r.PATCH("/visit/:id", UpdateVisit)
	r.DELETE("/visit/:id", DeleteVisit)
	r.POST("/visit/:id/duplicate", DuplicateVisit)
	r.PATCH("/visit/:id/status", UpdateVisitStatus)
	r.PATCH("/visit/:id/schedule", UpdateVisitSchedule)
	r.PATCH("/visit/:id/notes", UpdateVisitNotes)
	r.PATCH("/visit/:id/payment", UpdateVisitPayment)
	r.POST("/visit/:id/deposit", AddDeposit)
	r.DELETE("/visit/:id/deposit/:depositId", RemoveDeposit)
	r.GET("/visit/:id/attachment", ListVisitAttachments)
	r.POST("/visit/:id/attachment", UploadVisitAttachment)
	r.DELETE("/attachment/:id", DeleteVisitAttachment)

	r.GET("/dashboard/kpi", GetDashboardKpis)
	r.GET("/settings", GetSettings)
	r.PATCH("/settings", UpdateSettings)
	r.POST("/import", ImportLegacyDocument)
	r.GET("/export", ExportDocument)

	return r
}

// doJSON performs a request with an optional JSON body and returns the recorder.
func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		buf = bytes.NewBuffer(b)
	} else {
		buf = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, path, buf)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// doRequestRaw serves an already-built request, for tests that need custom headers.
func doRequestRaw(t *testing.T, r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

type apiResp struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

// parseAPIResp decodes the standard response envelope, failing the test on error.
func parseAPIResp(t *testing.T, rr *httptest.ResponseRecorder) apiResp {
	t.Helper()
	var resp apiResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v; body: %s", err, rr.Body.String())
	}
	return resp
}

// parseDataToMap unmarshals the response data field into a generic map.
func parseDataToMap(t *testing.T, raw json.RawMessage) map[string]interface{} {
	t.Helper()
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("parse data failed: %v", err)
	}
	return data
}

func createTestPatient(t *testing.T, db *gorm.DB, firstName, lastName string) model.Patient {
	t.Helper()
	patient := model.Patient{
		FirstName:   firstName,
		LastName:    lastName,
		PhoneNumber: "+39 333 0000000",
		Address:     "Via di Prova 1, Milano",
	}
	if err := db.Create(&patient).Error; err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return patient
}

// VisitSpec groups the parameters for creating a test visit.
type VisitSpec struct {
	PatientID uint
	Start     time.Time
	Cost      float64
	Status    string
	Deposits  []model.Deposit
}

func createTestVisit(t *testing.T, db *gorm.DB, spec VisitSpec) model.Visit {
	t.Helper()
	if spec.Status == "" {
		spec.Status = model.StatusScheduled
	}
	visit := model.Visit{
		PatientID: spec.PatientID,
		Start:     spec.Start,
		End:       spec.Start.Add(time.Hour),
		Treatment: "Posture treatment",
		Location:  "Via di Prova 1, Milano",
		Cost:      spec.Cost,
		Status:    spec.Status,
		Deposits:  spec.Deposits,
	}
	model.NormalizeVisit(&visit)
	if err := db.Create(&visit).Error; err != nil {
		t.Fatalf("create visit: %v", err)
	}
	return visit
}
