package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lmontagna/fisioagenda/model"
	"github.com/lmontagna/fisioagenda/util"
	"github.com/stretchr/testify/assert"
)

func TestEndpointCallLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupMiddlewareTestDB(t)
	assert.NoError(t, db.AutoMigrate(&model.AuditLog{}))

	util.SetAuditLoggerDB(db)
	t.Cleanup(func() { util.SetAuditLoggerDB(nil) })

	r := gin.New()
	r.Use(DatabaseMiddleware(db))
	r.Use(EndpointCallLogger())
	r.GET("/visit", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"msg": "ok"}) })

	req, _ := http.NewRequest("GET", "/visit?period=week", nil)
	req.Header.Set("User-Agent", "test-agent")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	var entries []model.AuditLog
	assert.NoError(t, db.Where("event_type = ?", string(util.EventEndpointCall)).Find(&entries).Error)
	assert.Len(t, entries, 1)
	assert.Equal(t, "test-agent", entries[0].UserAgent)
	assert.Contains(t, entries[0].Message, "GET /visit -> 200")
	assert.Contains(t, string(entries[0].Details), `"period=week"`)
}

func TestEndpointCallLogger_NoDBConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	util.SetAuditLoggerDB(nil)

	r := gin.New()
	r.Use(EndpointCallLogger())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req, _ := http.NewRequest("GET", "/ping", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
