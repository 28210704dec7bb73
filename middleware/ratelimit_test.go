package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// Without a Redis connection the limiter must fail open and let every
// request through.
func TestRateLimiter_FailsOpenWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(RateLimitConfig{Limit: 2, Window: 0}))
	r.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		req, _ := http.NewRequest("POST", "/login", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestResetRateLimit_NoRedis(t *testing.T) {
	err := ResetRateLimit("127.0.0.1", "/login")
	assert.Error(t, err)
}
