package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	dbContextKey     = "db"
	userIDContextKey = "user_id"
	roleIDContextKey = "role_id"
)

// CORSMiddleware configures CORS headers for incoming requests.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Authorization, session-token")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Content-Type", "application/json")

		// For preflight requests, respond with 204 and abort further processing.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// DatabaseMiddleware injects the gorm DB handle into the request context so
// handlers can fetch it via GetDB.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dbContextKey, db)
		c.Next()
	}
}

// GetDB returns the DB handle set by DatabaseMiddleware, or nil.
func GetDB(c *gin.Context) *gorm.DB {
	if v, ok := c.Get(dbContextKey); ok {
		if db, ok := v.(*gorm.DB); ok {
			return db
		}
	}
	return nil
}

// GetUserID returns the authenticated user's ID set by SessionAuth.
func GetUserID(c *gin.Context) (uint, bool) {
	if v, ok := c.Get(userIDContextKey); ok {
		if id, ok := v.(uint); ok {
			return id, true
		}
	}
	return 0, false
}

// GetRoleID returns the authenticated user's role ID set by SessionAuth.
func GetRoleID(c *gin.Context) (uint32, bool) {
	if v, ok := c.Get(roleIDContextKey); ok {
		if id, ok := v.(uint32); ok {
			return id, true
		}
	}
	return 0, false
}
