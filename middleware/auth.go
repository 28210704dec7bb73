package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmontagna/fisioagenda/util"
)

// SessionAuth rejects requests that don't carry a valid, unexpired session
// token in the session-token header, and stores the resolved user and role
// IDs in the request context.
func SessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken := c.GetHeader("session-token")
		if sessionToken == "" {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Session token is missing in 'session-token' header",
				Err: fmt.Errorf("session token is empty"),
			})
			c.Abort()
			return
		}

		db := GetDB(c)
		if db == nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Database connection not available",
				Err: fmt.Errorf("db is nil"),
			})
			c.Abort()
			return
		}

		var result struct {
			UserID uint
			RoleID uint32
		}
		err := db.Table("sessions").
			Select("sessions.user_id, users.role_id").
			Joins("JOIN users ON users.id = sessions.user_id").
			Where("sessions.session_token = ? AND sessions.expires_at > ? AND sessions.deleted_at IS NULL", sessionToken, time.Now()).
			Scan(&result).Error
		if err != nil || result.UserID == 0 {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Session not found or has expired",
				Err: fmt.Errorf("invalid session token"),
			})
			c.Abort()
			return
		}

		c.Set(userIDContextKey, result.UserID)
		c.Set(roleIDContextKey, result.RoleID)
		c.Next()
	}
}
