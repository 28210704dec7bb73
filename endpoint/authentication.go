package endpoint

import (
	"context"
	"crypto/hmac"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/lmontagna/fisioagenda/config"
	"github.com/lmontagna/fisioagenda/model"
	"github.com/lmontagna/fisioagenda/util"
	"gorm.io/gorm"
)

const (
	maxFailedLoginAttempts = 5
	accountLockDuration    = 15 * time.Minute
	sessionDuration        = time.Hour
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

type LoginResponse struct {
	Token  string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Role   string `json:"role" example:"Admin"`
	UserID uint   `json:"user_id" example:"1"`
}

// Login godoc
// @Summary      User login
// @Description  Authenticate user with email and password
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} util.APIResponse{data=LoginResponse} "Login successful"
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /login [post]
func Login(c *gin.Context) {
	var req LoginRequest

	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	ci := clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}
	ctx := loginContext{C: c, DB: db, Email: req.Email, CI: ci}

	user, ok := loadUserForLogin(ctx)
	if !ok {
		return
	}

	if !ensureAccountNotLocked(ctx, &user) {
		return
	}

	if !verifyPasswordOrRespond(ctx, &user, req.Password) {
		return
	}

	finalizeLogin(ctx, &user)
}

// helper types and functions to simplify the Login flow
type clientInfo struct {
	IP    string
	Agent string
}

type loginContext struct {
	C     *gin.Context
	DB    *gorm.DB
	Email string
	CI    clientInfo
}

func loadUserForLogin(ctx loginContext) (model.User, bool) {
	var user model.User
	err := ctx.DB.Where("email = ?", ctx.Email).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "user not found")
		util.CallUserError(ctx.C, util.APIErrorParams{Msg: "Invalid email or password", Err: fmt.Errorf("user not found")})
		return model.User{}, false
	}
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "database error")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Database error", Err: err})
		return model.User{}, false
	}
	return user, true
}

func ensureAccountNotLocked(ctx loginContext, user *model.User) bool {
	if user.LockedUntil != nil && user.LockedUntil.After(time.Now()) {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "account locked")
		util.CallUserError(ctx.C, util.APIErrorParams{
			Msg: fmt.Sprintf("Account is locked until %s due to multiple failed login attempts", user.LockedUntil.Format(time.RFC3339)),
			Err: fmt.Errorf("account locked"),
		})
		return false
	}
	return true
}

func verifyPasswordOrRespond(ctx loginContext, user *model.User, plain string) bool {
	if hmac.Equal([]byte(util.HashPassword(plain)), []byte(user.Password)) {
		return true
	}
	incrementFailedAttempts(ctx.DB, user, ctx.CI)
	util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "invalid password")
	util.CallUserError(ctx.C, util.APIErrorParams{Msg: "Invalid email or password", Err: fmt.Errorf("invalid password")})
	return false
}

func incrementFailedAttempts(db *gorm.DB, user *model.User, ci clientInfo) {
	user.FailedAttempts++
	if user.FailedAttempts >= maxFailedLoginAttempts {
		lockUntil := time.Now().Add(accountLockDuration)
		user.LockedUntil = &lockUntil
		util.LogAuditEvent(util.AuditEvent{
			EventType: util.EventAccountLocked,
			UserID:    fmt.Sprintf("%d", user.ID),
			Email:     user.Email,
			IP:        ci.IP,
			Message:   "Account locked: too many failed login attempts",
		})
	}
	if err := db.Save(user).Error; err != nil {
		util.LogLoginFailure(user.Email, ci.IP, ci.Agent, "failed to update failed attempts")
	}
}

func resetFailedAttempts(db *gorm.DB, user *model.User) error {
	if user.FailedAttempts > 0 || user.LockedUntil != nil {
		user.FailedAttempts = 0
		user.LockedUntil = nil
		return db.Save(user).Error
	}
	return nil
}

func fetchRoleOrRespond(ctx loginContext, roleID uint32) (model.Role, bool) {
	var role model.Role
	err := ctx.DB.Where("id = ?", roleID).First(&role).Error
	if err == gorm.ErrRecordNotFound {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "role not found")
		util.CallUserError(ctx.C, util.APIErrorParams{Msg: "Role not found", Err: fmt.Errorf("role not found")})
		return model.Role{}, false
	}
	if err != nil {
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Database error", Err: err})
		return model.Role{}, false
	}
	return role, true
}

func createJWTToken(user model.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": user.Email,
		"exp":   time.Now().Add(sessionDuration).Unix(),
		"role":  user.RoleID,
	})
	return token.SignedString(util.GetJWTSecretByte())
}

// SessionInfo groups the parameters for creating a session record.
type SessionInfo struct {
	UserID  uint
	Token   string
	Client  clientInfo
	Expires time.Time
}

func recordSession(db *gorm.DB, info SessionInfo) (model.Session, error) {
	session := model.Session{
		UserID:       info.UserID,
		SessionToken: info.Token,
		ExpiresAt:    info.Expires,
		IP:           info.Client.IP,
		UserAgent:    info.Client.Agent,
	}
	err := db.Create(&session).Error
	return session, err
}

func finalizeLogin(ctx loginContext, user *model.User) bool {
	if err := resetFailedAttempts(ctx.DB, user); err != nil {
		util.LogAuditEvent(util.AuditEvent{
			EventType: util.EventLoginFailure,
			UserID:    fmt.Sprintf("%d", user.ID),
			Email:     user.Email,
			IP:        ctx.CI.IP,
			Message:   fmt.Sprintf("Failed to reset failed attempts: %v", err),
		})
	}

	role, ok := fetchRoleOrRespond(ctx, user.RoleID)
	if !ok {
		return false
	}

	tokenString, err := createJWTToken(*user)
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "token generation failed")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return false
	}

	sessionInfo := SessionInfo{UserID: user.ID, Token: tokenString, Client: ctx.CI, Expires: time.Now().Add(sessionDuration)}
	session, err := recordSession(ctx.DB, sessionInfo)
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "session creation failed")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Failed to record session", Err: err})
		return false
	}

	// Store session in Redis (best-effort)
	if rdb := config.GetRedisClient(); rdb != nil {
		exp := time.Until(session.ExpiresAt)
		val := fmt.Sprintf("%d:%d", session.UserID, role.ID)
		_ = rdb.Set(context.Background(), fmt.Sprintf("session:%s", tokenString), val, exp).Err()
		_ = util.AddSessionToUserSet(session.UserID, tokenString)
	}

	util.LogLoginSuccess(user.ID, user.Email, ctx.CI.IP, ctx.CI.Agent)
	util.CallSuccessOK(ctx.C, util.APISuccessParams{
		Msg:  "Login successful",
		Data: LoginResponse{Token: tokenString, Role: role.Name, UserID: user.ID},
	})
	return true
}

// Logout godoc
// @Summary      User logout
// @Description  Invalidate the user session token
// @Tags         Authentication
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Logout successful"
// @Failure      400 {object} util.APIResponse "Session not found"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Router       /logout [delete]
func Logout(c *gin.Context) {
	sessionToken := c.GetHeader("session-token")
	if sessionToken == "" {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Session token not provided",
			Err: fmt.Errorf("session token not provided"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var session model.Session
	if err := db.Where("session_token = ?", sessionToken).First(&session).Error; err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Session not found",
			Err: err,
		})
		return
	}

	var user model.User
	if err := db.First(&user, session.UserID).Error; err == nil {
		util.LogAuditEvent(util.AuditEvent{
			EventType: util.EventLogout,
			UserID:    fmt.Sprintf("%d", user.ID),
			Email:     user.Email,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Message:   "User logged out",
		})
	}

	if err := db.Where("session_token = ?", sessionToken).Delete(&session).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to delete session",
			Err: err,
		})
		return
	}

	if rdb := config.GetRedisClient(); rdb != nil {
		_ = rdb.Del(context.Background(), fmt.Sprintf("session:%s", sessionToken)).Err()
		_ = util.RemoveSessionTokenFromUserSet(session.UserID, sessionToken)
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Logout successful",
	})
}

type SignupRequest struct {
	FullName string `json:"full_name" binding:"required" example:"Laura Montagna"`
	Email    string `json:"email" binding:"required,email" example:"laura@example.com"`
	Password string `json:"password" binding:"required,min=8" example:"password123"`
}

// Signup godoc
// @Summary      User signup
// @Description  Register a new user account
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Signup details"
// @Success      200 {object} util.APIResponse{data=string} "Signup successful"
// @Failure      400 {object} util.APIResponse "Invalid request or email already exists"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /signup [post]
func Signup(c *gin.Context) {
	var req SignupRequest

	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	if !ensureEmailAvailable(c, db, req.Email) {
		return
	}

	newUser := model.User{
		FullName:       req.FullName,
		Email:          req.Email,
		Password:       util.HashPassword(req.Password),
		RoleID:         2,
		FailedAttempts: 0,
		LockedUntil:    nil,
	}

	if err := db.Create(&newUser).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to create new user",
			Err: err,
		})
		return
	}

	util.LogAuditEvent(util.AuditEvent{
		EventType: util.EventSignupSuccess,
		UserID:    fmt.Sprintf("%d", newUser.ID),
		Email:     newUser.Email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   "User signed up successfully",
	})

	tokenString, err := createJWTToken(newUser)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Could not generate token",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Signup successful",
		Data: tokenString,
	})
}

func ensureEmailAvailable(c *gin.Context, db *gorm.DB, email string) bool {
	var existingUser model.User
	err := db.First(&existingUser, "email = ?", email).Error
	if err != gorm.ErrRecordNotFound {
		if err == nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "Email already exists", Err: fmt.Errorf("email already exists")})
			return false
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
		return false
	}
	return true
}
