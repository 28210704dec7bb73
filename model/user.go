package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// User is an account that can sign in to the practice API.
type User struct {
	gorm.Model
	FullName       string     `json:"full_name" gorm:"type:varchar(191)"`
	Email          string     `json:"email" gorm:"type:varchar(191);uniqueIndex;not null"`
	Password       string     `json:"-" gorm:"type:varchar(191);not null"`
	RoleID         uint32     `json:"role_id"`
	FailedAttempts int        `json:"-"`
	LockedUntil    *time.Time `json:"-"`
}

// Session is a signed-in device. The token doubles as the Redis session-set
// member so all of a user's sessions can be invalidated at once.
type Session struct {
	gorm.Model
	UserID       uint      `json:"user_id" gorm:"not null;index"`
	SessionToken string    `json:"session_token" gorm:"type:varchar(191);index;not null"`
	ExpiresAt    time.Time `json:"expires_at"`
	IP           string    `json:"ip" gorm:"type:varchar(45)"`
	UserAgent    string    `json:"user_agent" gorm:"type:varchar(512)"`
}

type Role struct {
	gorm.Model
	ID   uint32 `gorm:"primary_key;auto_increment" json:"id"`
	Name string `gorm:"type:varchar(100);not null" json:"name"`
}

// SeedRoles inserts the default roles when they are missing.
func SeedRoles(db *gorm.DB) error {
	roles := []Role{
		{Name: "Admin"},
		{Name: "User"},
	}

	for _, role := range roles {
		var existingRole Role
		err := db.Where("name = ?", role.Name).First(&existingRole).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.Create(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", role.Name, err)
		}
	}
	return nil
}
