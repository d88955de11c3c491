package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin      = "ADMIN"
	RoleStrategist = "STRATEGIST"
	RoleNominee    = "NOMINEE"
)

// User is an account of any role. Users are deactivated, never deleted.
type User struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	Email       string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Role        string     `gorm:"size:20;not null;index" json:"role"`
	Password    string     `gorm:"size:255;not null" json:"-"`
	Pin         string     `gorm:"size:255;not null" json:"-"`
	Active      bool       `gorm:"not null;default:true" json:"active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
