package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionViewInstructions   = "VIEW_INSTRUCTIONS"
	ActionExecuteOrder       = "EXECUTE_ORDER"
	ActionAdminMonitor       = "ADMIN_MONITOR"
	ActionCreateOrder        = "CREATE_ORDER"
	ActionRecheckSubmit      = "RECHECK_SUBMIT"
	ActionRecheckUpdate      = "RECHECK_UPDATE"
	ActionRecheckVerify      = "RECHECK_VERIFY"
	ActionRecheckDelete      = "RECHECK_DELETE"
	ActionLogin              = "LOGIN"
	ActionRegisterUser       = "REGISTER_USER"
	ActionToggleUser         = "TOGGLE_USER"
	ActionDeactivateInactive = "DEACTIVATE_INACTIVE"
)

// ActivityLog is append-only. UserID is nil for rows written by the
// scheduler.
type ActivityLog struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     *string   `gorm:"size:36;index" json:"user_id"`
	User       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
	ActionType string    `gorm:"size:40;not null;index" json:"action_type"`
	Detail     string    `gorm:"type:text" json:"detail"`
	Timestamp  time.Time `gorm:"not null;index" json:"timestamp"`
}

func (a *ActivityLog) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return nil
}
