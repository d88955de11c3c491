package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recheck is a daily cash and holdings attestation. Exactly one lineage is
// set: AdminID with AdminName, or NomineeID.
type Recheck struct {
	ID         string            `gorm:"primaryKey;size:36" json:"id"`
	AdminID    *string           `gorm:"size:36;index" json:"admin_id"`
	AdminName  *string           `gorm:"size:255" json:"admin_name"`
	NomineeID  *string           `gorm:"size:36;index" json:"nominee_id"`
	Nominee    *User             `gorm:"foreignKey:NomineeID;constraint:OnDelete:SET NULL" json:"nominee,omitempty"`
	Date       string            `gorm:"size:10;not null;index" json:"date"`
	Cash       decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"cash"`
	Portfolio  datatypes.JSONMap `json:"portfolio"`
	Verified   bool              `gorm:"not null;default:false" json:"verified"`
	VerifiedAt *time.Time        `json:"verified_at"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (r *Recheck) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// SubmittedBy reports whether userID is the recheck's submitter.
func (r Recheck) SubmittedBy(userID string) bool {
	return (r.AdminID != nil && *r.AdminID == userID) || (r.NomineeID != nil && *r.NomineeID == userID)
}
