package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	OrderTypeBuy      = "Buy"
	OrderTypeSell     = "Sell"
	OrderTypeWithdraw = "Withdraw"

	OrderStatusNew        = "NEW"
	OrderStatusInProgress = "IN_PROGRESS"
	OrderStatusCompleted  = "COMPLETED"
)

// Order is one strategist instruction. Lots and SelectedTarget are fixed
// at creation; the lots of its breakdowns always sum to Lots.
type Order struct {
	ID             string                      `gorm:"primaryKey;size:36" json:"id"`
	Stock          string                      `gorm:"size:50;not null" json:"stock"`
	Price          decimal.Decimal             `gorm:"type:decimal(18,4);not null" json:"price"`
	Lots           int                         `gorm:"not null" json:"lots"`
	OrderType      string                      `gorm:"size:20;not null" json:"order_type"`
	Status         string                      `gorm:"size:20;not null;default:NEW" json:"status"`
	StrategistID   *string                     `gorm:"size:36;index" json:"strategist_id"`
	Strategist     *User                       `gorm:"foreignKey:StrategistID;constraint:OnDelete:SET NULL" json:"strategist,omitempty"`
	SelectedTarget datatypes.JSONSlice[string] `json:"selected_target"`
	Breakdowns     []OrderBreakdown            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"breakdowns,omitempty"`
	CreatedAt      time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
