package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	BreakdownWaiting  = "WAITING"
	BreakdownExecuted = "EXECUTED"

	// BrokerAuto marks breakdowns routed without a chosen broker.
	BrokerAuto = "AUTO"
)

// OrderBreakdown is the share of an order assigned to one nominee. It
// moves WAITING → EXECUTED once; ExecutionTime is set iff EXECUTED.
type OrderBreakdown struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	OrderID       string          `gorm:"size:36;not null;index" json:"order_id"`
	Order         *Order          `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	NomineeID     *string         `gorm:"size:36;index" json:"nominee_id"`
	Nominee       *User           `gorm:"foreignKey:NomineeID;constraint:OnDelete:SET NULL" json:"nominee,omitempty"`
	BrokerCode    string          `gorm:"size:20;not null;default:AUTO" json:"broker_code"`
	BrokerID      string          `gorm:"size:20;not null;default:AUTO" json:"broker_id"`
	Stock         string          `gorm:"size:50;not null" json:"stock"`
	Price         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"price"`
	Lots          int             `gorm:"not null" json:"lots"`
	Position      int             `gorm:"not null;default:0" json:"position"`
	Status        string          `gorm:"size:20;not null;default:WAITING;index" json:"status"`
	ExecutionTime *time.Time      `json:"execution_time"`
	AutoExecuted  bool            `gorm:"not null;default:false" json:"auto_executed"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (b *OrderBreakdown) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// StatusLabel is the display form of Status. IN_PROGRESS, COMPLETED and
// NEW only appear on legacy rows.
func (b OrderBreakdown) StatusLabel() string {
	switch b.Status {
	case BreakdownWaiting:
		return "Waiting"
	case OrderStatusInProgress:
		return "In Progress"
	case OrderStatusCompleted:
		return "Completed"
	case BreakdownExecuted:
		return "Executed"
	case OrderStatusNew:
		return "New"
	case "":
		return ""
	default:
		s := strings.ToLower(b.Status)
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

// StrategistName resolves through the preloaded Order.Strategist.
func (b OrderBreakdown) StrategistName() string {
	if b.Order != nil && b.Order.Strategist != nil {
		return b.Order.Strategist.Name
	}
	return "N/A"
}

// NomineeName is "-" when the nominee was not loaded or no longer exists.
func (b OrderBreakdown) NomineeName() string {
	if b.Nominee != nil {
		return b.Nominee.Name
	}
	return "-"
}
