package seeders

import (
	"fmt"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const sampleOrders = 3

// seedOrders gives the default strategist three BBCA buy orders, each
// wholly assigned to the default nominee. It does nothing once the
// strategist has any order.
func seedOrders(db *gorm.DB) error {
	accounts := defaultAccounts()
	var strategist, nominee models.User
	if err := db.Where("email = ?", accounts[1].email).First(&strategist).Error; err != nil {
		return fmt.Errorf("strategist: %w", err)
	}
	if err := db.Where("email = ?", accounts[2].email).First(&nominee).Error; err != nil {
		return fmt.Errorf("nominee: %w", err)
	}

	var n int64
	if err := db.Model(&models.Order{}).Where("strategist_id = ?", strategist.ID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for i := 1; i <= sampleOrders; i++ {
			price := decimal.NewFromInt(int64(8500 + i*10))
			lots := 10 * i
			order := models.Order{
				Stock:          "BBCA",
				Price:          price,
				Lots:           lots,
				OrderType:      models.OrderTypeBuy,
				Status:         models.OrderStatusNew,
				StrategistID:   &strategist.ID,
				SelectedTarget: datatypes.JSONSlice[string]{nominee.ID},
				Breakdowns: []models.OrderBreakdown{{
					NomineeID:  &nominee.ID,
					BrokerCode: models.BrokerAuto,
					BrokerID:   models.BrokerAuto,
					Stock:      "BBCA",
					Price:      price,
					Lots:       lots,
					Status:     models.BreakdownWaiting,
				}},
			}
			if err := tx.Create(&order).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
