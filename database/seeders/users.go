package seeders

import (
	"errors"
	"fmt"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/config"
	"github.com/mmsi/orderdesk/pkg/auth"
	"gorm.io/gorm"
)

func init() {
	Register("users", seedUsers)
	Register("orders", seedOrders)
}

type account struct {
	role, name, email, password, pin string
}

// defaultAccounts reads SEED_{ROLE}_{EMAIL,PASSWORD,PIN}, falling back to
// the development credentials.
func defaultAccounts() []account {
	return []account{
		{
			role: models.RoleAdmin, name: "Super Admin",
			email:    config.Get("SEED_ADMIN_EMAIL", "admin@super.com"),
			password: config.Get("SEED_ADMIN_PASSWORD", "DeveloperAsAdmin01!"),
			pin:      config.Get("SEED_ADMIN_PIN", "1005"),
		},
		{
			role: models.RoleStrategist, name: "Default Strategist",
			email:    config.Get("SEED_STRATEGIST_EMAIL", "strategist@testing.com"),
			password: config.Get("SEED_STRATEGIST_PASSWORD", "StrategistUser01!"),
			pin:      config.Get("SEED_STRATEGIST_PIN", "1234"),
		},
		{
			role: models.RoleNominee, name: "Nominee One",
			email:    config.Get("SEED_NOMINEE_EMAIL", "nominee1@testing.com"),
			password: config.Get("SEED_NOMINEE_PASSWORD", "NomineeUser01!"),
			pin:      config.Get("SEED_NOMINEE_PIN", "123456"),
		},
	}
}

// seedUsers creates each default account unless its email already exists.
func seedUsers(db *gorm.DB) error {
	for _, a := range defaultAccounts() {
		var existing models.User
		err := db.Where("email = ?", a.email).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		password, err := auth.Hash(a.password)
		if err != nil {
			return err
		}
		pin, err := auth.Hash(a.pin)
		if err != nil {
			return err
		}
		user := models.User{Name: a.name, Email: a.email, Role: a.role, Password: password, Pin: pin, Active: true}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("create %s: %w", a.email, err)
		}
	}
	return nil
}
