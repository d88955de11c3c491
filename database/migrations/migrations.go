// Package migrations registers the schema changes. Importing it for side
// effects makes them visible to migration.Runner.
package migrations

import (
	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/pkg/migration"
	"github.com/mmsi/orderdesk/pkg/queue"
	"gorm.io/gorm"
)

func table(model any, name string) migration.Func {
	return migration.Func{
		UpFn:   func(db *gorm.DB) error { return db.AutoMigrate(model) },
		DownFn: func(db *gorm.DB) error { return db.Migrator().DropTable(name) },
	}
}

func init() {
	migration.Register("20260101000000_create_users_table", table(&models.User{}, "users"))
	migration.Register("20260101000001_create_orders_table", table(&models.Order{}, "orders"))
	migration.Register("20260101000002_create_order_breakdowns_table", table(&models.OrderBreakdown{}, "order_breakdowns"))
	migration.Register("20260101000003_create_activity_logs_table", table(&models.ActivityLog{}, "activity_logs"))
	migration.Register("20260101000004_create_rechecks_table", table(&models.Recheck{}, "rechecks"))
	migration.Register("20260101000005_create_failed_jobs_table", table(&queue.FailedJob{}, "failed_jobs"))
}
