package services

import (
	"context"
	"fmt"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/app/repositories"
	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/mmsi/orderdesk/pkg/metrics"
	"github.com/mmsi/orderdesk/pkg/orm"
	"github.com/mmsi/orderdesk/pkg/rbac"
	"gorm.io/gorm"
)

const recentActivityLimit = 100

type ActivityService struct {
	repo *repositories.ActivityRepository
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{repo: repositories.NewActivityRepository(db)}
}

// Record appends one audit row. Pass the open transaction as tx so the row
// commits or rolls back with the change it describes; nil uses the
// service's own connection.
func (s *ActivityService) Record(ctx context.Context, tx *gorm.DB, userID, action, detail string) error {
	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	entry := &models.ActivityLog{ActionType: action, Detail: detail}
	if userID != "" {
		entry.UserID = &userID
	}
	if err := repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("record %s: %w", action, err)
	}
	metrics.AuditRecords.WithLabelValues(action).Inc()
	return nil
}

// List pages through the log. Admins see every row; other roles only
// their own, whatever UserID the filter asks for.
func (s *ActivityService) List(ctx context.Context, id auth.Identity, f repositories.ActivityFilter) ([]models.ActivityLog, orm.Pagination, error) {
	if !rbac.Can(id.Role, rbac.ViewAllActivity) {
		if err := rbac.Authorize(id, rbac.ViewOwnActivity); err != nil {
			return nil, orm.Pagination{}, err
		}
		f.UserID = id.ID
	}
	return s.repo.Query(ctx, f)
}

// Recent returns the caller's own newest rows.
func (s *ActivityService) Recent(ctx context.Context, id auth.Identity) ([]models.ActivityLog, error) {
	if err := rbac.Authorize(id, rbac.ViewOwnActivity); err != nil {
		return nil, err
	}
	return s.repo.Recent(ctx, id.ID, recentActivityLimit)
}
