package repositories

import (
	"context"
	"time"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/pkg/orm"
	"gorm.io/gorm"
)

// ActivityFilter narrows an activity listing. Zero values mean "any".
type ActivityFilter struct {
	UserID     string
	ActionType string
	From       time.Time
	To         time.Time
	Page       int
	PerPage    int
}

// ActivityRepository is append-only: it has no update or delete.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) WithTx(tx *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: tx}
}

func (r *ActivityRepository) Append(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ActivityRepository) withUser(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.ActivityLog{}).
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "email", "role") })
}

// Query returns one page, newest first.
func (r *ActivityRepository) Query(ctx context.Context, f ActivityFilter) ([]models.ActivityLog, orm.Pagination, error) {
	q := r.withUser(ctx)
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ActionType != "" {
		q = q.Where("action_type = ?", f.ActionType)
	}
	if !f.From.IsZero() {
		q = q.Where("timestamp >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("timestamp <= ?", f.To)
	}
	q = q.Order("timestamp desc")

	var rows []models.ActivityLog
	p, err := orm.Paginate(q, orm.NewPagination(f.Page, f.PerPage), &rows)
	return rows, p, err
}

// Recent returns the newest rows, for one user when userID is set.
func (r *ActivityRepository) Recent(ctx context.Context, userID string, limit int) ([]models.ActivityLog, error) {
	q := r.withUser(ctx)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	var rows []models.ActivityLog
	err := q.Order("timestamp desc").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *ActivityRepository) Count(ctx context.Context, actionType string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Where("action_type = ?", actionType).Count(&n).Error
	return n, err
}
