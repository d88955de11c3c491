package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/mmsi/orderdesk/pkg/collection"
	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/mmsi/orderdesk/pkg/metrics"
	"github.com/mmsi/orderdesk/pkg/rbac"
	"gorm.io/gorm"
)

type ExecutionService struct {
	db    *gorm.DB
	audit *ActivityService
	pub   Publisher
	now   func() time.Time
}

func NewExecutionService(db *gorm.DB, audit *ActivityService, pub Publisher) *ExecutionService {
	return &ExecutionService{db: db, audit: audit, pub: pub, now: func() time.Time { return time.Now().UTC() }}
}

// Execute moves the caller's breakdown from WAITING to EXECUTED. Checks
// run in order: NotFound, Forbidden, AlreadyExecuted. The transition is a
// conditional update, so of two concurrent calls exactly one wins and the
// other gets ErrAlreadyExecuted.
func (s *ExecutionService) Execute(ctx context.Context, id auth.Identity, breakdownID string) (models.OrderBreakdown, error) {
	if err := rbac.Authorize(id, rbac.ExecuteBreakdown); err != nil {
		metrics.BreakdownsExecuted.WithLabelValues("forbidden").Inc()
		return models.OrderBreakdown{}, err
	}

	var b models.OrderBreakdown
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&b, "id = ?", breakdownID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if b.NomineeID == nil || *b.NomineeID != id.ID {
			return ErrForbidden
		}
		if b.Status != models.BreakdownWaiting {
			return ErrAlreadyExecuted
		}

		now := s.now()
		res := tx.Model(&models.OrderBreakdown{}).
			Where("id = ? AND nominee_id = ? AND status = ?", b.ID, id.ID, models.BreakdownWaiting).
			Updates(map[string]any{
				"status":         models.BreakdownExecuted,
				"execution_time": now,
				"auto_executed":  true,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyExecuted
		}
		b.Status, b.ExecutionTime, b.AutoExecuted = models.BreakdownExecuted, &now, true

		if err := advanceOrder(tx, b.OrderID); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, id.ID, models.ActionExecuteOrder,
			fmt.Sprintf("Nominee %s mengeksekusi order %s (stock: %s, lots: %d)", id.Name, b.ID, b.Stock, b.Lots))
	})
	if err != nil {
		metrics.BreakdownsExecuted.WithLabelValues(outcome(err)).Inc()
		if isDomainError(err) {
			return models.OrderBreakdown{}, err
		}
		return models.OrderBreakdown{}, fmt.Errorf("execute breakdown: %w", err)
	}
	metrics.BreakdownsExecuted.WithLabelValues("executed").Inc()

	order, err := loadForBroadcast(ctx, s.db, b.OrderID)
	if err != nil {
		logger.WithCtx(ctx).Warn("execute: order not reloaded for broadcast", "order_id", b.OrderID, "error", err)
		return b, nil
	}
	publish(ctx, s.pub, order)
	return b, nil
}

// advanceOrder sets the parent to IN_PROGRESS while breakdowns are still
// waiting and COMPLETED once none are.
func advanceOrder(tx *gorm.DB, orderID string) error {
	var waiting int64
	if err := tx.Model(&models.OrderBreakdown{}).
		Where("order_id = ? AND status = ?", orderID, models.BreakdownWaiting).
		Count(&waiting).Error; err != nil {
		return err
	}
	status := models.OrderStatusInProgress
	if waiting == 0 {
		status = models.OrderStatusCompleted
	}
	return tx.Model(&models.Order{}).Where("id = ?", orderID).Update("status", status).Error
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrAlreadyExecuted):
		return "already_executed"
	default:
		return "error"
	}
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrAlreadyExecuted)
}

// ListInstructions returns the nominee's WAITING breakdowns, newest first,
// and appends exactly one VIEW_INSTRUCTIONS row. If that row cannot be
// written the call fails.
func (s *ExecutionService) ListInstructions(ctx context.Context, id auth.Identity) ([]BreakdownView, error) {
	if err := rbac.Authorize(id, rbac.ListInstructions); err != nil {
		return nil, err
	}
	var rows []models.OrderBreakdown
	err := s.db.WithContext(ctx).
		Preload("Order.Strategist").
		Where("nominee_id = ? AND status = ?", id.ID, models.BreakdownWaiting).
		Order("created_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list instructions: %w", err)
	}

	if err := s.audit.Record(ctx, nil, id.ID, models.ActionViewInstructions,
		fmt.Sprintf("Nominee %s melihat %d instruksi.", id.Name, len(rows))); err != nil {
		return nil, err
	}
	return collection.Map(rows, viewOf), nil
}

// MonitorAll returns every breakdown with order and nominee, newest first,
// and appends exactly one ADMIN_MONITOR row.
func (s *ExecutionService) MonitorAll(ctx context.Context, id auth.Identity) ([]BreakdownView, error) {
	if err := rbac.Authorize(id, rbac.MonitorAll); err != nil {
		return nil, err
	}
	var rows []models.OrderBreakdown
	err := s.db.WithContext(ctx).
		Preload("Order.Strategist").
		Preload("Nominee").
		Order("created_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("monitor all: %w", err)
	}

	if err := s.audit.Record(ctx, nil, id.ID, models.ActionAdminMonitor,
		fmt.Sprintf("Admin %s membuka data seluruh instruksi nominee. Total: %d", id.Name, len(rows))); err != nil {
		return nil, err
	}
	return collection.Map(rows, viewOf), nil
}

// WaitingCount is the number of breakdowns still waiting for the nominee.
func (s *ExecutionService) WaitingCount(ctx context.Context, id auth.Identity) (int64, error) {
	if err := rbac.Authorize(id, rbac.ListInstructions); err != nil {
		return 0, err
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.OrderBreakdown{}).
		Where("nominee_id = ? AND status = ?", id.ID, models.BreakdownWaiting).
		Count(&n).Error
	return n, err
}
