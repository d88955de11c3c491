package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmsi/orderdesk/app/events"
	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/app/repositories"
	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/mmsi/orderdesk/pkg/collection"
	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/mmsi/orderdesk/pkg/metrics"
	"github.com/mmsi/orderdesk/pkg/rbac"
	"github.com/mmsi/orderdesk/pkg/validate"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Publisher accepts events after the change they describe has committed.
// *event.Bus implements it.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) int
}

// PinVerifier checks a caller's PIN. *AuthService implements it.
type PinVerifier interface {
	VerifyPin(ctx context.Context, id auth.Identity, pin string) error
}

type CreateOrderInput struct {
	Stock          string          `json:"stock" validate:"required,max=50"`
	Price          decimal.Decimal `json:"price" validate:"required,gt=0"`
	Lots           int             `json:"lots" validate:"required,min=1"`
	OrderType      string          `json:"order_type" validate:"required,in=Buy,Sell,Withdraw"`
	SelectedTarget []string        `json:"selected_target" validate:"required,min=1"`
	Pin            string          `json:"pin" validate:"required,between=4,10"`
}

// BreakdownView adds the display fields list endpoints return.
type BreakdownView struct {
	models.OrderBreakdown
	StrategistName string `json:"strategist_name"`
	StatusLabel    string `json:"status_label"`
}

func viewOf(b models.OrderBreakdown) BreakdownView {
	return BreakdownView{OrderBreakdown: b, StrategistName: b.StrategistName(), StatusLabel: b.StatusLabel()}
}

// TrendPoint counts executions on one UTC calendar day.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type OrderService struct {
	db    *gorm.DB
	users *repositories.UserRepository
	pins  PinVerifier
	audit *ActivityService
	pub   Publisher
}

func NewOrderService(db *gorm.DB, pins PinVerifier, audit *ActivityService, pub Publisher) *OrderService {
	return &OrderService{db: db, users: repositories.NewUserRepository(db), pins: pins, audit: audit, pub: pub}
}

// Distribute splits lots over n nominees in selection order: each gets
// lots/n and the first lots%n get one more.
func Distribute(lots, n int) []int {
	if n <= 0 {
		return nil
	}
	base, rem := lots/n, lots%n
	out := make([]int, n)
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}

// Create validates, authorizes and PIN-checks the request before writing
// anything, then stores the order, one breakdown per selected nominee and
// the audit row in one transaction.
func (s *OrderService) Create(ctx context.Context, id auth.Identity, in CreateOrderInput) (models.Order, error) {
	if err := validationOf(validate.Struct(in)); err != nil {
		return models.Order{}, err
	}
	if err := rbac.Authorize(id, rbac.CreateOrder); err != nil {
		return models.Order{}, err
	}
	if err := s.pins.VerifyPin(ctx, id, in.Pin); err != nil {
		return models.Order{}, err
	}

	nominees, err := s.users.NomineesByID(ctx, collection.Unique(in.SelectedTarget))
	if err != nil {
		return models.Order{}, fmt.Errorf("create order: load nominees: %w", err)
	}
	unknown := map[string]string{}
	for i, nid := range in.SelectedTarget {
		if _, ok := nominees[nid]; !ok {
			key := fmt.Sprintf("selected_target.%d", i)
			unknown[key] = fmt.Sprintf("The selected %s is invalid.", key)
		}
	}
	if err := validationOf(unknown); err != nil {
		return models.Order{}, err
	}

	strategistID := id.ID
	order := models.Order{
		Stock:          in.Stock,
		Price:          in.Price,
		Lots:           in.Lots,
		OrderType:      in.OrderType,
		Status:         models.OrderStatusNew,
		StrategistID:   &strategistID,
		SelectedTarget: datatypes.JSONSlice[string](in.SelectedTarget),
	}

	shares := Distribute(in.Lots, len(in.SelectedTarget))
	breakdowns := make([]models.OrderBreakdown, len(in.SelectedTarget))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for i, nid := range in.SelectedTarget {
			nid := nid
			breakdowns[i] = models.OrderBreakdown{
				OrderID:    order.ID,
				NomineeID:  &nid,
				BrokerCode: models.BrokerAuto,
				BrokerID:   models.BrokerAuto,
				Stock:      order.Stock,
				Price:      order.Price,
				Lots:       shares[i],
				Position:   i,
				Status:     models.BreakdownWaiting,
			}
		}
		if err := tx.Create(&breakdowns).Error; err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, id.ID, models.ActionCreateOrder,
			fmt.Sprintf("Strategist %s membuat order %s (%s) sebanyak %d lot untuk %d nominee.",
				id.Name, order.Stock, order.OrderType, order.Lots, len(in.SelectedTarget)))
	})
	if err != nil {
		return models.Order{}, fmt.Errorf("create order: %w", err)
	}

	metrics.OrdersCreated.WithLabelValues(order.OrderType).Inc()
	logger.WithCtx(ctx).Info("order created", "order_id", order.ID, "lots", order.Lots, "nominees", len(breakdowns))

	for i := range breakdowns {
		n := nominees[*breakdowns[i].NomineeID]
		breakdowns[i].Nominee = &n
	}
	published := order
	published.Breakdowns = breakdowns
	publish(ctx, s.pub, published)

	return order, nil
}

// ListOwn returns the strategist's orders with their breakdowns, newest
// first.
func (s *OrderService) ListOwn(ctx context.Context, id auth.Identity) ([]models.Order, error) {
	if err := rbac.Authorize(id, rbac.ListOwnOrders); err != nil {
		return nil, err
	}
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Breakdowns", inSelectionOrder).
		Preload("Breakdowns.Nominee").
		Where("strategist_id = ?", id.ID).
		Order("created_at desc").
		Find(&orders).Error
	return orders, err
}

// MonitorExecution returns every breakdown of the strategist's orders with
// order and nominee, newest first.
func (s *OrderService) MonitorExecution(ctx context.Context, id auth.Identity) ([]BreakdownView, error) {
	if err := rbac.Authorize(id, rbac.MonitorExecution); err != nil {
		return nil, err
	}
	var rows []models.OrderBreakdown
	err := s.db.WithContext(ctx).
		Preload("Order.Strategist").
		Preload("Nominee").
		Where("order_id IN (?)", s.db.Model(&models.Order{}).Select("id").Where("strategist_id = ?", id.ID)).
		Order("created_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return collection.Map(rows, viewOf), nil
}

// ExecutionTrend counts the strategist's executed breakdowns per day.
func (s *OrderService) ExecutionTrend(ctx context.Context, id auth.Identity) ([]TrendPoint, error) {
	if err := rbac.Authorize(id, rbac.MonitorExecution); err != nil {
		return nil, err
	}
	var rows []models.OrderBreakdown
	err := s.db.WithContext(ctx).
		Select("id", "execution_time").
		Where("status = ? AND execution_time IS NOT NULL", models.BreakdownExecuted).
		Where("order_id IN (?)", s.db.Model(&models.Order{}).Select("id").Where("strategist_id = ?", id.ID)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byDay := collection.GroupBy(rows, func(b models.OrderBreakdown) string {
		return b.ExecutionTime.UTC().Format(time.DateOnly)
	})
	out := make([]TrendPoint, 0, len(byDay))
	for _, day := range collection.SortedKeys(byDay) {
		out = append(out, TrendPoint{Date: day, Count: len(byDay[day])})
	}
	return out, nil
}

// loadForBroadcast reloads an order with breakdowns and nominees.
func loadForBroadcast(ctx context.Context, db *gorm.DB, orderID string) (models.Order, error) {
	var order models.Order
	err := db.WithContext(ctx).
		Preload("Breakdowns", inSelectionOrder).
		Preload("Breakdowns.Nominee").
		First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return order, ErrNotFound
	}
	return order, err
}

func publish(ctx context.Context, pub Publisher, order models.Order) {
	if pub == nil {
		return
	}
	if pub.Publish(ctx, events.OrderUpdated, events.Snapshot(order)) == 0 {
		logger.WithCtx(ctx).Warn("order.updated not delivered", "order_id", order.ID)
	}
}

// inSelectionOrder keeps breakdowns in the order their nominees were picked.
func inSelectionOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position, id")
}
