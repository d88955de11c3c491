package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/mmsi/orderdesk/pkg/rbac"
	"github.com/mmsi/orderdesk/pkg/validate"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RecheckInput struct {
	Date      string           `json:"date" validate:"required,date"`
	Cash      *decimal.Decimal `json:"cash" validate:"required,numeric"`
	Portfolio map[string]any   `json:"portfolio" validate:"required,min=1"`
	Pin       string           `json:"pin" validate:"required,min=4"`
}

type UpdateRecheckInput struct {
	Date      string           `json:"date" validate:"required,date"`
	Cash      *decimal.Decimal `json:"cash" validate:"required,numeric"`
	Portfolio map[string]any   `json:"portfolio" validate:"required"`
}

type RecheckSummary struct {
	TotalKas        decimal.Decimal `json:"totalKas"`
	TotalPortofolio decimal.Decimal `json:"totalPortofolio"`
	VerifiedCount   int             `json:"verifiedCount"`
	UnverifiedCount int             `json:"unverifiedCount"`
}

type RecheckService struct {
	db    *gorm.DB
	pins  PinVerifier
	audit *ActivityService
	now   func() time.Time
}

func NewRecheckService(db *gorm.DB, pins PinVerifier, audit *ActivityService) *RecheckService {
	return &RecheckService{db: db, pins: pins, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// FilterPortfolio drops entries with a blank key or a non-numeric value.
func FilterPortfolio(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if strings.TrimSpace(k) == "" {
			continue
		}
		if _, ok := numeric(v); ok {
			out[k] = v
		}
	}
	return out
}

func numeric(v any) (decimal.Decimal, bool) {
	var s string
	switch n := v.(type) {
	case string:
		s = strings.TrimSpace(n)
	case float64:
		return decimal.NewFromFloat(n), true
	case json.Number:
		s = n.String()
	case int:
		return decimal.NewFromInt(int64(n)), true
	default:
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	return d, err == nil
}

func normalizeDate(raw string) string {
	t, err := validate.ParseDate(raw)
	if err != nil {
		return raw
	}
	return t.Format(time.DateOnly)
}

// Submit stores a recheck for an admin or nominee. The PIN is checked
// before anything else is considered.
func (s *RecheckService) Submit(ctx context.Context, id auth.Identity, in RecheckInput) (models.Recheck, error) {
	if err := validationOf(validate.Struct(in)); err != nil {
		return models.Recheck{}, err
	}
	if err := s.pins.VerifyPin(ctx, id, in.Pin); err != nil {
		return models.Recheck{}, err
	}
	portfolio := FilterPortfolio(in.Portfolio)
	if len(portfolio) == 0 {
		return models.Recheck{}, invalid("portfolio", "Portofolio tidak boleh kosong atau invalid.")
	}
	if err := rbac.Authorize(id, rbac.SubmitRecheck); err != nil {
		return models.Recheck{}, err
	}

	r := models.Recheck{
		Date:      normalizeDate(in.Date),
		Cash:      *in.Cash,
		Portfolio: datatypes.JSONMap(portfolio),
	}
	userID, name := id.ID, id.Name
	if id.Is(auth.RoleAdmin) {
		r.AdminID, r.AdminName = &userID, &name
	} else {
		r.NomineeID = &userID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&r).Error; err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, id.ID, models.ActionRecheckSubmit,
			fmt.Sprintf("%s %s mengirim recheck tanggal %s senilai kas: %s", id.Role, id.Name, r.Date, r.Cash))
	})
	if err != nil {
		return models.Recheck{}, fmt.Errorf("submit recheck: %w", err)
	}
	return r, nil
}

// find loads a recheck and checks the caller may change it: admins any,
// nominees only their own.
func (s *RecheckService) find(tx *gorm.DB, id auth.Identity, recheckID string) (models.Recheck, error) {
	var r models.Recheck
	err := tx.First(&r, "id = ?", recheckID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, err
	}
	if !id.Is(auth.RoleAdmin) && !r.SubmittedBy(id.ID) {
		return r, ErrForbidden
	}
	return r, nil
}

func (s *RecheckService) Update(ctx context.Context, id auth.Identity, recheckID string, in UpdateRecheckInput) (models.Recheck, error) {
	if err := validationOf(validate.Struct(in)); err != nil {
		return models.Recheck{}, err
	}
	if err := rbac.Authorize(id, rbac.UpdateRecheck); err != nil {
		return models.Recheck{}, err
	}
	portfolio := FilterPortfolio(in.Portfolio)
	if len(portfolio) == 0 {
		return models.Recheck{}, invalid("portfolio", "Portofolio tidak boleh kosong atau invalid.")
	}

	var r models.Recheck
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if r, err = s.find(tx, id, recheckID); err != nil {
			return err
		}
		r.Date, r.Cash, r.Portfolio = normalizeDate(in.Date), *in.Cash, datatypes.JSONMap(portfolio)
		if err := tx.Save(&r).Error; err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, id.ID, models.ActionRecheckUpdate,
			fmt.Sprintf("%s %s memperbarui recheck tanggal %s", id.Role, id.Name, r.Date))
	})
	if err != nil {
		return models.Recheck{}, wrapUnlessDomain("update recheck", err)
	}
	return r, nil
}

// Verify marks a recheck verified. Verifying again re-stamps VerifiedAt.
func (s *RecheckService) Verify(ctx context.Context, id auth.Identity, recheckID string) (models.Recheck, error) {
	if err := rbac.Authorize(id, rbac.VerifyRecheck); err != nil {
		return models.Recheck{}, err
	}
	var r models.Recheck
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if r, err = s.find(tx, id, recheckID); err != nil {
			return err
		}
		now := s.now()
		r.Verified, r.VerifiedAt = true, &now
		if err := tx.Save(&r).Error; err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, id.ID, models.ActionRecheckVerify,
			fmt.Sprintf("Admin %s memverifikasi recheck tanggal %s", id.Name, r.Date))
	})
	if err != nil {
		return models.Recheck{}, wrapUnlessDomain("verify recheck", err)
	}
	return r, nil
}

func (s *RecheckService) Delete(ctx context.Context, id auth.Identity, recheckID string) error {
	if err := rbac.Authorize(id, rbac.DeleteRecheck); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.find(tx, id, recheckID)
		if err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, id.ID, models.ActionRecheckDelete,
			fmt.Sprintf("%s %s menghapus recheck tanggal %s", id.Role, id.Name, r.Date)); err != nil {
			return err
		}
		return tx.Delete(&r).Error
	})
	return wrapUnlessDomain("delete recheck", err)
}

// scoped restricts nominees to their own rechecks.
func (s *RecheckService) scoped(ctx context.Context, id auth.Identity) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Recheck{})
	if id.Is(auth.RoleNominee) {
		q = q.Where("nominee_id = ?", id.ID)
	}
	return q
}

// List returns rechecks newest date first: all for admins, own for
// nominees.
func (s *RecheckService) List(ctx context.Context, id auth.Identity) ([]models.Recheck, error) {
	if err := rbac.Authorize(id, rbac.ListRechecks); err != nil {
		return nil, err
	}
	var rows []models.Recheck
	err := s.scoped(ctx, id).Preload("Nominee").Order("date desc, created_at desc").Find(&rows).Error
	return rows, err
}

// Summary totals cash and every portfolio quantity across the caller's
// visible rechecks. Quantities are summed flat, not per instrument.
func (s *RecheckService) Summary(ctx context.Context, id auth.Identity) (RecheckSummary, error) {
	if err := rbac.Authorize(id, rbac.SummarizeRecheck); err != nil {
		return RecheckSummary{}, err
	}
	var rows []models.Recheck
	if err := s.scoped(ctx, id).Find(&rows).Error; err != nil {
		return RecheckSummary{}, fmt.Errorf("recheck summary: %w", err)
	}

	sum := RecheckSummary{TotalKas: decimal.Zero, TotalPortofolio: decimal.Zero}
	for _, r := range rows {
		sum.TotalKas = sum.TotalKas.Add(r.Cash)
		for _, v := range r.Portfolio {
			if d, ok := numeric(v); ok {
				sum.TotalPortofolio = sum.TotalPortofolio.Add(d)
			}
		}
		if r.Verified {
			sum.VerifiedCount++
		} else {
			sum.UnverifiedCount++
		}
	}
	return sum, nil
}

// CheckTodaySubmitted reports whether the caller already submitted a
// recheck dated today. It does not stop a second submission.
func (s *RecheckService) CheckTodaySubmitted(ctx context.Context, id auth.Identity) (bool, error) {
	if err := rbac.Authorize(id, rbac.SubmitRecheck); err != nil {
		return false, err
	}
	column := "nominee_id"
	if id.Is(auth.RoleAdmin) {
		column = "admin_id"
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Recheck{}).
		Where("date = ? AND "+column+" = ?", s.now().Format(time.DateOnly), id.ID).
		Count(&n).Error
	return n > 0, err
}

func wrapUnlessDomain(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
