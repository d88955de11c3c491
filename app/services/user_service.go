package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/app/repositories"
	"github.com/mmsi/orderdesk/config"
	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/mmsi/orderdesk/pkg/cache"
	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/mmsi/orderdesk/pkg/metrics"
	"github.com/mmsi/orderdesk/pkg/rbac"
	"github.com/mmsi/orderdesk/pkg/validate"
	"gorm.io/gorm"
)

const (
	nomineesCacheKey = "users:nominees:active"
	nomineesCacheTTL = time.Minute
)

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Pin      string `json:"pin" validate:"required,min=4"`
	Role     string `json:"role" validate:"required,in=ADMIN,STRATEGIST,NOMINEE"`
}

// NomineeSummary is the public view of a nominee for order forms.
type NomineeSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UserService struct {
	db    *gorm.DB
	users *repositories.UserRepository
	audit *ActivityService
	cache cache.Store
	now   func() time.Time
}

func NewUserService(db *gorm.DB, audit *ActivityService, store cache.Store) *UserService {
	return &UserService{
		db:    db,
		users: repositories.NewUserRepository(db),
		audit: audit,
		cache: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserService) Register(ctx context.Context, admin auth.Identity, in RegisterInput) (models.User, error) {
	in.Role = strings.ToUpper(strings.TrimSpace(in.Role))
	if err := validationOf(validate.Struct(in)); err != nil {
		return models.User{}, err
	}
	if err := rbac.Authorize(admin, rbac.RegisterUser); err != nil {
		return models.User{}, err
	}

	taken, err := s.users.EmailTaken(ctx, in.Email)
	if err != nil {
		return models.User{}, fmt.Errorf("register: %w", err)
	}
	if taken {
		return models.User{}, invalid("email", "The email has already been taken.")
	}

	user := models.User{Name: in.Name, Email: in.Email, Role: in.Role, Active: true}
	if user.Password, err = auth.Hash(in.Password); err != nil {
		return models.User{}, fmt.Errorf("register: hash password: %w", err)
	}
	if user.Pin, err = auth.Hash(in.Pin); err != nil {
		return models.User{}, fmt.Errorf("register: hash pin: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Create(ctx, &user); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, admin.ID, models.ActionRegisterUser,
			fmt.Sprintf("Admin %s mendaftarkan %s %s.", admin.Name, user.Role, user.Email))
	})
	if err != nil {
		return models.User{}, fmt.Errorf("register: %w", err)
	}
	s.forgetNominees(ctx)
	return user, nil
}

func (s *UserService) List(ctx context.Context, admin auth.Identity) ([]models.User, error) {
	if err := rbac.Authorize(admin, rbac.ListUsers); err != nil {
		return nil, err
	}
	return s.users.All(ctx)
}

// Toggle flips a user's active flag.
func (s *UserService) Toggle(ctx context.Context, admin auth.Identity, userID string) (models.User, error) {
	if err := rbac.Authorize(admin, rbac.ToggleUser); err != nil {
		return models.User{}, err
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		var err error
		if user, err = repo.FindByID(ctx, userID); err != nil {
			return err
		}
		user.Active = !user.Active
		if err := repo.Save(ctx, &user); err != nil {
			return err
		}
		state := "menonaktifkan"
		if user.Active {
			state = "mengaktifkan"
		}
		return s.audit.Record(ctx, tx, admin.ID, models.ActionToggleUser,
			fmt.Sprintf("Admin %s %s akun %s.", admin.Name, state, user.Email))
	})
	if err != nil {
		return models.User{}, fmt.Errorf("toggle user: %w", err)
	}
	s.forgetNominees(ctx)
	return user, nil
}

// Nominees lists active nominees, cached briefly since every order form
// asks for them.
func (s *UserService) Nominees(ctx context.Context, id auth.Identity) ([]NomineeSummary, error) {
	if err := rbac.Authorize(id, rbac.ListNominees); err != nil {
		return nil, err
	}
	return cache.Remember(ctx, s.cache, nomineesCacheKey, nomineesCacheTTL, func() ([]NomineeSummary, error) {
		users, err := s.users.ActiveNominees(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]NomineeSummary, len(users))
		for i, u := range users {
			out[i] = NomineeSummary{ID: u.ID, Name: u.Name, Email: u.Email}
		}
		return out, nil
	})
}

func (s *UserService) forgetNominees(ctx context.Context) {
	if err := s.cache.Del(ctx, nomineesCacheKey); err != nil {
		logger.WithCtx(ctx).Warn("users: nominee cache not cleared", "error", err)
	}
}

// DeactivateInactive switches off users idle for longer than
// INACTIVITY_MONTHS. actor is empty when the scheduler runs it. Running
// it twice in a row deactivates nobody the second time.
func (s *UserService) DeactivateInactive(ctx context.Context, actor auth.Identity) (int, error) {
	if actor.ID != "" {
		if err := rbac.Authorize(actor, rbac.DeactivateIdle); err != nil {
			return 0, err
		}
	}

	months := config.InactivityMonths()
	cutoff := s.now().AddDate(0, -months, 0)

	var emails []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if emails, err = s.users.WithTx(tx).DeactivateIdle(ctx, cutoff); err != nil || len(emails) == 0 {
			return err
		}
		return s.audit.Record(ctx, tx, actor.ID, models.ActionDeactivateInactive,
			fmt.Sprintf("Auto-deactivate: %d user tidak aktif lebih dari %d bulan dinonaktifkan.", len(emails), months))
	})
	if err != nil {
		return 0, fmt.Errorf("deactivate inactive: %w", err)
	}

	for _, email := range emails {
		logger.WithCtx(ctx).Info("users: deactivated", "email", email)
	}
	metrics.UsersDeactivated.Add(float64(len(emails)))
	if len(emails) > 0 {
		s.forgetNominees(ctx)
	}
	return len(emails), nil
}
