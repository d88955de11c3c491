package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/app/repositories"
	"github.com/mmsi/orderdesk/config"
	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/mmsi/orderdesk/pkg/cache"
	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/mmsi/orderdesk/pkg/rbac"
	"github.com/mmsi/orderdesk/pkg/validate"
	"gorm.io/gorm"
)

var ErrTokenRevoked = errors.New("token revoked")

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Pin      string `json:"pin" validate:"required,min=4"`
}

type LoginResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	User        models.User `json:"user"`
}

type AuthService struct {
	db      *gorm.DB
	users   *repositories.UserRepository
	audit   *ActivityService
	revoked cache.Store
	now     func() time.Time
}

// NewAuthService keeps logged-out token ids in store until they expire.
func NewAuthService(db *gorm.DB, audit *ActivityService, store cache.Store) *AuthService {
	return &AuthService{
		db:      db,
		users:   repositories.NewUserRepository(db),
		audit:   audit,
		revoked: store,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Login checks email, password, PIN and the active flag in that order and
// reports the first failure.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	if err := validationOf(validate.Struct(in)); err != nil {
		return LoginResult{}, err
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		return LoginResult{}, ErrEmailNotFound
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	if !auth.Check(user.Password, in.Password) {
		return LoginResult{}, ErrWrongPassword
	}
	if !auth.Check(user.Pin, in.Pin) {
		return LoginResult{}, ErrWrongPin
	}
	if !user.Active {
		return LoginResult{}, ErrAccountInactive
	}

	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: sign token: %w", err)
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).TouchLogin(ctx, user.ID, now); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, user.ID, models.ActionLogin,
			fmt.Sprintf("%s %s login.", user.Role, user.Name))
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	user.LastLoginAt = &now

	return LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(config.JWTTTL().Seconds()),
		User:        user,
	}, nil
}

// VerifyPin compares pin against the caller's stored hash.
func (s *AuthService) VerifyPin(ctx context.Context, id auth.Identity, pin string) error {
	_, err := s.checkPin(ctx, id.ID, pin)
	return err
}

func (s *AuthService) checkPin(ctx context.Context, userID, pin string) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return user, ErrInvalidPin
	}
	if err != nil {
		return user, fmt.Errorf("verify pin: %w", err)
	}
	if !auth.Check(user.Pin, pin) {
		return user, ErrInvalidPin
	}
	return user, nil
}

func (s *AuthService) Me(ctx context.Context, id auth.Identity) (models.User, error) {
	return s.users.FindByID(ctx, id.ID)
}

// Logout revokes the caller's token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, id auth.Identity) error {
	ttl := id.ExpiresAt.Sub(s.now())
	if id.TokenID == "" || ttl <= 0 {
		return nil
	}
	if err := s.revoked.Set(ctx, revokedKey(id.TokenID), true, ttl); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	logger.WithCtx(ctx).Info("auth: token revoked", "user_id", id.ID)
	return nil
}

// Resolve implements middleware.IdentityResolver. The role comes from the
// database, not the token, so a role change applies immediately.
func (s *AuthService) Resolve(ctx context.Context, claims *auth.Claims) (auth.Identity, error) {
	if claims.ID != "" {
		revoked, err := s.revoked.Has(ctx, revokedKey(claims.ID))
		if err != nil {
			return auth.Identity{}, fmt.Errorf("resolve: %w", err)
		}
		if revoked {
			return auth.Identity{}, ErrTokenRevoked
		}
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("resolve: %w", err)
	}
	if !user.Active {
		return auth.Identity{}, ErrAccountInactive
	}

	id := auth.Identity{ID: user.ID, Role: user.Role, Name: user.Name, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// DashboardPath is the landing page for the caller's role.
func (s *AuthService) DashboardPath(id auth.Identity) (string, error) {
	if err := rbac.Authorize(id, rbac.ViewDashboardInfo); err != nil {
		return "", err
	}
	switch id.Role {
	case auth.RoleAdmin:
		return "/admin/dashboard", nil
	case auth.RoleStrategist:
		return "/strategist/dashboard", nil
	default:
		return "/nominee/dashboard", nil
	}
}

func revokedKey(tokenID string) string { return "auth:revoked:" + tokenID }
