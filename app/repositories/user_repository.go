package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/mmsi/orderdesk/app/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// UserRepository handles database operations for User.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) first(ctx context.Context, q string, args ...any) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(q, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return user, ErrNotFound
	}
	return user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *UserRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}

// All returns every user ordered by name.
func (r *UserRepository) All(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("name").Find(&users).Error
	return users, err
}

func (r *UserRepository) ActiveNominees(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND active = ?", models.RoleNominee, true).
		Order("name").
		Find(&users).Error
	return users, err
}

// NomineesByID loads the distinct nominees among ids, keyed by id.
func (r *UserRepository) NomineesByID(ctx context.Context, ids []string) (map[string]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("id IN ? AND role = ?", ids, models.RoleNominee).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *UserRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// DeactivateIdle switches off active users whose last login, or creation
// when they never logged in, is before cutoff. It returns their emails.
func (r *UserRepository) DeactivateIdle(ctx context.Context, cutoff time.Time) ([]string, error) {
	idle := r.db.WithContext(ctx).Model(&models.User{}).
		Where("active = ?", true).
		Where("(last_login_at IS NULL AND created_at < ?) OR last_login_at < ?", cutoff, cutoff)

	var users []models.User
	if err := idle.Session(&gorm.Session{}).Select("id", "email").Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}

	ids := make([]string, len(users))
	emails := make([]string, len(users))
	for i, u := range users {
		ids[i], emails[i] = u.ID, u.Email
	}
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", ids).Update("active", false).Error
	return emails, err
}
