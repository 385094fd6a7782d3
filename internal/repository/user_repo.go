package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository handles database operations for User
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("userRepo.Create: %w", translate(err))
	}
	return nil
}

// FindByID finds a user by UUID
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, fmt.Errorf("userRepo.FindByID: %w", translate(err))
	}
	return &user, nil
}

// FindByIDs returns the users among ids that exist, in no particular order
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	users := []model.User{}
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("userRepo.FindByIDs: %w", err)
	}
	return users, nil
}

// ListExcluding returns every user whose id is not in ids, ordered by name
func (r *UserRepository) ListExcluding(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	users := []model.User{}
	query := r.db.WithContext(ctx).Order("name ASC")
	if len(ids) > 0 {
		query = query.Where("id NOT IN ?", ids)
	}
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("userRepo.ListExcluding: %w", err)
	}
	return users, nil
}

// AddDevice adds or refreshes a push device token
func (r *UserRepository) AddDevice(ctx context.Context, userID uuid.UUID, token, deviceType string) error {
	now := time.Now()
	device := model.UserDevice{
		UserID:       userID,
		FCMToken:     token,
		DeviceType:   deviceType,
		LastActiveAt: now,
	}
	// Upsert: on conflict do update
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "fcm_token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_active_at": now,
			"device_type":    deviceType,
		}),
	}).Create(&device).Error
	if err != nil {
		return fmt.Errorf("userRepo.AddDevice: %w", err)
	}
	return nil
}

// GetUserDevices gets all devices for a user
func (r *UserRepository) GetUserDevices(ctx context.Context, userID uuid.UUID) ([]model.UserDevice, error) {
	var devices []model.UserDevice
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("userRepo.GetUserDevices: %w", err)
	}
	return devices, nil
}
