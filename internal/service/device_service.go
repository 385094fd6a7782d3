package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/apperror"
)

var deviceTypes = map[string]struct{}{"android": {}, "ios": {}, "web": {}}

// DeviceService registers push notification targets
type DeviceService struct {
	users UserStore
}

func NewDeviceService(users UserStore) *DeviceService {
	return &DeviceService{users: users}
}

// RegisterDevice adds or refreshes a push token for currentUser
func (s *DeviceService) RegisterDevice(ctx context.Context, currentUser uuid.UUID, token, deviceType string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperror.Validation("fcm_token is required")
	}
	if _, ok := deviceTypes[deviceType]; !ok {
		return apperror.Validation("device_type must be one of android, ios, web")
	}
	if err := s.users.AddDevice(ctx, currentUser, token, deviceType); err != nil {
		return apperror.Internal(err)
	}
	return nil
}
