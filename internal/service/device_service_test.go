package service

import (
	"context"
	"testing"

	"github.com/quocanhngo/chatcore/internal/apperror"
	"github.com/quocanhngo/chatcore/internal/service/servicetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDevice(t *testing.T) {
	mem := servicetest.New()
	alice := mem.AddUser("Alice")
	svc := NewDeviceService(mem.Users())
	ctx := context.Background()

	require.NoError(t, svc.RegisterDevice(ctx, alice.ID, "token-1", "android"))
	require.NoError(t, svc.RegisterDevice(ctx, alice.ID, " token-1 ", "ios"))

	devices := mem.Devices(alice.ID)
	require.Len(t, devices, 1)
	assert.Equal(t, "token-1", devices[0].FCMToken)
	assert.Equal(t, "ios", devices[0].DeviceType)

	assertKind(t, svc.RegisterDevice(ctx, alice.ID, "  ", "web"), apperror.KindValidation)
	assertKind(t, svc.RegisterDevice(ctx, alice.ID, "token-2", "blackberry"), apperror.KindValidation)
}
