package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/chatcore/internal/middleware"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/service"
)

// DeviceHandler registers push notification devices
type DeviceHandler struct {
	devices *service.DeviceService
}

func NewDeviceHandler(devices *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

// RegisterDevice godoc
// @Summary Register a push notification token
// @Tags Devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.RegisterDeviceRequest true "Device"
// @Success 200 {object} model.DataResponse
// @Router /devices [post]
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	var req model.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.devices.RegisterDevice(c.Request.Context(), middleware.UserID(c), req.FCMToken, req.DeviceType); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, emptyData)
}
