package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/middleware"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/realtime"
)

// ChannelAuthorizer decides channel subscriptions
type ChannelAuthorizer interface {
	Authorize(ctx context.Context, userID uuid.UUID, channelName string) (realtime.Channel, error)
}

// BroadcastHandler answers private channel authorization requests
type BroadcastHandler struct {
	auth ChannelAuthorizer
}

func NewBroadcastHandler(auth ChannelAuthorizer) *BroadcastHandler {
	return &BroadcastHandler{auth: auth}
}

// Authorize godoc
// @Summary Authorize a private channel subscription
// @Tags Realtime
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.ChannelAuthRequest true "Channel"
// @Success 200 {object} model.DataResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /broadcasting/auth [post]
func (h *BroadcastHandler) Authorize(c *gin.Context) {
	var req model.ChannelAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	ch, err := h.auth.Authorize(c.Request.Context(), middleware.UserID(c), req.ChannelName)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, gin.H{"channel": ch.String()})
}
