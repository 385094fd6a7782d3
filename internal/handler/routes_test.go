package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/apperror"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(apperror.KindValidation))
	assert.Equal(t, http.StatusNotFound, StatusFor(apperror.KindNotFound))
	assert.Equal(t, http.StatusForbidden, StatusFor(apperror.KindForbidden))
	assert.Equal(t, http.StatusNotFound, StatusFor(apperror.KindConflict))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(apperror.KindInternal))
}

func TestRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	rec := serve(env, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStartConversationConflictIs404(t *testing.T) {
	env := newTestEnv(t)
	env.startDirect(t, env.alice, env.bob)

	rec := env.do(t, env.bob, http.MethodPost, "/api/v1/conversations", gin.H{"participant_id": env.alice.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(apperror.KindConflict), errorBody(t, rec).Error)
}

func TestBindErrorsAre422(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, env.alice, http.MethodPost, "/api/v1/conversations", gin.H{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(apperror.KindValidation), errorBody(t, rec).Error)

	rec = env.do(t, env.alice, http.MethodPost, "/api/v1/conversations", gin.H{"participant_id": "not-a-uuid"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, env.alice, http.MethodPost, "/api/v1/groups", gin.H{"name": "Team"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, env.alice, http.MethodPost, "/api/v1/devices", gin.H{"fcm_token": "t", "device_type": "pager"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMessageFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	convID := env.startDirect(t, env.alice, env.bob)

	rec := env.do(t, env.alice, http.MethodPost, "/api/v1/messages", gin.H{"conversation_id": convID, "text": "Hello"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sent model.MessageView
	decode(t, rec, &sent)
	assert.Equal(t, model.MessageMine, sent.Type)

	rec = env.do(t, env.bob, http.MethodGet, "/api/v1/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []struct {
		ID          uuid.UUID `json:"id"`
		UnreadCount int64     `json:"unread_count"`
		LastMessage *string   `json:"last_message"`
	}
	decode(t, rec, &views)
	require.Len(t, views, 1)
	assert.EqualValues(t, 1, views[0].UnreadCount)
	require.NotNil(t, views[0].LastMessage)
	assert.Equal(t, "Hello", *views[0].LastMessage)

	rec = env.do(t, env.bob, http.MethodGet, "/api/v1/conversations/"+convID.String()+"/messages?page=1&per_page=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []model.MessageView
	decode(t, rec, &msgs)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.MessageTheirs, msgs[0].Type)

	rec = env.do(t, env.bob, http.MethodPost, "/api/v1/conversations/"+convID.String()+"/read", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	rec = env.do(t, env.bob, http.MethodGet, "/api/v1/conversations/"+convID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		UnreadCount int64 `json:"unread_count"`
	}
	decode(t, rec, &view)
	assert.EqualValues(t, 0, view.UnreadCount)
}

func TestNonMemberGets403(t *testing.T) {
	env := newTestEnv(t)
	convID := env.startDirect(t, env.alice, env.bob)

	rec := env.do(t, env.dave, http.MethodGet, "/api/v1/conversations/"+convID.String()+"/messages", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(apperror.KindForbidden), errorBody(t, rec).Error)

	rec = env.do(t, env.dave, http.MethodPost, "/api/v1/typing", gin.H{"conversation_id": convID, "is_typing": true})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMalformedPathIDIs404(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, env.alice, http.MethodGet, "/api/v1/conversations/nope/messages", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, env.alice, http.MethodDelete, "/api/v1/messages/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGroupRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, env.alice, http.MethodPost, "/api/v1/groups", gin.H{
		"name":            "Team",
		"participant_ids": []uuid.UUID{env.bob.ID, env.carol.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var group struct {
		ID                uuid.UUID   `json:"id"`
		IsGroup           bool        `json:"is_group"`
		GroupName         string      `json:"group_name"`
		GroupParticipants []uuid.UUID `json:"group_participants"`
	}
	decode(t, rec, &group)
	assert.True(t, group.IsGroup)
	assert.Equal(t, "Team", group.GroupName)
	assert.Equal(t, []uuid.UUID{env.alice.ID, env.bob.ID, env.carol.ID}, group.GroupParticipants)

	base := "/api/v1/groups/" + group.ID.String()

	rec = env.do(t, env.alice, http.MethodDelete, base+"/members/"+env.carol.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, env.bob, http.MethodGet, base+"/members", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members []model.User
	decode(t, rec, &members)
	require.Len(t, members, 2)
	assert.Equal(t, env.alice.ID, members[0].ID)
	assert.Equal(t, env.bob.ID, members[1].ID)

	rec = env.do(t, env.bob, http.MethodGet, base+"/available-users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var available []model.User
	decode(t, rec, &available)
	assert.Len(t, available, 2)

	rec = env.do(t, env.bob, http.MethodPost, base+"/members", gin.H{"user_ids": []uuid.UUID{env.carol.ID}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, env.carol, http.MethodPut, base, gin.H{"name": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, env.dave, http.MethodPut, base, gin.H{"name": "Mine now"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, env.bob, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, env.bob, http.MethodGet, base+"/members", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, env.alice, http.MethodPost, base+"/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBroadcastAuth(t *testing.T) {
	env := newTestEnv(t)
	convID := env.startDirect(t, env.alice, env.bob)

	rec := env.do(t, env.bob, http.MethodPost, "/api/v1/broadcasting/auth", gin.H{"channel_name": "private-conversation." + convID.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Channel string `json:"channel"`
	}
	decode(t, rec, &out)
	assert.Equal(t, "conversation."+convID.String(), out.Channel)

	rec = env.do(t, env.dave, http.MethodPost, "/api/v1/broadcasting/auth", gin.H{"channel_name": "conversation." + convID.String()})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, env.dave, http.MethodPost, "/api/v1/broadcasting/auth", gin.H{"channel_name": "chat." + env.alice.ID.String()})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegisterDevice(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, env.alice, http.MethodPost, "/api/v1/devices", gin.H{"fcm_token": "tok", "device_type": "web"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, env.mem.Devices(env.alice.ID), 1)
}
