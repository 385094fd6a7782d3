package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/quocanhngo/chatcore/internal/apperror"
	"github.com/quocanhngo/chatcore/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEvent returns the next event whose name is in names, skipping others
func readEvent(t *testing.T, conn *websocket.Conn, names ...string) realtime.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev realtime.Event
		require.NoError(t, json.Unmarshal(data, &ev))
		for _, n := range names {
			if ev.Name == n {
				return ev
			}
		}
	}
}

func TestWebSocketRejectsMissingOrBadToken(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/ws?token=garbage")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketRealtimeFlow(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	convID := env.startDirect(t, env.alice, env.bob)
	channel := realtime.ConversationChannel(convID).String()

	alice := dialWS(t, srv, env.token(t, env.alice))
	require.NoError(t, alice.WriteJSON(realtime.InboundFrame{Type: realtime.FrameSubscribe, Channel: "private-" + channel}))
	ev := readEvent(t, alice, realtime.EventSubscribed, realtime.EventSubscriptionError)
	require.Equal(t, realtime.EventSubscribed, ev.Name)
	assert.Equal(t, channel, ev.Channel)

	// typing from Bob reaches Alice on the conversation channel
	rec := env.do(t, env.bob, http.MethodPost, "/api/v1/typing", gin.H{"conversation_id": convID, "is_typing": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ev = readEvent(t, alice, realtime.EventUserTyping)
	assert.Equal(t, channel, ev.Channel)
	var typing realtime.TypingPayload
	require.NoError(t, json.Unmarshal(ev.Data, &typing))
	assert.Equal(t, env.bob.ID, typing.User.ID)
	assert.True(t, typing.IsTyping)

	// a message from Bob arrives on Alice's private chat channel
	rec = env.do(t, env.bob, http.MethodPost, "/api/v1/messages", gin.H{"conversation_id": convID, "text": "Hi Alice"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ev = readEvent(t, alice, realtime.EventMessageSent)
	assert.Equal(t, realtime.ChatChannel(env.alice.ID).String(), ev.Channel)
	var sent realtime.MessageSentPayload
	require.NoError(t, json.Unmarshal(ev.Data, &sent))
	assert.Equal(t, "Hi Alice", sent.Text)
	assert.Equal(t, env.bob.ID, sent.Sender.ID)
}

func TestWebSocketFrameErrors(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	convID := env.startDirect(t, env.alice, env.bob)
	dave := dialWS(t, srv, env.token(t, env.dave))

	require.NoError(t, dave.WriteJSON(realtime.InboundFrame{Type: realtime.FrameSubscribe, Channel: realtime.ConversationChannel(convID).String()}))
	ev := readEvent(t, dave, realtime.EventSubscribed, realtime.EventSubscriptionError)
	require.Equal(t, realtime.EventSubscriptionError, ev.Name)
	var payload realtime.ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, string(apperror.KindForbidden), payload.Error)

	require.NoError(t, dave.WriteJSON(realtime.InboundFrame{Type: realtime.FrameSubscribe, Channel: realtime.ChatChannel(env.alice.ID).String()}))
	ev = readEvent(t, dave, realtime.EventSubscribed, realtime.EventSubscriptionError)
	assert.Equal(t, realtime.EventSubscriptionError, ev.Name)

	require.NoError(t, dave.WriteJSON(realtime.InboundFrame{Type: realtime.FrameTyping, ConversationID: convID, IsTyping: true}))
	ev = readEvent(t, dave, realtime.EventError)
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, string(apperror.KindForbidden), payload.Error)

	require.NoError(t, dave.WriteJSON(map[string]string{"type": "dance"}))
	ev = readEvent(t, dave, realtime.EventError)
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, string(apperror.KindValidation), payload.Error)

	require.NoError(t, dave.WriteMessage(websocket.TextMessage, []byte("{not json")))
	ev = readEvent(t, dave, realtime.EventError)
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, "invalid_frame", payload.Error)

	require.NoError(t, dave.WriteJSON(realtime.InboundFrame{Type: realtime.FrameUnsubscribe, Channel: realtime.ChatChannel(env.dave.ID).String()}))
	ev = readEvent(t, dave, realtime.EventUnsubscribed)
	assert.Equal(t, realtime.ChatChannel(env.dave.ID).String(), ev.Channel)

	// the rejected subscription left no listener behind
	assert.Equal(t, 0, env.hub.Subscribers(realtime.ConversationChannel(convID)))
}
