package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/middleware"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/realtime"
	"github.com/quocanhngo/chatcore/internal/service"
	"github.com/quocanhngo/chatcore/internal/service/servicetest"
	"github.com/quocanhngo/chatcore/pkg/auth"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	mem    *servicetest.Memory
	jwt    *auth.JWTManager
	hub    *realtime.Hub
	convs  *service.ConversationService

	alice, bob, carol, dave model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Nop()
	mem := servicetest.New()

	broker := realtime.NewLocalBroker()
	gateway := realtime.NewGateway(broker, 64, log)
	hub := realtime.NewHub(broker, log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go gateway.Run(ctx)
	go hub.Run(ctx)

	convSvc := service.NewConversationService(mem.Conversations(), mem.Messages(), mem.Users(), log)
	msgSvc := service.NewMessageService(mem.Conversations(), mem.Messages(), mem.Users(), gateway, nil, log)
	typingSvc := service.NewTypingService(mem.Conversations(), mem.Users(), gateway)
	channelAuth := realtime.NewAuthorizer(convSvc, log)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	router := gin.New()
	router.Use(middleware.RequestLogger(log), middleware.Recovery())

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtManager, nil))
	Routes{
		Conversations: NewConversationHandler(convSvc),
		Messages:      NewMessageHandler(msgSvc, typingSvc),
		Devices:       NewDeviceHandler(service.NewDeviceService(mem.Users())),
		Broadcast:     NewBroadcastHandler(channelAuth),
	}.Register(api)

	ws := NewWSHandler(hub, channelAuth, typingSvc, jwtManager, nil, []string{"*"}, log)
	router.GET("/ws", ws.HandleWebSocket)

	return &testEnv{
		router: router,
		mem:    mem,
		jwt:    jwtManager,
		hub:    hub,
		convs:  convSvc,
		alice:  mem.AddUser("Alice"),
		bob:    mem.AddUser("Bob"),
		carol:  mem.AddUser("Carol"),
		dave:   mem.AddUser("Dave"),
	}
}

func (e *testEnv) token(t *testing.T, u model.User) string {
	t.Helper()
	tok, err := e.jwt.GenerateToken(u.ID, u.Email, u.Name)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, as model.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token(t, as))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals the data envelope of a successful response into out
func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func (e *testEnv) startDirect(t *testing.T, a, b model.User) uuid.UUID {
	t.Helper()
	rec := e.do(t, a, http.MethodPost, "/api/v1/conversations", gin.H{"participant_id": b.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var conv struct {
		ID uuid.UUID `json:"id"`
	}
	decode(t, rec, &conv)
	return conv.ID
}

func serve(e *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
