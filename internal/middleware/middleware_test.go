package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/pkg/auth"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type revocations map[string]bool

func (r revocations) IsRevoked(_ context.Context, token string) (bool, error) {
	if token == "broken" {
		return false, errors.New("redis down")
	}
	return r[token], nil
}

func newAuthRouter(jwt *auth.JWTManager, revoked RevocationChecker) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(logger.Nop()), AuthMiddleware(jwt, revoked))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c).String())
	})
	return r
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	jwt := auth.NewJWTManager("secret", time.Hour)
	userID := uuid.New()
	token, err := jwt.GenerateToken(userID, "alice@example.com", "Alice")
	require.NoError(t, err)

	r := newAuthRouter(jwt, revocations{})

	rec := get(r, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID.String(), rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer nonsense").Code)

	other := auth.NewJWTManager("other-secret", time.Hour)
	forged, err := other.GenerateToken(userID, "alice@example.com", "Alice")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+forged).Code)
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	old := auth.NewJWTManager("secret", time.Hour, auth.WithClock(func() time.Time { return issued }))
	token, err := old.GenerateToken(uuid.New(), "alice@example.com", "Alice")
	require.NoError(t, err)

	rec := get(newAuthRouter(auth.NewJWTManager("secret", time.Hour), nil), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized","message":"token expired"}`, rec.Body.String())
}

func TestAuthMiddlewareRevocation(t *testing.T) {
	jwt := auth.NewJWTManager("secret", time.Hour)
	token, err := jwt.GenerateToken(uuid.New(), "bob@example.com", "Bob")
	require.NoError(t, err)

	r := newAuthRouter(jwt, revocations{token: true})
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+token).Code)

	// the revocation store failing must not let the request through
	assert.Equal(t, http.StatusInternalServerError, get(r, "Bearer broken").Code)

	open := newAuthRouter(jwt, nil)
	assert.Equal(t, http.StatusOK, get(open, "Bearer "+token).Code)
}

func TestRequestLoggerCorrelationID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(logger.Nop()))
	r.GET("/ping", func(c *gin.Context) {
		assert.NotNil(t, LoggerFrom(c))
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderCorrelationID, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderCorrelationID))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	_, err := uuid.Parse(rec.Header().Get(HeaderCorrelationID))
	assert.NoError(t, err)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(logger.Nop()), Recovery())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"server_error","message":"internal server error"}`, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
