package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/apperror"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/pkg/auth"
)

const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
)

// TokenValidator validates a bearer token
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// RevocationChecker reports whether a token has been revoked (logged out)
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// AuthMiddleware validates JWT tokens and injects the user id into the context.
// revoked may be nil to skip the revocation check.
func AuthMiddleware(tokens TokenValidator, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			unauthorized(c, "invalid authorization format, use: Bearer <token>")
			return
		}
		tokenString := parts[1]

		if revoked != nil {
			isRevoked, err := revoked.IsRevoked(c.Request.Context(), tokenString)
			if err != nil {
				// Fail closed
				LoggerFrom(c).Error("revocation check failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{Error: string(apperror.KindInternal), Message: "auth server error"})
				return
			}
			if isRevoked {
				unauthorized(c, "token has been revoked")
				return
			}
		}

		claims, err := tokens.ValidateToken(tokenString)
		if errors.Is(err, auth.ErrExpiredToken) {
			unauthorized(c, "token expired")
			return
		}
		if err != nil {
			unauthorized(c, "invalid token")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized", Message: msg})
}

// UserID returns the authenticated user id set by AuthMiddleware
func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ctxUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
