package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is the iss claim of every access token
const Issuer = "chatcore"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims identify the user a request or websocket connection acts for.
// Subject always repeats UserID; ID is unique per token.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	jwt.RegisteredClaims
}

// Option configures a JWTManager
type Option func(*JWTManager)

// WithLeeway tolerates clock skew between instances when checking exp and iat
func WithLeeway(d time.Duration) Option {
	return func(j *JWTManager) { j.leeway = d }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(j *JWTManager) { j.now = now }
}

// JWTManager mints and checks HS256 access tokens
type JWTManager struct {
	secret []byte
	expiry time.Duration
	leeway time.Duration
	now    func() time.Time
}

func NewJWTManager(secret string, expiry time.Duration, opts ...Option) *JWTManager {
	j := &JWTManager{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// GenerateToken mints an access token for userID
func (j *JWTManager) GenerateToken(userID uuid.UUID, email, name string) (string, error) {
	if userID == uuid.Nil {
		return "", fmt.Errorf("generate token: %w: no user id", ErrInvalidToken)
	}
	now := j.now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

// ValidateToken returns the claims of a well-formed, unexpired token.
// Errors wrap ErrExpiredToken or ErrInvalidToken.
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return j.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(j.leeway),
		jwt.WithTimeFunc(j.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.UserID == uuid.Nil || claims.Subject != claims.UserID.String() {
		return nil, fmt.Errorf("%w: subject does not match user_id", ErrInvalidToken)
	}
	return claims, nil
}
