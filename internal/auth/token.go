package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/xenon007/tasktracker/internal/apperr"
	"github.com/xenon007/tasktracker/internal/config"
	"github.com/xenon007/tasktracker/internal/models"
)

// Claims are the verified contents of an identity token.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"-"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 identity tokens.
type Tokens struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokens builds a token issuer from the auth configuration.
func NewTokens(cfg config.Auth) *Tokens {
	return &Tokens{
		key:      []byte(cfg.SigningKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TokenTTL,
		now:      time.Now,
	}
}

// Issue signs a token for the given user.
func (t *Tokens) Issue(userID int64, email string) (models.Token, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return models.Token{}, fmt.Errorf("sign token: %w", err)
	}
	return models.Token{Value: signed, ExpiresAt: expires.UTC()}, nil
}

// Verify checks signature, issuer, audience and expiry. Every failure is AuthFailed.
func (t *Tokens) Verify(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Claims{}, &apperr.Error{Kind: apperr.KindAuthFailed, Message: "invalid token", Err: err}
	}
	if claims.UserID <= 0 {
		return Claims{}, apperr.New(apperr.KindAuthFailed, "token carries no user id")
	}
	claims.Email = claims.Subject
	return claims, nil
}
