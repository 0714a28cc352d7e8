// Package invite issues invitation tokens and mails them to people who have not yet
// granted the organisation write access to their remote record.
package invite

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/domain/model"
)

const issuer = "recordhub"

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid invitation token")

// Claims are carried by an invitation token.
type Claims struct {
	Email        string `json:"email"`
	OrgID        uint   `json:"org_id"`
	TaskID       uint   `json:"task_id,omitempty"`
	Affiliations string `json:"affiliations,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs invitation tokens with HMAC-SHA256.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(cfg *config.Config) *TokenIssuer {
	ic := cfg.RecordHub.Invitation
	ttl := time.Duration(ic.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(ic.Secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for inv, assigning inv.TokenID. It returns the token and its expiry.
func (i *TokenIssuer) Issue(inv *model.Invitation) (string, time.Time, error) {
	if len(i.secret) == 0 {
		return "", time.Time{}, errors.New("invitation secret is not configured")
	}
	now := i.now()
	expires := now.Add(i.ttl)
	inv.TokenID = uuid.NewString()
	claims := Claims{
		Email:  inv.Email,
		OrgID:  inv.OrgID,
		TaskID: inv.TaskID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        inv.TokenID,
			Issuer:    issuer,
			Subject:   inv.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	if inv.Affiliations != 0 {
		claims.Affiliations = inv.Affiliations.String()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign invitation token: %w", err)
	}
	return signed, expires, nil
}

// Verify checks the token and returns its claims.
func (i *TokenIssuer) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
