package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"

	"github.com/georgemunganga/tillkeeper/internal/modules/user"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims issued at login.
type Claims struct {
	Role    string `json:"role"`
	StoreID string `json:"store_id,omitempty"`
	jwt.StandardClaims
}

// Tokens issues and verifies HS256 access tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for u and returns it with its expiry.
func (t *Tokens) Issue(u *user.User) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	claims := &Claims{
		Role: string(u.Role),
		StandardClaims: jwt.StandardClaims{
			Subject:   u.ID.String(),
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	}
	if u.StoreID != nil {
		claims.StoreID = u.StoreID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies raw and returns the actor it names.
func (t *Tokens) Parse(raw string) (Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	role := user.Role(claims.Role)
	if !role.Valid() {
		return Actor{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	actor := Actor{UserID: userID, Role: role}
	if claims.StoreID != "" {
		storeID, err := uuid.Parse(claims.StoreID)
		if err != nil {
			return Actor{}, fmt.Errorf("%w: bad store_id", ErrInvalidToken)
		}
		actor.StoreID = &storeID
	}
	return actor, nil
}
