package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lumen-app/lumen/internal/shared"
)

// TokenCodec issues and verifies bearer tokens carrying a user identity.
type TokenCodec interface {
	Issue(userID string) (string, error)
	Verify(token string) (string, error)
}

// Claims extends the registered JWT claims with the user identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
}

// JWTCodec signs HS256 tokens with a server-held secret and a fixed TTL.
// Tokens are never persisted; verification is signature plus expiry only.
type JWTCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTCodec constructs a codec. TTL is a process-wide constant.
func NewJWTCodec(secret string, ttl time.Duration) *JWTCodec {
	return &JWTCodec{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the given user id expiring after the codec TTL.
func (c *JWTCodec) Issue(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
	})
	return token.SignedString(c.secret)
}

// Verify parses and validates the token and returns the embedded user id.
// Signature mismatch, malformed input and expiry all map to
// shared.ErrInvalidToken.
func (c *JWTCodec) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, shared.ErrInvalidToken
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid || claims.UserID == "" {
		return "", shared.ErrInvalidToken
	}
	return claims.UserID, nil
}

var _ TokenCodec = (*JWTCodec)(nil)
