package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/huykn/inspector"
	"github.com/huykn/inspector/models"
)

// Token errors. Both wrap inspector.ErrUnauthorized.
var (
	ErrInvalidToken = fmt.Errorf("invalid token: %w", inspector.ErrUnauthorized)
	ErrTokenExpired = fmt.Errorf("token expired: %w", inspector.ErrUnauthorized)
)

// ErrUnsupportedAlgorithm is returned for a non-HMAC signing algorithm.
var ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// Claims are the JWT claims issued at login. Subject carries the username.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"id"`
	Rol    string `json:"rol"`
	Email  string `json:"email"`
}

// IsAdmin reports whether the token was issued to an admin.
func (c *Claims) IsAdmin() bool { return c.Rol == models.RolAdmin }

// Username returns the username the token was issued to.
func (c *Claims) Username() string { return c.Subject }

// Tokens issues and verifies access tokens.
type Tokens struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	cache  *TokenCache
	now    func() time.Time
}

// NewTokens creates a token issuer. algorithm is one of HS256, HS384 or HS512.
// cache may be nil.
func NewTokens(secret, algorithm string, ttl time.Duration, cache *TokenCache) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("jwt secret not configured")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	return &Tokens{secret: []byte(secret), method: method, ttl: ttl, cache: cache, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens.
func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue signs a token for u.
func (t *Tokens) Issue(u models.Usuario) (string, error) {
	now := t.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		UserID: u.ID,
		Rol:    u.Rol,
		Email:  u.Email,
	}
	return jwt.NewWithClaims(t.method, claims).SignedString(t.secret)
}

// Parse verifies token and returns its claims.
func (t *Tokens) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	if t.cache != nil {
		if claims, ok := t.cache.Get(token); ok {
			if claims.ExpiresAt != nil && !t.now().Before(claims.ExpiresAt.Time) {
				t.cache.Remove(token)
				return nil, ErrTokenExpired
			}
			return claims, nil
		}
	}

	parser := jwt.Parser{ValidMethods: []string{t.method.Alg()}, SkipClaimsValidation: true}
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || !t.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}

	if t.cache != nil {
		t.cache.Add(token, claims)
	}
	return claims, nil
}
