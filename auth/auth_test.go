package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huykn/inspector"
	"github.com/huykn/inspector/models"
)

func testUser() models.Usuario {
	return models.Usuario{ID: 7, Username: "ana", Email: "ana@example.com", Rol: models.RolAdmin}
}

func TestTokensIssueAndParse(t *testing.T) {
	tokens, err := NewTokens("secret", "HS256", time.Hour, nil)
	require.NoError(t, err)

	token, err := tokens.Issue(testUser())
	require.NoError(t, err)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "ana", claims.Username())
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.True(t, claims.IsAdmin())
}

func TestTokensRejectBadInput(t *testing.T) {
	_, err := NewTokens("", "HS256", time.Hour, nil)
	assert.Error(t, err)

	_, err = NewTokens("secret", "RS256", time.Hour, nil)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	tokens, err := NewTokens("secret", "HS256", time.Hour, nil)
	require.NoError(t, err)
	other, err := NewTokens("other", "HS256", time.Hour, nil)
	require.NoError(t, err)
	hs512, err := NewTokens("secret", "HS512", time.Hour, nil)
	require.NoError(t, err)

	foreign, err := other.Issue(testUser())
	require.NoError(t, err)
	_, err = tokens.Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, inspector.ErrUnauthorized)

	wrongAlg, err := hs512.Issue(testUser())
	require.NoError(t, err)
	_, err = tokens.Parse(wrongAlg)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse("")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = tokens.Parse("a.b.c")
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := noSubject.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tokens.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensExpiry(t *testing.T) {
	cache := NewTokenCache(10, time.Hour)
	tokens, err := NewTokens("secret", "HS256", time.Minute, cache)
	require.NoError(t, err)

	now := time.Now()
	tokens.now = func() time.Time { return now }

	token, err := tokens.Issue(testUser())
	require.NoError(t, err)

	_, err = tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	// Cached claims are still checked for expiry.
	tokens.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = tokens.Parse(token)
	assert.True(t, errors.Is(err, ErrTokenExpired))
	assert.Equal(t, 0, cache.Len())

	// And so are uncached ones.
	_, err = tokens.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenCache(t *testing.T) {
	tc := NewTokenCache(2, time.Hour)
	claims := &Claims{UserID: 1}

	_, ok := tc.Get("a")
	assert.False(t, ok)

	tc.Add("a", claims)
	got, ok := tc.Get("a")
	require.True(t, ok)
	assert.Same(t, claims, got)

	tc.Add("b", claims)
	tc.Add("c", claims)
	assert.Equal(t, 2, tc.Len())
	_, ok = tc.Get("a")
	assert.False(t, ok, "oldest token should be evicted")

	hits, misses := tc.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)

	tc.Remove("b")
	assert.Equal(t, 1, tc.Len())
	tc.Purge()
	assert.Equal(t, 0, tc.Len())
}

func TestHasher(t *testing.T) {
	h := NewHasher(4)

	hash, err := h.Hash("secreto123")
	require.NoError(t, err)
	assert.NotEqual(t, "secreto123", hash)
	assert.True(t, h.Check("secreto123", hash))
	assert.False(t, h.Check("otro", hash))
	assert.False(t, h.Check("secreto123", "not-a-hash"))

	// Out of range costs fall back to the default and still work.
	h = NewHasher(100)
	assert.NotZero(t, h.cost)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tokens, err := NewTokens("secret", "HS256", time.Hour, nil)
	require.NoError(t, err)
	adminToken, err := tokens.Issue(testUser())
	require.NoError(t, err)
	user := testUser()
	user.Rol = models.RolUser
	userToken, err := tokens.Issue(user)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/admin", Authenticate(tokens), RequireRoles(models.RolAdmin), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Username())
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
		{"wrong role", "Bearer " + userToken, http.StatusForbidden},
		{"admin", "Bearer " + adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "ana", w.Body.String())
			}
		})
	}
}
