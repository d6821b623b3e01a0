package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-rental/internal/config"
	"github.com/iliyamo/parking-rental/internal/model"
	"github.com/iliyamo/parking-rental/internal/utils"
)

const testSecret = "test-secret"

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"caller": Caller(c).String()})
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/any", okHandler, JWTAuth(testSecret))
	e.GET("/owner", okHandler, JWTAuth(testSecret), RequireRole(model.RoleOwner))

	customer, err := utils.NewAccessToken(testSecret, 7, model.RoleCustomer, 5)
	require.NoError(t, err)
	forged, err := utils.NewAccessToken("other", 7, model.RoleOwner, 5)
	require.NoError(t, err)

	testCases := []struct {
		name       string
		path       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{"missing token", "/any", "", http.StatusUnauthorized, "missing bearer token"},
		{"forged token", "/any", forged.Token, http.StatusUnauthorized, "invalid token"},
		{"valid token", "/any", customer.Token, http.StatusOK, `"caller":"user:7"`},
		{"wrong role", "/owner", customer.Token, http.StatusForbidden, "forbidden"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, tc.path, tc.token)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}

func TestCallerAnonymous(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, model.NoRenter, Caller(c))
	c.Set(CtxUserID, uint64(0))
	assert.Equal(t, model.NoRenter, Caller(c))
}

func TestTokenBucketLocalFallback(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		Prefix:         "test",
	}
	e := echo.New()
	e.POST("/spots", okHandler, NewTokenBucket(cfg, nil))

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodPost, "/spots", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := serve(e, http.MethodPost, "/spots", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "too_many_requests")
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	e.POST("/spots", okHandler, NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/spots", "").Code)
	}
}

func TestLocalLimiterForgetsIdleKeys(t *testing.T) {
	l := newLocalLimiter(config.RateLimitConfig{Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Minute})
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	d, err := l.take(nil, "k")
	require.NoError(t, err)
	assert.True(t, d.allowed)
	d, _ = l.take(nil, "k")
	assert.False(t, d.allowed)

	now = now.Add(2 * time.Minute)
	d, _ = l.take(nil, "k")
	assert.True(t, d.allowed, "idle bucket should be dropped and recreated full")
}

func TestPayloadEncoding(t *testing.T) {
	hdr := http.Header{echo.HeaderContentType: {echo.MIMEApplicationJSON}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"id":1}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, echo.MIMEApplicationJSON, gotHdr.Get(echo.HeaderContentType))
	assert.Equal(t, `{"id":1}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}

func TestCaptureWriterTruncation(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.truncated())
	_, _ = cw.Write([]byte("def"))
	assert.True(t, cw.truncated())
	assert.Equal(t, "abcdef", rec.Body.String())
}

func TestRedisCacheDisabledPassesThrough(t *testing.T) {
	e := echo.New()
	e.GET("/spots", okHandler, NewRedisCache(config.CacheConfig{Enabled: true}, nil))
	rec := serve(e, http.MethodGet, "/spots", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}
