package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	err error
}

func (s stubResolver) Resolve(_ context.Context, c *auth.Claims) (auth.Identity, error) {
	if s.err != nil {
		return auth.Identity{}, s.err
	}
	return auth.Identity{ID: c.UserID, Role: c.Role, TokenID: c.ID}, nil
}

func echoIdentity(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(id.ID + ":" + id.Role))
	})
}

func TestAuthenticateMissingToken(t *testing.T) {
	rec := httptest.NewRecorder()
	Authenticate(stubResolver{})(echoIdentity(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateHeaderAndQuery(t *testing.T) {
	tok, err := auth.GenerateToken("u-1", auth.RoleNominee)
	require.NoError(t, err)
	h := Authenticate(stubResolver{})(echoIdentity(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "u-1:NOMINEE", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?token="+tok, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticateResolverRejects(t *testing.T) {
	tok, _ := auth.GenerateToken("u-1", auth.RoleAdmin)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()

	Authenticate(stubResolver{err: errors.New("revoked")})(echoIdentity(t)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLimiterWindow(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ok, _ := l.Allow("1.2.3.4")
	assert.True(t, ok)
	ok, _ = l.Allow("1.2.3.4")
	assert.True(t, ok)
	ok, retry := l.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retry)

	ok, _ = l.Allow("5.6.7.8")
	assert.True(t, ok)

	now = now.Add(61 * time.Second)
	ok, _ = l.Allow("1.2.3.4")
	assert.True(t, ok)
}

func TestRateLimitResponds429(t *testing.T) {
	h := RateLimit(1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "request %d", i)
	}
}

func TestRecoveryReturns500(t *testing.T) {
	rec := httptest.NewRecorder()
	Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := CORS(DefaultCORSOptions([]string{"https://desk.example"}))(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodOptions, "/api/recheck", nil)
	req.Header.Set("Origin", "https://desk.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://desk.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
