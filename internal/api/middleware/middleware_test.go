package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagehand-music/stagehand/internal/auth"
	"github.com/stagehand-music/stagehand/internal/domain"
	"github.com/stagehand-music/stagehand/internal/storage/memory"
)

func TestRateLimiter_AllowAndRefill(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.Allow("10.0.0.2"), "clients have separate buckets")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "one token refilled")
	assert.False(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiter_ExpiresIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	rl.Allow("b")
	require.Len(t, rl.visitors, 2)

	now = now.Add(10 * time.Minute)
	rl.Allow("b")
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "b")
}

func TestRateLimiter_Handler(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), domain.ErrCodeRateLimited)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(req))

	req.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", clientIP(req))
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("disabled", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "https://site.example")
		CORS("")(ok).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusTeapot, rr.Code)
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("matching origin", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "https://site.example")
		CORS("https://site.example")(ok).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusTeapot, rr.Code)
		assert.Equal(t, "https://site.example", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
		assert.True(t, strings.EqualFold("ETag", rr.Header().Get("Access-Control-Expose-Headers")))
	})

	t.Run("foreign origin", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		CORS("https://site.example")(ok).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusTeapot, rr.Code)
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("OPTIONS", "/", nil)
		req.Header.Set("Origin", "https://site.example")
		req.Header.Set("Access-Control-Request-Method", "PUT")
		req.Header.Set("Access-Control-Request-Headers", "If-Match")
		CORS("https://site.example")(ok).ServeHTTP(rr, req)
		assert.NotEqual(t, http.StatusTeapot, rr.Code, "preflight must not reach the handler")
		assert.Equal(t, "https://site.example", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "PUT", rr.Header().Get("Access-Control-Allow-Methods"))
		assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "If-Match")
	})

	t.Run("preflight from foreign origin", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("OPTIONS", "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		req.Header.Set("Access-Control-Request-Method", "PUT")
		CORS("https://site.example")(ok).ServeHTTP(rr, req)
		assert.NotEqual(t, http.StatusTeapot, rr.Code)
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Methods"))
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Headers"))
	})
}

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromContext(r.Context())
		if p == nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(p.Kind + ":" + p.ID))
	})
}

func TestAuth_APIKey(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.CreateAPIKey(context.Background(), &domain.APIKey{
		ID: "k1", Name: "ci", KeyHash: hashAPIKey("sh_secret"), KeyPrefix: "sh_secre", CreatedAt: time.Now(),
	}))
	h := Auth(store, "bootstrap", nil)(principalEcho())

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid key", "Bearer sh_secret", http.StatusOK, "api_key:k1"},
		{"unknown key", "Bearer sh_other", http.StatusUnauthorized, ""},
		{"bootstrap ignored once keys exist", "Bearer bootstrap", http.StatusUnauthorized, ""},
		{"wrong scheme", "Token sh_secret", http.StatusUnauthorized, ""},
		{"empty key", "Bearer ", http.StatusUnauthorized, ""},
		{"missing header", "", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rr.Body.String())
			}
			if tt.status == http.StatusUnauthorized {
				assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAuth_Bootstrap(t *testing.T) {
	h := Auth(memory.New(), "bootstrap", nil)(principalEcho())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer bootstrap")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "bootstrap:bootstrap", rr.Body.String())

	// No bootstrap key configured means nothing gets in.
	h = Auth(memory.New(), "", nil)(principalEcho())
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_SessionCookie(t *testing.T) {
	sessions, err := auth.NewSessionManager(bytes.Repeat([]byte{7}, 32), time.Hour, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, sessions.Create(rec, &auth.Session{Subject: "sub-1", Email: "ops@band.example"}))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	h := Auth(memory.New(), "", sessions)(principalEcho())

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookies[0])
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "oidc:sub-1", rr.Body.String())

	// A tampered cookie is rejected.
	bad := *cookies[0]
	mid := len(bad.Value) / 2
	flipped := byte('A')
	if bad.Value[mid] == 'A' {
		flipped = 'B'
	}
	bad.Value = bad.Value[:mid] + string(flipped) + bad.Value[mid+1:]
	req = httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&bad)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
