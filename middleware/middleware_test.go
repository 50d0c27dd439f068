package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"courtwise/services/quota"
	"courtwise/services/session"
	"courtwise/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockSessions struct {
	GetFn func(key string) (*session.Synchronizer, error)
}

func (m *mockSessions) Get(key string) (*session.Synchronizer, error) {
	return m.GetFn(key)
}

func unstarted(key string) *session.Synchronizer {
	return session.NewSynchronizer(key, session.Deps{Ledger: quota.NewLedger(nil, 1, nil)})
}

func TestSessionAuthMiddleware(t *testing.T) {
	token, err := utils.GenerateSessionToken("key-abc", time.Hour)
	require.NoError(t, err)

	var requested string
	sessions := &mockSessions{GetFn: func(key string) (*session.Synchronizer, error) {
		requested = key
		return unstarted(key), nil
	}}

	r := gin.New()
	r.GET("/api/x", SessionAuthMiddleware(sessions), func(c *gin.Context) {
		s := c.MustGet("session").(*session.Synchronizer)
		c.JSON(http.StatusOK, gin.H{"key": c.GetString("sessionKey"), "sync": s.Key()})
	})

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{name: "missing header", header: "", wantCode: http.StatusUnauthorized},
		{name: "not bearer", header: "Token " + token, wantCode: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not.a.jwt", wantCode: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + token, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
	assert.Equal(t, "key-abc", requested)
}

func TestSessionAuthMiddleware_ManagerClosed(t *testing.T) {
	token, err := utils.GenerateSessionToken("key-abc", time.Hour)
	require.NoError(t, err)
	sessions := &mockSessions{GetFn: func(string) (*session.Synchronizer, error) { return nil, session.ErrClosed }}

	r := gin.New()
	r.GET("/api/x", SessionAuthMiddleware(sessions), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSessionAuthMiddleware_ExpiredToken(t *testing.T) {
	token, err := utils.GenerateSessionToken("key-abc", -time.Minute)
	require.NoError(t, err)
	sessions := &mockSessions{GetFn: func(key string) (*session.Synchronizer, error) {
		t.Fatal("expired token must not open a session")
		return nil, nil
	}}

	r := gin.New()
	r.GET("/api/x", SessionAuthMiddleware(sessions), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(2))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Forwarded-For", ip)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("203.0.113.1"))
	assert.Equal(t, http.StatusOK, hit("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("203.0.113.1"))
	assert.Equal(t, http.StatusOK, hit("203.0.113.2"), "limits are per client")
}

func TestRateLimiterStore_Prune(t *testing.T) {
	store := newRateLimiterStore(10)
	store.getLimiter("a")
	store.getLimiter("b")
	store.limiters["a"].lastSeen = time.Now().Add(-time.Hour)

	store.prune(10 * time.Minute)
	assert.NotContains(t, store.limiters, "a")
	assert.Contains(t, store.limiters, "b")
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded", headers: map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.1"}, remote: "10.0.0.2:1234", want: "198.51.100.7"},
		{name: "bad forwarded falls back to real ip", headers: map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "198.51.100.8"}, remote: "10.0.0.2:1234", want: "198.51.100.8"},
		{name: "remote addr", remote: "192.0.2.10:5555", want: "192.0.2.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(c))
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/cases/:id", func(c *gin.Context) {
		_, ok := c.Get("logger")
		assert.True(t, ok)
		c.Status(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/cases/c1", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	entries := logs.FilterMessage("Request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["requestID"])
	assert.Equal(t, "/cases/:id", fields["path"])
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
}
