package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"courtwise/models"
	"courtwise/services/cases"
	"courtwise/services/identity"
	"courtwise/services/quota"
	"courtwise/services/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeSession is a ClientSession whose state the test sets directly.
type fakeSession struct {
	mu    sync.Mutex
	key   string
	state session.State
	token string
	day   string

	LoginFn   func(creds models.Credentials) (*models.Identity, error)
	SignupFn  func(creds models.Credentials, meta models.SignUpMetadata) (*models.Identity, error)
	LogoutFn  func() error
	RefreshFn func() error
	CheckFn   func() (*models.SubscriptionStatus, error)
	ReloadFn  func() (session.State, error)

	decrements int
	reloads    int
}

func guest() *fakeSession {
	return &fakeSession{key: "key-1", state: session.State{
		Role:           models.RoleFree,
		UserName:       models.GuestDisplayName,
		RemainingCases: 1,
	}}
}

func signedInAs(id string, role models.Role, remaining quota.Remaining) *fakeSession {
	return &fakeSession{key: "key-1", token: "access-" + id, state: session.State{
		IsLoggedIn:     true,
		User:           &models.Identity{ID: id, Email: id + "@example.com"},
		Profile:        &models.Profile{ID: id, FullName: "Asha Rao", Role: role},
		Role:           role,
		UserName:       "Asha Rao",
		RemainingCases: remaining,
	}}
}

func (f *fakeSession) set(st session.State) {
	f.mu.Lock()
	f.state = st
	f.mu.Unlock()
}

func (f *fakeSession) Key() string { return f.key }

func (f *fakeSession) Snapshot() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSession) RemainingCases() quota.Remaining { return f.Snapshot().RemainingCases }

func (f *fakeSession) ViewGrant() (cases.Grant, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.state.IsLoggedIn || f.state.User == nil {
		return cases.Grant{}, false
	}
	day := f.day
	if day == "" {
		day = "2026-10-14"
	}
	return cases.Grant{UserID: f.state.User.ID, Role: f.state.Role, Date: day}, true
}

func (f *fakeSession) setDay(day string) {
	f.mu.Lock()
	f.day = day
	f.mu.Unlock()
}

func (f *fakeSession) WaitReady(ctx context.Context) (session.State, error) {
	return f.WaitFor(ctx, func(st session.State) bool { return !st.Loading })
}

// WaitFor does not block: a condition that does not already hold times out.
func (f *fakeSession) WaitFor(ctx context.Context, cond func(session.State) bool) (session.State, error) {
	st := f.Snapshot()
	if cond(st) {
		return st, nil
	}
	return st, context.DeadlineExceeded
}

func (f *fakeSession) Login(ctx context.Context, creds models.Credentials) (*models.Identity, error) {
	return f.LoginFn(creds)
}

func (f *fakeSession) Signup(ctx context.Context, creds models.Credentials, meta models.SignUpMetadata) (*models.Identity, error) {
	return f.SignupFn(creds, meta)
}

func (f *fakeSession) Logout(ctx context.Context) error {
	if f.LogoutFn != nil {
		return f.LogoutFn()
	}
	f.set(guest().state)
	return nil
}

func (f *fakeSession) RefreshToken(ctx context.Context) error {
	if f.RefreshFn != nil {
		return f.RefreshFn()
	}
	return nil
}

func (f *fakeSession) DecrementRemainingCases(ctx context.Context) (quota.Remaining, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.state.IsLoggedIn {
		return f.state.RemainingCases, false, identity.ErrNotLoggedIn
	}
	if f.state.RemainingCases.IsUnlimited() {
		return quota.Unlimited, true, nil
	}
	if f.state.RemainingCases <= 0 {
		return 0, false, nil
	}
	f.decrements++
	f.state.RemainingCases--
	return f.state.RemainingCases, true, nil
}

func (f *fakeSession) RefreshSubscription(ctx context.Context) (*models.SubscriptionStatus, session.State, error) {
	status, err := f.CheckFn()
	if err != nil {
		return nil, f.Snapshot(), err
	}
	f.mu.Lock()
	f.state.Role = status.Role
	if !status.Role.Metered() {
		f.state.RemainingCases = quota.Unlimited
	}
	f.mu.Unlock()
	return status, f.Snapshot(), nil
}

func (f *fakeSession) ReloadProfile(ctx context.Context) (session.State, error) {
	f.mu.Lock()
	f.reloads++
	f.mu.Unlock()
	if f.ReloadFn != nil {
		return f.ReloadFn()
	}
	return f.Snapshot(), nil
}

func (f *fakeSession) AccessToken(ctx context.Context) (string, error) {
	if !f.Snapshot().IsLoggedIn {
		return "", identity.ErrNotLoggedIn
	}
	return f.token, nil
}

// newRouter returns an engine that puts s in the context the way the session middleware does.
func newRouter(s ClientSession) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("logger", zap.NewNop())
		if s != nil {
			c.Set("sessionKey", s.Key())
			c.Set("session", s)
		}
		c.Next()
	})
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
