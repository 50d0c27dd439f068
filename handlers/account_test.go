package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"courtwise/models"
	"courtwise/services/news"
	"courtwise/services/quota"
	"courtwise/services/session"
	"courtwise/services/storage"
	"courtwise/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

// --- profile ---

type mockProfiles struct {
	UpdateFn func(id string, update models.ProfileUpdate) (*models.Profile, error)
}

func (m *mockProfiles) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return nil, nil
}

func (m *mockProfiles) Create(ctx context.Context, profile *models.Profile) error { return nil }

func (m *mockProfiles) Update(ctx context.Context, id string, update models.ProfileUpdate) (*models.Profile, error) {
	return m.UpdateFn(id, update)
}

func (m *mockProfiles) UpdateRole(ctx context.Context, id string, role models.Role) error {
	return nil
}

type mockAvatars struct {
	UploadFn func(userID string, data []byte) (string, error)
}

func (m *mockAvatars) UploadAvatar(ctx context.Context, userID string, file io.Reader) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	return m.UploadFn(userID, data)
}

func (m *mockAvatars) DeleteAvatar(ctx context.Context, userID string) error { return nil }

func profileRouter(s ClientSession, profiles *mockProfiles, avatars storage.AvatarStorage) *gin.Engine {
	h := NewProfileHandler(profiles, avatars)
	r := newRouter(s)
	r.GET("/api/profile", h.GetProfileHandler)
	r.PUT("/api/profile", h.UpdateProfileHandler)
	r.POST("/api/profile/avatar", h.UploadAvatarHandler)
	return r
}

func TestGetProfileHandler(t *testing.T) {
	w := doJSON(t, profileRouter(signedInAs("u1", models.RoleFree, 1), &mockProfiles{}, nil), http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Asha Rao", body["user_name"])
	assert.Equal(t, "free", body["role"])

	w = doJSON(t, profileRouter(guest(), &mockProfiles{}, nil), http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfileHandler_ReloadsSession(t *testing.T) {
	s := signedInAs("u1", models.RoleFree, 1)
	s.ReloadFn = func() (session.State, error) {
		st := s.Snapshot()
		st.UserName = "Asha R."
		return st, nil
	}
	profiles := &mockProfiles{UpdateFn: func(id string, update models.ProfileUpdate) (*models.Profile, error) {
		assert.Equal(t, "u1", id)
		require.NotNil(t, update.FullName)
		return &models.Profile{ID: id, FullName: *update.FullName, Role: models.RoleFree}, nil
	}}

	w := doJSON(t, profileRouter(s, profiles, nil), http.MethodPut, "/api/profile", gin.H{"full_name": "Asha R.", "role": "admin"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Asha R.", body["profile"].(map[string]interface{})["full_name"])
	assert.Equal(t, "free", body["profile"].(map[string]interface{})["role"])
	assert.Equal(t, "Asha R.", body["state"].(map[string]interface{})["user_name"])
	assert.Equal(t, 1, s.reloads)
}

func TestUpdateProfileHandler_UsernameTaken(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	profiles := &mockProfiles{UpdateFn: func(string, models.ProfileUpdate) (*models.Profile, error) {
		return nil, dup
	}}

	w := doJSON(t, profileRouter(signedInAs("u1", models.RoleFree, 1), profiles, nil), http.MethodPut, "/api/profile", gin.H{"username": "taken"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "username_taken", decode(t, w)["code"])
}

func avatarRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "avatar.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAvatarHandler(t *testing.T) {
	s := signedInAs("u1", models.RoleFree, 1)
	var stored *string
	profiles := &mockProfiles{UpdateFn: func(id string, update models.ProfileUpdate) (*models.Profile, error) {
		stored = update.AvatarURL
		return &models.Profile{ID: id, AvatarURL: *update.AvatarURL}, nil
	}}
	avatars := &mockAvatars{UploadFn: func(userID string, data []byte) (string, error) {
		assert.Equal(t, "u1", userID)
		assert.Equal(t, []byte("png-bytes"), data)
		return "https://res.cloudinary.com/demo/u1.png", nil
	}}
	r := profileRouter(s, profiles, avatars)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, avatarRequest(t, "avatar", []byte("png-bytes")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, stored)
	assert.Equal(t, "https://res.cloudinary.com/demo/u1.png", *stored)
	assert.Equal(t, 1, s.reloads)
}

func TestUploadAvatarHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		avatars  storage.AvatarStorage
		field    string
		wantCode int
	}{
		{name: "not configured", avatars: nil, field: "avatar", wantCode: http.StatusServiceUnavailable},
		{name: "missing file", avatars: &mockAvatars{}, field: "picture", wantCode: http.StatusBadRequest},
		{name: "unsupported type", field: "avatar", wantCode: http.StatusBadRequest,
			avatars: &mockAvatars{UploadFn: func(string, []byte) (string, error) { return "", storage.ErrUnsupportedImage }}},
		{name: "too large", field: "avatar", wantCode: http.StatusRequestEntityTooLarge,
			avatars: &mockAvatars{UploadFn: func(string, []byte) (string, error) { return "", storage.ErrImageTooLarge }}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := profileRouter(signedInAs("u1", models.RoleFree, 1), &mockProfiles{}, tt.avatars)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, avatarRequest(t, tt.field, []byte("data")))
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

// --- subscription ---

type mockSubscriptions struct {
	CheckoutFn func(session *models.IdentitySession) (string, error)
}

func (m *mockSubscriptions) Checkout(ctx context.Context, session *models.IdentitySession) (string, error) {
	return m.CheckoutFn(session)
}

func (m *mockSubscriptions) Portal(ctx context.Context, session *models.IdentitySession) (string, error) {
	return "https://billing.stripe.com/p/session", nil
}

func (m *mockSubscriptions) Check(ctx context.Context, session *models.IdentitySession) (*models.SubscriptionStatus, error) {
	return nil, errors.New("not used by handlers")
}

func (m *mockSubscriptions) Plans() []models.Plan {
	return []models.Plan{{ID: "free", DailyCases: 1}, {ID: "subscriber", DailyCases: -1}}
}

func subscriptionRouter(s ClientSession, svc *mockSubscriptions) *gin.Engine {
	h := NewSubscriptionHandler(svc)
	r := newRouter(s)
	r.POST("/api/subscription/checkout", h.CheckoutHandler)
	r.POST("/api/subscription/portal", h.PortalHandler)
	r.POST("/api/subscription/check", h.CheckHandler)
	r.GET("/api/plans", h.PlansHandler)
	return r
}

func TestCheckoutHandler_UsesSignedInIdentity(t *testing.T) {
	svc := &mockSubscriptions{CheckoutFn: func(session *models.IdentitySession) (string, error) {
		assert.Equal(t, "u1", session.Identity.ID)
		assert.Equal(t, "access-u1", session.AccessToken)
		return "https://checkout.stripe.com/c/pay", nil
	}}

	w := doJSON(t, subscriptionRouter(signedInAs("u1", models.RoleFree, 1), svc), http.MethodPost, "/api/subscription/checkout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://checkout.stripe.com/c/pay", decode(t, w)["url"])

	w = doJSON(t, subscriptionRouter(guest(), svc), http.MethodPost, "/api/subscription/checkout", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckHandler_AppliesRole(t *testing.T) {
	s := signedInAs("u1", models.RoleFree, 0)
	s.CheckFn = func() (*models.SubscriptionStatus, error) {
		return &models.SubscriptionStatus{Subscribed: true, Role: models.RoleSubscriber}, nil
	}

	w := doJSON(t, subscriptionRouter(s, &mockSubscriptions{}), http.MethodPost, "/api/subscription/check", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["subscription"].(map[string]interface{})["subscribed"])
	state := body["state"].(map[string]interface{})
	assert.Equal(t, "subscriber", state["role"])
	assert.Equal(t, "unlimited", state["remaining_cases"])
}

func TestCheckHandler_NotConfigured(t *testing.T) {
	s := signedInAs("u1", models.RoleFree, 1)
	s.CheckFn = func() (*models.SubscriptionStatus, error) { return nil, session.ErrNoChecker }

	w := doJSON(t, subscriptionRouter(s, &mockSubscriptions{}), http.MethodPost, "/api/subscription/check", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPlansHandler(t *testing.T) {
	w := doJSON(t, subscriptionRouter(guest(), &mockSubscriptions{}), http.MethodGet, "/api/plans", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["plans"], 2)
}

// --- session ---

func TestIssueSessionHandler_SignsSessionKey(t *testing.T) {
	h := NewSessionHandler(time.Hour)
	r := newRouter(nil)
	r.POST("/api/session", h.IssueSessionHandler)

	w := doJSON(t, r, http.MethodPost, "/api/session", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 3600, body["expires_in"])

	key, err := utils.ExtractSessionKey(body["session_token"].(string))
	require.NoError(t, err)
	assert.NotEmpty(t, key)
}

func TestGetSessionHandler(t *testing.T) {
	s := guest()
	st := s.Snapshot()
	st.Loading = true
	s.set(st)

	h := NewSessionHandler(time.Hour)
	r := newRouter(s)
	r.GET("/api/session", h.GetSessionHandler)

	w := doJSON(t, r, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["loading"])

	w = doJSON(t, r, http.MethodGet, "/api/session?wait=true", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)

	st.Loading = false
	s.set(st)
	w = doJSON(t, r, http.MethodGet, "/api/session?wait=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["loading"])
	assert.EqualValues(t, 1, body["remaining_cases"])
}

// --- news and health ---

type mockNews struct {
	LatestFn func(limit int) ([]models.LegalNews, error)
}

func (m *mockNews) Latest(ctx context.Context, limit int) ([]models.LegalNews, error) {
	return m.LatestFn(limit)
}

func (m *mockNews) Refresh(ctx context.Context) (*news.RefreshResult, error) {
	return nil, news.ErrNoSources
}

func TestLatestNewsHandler(t *testing.T) {
	var gotLimit int
	h := NewNewsHandler(&mockNews{LatestFn: func(limit int) ([]models.LegalNews, error) {
		gotLimit = limit
		return []models.LegalNews{{Title: "SC on bail", Link: "https://news.example.com/1"}}, nil
	}})
	r := newRouter(guest())
	r.GET("/api/news", h.LatestNewsHandler)

	w := doJSON(t, r, http.MethodGet, "/api/news?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, gotLimit)
	assert.Len(t, decode(t, w)["news"], 1)

	doJSON(t, r, http.MethodGet, "/api/news?limit=abc", nil)
	assert.Equal(t, 0, gotLimit)
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		status   utils.HealthStatus
		wantCode int
		want     string
	}{
		{name: "healthy", status: utils.HealthStatus{Mongo: true, Redis: []bool{true, true}}, wantCode: http.StatusOK, want: "ok"},
		{name: "redis down", status: utils.HealthStatus{Mongo: true, Redis: []bool{true, false}}, wantCode: http.StatusServiceUnavailable, want: "degraded"},
		{name: "mongo down", status: utils.HealthStatus{Redis: []bool{true}}, wantCode: http.StatusServiceUnavailable, want: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &HealthHandler{Status: func() utils.HealthStatus { return tt.status }}
			r := newRouter(nil)
			r.GET("/health", h.HealthHandler)

			w := doJSON(t, r, http.MethodGet, "/health", nil)
			require.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.want, decode(t, w)["status"])
		})
	}
}

func TestRespondError_QuotaCarriesUpgradePath(t *testing.T) {
	r := newRouter(nil)
	r.GET("/x", func(c *gin.Context) { respondError(c, quota.ErrQuotaExhausted) })

	w := doJSON(t, r, http.MethodGet, "/x", nil)
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	body := decode(t, w)
	assert.Equal(t, UpgradePath, body["upgrade_path"])
	assert.EqualValues(t, 0, body["remaining_cases"])
}
