package handlers

import (
	"context"
	"net/http"
	"time"

	"courtwise/models"
	"courtwise/services/cases"
	"courtwise/services/quota"
	"courtwise/services/session"
	"courtwise/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const waitTimeout = 10 * time.Second

// ClientSession is the per-client session the middleware resolves. It is
// implemented by *session.Synchronizer.
type ClientSession interface {
	Key() string
	Snapshot() session.State
	RemainingCases() quota.Remaining
	WaitReady(ctx context.Context) (session.State, error)
	WaitFor(ctx context.Context, cond func(session.State) bool) (session.State, error)
	Login(ctx context.Context, creds models.Credentials) (*models.Identity, error)
	Signup(ctx context.Context, creds models.Credentials, meta models.SignUpMetadata) (*models.Identity, error)
	Logout(ctx context.Context) error
	RefreshToken(ctx context.Context) error
	DecrementRemainingCases(ctx context.Context) (quota.Remaining, bool, error)
	ViewGrant() (cases.Grant, bool)
	RefreshSubscription(ctx context.Context) (*models.SubscriptionStatus, session.State, error)
	ReloadProfile(ctx context.Context) (session.State, error)
	AccessToken(ctx context.Context) (string, error)
}

// currentSession returns the session set by the session auth middleware.
func currentSession(c *gin.Context) (ClientSession, bool) {
	v, ok := c.Get("session")
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Missing session", "request a session token from POST /api/session")
		return nil, false
	}
	s, ok := v.(ClientSession)
	if !ok {
		getLogger(c).Error("Unexpected session type in context", zap.Any("session", v))
		utils.JSONError(c, http.StatusInternalServerError, "Internal Server Error", "")
		return nil, false
	}
	return s, true
}

// signedIn returns the session and its state when someone is signed in.
func signedIn(c *gin.Context) (ClientSession, session.State, bool) {
	s, ok := currentSession(c)
	if !ok {
		return nil, session.State{}, false
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), waitTimeout)
	defer cancel()
	st, err := s.WaitFor(ctx, func(st session.State) bool { return !st.Loading && !st.Syncing })
	if err != nil {
		respondError(c, err)
		return nil, st, false
	}
	if !st.IsLoggedIn || st.User == nil {
		utils.JSONErrorCode(c, http.StatusUnauthorized, "not_logged_in", "Sign in required", "")
		return nil, st, false
	}
	return s, st, true
}

type SessionHandler struct {
	TokenTTL time.Duration
}

func NewSessionHandler(tokenTTL time.Duration) *SessionHandler {
	return &SessionHandler{TokenTTL: tokenTTL}
}

// IssueSessionHandler handles POST /api/session. The returned token names a
// fresh client session; its state is created on first use.
func (h *SessionHandler) IssueSessionHandler(c *gin.Context) {
	key := uuid.New().String()
	token, err := utils.GenerateSessionToken(key, h.TokenTTL)
	if err != nil {
		getLogger(c).Error("Failed to sign session token", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to create session", err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_token": token,
		"expires_in":    int64(h.TokenTTL.Seconds()),
	})
}

// GetSessionHandler handles GET /api/session. With wait=true it blocks until
// the initial identity check has settled.
func (h *SessionHandler) GetSessionHandler(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	if c.Query("wait") != "true" {
		c.JSON(http.StatusOK, s.Snapshot())
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), waitTimeout)
	defer cancel()
	st, err := s.WaitReady(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
