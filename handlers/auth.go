package handlers

import (
	"context"
	"errors"
	"net/http"

	"courtwise/models"
	"courtwise/services/cases"
	"courtwise/services/identity"
	"courtwise/services/session"
	"courtwise/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler signs client sessions in and out. Every response carries the
// session state after the identity change has been applied.
type AuthHandler struct {
	Tracker *cases.ViewTracker
}

func NewAuthHandler(tracker *cases.ViewTracker) *AuthHandler {
	return &AuthHandler{Tracker: tracker}
}

type signupRequest struct {
	models.Credentials
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginHandler handles POST /api/auth/login.
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	logger := getLogger(c)
	s, ok := currentSession(c)
	if !ok {
		return
	}
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid login request", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), waitTimeout)
	defer cancel()
	user, err := s.Login(ctx, creds)
	if err != nil {
		logger.Info("Login failed", zap.Error(err))
		respondError(c, err)
		return
	}
	h.forget(s)
	st, err := s.WaitFor(ctx, settledAs(user.ID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// SignupHandler handles POST /api/auth/signup.
func (h *AuthHandler) SignupHandler(c *gin.Context) {
	logger := getLogger(c)
	s, ok := currentSession(c)
	if !ok {
		return
	}
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid signup request", err.Error())
		return
	}
	meta := models.SignUpMetadata{FullName: req.FullName, Username: req.Username, Role: models.Role(req.Role)}

	ctx, cancel := context.WithTimeout(c.Request.Context(), waitTimeout)
	defer cancel()
	user, err := s.Signup(ctx, req.Credentials, meta)
	if err != nil {
		logger.Info("Signup failed", zap.Error(err))
		respondError(c, err)
		return
	}
	h.forget(s)
	st, err := s.WaitFor(ctx, settledAs(user.ID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

// LogoutHandler handles POST /api/auth/logout.
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), waitTimeout)
	defer cancel()
	if err := s.Logout(ctx); err != nil {
		respondError(c, err)
		return
	}
	h.forget(s)
	st, err := s.WaitFor(ctx, func(st session.State) bool { return !st.IsLoggedIn && !st.Loading })
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// RefreshHandler handles POST /api/auth/refresh.
func (h *AuthHandler) RefreshHandler(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), waitTimeout)
	defer cancel()
	if err := s.RefreshToken(ctx); err != nil {
		if errors.Is(err, identity.ErrSessionExpired) {
			h.forget(s)
		}
		respondError(c, err)
		return
	}
	st, err := s.WaitFor(ctx, func(st session.State) bool { return !st.Loading && !st.Syncing })
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *AuthHandler) forget(s ClientSession) {
	if h.Tracker != nil {
		h.Tracker.Forget(s.Key())
	}
}

func settledAs(userID string) func(session.State) bool {
	return func(st session.State) bool {
		return !st.Loading && !st.Syncing && st.User != nil && st.User.ID == userID
	}
}
