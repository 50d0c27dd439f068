package handlers

import (
	"context"
	"errors"
	"net/http"

	"courtwise/database"
	"courtwise/services/cases"
	"courtwise/services/identity"
	"courtwise/services/news"
	"courtwise/services/quota"
	"courtwise/services/session"
	"courtwise/services/storage"
	"courtwise/services/subscription"
	"courtwise/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UpgradePath is where the UI sends users who ran out of free views.
const UpgradePath = "/pricing"

// respondError renders a service error with the matching status.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		utils.JSONErrorCode(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", "")
	case errors.Is(err, identity.ErrEmailTaken):
		utils.JSONErrorCode(c, http.StatusConflict, "email_taken", "An account with this email already exists", "")
	case errors.Is(err, identity.ErrNotLoggedIn):
		utils.JSONErrorCode(c, http.StatusUnauthorized, "not_logged_in", "Sign in required", "")
	case errors.Is(err, identity.ErrSessionExpired):
		utils.JSONErrorCode(c, http.StatusUnauthorized, "session_expired", "Your session has expired, please sign in again", "")
	case errors.Is(err, quota.ErrQuotaExhausted):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"message":         "Daily free case limit reached",
			"code":            "quota_exhausted",
			"upgrade_path":    UpgradePath,
			"remaining_cases": 0,
		})
	case errors.Is(err, cases.ErrCaseNotFound), errors.Is(err, database.ErrNotFound):
		utils.JSONErrorCode(c, http.StatusNotFound, "not_found", "Not found", "")
	case errors.Is(err, cases.ErrEmptyNote), errors.Is(err, cases.ErrEmptyQuery),
		errors.Is(err, storage.ErrUnsupportedImage), errors.Is(err, subscription.ErrNoEmail):
		utils.JSONErrorCode(c, http.StatusBadRequest, "invalid_request", err.Error(), "")
	case errors.Is(err, storage.ErrImageTooLarge):
		utils.JSONErrorCode(c, http.StatusRequestEntityTooLarge, "too_large", err.Error(), "")
	case errors.Is(err, session.ErrNoChecker), errors.Is(err, news.ErrNoSources):
		utils.JSONErrorCode(c, http.StatusServiceUnavailable, "not_configured", err.Error(), "")
	case errors.Is(err, session.ErrClosed), errors.Is(err, session.ErrIdentityChanged):
		utils.JSONErrorCode(c, http.StatusConflict, "session_changed", "Session changed, please retry", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		utils.JSONErrorCode(c, http.StatusGatewayTimeout, "timeout", "Timed out waiting for the session", "")
	default:
		getLogger(c).Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		utils.JSONError(c, http.StatusBadGateway, "Upstream request failed", err.Error())
	}
}
