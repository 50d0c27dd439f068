package handlers

import (
	"context"
	"net/http"

	"courtwise/models"
	"courtwise/services/subscription"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	Service subscription.SubscriptionService
}

func NewSubscriptionHandler(svc subscription.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{Service: svc}
}

// CheckoutHandler handles POST /api/subscription/checkout.
func (h *SubscriptionHandler) CheckoutHandler(c *gin.Context) {
	identitySession, ok := h.identity(c)
	if !ok {
		return
	}
	url, err := h.Service.Checkout(c.Request.Context(), identitySession)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// PortalHandler handles POST /api/subscription/portal.
func (h *SubscriptionHandler) PortalHandler(c *gin.Context) {
	identitySession, ok := h.identity(c)
	if !ok {
		return
	}
	url, err := h.Service.Portal(c.Request.Context(), identitySession)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CheckHandler handles POST /api/subscription/check. The resolved role is
// stored on the profile and applied to the session.
func (h *SubscriptionHandler) CheckHandler(c *gin.Context) {
	s, _, ok := signedIn(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), waitTimeout)
	defer cancel()
	status, st, err := s.RefreshSubscription(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": status, "state": st})
}

// PlansHandler handles GET /api/plans.
func (h *SubscriptionHandler) PlansHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": h.Service.Plans()})
}

func (h *SubscriptionHandler) identity(c *gin.Context) (*models.IdentitySession, bool) {
	s, st, ok := signedIn(c)
	if !ok {
		return nil, false
	}
	token, err := s.AccessToken(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return &models.IdentitySession{Identity: *st.User, AccessToken: token}, true
}
