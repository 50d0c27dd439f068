package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"courtwise/models"
	"courtwise/services/cases"
	"courtwise/services/identity"
	"courtwise/services/quota"
	"courtwise/utils"

	"github.com/gin-gonic/gin"
)

// Searcher runs a legal search query.
type Searcher interface {
	Search(ctx context.Context, query string, page int) (*models.SearchResult, error)
}

type CaseHandler struct {
	Cases  cases.CaseService
	Search Searcher
}

func NewCaseHandler(svc cases.CaseService, search Searcher) *CaseHandler {
	return &CaseHandler{Cases: svc, Search: search}
}

// ListCasesHandler handles GET /api/cases.
func (h *CaseHandler) ListCasesHandler(c *gin.Context) {
	var filter models.CaseFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid filter", err.Error())
		return
	}
	list, err := h.Cases.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cases": list, "count": len(list)})
}

// GetCaseHandler handles GET /api/cases/:id. Opening a case consumes one view
// of the free allowance; refused views still carry the preview.
func (h *CaseHandler) GetCaseHandler(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), waitTimeout)
	defer cancel()

	full, remaining, err := h.Cases.Open(ctx, s, id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"case": full, "remaining_cases": remaining})
	case errors.Is(err, quota.ErrQuotaExhausted):
		preview, _ := h.Cases.Preview(ctx, id)
		c.JSON(http.StatusPaymentRequired, gin.H{
			"message":         "Daily free case limit reached",
			"code":            "quota_exhausted",
			"upgrade_path":    UpgradePath,
			"remaining_cases": 0,
			"preview":         preview,
		})
	case errors.Is(err, identity.ErrNotLoggedIn):
		preview, _ := h.Cases.Preview(ctx, id)
		c.JSON(http.StatusUnauthorized, gin.H{
			"message": "Sign in to read the full judgment",
			"code":    "not_logged_in",
			"preview": preview,
		})
	default:
		respondError(c, err)
	}
}

// DownloadCaseHandler handles GET /api/cases/:id/download.
func (h *CaseHandler) DownloadCaseHandler(c *gin.Context) {
	s, st, ok := signedIn(c)
	if !ok {
		return
	}
	url, err := h.Cases.DownloadURL(c.Request.Context(), s, st.Role, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// ListNotesHandler handles GET /api/cases/:id/notes.
func (h *CaseHandler) ListNotesHandler(c *gin.Context) {
	_, st, ok := signedIn(c)
	if !ok {
		return
	}
	notes, err := h.Cases.ListNotes(c.Request.Context(), st.User.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

type noteRequest struct {
	Content string `json:"content" binding:"required"`
}

// AddNoteHandler handles POST /api/cases/:id/notes.
func (h *CaseHandler) AddNoteHandler(c *gin.Context) {
	_, st, ok := signedIn(c)
	if !ok {
		return
	}
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid note", err.Error())
		return
	}
	note, err := h.Cases.AddNote(c.Request.Context(), st.User.ID, c.Param("id"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

// UpdateNoteHandler handles PUT /api/cases/:id/notes/:noteID.
func (h *CaseHandler) UpdateNoteHandler(c *gin.Context) {
	_, st, ok := signedIn(c)
	if !ok {
		return
	}
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid note", err.Error())
		return
	}
	note, err := h.Cases.EditNote(c.Request.Context(), st.User.ID, c.Param("noteID"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

// DeleteNoteHandler handles DELETE /api/cases/:id/notes/:noteID.
func (h *CaseHandler) DeleteNoteHandler(c *gin.Context) {
	_, st, ok := signedIn(c)
	if !ok {
		return
	}
	if err := h.Cases.DeleteNote(c.Request.Context(), st.User.ID, c.Param("noteID")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Note deleted"})
}

// SearchHandler handles GET /api/search?q=...&page=N.
func (h *CaseHandler) SearchHandler(c *gin.Context) {
	if h.Search == nil {
		utils.JSONErrorCode(c, http.StatusServiceUnavailable, "not_configured", "Legal search is not configured", "")
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid page", err.Error())
		return
	}
	result, err := h.Search.Search(c.Request.Context(), c.Query("q"), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
