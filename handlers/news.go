package handlers

import (
	"net/http"
	"strconv"

	"courtwise/services/news"

	"github.com/gin-gonic/gin"
)

type NewsHandler struct {
	News news.NewsService
}

func NewNewsHandler(svc news.NewsService) *NewsHandler {
	return &NewsHandler{News: svc}
}

// LatestNewsHandler handles GET /api/news?limit=N.
func (h *NewsHandler) LatestNewsHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.News.Latest(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"news": items})
}
