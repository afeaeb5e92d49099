package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kerem-kaynak/uvlhub/internal/appcontext"
	"go.uber.org/zap"
)

// SearchResources runs a quick search over the published datasets index.
// "ds:" and "fm:" prefixes restrict hits to datasets or feature models.
func SearchResources(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ctx.Indexer == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search is not available"})
			return
		}

		query := strings.TrimSpace(c.Query("q"))
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing search query"})
			return
		}

		hits, err := ctx.Indexer.Search(c.Request.Context(), query)
		if err != nil {
			ctx.Logger.Error("Failed to perform search", zap.String("query", query), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to perform search"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"results": hits})
	}
}
