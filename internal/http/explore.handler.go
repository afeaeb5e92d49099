package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kerem-kaynak/uvlhub/internal/appcontext"
	"github.com/kerem-kaynak/uvlhub/internal/services"
	"go.uber.org/zap"
)

// Explore filters published datasets. The criteria are validated before
// any query runs.
func Explore(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		var criteria services.Criteria
		if err := c.ShouldBindJSON(&criteria); err != nil {
			ctx.Logger.Debug("Failed to bind explore request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
			return
		}

		if err := criteria.Validate(); err != nil {
			respondError(ctx, c, "Rejected explore criteria", err)
			return
		}

		datasets, err := ctx.Explore.Filter(c.Request.Context(), criteria)
		if err != nil {
			respondError(ctx, c, "Failed to filter datasets", err)
			return
		}

		c.JSON(http.StatusOK, services.SummarizeDatasets(datasets, ctx.BaseURL))
	}
}
