package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kerem-kaynak/uvlhub/internal/appcontext"
	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"go.uber.org/zap"
)

func GetDeposition(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			respondError(ctx, c, "Invalid deposition id", apperr.NewNotFound("Deposition not found"))
			return
		}

		deposition, err := ctx.Fakenodo.GetDeposition(c.Request.Context(), id)
		if err != nil {
			respondError(ctx, c, "Failed to get deposition", err, zap.Uint("deposition_id", id))
			return
		}

		c.JSON(http.StatusOK, deposition)
	}
}
