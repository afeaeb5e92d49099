package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kerem-kaynak/uvlhub/internal/appcontext"
	"github.com/kerem-kaynak/uvlhub/internal/services"
	"github.com/kerem-kaynak/uvlhub/internal/utils"
	"go.uber.org/zap"
)

func GetProfileSummary(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := utils.GetUserIDFromClaims(c)
		if err != nil {
			respondError(ctx, c, "Failed to get user ID from claims", err)
			return
		}

		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil {
			page = 1
		}

		summary, err := ctx.Accounts.Summary(c.Request.Context(), userID, page)
		if err != nil {
			respondError(ctx, c, "Failed to build profile summary", err, zap.Uint("user_id", userID))
			return
		}

		publicationTypeDistribution := []struct {
			ID    int    `json:"id"`
			Label string `json:"label"`
			Value int64  `json:"value"`
		}{}

		for i, item := range summary.PublicationTypes {
			publicationTypeDistribution = append(publicationTypeDistribution, struct {
				ID    int    `json:"id"`
				Label string `json:"label"`
				Value int64  `json:"value"`
			}{
				ID:    i + 1,
				Label: item.Type.External(),
				Value: item.Count,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"user":                          summary.User,
			"total_datasets":                summary.TotalDatasets,
			"published_datasets":            summary.PublishedDatasets,
			"draft_datasets":                summary.DraftDatasets,
			"total_downloads":               summary.Downloads,
			"total_views":                   summary.Views,
			"publication_type_distribution": publicationTypeDistribution,
			"page":                          summary.Page,
			"pages":                         summary.Pages,
			"datasets":                      services.SummarizeDatasets(summary.Datasets, ctx.BaseURL),
		})
	}
}

func UpdateSecurityAnswers(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := utils.GetUserIDFromClaims(c)
		if err != nil {
			respondError(ctx, c, "Failed to get user ID from claims", err)
			return
		}

		var input services.AnswersInput
		if err := c.ShouldBind(&input); err != nil {
			ctx.Logger.Debug("Failed to bind answers request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to bind request"})
			return
		}

		if err := ctx.Accounts.UpdateAnswers(c.Request.Context(), userID, input); err != nil {
			respondError(ctx, c, "Failed to update security answers", err, zap.Uint("user_id", userID))
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Security answers successfully updated"})
	}
}
