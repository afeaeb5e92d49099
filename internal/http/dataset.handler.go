package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kerem-kaynak/uvlhub/internal/appcontext"
	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"github.com/kerem-kaynak/uvlhub/internal/services"
	"github.com/kerem-kaynak/uvlhub/internal/utils"
	"go.uber.org/zap"
)

var errDatasetNotFound = apperr.NewNotFound("Dataset not found")

// UploadDataset creates a draft. A JSON body names files already in the
// staging area; a multipart form stages its "files" parts first and adds
// one feature model per file.
func UploadDataset(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := currentUser(ctx, c)
		if err != nil {
			respondError(ctx, c, "Failed to find user", err)
			return
		}

		var input services.DatasetInput
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			if err := c.ShouldBind(&input); err != nil {
				ctx.Logger.Debug("Failed to bind dataset form", zap.Error(err))
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to bind request"})
				return
			}
			staged, err := stageFormFiles(ctx, c, user.ID)
			if err != nil {
				respondError(ctx, c, "Failed to stage uploaded files", err, zap.Uint("user_id", user.ID))
				return
			}
			for _, name := range staged {
				input.FeatureModels = append(input.FeatureModels, services.FeatureModelInput{UVLFilename: name})
			}
		} else if err := c.ShouldBindJSON(&input); err != nil {
			ctx.Logger.Debug("Failed to bind dataset request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to bind request"})
			return
		}

		ds, err := ctx.Datasets.CreateDraft(c.Request.Context(), user, input)
		if err != nil {
			respondError(ctx, c, "Failed to create dataset", err, zap.Uint("user_id", user.ID))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Dataset successfully created",
			"dataset": services.SummarizeDataset(ds, ctx.BaseURL),
		})
	}
}

func stageFormFiles(ctx *appcontext.Context, c *gin.Context, userID uint) ([]string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperr.Validationf("files", "Failed to read uploaded files.")
	}

	var staged []string
	for _, header := range form.File["files"] {
		name, err := stageFile(ctx, userID, header)
		if err != nil {
			return nil, err
		}
		staged = append(staged, name)
	}
	return staged, nil
}

func ListDatasets(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := utils.GetUserIDFromClaims(c)
		if err != nil {
			respondError(ctx, c, "Failed to get user ID from claims", err)
			return
		}

		synchronized, err := ctx.Datasets.Synchronized(c.Request.Context(), userID)
		if err != nil {
			respondError(ctx, c, "Failed to list published datasets", err)
			return
		}
		unsynchronized, err := ctx.Datasets.Unsynchronized(c.Request.Context(), userID)
		if err != nil {
			respondError(ctx, c, "Failed to list draft datasets", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"datasets":                services.SummarizeDatasets(synchronized, ctx.BaseURL),
			"local_datasets":          services.SummarizeDatasets(unsynchronized, ctx.BaseURL),
			"synchronized_count":      len(synchronized),
			"unsynchronized_count":    len(unsynchronized),
			"publication_type_values": entity.PublicationTypes(),
		})
	}
}

func GetEditDataset(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := utils.GetUserIDFromClaims(c)
		if err != nil {
			respondError(ctx, c, "Failed to get user ID from claims", err)
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			respondError(ctx, c, "Invalid dataset id", errDatasetNotFound)
			return
		}

		ds, err := ctx.Datasets.GetEditable(c.Request.Context(), userID, id)
		if err != nil {
			respondError(ctx, c, "Failed to open dataset for editing", err, zap.Uint("dataset_id", id))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"dataset":         services.SummarizeDataset(ds, ctx.BaseURL),
			"feature_models":  ds.FeatureModels,
			"publication_doi": ds.Metadata.PublicationDOI,
		})
	}
}

func EditDataset(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := utils.GetUserIDFromClaims(c)
		if err != nil {
			respondError(ctx, c, "Failed to get user ID from claims", err)
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			respondError(ctx, c, "Invalid dataset id", errDatasetNotFound)
			return
		}

		var input services.EditInput
		if err := c.ShouldBind(&input); err != nil {
			ctx.Logger.Debug("Failed to bind edit request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to bind request"})
			return
		}

		ds, err := ctx.Datasets.EditDraft(c.Request.Context(), userID, id, input)
		if err != nil {
			respondError(ctx, c, "Failed to edit dataset", err, zap.Uint("dataset_id", id))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Dataset successfully updated",
			"dataset": services.SummarizeDataset(ds, ctx.BaseURL),
		})
	}
}

func PublishDataset(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := utils.GetUserIDFromClaims(c)
		if err != nil {
			respondError(ctx, c, "Failed to get user ID from claims", err)
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			respondError(ctx, c, "Invalid dataset id", errDatasetNotFound)
			return
		}

		ds, err := ctx.Datasets.Publish(c.Request.Context(), userID, id)
		if err != nil {
			respondError(ctx, c, "Failed to publish dataset", err, zap.Uint("dataset_id", id))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Dataset successfully published",
			"dataset": services.SummarizeDataset(ds, ctx.BaseURL),
		})
	}
}

func GetUnsynchronizedDataset(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := utils.GetUserIDFromClaims(c)
		if err != nil {
			respondError(ctx, c, "Failed to get user ID from claims", err)
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			respondError(ctx, c, "Invalid dataset id", errDatasetNotFound)
			return
		}

		ds, err := ctx.Datasets.GetUnsynchronized(c.Request.Context(), userID, id)
		if err != nil {
			respondError(ctx, c, "Failed to get unsynchronized dataset", err, zap.Uint("dataset_id", id))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"dataset":        services.SummarizeDataset(ds, ctx.BaseURL),
			"feature_models": ds.FeatureModels,
		})
	}
}

// GetDatasetByDOI resolves /doi/<doi>/. Deprecated DOIs redirect to their
// replacement; a found dataset gets one view record per view_cookie.
func GetDatasetByDOI(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		doi := c.Param("doi")

		resolution, err := ctx.Datasets.ResolveDOI(c.Request.Context(), doi)
		if err != nil {
			respondError(ctx, c, "Failed to resolve DOI", err, zap.String("doi", doi))
			return
		}
		if resolution.Redirect != "" {
			c.Redirect(http.StatusFound, "/doi/"+resolution.Redirect+"/")
			return
		}

		ds := resolution.Dataset
		cookie := visitorCookie(ctx, c, viewCookie)
		requester := utils.OptionalUserID(c)
		if _, err := ctx.Records.RecordView(c.Request.Context(), userIDPtr(requester), ds.ID, cookie); err != nil {
			ctx.Logger.Error("Failed to record dataset view", zap.Uint("dataset_id", ds.ID), zap.Error(err))
		}

		downloads, err := ctx.Records.DownloadCount(c.Request.Context(), ds.ID)
		if err != nil {
			respondError(ctx, c, "Failed to count downloads", err, zap.Uint("dataset_id", ds.ID))
			return
		}
		views, err := ctx.Records.ViewCount(c.Request.Context(), ds.ID)
		if err != nil {
			respondError(ctx, c, "Failed to count views", err, zap.Uint("dataset_id", ds.ID))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"dataset":        services.SummarizeDataset(ds, ctx.BaseURL),
			"feature_models": ds.FeatureModels,
			"downloads":      downloads,
			"views":          views,
		})
	}
}

func GetUserDatasets(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			respondError(ctx, c, "Invalid user id", apperr.NewNotFound("User not found"))
			return
		}

		user, datasets, err := ctx.Datasets.PublishedByUser(c.Request.Context(), id)
		if err != nil {
			respondError(ctx, c, "Failed to list user datasets", err, zap.Uint("user_id", id))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user":     services.SummarizeUser(user),
			"datasets": services.SummarizeDatasets(datasets, ctx.BaseURL),
		})
	}
}

func GetFeatureModelHierarchy(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			respondError(ctx, c, "Invalid feature model id", apperr.NewNotFound("Feature model not found"))
			return
		}

		fm, err := ctx.Datasets.GetFeatureModel(c.Request.Context(), id, utils.OptionalUserID(c))
		if err != nil {
			respondError(ctx, c, "Failed to get feature model", err, zap.Uint("feature_model_id", id))
			return
		}

		hierarchy := []byte(fm.Hierarchy)
		if len(hierarchy) == 0 {
			hierarchy = []byte("{}")
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", hierarchy)
	}
}
