package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kerem-kaynak/uvlhub/internal/appcontext"
	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/convert"
	"github.com/kerem-kaynak/uvlhub/internal/services"
	"github.com/kerem-kaynak/uvlhub/internal/utils"
	"go.uber.org/zap"
)

// DownloadDataset serves /dataset/download/:id[/:format] as a zip archive.
// The format is validated before the dataset is looked up; one download is
// recorded per download_cookie.
func DownloadDataset(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		literal := c.Param("format")
		if literal == "" {
			literal = string(convert.UVL)
		}
		format, err := convert.ParseFormat(literal)
		if err != nil {
			respondError(ctx, c, "Unsupported download format", err, zap.String("format", literal))
			return
		}

		id, ok := idParam(c, "id")
		if !ok {
			respondError(ctx, c, "Invalid dataset id", errDatasetNotFound)
			return
		}

		requester := utils.OptionalUserID(c)
		ds, err := ctx.Datasets.GetVisible(c.Request.Context(), id, requester)
		if err != nil {
			respondError(ctx, c, "Failed to get dataset", err, zap.Uint("dataset_id", id))
			return
		}

		archive, err := ctx.Archiver.DatasetArchive(c.Request.Context(), ds, format)
		if err != nil {
			respondError(ctx, c, "Failed to build dataset archive", err,
				zap.Uint("dataset_id", id),
				zap.String("format", string(format)),
			)
			return
		}
		defer cleanupArchive(ctx, archive)

		cookie := visitorCookie(ctx, c, downloadCookie)
		if _, err := ctx.Records.RecordDownload(c.Request.Context(), userIDPtr(requester), ds.ID, cookie); err != nil {
			ctx.Logger.Error("Failed to record dataset download", zap.Uint("dataset_id", ds.ID), zap.Error(err))
		}

		c.FileAttachment(archive.Path, archive.Name)
	}
}

// DownloadAllDatasets bundles every published dataset. Files that fail to
// convert are skipped, so the response is 200 unless the archive itself
// cannot be built.
func DownloadAllDatasets(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		literal := c.DefaultQuery("format", string(convert.UVL))
		format, err := convert.ParseFormat(literal)
		if err != nil {
			respondError(ctx, c, "Unsupported download format", err, zap.String("format", literal))
			return
		}

		datasets, err := ctx.Datasets.AllPublished(c.Request.Context())
		if err != nil {
			respondError(ctx, c, "Failed to list published datasets", err)
			return
		}
		if len(datasets) == 0 {
			respondError(ctx, c, "No datasets to download", apperr.NewNotFound("No datasets available"))
			return
		}

		archive, err := ctx.Archiver.BulkArchive(c.Request.Context(), datasets, format)
		if err != nil {
			respondError(ctx, c, "Failed to build bulk archive", err, zap.String("format", string(format)))
			return
		}
		defer cleanupArchive(ctx, archive)

		ctx.Logger.Info("Serving bulk archive",
			zap.Int("datasets", len(datasets)),
			zap.Int("files", archive.Files),
			zap.String("format", string(format)),
		)
		c.FileAttachment(archive.Path, archive.Name)
	}
}

func cleanupArchive(ctx *appcontext.Context, archive *services.Archive) {
	if err := archive.Cleanup(); err != nil {
		ctx.Logger.Error("Failed to clean temporary files", zap.String("archive", archive.Path), zap.Error(err))
	}
}

// ListFormats reports the supported download format literals.
func ListFormats(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"formats": convert.FormatNames()})
	}
}
