package http

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kerem-kaynak/uvlhub/internal/appcontext"
	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/convert"
	"github.com/kerem-kaynak/uvlhub/internal/storage"
	"github.com/kerem-kaynak/uvlhub/internal/utils"
	"go.uber.org/zap"
)

var errNotUVL = apperr.Validationf("file", "No valid model")

// stageFile saves an uploaded .uvl file to the user's staging area and
// returns the stored name, which differs from the upload on collision.
func stageFile(ctx *appcontext.Context, userID uint, header *multipart.FileHeader) (string, error) {
	if !convert.IsUVLFilename(header.Filename) {
		return "", errNotUVL
	}

	src, err := header.Open()
	if err != nil {
		return "", apperr.NewInfrastructure("open uploaded file", err)
	}
	defer src.Close()

	name, err := ctx.Staging.Save(userID, header.Filename, src)
	if errors.Is(err, storage.ErrInvalidFilename) {
		return "", errNotUVL
	}
	if err != nil {
		return "", apperr.NewInfrastructure("stage uploaded file", err)
	}
	return name, nil
}

func UploadStagedFile(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := utils.GetUserIDFromClaims(c)
		if err != nil {
			respondError(ctx, c, "Failed to get user ID from claims", err)
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			ctx.Logger.Debug("Failed to get file from request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get file from request"})
			return
		}

		name, err := stageFile(ctx, userID, file)
		if err != nil {
			respondError(ctx, c, "Failed to stage file", err, zap.String("file", file.Filename))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":  "UVL uploaded and validated successfully",
			"filename": name,
		})
	}
}

func DeleteStagedFile(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := utils.GetUserIDFromClaims(c)
		if err != nil {
			respondError(ctx, c, "Failed to get user ID from claims", err)
			return
		}

		var request struct {
			File string `json:"file" form:"file"`
		}
		if err := c.ShouldBind(&request); err != nil || request.File == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to bind request"})
			return
		}

		err = ctx.Staging.Remove(userID, request.File)
		switch {
		case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidFilename):
			c.JSON(http.StatusNotFound, gin.H{"error": "Error: File not found"})
			return
		case err != nil:
			ctx.Logger.Error("Failed to delete staged file", zap.String("file", request.File), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete file"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
	}
}
