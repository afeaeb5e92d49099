package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kerem-kaynak/uvlhub/internal/appcontext"
	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"github.com/kerem-kaynak/uvlhub/internal/services"
	"github.com/kerem-kaynak/uvlhub/internal/utils"
	"go.uber.org/zap"
)

const (
	downloadCookie = "download_cookie"
	viewCookie     = "view_cookie"
	cookieMaxAge   = 365 * 24 * 60 * 60
)

// respondError logs err and writes {"error": message}, adding the per-field
// detail of validation errors under "message".
func respondError(ctx *appcontext.Context, c *gin.Context, logMessage string, err error, fields ...zap.Field) {
	status := apperr.Status(err)
	fields = append(fields, zap.Error(err))
	if status >= http.StatusInternalServerError {
		ctx.Logger.Error(logMessage, fields...)
	} else {
		ctx.Logger.Debug(logMessage, fields...)
	}

	body := gin.H{"error": apperr.Message(err)}
	if detail := apperr.FieldsOf(err); len(detail) > 0 {
		body["message"] = detail
	}
	c.JSON(status, body)
}

// idParam parses a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func currentUser(ctx *appcontext.Context, c *gin.Context) (*entity.User, error) {
	userID, err := utils.GetUserIDFromClaims(c)
	if err != nil {
		return nil, err
	}
	return ctx.Accounts.GetUser(c.Request.Context(), userID)
}

func userIDPtr(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

// visitorCookie returns the visitor id carried in cookie name, minting and
// setting a fresh one when the request has none.
func visitorCookie(ctx *appcontext.Context, c *gin.Context, name string) string {
	value, err := c.Cookie(name)
	if err == nil && value != "" {
		return value
	}
	value = services.NewVisitorCookie()
	c.SetCookie(name, value, cookieMaxAge, "/", "", ctx.IsProduction(), true)
	return value
}
