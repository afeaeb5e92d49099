package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kerem-kaynak/uvlhub/internal/appcontext"
	"github.com/kerem-kaynak/uvlhub/internal/services"
	"github.com/kerem-kaynak/uvlhub/internal/utils"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func LoginPage(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := utils.GetUserIDFromClaims(c); err == nil {
			c.Redirect(http.StatusFound, "/")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Please log in to continue", "next": c.Query("next")})
	}
}

func Login(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request loginRequest
		if err := c.ShouldBind(&request); err != nil {
			ctx.Logger.Debug("Failed to bind login request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to bind request"})
			return
		}

		user, err := ctx.Accounts.Authenticate(c.Request.Context(), request.Email, request.Password)
		if err != nil {
			respondError(ctx, c, "Failed to authenticate user", err)
			return
		}

		if !issueToken(ctx, c, user.ID) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Successfully logged in", "user": user})
	}
}

func Signup(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.SignupInput
		if err := c.ShouldBind(&input); err != nil {
			ctx.Logger.Debug("Failed to bind signup request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to bind request"})
			return
		}

		user, err := ctx.Accounts.Signup(c.Request.Context(), input)
		if err != nil {
			respondError(ctx, c, "Failed to sign up user", err)
			return
		}

		if !issueToken(ctx, c, user.ID) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Successfully signed up", "user": user})
	}
}

func issueToken(ctx *appcontext.Context, c *gin.Context, userID uint) bool {
	tokenString, err := utils.GenerateJWT(ctx.JWTSecret, userID)
	if err != nil {
		ctx.Logger.Error("Failed to generate JWT token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate JWT token"})
		return false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(utils.TokenCookie, tokenString, int(utils.TokenTTL.Seconds()), "/", "", ctx.IsProduction(), true)
	return true
}

func Logout(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(utils.TokenCookie, "", -1, "/", "", ctx.IsProduction(), true)
		c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
	}
}

func GetUserInfo(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := currentUser(ctx, c)
		if err != nil {
			respondError(ctx, c, "Failed to find user", err)
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

func ResetPassword(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.ResetPasswordInput
		if err := c.ShouldBind(&input); err != nil {
			ctx.Logger.Debug("Failed to bind reset request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to bind request"})
			return
		}

		if err := ctx.Accounts.ResetPassword(c.Request.Context(), input); err != nil {
			respondError(ctx, c, "Failed to reset password", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Password successfully updated"})
	}
}
