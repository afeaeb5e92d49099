package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kerem-kaynak/uvlhub/internal/utils"
)

// LoginPath is where anonymous visitors are sent by RequireLogin.
const LoginPath = "/login"

// Authenticate stores the claims of a valid token, read from the token cookie
// or a bearer header, under utils.ClaimsKey. Requests without a valid token
// continue anonymously.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(utils.TokenCookie)
		if err != nil || tokenString == "" {
			tokenString = bearerToken(c.GetHeader("Authorization"))
		}

		if tokenString != "" {
			if claims, err := utils.ValidateJWT(secret, tokenString); err == nil {
				c.Set(utils.ClaimsKey, claims)
			}
		}

		c.Next()
	}
}

// RequireLogin redirects anonymous visitors to the login page.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := utils.GetUserIDFromClaims(c); err != nil {
			c.Redirect(http.StatusFound, LoginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
