package middlewares

import (
	"net/http"

	"github.com/fieldlend/portfolio_backend/config"
	"github.com/fieldlend/portfolio_backend/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves the session token to a username and attaches it
// to the request context. Requests without a token pass through; handlers that
// need an identity reject them.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		username, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetUsernameInContext(c.Request.Context(), username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
