package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jom-io/gorig/apix/response"
	"github.com/jom-io/gorig/mid/tokenx"
)

// Guard rejects requests without a token issued by Connect. The token comes
// from the Authorization header or, for scrapers and SSE clients, ?token=.
func Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c.GetHeader("Authorization"), c.Query("token"))
		if token == "" {
			response.ErrorForbidden(c)
			return
		}
		tokens := tokenx.Get(tokenx.Jwt, tokenx.Memory)
		if _, err := tokens.Generator.Parse(token); err != nil {
			response.ErrorForbidden(c)
			return
		}
		userID, ok := tokens.Manager.GetUserID(token)
		if !ok {
			response.ErrorTokenAuthFail(c)
			return
		}
		if !IsOperator(userID) {
			response.ErrorForbidden(c)
			return
		}
		c.Next()
	}
}

func bearer(header, query string) string {
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(query)
}
