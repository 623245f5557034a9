package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const headerName = "X-API-Key"

// RoleAdmin is the token role allowed through AdminMiddleware.
const RoleAdmin = "admin"

func validAPIKey(provided, apiKey string) bool {
	return provided != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) == 1
}

// AdminMiddleware admits either the operator API key or a bearer token
// whose role is admin. With an empty apiKey only admin tokens are accepted.
func AdminMiddleware(apiKey string, j *JWTIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey != "" && validAPIKey(c.GetHeader(headerName), apiKey) {
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}
		claims, err := j.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Role != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}
