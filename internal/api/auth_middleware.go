package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const principalContextKey = "principal"

// bearerToken pulls the token from the Authorization header or the
// ?token= query param, matching §6's "authentication via Authorization:
// Bearer <token> or ?token=" contract.
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return c.Query("token")
}

// AuthMiddleware rejects the request unless bearerToken resolves to a
// live, unexpired session.
func (s *Server) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "AUTH_REQUIRED", "error": "missing bearer token"})
			return
		}
		userID, err := s.Auth.Verify(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set(principalContextKey, userID)
		c.Next()
	}
}

// OptionalAuthMiddleware resolves a principal when a valid token is
// present but never rejects the request outright; public endpoints
// that enrich their response with per-principal risk context (market
// data, AI analysis) use this instead of AuthMiddleware.
func (s *Server) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if userID, err := s.Auth.Verify(c.Request.Context(), token); err == nil {
				c.Set(principalContextKey, userID)
			}
		}
		c.Next()
	}
}

// CurrentPrincipal returns the authenticated principal id, or "" when
// the request carried no valid session.
func CurrentPrincipal(c *gin.Context) string {
	if v, ok := c.Get(principalContextKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
