package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userKeyContext = "user_key"

// requireUser admits a request when its token's subject owns the :key
// document. Websocket clients may pass the token as the token query
// parameter. Without a verifier every request is admitted.
func (s *Server) requireUser(c *gin.Context) {
	key, ok := userKey(c)
	if !ok {
		return
	}
	if s.verifier == nil {
		c.Set(userKeyContext, key)
		c.Next()
		return
	}

	raw := bearerToken(c.GetHeader("Authorization"))
	if raw == "" {
		raw = c.Query("token")
	}
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}

	subject, err := s.verifier.Parse(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if subject != key {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token does not grant access to this document"})
		return
	}

	c.Set(userKeyContext, subject)
	c.Next()
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
