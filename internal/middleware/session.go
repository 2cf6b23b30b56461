package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gurwnx222/research-publication-portal/internal/service"
	appErrors "github.com/gurwnx222/research-publication-portal/pkg/errors"
	"github.com/gurwnx222/research-publication-portal/pkg/response"
)

// ContextSessionKey is the gin context key storing the resolved viewer session.
const ContextSessionKey = "viewerSession"

// Session protects routes by requiring a live viewer session token.
func Session(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		session, err := sessions.Resolve(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, session)
		c.Next()
	}
}

// SessionFromContext returns the viewer session stored by the Session
// middleware, or nil when the route is not session-guarded.
func SessionFromContext(c *gin.Context) *service.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	session, ok := value.(*service.Session)
	if !ok {
		return nil
	}
	return session
}
