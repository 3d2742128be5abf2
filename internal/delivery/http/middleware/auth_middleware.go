package middleware

import (
	"net/http"

	"card-assistant-backend/internal/delivery/http/response"
	"card-assistant-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

const identityKey = "Identity"

// CurrentSession is the part of the session store the guard needs.
type CurrentSession interface {
	Current() (domain.Identity, bool)
}

// RequireSession admits a request only while this device holds a signed-in identity.
// The identity is read once per request so a concurrent sign-out cannot swap it mid-handler.
func RequireSession(sessions CurrentSession) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := sessions.Current()
		if !ok {
			response.Failure(c, http.StatusUnauthorized, "Sign in to continue", nil, false)
			c.Abort()
			return
		}

		c.Set(identityKey, identity)
		c.Set(string(domain.KeyUserID), identity.ID)
		c.Set(string(domain.KeyUserEmail), identity.Email)

		c.Next()
	}
}

// IdentityFrom returns the identity captured by RequireSession.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}
