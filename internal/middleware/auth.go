package middleware

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/philsca/registrar/internal/auth"
	"github.com/philsca/registrar/pkg/errors"
	"github.com/philsca/registrar/pkg/response"
)

const (
	CtxSessionKey = "session"
	CtxAdminIDKey = "adminID"
)

// RequireSession rejects requests without a valid sealed session cookie and exposes
// the session to downstream handlers.
func RequireSession(sessions *iauth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := sessions.Load(c.Request)
		if err != nil {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxSessionKey, data)
		c.Set(CtxAdminIDKey, data.UID)
		c.Next()
	}
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(c *gin.Context) (iauth.SessionData, bool) {
	value, ok := c.Get(CtxSessionKey)
	if !ok {
		return iauth.SessionData{}, false
	}
	data, ok := value.(iauth.SessionData)
	return data, ok
}

// AdminID returns the signed-in admin id or an empty string.
func AdminID(c *gin.Context) string {
	return c.GetString(CtxAdminIDKey)
}
