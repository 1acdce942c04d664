package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/philsca/registrar/pkg/crypto"
	"github.com/philsca/registrar/pkg/errors"
	"github.com/philsca/registrar/pkg/logger"
	"github.com/philsca/registrar/pkg/response"
)

const (
	// CSRFCookieName carries the token the dashboard must echo back.
	CSRFCookieName = "registrar_csrf"
	// CSRFHeaderName is where the dashboard echoes the token on writes.
	CSRFHeaderName = "X-CSRF-Token"

	csrfTokenBytes    = 32
	defaultCSRFMaxAge = 12 * time.Hour
)

// CSRFOptions configures the double-submit token check.
type CSRFOptions struct {
	// Exempt lists path prefixes that skip the check entirely.
	Exempt []string
	// MaxAge bounds the token cookie lifetime. Zero means twelve hours.
	MaxAge time.Duration
	// Secure forces the Secure cookie attribute even behind plain HTTP.
	Secure bool
}

type csrfGuard struct {
	opts CSRFOptions
	log  *zap.Logger
}

// CSRF pairs a readable cookie with a request header. Reads hand the token out
// in both places and writes must present the header copy of the cookie value.
func CSRF(opts CSRFOptions) gin.HandlerFunc {
	if opts.MaxAge <= 0 {
		opts.MaxAge = defaultCSRFMaxAge
	}
	guard := &csrfGuard{opts: opts, log: logger.WithModule("csrf")}
	return guard.handle
}

func (g *csrfGuard) handle(c *gin.Context) {
	if c.Request.Method == http.MethodOptions || g.exempt(c.Request.URL.Path) {
		c.Next()
		return
	}

	token, fresh, err := g.token(c)
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		c.Abort()
		return
	}

	if !mutates(c.Request.Method) {
		c.Header(CSRFHeaderName, token)
		c.Next()
		return
	}

	if !tokensMatch(token, c.GetHeader(CSRFHeaderName)) {
		g.log.Warn("rejected write without a matching csrf token",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Bool("fresh_cookie", fresh),
		)
		response.Error(c, errors.ErrCSRFInvalid)
		c.Abort()
		return
	}
	c.Next()
}

// token returns the cookie token, minting and setting a new one when absent.
func (g *csrfGuard) token(c *gin.Context) (string, bool, error) {
	if current, err := c.Cookie(CSRFCookieName); err == nil && current != "" {
		g.writeCookie(c, current)
		return current, false, nil
	}

	minted, err := crypto.GenerateToken(csrfTokenBytes)
	if err != nil {
		return "", false, err
	}
	g.writeCookie(c, minted)
	return minted, true, nil
}

func (g *csrfGuard) writeCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.opts.MaxAge / time.Second),
		Secure:   g.opts.Secure || overTLS(c.Request),
		SameSite: http.SameSiteStrictMode,
	})
}

func (g *csrfGuard) exempt(path string) bool {
	for _, prefix := range g.opts.Exempt {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func overTLS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func mutates(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func tokensMatch(expected, presented string) bool {
	presented = strings.TrimSpace(presented)
	if expected == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}
