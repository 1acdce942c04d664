package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func csrfRouter(opts CSRFOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CSRF(opts))
	r.GET("/api/news", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/news", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/api/password/forgot", func(c *gin.Context) { c.Status(http.StatusAccepted) })
	return r
}

func csrfCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == CSRFCookieName {
			return cookie
		}
	}
	t.Fatalf("response did not set %s", CSRFCookieName)
	return nil
}

func TestCSRFHandsOutTokenOnReads(t *testing.T) {
	r := csrfRouter(CSRFOptions{MaxAge: time.Hour})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/news", nil))
	require.Equal(t, http.StatusOK, w.Code)

	cookie := csrfCookie(t, w)
	require.NotEmpty(t, cookie.Value)
	require.Equal(t, cookie.Value, w.Header().Get(CSRFHeaderName))
	require.Equal(t, 3600, cookie.MaxAge)
	require.False(t, cookie.HttpOnly)
	require.False(t, cookie.Secure)

	again := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/news", nil)
	req.AddCookie(cookie)
	r.ServeHTTP(again, req)
	require.Equal(t, cookie.Value, again.Header().Get(CSRFHeaderName))
}

func TestCSRFGuardsWrites(t *testing.T) {
	r := csrfRouter(CSRFOptions{})

	read := httptest.NewRecorder()
	r.ServeHTTP(read, httptest.NewRequest(http.MethodGet, "/api/news", nil))
	cookie := csrfCookie(t, read)

	cases := []struct {
		name   string
		cookie bool
		header string
		want   int
	}{
		{name: "matching token", cookie: true, header: cookie.Value, want: http.StatusCreated},
		{name: "missing header", cookie: true, want: http.StatusForbidden},
		{name: "wrong header", cookie: true, header: cookie.Value + "x", want: http.StatusForbidden},
		{name: "no cookie", header: cookie.Value, want: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/news", nil)
			if tc.cookie {
				req.AddCookie(cookie)
			}
			if tc.header != "" {
				req.Header.Set(CSRFHeaderName, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, tc.want, w.Code)
		})
	}
}

func TestCSRFSkipsExemptPrefixes(t *testing.T) {
	r := csrfRouter(CSRFOptions{Exempt: []string{"/api/password"}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/password/forgot", nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Empty(t, w.Result().Cookies())
}

func TestCSRFSecureCookie(t *testing.T) {
	r := csrfRouter(CSRFOptions{Secure: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/news", nil))
	require.True(t, csrfCookie(t, w).Secure)

	r = csrfRouter(CSRFOptions{})
	req := httptest.NewRequest(http.MethodGet, "/api/news", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.True(t, csrfCookie(t, w).Secure)
}
