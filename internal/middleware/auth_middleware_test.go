package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/philsca/registrar/internal/auth"
)

func TestRequireSession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sessions, err := iauth.NewSessionManager(iauth.SessionConfig{
		Password: "0123456789abcdef0123456789abcdef",
		Salt:     "middleware-test",
	})
	require.NoError(t, err)

	r := gin.New()
	r.Use(RequireSession(sessions))
	r.GET("/me", func(c *gin.Context) {
		session, ok := SessionFromContext(c)
		require.True(t, ok)
		c.String(http.StatusOK, AdminID(c)+"|"+session.Email)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	login := httptest.NewRecorder()
	require.NoError(t, sessions.Save(login, iauth.SessionData{
		UID:        "admin-1",
		Email:      "registrar@philsca.edu.ph",
		IsLoggedIn: true,
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, cookie := range login.Result().Cookies() {
		req.AddCookie(cookie)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "admin-1|registrar@philsca.edu.ph", w.Body.String())
}
