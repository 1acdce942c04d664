package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSessionPassword = "0123456789abcdef0123456789abcdef"

func newTestSessionManager(t *testing.T, clock func() time.Time) *SessionManager {
	t.Helper()
	mgr, err := NewSessionManager(SessionConfig{
		Password: testSessionPassword,
		Salt:     "test-salt",
		TTL:      time.Hour,
		Clock:    clock,
	})
	require.NoError(t, err)
	return mgr
}

func requestWithCookies(cookies []*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestSessionManagerRoundTrip(t *testing.T) {
	mgr := newTestSessionManager(t, nil)

	rec := httptest.NewRecorder()
	data := SessionData{UID: "admin-1", DisplayName: "Registrar", Email: "registrar@philsca.edu.ph", IsLoggedIn: true}
	require.NoError(t, mgr.Save(rec, data))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, DefaultCookieName, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)
	require.NotContains(t, cookies[0].Value, "admin-1")

	got, err := mgr.Load(requestWithCookies(cookies))
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestSessionManagerRejectsTampering(t *testing.T) {
	mgr := newTestSessionManager(t, nil)

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, SessionData{UID: "admin-1", IsLoggedIn: true}))
	cookie := rec.Result().Cookies()[0]

	mid := len(cookie.Value) / 2
	replacement := "A"
	if cookie.Value[mid] == 'A' {
		replacement = "B"
	}
	cookie.Value = cookie.Value[:mid] + replacement + cookie.Value[mid+1:]

	_, err := mgr.Load(requestWithCookies([]*http.Cookie{cookie}))
	require.ErrorIs(t, err, ErrNoSession)

	_, err = mgr.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSessionManagerExpires(t *testing.T) {
	current := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	mgr := newTestSessionManager(t, func() time.Time { return current })

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, SessionData{UID: "admin-1", IsLoggedIn: true}))
	cookies := rec.Result().Cookies()

	current = current.Add(2 * time.Hour)
	_, err := mgr.Load(requestWithCookies(cookies))
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSessionManagerDestroy(t *testing.T) {
	mgr := newTestSessionManager(t, nil)

	rec := httptest.NewRecorder()
	mgr.Destroy(rec)

	header := rec.Header().Get("Set-Cookie")
	require.True(t, strings.HasPrefix(header, DefaultCookieName+"=;"))
	require.Contains(t, header, "Max-Age=0")
}

func TestNewSessionManagerRequiresLongPassword(t *testing.T) {
	_, err := NewSessionManager(SessionConfig{Password: "short"})
	require.Error(t, err)
}
