package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/philsca/registrar/internal/api"
	"github.com/philsca/registrar/internal/app"
	iauth "github.com/philsca/registrar/internal/auth"
	sharedtestutil "github.com/philsca/registrar/internal/database/testutil"
	"github.com/philsca/registrar/internal/middleware"
	"github.com/philsca/registrar/internal/models"
	"github.com/philsca/registrar/internal/push"
	"github.com/philsca/registrar/internal/realtime"
	"github.com/philsca/registrar/internal/storage"
	"github.com/philsca/registrar/pkg/crypto"
	"github.com/philsca/registrar/pkg/response"
)

// DefaultPassword satisfies the strong password rule enforced at login.
const DefaultPassword = "Password123!"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	Config   *app.Config
	Sessions *iauth.SessionManager
	Tickets  *iauth.TicketService
	Feed     *realtime.Feed
	Hub      *realtime.Hub
	Blobs    *storage.FilesystemStore
	Push     *PushRecorder

	csrfToken     string
	csrfCookie    *http.Cookie
	sessionCookie *http.Cookie
}

// PushRecorder captures push messages instead of delivering them.
type PushRecorder struct {
	mu       sync.Mutex
	messages []push.Message
}

func (r *PushRecorder) Send(_ context.Context, msg push.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

// Messages returns a copy of the captured messages.
func (r *PushRecorder) Messages() []push.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]push.Message(nil), r.messages...)
}

// NewEnv provisions a fresh handler test environment with migrations applied and CSRF enabled.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Server: app.ServerConfig{
			Environment: "test",
			PublicURL:   "http://registrar.test",
			CSRF:        app.CSRFConfig{Enabled: true},
		},
		Auth: app.AuthConfig{
			Session: app.SessionSettings{
				CookieName: "philsca-session",
				Password:   "test-suite-session-password-with-32-bytes",
				Salt:       "test-suite",
				TTL:        time.Hour,
			},
			Ticket: app.TicketSettings{
				Secret: "test-suite-ticket-secret",
				Issuer: "test-suite",
				TTL:    time.Minute,
			},
			Reset: app.ResetSettings{LinkPath: "/auth/reset-password"},
		},
		Push:    app.PushConfig{Enabled: true},
		Storage: app.StorageConfig{Root: t.TempDir(), PublicPath: "/media"},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}

	sessions, err := iauth.NewSessionManager(cfg.SessionManagerConfig())
	require.NoError(t, err)

	tickets, err := iauth.NewTicketService(cfg.Auth.TicketServiceConfig(nil))
	require.NoError(t, err)

	blobs, err := storage.NewFilesystemStore(cfg.Storage.StoreConfig())
	require.NoError(t, err)

	feed := realtime.NewFeed()
	hub := realtime.NewHub(realtime.WithAllowedOrigins(cfg.Server.PublicURL))
	recorder := &PushRecorder{}

	router, err := api.NewRouter(api.Dependencies{
		DB:       db,
		Config:   cfg,
		Sessions: sessions,
		Tickets:  tickets,
		Blobs:    blobs,
		Feed:     feed,
		Hub:      hub,
		Push:     recorder,
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		Config:   cfg,
		Sessions: sessions,
		Tickets:  tickets,
		Feed:     feed,
		Hub:      hub,
		Blobs:    blobs,
		Push:     recorder,
	}
}

// CreateAdmin inserts an admin with DefaultPassword and returns the record.
func (e *Env) CreateAdmin(email string) *models.Admin {
	e.T.Helper()

	hashed, err := crypto.HashPassword(DefaultPassword)
	require.NoError(e.T, err)

	admin := &models.Admin{
		Email:       email,
		Password:    hashed,
		DisplayName: "Registrar Admin",
	}
	require.NoError(e.T, e.DB.Create(admin).Error)
	return admin
}

// Login signs in through POST /api/session and keeps the session cookie for later requests.
func (e *Env) Login(email, password string) string {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/session", map[string]any{
		"values": map[string]string{"email": email, "password": password},
	})
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	reply := DecodeStatus(e.T, w)
	require.Equal(e.T, http.StatusOK, reply.Status)
	require.NotEmpty(e.T, reply.ID)
	require.NotNil(e.T, e.sessionCookie, "login did not set a session cookie")
	return reply.ID
}

// Logout forgets the stored session cookie without calling the API.
func (e *Env) Logout() {
	e.sessionCookie = nil
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeStatus parses the {status, id, error} reply used by the session endpoints.
func DecodeStatus(t *testing.T, w *httptest.ResponseRecorder) response.StatusReply {
	t.Helper()
	var reply response.StatusReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply), w.Body.String())
	return reply
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes a JSON request against the router with the session and CSRF cookies attached.
func (e *Env) Request(method, path string, body any) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(e.T, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.do(req, false)
}

// Upload is a file part for multipart requests.
type Upload struct {
	Field    string
	Filename string
	Content  []byte
}

// Multipart executes a multipart/form-data request with the provided fields and optional file.
func (e *Env) Multipart(method, path string, fields map[string]string, file *Upload) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(e.T, writer.WriteField(key, value))
	}
	if file != nil {
		part, err := writer.CreateFormFile(file.Field, file.Filename)
		require.NoError(e.T, err)
		_, err = part.Write(file.Content)
		require.NoError(e.T, err)
	}
	require.NoError(e.T, writer.Close())

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.do(req, false)
}

func (e *Env) do(req *http.Request, skipCSRF bool) *httptest.ResponseRecorder {
	e.T.Helper()

	if e.sessionCookie != nil {
		req.AddCookie(e.sessionCookie)
	}

	if !skipCSRF && requiresCSRFAttestation(req.Method) {
		e.ensureCSRFToken()
		if e.csrfCookie != nil {
			req.AddCookie(e.csrfCookie)
		}
		if e.csrfToken != "" {
			req.Header.Set(middleware.CSRFHeaderName, e.csrfToken)
		}
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)

	e.captureCookies(w.Result())
	return w
}

func (e *Env) ensureCSRFToken() {
	if e.csrfToken != "" && e.csrfCookie != nil {
		return
	}
	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(e.T, err)
	resp := e.do(req, true)
	require.Equal(e.T, http.StatusOK, resp.Code, resp.Body.String())
}

func (e *Env) captureCookies(resp *http.Response) {
	if resp == nil {
		return
	}
	defer resp.Body.Close()

	if token := resp.Header.Get(middleware.CSRFHeaderName); token != "" {
		e.csrfToken = token
	}
	for _, c := range resp.Cookies() {
		switch c.Name {
		case middleware.CSRFCookieName:
			e.csrfCookie = &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path}
		case e.Sessions.CookieName():
			if c.MaxAge < 0 || c.Value == "" {
				e.sessionCookie = nil
				continue
			}
			e.sessionCookie = &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path}
		}
	}
}

func requiresCSRFAttestation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
