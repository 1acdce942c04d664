package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/philsca/registrar/pkg/crypto"
)

// DefaultCookieName is the session cookie used by the dashboard.
const DefaultCookieName = "philsca-session"

// DefaultSessionTTL bounds how long a sealed session stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

// ErrNoSession is returned when the request carries no valid session cookie.
var ErrNoSession = errors.New("session: not found")

// SessionData is the identity sealed into the session cookie.
type SessionData struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoUrl"`
	IsLoggedIn  bool   `json:"isLoggedIn"`
}

type sealedSession struct {
	Data      SessionData `json:"data"`
	ExpiresAt int64       `json:"exp"`
}

// SessionConfig describes the cookie and key material for a SessionManager.
type SessionConfig struct {
	CookieName string
	// Password must be at least 32 characters; the cookie key is derived from it.
	Password string
	Salt     string
	TTL      time.Duration
	Secure   bool
	Clock    func() time.Time
}

// SessionManager seals session data into an encrypted, httpOnly cookie.
type SessionManager struct {
	name   string
	key    []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessionManager derives the cookie key and returns a manager.
func NewSessionManager(cfg SessionConfig) (*SessionManager, error) {
	key, err := crypto.DeriveSessionKey(cfg.Password, cfg.Salt)
	if err != nil {
		return nil, fmt.Errorf("session: derive key: %w", err)
	}

	name := cfg.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &SessionManager{name: name, key: key, ttl: ttl, secure: cfg.Secure, now: now}, nil
}

// CookieName returns the configured cookie name.
func (m *SessionManager) CookieName() string { return m.name }

// Save seals data and writes it as the session cookie.
func (m *SessionManager) Save(w http.ResponseWriter, data SessionData) error {
	expiresAt := m.now().Add(m.ttl)
	payload, err := json.Marshal(sealedSession{Data: data, ExpiresAt: expiresAt.Unix()})
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	sealed, err := crypto.Encrypt(payload, m.key)
	if err != nil {
		return fmt.Errorf("session: seal: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    sealed,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Load reads and unseals the session cookie from r.
func (m *SessionManager) Load(r *http.Request) (SessionData, error) {
	cookie, err := r.Cookie(m.name)
	if err != nil || cookie.Value == "" {
		return SessionData{}, ErrNoSession
	}

	plain, err := crypto.Decrypt(cookie.Value, m.key)
	if err != nil {
		return SessionData{}, ErrNoSession
	}

	var sealed sealedSession
	if err := json.Unmarshal(plain, &sealed); err != nil {
		return SessionData{}, ErrNoSession
	}
	if m.now().Unix() >= sealed.ExpiresAt || !sealed.Data.IsLoggedIn || sealed.Data.UID == "" {
		return SessionData{}, ErrNoSession
	}
	return sealed.Data, nil
}

// Destroy expires the session cookie.
func (m *SessionManager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
