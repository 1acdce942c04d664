package app

import (
	"strings"
	"time"

	"github.com/philsca/registrar/internal/auth"
	"github.com/philsca/registrar/internal/auth/providers"
	"github.com/philsca/registrar/internal/cache"
)

const (
	defaultLockoutThreshold = 5
	defaultLockoutDuration  = 15 * time.Minute
	defaultTicketTTL        = time.Minute
	defaultResetTTL         = time.Hour
)

// SessionManagerConfig converts AuthConfig into the sealed cookie parameters.
func (c Config) SessionManagerConfig() auth.SessionConfig {
	ttl := c.Auth.Session.TTL
	if ttl <= 0 {
		ttl = auth.DefaultSessionTTL
	}

	return auth.SessionConfig{
		CookieName: strings.TrimSpace(c.Auth.Session.CookieName),
		Password:   c.Auth.Session.Password,
		Salt:       c.Auth.Session.Salt,
		TTL:        ttl,
		Secure:     c.Server.IsProduction(),
	}
}

// TicketServiceConfig converts AuthConfig into the realtime ticket parameters. A nil
// store leaves tickets reusable until they expire.
func (c AuthConfig) TicketServiceConfig(store cache.Store) auth.TicketConfig {
	ttl := c.Ticket.TTL
	if ttl <= 0 {
		ttl = defaultTicketTTL
	}

	return auth.TicketConfig{
		Secret: c.Ticket.Secret,
		Issuer: c.Ticket.Issuer,
		TTL:    ttl,
		Store:  store,
	}
}

// LocalProviderConfig converts AuthConfig into LocalProvider parameters.
func (c AuthConfig) LocalProviderConfig() providers.LocalConfig {
	duration := c.Local.LockoutDuration
	if duration <= 0 {
		duration = defaultLockoutDuration
	}

	threshold := c.Local.LockoutThreshold
	if threshold <= 0 {
		threshold = defaultLockoutThreshold
	}

	return providers.LocalConfig{
		LockoutThreshold: threshold,
		LockoutDuration:  duration,
	}
}

// ResetTTL returns the password reset token lifetime.
func (c AuthConfig) ResetTTL() time.Duration {
	if c.Reset.TTL <= 0 {
		return defaultResetTTL
	}
	return c.Reset.TTL
}

// ResetLinkBase returns the page that receives emailed reset tokens.
func (c Config) ResetLinkBase() string {
	base := strings.TrimRight(strings.TrimSpace(c.Server.PublicURL), "/")
	path := strings.TrimSpace(c.Auth.Reset.LinkPath)
	if path == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(path, "/")
}
