package app

import (
	"fmt"
	"strings"

	"github.com/philsca/registrar/pkg/crypto"
)

const (
	ticketSecretBytes    = 48
	sessionPasswordBytes = 36
)

// ApplyRuntimeDefaults ensures critical secrets are populated even when no configuration file is supplied.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
// Generated secrets do not survive restarts, so existing sessions are invalidated on every boot.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.Ticket.Secret) == "" {
		secret, err := crypto.GenerateToken(ticketSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate ticket secret: %w", err)
		}
		cfg.Auth.Ticket.Secret = secret
		generated["auth.ticket.secret"] = true
	}

	if strings.TrimSpace(cfg.Auth.Session.Password) == "" {
		password, err := crypto.GenerateToken(sessionPasswordBytes)
		if err != nil {
			return nil, fmt.Errorf("generate session password: %w", err)
		}
		cfg.Auth.Session.Password = password
		generated["auth.session.password"] = true
	}

	return generated, nil
}
