package app

import (
	"strings"

	"github.com/philsca/registrar/internal/push"
	"github.com/philsca/registrar/internal/storage"
	"github.com/philsca/registrar/pkg/mail"
)

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:       c.SMTP.Enabled,
		Host:          strings.TrimSpace(c.SMTP.Host),
		Port:          c.SMTP.Port,
		Username:      c.SMTP.Username,
		Password:      c.SMTP.Password,
		From:          c.SMTP.From,
		UseTLS:        c.SMTP.UseTLS,
		SkipTLSVerify: c.SMTP.SkipTLSVerify,
		Timeout:       c.SMTP.Timeout,
	}
}

// ClientConfig converts PushConfig to the push package representation.
func (c PushConfig) ClientConfig() push.Config {
	endpoint := strings.TrimSpace(c.Endpoint)
	if endpoint == "" {
		endpoint = push.DefaultEndpoint
	}
	return push.Config{
		Endpoint:    endpoint,
		AccessToken: strings.TrimSpace(c.AccessToken),
		Timeout:     c.Timeout,
	}
}

// DispatcherConfig bounds background push delivery.
func (c PushConfig) DispatcherConfig() push.DispatcherConfig {
	return push.DispatcherConfig{
		Workers:   c.Workers,
		QueueSize: c.QueueSize,
		Timeout:   c.Timeout,
	}
}

// StoreConfig converts StorageConfig to the storage package representation.
func (c StorageConfig) StoreConfig() storage.Config {
	return storage.Config{
		Root:           strings.TrimSpace(c.Root),
		PublicPath:     strings.TrimSpace(c.PublicPath),
		MaxUploadBytes: c.MaxUploadBytes,
	}
}
