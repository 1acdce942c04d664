package app

import (
	"github.com/philsca/registrar/pkg/logger"
)

// ConfigureLogging installs the global logger described by the server section.
func ConfigureLogging(server ServerConfig) error {
	return logger.Init(logger.Options{
		Level:  server.LogLevel,
		Format: server.LogFormat,
		Fields: map[string]string{"service": "registrar", "env": server.Environment},
	})
}
