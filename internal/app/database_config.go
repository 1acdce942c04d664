package app

import (
	"strings"

	"github.com/philsca/registrar/internal/database"
)

// ConnectionConfig converts DatabaseConfig into the database package representation.
// Host based settings are only copied for the postgres and mysql drivers; pool limits
// apply to every driver.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	dbCfg := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:            strings.TrimSpace(c.Path),
		DSN:             strings.TrimSpace(c.DSN),
		MaxOpenConns:    c.Pool.MaxOpenConns,
		MaxIdleConns:    c.Pool.MaxIdleConns,
		ConnMaxLifetime: c.Pool.ConnMaxLifetime,
	}

	var remote DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
		return dbCfg
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		remote = c.Postgres
	case "mysql":
		remote = c.MySQL
	default:
		// Leave driver as-is to surface unsupported driver error during open.
		return dbCfg
	}

	dbCfg.Host = strings.TrimSpace(remote.Host)
	dbCfg.Port = remote.Port
	dbCfg.Name = strings.TrimSpace(remote.Database)
	dbCfg.User = strings.TrimSpace(remote.Username)
	dbCfg.Password = remote.Password
	dbCfg.Options = remote.Options
	return dbCfg
}
