package app

import (
	"strings"

	"github.com/philsca/registrar/internal/cache"
)

// RedisEnabled reports whether Redis is switched on and has somewhere to connect.
func (c CacheConfig) RedisEnabled() bool {
	return c.Redis.Enabled && strings.TrimSpace(c.Redis.Address) != ""
}

// RedisClientConfig maps the redis section onto cache.RedisConfig. A negative pool
// size is treated as unset so go-redis picks its own default.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	r := c.Redis
	pool := r.PoolSize
	if pool < 0 {
		pool = 0
	}
	return cache.RedisConfig{
		Address:   strings.TrimSpace(r.Address),
		Username:  strings.TrimSpace(r.Username),
		Password:  r.Password,
		DB:        r.DB,
		TLS:       r.TLS,
		Timeout:   r.Timeout,
		PoolSize:  pool,
		KeyPrefix: strings.TrimSpace(r.KeyPrefix),
	}
}
