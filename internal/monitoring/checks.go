package monitoring

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"
)

// Pinger is satisfied by the Redis store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SubscriberCounter is satisfied by the realtime hub.
type SubscriberCounter interface {
	Subscribers(stream string) int
}

// Database pings the SQL connection pool behind db.
func Database(db *gorm.DB) Check {
	return NewCheck("database", func(ctx context.Context) ProbeResult {
		start := time.Now()
		if db == nil {
			return ProbeResult{Status: StatusDown, Details: "database not configured"}
		}
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		return ResultFromError(err, time.Since(start))
	})
}

// Redis pings the shared cache. A nil client means the server fell back to
// database-backed stores, which is reported as degraded rather than down.
func Redis(client Pinger) Check {
	return NewCheck("redis", func(ctx context.Context) ProbeResult {
		start := time.Now()
		if client == nil {
			return ProbeResult{Status: StatusDegraded, Details: "redis unavailable; using database fallback"}
		}
		return ResultFromError(client.Ping(ctx), time.Since(start))
	})
}

// Storage verifies the blob root exists and is a directory.
func Storage(root string) Check {
	return NewCheck("storage", func(context.Context) ProbeResult {
		start := time.Now()
		info, err := os.Stat(root)
		if err != nil {
			return ResultFromError(err, time.Since(start))
		}
		if !info.IsDir() {
			return ProbeResult{Status: StatusDown, Details: fmt.Sprintf("%s is not a directory", root)}
		}
		return ProbeResult{Status: StatusUp, Duration: time.Since(start)}
	})
}

// Realtime reports the number of dashboard subscribers. It never fails.
func Realtime(hub SubscriberCounter, stream string) Check {
	return NewCheck("realtime", func(context.Context) ProbeResult {
		if hub == nil {
			return ProbeResult{Status: StatusUp, Details: "realtime disabled"}
		}
		return ProbeResult{
			Status:  StatusUp,
			Details: fmt.Sprintf("%d %s subscribers", hub.Subscribers(stream), stream),
		}
	})
}
