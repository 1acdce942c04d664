package monitoring_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/philsca/registrar/internal/cache"
	"github.com/philsca/registrar/internal/database/testutil"
	"github.com/philsca/registrar/internal/monitoring"
)

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager(0)
	manager.RegisterReadiness(monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection refused"}
	}))
	manager.RegisterReadiness(monitoring.Check{})

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "database", report.Checks[0].Component)
	require.Equal(t, "redis", report.Checks[1].Component)

	live := manager.EvaluateLiveness(context.Background())
	require.True(t, live.Success)
	require.Empty(t, live.Checks)
}

func TestHealthManagerRecoversPanicsAndTimesOut(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager(20 * time.Millisecond)
	manager.RegisterReadiness(monitoring.NewCheck("panics", func(context.Context) monitoring.ProbeResult {
		panic("boom")
	}))
	manager.RegisterReadiness(monitoring.NewCheck("slow", func(ctx context.Context) monitoring.ProbeResult {
		<-ctx.Done()
		return monitoring.ResultFromError(ctx.Err(), 0)
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.Equal(t, monitoring.StatusDown, report.Checks[0].Status)
	require.Equal(t, "boom", report.Checks[0].Details)
	require.Equal(t, monitoring.StatusDegraded, report.Checks[1].Status)
	require.Equal(t, monitoring.StatusDown, report.Status)
}

func TestResultFromError(t *testing.T) {
	t.Parallel()

	require.Equal(t, monitoring.StatusUp, monitoring.ResultFromError(nil, time.Millisecond).Status)
	require.Equal(t, monitoring.StatusDown, monitoring.ResultFromError(errors.New("refused"), -1).Status)
	require.Equal(t, monitoring.StatusDegraded, monitoring.ResultFromError(context.DeadlineExceeded, 0).Status)
}

func TestDatabaseCheck(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	result := monitoring.Database(db).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)

	require.Equal(t, monitoring.StatusDown, monitoring.Database(nil).Run(context.Background()).Status)
}

func TestRedisCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewRedisStore(client)
	t.Cleanup(func() { _ = store.Close() })

	require.Equal(t, monitoring.StatusUp, monitoring.Redis(store).Run(context.Background()).Status)

	mr.Close()
	require.Equal(t, monitoring.StatusDown, monitoring.Redis(store).Run(context.Background()).Status)

	require.Equal(t, monitoring.StatusDegraded, monitoring.Redis(nil).Run(context.Background()).Status)
}

func TestStorageCheck(t *testing.T) {
	root := t.TempDir()
	require.Equal(t, monitoring.StatusUp, monitoring.Storage(root).Run(context.Background()).Status)

	missing := filepath.Join(root, "missing")
	require.Equal(t, monitoring.StatusDown, monitoring.Storage(missing).Run(context.Background()).Status)

	file := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	require.Equal(t, monitoring.StatusDown, monitoring.Storage(file).Run(context.Background()).Status)
}

type fakeHub int

func (h fakeHub) Subscribers(string) int { return int(h) }

func TestRealtimeCheck(t *testing.T) {
	result := monitoring.Realtime(fakeHub(3), "dashboard").Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Equal(t, "3 dashboard subscribers", result.Details)
}
