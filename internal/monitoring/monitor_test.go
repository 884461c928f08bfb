package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/teresa-solution/owner-console/internal/seed"
	"github.com/teresa-solution/owner-console/internal/store"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func seeded() *store.MemoryStore {
	return store.NewMemoryStore(seed.Func(clock)).WithClock(clock)
}

func servingStatus(t *testing.T, hs *health.Server) healthpb.HealthCheckResponse_ServingStatus {
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	return resp.Status
}

func TestStats_AllHealthy(t *testing.T) {
	rs := seeded()
	hs := health.NewServer()
	m := NewMonitor(rs, clock).WithHealthServer(hs).WithRateLimitKeys(func() int { return 7 })
	m.AddCheck("record_store", StoreCheck(rs, "tenants"))
	m.AddCheck("payment_server", func(ctx context.Context) error { return nil })

	stats := m.Stats(context.Background())
	assert.True(t, stats.Healthy)
	require.Len(t, stats.Checks, 2)
	assert.Equal(t, "record_store", stats.Checks[0].Name)
	assert.Equal(t, "payment_server", stats.Checks[1].Name)
	assert.Equal(t, 7, stats.RateLimitKey)
	// seeded alerts: one critical and two warnings
	assert.Equal(t, 3, stats.ActiveAlerts)
	assert.Len(t, stats.Alerts, 5)
	assert.Equal(t, store.FormatTime(now), stats.CheckedAt)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(t, hs))
	assert.Equal(t, stats, m.Last())
}

func TestStats_FailingCheckMarksUnhealthy(t *testing.T) {
	hs := health.NewServer()
	m := NewMonitor(seeded(), clock).WithHealthServer(hs)
	m.AddCheck("payment_server_down", func(ctx context.Context) error { return errors.New("connection refused") })
	m.AddCheck("panics", func(ctx context.Context) error { panic("boom") })

	stats := m.Stats(context.Background())
	assert.False(t, stats.Healthy)
	assert.Equal(t, "connection refused", stats.Checks[0].Detail)
	assert.Contains(t, stats.Checks[1].Detail, "panic")
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(t, hs))
}

func TestStats_CheckTimeout(t *testing.T) {
	m := NewMonitor(seeded(), clock)
	m.checkTimeout = 20 * time.Millisecond
	m.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	stats := m.Stats(context.Background())
	assert.False(t, stats.Healthy)
	assert.Contains(t, stats.Checks[0].Detail, "deadline")
}

func TestAlerts(t *testing.T) {
	m := NewMonitor(seeded(), clock)
	ctx := context.Background()

	alerts := m.ListAlerts(ctx, 2)
	require.Len(t, alerts, 2)
	assert.Equal(t, "al1", alerts[0].ID)
	assert.Equal(t, alerts[0].Created, alerts[0].Timestamp)

	_, err := m.CreateAlert(ctx, "loud", "x", "")
	assert.ErrorIs(t, err, ErrInvalidAlert)
	_, err = m.CreateAlert(ctx, "info", " ", "")
	assert.ErrorIs(t, err, ErrInvalidAlert)

	created, err := m.CreateAlert(ctx, "Critical", "Database failover", "/owner/monitoring")
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, created.Severity)
	assert.Equal(t, "/owner/monitoring", created.ActionURL)
	assert.NotEmpty(t, created.Timestamp)

	assert.Equal(t, created.ID, m.ListAlerts(ctx, 1)[0].ID)
}

func TestListEvents(t *testing.T) {
	m := NewMonitor(seeded(), clock)
	ctx := context.Background()

	events := m.ListEvents(ctx, "", 0)
	require.Len(t, events, 2)
	assert.Equal(t, "ev1", events[0].ID)

	warnings := m.ListEvents(ctx, "warning", 10)
	require.Len(t, warnings, 1)
	assert.Equal(t, "payment-server", warnings[0].Source)
}

type brokenStore struct{ store.RecordStore }

func (brokenStore) GetList(ctx context.Context, collection string, page, perPage int, opts store.ListOptions) (*store.ListResult, error) {
	return nil, errors.New("unreachable")
}

func TestReadsDegradeToEmpty(t *testing.T) {
	m := NewMonitor(brokenStore{RecordStore: seeded()}, clock)
	ctx := context.Background()

	assert.Empty(t, m.ListAlerts(ctx, 5))
	assert.NotNil(t, m.ListAlerts(ctx, 5))
	assert.Empty(t, m.ListEvents(ctx, "", 5))
	stats := m.Stats(ctx)
	assert.True(t, stats.Healthy, "no checks registered")
	assert.Zero(t, stats.ActiveAlerts)
}
