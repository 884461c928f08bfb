package monitoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/teresa-solution/owner-console/internal/model"
	"github.com/teresa-solution/owner-console/internal/store"
)

// ServiceName is the name the console reports under on the gRPC health service.
const ServiceName = "owner-console"

const (
	collAlerts = "system_alerts"
	collEvents = "monitoring_events"

	defaultCheckTimeout = 5 * time.Second
	statsAlertLimit     = 5
)

// Alert severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// CheckFunc reports a subsystem as unhealthy by returning an error.
type CheckFunc func(ctx context.Context) error

type check struct {
	name string
	fn   CheckFunc
}

// Monitor composes named health checks and the alert feed into one
// MonitoringStats object.
type Monitor struct {
	store        store.RecordStore
	health       *health.Server
	now          func() time.Time
	checkTimeout time.Duration
	rateLimitKey func() int

	mu     sync.RWMutex
	checks []check
	last   model.MonitoringStats
}

func NewMonitor(rs store.RecordStore, now func() time.Time) *Monitor {
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		store:        rs,
		now:          now,
		checkTimeout: defaultCheckTimeout,
	}
}

// WithHealthServer publishes every Stats result to h.
func (m *Monitor) WithHealthServer(h *health.Server) *Monitor {
	m.health = h
	return m
}

// WithRateLimitKeys reports the rate limiter's table size in Stats.
func (m *Monitor) WithRateLimitKeys(size func() int) *Monitor {
	m.rateLimitKey = size
	return m
}

// AddCheck registers a named check. Checks run in registration order.
func (m *Monitor) AddCheck(name string, fn CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, check{name: name, fn: fn})
}

// StoreCheck probes the record store with a one-row list of collection.
func StoreCheck(rs store.RecordStore, collection string) CheckFunc {
	return func(ctx context.Context) error {
		_, err := rs.GetList(ctx, collection, 1, 1, store.ListOptions{})
		return err
	}
}

func (m *Monitor) runCheck(ctx context.Context, c check) model.CheckResult {
	ctx, cancel := context.WithTimeout(ctx, m.checkTimeout)
	defer cancel()

	started := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return c.fn(ctx)
	}()
	res := model.CheckResult{
		Name:      c.name,
		Healthy:   err == nil,
		LatencyMS: time.Since(started).Milliseconds(),
	}
	if err != nil {
		res.Detail = err.Error()
	}
	return res
}

// Stats runs every check concurrently and returns the composed result. The
// result is also kept for Last and pushed to the health server.
func (m *Monitor) Stats(ctx context.Context) model.MonitoringStats {
	m.mu.RLock()
	checks := append([]check(nil), m.checks...)
	m.mu.RUnlock()

	results := make([]model.CheckResult, len(checks))
	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			results[i] = m.runCheck(ctx, c)
			return nil
		})
	}

	var (
		alerts []model.SystemAlert
		active int
	)
	g.Go(func() error {
		alerts = m.ListAlerts(ctx, statsAlertLimit)
		active = m.activeAlerts(ctx)
		return nil
	})
	_ = g.Wait()

	stats := model.MonitoringStats{
		Healthy:      true,
		Checks:       results,
		ActiveAlerts: active,
		Alerts:       alerts,
		CheckedAt:    store.FormatTime(m.now().UTC()),
	}
	if m.rateLimitKey != nil {
		stats.RateLimitKey = m.rateLimitKey()
	}
	for _, r := range results {
		gauge := 1.0
		if !r.Healthy {
			gauge = 0
			stats.Healthy = false
			log.Warn().Str("check", r.Name).Str("detail", r.Detail).Msg("Health check failed")
		}
		HealthStatus.WithLabelValues(r.Name).Set(gauge)
	}

	m.publish(stats.Healthy)
	m.mu.Lock()
	m.last = stats
	m.mu.Unlock()
	return stats
}

// Last returns the most recent Stats result without running checks.
func (m *Monitor) Last() model.MonitoringStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

func (m *Monitor) publish(healthy bool) {
	if m.health == nil {
		return
	}
	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	m.health.SetServingStatus("", status)
	m.health.SetServingStatus(ServiceName, status)
}

func (m *Monitor) activeAlerts(ctx context.Context) int {
	res, err := m.store.GetList(ctx, collAlerts, 1, 1, store.ListOptions{
		Filter: fmt.Sprintf(`severity != "%s"`, SeverityInfo),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to count active alerts")
		RecordFallback("monitoring", "active_alerts")
		return 0
	}
	return res.TotalItems
}

// ListAlerts returns the newest alerts. A failed read yields an empty list.
func (m *Monitor) ListAlerts(ctx context.Context, limit int) []model.SystemAlert {
	if limit <= 0 {
		limit = statsAlertLimit
	}
	res, err := m.store.GetList(ctx, collAlerts, 1, limit, store.ListOptions{Sort: "-created"})
	if err != nil {
		log.Error().Err(err).Msg("Failed to list alerts")
		RecordFallback("monitoring", "alerts")
		return []model.SystemAlert{}
	}
	alerts, err := store.DecodeAll[model.SystemAlert](res.Items)
	if err != nil {
		log.Error().Err(err).Msg("Failed to decode alerts")
		RecordFallback("monitoring", "alerts")
		return []model.SystemAlert{}
	}
	for i := range alerts {
		if alerts[i].Timestamp == "" {
			alerts[i].Timestamp = alerts[i].Created
		}
	}
	return alerts
}

// ErrInvalidAlert is returned by CreateAlert for bad input.
var ErrInvalidAlert = errors.New("monitoring: invalid alert")

// CreateAlert stores a new system alert. Critical alerts are also raised
// through Alert.
func (m *Monitor) CreateAlert(ctx context.Context, severity, message, actionURL string) (*model.SystemAlert, error) {
	severity = strings.ToLower(severity)
	switch severity {
	case SeverityInfo, SeverityWarning, SeverityCritical:
	default:
		return nil, fmt.Errorf("%w: unknown severity %q", ErrInvalidAlert, severity)
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidAlert)
	}

	rec := store.Record{"severity": severity, "message": message}
	if actionURL != "" {
		rec["actionUrl"] = actionURL
	}
	created, err := m.store.Create(ctx, collAlerts, rec)
	if err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}
	alert, err := store.Decode[model.SystemAlert](created)
	if err != nil {
		return nil, err
	}
	alert.Timestamp = alert.Created
	if severity == SeverityCritical {
		Alert(message, map[string]string{"alert_id": alert.ID})
	}
	return &alert, nil
}

// ListEvents returns the newest monitoring events, optionally narrowed to
// one severity.
func (m *Monitor) ListEvents(ctx context.Context, severity string, limit int) []model.MonitoringEvent {
	if limit <= 0 {
		limit = 50
	}
	opts := store.ListOptions{Sort: "-timestamp"}
	if severity != "" {
		opts.Filter = fmt.Sprintf(`severity = "%s"`, strings.ReplaceAll(severity, `"`, ""))
	}
	res, err := m.store.GetList(ctx, collEvents, 1, limit, opts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list monitoring events")
		RecordFallback("monitoring", "events")
		return []model.MonitoringEvent{}
	}
	events, err := store.DecodeAll[model.MonitoringEvent](res.Items)
	if err != nil {
		log.Error().Err(err).Msg("Failed to decode monitoring events")
		RecordFallback("monitoring", "events")
		return []model.MonitoringEvent{}
	}
	return events
}
