// Package ratelimit provides the fixed-window request limiter used by the
// owner console API and its outbound actions.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teresa-solution/owner-console/internal/monitoring"
)

// Limit types
const (
	OwnerAdmin       = "owner:admin"
	APIPublic        = "api:public"
	APIAuthenticated = "api:authenticated"
	AIQuery          = "ai:query"
	EmailSend        = "email:send"
	ExportData       = "export:data"
)

// SweepInterval is how often expired windows are dropped.
const SweepInterval = 5 * time.Minute

// unknownTypeRemaining is reported when a caller asks about an unconfigured type.
const unknownTypeRemaining = 100

// LimitConfig is one named bucket: MaxRequests per Window.
type LimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultLimits returns the fixed table of limit classes.
func DefaultLimits() map[string]LimitConfig {
	return map[string]LimitConfig{
		OwnerAdmin:       {MaxRequests: 100, Window: time.Minute},
		APIPublic:        {MaxRequests: 20, Window: time.Minute},
		APIAuthenticated: {MaxRequests: 60, Window: time.Minute},
		AIQuery:          {MaxRequests: 10, Window: time.Minute},
		EmailSend:        {MaxRequests: 5, Window: time.Minute},
		ExportData:       {MaxRequests: 3, Window: time.Minute},
	}
}

// Result is the outcome of one check. Exceeding the limit is reported here,
// never as an error.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Remaining  int       `json:"remaining"`
	Limit      int       `json:"limit"`
	ResetTime  time.Time `json:"resetTime"`
	RetryAfter int       `json:"retryAfter,omitempty"` // seconds
}

// Info describes a key without counting a request against it.
type Info struct {
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"resetTime"`
	Limit     int       `json:"limit"`
}

type entry struct {
	count     int
	resetTime time.Time
}

// Limiter tracks fixed windows keyed by "{limitType}:{identifier}".
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]LimitConfig
	entries map[string]*entry
	now     func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a limiter over limits. A nil map uses DefaultLimits.
func New(limits map[string]LimitConfig) *Limiter {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Limiter{
		limits:  limits,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// WithClock overrides the limiter clock.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func key(identifier, limitType string) string {
	return limitType + ":" + identifier
}

// CheckLimit counts one request for identifier against limitType.
func (l *Limiter) CheckLimit(identifier, limitType string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cfg, ok := l.limits[limitType]
	if !ok {
		log.Warn().Str("limit_type", limitType).Msg("Unknown rate limit type")
		return Result{Allowed: true, Remaining: unknownTypeRemaining, Limit: unknownTypeRemaining, ResetTime: now.Add(time.Minute)}
	}

	k := key(identifier, limitType)
	e, exists := l.entries[k]
	if !exists || !now.Before(e.resetTime) {
		e = &entry{count: 1, resetTime: now.Add(cfg.Window)}
		l.entries[k] = e
		return Result{Allowed: true, Remaining: cfg.MaxRequests - 1, Limit: cfg.MaxRequests, ResetTime: e.resetTime}
	}

	if e.count < cfg.MaxRequests {
		e.count++
		return Result{Allowed: true, Remaining: cfg.MaxRequests - e.count, Limit: cfg.MaxRequests, ResetTime: e.resetTime}
	}

	monitoring.RateLimitRejections.WithLabelValues(limitType).Inc()
	return Result{
		Allowed:    false,
		Remaining:  0,
		Limit:      cfg.MaxRequests,
		ResetTime:  e.resetTime,
		RetryAfter: int(math.Ceil(e.resetTime.Sub(now).Seconds())),
	}
}

// GetRateLimitInfo reports the state of a key without incrementing it.
func (l *Limiter) GetRateLimitInfo(identifier, limitType string) Info {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cfg, ok := l.limits[limitType]
	if !ok {
		return Info{Remaining: unknownTypeRemaining, ResetTime: now.Add(time.Minute), Limit: unknownTypeRemaining}
	}
	e, exists := l.entries[key(identifier, limitType)]
	if !exists || !now.Before(e.resetTime) {
		return Info{Remaining: cfg.MaxRequests, ResetTime: now.Add(cfg.Window), Limit: cfg.MaxRequests}
	}
	return Info{Remaining: max(cfg.MaxRequests-e.count, 0), ResetTime: e.resetTime, Limit: cfg.MaxRequests}
}

// ResetLimit clears one key.
func (l *Limiter) ResetLimit(identifier, limitType string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key(identifier, limitType))
}

// UpdateLimitConfig replaces or adds a limit class. Open windows keep their
// reset time and are judged against the new maximum.
func (l *Limiter) UpdateLimitConfig(limitType string, cfg LimitConfig) error {
	if cfg.MaxRequests <= 0 || cfg.Window <= 0 {
		return fmt.Errorf("invalid limit for %s: max %d window %s", limitType, cfg.MaxRequests, cfg.Window)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limits[limitType] = cfg
	return nil
}

// Limits returns a copy of the configured table.
func (l *Limiter) Limits() map[string]LimitConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]LimitConfig, len(l.limits))
	for k, v := range l.limits {
		out[k] = v
	}
	return out
}

// Size returns the number of tracked keys.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// ClearAll drops every tracked key.
func (l *Limiter) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*entry)
}

// Sweep removes expired windows and returns how many were dropped.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for k, e := range l.entries {
		if !now.Before(e.resetTime) {
			delete(l.entries, k)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("Rate limit sweep")
	}
	return removed
}

// Start runs Sweep every interval until ctx is done or Stop is called.
func (l *Limiter) Start(ctx context.Context, interval time.Duration) {
	l.mu.Lock()
	if l.stop != nil {
		l.mu.Unlock()
		return
	}
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	stop, done := l.stop, l.done
	l.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Sweep()
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the sweep goroutine started by Start and waits for it to exit.
func (l *Limiter) Stop() {
	l.mu.Lock()
	stop, done := l.stop, l.done
	l.mu.Unlock()
	if stop == nil {
		return
	}
	l.stopOnce.Do(func() { close(stop) })
	<-done
}

// ExceededError is returned by Guard when the call was not made.
type ExceededError struct {
	LimitType  string
	RetryAfter int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %ds", e.LimitType, e.RetryAfter)
}

// Guard runs fn only if identifier is within limitType.
func (l *Limiter) Guard(identifier, limitType string, fn func() error) error {
	res := l.CheckLimit(identifier, limitType)
	if !res.Allowed {
		return &ExceededError{LimitType: limitType, RetryAfter: res.RetryAfter}
	}
	return fn()
}
