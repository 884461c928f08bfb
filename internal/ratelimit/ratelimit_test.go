package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupLimiter(limits map[string]LimitConfig) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	return New(limits).WithClock(clock.Now), clock
}

func TestCheckLimit_FixedWindow(t *testing.T) {
	l, clock := setupLimiter(map[string]LimitConfig{"test": {MaxRequests: 3, Window: time.Second}})

	for _, want := range []int{2, 1, 0} {
		res := l.CheckLimit("user1", "test")
		assert.True(t, res.Allowed)
		assert.Equal(t, want, res.Remaining)
		assert.Equal(t, 3, res.Limit)
	}

	clock.Advance(400 * time.Millisecond)
	res := l.CheckLimit("user1", "test")
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 1, res.RetryAfter)

	clock.Advance(600 * time.Millisecond)
	res = l.CheckLimit("user1", "test")
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func TestCheckLimit_ExportScenario(t *testing.T) {
	l, _ := setupLimiter(nil)

	for i := 0; i < 3; i++ {
		assert.True(t, l.CheckLimit("user1", ExportData).Allowed, "call %d", i+1)
	}
	res := l.CheckLimit("user1", ExportData)
	assert.False(t, res.Allowed)
	assert.Equal(t, 60, res.RetryAfter)

	// other identifiers and other classes are independent
	assert.True(t, l.CheckLimit("user2", ExportData).Allowed)
	assert.True(t, l.CheckLimit("user1", EmailSend).Allowed)
}

func TestCheckLimit_UnknownTypeAllows(t *testing.T) {
	l, _ := setupLimiter(nil)

	res := l.CheckLimit("user1", "nope")
	assert.True(t, res.Allowed)
	assert.Equal(t, 100, res.Remaining)
	assert.Equal(t, 0, l.Size())
}

func TestDefaultLimits(t *testing.T) {
	limits := DefaultLimits()
	want := map[string]int{
		OwnerAdmin: 100, APIPublic: 20, APIAuthenticated: 60, AIQuery: 10, EmailSend: 5, ExportData: 3,
	}
	require.Len(t, limits, len(want))
	for name, n := range want {
		assert.Equal(t, n, limits[name].MaxRequests, name)
		assert.Equal(t, time.Minute, limits[name].Window, name)
	}
}

func TestGetRateLimitInfo_DoesNotCount(t *testing.T) {
	l, clock := setupLimiter(nil)

	info := l.GetRateLimitInfo("user1", AIQuery)
	assert.Equal(t, 10, info.Remaining)
	assert.Equal(t, 0, l.Size())

	l.CheckLimit("user1", AIQuery)
	l.CheckLimit("user1", AIQuery)
	info = l.GetRateLimitInfo("user1", AIQuery)
	assert.Equal(t, 8, info.Remaining)
	assert.Equal(t, clock.Now().Add(time.Minute), info.ResetTime)
}

func TestResetAndUpdateConfig(t *testing.T) {
	l, _ := setupLimiter(nil)

	for i := 0; i < 5; i++ {
		l.CheckLimit("user1", EmailSend)
	}
	assert.False(t, l.CheckLimit("user1", EmailSend).Allowed)

	l.ResetLimit("user1", EmailSend)
	assert.True(t, l.CheckLimit("user1", EmailSend).Allowed)

	require.NoError(t, l.UpdateLimitConfig(EmailSend, LimitConfig{MaxRequests: 50, Window: time.Minute}))
	assert.Equal(t, 48, l.CheckLimit("user1", EmailSend).Remaining)
	assert.Error(t, l.UpdateLimitConfig(EmailSend, LimitConfig{}))

	l.ClearAll()
	assert.Equal(t, 0, l.Size())
}

func TestSweep(t *testing.T) {
	l, clock := setupLimiter(map[string]LimitConfig{
		"short": {MaxRequests: 1, Window: time.Second},
		"long":  {MaxRequests: 1, Window: time.Hour},
	})
	l.CheckLimit("a", "short")
	l.CheckLimit("b", "long")
	assert.Equal(t, 2, l.Size())

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Size())
}

func TestStartStop(t *testing.T) {
	l, _ := setupLimiter(nil)
	l.Start(context.Background(), time.Millisecond)
	l.Stop()
	l.Stop()
}

func TestGuard(t *testing.T) {
	l, _ := setupLimiter(map[string]LimitConfig{"once": {MaxRequests: 1, Window: time.Minute}})

	calls := 0
	fn := func() error { calls++; return nil }
	require.NoError(t, l.Guard("u", "once", fn))

	err := l.Guard("u", "once", fn)
	var exceeded *ExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.Equal(t, "once", exceeded.LimitType)
	assert.Equal(t, 60, exceeded.RetryAfter)
	assert.Equal(t, 1, calls)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, _ := setupLimiter(map[string]LimitConfig{"api": {MaxRequests: 2, Window: time.Minute}})

	r := gin.New()
	r.Use(l.Middleware("api", nil))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("x-api-key", "secret")
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)
	w := do()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}
