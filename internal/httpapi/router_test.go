package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teresa-solution/owner-console/internal/dashboard"
	"github.com/teresa-solution/owner-console/internal/model"
	"github.com/teresa-solution/owner-console/internal/monitoring"
	"github.com/teresa-solution/owner-console/internal/payment"
	"github.com/teresa-solution/owner-console/internal/ratelimit"
	"github.com/teresa-solution/owner-console/internal/seed"
	"github.com/teresa-solution/owner-console/internal/service"
	"github.com/teresa-solution/owner-console/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func setupRouter(t *testing.T, limits map[string]ratelimit.LimitConfig) *gin.Engine {
	t.Helper()
	rs := store.NewMemoryStore(seed.Func(clock)).WithClock(clock)
	owner := service.NewOwnerService(rs, clock)
	return NewRouter(Services{
		Owner:     owner,
		Billing:   service.NewBillingService(rs, clock),
		Tenants:   service.NewTenantService(rs, clock),
		Analytics: service.NewAnalyticsService(payment.NewMockClient(clock), clock),
		Dashboard: dashboard.NewController(owner, clock),
		Monitor:   monitoring.NewMonitor(rs, clock),
		Limiter:   ratelimit.New(limits).WithClock(clock),
	})
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = do(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetDashboard(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(r, http.MethodGet, "/api/owner/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[dashboard.State](t, w)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	require.NotNil(t, st.Data)
	assert.Len(t, st.Data.RevenueHistory, 6)
	assert.Len(t, st.Data.Alerts, 5)

	stub, _ := service.StubCohortProvider{}.Cohorts(context.Background())
	require.Len(t, st.Data.CohortRetention, 5)
	assert.Equal(t, "Aug 2024", st.Data.CohortRetention[0].Cohort)
	assert.Equal(t, stub, st.Data.CohortRetention)
}

type sourceFunc func(ctx context.Context) (*model.OwnerDashboardData, error)

func (f sourceFunc) GetDashboardData(ctx context.Context) (*model.OwnerDashboardData, error) {
	return f(ctx)
}

func TestGetDashboard_NothingLoadedIsUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr string
	}{
		{"aborted", store.ErrAborted, dashboardNotLoaded},
		{"failed", errors.New("boom"), dashboard.LoadErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			src := sourceFunc(func(ctx context.Context) (*model.OwnerDashboardData, error) {
				calls++
				if calls == 1 {
					return nil, tt.err
				}
				return &model.OwnerDashboardData{}, nil
			})
			r := NewRouter(Services{
				Dashboard: dashboard.NewController(src, clock),
				Limiter:   ratelimit.New(nil).WithClock(clock),
			})

			w := do(r, http.MethodGet, "/api/owner/dashboard", nil)
			require.Equal(t, http.StatusServiceUnavailable, w.Code)
			st := decode[dashboard.State](t, w)
			assert.Nil(t, st.Data)
			assert.False(t, st.Loading)
			assert.Equal(t, tt.wantErr, st.Error)

			w = do(r, http.MethodGet, "/api/owner/dashboard", nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.NotNil(t, decode[dashboard.State](t, w).Data)
		})
	}
}

func TestListTenants(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(r, http.MethodGet, "/api/owner/tenants", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, seed.TenantCount(), decode[model.TenantList](t, w).TotalItems)

	w = do(r, http.MethodGet, "/api/owner/tenants?status=suspended", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[model.TenantList](t, w)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "t05", list.Items[0].ID)

	w = do(r, http.MethodGet, "/api/owner/tenants?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantLifecycle(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(r, http.MethodGet, "/api/owner/tenants/t01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Riverside Academy", decode[model.Tenant](t, w).Name)

	w = do(r, http.MethodGet, "/api/owner/tenants/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/api/owner/tenants", map[string]any{"name": "Bad", "subdomain": "-x-", "admin_email": "a@b.co"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/owner/tenants", map[string]any{"name": "Copy", "subdomain": "riverside", "admin_email": "a@b.co"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/api/owner/tenants", map[string]any{"name": "Aurora High", "subdomain": "aurora", "admin_email": "admin@aurora.edu"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[model.Tenant](t, w)
	assert.Equal(t, model.TenantTrial, created.Status)

	w = do(r, http.MethodPost, "/api/owner/tenants/"+created.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.TenantActive, decode[model.Tenant](t, w).Status)

	w = do(r, http.MethodPatch, "/api/owner/tenants/"+created.ID, map[string]any{"name": "Aurora High School"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Aurora High School", decode[model.Tenant](t, w).Name)

	w = do(r, http.MethodDelete, "/api/owner/tenants/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(r, http.MethodDelete, "/api/owner/tenants/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTenantUsage(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(r, http.MethodGet, "/api/owner/tenants/t01/usage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Current       model.CurrentUsage  `json:"current"`
		History       []model.TenantUsage `json:"history"`
		CanAddStudent bool                `json:"canAddStudent"`
	}](t, w)
	assert.Equal(t, 6, body.Current.StudentCount)
	assert.Equal(t, 3, body.Current.TeacherCount)
	assert.True(t, body.CanAddStudent)
	assert.NotEmpty(t, body.History)
}

func TestBillingRoutes(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(r, http.MethodGet, "/api/owner/billing/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3093.0, decode[model.BillingStats](t, w).MRR)

	w = do(r, http.MethodGet, "/api/owner/billing/revenue-history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.RevenuePoint](t, w), 12)

	w = do(r, http.MethodPost, "/api/owner/billing/invoices/missing/paid", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProrationRoutes(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(r, http.MethodPost, "/api/owner/billing/proration/calculate", map[string]any{"subscriptionId": "sub_1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := map[string]any{"subscriptionId": "sub_1", "newPriceId": "price_pro"}
	for _, path := range []string{"calculate", "apply", "schedule"} {
		w = do(r, http.MethodPost, "/api/owner/billing/proration/"+path, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestChurnRoutes(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(r, http.MethodGet, "/api/owner/churn/report", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/owner/churn/at-risk?minRiskScore=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/owner/churn/at-risk?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.LessOrEqual(t, len(decode[[]model.ChurnAnalysis](t, w)), 1)

	w = do(r, http.MethodPost, "/api/owner/churn/retention/cus_1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExportRoutes(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(r, http.MethodPost, "/api/owner/exports/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for i := 0; i < 2; i++ {
		w = do(r, http.MethodPost, "/api/owner/exports/"+payment.ExportTypes[0], nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w = do(r, http.MethodPost, "/api/owner/exports/"+payment.ExportTypes[0], nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestOwnerRateLimit(t *testing.T) {
	r := setupRouter(t, map[string]ratelimit.LimitConfig{
		ratelimit.OwnerAdmin: {MaxRequests: 2, Window: time.Minute},
	})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/owner/billing/stats", nil).Code)
	}
	w := do(r, http.MethodGet, "/api/owner/billing/stats", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", nil).Code)
}

func TestRateLimitInfo(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(r, http.MethodGet, "/api/owner/rate-limits/export:data/203.0.113.7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[ratelimit.Info](t, w)
	assert.Equal(t, 3, info.Limit)
	assert.Equal(t, 3, info.Remaining)

	w = do(r, http.MethodGet, "/api/owner/rate-limits/nope/203.0.113.7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMonitoringRoutes(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(r, http.MethodGet, "/api/owner/monitoring", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[model.MonitoringStats](t, w)
	assert.True(t, stats.Healthy)
	assert.Equal(t, 3, stats.ActiveAlerts)

	w = do(r, http.MethodPost, "/api/owner/monitoring/alerts", map[string]any{"severity": "loud", "message": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/owner/monitoring/alerts", map[string]any{"severity": "warning", "message": "Queue backlog"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, statusOf(&ratelimit.ExceededError{LimitType: ratelimit.EmailSend}))
	assert.Equal(t, http.StatusBadGateway, statusOf(&payment.APIError{Status: 503}))
	assert.Equal(t, http.StatusConflict, statusOf(service.ErrDuplicate))
	assert.Equal(t, http.StatusInternalServerError, statusOf(assert.AnError))
}
