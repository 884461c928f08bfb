package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teresa-solution/owner-console/internal/model"
	"github.com/teresa-solution/owner-console/internal/seed"
	"github.com/teresa-solution/owner-console/internal/store"
)

func TestGetTenants(t *testing.T) {
	svc := NewTenantService(seededStore(), testClock)

	list := svc.GetTenants(context.Background(), "")
	assert.Equal(t, seed.TenantCount(), list.TotalItems)
	require.Len(t, list.Items, seed.TenantCount())
	assert.Equal(t, "t12", list.Items[0].ID)
	assert.Equal(t, TenantListPerPage, list.PerPage)

	trials := svc.GetTenants(context.Background(), `status = "trial"`)
	assert.Equal(t, 2, trials.TotalItems)
}

func TestGetTenants_HangingStoreFallsBackAfterTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	svc := NewTenantService(hangingStore{RecordStore: seededStore(), release: release}, testClock)

	started := time.Now()
	list := svc.GetTenants(context.Background(), "")
	elapsed := time.Since(started)

	assert.GreaterOrEqual(t, elapsed, TenantListTimeout)
	assert.Less(t, elapsed, TenantListTimeout+time.Second)
	assert.Equal(t, FallbackTenants(testNow), list)
	assert.Equal(t, 5, list.TotalItems)
	assert.Len(t, list.Items, 5)
}

func TestGetTenants_StoreErrorFallsBack(t *testing.T) {
	rs := failingStore{RecordStore: seededStore(), collection: "tenants", err: &store.APIError{Status: 500, Message: "boom"}}

	list := NewTenantService(rs, testClock).GetTenants(context.Background(), "")
	assert.Equal(t, "fallback-1", list.Items[0].ID)
}

func TestGetTenantByID(t *testing.T) {
	svc := NewTenantService(seededStore(), testClock)

	tn, err := svc.GetTenantByID(context.Background(), "t01")
	require.NoError(t, err)
	assert.Equal(t, "Riverside Academy", tn.Name)
	assert.Equal(t, model.PlanEnterprise, tn.Plan)

	_, err = svc.GetTenantByID(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateTenant(t *testing.T) {
	rs := seededStore()
	audit := NewAuditRecorder(rs, 4)
	svc := NewTenantService(rs, testClock).WithAudit(audit)
	ctx := context.Background()

	created, err := svc.CreateTenant(ctx, model.Tenant{
		Name:       "Granite Hills",
		Subdomain:  "granite-hills",
		AdminEmail: "admin@granite.edu",
		Plan:       model.PlanPro,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.TenantTrial, created.Status)
	assert.Equal(t, model.SubscriptionTrialing, created.SubscriptionStatus)
	assert.Equal(t, 1000, created.MaxStudents)
	assert.Equal(t, 100, created.MaxTeachers)
	assert.Equal(t, 50, created.MaxStorageGB)
	assert.True(t, HasFeature(created, "reports"))
	assert.False(t, HasFeature(created, "sso"))
	assert.Equal(t, store.FormatTime(testNow), created.Created)

	_, err = svc.CreateTenant(ctx, model.Tenant{Name: "Copy", Subdomain: "granite-hills", AdminEmail: "x@y.io"})
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = svc.CreateTenant(ctx, model.Tenant{Name: "Copy", Subdomain: "RIVERSIDE", AdminEmail: "x@y.io"})
	assert.ErrorIs(t, err, ErrValidation)

	audit.Close()
	res, err := rs.GetList(ctx, "audit_logs", 1, 10, store.ListOptions{Filter: `action = "tenant.create"`})
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalItems)
	assert.Equal(t, "system", res.Items[0].String("user"))
}

func TestCreateTenant_DefaultsToFreeTrial(t *testing.T) {
	svc := NewTenantService(seededStore(), testClock)

	created, err := svc.CreateTenant(context.Background(), model.Tenant{Name: "Solo", Subdomain: "solo", AdminEmail: "me@solo.io"})
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, created.Plan)
	assert.Equal(t, 50, created.MaxStudents)
	assert.Equal(t, []string{"gradebook"}, created.FeaturesEnabled)
}

func TestCreateTenant_Validation(t *testing.T) {
	svc := NewTenantService(seededStore(), testClock)
	valid := model.Tenant{Name: "Valid", Subdomain: "valid", AdminEmail: "a@valid.io"}

	tests := []struct {
		name   string
		modify func(*model.Tenant)
	}{
		{"missing name", func(t *model.Tenant) { t.Name = "  " }},
		{"missing subdomain", func(t *model.Tenant) { t.Subdomain = "" }},
		{"leading hyphen", func(t *model.Tenant) { t.Subdomain = "-valid" }},
		{"trailing hyphen", func(t *model.Tenant) { t.Subdomain = "valid-" }},
		{"uppercase", func(t *model.Tenant) { t.Subdomain = "Valid" }},
		{"underscore", func(t *model.Tenant) { t.Subdomain = "va_lid" }},
		{"missing email", func(t *model.Tenant) { t.AdminEmail = "" }},
		{"bad email", func(t *model.Tenant) { t.AdminEmail = "nobody" }},
		{"unknown plan", func(t *model.Tenant) { t.Plan = "platinum" }},
		{"unknown status", func(t *model.Tenant) { t.Status = "frozen" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tn := valid
			tt.modify(&tn)
			_, err := svc.CreateTenant(context.Background(), tn)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestIsValidSubdomain(t *testing.T) {
	assert.True(t, isValidSubdomain("a"))
	assert.True(t, isValidSubdomain("a-1"))
	assert.True(t, isValidSubdomain("x1y2"))
	assert.False(t, isValidSubdomain(""))
	assert.False(t, isValidSubdomain("ab-"))
	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, isValidSubdomain(string(long)))
	assert.True(t, isValidSubdomain(string(long[:63])))
}

func TestUpdateTenant(t *testing.T) {
	svc := NewTenantService(seededStore(), testClock)
	ctx := context.Background()

	updated, err := svc.UpdateTenant(ctx, "t03", map[string]any{"plan": "pro", "name": "Lakeside Learning Co"})
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, updated.Plan)
	assert.Equal(t, "Lakeside Learning Co", updated.Name)

	_, err = svc.UpdateTenant(ctx, "t03", map[string]any{"subdomain": "lakeside"})
	assert.NoError(t, err, "keeping the same subdomain is not a conflict")
	_, err = svc.UpdateTenant(ctx, "t03", map[string]any{"subdomain": "riverside"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = svc.UpdateTenant(ctx, "t03", map[string]any{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UpdateTenant(ctx, "t03", map[string]any{"id": "t99"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UpdateTenant(ctx, "t03", map[string]any{"status": "frozen"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UpdateTenant(ctx, "missing", map[string]any{"name": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSuspendActivateDelete(t *testing.T) {
	svc := NewTenantService(seededStore(), testClock)
	ctx := context.Background()

	suspended, err := svc.SuspendTenant(ctx, "t01")
	require.NoError(t, err)
	assert.Equal(t, model.TenantSuspended, suspended.Status)

	active, err := svc.ActivateTenant(ctx, "t05")
	require.NoError(t, err)
	assert.Equal(t, model.TenantActive, active.Status)

	require.NoError(t, svc.DeleteTenant(ctx, "t12"))
	_, err = svc.GetTenantByID(ctx, "t12")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteTenant(ctx, "t12"), store.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteTenant(ctx, ""), ErrValidation)
}

func TestUsage(t *testing.T) {
	svc := NewTenantService(seededStore(), testClock)
	ctx := context.Background()

	usage, err := svc.GetCurrentUsage(ctx, "t01")
	require.NoError(t, err)
	assert.Equal(t, model.CurrentUsage{StudentCount: 6, TeacherCount: 3, ClassCount: 4}, usage)

	history := svc.GetTenantUsage(ctx, "t01", "", "")
	require.Len(t, history, 1)
	assert.Equal(t, 6, history[0].StudentCount)
	assert.Empty(t, svc.GetTenantUsage(ctx, "t08", "", ""))

	start := store.FormatTime(testNow.AddDate(0, 0, -60))
	end := store.FormatTime(testNow.AddDate(0, 0, 1))
	assert.Len(t, svc.GetTenantUsage(ctx, "t01", start, end), 1)

	recorded, err := svc.RecordUsage(ctx, model.TenantUsage{Tenant: "t08", PeriodStart: start, PeriodEnd: end, StudentCount: 2})
	require.NoError(t, err)
	assert.NotEmpty(t, recorded.ID)
	assert.Len(t, svc.GetTenantUsage(ctx, "t08", "", ""), 1)

	_, err = svc.RecordUsage(ctx, model.TenantUsage{Tenant: "t08"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCanAdd(t *testing.T) {
	rs := storeWith(map[string][]store.Record{
		"tenants": {
			{"id": "full", "name": "Full", "max_students": 2.0, "max_teachers": 5.0},
		},
		"users": {
			{"id": "u1", "tenant": "full", "role": "Student"},
			{"id": "u2", "tenant": "full", "role": "Student"},
			{"id": "u3", "tenant": "full", "role": "Teacher"},
		},
	})
	svc := NewTenantService(rs, testClock)
	ctx := context.Background()

	ok, err := svc.CanAddStudent(ctx, "full")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CanAddTeacher(ctx, "full")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.CanAddStudent(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetCurrentUsage_StoreFailure(t *testing.T) {
	rs := failingStore{RecordStore: seededStore(), collection: "classes", err: errors.New("x")}

	_, err := NewTenantService(rs, testClock).GetCurrentUsage(context.Background(), "t01")
	assert.Error(t, err)
}

func TestGetPlansOnlyActive(t *testing.T) {
	plans := NewTenantService(seededStore(), testClock).GetPlans(context.Background())
	require.Len(t, plans, 4)
	assert.Equal(t, "Free", plans[0].Name)
	assert.Equal(t, "Enterprise", plans[3].Name)
}

func TestGetTenantStats(t *testing.T) {
	stats := NewTenantService(seededStore(), testClock).GetTenantStats(context.Background())
	// the cancelled tenant is counted as suspended
	assert.Equal(t, model.TenantStats{Total: 12, Active: 8, Trial: 2, Suspended: 2}, stats)

	failing := failingStore{RecordStore: seededStore(), collection: "tenants", err: errors.New("x")}
	assert.Equal(t, model.TenantStats{}, NewTenantService(failing, testClock).GetTenantStats(context.Background()))
}

func TestCalculateMRR(t *testing.T) {
	svc := NewTenantService(seededStore(), testClock)
	assert.Equal(t, 3093.0, svc.CalculateMRR(context.Background()))

	rs := storeWith(map[string][]store.Record{
		"tenants": {
			{"id": "a", "status": "suspended", "subscription_status": "active", "plan": "enterprise"},
			{"id": "b", "status": "active", "subscription_status": "past_due", "plan": "pro"},
		},
	})
	assert.Equal(t, 999.0, NewTenantService(rs, testClock).CalculateMRR(context.Background()))
}
