package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/teresa-solution/owner-console/internal/model"
	"github.com/teresa-solution/owner-console/internal/store"
)

const tenantSvc = "tenant"

// TenantListTimeout bounds the tenant list fetch. It is the only hard
// timeout in the service layer and applies to the tenant list alone.
const TenantListTimeout = 1200 * time.Millisecond

// TenantListPerPage is the tenant list page size.
const TenantListPerPage = 50

const usagePerPage = 100

// ErrDuplicate is returned when a tenant subdomain is already taken.
var ErrDuplicate = errors.New("subdomain already exists")

// TenantService manages tenants and their usage limits.
type TenantService struct {
	store       store.RecordStore
	audit       *AuditRecorder
	clock       Clock
	listTimeout time.Duration
}

func NewTenantService(rs store.RecordStore, clock Clock) *TenantService {
	return &TenantService{
		store:       rs,
		clock:       clock,
		listTimeout: TenantListTimeout,
	}
}

// WithAudit records tenant writes to the audit trail.
func (s *TenantService) WithAudit(a *AuditRecorder) *TenantService {
	s.audit = a
	return s
}

// GetTenants lists tenants newest first. When the store errors or does not
// answer within TenantListTimeout the deterministic FallbackTenants page is
// returned instead.
func (s *TenantService) GetTenants(ctx context.Context, filter string) *model.TenantList {
	ctx, cancel := context.WithTimeout(ctx, s.listTimeout)
	defer cancel()

	type result struct {
		res *store.ListResult
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := s.store.GetList(ctx, collTenants, 1, TenantListPerPage, store.ListOptions{
			Filter: filter,
			Sort:   "-created",
		})
		done <- result{res, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		r.err = ctx.Err()
	}
	if r.err != nil {
		if store.IsAbort(r.err) {
			log.Debug().Err(r.err).Msg("Tenant list request aborted")
		} else {
			degrade(r.err, tenantSvc, "list")
		}
		return FallbackTenants(s.clock.now())
	}

	items, err := store.DecodeAll[model.Tenant](r.res.Items)
	if err != nil {
		degrade(err, tenantSvc, "list")
		return FallbackTenants(s.clock.now())
	}
	return &model.TenantList{
		Page:       r.res.Page,
		PerPage:    r.res.PerPage,
		TotalItems: r.res.TotalItems,
		TotalPages: r.res.TotalPages,
		Items:      items,
	}
}

// GetTenantByID returns store.ErrNotFound for an unknown id.
func (s *TenantService) GetTenantByID(ctx context.Context, id string) (*model.Tenant, error) {
	rec, err := s.store.GetOne(ctx, collTenants, id)
	if err != nil {
		return nil, err
	}
	t, err := store.Decode[model.Tenant](rec)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TenantService) CreateTenant(ctx context.Context, t model.Tenant) (*model.Tenant, error) {
	if t.Plan == "" {
		t.Plan = model.PlanFree
	}
	if t.Status == "" {
		t.Status = model.TenantTrial
	}
	if err := validateTenant(t); err != nil {
		return nil, err
	}
	if err := s.ensureSubdomainFree(ctx, t.Subdomain); err != nil {
		return nil, err
	}

	if t.SubscriptionStatus == "" {
		t.SubscriptionStatus = model.SubscriptionActive
		if t.Status == model.TenantTrial {
			t.SubscriptionStatus = model.SubscriptionTrialing
		}
	}
	limits := model.DefaultPlanLimits[t.Plan]
	if t.MaxStudents == 0 {
		t.MaxStudents = limits.MaxStudents
	}
	if t.MaxTeachers == 0 {
		t.MaxTeachers = limits.MaxTeachers
	}
	if t.MaxStorageGB == 0 {
		t.MaxStorageGB = limits.MaxStorageGB
	}
	if t.FeaturesEnabled == nil {
		t.FeaturesEnabled = append([]string(nil), limits.Features...)
	}

	rec, err := store.ToRecord(t)
	if err != nil {
		return nil, err
	}
	for _, k := range []string{"id", "created", "updated"} {
		if rec.String(k) == "" {
			delete(rec, k)
		}
	}
	created, err := s.store.Create(ctx, collTenants, rec)
	if err != nil {
		log.Error().Err(err).Str("subdomain", t.Subdomain).Msg("Failed to create tenant")
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	out, err := store.Decode[model.Tenant](created)
	if err != nil {
		return nil, err
	}
	s.audit.Record(AuditEntry{
		Action: "tenant.create", Module: "Tenants", Resource: out.ID,
		Details: map[string]any{"tenant_name": out.Name, "plan": string(out.Plan)},
	})
	return &out, nil
}

// UpdateTenant applies a partial update. Only the fields present in changes
// are validated and written.
func (s *TenantService) UpdateTenant(ctx context.Context, id string, changes map[string]any) (*model.Tenant, error) {
	if id == "" {
		return nil, validationError("id is required")
	}
	if len(changes) == 0 {
		return nil, validationError("no fields to update")
	}
	if err := validateTenantChanges(changes); err != nil {
		return nil, err
	}

	if sub, ok := changes["subdomain"]; ok {
		current, err := s.GetTenantByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if next := fmt.Sprint(sub); current.Subdomain != next {
			if err := s.ensureSubdomainFree(ctx, next); err != nil {
				return nil, err
			}
		}
	}

	updated, err := s.store.Update(ctx, collTenants, id, store.Record(changes))
	if err != nil {
		log.Error().Err(err).Str("tenant_id", id).Msg("Failed to update tenant")
		return nil, fmt.Errorf("update tenant %s: %w", id, err)
	}
	out, err := store.Decode[model.Tenant](updated)
	if err != nil {
		return nil, err
	}
	s.audit.Record(AuditEntry{Action: "tenant.update", Module: "Tenants", Resource: id, Details: changes})
	return &out, nil
}

// DeleteTenant removes the tenant only; invoices and subscriptions stay.
func (s *TenantService) DeleteTenant(ctx context.Context, id string) error {
	if id == "" {
		return validationError("id is required")
	}
	if err := s.store.Delete(ctx, collTenants, id); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("tenant_id", id).Msg("Failed to delete tenant")
		}
		return fmt.Errorf("delete tenant %s: %w", id, err)
	}
	s.audit.Record(AuditEntry{Action: "tenant.delete", Module: "Tenants", Resource: id, Severity: "critical"})
	return nil
}

func (s *TenantService) SuspendTenant(ctx context.Context, id string) (*model.Tenant, error) {
	return s.UpdateTenant(ctx, id, map[string]any{"status": model.TenantSuspended})
}

func (s *TenantService) ActivateTenant(ctx context.Context, id string) (*model.Tenant, error) {
	return s.UpdateTenant(ctx, id, map[string]any{"status": model.TenantActive})
}

func (s *TenantService) ensureSubdomainFree(ctx context.Context, subdomain string) error {
	_, err := s.store.GetFirstListItem(ctx, collTenants, fmt.Sprintf(`subdomain = "%s"`, quote(subdomain)))
	switch {
	case err == nil:
		return ErrDuplicate
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		log.Error().Err(err).Msg("Failed to check subdomain uniqueness")
		return fmt.Errorf("check subdomain: %w", err)
	}
}

// GetTenantUsage lists usage snapshots, newest period first. start and end
// narrow the periods when both are set.
func (s *TenantService) GetTenantUsage(ctx context.Context, tenantID, start, end string) []model.TenantUsage {
	filter := fmt.Sprintf(`tenant = "%s"`, quote(tenantID))
	if start != "" && end != "" {
		filter += fmt.Sprintf(` && period_start >= "%s" && period_end <= "%s"`, quote(start), quote(end))
	}
	res, err := s.store.GetList(ctx, collTenantUsage, 1, usagePerPage, store.ListOptions{
		Filter: filter,
		Sort:   "-period_start",
	})
	if err != nil {
		degrade(err, tenantSvc, "usage")
		return []model.TenantUsage{}
	}
	usage, err := store.DecodeAll[model.TenantUsage](res.Items)
	if err != nil {
		degrade(err, tenantSvc, "usage")
		return []model.TenantUsage{}
	}
	return usage
}

func (s *TenantService) RecordUsage(ctx context.Context, u model.TenantUsage) (*model.TenantUsage, error) {
	if u.Tenant == "" {
		return nil, validationError("usage tenant is required")
	}
	if u.PeriodStart == "" || u.PeriodEnd == "" {
		return nil, validationError("usage period is required")
	}
	rec, err := store.ToRecord(u)
	if err != nil {
		return nil, err
	}
	if u.ID == "" {
		delete(rec, "id")
	}
	created, err := s.store.Create(ctx, collTenantUsage, rec)
	if err != nil {
		return nil, fmt.Errorf("record usage: %w", err)
	}
	out, err := store.Decode[model.TenantUsage](created)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCurrentUsage counts a tenant's students, teachers and classes with
// three concurrent queries. Storage is not aggregated and reads 0.
func (s *TenantService) GetCurrentUsage(ctx context.Context, tenantID string) (model.CurrentUsage, error) {
	id := quote(tenantID)
	var usage model.CurrentUsage

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int, collection, filter string) func() error {
		return func() error {
			res, err := s.store.GetList(gctx, collection, 1, 1, store.ListOptions{Filter: filter})
			if err != nil {
				return err
			}
			*dst = countOf(res)
			return nil
		}
	}
	g.Go(count(&usage.StudentCount, collUsers, fmt.Sprintf(`tenant = "%s" && role = "Student"`, id)))
	g.Go(count(&usage.TeacherCount, collUsers, fmt.Sprintf(`tenant = "%s" && role = "Teacher"`, id)))
	g.Go(count(&usage.ClassCount, collClasses, fmt.Sprintf(`tenant = "%s"`, id)))
	if err := g.Wait(); err != nil {
		return model.CurrentUsage{}, fmt.Errorf("current usage for %s: %w", tenantID, err)
	}
	return usage, nil
}

// CanAddStudent reports whether the tenant is below its student limit.
func (s *TenantService) CanAddStudent(ctx context.Context, tenantID string) (bool, error) {
	t, usage, err := s.tenantWithUsage(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return usage.StudentCount < t.MaxStudents, nil
}

// CanAddTeacher reports whether the tenant is below its teacher limit.
func (s *TenantService) CanAddTeacher(ctx context.Context, tenantID string) (bool, error) {
	t, usage, err := s.tenantWithUsage(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return usage.TeacherCount < t.MaxTeachers, nil
}

func (s *TenantService) tenantWithUsage(ctx context.Context, tenantID string) (*model.Tenant, model.CurrentUsage, error) {
	t, err := s.GetTenantByID(ctx, tenantID)
	if err != nil {
		return nil, model.CurrentUsage{}, err
	}
	usage, err := s.GetCurrentUsage(ctx, tenantID)
	if err != nil {
		return nil, model.CurrentUsage{}, err
	}
	return t, usage, nil
}

// HasFeature reports whether feature is enabled for the tenant.
func HasFeature(t *model.Tenant, feature string) bool {
	if t == nil {
		return false
	}
	for _, f := range t.FeaturesEnabled {
		if f == feature {
			return true
		}
	}
	return false
}

// GetPlans lists the active plans, cheapest first.
func (s *TenantService) GetPlans(ctx context.Context) []model.SubscriptionPlan {
	records, err := s.store.GetFullList(ctx, collPlans, store.ListOptions{
		Filter: "is_active = true",
		Sort:   "price_monthly",
	})
	if err != nil {
		degrade(err, tenantSvc, "plans")
		return []model.SubscriptionPlan{}
	}
	plans, err := store.DecodeAll[model.SubscriptionPlan](records)
	if err != nil {
		degrade(err, tenantSvc, "plans")
		return []model.SubscriptionPlan{}
	}
	return plans
}

// GetTenantStats counts tenants by status. Suspended is everything that is
// neither active nor trial, so cancelled tenants land there too.
func (s *TenantService) GetTenantStats(ctx context.Context) model.TenantStats {
	count := func(filter string) (int, error) {
		res, err := s.store.GetList(ctx, collTenants, 1, 1, store.ListOptions{Filter: filter})
		return countOf(res), err
	}
	total, err := count("")
	if err != nil {
		degrade(err, tenantSvc, "stats")
		return model.TenantStats{}
	}
	active, err := count(fmt.Sprintf(`status = "%s"`, model.TenantActive))
	if err != nil {
		degrade(err, tenantSvc, "stats")
		return model.TenantStats{}
	}
	trial, err := count(fmt.Sprintf(`status = "%s"`, model.TenantTrial))
	if err != nil {
		degrade(err, tenantSvc, "stats")
		return model.TenantStats{}
	}
	return model.TenantStats{
		Total:     total,
		Active:    active,
		Trial:     trial,
		Suspended: total - active - trial,
	}
}

// CalculateMRR prices tenants whose subscription is active from
// PlanMonthlyPrice. It is computed independently of billing stats, which
// select on tenant status instead.
func (s *TenantService) CalculateMRR(ctx context.Context) float64 {
	tenants, err := s.store.GetFullList(ctx, collTenants, store.ListOptions{
		Filter: fmt.Sprintf(`subscription_status = "%s"`, model.SubscriptionActive),
	})
	if err != nil {
		degrade(err, tenantSvc, "mrr")
		return 0
	}
	mrr := 0.0
	for _, t := range tenants {
		mrr += PlanMonthlyPrice[model.Plan(t.String("plan"))]
	}
	return mrr
}

var (
	validPlans = map[model.Plan]bool{
		model.PlanFree: true, model.PlanBasic: true, model.PlanPro: true, model.PlanEnterprise: true,
	}
	validStatuses = map[string]bool{
		model.TenantActive: true, model.TenantSuspended: true, model.TenantTrial: true, model.TenantCancelled: true,
	}
)

// validateTenant validates a tenant about to be created
func validateTenant(t model.Tenant) error {
	if strings.TrimSpace(t.Name) == "" {
		return validationError("name is required")
	}
	if t.Subdomain == "" {
		return validationError("subdomain is required")
	}
	if !isValidSubdomain(t.Subdomain) {
		return validationError("invalid subdomain format")
	}
	if t.AdminEmail == "" {
		return validationError("admin email is required")
	}
	if !isValidEmail(t.AdminEmail) {
		return validationError("invalid email format")
	}
	if !validPlans[t.Plan] {
		return validationError("invalid plan")
	}
	if !validStatuses[t.Status] {
		return validationError("invalid status")
	}
	return nil
}

// validateTenantChanges validates the fields of a partial update
func validateTenantChanges(changes map[string]any) error {
	for _, k := range []string{"id", "created", "updated"} {
		if _, ok := changes[k]; ok {
			return validationError(k + " cannot be changed")
		}
	}
	str := func(k string) (string, bool) {
		v, ok := changes[k]
		if !ok {
			return "", false
		}
		s, _ := v.(string)
		return s, true
	}
	if name, ok := str("name"); ok && strings.TrimSpace(name) == "" {
		return validationError("name is required")
	}
	if sub, ok := str("subdomain"); ok && !isValidSubdomain(sub) {
		return validationError("invalid subdomain format")
	}
	if email, ok := str("admin_email"); ok && !isValidEmail(email) {
		return validationError("invalid email format")
	}
	if plan, ok := str("plan"); ok && !validPlans[model.Plan(plan)] {
		return validationError("invalid plan")
	}
	if status, ok := str("status"); ok && !validStatuses[status] {
		return validationError("invalid status")
	}
	return nil
}

// isValidSubdomain checks ^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$
func isValidSubdomain(subdomain string) bool {
	if len(subdomain) < 1 || len(subdomain) > 63 {
		return false
	}
	last := len(subdomain) - 1
	for i, r := range subdomain {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if i == 0 || i == last {
			if !alnum {
				return false
			}
		} else if !alnum && r != '-' {
			return false
		}
	}
	return true
}

// isValidEmail performs a basic email validation
func isValidEmail(email string) bool {
	at := strings.Index(email, "@")
	return len(email) >= 3 && at > 0 && strings.Contains(email[at:], ".")
}
