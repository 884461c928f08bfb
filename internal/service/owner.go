package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/teresa-solution/owner-console/internal/model"
	"github.com/teresa-solution/owner-console/internal/monitoring"
	"github.com/teresa-solution/owner-console/internal/store"
)

const ownerSvc = "owner"

// LTVFallbackMonthsAggregate is the assumed customer lifetime used by the
// owner dashboard when churn is zero. Billing stats use their own constant.
const LTVFallbackMonthsAggregate = 24

// Dashboard window sizes
const (
	historyMonths     = 6
	projectedMonths   = 3
	projectedGrowth   = 1.05
	mrrWindowDays     = 30
	alertLimit        = 5
	activityLimit     = 10
	analyticsTopLimit = 10
	auditLogsPerPage  = 50
)

// Dashboard section names, used for logs and fallback metrics.
const (
	sectionPages    = "analytics_pages"
	sectionSources  = "analytics_sources"
	sectionExpenses = "finance_expenses"
	sectionTenants  = "tenant_metrics"
	sectionMRR      = "mrr"
	sectionAlerts   = "alerts"
	sectionRevenue  = "revenue_history"
	sectionGrowth   = "tenant_growth"
	sectionActivity = "activity"
	sectionCohorts  = "cohorts"
)

// OwnerService aggregates the owner dashboard and the owner-only admin reads.
type OwnerService struct {
	store   store.RecordStore
	cohorts CohortProvider
	audit   *AuditRecorder
	clock   Clock
}

func NewOwnerService(rs store.RecordStore, clock Clock) *OwnerService {
	return &OwnerService{
		store:   rs,
		cohorts: StubCohortProvider{},
		clock:   clock,
	}
}

// WithCohorts replaces the cohort retention provider.
func (s *OwnerService) WithCohorts(p CohortProvider) *OwnerService {
	s.cohorts = p
	return s
}

// WithAudit records settings and plan changes to the audit trail.
func (s *OwnerService) WithAudit(a *AuditRecorder) *OwnerService {
	s.audit = a
	return s
}

// section runs one dashboard sub-fetch. A failure is logged and degrades
// only that section; an abort is handed back so the whole refresh can be
// dropped.
func section(name string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				degrade(err, ownerSvc, name)
				err = nil
			}
		}()
		if err = fn(); err != nil {
			if store.IsAbort(err) {
				return err
			}
			degrade(err, ownerSvc, name)
		}
		return nil
	}
}

type tenantMetrics struct {
	active, suspended, newThisMonth int
}

// GetDashboardData builds the owner dashboard. Sections are fetched
// concurrently and fail independently; a panic while composing the result
// serves MockDashboardData. The only error returned is an abort.
func (s *OwnerService) GetDashboardData(ctx context.Context) (data *model.OwnerDashboardData, err error) {
	started := time.Now()
	now := s.clock.now()
	defer func() {
		monitoring.DashboardRefreshDuration.Observe(time.Since(started).Seconds())
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Owner dashboard aggregation failed, serving mock data")
			monitoring.RecordFallback(ownerSvc, "dashboard")
			data, err = MockDashboardData(now), nil
		}
	}()

	var (
		pages    = []model.RankedItem{}
		sources  = []model.RankedItem{}
		expenses = []model.ExpenseItem{}
		tenants  tenantMetrics
		mrr      float64
		alerts   = []model.SystemAlert{}
		revenue  = emptyHistory(now)
		growth   = emptyHistory(now)
		activity = []model.AuditLog{}
		cohorts  = []model.CohortData{}
	)

	var g errgroup.Group
	g.Go(section(sectionPages, func() (err error) {
		pages, err = s.topPages(ctx)
		return err
	}))
	g.Go(section(sectionSources, func() (err error) {
		sources, err = s.topSources(ctx)
		return err
	}))
	g.Go(section(sectionExpenses, func() (err error) {
		expenses, err = s.expenses(ctx)
		return err
	}))
	g.Go(section(sectionTenants, func() (err error) {
		tenants, err = s.tenantMetrics(ctx, now)
		return err
	}))
	g.Go(section(sectionMRR, func() (err error) {
		mrr, err = s.trailingMRR(ctx, now)
		return err
	}))
	g.Go(section(sectionAlerts, func() (err error) {
		alerts, err = s.latestAlerts(ctx)
		return err
	}))
	g.Go(section(sectionRevenue, func() (err error) {
		revenue, err = s.revenueHistory(ctx, now)
		return err
	}))
	g.Go(section(sectionGrowth, func() (err error) {
		growth, err = s.tenantGrowth(ctx, now)
		return err
	}))
	g.Go(section(sectionActivity, func() (err error) {
		activity, err = s.recentActivity(ctx)
		return err
	}))
	g.Go(section(sectionCohorts, func() (err error) {
		cohorts, err = s.cohorts.Cohorts(ctx)
		if cohorts == nil {
			cohorts = []model.CohortData{}
		}
		return err
	}))
	if err := g.Wait(); err != nil {
		log.Debug().Err(err).Msg("Owner dashboard refresh aborted")
		return nil, err
	}

	arpu := 0.0
	if tenants.active > 0 {
		arpu = mrr / float64(tenants.active)
	}
	churnRate := 0.0
	if total := tenants.active + tenants.suspended; total > 0 {
		churnRate = float64(tenants.suspended) / float64(total) * 100
	}
	ltv := arpu * LTVFallbackMonthsAggregate
	if churnRate > 0 {
		ltv = arpu / (churnRate / 100)
	}

	return &model.OwnerDashboardData{
		KPIs:               buildKPIs(mrr, revenueChange(revenue), tenants, ltv, churnRate),
		Alerts:             alerts,
		RevenueHistory:     revenue,
		TenantGrowth:       growth,
		RecentActivity:     activity,
		TopVisitedPages:    pages,
		TopUserAccess:      sources,
		ExpensesByCategory: expenses,
		PredictiveRevenue:  predictRevenue(revenue, now),
		CohortRetention:    cohorts,
	}, nil
}

func buildKPIs(mrr, change float64, t tenantMetrics, ltv, churnRate float64) model.DashboardKPIs {
	mrrTrend, mrrColor := model.TrendUp, "green"
	if change < 0 {
		mrrTrend, mrrColor = model.TrendDown, "red"
	}
	return model.DashboardKPIs{
		MRR: model.DashboardKPI{
			Label:       "Monthly Recurring Revenue",
			Value:       "$" + humanize.Commaf(mrr),
			Change:      int(jsRound(change)),
			ChangeLabel: "from last month",
			Trend:       mrrTrend,
			Color:       mrrColor,
		},
		ActiveTenants: model.DashboardKPI{
			Label:       "Active Tenants",
			Value:       strconv.Itoa(t.active),
			Change:      t.newThisMonth,
			ChangeLabel: "new this month",
			Trend:       model.TrendUp,
			Color:       "blue",
		},
		LTV: model.DashboardKPI{
			Label:       "Customer LTV",
			Value:       "$" + humanize.Comma(int64(jsRound(ltv))),
			ChangeLabel: "avg. increase",
			Trend:       model.TrendNeutral,
			Color:       "purple",
		},
		Churn: model.DashboardKPI{
			Label:       "Churn Rate",
			Value:       fmt.Sprintf("%.1f%%", churnRate),
			ChangeLabel: "from last month",
			Trend:       model.TrendNeutral,
			Color:       "orange",
		},
	}
}

// revenueChange compares the last two months of history, in percent.
func revenueChange(history []model.ChartDataPoint) float64 {
	if len(history) < 2 {
		return 0
	}
	last, prev := history[len(history)-1].Value, history[len(history)-2].Value
	if prev == 0 {
		return 0
	}
	return (last - prev) / prev * 100
}

// predictRevenue tags the history as actual and appends three months
// compounding the average of the last three actual months by 5%.
func predictRevenue(history []model.ChartDataPoint, now time.Time) []model.ChartDataPoint {
	out := make([]model.ChartDataPoint, 0, len(history)+projectedMonths)
	for _, p := range history {
		p.Type = model.PointActual
		out = append(out, p)
	}

	tail := history
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	avg := 0.0
	for _, p := range tail {
		avg += p.Value
	}
	if len(tail) > 0 {
		avg /= float64(len(tail))
	}

	base := monthStart(now)
	for i := 1; i <= projectedMonths; i++ {
		out = append(out, model.ChartDataPoint{
			Label: monthLabel(base.AddDate(0, i, 0)),
			Value: jsRound(avg * math.Pow(projectedGrowth, float64(i))),
			Type:  model.PointProjected,
		})
	}
	return out
}

// historyMonthsOf returns the first day of each of the trailing six months,
// oldest first, ending with now's month.
func historyMonthsOf(now time.Time) []time.Time {
	months := make([]time.Time, 0, historyMonths)
	for i := historyMonths - 1; i >= 0; i-- {
		months = append(months, monthStart(now).AddDate(0, -i, 0))
	}
	return months
}

func emptyHistory(now time.Time) []model.ChartDataPoint {
	out := make([]model.ChartDataPoint, 0, historyMonths)
	for _, m := range historyMonthsOf(now) {
		out = append(out, model.ChartDataPoint{Label: monthLabel(m)})
	}
	return out
}

func pageColor(category string) string {
	switch category {
	case "Social":
		return "#3b82f6"
	case "Internal":
		return "#06b6d4"
	default:
		return "#8b5cf6"
	}
}

func colorOr(r store.Record, fallback string) string {
	if c := r.String("color"); c != "" {
		return c
	}
	return fallback
}

func (s *OwnerService) topPages(ctx context.Context) ([]model.RankedItem, error) {
	res, err := s.store.GetList(ctx, collPages, 1, analyticsTopLimit, store.ListOptions{Sort: "-visitors"})
	if err != nil {
		return []model.RankedItem{}, err
	}
	out := make([]model.RankedItem, 0, len(res.Items))
	for _, r := range res.Items {
		out = append(out, model.RankedItem{
			Label:    r.String("path"),
			Value:    r.Float("visitors"),
			Color:    pageColor(r.String("category")),
			SubLabel: r.String("category"),
		})
	}
	return out, nil
}

func (s *OwnerService) topSources(ctx context.Context) ([]model.RankedItem, error) {
	res, err := s.store.GetList(ctx, collSources, 1, analyticsTopLimit, store.ListOptions{Sort: "-visitors"})
	if err != nil {
		return []model.RankedItem{}, err
	}
	out := make([]model.RankedItem, 0, len(res.Items))
	for _, r := range res.Items {
		out = append(out, model.RankedItem{
			Label: r.String("source"),
			Value: r.Float("visitors"),
			Color: colorOr(r, "#cbd5e1"),
		})
	}
	return out, nil
}

func (s *OwnerService) expenses(ctx context.Context) ([]model.ExpenseItem, error) {
	res, err := s.store.GetList(ctx, collExpenses, 1, analyticsTopLimit, store.ListOptions{Sort: "-amount"})
	if err != nil {
		return []model.ExpenseItem{}, err
	}
	out := make([]model.ExpenseItem, 0, len(res.Items))
	for _, r := range res.Items {
		out = append(out, model.ExpenseItem{
			Label:      r.String("category"),
			Value:      r.Float("amount"),
			Color:      colorOr(r, "#cbd5e1"),
			Percentage: r.Float("percentage"),
		})
	}
	return out, nil
}

func (s *OwnerService) count(ctx context.Context, collection, filter string) (int, error) {
	res, err := s.store.GetList(ctx, collection, 1, 1, store.ListOptions{Filter: filter})
	if err != nil {
		return 0, err
	}
	return countOf(res), nil
}

func (s *OwnerService) tenantMetrics(ctx context.Context, now time.Time) (tenantMetrics, error) {
	var (
		m   tenantMetrics
		err error
	)
	if m.active, err = s.count(ctx, collTenants, `status = "Active"`); err != nil {
		return tenantMetrics{}, err
	}
	if m.suspended, err = s.count(ctx, collTenants, `status = "Suspended"`); err != nil {
		return tenantMetrics{}, err
	}
	filter := fmt.Sprintf(`created >= "%s"`, store.FormatTime(monthStart(now)))
	if m.newThisMonth, err = s.count(ctx, collTenants, filter); err != nil {
		return tenantMetrics{}, err
	}
	return m, nil
}

// trailingMRR sums paid invoice amounts over the trailing 30 days.
func (s *OwnerService) trailingMRR(ctx context.Context, now time.Time) (float64, error) {
	since := now.AddDate(0, 0, -mrrWindowDays)
	filter := fmt.Sprintf(`status = "Paid" && paid_at >= "%s"`, store.FormatTime(since))
	invoices, err := s.store.GetFullList(ctx, collInvoices, store.ListOptions{Filter: filter})
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, inv := range invoices {
		total += inv.Float("amount")
	}
	return total, nil
}

func (s *OwnerService) latestAlerts(ctx context.Context) ([]model.SystemAlert, error) {
	res, err := s.store.GetList(ctx, collAlerts, 1, alertLimit, store.ListOptions{Sort: "-created"})
	if err != nil {
		return []model.SystemAlert{}, err
	}
	out := make([]model.SystemAlert, 0, len(res.Items))
	for _, r := range res.Items {
		out = append(out, model.SystemAlert{
			ID:        r.ID(),
			Severity:  r.String("severity"),
			Message:   r.String("message"),
			Timestamp: r.String("created"),
			ActionURL: r.String("actionUrl"),
			Created:   r.String("created"),
		})
	}
	return out, nil
}

// revenueHistory buckets paid invoices into the trailing six months by
// paid_at, or created when paid_at is missing.
func (s *OwnerService) revenueHistory(ctx context.Context, now time.Time) ([]model.ChartDataPoint, error) {
	months := historyMonthsOf(now)
	filter := fmt.Sprintf(`status = "Paid" && paid_at >= "%s"`, store.FormatTime(months[0]))
	invoices, err := s.store.GetFullList(ctx, collInvoices, store.ListOptions{Filter: filter})
	if err != nil {
		return emptyHistory(now), err
	}

	out := make([]model.ChartDataPoint, 0, len(months))
	for _, m := range months {
		start, end := m, monthEnd(m)
		sum := 0.0
		for _, inv := range invoices {
			at, ok := inv.Time("paid_at")
			if !ok {
				at, ok = inv.Time("created")
			}
			if ok && !at.Before(start) && !at.After(end) {
				sum += inv.Float("amount")
			}
		}
		out = append(out, model.ChartDataPoint{Label: monthLabel(m), Value: sum})
	}
	return out, nil
}

// tenantGrowth counts tenants created up to the end of each trailing month.
func (s *OwnerService) tenantGrowth(ctx context.Context, now time.Time) ([]model.ChartDataPoint, error) {
	months := historyMonthsOf(now)
	out := make([]model.ChartDataPoint, 0, len(months))
	for _, m := range months {
		filter := fmt.Sprintf(`created <= "%s"`, store.FormatTime(monthEnd(m)))
		n, err := s.count(ctx, collTenants, filter)
		if err != nil {
			return emptyHistory(now), err
		}
		out = append(out, model.ChartDataPoint{Label: monthLabel(m), Value: float64(n)})
	}
	return out, nil
}

// recentActivity merges new tenants and invoices into one feed, newest first.
func (s *OwnerService) recentActivity(ctx context.Context) ([]model.AuditLog, error) {
	opts := store.ListOptions{Sort: "-created"}
	tenants, err := s.store.GetList(ctx, collTenants, 1, activityLimit, opts)
	if err != nil {
		return []model.AuditLog{}, err
	}
	invoices, err := s.store.GetList(ctx, collInvoices, 1, activityLimit, opts)
	if err != nil {
		return []model.AuditLog{}, err
	}

	feed := make([]model.AuditLog, 0, len(tenants.Items)+len(invoices.Items))
	for _, t := range tenants.Items {
		feed = append(feed, model.AuditLog{
			ID:        t.ID(),
			Action:    "New Tenant",
			User:      "System",
			Details:   map[string]any{"name": t.String("name")},
			IPAddress: "-",
			Module:    "Tenants",
			Created:   t.String("created"),
		})
	}
	for _, inv := range invoices.Items {
		feed = append(feed, model.AuditLog{
			ID:        inv.ID(),
			Action:    "Payment Received",
			User:      "System",
			Details:   map[string]any{"amount": inv.Float("amount"), "status": inv.String("status")},
			IPAddress: "-",
			Module:    "Billing",
			Created:   inv.String("created"),
		})
	}

	sort.SliceStable(feed, func(i, j int) bool {
		ti, _ := store.ParseTime(feed[i].Created)
		tj, _ := store.ParseTime(feed[j].Created)
		return ti.After(tj)
	})
	if len(feed) > activityLimit {
		feed = feed[:activityLimit]
	}
	return feed, nil
}

// GetSystemHealth keeps the latest metric per service and rolls them up:
// any service down makes the platform down, else any degraded makes it
// degraded.
func (s *OwnerService) GetSystemHealth(ctx context.Context) model.OverallHealth {
	records, err := s.store.GetFullList(ctx, collHealth, store.ListOptions{Sort: "service_name"})
	if err != nil {
		degrade(err, ownerSvc, "system_health")
		return model.OverallHealth{
			Status:   model.HealthDown,
			Message:  "Unable to determine system health",
			Services: []model.HealthMetric{},
		}
	}

	latest := map[string]store.Record{}
	var names []string
	for _, r := range records {
		name := r.String("service_name")
		prev, seen := latest[name]
		if !seen {
			names = append(names, name)
			latest[name] = r
			continue
		}
		at, _ := r.Time("last_check")
		prevAt, _ := prev.Time("last_check")
		if at.After(prevAt) {
			latest[name] = r
		}
	}
	sort.Strings(names)

	out := model.OverallHealth{Services: make([]model.HealthMetric, 0, len(names))}
	down, degraded := 0, 0
	for _, name := range names {
		m, err := store.Decode[model.HealthMetric](latest[name])
		if err != nil {
			log.Warn().Err(err).Str("service_name", name).Msg("Skipping malformed health metric")
			continue
		}
		switch strings.ToLower(m.Status) {
		case model.HealthDown:
			down++
		case model.HealthDegraded:
			degraded++
		default:
			out.HealthyCount++
		}
		out.Services = append(out.Services, m)
	}
	out.TotalCount = len(out.Services)

	switch {
	case down > 0:
		out.Status = model.HealthDown
		out.Message = fmt.Sprintf("%d Service(s) Down", down)
	case degraded > 0:
		out.Status = model.HealthDegraded
		out.Message = fmt.Sprintf("%d Service(s) Degraded", degraded)
	default:
		out.Status = model.HealthHealthy
		out.Message = "All Systems Operational"
	}
	return out
}

// GetAuditLogs pages through the audit trail, newest first.
func (s *OwnerService) GetAuditLogs(ctx context.Context, page, perPage int) *model.AuditLogList {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = auditLogsPerPage
	}
	empty := &model.AuditLogList{Page: page, PerPage: perPage, Items: []model.AuditLog{}}

	res, err := s.store.GetList(ctx, collAuditLogs, page, perPage, store.ListOptions{Sort: "-created"})
	if err != nil {
		degrade(err, ownerSvc, "audit_logs")
		return empty
	}
	items, err := store.DecodeAll[model.AuditLog](res.Items)
	if err != nil {
		degrade(err, ownerSvc, "audit_logs")
		return empty
	}
	return &model.AuditLogList{
		Page:       res.Page,
		PerPage:    res.PerPage,
		TotalItems: res.TotalItems,
		TotalPages: res.TotalPages,
		Items:      items,
	}
}

func (s *OwnerService) GetSystemSettings(ctx context.Context) []model.SystemSetting {
	records, err := s.store.GetFullList(ctx, collSettings, store.ListOptions{Sort: "category,key"})
	if err != nil {
		degrade(err, ownerSvc, "system_settings")
		return []model.SystemSetting{}
	}
	settings, err := store.DecodeAll[model.SystemSetting](records)
	if err != nil {
		degrade(err, ownerSvc, "system_settings")
		return []model.SystemSetting{}
	}
	return settings
}

// UpdateSystemSetting replaces a setting's value.
func (s *OwnerService) UpdateSystemSetting(ctx context.Context, id string, value any) (*model.SystemSetting, error) {
	if id == "" {
		return nil, validationError("setting id is required")
	}
	before, err := s.store.GetOne(ctx, collSettings, id)
	if err != nil {
		return nil, fmt.Errorf("load setting %s: %w", id, err)
	}
	updated, err := s.store.Update(ctx, collSettings, id, store.Record{"value": value})
	if err != nil {
		return nil, fmt.Errorf("update setting %s: %w", id, err)
	}
	setting, err := store.Decode[model.SystemSetting](updated)
	if err != nil {
		return nil, err
	}
	s.audit.Record(AuditEntry{
		Action:   "settings.update",
		Module:   "Settings",
		Resource: before.String("key"),
		Severity: "warning",
		Details:  map[string]any{"old_value": before["value"], "new_value": value},
	})
	return &setting, nil
}

// GetSubscriptionPlans lists every plan, active or not, cheapest first.
func (s *OwnerService) GetSubscriptionPlans(ctx context.Context) []model.SubscriptionPlan {
	records, err := s.store.GetFullList(ctx, collPlans, store.ListOptions{Sort: "price_monthly"})
	if err != nil {
		degrade(err, ownerSvc, "subscription_plans")
		return []model.SubscriptionPlan{}
	}
	plans, err := store.DecodeAll[model.SubscriptionPlan](records)
	if err != nil {
		degrade(err, ownerSvc, "subscription_plans")
		return []model.SubscriptionPlan{}
	}
	return plans
}

func validatePlan(p model.SubscriptionPlan) error {
	if strings.TrimSpace(p.Name) == "" {
		return validationError("plan name is required")
	}
	if p.PriceMonthly < 0 || p.PriceYearly < 0 {
		return validationError("plan prices must not be negative")
	}
	return nil
}

func (s *OwnerService) CreateSubscriptionPlan(ctx context.Context, p model.SubscriptionPlan) (*model.SubscriptionPlan, error) {
	if err := validatePlan(p); err != nil {
		return nil, err
	}
	rec, err := store.ToRecord(p)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		delete(rec, "id")
	}
	created, err := s.store.Create(ctx, collPlans, rec)
	if err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	out, err := store.Decode[model.SubscriptionPlan](created)
	if err != nil {
		return nil, err
	}
	s.audit.Record(AuditEntry{
		Action: "plan.create", Module: "Billing", Resource: out.ID,
		Details: map[string]any{"name": out.Name},
	})
	return &out, nil
}

// UpdateSubscriptionPlan applies a partial update to a plan.
func (s *OwnerService) UpdateSubscriptionPlan(ctx context.Context, id string, changes map[string]any) (*model.SubscriptionPlan, error) {
	if id == "" {
		return nil, validationError("plan id is required")
	}
	if name, ok := changes["name"]; ok && strings.TrimSpace(fmt.Sprint(name)) == "" {
		return nil, validationError("plan name is required")
	}
	updated, err := s.store.Update(ctx, collPlans, id, store.Record(changes))
	if err != nil {
		return nil, fmt.Errorf("update plan %s: %w", id, err)
	}
	out, err := store.Decode[model.SubscriptionPlan](updated)
	if err != nil {
		return nil, err
	}
	s.audit.Record(AuditEntry{Action: "plan.update", Module: "Billing", Resource: id, Details: changes})
	return &out, nil
}
