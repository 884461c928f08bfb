package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teresa-solution/owner-console/internal/model"
	"github.com/teresa-solution/owner-console/internal/store"
)

const billingSvc = "billing"

// LTVFallbackMonthsBilling is the assumed customer lifetime used by billing
// stats when churn is zero. It differs from LTVFallbackMonthsAggregate.
const LTVFallbackMonthsBilling = 36

const revenueHistoryMonths = 12

// BillingService computes plan-table billing stats and manages invoices and
// subscriptions.
type BillingService struct {
	store store.RecordStore
	clock Clock
}

func NewBillingService(rs store.RecordStore, clock Clock) *BillingService {
	return &BillingService{store: rs, clock: clock}
}

// quote strips characters that would break out of a filter string literal.
func quote(v string) string {
	return strings.NewReplacer(`"`, "", `\`, "").Replace(v)
}

// GetBillingStats prices active tenants from PlanMonthlyPrice. Invoice
// amounts are not consulted here.
func (s *BillingService) GetBillingStats(ctx context.Context) model.BillingStats {
	tenants, err := s.store.GetFullList(ctx, collTenants, store.ListOptions{})
	if err != nil {
		degrade(err, billingSvc, "stats")
		return MockBillingStats()
	}
	failed, err := s.store.GetList(ctx, collInvoices, 1, 1, store.ListOptions{
		Filter: fmt.Sprintf(`status = "%s"`, model.InvoiceFailed),
	})
	if err != nil {
		degrade(err, billingSvc, "stats")
		return MockBillingStats()
	}

	var (
		stats     model.BillingStats
		cancelled int
	)
	for _, t := range tenants {
		switch strings.ToLower(t.String("status")) {
		case model.TenantActive:
			stats.ActiveSubscriptions++
			stats.MRR += PlanMonthlyPrice[model.Plan(t.String("plan"))]
		case model.TenantTrial:
			stats.TrialSubscriptions++
		case model.TenantCancelled:
			cancelled++
		}
	}
	stats.ARR = stats.MRR * 12
	stats.FailedPayments = countOf(failed)
	if len(tenants) > 0 {
		stats.ChurnRate = float64(cancelled) / float64(len(tenants)) * 100
	}

	arpc := 0.0
	if stats.ActiveSubscriptions > 0 {
		arpc = stats.MRR / float64(stats.ActiveSubscriptions)
	}
	stats.LTV = arpc * LTVFallbackMonthsBilling
	if stats.ChurnRate > 0 {
		stats.LTV = arpc / (stats.ChurnRate / 100)
	}
	return stats
}

// GetRevenueHistory sums paid invoices per month for the trailing twelve
// months, oldest first.
func (s *BillingService) GetRevenueHistory(ctx context.Context) []model.RevenuePoint {
	now := s.clock.now()
	months := make([]time.Time, 0, revenueHistoryMonths)
	for i := revenueHistoryMonths - 1; i >= 0; i-- {
		months = append(months, monthStart(now).AddDate(0, -i, 0))
	}
	out := make([]model.RevenuePoint, len(months))
	for i, m := range months {
		out[i] = model.RevenuePoint{Month: m.Format("Jan 2006")}
	}

	filter := fmt.Sprintf(`status = "%s" && paid_at >= "%s"`, model.InvoicePaid, store.FormatTime(months[0]))
	invoices, err := s.store.GetFullList(ctx, collInvoices, store.ListOptions{Filter: filter})
	if err != nil {
		degrade(err, billingSvc, "revenue_history")
		return out
	}
	for _, inv := range invoices {
		at, ok := inv.Time("paid_at")
		if !ok {
			continue
		}
		for i, m := range months {
			if !at.Before(m) && !at.After(monthEnd(m)) {
				out[i].Revenue += inv.Int("amount")
				break
			}
		}
	}
	return out
}

// GetInvoices lists invoices newest first, for one tenant when tenantID is
// set.
func (s *BillingService) GetInvoices(ctx context.Context, tenantID string) []model.Invoice {
	opts := store.ListOptions{Sort: "-created"}
	if tenantID != "" {
		opts.Filter = fmt.Sprintf(`tenant = "%s"`, quote(tenantID))
	}
	records, err := s.store.GetFullList(ctx, collInvoices, opts)
	if err != nil {
		degrade(err, billingSvc, "invoices")
		return []model.Invoice{}
	}
	invoices, err := store.DecodeAll[model.Invoice](records)
	if err != nil {
		degrade(err, billingSvc, "invoices")
		return []model.Invoice{}
	}
	return invoices
}

// GetTenantSubscription returns the tenant's active subscription, or nil.
// When several are active the store decides which one comes first.
func (s *BillingService) GetTenantSubscription(ctx context.Context, tenantID string) *model.Subscription {
	filter := fmt.Sprintf(`tenant = "%s" && status = "%s"`, quote(tenantID), model.BillingActive)
	rec, err := s.store.GetFirstListItem(ctx, collSubscriptions, filter)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			degrade(err, billingSvc, "subscription")
		}
		return nil
	}
	sub, err := store.Decode[model.Subscription](rec)
	if err != nil {
		degrade(err, billingSvc, "subscription")
		return nil
	}
	return &sub
}

func (s *BillingService) GetSubscriptions(ctx context.Context) []model.Subscription {
	records, err := s.store.GetFullList(ctx, collSubscriptions, store.ListOptions{Sort: "-created"})
	if err != nil {
		degrade(err, billingSvc, "subscriptions")
		return []model.Subscription{}
	}
	subs, err := store.DecodeAll[model.Subscription](records)
	if err != nil {
		degrade(err, billingSvc, "subscriptions")
		return []model.Subscription{}
	}
	return subs
}

var invoiceStatuses = map[string]bool{
	model.InvoicePaid:      true,
	model.InvoicePending:   true,
	model.InvoiceFailed:    true,
	model.InvoiceCancelled: true,
	model.InvoiceOverdue:   true,
}

func (s *BillingService) CreateInvoice(ctx context.Context, inv model.Invoice) (*model.Invoice, error) {
	if inv.Tenant == "" {
		return nil, validationError("invoice tenant is required")
	}
	if inv.Amount < 0 {
		return nil, validationError("invoice amount must not be negative")
	}
	if inv.Status == "" {
		inv.Status = model.InvoicePending
	}
	if !invoiceStatuses[inv.Status] {
		return nil, validationError("invalid invoice status " + inv.Status)
	}

	rec, err := store.ToRecord(inv)
	if err != nil {
		return nil, err
	}
	for _, k := range []string{"id", "created", "updated"} {
		if rec.String(k) == "" {
			delete(rec, k)
		}
	}
	created, err := s.store.Create(ctx, collInvoices, rec)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	out, err := store.Decode[model.Invoice](created)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkInvoicePaid sets the invoice to paid as of now.
func (s *BillingService) MarkInvoicePaid(ctx context.Context, id string) (*model.Invoice, error) {
	if id == "" {
		return nil, validationError("invoice id is required")
	}
	updated, err := s.store.Update(ctx, collInvoices, id, store.Record{
		"status":  model.InvoicePaid,
		"paid_at": store.FormatTime(s.clock.now()),
	})
	if err != nil {
		return nil, fmt.Errorf("mark invoice %s paid: %w", id, err)
	}
	out, err := store.Decode[model.Invoice](updated)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelSubscription cancels immediately, or at the end of the current
// period when atPeriodEnd is set.
func (s *BillingService) CancelSubscription(ctx context.Context, id string, atPeriodEnd bool) (*model.Subscription, error) {
	if id == "" {
		return nil, validationError("subscription id is required")
	}
	changes := store.Record{"cancel_at_period_end": true}
	if !atPeriodEnd {
		changes = store.Record{"status": model.BillingCanceled, "cancel_at_period_end": false}
	}
	updated, err := s.store.Update(ctx, collSubscriptions, id, changes)
	if err != nil {
		return nil, fmt.Errorf("cancel subscription %s: %w", id, err)
	}
	out, err := store.Decode[model.Subscription](updated)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
