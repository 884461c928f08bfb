package model

// Invoice states. The owner dashboard filters on "Paid" and billing on "paid";
// record store equality is case-insensitive so both match the same rows.
const (
	InvoicePaid      = "paid"
	InvoicePending   = "pending"
	InvoiceFailed    = "failed"
	InvoiceCancelled = "cancelled"
	InvoiceOverdue   = "overdue"
)

// Billing subscription states
const (
	BillingActive   = "active"
	BillingTrialing = "trialing"
	BillingCanceled = "canceled"
	BillingPastDue  = "past_due"
)

// Invoice amounts are whole currency units.
type Invoice struct {
	ID          string `json:"id"`
	Tenant      string `json:"tenant"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
	PeriodStart string `json:"period_start,omitempty"`
	PeriodEnd   string `json:"period_end,omitempty"`
	PaidAt      string `json:"paid_at,omitempty"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
}

// Subscription is a tenant's billing subscription.
type Subscription struct {
	ID                 string `json:"id"`
	Tenant             string `json:"tenant"`
	Plan               Plan   `json:"plan"`
	Status             string `json:"status"`
	CurrentPeriodStart string `json:"current_period_start"`
	CurrentPeriodEnd   string `json:"current_period_end"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	Created            string `json:"created"`
	Updated            string `json:"updated"`
}

// BillingStats is the billing overview computed from the plan price table.
type BillingStats struct {
	MRR                 float64 `json:"mrr"`
	ARR                 float64 `json:"arr"`
	ChurnRate           float64 `json:"churn_rate"`
	LTV                 float64 `json:"ltv"`
	ActiveSubscriptions int     `json:"active_subscriptions"`
	TrialSubscriptions  int     `json:"trial_subscriptions"`
	FailedPayments      int     `json:"failed_payments"`
}

// RevenuePoint is one month of paid invoice revenue.
type RevenuePoint struct {
	Month   string `json:"month"`
	Revenue int64  `json:"revenue"`
}
