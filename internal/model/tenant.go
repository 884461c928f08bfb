package model

// Plan identifies a tenant pricing tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// PlanLimits are the usage caps and features that come with a plan.
type PlanLimits struct {
	MaxStudents  int
	MaxTeachers  int
	MaxStorageGB int
	Features     []string
}

// DefaultPlanLimits applies to tenants created without explicit limits.
var DefaultPlanLimits = map[Plan]PlanLimits{
	PlanFree:       {50, 5, 1, []string{"gradebook"}},
	PlanBasic:      {200, 20, 10, []string{"gradebook", "attendance"}},
	PlanPro:        {1000, 100, 50, []string{"gradebook", "attendance", "reports", "ai_assistant"}},
	PlanEnterprise: {10000, 1000, 500, []string{"gradebook", "attendance", "reports", "ai_assistant", "custom_domain", "sso"}},
}

// Tenant lifecycle states
const (
	TenantActive    = "active"
	TenantSuspended = "suspended"
	TenantTrial     = "trial"
	TenantCancelled = "cancelled"
)

// Tenant subscription states
const (
	SubscriptionActive    = "active"
	SubscriptionPastDue   = "past_due"
	SubscriptionCancelled = "cancelled"
	SubscriptionTrialing  = "trialing"
)

// Tenant represents a record in the tenants collection
type Tenant struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Subdomain            string         `json:"subdomain"`
	CustomDomain         string         `json:"custom_domain,omitempty"`
	Logo                 string         `json:"logo,omitempty"`
	Plan                 Plan           `json:"plan"`
	Status               string         `json:"status"`
	SubscriptionStatus   string         `json:"subscription_status"`
	AdminEmail           string         `json:"admin_email"`
	AdminUser            string         `json:"admin_user,omitempty"`
	MaxStudents          int            `json:"max_students"`
	MaxTeachers          int            `json:"max_teachers"`
	MaxStorageGB         int            `json:"max_storage_gb"`
	FeaturesEnabled      []string       `json:"features_enabled"`
	TrialEndsAt          string         `json:"trial_ends_at,omitempty"`
	SubscriptionEndsAt   string         `json:"subscription_ends_at,omitempty"`
	StripeCustomerID     string         `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string         `json:"stripe_subscription_id,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	Created              string         `json:"created"`
	Updated              string         `json:"updated"`
}

// TenantUsage is one usage period snapshot from the tenant_usage collection
type TenantUsage struct {
	ID            string  `json:"id"`
	Tenant        string  `json:"tenant"`
	PeriodStart   string  `json:"period_start"`
	PeriodEnd     string  `json:"period_end"`
	StudentCount  int     `json:"student_count"`
	TeacherCount  int     `json:"teacher_count"`
	StorageUsedGB float64 `json:"storage_used_gb"`
	APICalls      int     `json:"api_calls"`
	ActiveUsers   int     `json:"active_users"`
}

// CurrentUsage is the live count of a tenant's users and classes.
type CurrentUsage struct {
	StudentCount  int     `json:"student_count"`
	TeacherCount  int     `json:"teacher_count"`
	ClassCount    int     `json:"class_count"`
	StorageUsedGB float64 `json:"storage_used_gb"`
}

// TenantStats counts tenants by status.
type TenantStats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Trial     int `json:"trial"`
	Suspended int `json:"suspended"`
}

// TenantList mirrors a record store page of tenants.
type TenantList struct {
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalItems int      `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
	Items      []Tenant `json:"items"`
}

// SubscriptionPlan is a sellable plan from the subscription_plans collection
type SubscriptionPlan struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	StripePriceID string         `json:"stripe_price_id,omitempty"`
	PriceMonthly  float64        `json:"price_monthly"`
	PriceYearly   float64        `json:"price_yearly"`
	MaxStudents   int            `json:"max_students"`
	MaxTeachers   int            `json:"max_teachers"`
	MaxStorageGB  int            `json:"max_storage_gb"`
	Features      []string       `json:"features"`
	Limits        map[string]any `json:"limits,omitempty"`
	IsActive      bool           `json:"is_active"`
}

// SystemSetting is a key/value row from the system_settings collection
type SystemSetting struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Value       any    `json:"value"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// HealthMetric is a per-service health sample from system_health_metrics
type HealthMetric struct {
	ID               string  `json:"id"`
	ServiceName      string  `json:"service_name"`
	Status           string  `json:"status"`
	UptimePercentage float64 `json:"uptime_percentage"`
	ResponseTimeMS   int     `json:"response_time_ms,omitempty"`
	LastCheck        string  `json:"last_check"`
}

