package model

// KPI trends
const (
	TrendUp      = "up"
	TrendDown    = "down"
	TrendNeutral = "neutral"
)

// Chart point kinds
const (
	PointActual    = "actual"
	PointProjected = "projected"
)

// DashboardKPI is display-ready: Value is always a formatted string.
type DashboardKPI struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Change      int    `json:"change"`
	ChangeLabel string `json:"changeLabel"`
	Trend       string `json:"trend"`
	Color       string `json:"color"`
}

// DashboardKPIs groups the four headline KPIs.
type DashboardKPIs struct {
	MRR           DashboardKPI `json:"mrr"`
	ActiveTenants DashboardKPI `json:"activeTenants"`
	LTV           DashboardKPI `json:"ltv"`
	Churn         DashboardKPI `json:"churn"`
}

// SystemAlert is a row from the system_alerts collection
type SystemAlert struct {
	ID        string `json:"id"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	ActionURL string `json:"actionUrl,omitempty"`
	Created   string `json:"created"`
}

// AuditLog is an activity feed or audit_logs entry.
type AuditLog struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	User      string         `json:"user"`
	Details   map[string]any `json:"details"`
	IPAddress string         `json:"ip_address"`
	Module    string         `json:"module"`
	Severity  string         `json:"severity,omitempty"`
	Created   string         `json:"created"`
}

// MonitoringEvent is an entry in the monitoring_events collection
type MonitoringEvent struct {
	ID        string         `json:"id"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Source    string         `json:"source"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// ChartDataPoint is one labelled value in a chart series.
type ChartDataPoint struct {
	Label  string   `json:"label"`
	Value  float64  `json:"value"`
	Value2 *float64 `json:"value2,omitempty"`
	Type   string   `json:"type,omitempty"`
}

// CohortData holds retention percentages for one signup cohort.
type CohortData struct {
	Cohort    string    `json:"cohort"`
	Retention []float64 `json:"retention"`
}

// RankedItem is a colored bar in a top-N chart.
type RankedItem struct {
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Color    string  `json:"color"`
	SubLabel string  `json:"subLabel,omitempty"`
}

// ExpenseItem is a colored slice of the expenses chart.
type ExpenseItem struct {
	Label      string  `json:"label"`
	Value      float64 `json:"value"`
	Color      string  `json:"color"`
	Percentage float64 `json:"percentage"`
}

// OwnerDashboardData is the single aggregate rendered by the owner dashboard.
type OwnerDashboardData struct {
	KPIs               DashboardKPIs    `json:"kpis"`
	Alerts             []SystemAlert    `json:"alerts"`
	RevenueHistory     []ChartDataPoint `json:"revenueHistory"`
	TenantGrowth       []ChartDataPoint `json:"tenantGrowth"`
	RecentActivity     []AuditLog       `json:"recentActivity"`
	TopVisitedPages    []RankedItem     `json:"topVisitedPages"`
	TopUserAccess      []RankedItem     `json:"topUserAccess"`
	ExpensesByCategory []ExpenseItem    `json:"expensesByCategory"`
	PredictiveRevenue  []ChartDataPoint `json:"predictiveRevenue"`
	CohortRetention    []CohortData     `json:"cohortRetention"`
}

// MonitoringStats composes subsystem checks into one object.
type MonitoringStats struct {
	Healthy      bool          `json:"healthy"`
	Checks       []CheckResult `json:"checks"`
	ActiveAlerts int           `json:"activeAlerts"`
	Alerts       []SystemAlert `json:"alerts"`
	RateLimitKey int           `json:"rateLimitKeys"`
	CheckedAt    string        `json:"checkedAt"`
}

// CheckResult is the outcome of one named health check.
type CheckResult struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	Detail    string `json:"detail,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

// Service health states from system_health_metrics
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthDown     = "down"
)

// OverallHealth rolls the latest metric of every service into one status.
type OverallHealth struct {
	Status       string         `json:"status"`
	HealthyCount int            `json:"healthy_count"`
	TotalCount   int            `json:"total_count"`
	Message      string         `json:"message"`
	Services     []HealthMetric `json:"services"`
}

// AuditLogList is one page of the audit trail.
type AuditLogList struct {
	Page       int        `json:"page"`
	PerPage    int        `json:"perPage"`
	TotalItems int        `json:"totalItems"`
	TotalPages int        `json:"totalPages"`
	Items      []AuditLog `json:"items"`
}
