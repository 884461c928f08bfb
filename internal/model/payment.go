package model

// Churn risk levels, as assigned by the payment server
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// ProrationPlan describes one side of a plan change.
type ProrationPlan struct {
	PriceID  string `json:"priceId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Interval string `json:"interval"`
}

// ProrationTiming is the billing period context of a preview.
type ProrationTiming struct {
	CurrentPeriodStart string `json:"currentPeriodStart"`
	CurrentPeriodEnd   string `json:"currentPeriodEnd"`
	ProrationDate      string `json:"prorationDate"`
	DaysRemaining      int    `json:"daysRemaining"`
	TotalDays          int    `json:"totalDays"`
}

// ProrationAmounts are computed by the payment server; Difference is signed.
type ProrationAmounts struct {
	ProratedAmount  int64 `json:"proratedAmount"`
	UnusedAmount    int64 `json:"unusedAmount"`
	NewPlanAmount   int64 `json:"newPlanAmount"`
	Difference      int64 `json:"difference"`
	IsUpgrade       bool  `json:"isUpgrade"`
	IsDowngrade     bool  `json:"isDowngrade"`
	ImmediateCharge int64 `json:"immediateCharge"`
	CreditApplied   int64 `json:"creditApplied"`
}

// ProrationPreview is the response of the proration calculate endpoint.
type ProrationPreview struct {
	Success        bool             `json:"success"`
	Message        string           `json:"message,omitempty"`
	SubscriptionID string           `json:"subscriptionId"`
	CurrentPlan    ProrationPlan    `json:"currentPlan"`
	NewPlan        ProrationPlan    `json:"newPlan"`
	Timing         ProrationTiming  `json:"timing"`
	Proration      ProrationAmounts `json:"proration"`
}

// PlanChangeResult is returned by apply and schedule plan change calls.
type PlanChangeResult struct {
	Success       bool              `json:"success"`
	Message       string            `json:"message,omitempty"`
	EffectiveDate string            `json:"effectiveDate,omitempty"`
	Proration     *ProrationAmounts `json:"proration,omitempty"`
}

// ChurnFactor is one weighted input to a churn risk score.
type ChurnFactor struct {
	Factor string  `json:"factor"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// ChurnRecommendation is a suggested retention action.
type ChurnRecommendation struct {
	Action      string `json:"action"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
}

// ChurnAnalysis is produced entirely by the payment server.
type ChurnAnalysis struct {
	CustomerID          string                `json:"customerId"`
	RiskScore           float64               `json:"riskScore"`
	RiskLevel           string                `json:"riskLevel"`
	ContributingFactors []ChurnFactor         `json:"contributingFactors"`
	Recommendations     []ChurnRecommendation `json:"recommendations"`
	LTV                 float64               `json:"ltv"`
	AccountAge          int                   `json:"accountAge"`
	ActiveSubscriptions int                   `json:"activeSubscriptions"`
	LastActivity        string                `json:"lastActivity"`
}

// RiskBreakdown counts customers per risk level.
type RiskBreakdown struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// ChurnReport summarises churn risk across all customers.
type ChurnReport struct {
	TotalCustomers       int             `json:"totalCustomers"`
	AtRiskCount          int             `json:"atRiskCount"`
	AvgRiskScore         float64         `json:"avgRiskScore"`
	EstimatedRevenueLoss float64         `json:"estimatedRevenueLoss"`
	Breakdown            RiskBreakdown   `json:"breakdown"`
	TopRisks             []ChurnAnalysis `json:"topRisks"`
}

// RetentionResult lists the retention actions the payment server executed.
type RetentionResult struct {
	CustomerID string   `json:"customerId"`
	Actions    []string `json:"actions"`
}

// Trial is an active or expiring trial subscription.
type Trial struct {
	SubscriptionID   string `json:"subscriptionId"`
	CustomerID       string `json:"customerId"`
	Status           string `json:"status"`
	TrialStart       string `json:"trialStart"`
	TrialEnd         string `json:"trialEnd"`
	DaysRemaining    int    `json:"daysRemaining"`
	Plan             string `json:"plan"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	HasPaymentMethod bool   `json:"hasPaymentMethod"`
}

// Period is a start/end date range.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TrialMetrics summarises trial conversion.
type TrialMetrics struct {
	TotalTrials      int     `json:"totalTrials"`
	ActiveTrials     int     `json:"activeTrials"`
	ConvertedTrials  int     `json:"convertedTrials"`
	CanceledTrials   int     `json:"canceledTrials"`
	ConversionRate   float64 `json:"conversionRate"`
	AvgTrialDuration float64 `json:"avgTrialDuration"`
	Revenue          float64 `json:"revenue"`
	Period           Period  `json:"period"`
}

// TrialActionResult is returned by trial write endpoints.
type TrialActionResult struct {
	Success        bool   `json:"success"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	NewTrialEnd    string `json:"newTrialEnd,omitempty"`
	RemindersSent  int    `json:"remindersSent,omitempty"`
	Message        string `json:"message,omitempty"`
}

// RevenueSummary is the headline block of the revenue dashboard.
type RevenueSummary struct {
	MRR                      float64 `json:"mrr"`
	ARR                      float64 `json:"arr"`
	AverageRevenuePerAccount float64 `json:"averageRevenuePerAccount"`
	MonthOverMonthGrowth     float64 `json:"monthOverMonthGrowth"`
	TotalRevenueLast12Months float64 `json:"totalRevenueLast12Months"`
	ActiveSubscriptions      int     `json:"activeSubscriptions"`
}

// RevenueGrowth is one month of the revenue growth series.
type RevenueGrowth struct {
	Month               string   `json:"month"`
	TotalRevenue        float64  `json:"totalRevenue"`
	SubscriptionRevenue float64  `json:"subscriptionRevenue"`
	OneTimeRevenue      float64  `json:"oneTimeRevenue"`
	GrowthRate          *float64 `json:"growthRate,omitempty"`
}

// ChurnImpact is revenue lost to churn.
type ChurnImpact struct {
	LostMRR              float64        `json:"lostMRR"`
	LostARR              float64        `json:"lostARR"`
	ChurnedSubscriptions int            `json:"churnedSubscriptions"`
	RecoveredRevenue     float64        `json:"recoveredRevenue"`
	CancellationReasons  map[string]int `json:"cancellationReasons"`
}

// RevenueBreakdown splits revenue by plan and billing interval.
type RevenueBreakdown struct {
	ByPlan     map[string]float64 `json:"byPlan"`
	ByInterval map[string]float64 `json:"byInterval"`
}

// RevenueDashboard is the payment server's revenue analysis.
type RevenueDashboard struct {
	Summary     RevenueSummary   `json:"summary"`
	Growth      []RevenueGrowth  `json:"growth"`
	ChurnImpact ChurnImpact      `json:"churnImpact"`
	Breakdown   RevenueBreakdown `json:"breakdown"`
}

// HealthSummary is the headline block of the customer health dashboard.
type HealthSummary struct {
	TotalCustomers          int     `json:"totalCustomers"`
	HealthyCustomers        int     `json:"healthyCustomers"`
	OverallHealthPercentage float64 `json:"overallHealthPercentage"`
	AtRiskCount             int     `json:"atRiskCount"`
	HighEngagementCount     int     `json:"highEngagementCount"`
	AverageHealthScore      float64 `json:"averageHealthScore"`
}

// CustomerSegments counts customers per lifecycle segment.
type CustomerSegments struct {
	Champions    int `json:"champions"`
	Loyalists    int `json:"loyalists"`
	AtRisk       int `json:"atRisk"`
	NewCustomers int `json:"newCustomers"`
	Hibernating  int `json:"hibernating"`
}

// CustomerHealthDashboard summarises customer health scores.
type CustomerHealthDashboard struct {
	Health   HealthSummary    `json:"health"`
	Segments CustomerSegments `json:"segments"`
}

// ReportTemplate is a saved report definition.
type ReportTemplate struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Spec        ReportSpec `json:"spec"`
}

// ReportSort orders report rows.
type ReportSort struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// ReportSpec asks the payment server to build a report.
type ReportSpec struct {
	Type         string            `json:"type"`
	Columns      []string          `json:"columns"`
	Filters      map[string]any    `json:"filters"`
	DateRange    map[string]string `json:"dateRange"`
	Aggregations []string          `json:"aggregations"`
	Sort         ReportSort        `json:"sort"`
	Limit        int               `json:"limit"`
}

// ReportData is a built report.
type ReportData struct {
	Columns     []string         `json:"columns"`
	Rows        []map[string]any `json:"rows"`
	TotalRows   int              `json:"totalRows"`
	GeneratedAt string           `json:"generatedAt"`
}

// ExportFile is an export-center file.
type ExportFile struct {
	Filename  string `json:"filename"`
	Type      string `json:"type"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"createdAt"`
	URL       string `json:"url"`
}

// ExportResult is returned when an export is generated.
type ExportResult struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
	Message  string `json:"message,omitempty"`
}

// CohortPeriod is one period of a cohort's retention curve.
type CohortPeriod struct {
	Period        int     `json:"period"`
	ActiveUsers   int     `json:"activeUsers"`
	RetentionRate float64 `json:"retentionRate"`
}

// Cohort is one signup cohort from the analytics API.
type Cohort struct {
	Cohort           string         `json:"cohort"`
	CohortDate       string         `json:"cohortDate"`
	Size             int            `json:"size"`
	Retention        []CohortPeriod `json:"retention"`
	Revenue          float64        `json:"revenue"`
	AvgLifetimeValue float64        `json:"avgLifetimeValue"`
}

// CohortAnalysis is the analytics API cohort response.
type CohortAnalysis struct {
	Success bool     `json:"success"`
	Cohorts []Cohort `json:"cohorts"`
	Summary struct {
		TotalCohorts     int     `json:"totalCohorts"`
		TotalUsers       int     `json:"totalUsers"`
		AvgRetentionRate float64 `json:"avgRetentionRate"`
	} `json:"summary"`
}

// FunnelStep is one stage of a conversion funnel.
type FunnelStep struct {
	Step           int     `json:"step"`
	Name           string  `json:"name"`
	Count          int     `json:"count"`
	ConversionRate float64 `json:"conversionRate"`
	DropoffRate    float64 `json:"dropoffRate"`
}

// Funnel is the analytics API funnel response.
type Funnel struct {
	Success bool         `json:"success"`
	Funnel  []FunnelStep `json:"funnel"`
	Summary struct {
		TotalSteps        int     `json:"totalSteps"`
		OverallConversion float64 `json:"overallConversion"`
	} `json:"summary"`
}
