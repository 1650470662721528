package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Granularity values accepted by the report aggregator
const (
	GranularityHour  = "hour"
	GranularityDay   = "day"
	GranularityWeek  = "week"
	GranularityMonth = "month"
)

// TimeRange is the query window a report is computed over
type TimeRange struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Granularity string    `json:"granularity"` // hour, day, week, month
}

// TimeSeriesPoint is one bucket of the requested granularity. Buckets
// partition the window exhaustively and disjointly, ordered by start.
type TimeSeriesPoint struct {
	Period string          `json:"period"` // canonical bucket key
	Count  int64           `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// BreakdownSlice is one group of a group-by aggregation. Percentage is 0
// (never NaN) when the grand total is zero.
type BreakdownSlice struct {
	Key        string          `json:"key"`
	Count      int64           `json:"count"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage float64         `json:"percentage"`
}

// HourlyBucket is one slot of the dense 24-hour distribution
type HourlyBucket struct {
	Hour    int   `json:"hour"` // 0-23
	Entries int64 `json:"entries"`
}

// RevenueAnalytics summarizes fees over the window
type RevenueAnalytics struct {
	TotalRevenue       decimal.Decimal   `json:"total_revenue"`
	CollectedRevenue   decimal.Decimal   `json:"collected_revenue"`
	OutstandingRevenue decimal.Decimal   `json:"outstanding_revenue"`
	ByPaymentType      []BreakdownSlice  `json:"by_payment_type"`
	ByVehicleType      []BreakdownSlice  `json:"by_vehicle_type"`
	Series             []TimeSeriesPoint `json:"series"`
	GrowthRatePct      float64           `json:"growth_rate_pct"` // vs the equal-length preceding window; 0 when previous is 0
}

// TrafficAnalytics summarizes vehicle movement over the window
type TrafficAnalytics struct {
	TotalEntries       int64            `json:"total_entries"`
	TotalExits         int64            `json:"total_exits"`
	CurrentlyParked    int64            `json:"currently_parked"`
	ByVehicleType      []BreakdownSlice `json:"by_vehicle_type"`
	HourlyDistribution []HourlyBucket   `json:"hourly_distribution"` // always 24 entries, hours 0-23
	PeakHour           int              `json:"peak_hour"`
}

// OperationalEfficiency summarizes stay behavior over the window
type OperationalEfficiency struct {
	AverageStayHours float64         `json:"average_stay_hours"`
	AverageFee       decimal.Decimal `json:"average_fee"`
	OverstayCount    int64           `json:"overstay_count"`
	OverstayRatePct  float64         `json:"overstay_rate_pct"`
}

// PredictiveInsights is a naive trailing-mean projection. Confidence is a
// heuristic score in [50,95] driven by sample count, not a statistical
// confidence interval.
type PredictiveInsights struct {
	TrendPerPeriod    decimal.Decimal `json:"trend_per_period"` // mean of the last 3 periods
	NextPeriodRevenue decimal.Decimal `json:"next_period_revenue"`
	GrowthFactor      float64         `json:"growth_factor"`
	ConfidenceScore   float64         `json:"confidence_score"`
	SampleCount       int             `json:"sample_count"`
	Method            string          `json:"method"`
}

// PeriodTotals is one window's headline numbers for comparison
type PeriodTotals struct {
	Start   time.Time       `json:"start"`
	End     time.Time       `json:"end"`
	Revenue decimal.Decimal `json:"revenue"`
	Entries int64           `json:"entries"`
}

// ComparativeAnalysis reports deltas against the equal-length window
// immediately preceding the requested one
type ComparativeAnalysis struct {
	Current          PeriodTotals `json:"current"`
	Previous         PeriodTotals `json:"previous"`
	RevenueGrowthPct float64      `json:"revenue_growth_pct"`
	EntryGrowthPct   float64      `json:"entry_growth_pct"`
}

// AnalyticsReport is the full dashboard aggregate. Purely derived,
// recomputed per request; the report cache is a latency layer only.
type AnalyticsReport struct {
	Range       TimeRange             `json:"range"`
	GeneratedAt time.Time             `json:"generated_at"`
	Revenue     RevenueAnalytics      `json:"revenue"`
	Traffic     TrafficAnalytics      `json:"traffic"`
	Operational OperationalEfficiency `json:"operational"`
	Predictive  PredictiveInsights    `json:"predictive"`
	Comparative ComparativeAnalysis   `json:"comparative"`
}
