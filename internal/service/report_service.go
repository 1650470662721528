package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/AniketAku/parking-management-app--sub001/internal/cache"
	"github.com/AniketAku/parking-management-app--sub001/internal/model"
	"github.com/AniketAku/parking-management-app--sub001/internal/repository"
	"github.com/AniketAku/parking-management-app--sub001/pkg/retry"
	"github.com/AniketAku/parking-management-app--sub001/pkg/timeutil"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ErrDataFetch marks a failed external fetch. A comprehensive report
// fails as a whole when any required sub-fetch fails; the design favors
// a consistent snapshot over partial availability.
var ErrDataFetch = errors.New("data fetch failed")

// forecastMethod labels the projection so its confidence score is not
// mistaken for a statistical confidence interval.
const forecastMethod = "trailing-3-mean heuristic"

// ReportConfig tunes the aggregator. Caching never affects results, only
// latency; disabling it must change no numeric output.
// CacheEnabled and OverstayThresholdHours are fallbacks: when a setting
// service is wired, the stored settings win on every request, so edits
// take effect without a restart.
type ReportConfig struct {
	GrowthFactor           float64
	OverstayThresholdHours int
	CacheEnabled           bool
	CurrentDayTTL          time.Duration // window touching today: data still moving
	HistoricalTTL          time.Duration // fully completed period: effectively immutable
	DefaultTTL             time.Duration
	Retry                  retry.Policy
}

func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		GrowthFactor:           1.05,
		OverstayThresholdHours: model.DefaultOverstayThresholdHours,
		CacheEnabled:           true,
		CurrentDayTTL:          time.Minute,
		HistoricalTTL:          time.Hour,
		DefaultTTL:             10 * time.Minute,
		Retry:                  retry.DefaultPolicy,
	}
}

// ReportCriteria narrows FetchReportAggregations output
type ReportCriteria struct {
	ByPaymentType bool
	ByVehicleType bool
}

// AggregationSummary is the lighter-weight aggregation surface used by
// list views that don't need the full dashboard report
type AggregationSummary struct {
	Range            model.TimeRange        `json:"range"`
	TotalRevenue     decimal.Decimal        `json:"total_revenue"`
	CollectedRevenue decimal.Decimal        `json:"collected_revenue"`
	TotalEntries     int64                  `json:"total_entries"`
	AverageFee       decimal.Decimal        `json:"average_fee"`
	ByPaymentType    []model.BreakdownSlice `json:"by_payment_type,omitempty"`
	ByVehicleType    []model.BreakdownSlice `json:"by_vehicle_type,omitempty"`
}

// ReportService transforms a window of parking entries into dashboard
// analytics. All heavy lifting happens in the repository; this layer
// does the grouping, densification, trend and comparison arithmetic.
type ReportService interface {
	GenerateComprehensiveAnalytics(ctx context.Context, rng model.TimeRange) (*model.AnalyticsReport, error)
	FetchReportAggregations(ctx context.Context, rng model.TimeRange, criteria ReportCriteria) (*AggregationSummary, error)
	FetchHourlyBreakdown(ctx context.Context, start, end time.Time) ([]model.HourlyBucket, error)
	InvalidateCache()
}

type reportService struct {
	repo     repository.ReportRepository
	settings SettingService // nil falls back to cfg values
	cfg      ReportConfig
	cache    *cache.Store[string, *model.AnalyticsReport]
	now      func() time.Time
}

func NewReportService(repo repository.ReportRepository, settings SettingService, cfg ReportConfig) ReportService {
	return &reportService{
		repo:     repo,
		settings: settings,
		cfg:      cfg,
		cache:    cache.New[string, *model.AnalyticsReport](),
		now:      time.Now,
	}
}

// Tunables consulted per request so that setting edits apply live.

func (s *reportService) cacheEnabled(ctx context.Context) bool {
	if s.settings != nil {
		return s.settings.ReportCacheEnabled(ctx)
	}
	return s.cfg.CacheEnabled
}

func (s *reportService) overstayThreshold(ctx context.Context) int {
	if s.settings != nil {
		return s.settings.OverstayThresholdHours(ctx)
	}
	return s.cfg.OverstayThresholdHours
}

func (s *reportService) weekStart(ctx context.Context) time.Weekday {
	if s.settings != nil {
		return s.settings.WeekStart(ctx)
	}
	return time.Monday
}

// --- Comprehensive report ---

func (s *reportService) GenerateComprehensiveAnalytics(ctx context.Context, rng model.TimeRange) (*model.AnalyticsReport, error) {
	granularity, err := timeutil.ParseGranularity(rng.Granularity)
	if err != nil {
		return nil, err
	}
	rng.Granularity = string(granularity)

	bucketer := timeutil.Bucketer{WeekStart: s.weekStart(ctx)}
	useCache := s.cacheEnabled(ctx)

	key := reportCacheKey(rng, bucketer.WeekStart)
	if useCache {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
	}

	report, err := s.computeReport(ctx, rng, granularity, bucketer)
	if err != nil {
		return nil, err
	}

	if useCache {
		s.cache.Set(key, report, s.ttlFor(rng))
	}
	return report, nil
}

// computeReport fans out every sub-fetch concurrently and joins them; a
// single failure fails the whole report.
func (s *reportService) computeReport(ctx context.Context, rng model.TimeRange, granularity timeutil.Granularity, bucketer timeutil.Bucketer) (*model.AnalyticsReport, error) {
	prevStart, prevEnd := timeutil.PreviousWindow(rng.Start, rng.End)
	overstayThreshold := s.overstayThreshold(ctx)

	var (
		totals     repository.RevenueTotalsRow
		prevTotals repository.RevenueTotalsRow
		payGroups  []repository.GroupRow
		vehGroups  []repository.GroupRow
		series     []repository.SeriesRow
		traffic    repository.TrafficCountsRow
		hourly     []model.HourlyBucket
		stay       repository.StayStatsRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.fetch(gctx, "revenue totals", func() (err error) {
		totals, err = s.repo.RevenueTotals(gctx, rng.Start, rng.End)
		return
	}))
	g.Go(s.fetch(gctx, "previous period totals", func() (err error) {
		prevTotals, err = s.repo.RevenueTotals(gctx, prevStart, prevEnd)
		return
	}))
	g.Go(s.fetch(gctx, "payment breakdown", func() (err error) {
		payGroups, err = s.repo.GroupByPaymentType(gctx, rng.Start, rng.End)
		return
	}))
	g.Go(s.fetch(gctx, "vehicle breakdown", func() (err error) {
		vehGroups, err = s.repo.GroupByVehicleType(gctx, rng.Start, rng.End)
		return
	}))
	g.Go(s.fetch(gctx, "revenue series", func() (err error) {
		series, err = s.repo.RevenueSeries(gctx, rng.Start, rng.End, rng.Granularity, bucketer.WeekStart)
		return
	}))
	g.Go(s.fetch(gctx, "traffic counts", func() (err error) {
		traffic, err = s.repo.TrafficCounts(gctx, rng.Start, rng.End)
		return
	}))
	g.Go(s.fetch(gctx, "hourly distribution", func() (err error) {
		hourly, err = s.FetchHourlyBreakdown(gctx, rng.Start, rng.End)
		return
	}))
	g.Go(s.fetch(gctx, "stay statistics", func() (err error) {
		stay, err = s.repo.StayStats(gctx, rng.Start, rng.End, overstayThreshold)
		return
	}))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	denseSeries := densifySeries(series, rng.Start, rng.End, granularity, bucketer)
	peakHour := peakOf(hourly)

	report := &model.AnalyticsReport{
		Range:       rng,
		GeneratedAt: s.now(),
		Revenue: model.RevenueAnalytics{
			TotalRevenue:       totals.Total,
			CollectedRevenue:   totals.Collected,
			OutstandingRevenue: totals.Total.Sub(totals.Collected),
			ByPaymentType:      breakdownByAmount(payGroups),
			ByVehicleType:      breakdownByAmount(vehGroups),
			Series:             denseSeries,
			GrowthRatePct:      growthRate(totals.Total, prevTotals.Total),
		},
		Traffic: model.TrafficAnalytics{
			TotalEntries:       traffic.Entries,
			TotalExits:         traffic.Exits,
			CurrentlyParked:    traffic.Parked,
			ByVehicleType:      breakdownByCount(vehGroups),
			HourlyDistribution: hourly,
			PeakHour:           peakHour,
		},
		Operational: model.OperationalEfficiency{
			AverageStayHours: stay.AverageStayHours,
			AverageFee:       stay.AverageFee,
			OverstayCount:    stay.OverstayCount,
			OverstayRatePct:  ratePct(stay.OverstayCount, stay.ExitedCount),
		},
		Predictive: forecastFromSeries(denseSeries, s.cfg.GrowthFactor),
		Comparative: model.ComparativeAnalysis{
			Current: model.PeriodTotals{
				Start: rng.Start, End: rng.End,
				Revenue: totals.Total, Entries: totals.Entries,
			},
			Previous: model.PeriodTotals{
				Start: prevStart, End: prevEnd,
				Revenue: prevTotals.Total, Entries: prevTotals.Entries,
			},
			RevenueGrowthPct: growthRate(totals.Total, prevTotals.Total),
			EntryGrowthPct:   growthRateInt(totals.Entries, prevTotals.Entries),
		},
	}
	return report, nil
}

// fetch wraps one idempotent sub-fetch with the bounded retry policy and
// the DataFetchError marker.
func (s *reportService) fetch(ctx context.Context, name string, fn func() error) func() error {
	return func() error {
		if err := retry.Do(ctx, s.cfg.Retry, fn); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDataFetch, name, err)
		}
		return nil
	}
}

// --- Aggregations surface ---

func (s *reportService) FetchReportAggregations(ctx context.Context, rng model.TimeRange, criteria ReportCriteria) (*AggregationSummary, error) {
	var (
		totals    repository.RevenueTotalsRow
		payGroups []repository.GroupRow
		vehGroups []repository.GroupRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.fetch(gctx, "revenue totals", func() (err error) {
		totals, err = s.repo.RevenueTotals(gctx, rng.Start, rng.End)
		return
	}))
	if criteria.ByPaymentType {
		g.Go(s.fetch(gctx, "payment breakdown", func() (err error) {
			payGroups, err = s.repo.GroupByPaymentType(gctx, rng.Start, rng.End)
			return
		}))
	}
	if criteria.ByVehicleType {
		g.Go(s.fetch(gctx, "vehicle breakdown", func() (err error) {
			vehGroups, err = s.repo.GroupByVehicleType(gctx, rng.Start, rng.End)
			return
		}))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	avgFee := decimal.Zero
	if totals.Entries > 0 {
		avgFee = totals.Total.Div(decimal.NewFromInt(totals.Entries)).Round(2)
	}

	return &AggregationSummary{
		Range:            rng,
		TotalRevenue:     totals.Total,
		CollectedRevenue: totals.Collected,
		TotalEntries:     totals.Entries,
		AverageFee:       avgFee,
		ByPaymentType:    breakdownByAmount(payGroups),
		ByVehicleType:    breakdownByCount(vehGroups),
	}, nil
}

// FetchHourlyBreakdown returns the dense 24-slot entry distribution.
// The server-side aggregation is preferred; when it is unavailable the
// distribution is recomputed client-side from raw records instead of
// failing the view.
func (s *reportService) FetchHourlyBreakdown(ctx context.Context, start, end time.Time) ([]model.HourlyBucket, error) {
	rows, err := s.repo.HourlyEntryCounts(ctx, start, end)
	if err != nil {
		log.Printf("report: hourly aggregation unavailable (%v), recomputing from raw entries", err)
		entries, rawErr := s.repo.RawEntries(ctx, start, end)
		if rawErr != nil {
			return nil, fmt.Errorf("%w: hourly breakdown: %v", ErrDataFetch, rawErr)
		}
		rows = hourlyFromEntries(entries)
	}
	return denseHourly(rows), nil
}

func (s *reportService) InvalidateCache() {
	s.cache.InvalidateAll()
}

// --- Cache policy ---

// reportCacheKey includes the week start so a week-start edit cannot be
// served a stale weekly bucketing.
func reportCacheKey(rng model.TimeRange, weekStart time.Weekday) string {
	return fmt.Sprintf("report|%d|%d|%s|%d", rng.Start.Unix(), rng.End.Unix(), rng.Granularity, weekStart)
}

// ttlFor classifies the window: a completed historical period barely
// changes and caches long; a window touching today is still accumulating
// and caches short.
func (s *reportService) ttlFor(rng model.TimeRange) time.Duration {
	todayStart := timeutil.Truncate(s.now(), timeutil.Day)
	switch {
	case rng.End.Before(todayStart):
		return s.cfg.HistoricalTTL
	case !rng.Start.Before(todayStart):
		return s.cfg.CurrentDayTTL
	default:
		return s.cfg.DefaultTTL
	}
}

// --- Pure aggregation arithmetic ---

// breakdownByAmount computes each group's share of the summed amount.
// A zero grand total yields 0% everywhere, never NaN.
func breakdownByAmount(groups []repository.GroupRow) []model.BreakdownSlice {
	total := decimal.Zero
	for _, g := range groups {
		total = total.Add(g.Amount)
	}

	out := make([]model.BreakdownSlice, 0, len(groups))
	for _, g := range groups {
		pct := 0.0
		if total.IsPositive() {
			pct, _ = g.Amount.Div(total).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		}
		out = append(out, model.BreakdownSlice{Key: g.Key, Count: g.Count, Amount: g.Amount, Percentage: pct})
	}
	return out
}

// breakdownByCount computes each group's share of the record count
func breakdownByCount(groups []repository.GroupRow) []model.BreakdownSlice {
	var total int64
	for _, g := range groups {
		total += g.Count
	}

	out := make([]model.BreakdownSlice, 0, len(groups))
	for _, g := range groups {
		pct := 0.0
		if total > 0 {
			pct = roundPct(float64(g.Count) / float64(total) * 100)
		}
		out = append(out, model.BreakdownSlice{Key: g.Key, Count: g.Count, Amount: g.Amount, Percentage: pct})
	}
	return out
}

func roundPct(v float64) float64 {
	d := decimal.NewFromFloat(v).Round(2)
	f, _ := d.Float64()
	return f
}

// densifySeries spreads sparse SQL rows across every bucket of the
// window so the series partitions it exhaustively, zero-filled and
// ordered by bucket start.
func densifySeries(rows []repository.SeriesRow, start, end time.Time, g timeutil.Granularity, bucketer timeutil.Bucketer) []model.TimeSeriesPoint {
	byKey := make(map[string]repository.SeriesRow, len(rows))
	for _, row := range rows {
		byKey[bucketer.BucketKey(row.Period, g)] = row
	}

	buckets := bucketer.Buckets(start, end, g)
	out := make([]model.TimeSeriesPoint, 0, len(buckets))
	for _, b := range buckets {
		key := bucketer.BucketKey(b, g)
		point := model.TimeSeriesPoint{Period: key, Total: decimal.Zero}
		if row, ok := byKey[key]; ok {
			point.Count = row.Count
			point.Total = row.Amount
		}
		out = append(out, point)
	}
	return out
}

// growthRate is (current - previous) / previous * 100, defined as 0 when
// the previous total is 0. That zero is a deliberate compatibility
// policy, not an error condition.
func growthRate(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		return 0
	}
	pct, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return pct
}

func growthRateInt(current, previous int64) float64 {
	return growthRate(decimal.NewFromInt(current), decimal.NewFromInt(previous))
}

func ratePct(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return roundPct(float64(part) / float64(whole) * 100)
}

// forecastFromSeries is the naive trend estimator: the mean of the last
// three periods is "the trend", the next period is trend * growthFactor.
// Confidence grows with sample count and is clamped to [50, 95]; it is a
// labeling heuristic, not real statistics.
func forecastFromSeries(series []model.TimeSeriesPoint, growthFactor float64) model.PredictiveInsights {
	window := series
	if len(window) > 3 {
		window = window[len(window)-3:]
	}

	trend := decimal.Zero
	if len(window) > 0 {
		sum := decimal.Zero
		for _, p := range window {
			sum = sum.Add(p.Total)
		}
		trend = sum.Div(decimal.NewFromInt(int64(len(window)))).Round(2)
	}

	next := trend.Mul(decimal.NewFromFloat(growthFactor)).Round(2)

	confidence := 50.0 + 5.0*float64(len(series))
	if confidence > 95 {
		confidence = 95
	}

	return model.PredictiveInsights{
		TrendPerPeriod:    trend,
		NextPeriodRevenue: next,
		GrowthFactor:      growthFactor,
		ConfidenceScore:   confidence,
		SampleCount:       len(series),
		Method:            forecastMethod,
	}
}

// hourlyFromEntries is the client-side fallback for the hourly
// distribution when the server-side aggregation is unavailable
func hourlyFromEntries(entries []model.ParkingEntry) []repository.HourRow {
	counts := make(map[int]int64)
	for _, e := range entries {
		counts[e.EntryTime.Hour()]++
	}

	rows := make([]repository.HourRow, 0, len(counts))
	for hour, count := range counts {
		rows = append(rows, repository.HourRow{Hour: hour, Count: count})
	}
	return rows
}

// denseHourly always emits exactly 24 buckets, hours 0 through 23
func denseHourly(rows []repository.HourRow) []model.HourlyBucket {
	out := make([]model.HourlyBucket, 24)
	for i := range out {
		out[i].Hour = i
	}
	for _, row := range rows {
		if row.Hour >= 0 && row.Hour < 24 {
			out[row.Hour].Entries = row.Count
		}
	}
	return out
}

func peakOf(buckets []model.HourlyBucket) int {
	peak := 0
	var max int64 = -1
	for _, b := range buckets {
		if b.Entries > max {
			max = b.Entries
			peak = b.Hour
		}
	}
	return peak
}
