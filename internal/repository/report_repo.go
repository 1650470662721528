package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/AniketAku/parking-management-app--sub001/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Row types returned by the aggregation queries

type RevenueTotalsRow struct {
	Total     decimal.Decimal
	Collected decimal.Decimal
	Entries   int64
}

type GroupRow struct {
	Key    string
	Count  int64
	Amount decimal.Decimal
}

type SeriesRow struct {
	Period time.Time
	Count  int64
	Amount decimal.Decimal
}

type HourRow struct {
	Hour  int
	Count int64
}

type TrafficCountsRow struct {
	Entries int64
	Exits   int64
	Parked  int64
}

type StayStatsRow struct {
	AverageStayHours float64
	AverageFee       decimal.Decimal
	OverstayCount    int64
	ExitedCount      int64
}

// ReportRepository is the data source the report aggregator runs over.
// It is an interface so the aggregator can be exercised against an
// in-memory fake instead of a live store. Revenue queries key on exit
// time (the fee is charged at exit); traffic queries key on entry time.
type ReportRepository interface {
	RevenueTotals(ctx context.Context, start, end time.Time) (RevenueTotalsRow, error)
	GroupByPaymentType(ctx context.Context, start, end time.Time) ([]GroupRow, error)
	GroupByVehicleType(ctx context.Context, start, end time.Time) ([]GroupRow, error)
	RevenueSeries(ctx context.Context, start, end time.Time, granularity string, weekStart time.Weekday) ([]SeriesRow, error)
	TrafficCounts(ctx context.Context, start, end time.Time) (TrafficCountsRow, error)
	HourlyEntryCounts(ctx context.Context, start, end time.Time) ([]HourRow, error)
	RawEntries(ctx context.Context, start, end time.Time) ([]model.ParkingEntry, error)
	StayStats(ctx context.Context, start, end time.Time, overstayThresholdHours int) (StayStatsRow, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) RevenueTotals(ctx context.Context, start, end time.Time) (RevenueTotalsRow, error) {
	var row RevenueTotalsRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(parking_fee), 0) AS total,
			COALESCE(SUM(CASE WHEN payment_status = 'Paid' THEN parking_fee ELSE 0 END), 0) AS collected,
			COUNT(*) AS entries
		FROM parking_entries
		WHERE exit_time IS NOT NULL AND exit_time >= ? AND exit_time <= ?`,
		start, end,
	).Scan(&row).Error
	if err != nil {
		return RevenueTotalsRow{}, fmt.Errorf("failed to query revenue totals: %w", err)
	}
	return row, nil
}

func (r *reportRepository) GroupByPaymentType(ctx context.Context, start, end time.Time) ([]GroupRow, error) {
	var rows []GroupRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT payment_type AS key, COUNT(*) AS count, COALESCE(SUM(parking_fee), 0) AS amount
		FROM parking_entries
		WHERE exit_time IS NOT NULL AND exit_time >= ? AND exit_time <= ?
		GROUP BY payment_type
		ORDER BY amount DESC`,
		start, end,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query payment type breakdown: %w", err)
	}
	return rows, nil
}

func (r *reportRepository) GroupByVehicleType(ctx context.Context, start, end time.Time) ([]GroupRow, error) {
	var rows []GroupRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT vehicle_type AS key, COUNT(*) AS count, COALESCE(SUM(parking_fee), 0) AS amount
		FROM parking_entries
		WHERE entry_time >= ? AND entry_time <= ?
		GROUP BY vehicle_type
		ORDER BY count DESC`,
		start, end,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicle type breakdown: %w", err)
	}
	return rows, nil
}

func (r *reportRepository) RevenueSeries(ctx context.Context, start, end time.Time, granularity string, weekStart time.Weekday) ([]SeriesRow, error) {
	switch granularity {
	case model.GranularityHour, model.GranularityDay, model.GranularityWeek, model.GranularityMonth:
		// valid DATE_TRUNC units
	default:
		return nil, fmt.Errorf("invalid series granularity %q", granularity)
	}

	// DATE_TRUNC('week') is ISO Monday. For Sunday-start weeks the
	// timestamp is shifted a day forward before truncation and back
	// after, keeping SQL buckets aligned with the configured week start.
	period := "DATE_TRUNC(?, exit_time)"
	if granularity == model.GranularityWeek && weekStart == time.Sunday {
		period = "DATE_TRUNC(?, exit_time + INTERVAL '1 day') - INTERVAL '1 day'"
	}

	var rows []SeriesRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			`+period+` AS period,
			COUNT(*) AS count,
			COALESCE(SUM(parking_fee), 0) AS amount
		FROM parking_entries
		WHERE exit_time IS NOT NULL AND exit_time >= ? AND exit_time <= ?
		GROUP BY `+period+`
		ORDER BY period`,
		granularity, start, end, granularity,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue series: %w", err)
	}
	return rows, nil
}

func (r *reportRepository) TrafficCounts(ctx context.Context, start, end time.Time) (TrafficCountsRow, error) {
	var row TrafficCountsRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) FILTER (WHERE entry_time >= ? AND entry_time <= ?) AS entries,
			COUNT(*) FILTER (WHERE exit_time IS NOT NULL AND exit_time >= ? AND exit_time <= ?) AS exits,
			COUNT(*) FILTER (WHERE status = 'Parked' AND exit_time IS NULL) AS parked
		FROM parking_entries`,
		start, end, start, end,
	).Scan(&row).Error
	if err != nil {
		return TrafficCountsRow{}, fmt.Errorf("failed to query traffic counts: %w", err)
	}
	return row, nil
}

// HourlyEntryCounts is the server-side aggregation behind the hourly
// distribution view. Hours with no entries are absent from the result;
// the service densifies to the full 0-23 range.
func (r *reportRepository) HourlyEntryCounts(ctx context.Context, start, end time.Time) ([]HourRow, error) {
	var rows []HourRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT EXTRACT(HOUR FROM entry_time)::int AS hour, COUNT(*) AS count
		FROM parking_entries
		WHERE entry_time >= ? AND entry_time <= ?
		GROUP BY hour
		ORDER BY hour`,
		start, end,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly entry counts: %w", err)
	}
	return rows, nil
}

// RawEntries feeds the client-side fallback recomputation when a
// server-side aggregation is unavailable.
func (r *reportRepository) RawEntries(ctx context.Context, start, end time.Time) ([]model.ParkingEntry, error) {
	var entries []model.ParkingEntry
	err := r.db.WithContext(ctx).
		Where("entry_time >= ? AND entry_time <= ?", start, end).
		Order("entry_time asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query raw entries: %w", err)
	}
	return entries, nil
}

func (r *reportRepository) StayStats(ctx context.Context, start, end time.Time, overstayThresholdHours int) (StayStatsRow, error) {
	var row StayStatsRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(AVG(EXTRACT(EPOCH FROM (exit_time - entry_time)) / 3600.0), 0) AS average_stay_hours,
			COALESCE(AVG(parking_fee), 0) AS average_fee,
			COUNT(*) FILTER (WHERE exit_time - entry_time > make_interval(hours => ?)) AS overstay_count,
			COUNT(*) AS exited_count
		FROM parking_entries
		WHERE exit_time IS NOT NULL AND exit_time >= ? AND exit_time <= ?`,
		overstayThresholdHours, start, end,
	).Scan(&row).Error
	if err != nil {
		return StayStatsRow{}, fmt.Errorf("failed to query stay statistics: %w", err)
	}
	return row, nil
}
