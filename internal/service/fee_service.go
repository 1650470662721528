package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/AniketAku/parking-management-app--sub001/internal/model"
	"github.com/AniketAku/parking-management-app--sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInvalidDuration rejects calculations where exit does not follow
// entry. This is always fatal to the single calculation, never defaulted.
var ErrInvalidDuration = errors.New("exit time must be after entry time")

const hoursPerDay = 24

// FeeCalculationResult carries every intermediate quantity of a fee
// calculation so callers can audit how the total was reached.
type FeeCalculationResult struct {
	VehicleType     string          `json:"vehicle_type"`
	EntryTime       time.Time       `json:"entry_time"`
	ExitTime        time.Time       `json:"exit_time"`
	DurationHours   float64         `json:"duration_hours"`
	CalculatedDays  int64           `json:"calculated_days"`
	DailyRate       decimal.Decimal `json:"daily_rate"`
	BaseFee         decimal.Decimal `json:"base_fee"`
	MinimumApplied  bool            `json:"minimum_applied"`
	IsOverstay      bool            `json:"is_overstay"`
	OverstayPenalty decimal.Decimal `json:"overstay_penalty"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TotalFee        decimal.Decimal `json:"total_fee"`
	RuleID          *uuid.UUID      `json:"rule_id"` // nil when the fallback rate was used
	FallbackRate    bool            `json:"fallback_rate"`
}

// FeeService is the fee rule engine: it resolves a vehicle type and an
// entry/exit pair into a deterministic fee. CalculateFee is a pure
// function of its inputs plus the rule table snapshot; identical inputs
// against an unchanged table produce identical results.
type FeeService interface {
	CalculateFee(ctx context.Context, vehicleType string, entryTime, exitTime time.Time) (FeeCalculationResult, error)
	EstimateFee(ctx context.Context, vehicleType string, at time.Time, hours float64) (decimal.Decimal, error)
}

type feeService struct {
	rules repository.RateRuleRepository
}

func NewFeeService(rules repository.RateRuleRepository) FeeService {
	return &feeService{rules: rules}
}

// fallbackRule is the synthetic rule applied when no active rate rule
// matches the vehicle type. Every transaction must be billable, so the
// engine never fails on an unknown type; the fallback is logged.
func fallbackRule() model.RateRule {
	multiplier, _ := decimal.NewFromString(model.DefaultPenaltyMultiplier)
	return model.RateRule{
		BaseRate:               model.FallbackDailyRate,
		MinimumCharge:          model.FallbackDailyRate,
		RoundingRule:           model.RoundingUp,
		OverstayThresholdHours: model.DefaultOverstayThresholdHours,
		PenaltyType:            model.PenaltyTypeMultiplier,
		OverstayPenaltyRate:    multiplier,
	}
}

func (s *feeService) CalculateFee(ctx context.Context, vehicleType string, entryTime, exitTime time.Time) (FeeCalculationResult, error) {
	if !exitTime.After(entryTime) {
		return FeeCalculationResult{}, ErrInvalidDuration
	}

	rule, ruleID, usedFallback, err := s.resolveRule(ctx, vehicleType, entryTime)
	if err != nil {
		return FeeCalculationResult{}, err
	}

	duration := exitTime.Sub(entryTime)
	days := billableDays(duration, rule.RoundingRule)
	dailyRate := rule.BaseRate

	baseFee := dailyRate.Mul(decimal.NewFromInt(days))
	minimumApplied := false
	if baseFee.LessThan(rule.MinimumCharge) {
		baseFee = rule.MinimumCharge
		minimumApplied = true
	}

	durationHours := duration.Hours()
	penalty := decimal.Zero
	isOverstay := durationHours > float64(rule.OverstayThresholdHours)
	if isOverstay {
		penalty = overstayPenalty(rule, dailyRate, duration)
	}

	subtotal := baseFee.Add(penalty)
	discount := decimal.Zero
	if rule.DiscountPercent.IsPositive() {
		discount = subtotal.Mul(rule.DiscountPercent).Div(decimal.NewFromInt(100))
	}

	total := subtotal.Sub(discount).Round(2) // half away from zero
	if total.IsNegative() {
		total = decimal.Zero
	}

	return FeeCalculationResult{
		VehicleType:     vehicleType,
		EntryTime:       entryTime,
		ExitTime:        exitTime,
		DurationHours:   durationHours,
		CalculatedDays:  days,
		DailyRate:       dailyRate,
		BaseFee:         baseFee,
		MinimumApplied:  minimumApplied,
		IsOverstay:      isOverstay,
		OverstayPenalty: penalty,
		DiscountAmount:  discount,
		TotalFee:        total,
		RuleID:          ruleID,
		FallbackRate:    usedFallback,
	}, nil
}

// EstimateFee projects the charge for a parked vehicle after the given
// number of hours, using the same day-rounding as the final calculation.
func (s *feeService) EstimateFee(ctx context.Context, vehicleType string, at time.Time, hours float64) (decimal.Decimal, error) {
	if hours <= 0 {
		return decimal.Zero, ErrInvalidDuration
	}
	result, err := s.CalculateFee(ctx, vehicleType, at, at.Add(time.Duration(hours*float64(time.Hour))))
	if err != nil {
		return decimal.Zero, err
	}
	return result.TotalFee, nil
}

func (s *feeService) resolveRule(ctx context.Context, vehicleType string, at time.Time) (model.RateRule, *uuid.UUID, bool, error) {
	rule, err := s.rules.FindActiveForType(ctx, vehicleType, at)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("fee: no active rate rule for vehicle type %q at %s, charging fallback rate %s/day",
				vehicleType, at.Format(time.RFC3339), model.FallbackDailyRate.StringFixed(2))
			return fallbackRule(), nil, true, nil
		}
		return model.RateRule{}, nil, false, fmt.Errorf("failed to resolve rate rule: %w", err)
	}
	id := rule.ID
	return *rule, &id, false, nil
}

// billableDays converts a stay duration into billable days. Under the
// default "up" policy any partial day counts as a full day: exactly
// 24h00m00s is 1 day, 24h00m01s is 2 days. That boundary is a direct
// business rule and must hold exactly.
func billableDays(duration time.Duration, roundingRule string) int64 {
	rawDays := int64(duration / (hoursPerDay * time.Hour))
	remainder := duration % (hoursPerDay * time.Hour)

	var days int64
	switch roundingRule {
	case model.RoundingDown:
		days = rawDays
	case model.RoundingNearest:
		days = rawDays
		if remainder >= 12*time.Hour {
			days++
		}
	default: // model.RoundingUp
		days = rawDays
		if remainder > 0 {
			days++
		}
	}

	if days < 1 {
		days = 1
	}
	return days
}

// overstayPenalty computes the surcharge once a stay exceeds the rule's
// threshold. Flat rules add the penalty rate once; multiplier rules add
// dailyRate * penaltyDays * (multiplier - 1), with overstay hours rounded
// up to whole days the same way the stay itself is.
func overstayPenalty(rule model.RateRule, dailyRate decimal.Decimal, duration time.Duration) decimal.Decimal {
	if rule.PenaltyType == model.PenaltyTypeFlat {
		return rule.OverstayPenaltyRate
	}

	overstay := duration - time.Duration(rule.OverstayThresholdHours)*time.Hour
	penaltyDays := int64(overstay / (hoursPerDay * time.Hour))
	if overstay%(hoursPerDay*time.Hour) > 0 {
		penaltyDays++
	}

	factor := rule.OverstayPenaltyRate.Sub(decimal.NewFromInt(1))
	if factor.IsNegative() {
		return decimal.Zero
	}
	return dailyRate.Mul(decimal.NewFromInt(penaltyDays)).Mul(factor)
}
