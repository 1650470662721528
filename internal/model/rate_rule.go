package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VehicleType enum constants (facility categories, largest to smallest)
const (
	VehicleTypeTrailer     = "Trailer"
	VehicleTypeSixWheeler  = "6 Wheeler"
	VehicleTypeFourWheeler = "4 Wheeler"
	VehicleTypeTwoWheeler  = "2 Wheeler"
)

// RoundingRule enum constants for converting a stay duration into billable days
const (
	RoundingUp      = "up"      // any partial day counts as a full day
	RoundingDown    = "down"    // partial days dropped, minimum one day
	RoundingNearest = "nearest" // half-day boundary decides
)

// PenaltyType enum constants
const (
	PenaltyTypeFlat       = "flat"       // penalty rate added once
	PenaltyTypeMultiplier = "multiplier" // dailyRate * penaltyDays * (rate - 1)
)

// FallbackDailyRate is charged per day when no active rule matches a
// vehicle type. Every transaction must be billable, so an unknown type
// never fails a calculation; the fallback is logged at the point of use.
var FallbackDailyRate = decimal.NewFromInt(100)

// Defaults carried over from the legacy rate schedule.
const (
	DefaultOverstayThresholdHours = 24
	DefaultPenaltyMultiplier      = "1.5"
)

// RateRule is a vehicle-category-scoped fee policy with temporal validity.
// Rules are never physically deleted, only deactivated, so historical fees
// stay reproducible. At most one rule per vehicle type may be active at
// any instant (enforced by the overlap check in the repository).
type RateRule struct {
	ID                     uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	VehicleType            string          `gorm:"type:varchar(50);not null;index" json:"vehicle_type"`
	BaseRate               decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"base_rate"` // currency per day
	MinimumCharge          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"minimum_charge"`
	RoundingRule           string          `gorm:"type:varchar(10);not null;default:'up'" json:"rounding_rule"`
	OverstayThresholdHours int             `gorm:"not null;default:24" json:"overstay_threshold_hours"`
	PenaltyType            string          `gorm:"type:varchar(15);not null;default:'multiplier'" json:"penalty_type"`
	OverstayPenaltyRate    decimal.Decimal `gorm:"type:decimal(12,4);not null;default:1.5" json:"overstay_penalty_rate"`
	DiscountPercent        decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percent"`
	EffectiveFrom          time.Time       `gorm:"not null;index" json:"effective_from"`
	EffectiveTo            *time.Time      `gorm:"index" json:"effective_to"` // nil = open-ended
	IsActive               bool            `gorm:"not null;default:true;index" json:"is_active"`
	Description            string          `gorm:"type:text" json:"description"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// DefaultRateRules returns the legacy rate schedule used to seed an empty
// rate table: Trailer 225, 6 Wheeler 150, 4 Wheeler 100, 2 Wheeler 50 per
// day, 24h overstay threshold, 1.5x penalty multiplier.
func DefaultRateRules(effectiveFrom time.Time) []RateRule {
	schedule := []struct {
		vehicleType string
		rate        int64
	}{
		{VehicleTypeTrailer, 225},
		{VehicleTypeSixWheeler, 150},
		{VehicleTypeFourWheeler, 100},
		{VehicleTypeTwoWheeler, 50},
	}

	multiplier, _ := decimal.NewFromString(DefaultPenaltyMultiplier)

	rules := make([]RateRule, 0, len(schedule))
	for _, s := range schedule {
		rules = append(rules, RateRule{
			VehicleType:            s.vehicleType,
			BaseRate:               decimal.NewFromInt(s.rate),
			MinimumCharge:          decimal.NewFromInt(s.rate),
			RoundingRule:           RoundingUp,
			OverstayThresholdHours: DefaultOverstayThresholdHours,
			PenaltyType:            PenaltyTypeMultiplier,
			OverstayPenaltyRate:    multiplier,
			EffectiveFrom:          effectiveFrom,
			IsActive:               true,
			Description:            "Seeded from the legacy rate schedule",
		})
	}
	return rules
}
