package service

import (
	"testing"
	"time"

	"github.com/AniketAku/parking-management-app--sub001/internal/model"

	"github.com/shopspring/decimal"
)

func validRule() model.RateRule {
	return model.RateRule{
		VehicleType:            model.VehicleTypeFourWheeler,
		BaseRate:               decimal.NewFromInt(100),
		MinimumCharge:          decimal.NewFromInt(100),
		RoundingRule:           model.RoundingUp,
		OverstayThresholdHours: 24,
		PenaltyType:            model.PenaltyTypeMultiplier,
		OverstayPenaltyRate:    decimal.RequireFromString("1.5"),
		EffectiveFrom:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:               true,
	}
}

func hasFinding(issues []ValidationIssue, rule string) bool {
	for _, i := range issues {
		if i.Rule == rule {
			return true
		}
	}
	return false
}

func TestValidateRateRuleClean(t *testing.T) {
	report := ValidateRateRule(validRule())
	if !report.IsValid {
		t.Fatalf("clean rule reported invalid: %+v", report.Errors)
	}
	if len(report.Errors) != 0 || len(report.Warnings) != 0 {
		t.Fatalf("clean rule produced findings: %+v / %+v", report.Errors, report.Warnings)
	}
}

func TestValidateRateRuleErrors(t *testing.T) {
	t.Run("non-positive rate", func(t *testing.T) {
		r := validRule()
		r.BaseRate = decimal.Zero
		report := ValidateRateRule(r)
		if report.IsValid || !hasFinding(report.Errors, "rate_positive") {
			t.Fatalf("expected rate_positive error, got %+v", report)
		}
	})

	t.Run("non-positive threshold", func(t *testing.T) {
		r := validRule()
		r.OverstayThresholdHours = 0
		report := ValidateRateRule(r)
		if report.IsValid || !hasFinding(report.Errors, "overstay_threshold_positive") {
			t.Fatalf("expected overstay_threshold_positive error, got %+v", report)
		}
	})

	t.Run("discount out of range", func(t *testing.T) {
		r := validRule()
		r.DiscountPercent = decimal.NewFromInt(120)
		report := ValidateRateRule(r)
		if report.IsValid || !hasFinding(report.Errors, "discount_percent_range") {
			t.Fatalf("expected discount_percent_range error, got %+v", report)
		}
	})

	t.Run("inverted effective window", func(t *testing.T) {
		r := validRule()
		to := r.EffectiveFrom.AddDate(0, 0, -1)
		r.EffectiveTo = &to
		report := ValidateRateRule(r)
		if report.IsValid || !hasFinding(report.Errors, "effective_window_ordered") {
			t.Fatalf("expected effective_window_ordered error, got %+v", report)
		}
	})
}

func TestValidateRateRuleWarnings(t *testing.T) {
	t.Run("implausible rate", func(t *testing.T) {
		r := validRule()
		r.BaseRate = decimal.NewFromInt(50000)
		report := ValidateRateRule(r)
		if !report.IsValid {
			t.Fatal("warnings must not invalidate the rule")
		}
		if !hasFinding(report.Warnings, "rate_plausible_range") {
			t.Fatalf("expected rate_plausible_range warning, got %+v", report.Warnings)
		}
	})

	t.Run("minimum charge too high", func(t *testing.T) {
		r := validRule()
		r.MinimumCharge = decimal.NewFromInt(250)
		report := ValidateRateRule(r)
		if !report.IsValid {
			t.Fatal("warnings must not invalidate the rule")
		}
		if !hasFinding(report.Warnings, "minimum_charge_ratio") {
			t.Fatalf("expected minimum_charge_ratio warning, got %+v", report.Warnings)
		}
	})
}

func TestValidateRateRuleAccumulatesFindings(t *testing.T) {
	r := validRule()
	r.BaseRate = decimal.NewFromInt(-5) // rate_positive error + rate_plausible_range warning
	r.DiscountPercent = decimal.NewFromInt(-1)
	r.OverstayThresholdHours = -1

	report := ValidateRateRule(r)
	if report.IsValid {
		t.Fatal("expected invalid report")
	}
	if len(report.Errors) < 3 {
		t.Fatalf("checks short-circuited: only %d errors: %+v", len(report.Errors), report.Errors)
	}
}

func TestValidateCrossRules(t *testing.T) {
	t.Run("duplicate vehicle type", func(t *testing.T) {
		a := validRule()
		b := validRule()
		report := ValidationReport{IsValid: true}
		validateCrossRules([]model.RateRule{a, b}, &report)
		if report.IsValid || !hasFinding(report.Errors, "vehicle_type_unique") {
			t.Fatalf("expected vehicle_type_unique error, got %+v", report)
		}
	})

	t.Run("size ordering is informational only", func(t *testing.T) {
		trailer := validRule()
		trailer.VehicleType = model.VehicleTypeTrailer
		trailer.BaseRate = decimal.NewFromInt(40) // cheaper than the smaller class
		small := validRule()
		small.VehicleType = model.VehicleTypeTwoWheeler
		small.BaseRate = decimal.NewFromInt(50)
		mid1 := validRule()
		mid1.VehicleType = model.VehicleTypeSixWheeler
		mid1.BaseRate = decimal.NewFromInt(45)
		mid2 := validRule()
		mid2.VehicleType = model.VehicleTypeFourWheeler
		mid2.BaseRate = decimal.NewFromInt(48)

		report := ValidationReport{IsValid: true}
		validateCrossRules([]model.RateRule{trailer, small, mid1, mid2}, &report)
		if !report.IsValid {
			t.Fatalf("ordering finding must not invalidate: %+v", report.Errors)
		}
		if len(report.Suggestions) == 0 {
			t.Fatal("expected a size_rate_ordering suggestion")
		}
	})
}
