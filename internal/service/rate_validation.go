package service

import (
	"fmt"

	"github.com/AniketAku/parking-management-app--sub001/internal/model"

	"github.com/shopspring/decimal"
)

// Severity levels for validation findings. Only errors block a rule
// change; warnings and info findings are advisory.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// ValidationIssue is one finding from a named predicate check
type ValidationIssue struct {
	Rule       string `json:"rule"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// ValidationReport accumulates every finding; checks never short-circuit
// each other. IsValid is false only when at least one error is present.
type ValidationReport struct {
	IsValid     bool              `json:"is_valid"`
	Errors      []ValidationIssue `json:"errors"`
	Warnings    []ValidationIssue `json:"warnings"`
	Suggestions []string          `json:"suggestions"`
}

func (r *ValidationReport) add(issue *ValidationIssue) {
	if issue == nil {
		return
	}
	switch issue.Severity {
	case SeverityError:
		r.Errors = append(r.Errors, *issue)
		r.IsValid = false
	case SeverityWarning:
		r.Warnings = append(r.Warnings, *issue)
	default:
		if issue.Suggestion != "" {
			r.Suggestions = append(r.Suggestions, issue.Suggestion)
		} else {
			r.Suggestions = append(r.Suggestions, issue.Message)
		}
	}
}

// rate bounds for the advisory range check
var (
	plausibleRateMin = decimal.NewFromInt(10)
	plausibleRateMax = decimal.NewFromInt(10000)
	hundred          = decimal.NewFromInt(100)
	two              = decimal.NewFromInt(2)
)

type ruleCheck struct {
	name string
	run  func(model.RateRule) *ValidationIssue
}

// ruleChecks is the fixed battery applied to a single rate rule. Every
// check runs independently and reports at most one finding.
func ruleChecks() []ruleCheck {
	return []ruleCheck{
		{"rate_positive", func(r model.RateRule) *ValidationIssue {
			if !r.BaseRate.IsPositive() {
				return &ValidationIssue{
					Rule:       "rate_positive",
					Severity:   SeverityError,
					Message:    fmt.Sprintf("base rate for %q must be greater than zero, got %s", r.VehicleType, r.BaseRate),
					Suggestion: "Set a positive daily rate",
				}
			}
			return nil
		}},
		{"rate_plausible_range", func(r model.RateRule) *ValidationIssue {
			if r.BaseRate.LessThan(plausibleRateMin) || r.BaseRate.GreaterThan(plausibleRateMax) {
				return &ValidationIssue{
					Rule:       "rate_plausible_range",
					Severity:   SeverityWarning,
					Message:    fmt.Sprintf("base rate %s for %q is outside the plausible range [%s, %s]", r.BaseRate, r.VehicleType, plausibleRateMin, plausibleRateMax),
					Suggestion: "Double-check the rate; typical daily rates fall between 10 and 10000",
				}
			}
			return nil
		}},
		{"minimum_charge_ratio", func(r model.RateRule) *ValidationIssue {
			if r.MinimumCharge.GreaterThan(r.BaseRate.Mul(two)) {
				return &ValidationIssue{
					Rule:       "minimum_charge_ratio",
					Severity:   SeverityWarning,
					Message:    fmt.Sprintf("minimum charge %s for %q exceeds twice the base rate %s", r.MinimumCharge, r.VehicleType, r.BaseRate),
					Suggestion: "Keep the minimum charge at or below two days of the base rate",
				}
			}
			return nil
		}},
		{"overstay_threshold_positive", func(r model.RateRule) *ValidationIssue {
			if r.OverstayThresholdHours <= 0 {
				return &ValidationIssue{
					Rule:       "overstay_threshold_positive",
					Severity:   SeverityError,
					Message:    fmt.Sprintf("overstay threshold for %q must be positive, got %d", r.VehicleType, r.OverstayThresholdHours),
					Suggestion: "Use a threshold of at least 1 hour; the legacy default is 24",
				}
			}
			return nil
		}},
		{"discount_percent_range", func(r model.RateRule) *ValidationIssue {
			if r.DiscountPercent.IsNegative() || r.DiscountPercent.GreaterThan(hundred) {
				return &ValidationIssue{
					Rule:       "discount_percent_range",
					Severity:   SeverityError,
					Message:    fmt.Sprintf("discount percent for %q must be within [0, 100], got %s", r.VehicleType, r.DiscountPercent),
					Suggestion: "Express the discount as a percentage between 0 and 100",
				}
			}
			return nil
		}},
		{"effective_window_ordered", func(r model.RateRule) *ValidationIssue {
			if r.EffectiveTo != nil && !r.EffectiveTo.After(r.EffectiveFrom) {
				return &ValidationIssue{
					Rule:       "effective_window_ordered",
					Severity:   SeverityError,
					Message:    fmt.Sprintf("effective window for %q is inverted: from %s, to %s", r.VehicleType, r.EffectiveFrom.Format("2006-01-02"), r.EffectiveTo.Format("2006-01-02")),
					Suggestion: "Set effective_to after effective_from, or leave it empty for an open-ended rule",
				}
			}
			return nil
		}},
	}
}

// ValidateRateRule runs the full battery against one rule. All checks
// run; findings accumulate into a single report.
func ValidateRateRule(rule model.RateRule) ValidationReport {
	report := ValidationReport{IsValid: true}
	for _, check := range ruleChecks() {
		report.add(check.run(rule))
	}
	return report
}

// sizeOrder lists vehicle categories from largest to smallest for the
// informational rate-ordering heuristic.
var sizeOrder = []string{
	model.VehicleTypeTrailer,
	model.VehicleTypeSixWheeler,
	model.VehicleTypeFourWheeler,
	model.VehicleTypeTwoWheeler,
}

// validateCrossRules runs the system-level checks that need the whole
// active rule set: per-type uniqueness and the size-based rate ordering
// heuristic (informational only, larger vehicles usually pay more).
func validateCrossRules(rules []model.RateRule, report *ValidationReport) {
	seen := make(map[string]int)
	for _, r := range rules {
		seen[r.VehicleType]++
	}
	for vehicleType, n := range seen {
		if n > 1 {
			report.add(&ValidationIssue{
				Rule:       "vehicle_type_unique",
				Severity:   SeverityError,
				Message:    fmt.Sprintf("%d active rules cover vehicle type %q at the same instant", n, vehicleType),
				Suggestion: "Deactivate the older rule or adjust its effective window",
			})
		}
	}

	rateFor := make(map[string]decimal.Decimal)
	for _, r := range rules {
		rateFor[r.VehicleType] = r.BaseRate
	}
	for i := 0; i < len(sizeOrder)-1; i++ {
		larger, smaller := sizeOrder[i], sizeOrder[i+1]
		lr, ok1 := rateFor[larger]
		sr, ok2 := rateFor[smaller]
		if ok1 && ok2 && lr.LessThan(sr) {
			report.add(&ValidationIssue{
				Rule:     "size_rate_ordering",
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("%q (%s) is cheaper than the smaller %q (%s)", larger, lr, smaller, sr),
			})
		}
	}
}
