package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AniketAku/parking-management-app--sub001/internal/model"
	"github.com/AniketAku/parking-management-app--sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type RateRuleRequest struct {
	VehicleType            string `json:"vehicle_type" binding:"required"`
	BaseRate               string `json:"base_rate" binding:"required"` // decimal string, e.g. "225.00"
	MinimumCharge          string `json:"minimum_charge"`
	RoundingRule           string `json:"rounding_rule" binding:"omitempty,oneof=up down nearest"`
	OverstayThresholdHours int    `json:"overstay_threshold_hours"`
	PenaltyType            string `json:"penalty_type" binding:"omitempty,oneof=flat multiplier"`
	OverstayPenaltyRate    string `json:"overstay_penalty_rate"`
	DiscountPercent        string `json:"discount_percent"`
	EffectiveFrom          string `json:"effective_from" binding:"required"` // YYYY-MM-DD
	EffectiveTo            string `json:"effective_to"`                      // YYYY-MM-DD, empty = open-ended
	Description            string `json:"description"`
}

type RateRuleResponse struct {
	ID                     string  `json:"id"`
	VehicleType            string  `json:"vehicle_type"`
	BaseRate               string  `json:"base_rate"`
	MinimumCharge          string  `json:"minimum_charge"`
	RoundingRule           string  `json:"rounding_rule"`
	OverstayThresholdHours int     `json:"overstay_threshold_hours"`
	PenaltyType            string  `json:"penalty_type"`
	OverstayPenaltyRate    string  `json:"overstay_penalty_rate"`
	DiscountPercent        string  `json:"discount_percent"`
	EffectiveFrom          string  `json:"effective_from"`
	EffectiveTo            *string `json:"effective_to"`
	IsActive               bool    `json:"is_active"`
	Description            string  `json:"description"`
	CreatedAt              string  `json:"created_at"`
}

// --- Interface ---

// RateService manages the rate rule table. Rule changes are gated by the
// validation battery: error findings block persistence, warnings and
// suggestions ride along in the returned report. Rules are deactivated,
// never deleted, so historical fees stay reproducible.
type RateService interface {
	ListRateRules(ctx context.Context, page, limit int) ([]RateRuleResponse, int64, error)
	AddRateConfig(ctx context.Context, req RateRuleRequest, userID string) (*RateRuleResponse, ValidationReport, error)
	UpdateRateConfig(ctx context.Context, id string, req RateRuleRequest, userID string) (*RateRuleResponse, ValidationReport, error)
	DeactivateRateRule(ctx context.Context, id string, userID string) error
	ValidateCompleteSystem(ctx context.Context) (ValidationReport, error)
}

type rateService struct {
	rules repository.RateRuleRepository
	audit repository.AuditRepository
}

func NewRateService(rules repository.RateRuleRepository, audit repository.AuditRepository) RateService {
	return &rateService{rules: rules, audit: audit}
}

// --- Implementation ---

func (s *rateService) ListRateRules(ctx context.Context, page, limit int) ([]RateRuleResponse, int64, error) {
	rules, total, err := s.rules.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch rate rules: %w", err)
	}

	res := make([]RateRuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toRateRuleResponse(r))
	}
	return res, total, nil
}

func (s *rateService) AddRateConfig(ctx context.Context, req RateRuleRequest, userID string) (*RateRuleResponse, ValidationReport, error) {
	rule, err := ruleFromRequest(req)
	if err != nil {
		return nil, ValidationReport{}, err
	}

	report := ValidateRateRule(rule)
	if err := s.checkUniqueness(ctx, rule, nil, &report); err != nil {
		return nil, ValidationReport{}, err
	}
	if !report.IsValid {
		return nil, report, nil
	}

	if err := s.rules.Create(ctx, &rule); err != nil {
		return nil, report, fmt.Errorf("failed to create rate rule: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionCreateRateRule, rule.ID.String(),
		rule.VehicleType+" "+rule.BaseRate.StringFixed(2), req)

	resp := toRateRuleResponse(rule)
	return &resp, report, nil
}

func (s *rateService) UpdateRateConfig(ctx context.Context, id string, req RateRuleRequest, userID string) (*RateRuleResponse, ValidationReport, error) {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return nil, ValidationReport{}, fmt.Errorf("invalid rate rule id: %w", err)
	}

	existing, err := s.rules.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ValidationReport{}, fmt.Errorf("rate rule not found")
		}
		return nil, ValidationReport{}, fmt.Errorf("failed to fetch rate rule: %w", err)
	}

	updated, err := ruleFromRequest(req)
	if err != nil {
		return nil, ValidationReport{}, err
	}
	updated.ID = existing.ID
	updated.IsActive = existing.IsActive
	updated.CreatedAt = existing.CreatedAt

	report := ValidateRateRule(updated)
	if updated.IsActive {
		if err := s.checkUniqueness(ctx, updated, &ruleID, &report); err != nil {
			return nil, ValidationReport{}, err
		}
	}
	if !report.IsValid {
		return nil, report, nil
	}

	if err := s.rules.Update(ctx, &updated); err != nil {
		return nil, report, fmt.Errorf("failed to update rate rule: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionUpdateRateRule, updated.ID.String(),
		updated.VehicleType+" "+updated.BaseRate.StringFixed(2), req)

	resp := toRateRuleResponse(updated)
	return &resp, report, nil
}

// DeactivateRateRule retires a rule without deleting it. The effective
// window is closed at the moment of deactivation.
func (s *rateService) DeactivateRateRule(ctx context.Context, id string, userID string) error {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid rate rule id: %w", err)
	}

	rule, err := s.rules.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("rate rule not found")
		}
		return fmt.Errorf("failed to fetch rate rule: %w", err)
	}

	if !rule.IsActive {
		return fmt.Errorf("rate rule for %q is already inactive", rule.VehicleType)
	}

	now := time.Now()
	rule.IsActive = false
	if rule.EffectiveTo == nil || rule.EffectiveTo.After(now) {
		rule.EffectiveTo = &now
	}

	if err := s.rules.Update(ctx, rule); err != nil {
		return fmt.Errorf("failed to deactivate rate rule: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionDeactivateRateRule, rule.ID.String(),
		rule.VehicleType+" "+rule.BaseRate.StringFixed(2), map[string]string{"deactivated_id": id})

	return nil
}

// ValidateCompleteSystem runs the per-rule battery over every active rule
// plus the cross-rule checks (type uniqueness, size-based rate ordering).
func (s *rateService) ValidateCompleteSystem(ctx context.Context) (ValidationReport, error) {
	rules, err := s.rules.ListActive(ctx, time.Now())
	if err != nil {
		return ValidationReport{}, fmt.Errorf("failed to fetch active rules: %w", err)
	}

	report := ValidationReport{IsValid: true}
	for _, rule := range rules {
		partial := ValidateRateRule(rule)
		report.Errors = append(report.Errors, partial.Errors...)
		report.Warnings = append(report.Warnings, partial.Warnings...)
		report.Suggestions = append(report.Suggestions, partial.Suggestions...)
		if !partial.IsValid {
			report.IsValid = false
		}
	}
	validateCrossRules(rules, &report)
	return report, nil
}

// --- Helpers ---

func (s *rateService) checkUniqueness(ctx context.Context, rule model.RateRule, excludeID *uuid.UUID, report *ValidationReport) error {
	count, err := s.rules.CountActiveOverlapping(ctx, rule.VehicleType, rule.EffectiveFrom, rule.EffectiveTo, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check rule overlap: %w", err)
	}
	if count > 0 {
		report.add(&ValidationIssue{
			Rule:       "vehicle_type_unique",
			Severity:   SeverityError,
			Message:    fmt.Sprintf("an active rule for %q already covers part of this effective window", rule.VehicleType),
			Suggestion: "Deactivate the existing rule first, or adjust the effective dates",
		})
	}
	return nil
}

func ruleFromRequest(req RateRuleRequest) (model.RateRule, error) {
	baseRate, err := decimal.NewFromString(req.BaseRate)
	if err != nil {
		return model.RateRule{}, fmt.Errorf("invalid base rate: %w", err)
	}

	minimumCharge := baseRate
	if req.MinimumCharge != "" {
		if minimumCharge, err = decimal.NewFromString(req.MinimumCharge); err != nil {
			return model.RateRule{}, fmt.Errorf("invalid minimum charge: %w", err)
		}
	}

	penaltyRate, _ := decimal.NewFromString(model.DefaultPenaltyMultiplier)
	if req.OverstayPenaltyRate != "" {
		if penaltyRate, err = decimal.NewFromString(req.OverstayPenaltyRate); err != nil {
			return model.RateRule{}, fmt.Errorf("invalid overstay penalty rate: %w", err)
		}
	}

	discount := decimal.Zero
	if req.DiscountPercent != "" {
		if discount, err = decimal.NewFromString(req.DiscountPercent); err != nil {
			return model.RateRule{}, fmt.Errorf("invalid discount percent: %w", err)
		}
	}

	effectiveFrom, err := time.Parse("2006-01-02", req.EffectiveFrom)
	if err != nil {
		return model.RateRule{}, fmt.Errorf("invalid effective_from date format (expected YYYY-MM-DD): %w", err)
	}

	var effectiveTo *time.Time
	if req.EffectiveTo != "" {
		t, err := time.Parse("2006-01-02", req.EffectiveTo)
		if err != nil {
			return model.RateRule{}, fmt.Errorf("invalid effective_to date format (expected YYYY-MM-DD): %w", err)
		}
		effectiveTo = &t
	}

	roundingRule := req.RoundingRule
	if roundingRule == "" {
		roundingRule = model.RoundingUp
	}
	penaltyType := req.PenaltyType
	if penaltyType == "" {
		penaltyType = model.PenaltyTypeMultiplier
	}
	threshold := req.OverstayThresholdHours
	if threshold == 0 {
		threshold = model.DefaultOverstayThresholdHours
	}

	return model.RateRule{
		VehicleType:            req.VehicleType,
		BaseRate:               baseRate,
		MinimumCharge:          minimumCharge,
		RoundingRule:           roundingRule,
		OverstayThresholdHours: threshold,
		PenaltyType:            penaltyType,
		OverstayPenaltyRate:    penaltyRate,
		DiscountPercent:        discount,
		EffectiveFrom:          effectiveFrom,
		EffectiveTo:            effectiveTo,
		IsActive:               true,
		Description:            req.Description,
	}, nil
}

func toRateRuleResponse(r model.RateRule) RateRuleResponse {
	resp := RateRuleResponse{
		ID:                     r.ID.String(),
		VehicleType:            r.VehicleType,
		BaseRate:               r.BaseRate.StringFixed(2),
		MinimumCharge:          r.MinimumCharge.StringFixed(2),
		RoundingRule:           r.RoundingRule,
		OverstayThresholdHours: r.OverstayThresholdHours,
		PenaltyType:            r.PenaltyType,
		OverstayPenaltyRate:    r.OverstayPenaltyRate.StringFixed(4),
		DiscountPercent:        r.DiscountPercent.StringFixed(2),
		EffectiveFrom:          r.EffectiveFrom.Format("2006-01-02"),
		IsActive:               r.IsActive,
		Description:            r.Description,
		CreatedAt:              r.CreatedAt.Format(time.RFC3339),
	}
	if r.EffectiveTo != nil {
		s := r.EffectiveTo.Format("2006-01-02")
		resp.EffectiveTo = &s
	}
	return resp
}

func (s *rateService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
	writeAuditLog(ctx, s.audit, userID, action, entityID, entityName, details)
}
