package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/AniketAku/parking-management-app--sub001/internal/cache"
	"github.com/AniketAku/parking-management-app--sub001/internal/model"
	"github.com/AniketAku/parking-management-app--sub001/internal/repository"
)

var ErrUnknownSettingKey = errors.New("unknown setting key")

// settingTTL keeps repeated reads (every check-out consults the overstay
// threshold) off the database without making edits feel stale.
const settingTTL = 30 * time.Second

// SettingService exposes the admin-editable configuration rows plus
// typed accessors with safe defaults for the keys other services consume.
type SettingService interface {
	ListSettings(ctx context.Context) ([]model.Setting, error)
	UpdateSetting(ctx context.Context, key, value, userID string) (*model.Setting, error)

	FacilityName(ctx context.Context) string
	CurrencySymbol(ctx context.Context) string
	OverstayThresholdHours(ctx context.Context) int
	ReportCacheEnabled(ctx context.Context) bool
	WeekStart(ctx context.Context) time.Weekday
}

type settingService struct {
	settings repository.SettingRepository
	audit    repository.AuditRepository
	cache    *cache.Store[string, string]
}

func NewSettingService(settings repository.SettingRepository, audit repository.AuditRepository) SettingService {
	return &settingService{
		settings: settings,
		audit:    audit,
		cache:    cache.New[string, string](),
	}
}

func (s *settingService) ListSettings(ctx context.Context) ([]model.Setting, error) {
	return s.settings.List(ctx)
}

func (s *settingService) UpdateSetting(ctx context.Context, key, value, userID string) (*model.Setting, error) {
	if err := validateSetting(key, value); err != nil {
		return nil, err
	}

	setting := &model.Setting{Key: key, Value: value, UpdatedBy: userID}
	if err := s.settings.Upsert(ctx, setting); err != nil {
		return nil, fmt.Errorf("failed to update setting %s: %w", key, err)
	}
	s.cache.Invalidate(key)

	s.writeAudit(ctx, userID, model.ActionUpdateSetting, key, key, map[string]string{"value": value})
	return setting, nil
}

// validateSetting rejects unknown keys and malformed values before they
// can poison the typed accessors.
func validateSetting(key, value string) error {
	switch key {
	case model.SettingFacilityName, model.SettingCurrencySymbol:
		if value == "" {
			return fmt.Errorf("setting %s must not be empty", key)
		}
	case model.SettingOverstayThresholdHr:
		hours, err := strconv.Atoi(value)
		if err != nil || hours <= 0 {
			return fmt.Errorf("setting %s must be a positive integer, got %q", key, value)
		}
	case model.SettingReportCacheEnabled:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("setting %s must be a boolean, got %q", key, value)
		}
	case model.SettingWeekStart:
		if value != "Monday" && value != "Sunday" {
			return fmt.Errorf("setting %s must be Monday or Sunday, got %q", key, value)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSettingKey, key)
	}
	return nil
}

// --- Typed accessors ---
// All of them degrade to the seeded default rather than failing the
// caller; a missing settings row must never block a check-out.

func (s *settingService) FacilityName(ctx context.Context) string {
	return s.value(ctx, model.SettingFacilityName, "Parking Facility")
}

func (s *settingService) CurrencySymbol(ctx context.Context) string {
	return s.value(ctx, model.SettingCurrencySymbol, "Rs.")
}

func (s *settingService) OverstayThresholdHours(ctx context.Context) int {
	raw := s.value(ctx, model.SettingOverstayThresholdHr, "24")
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return model.DefaultOverstayThresholdHours
	}
	return hours
}

func (s *settingService) ReportCacheEnabled(ctx context.Context) bool {
	raw := s.value(ctx, model.SettingReportCacheEnabled, "true")
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return enabled
}

// WeekStart is the weekday week-granularity report buckets begin on.
// Only Monday and Sunday pass validation; anything else reads as Monday.
func (s *settingService) WeekStart(ctx context.Context) time.Weekday {
	if s.value(ctx, model.SettingWeekStart, "Monday") == "Sunday" {
		return time.Sunday
	}
	return time.Monday
}

func (s *settingService) value(ctx context.Context, key, fallback string) string {
	if v, ok := s.cache.Get(key); ok {
		return v
	}

	setting, err := s.settings.Get(ctx, key)
	if err != nil {
		log.Printf("settings: read %s failed (%v), using default %q", key, err, fallback)
		return fallback
	}

	s.cache.Set(key, setting.Value, settingTTL)
	return setting.Value
}

func (s *settingService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
	writeAuditLog(ctx, s.audit, userID, action, entityID, entityName, details)
}
