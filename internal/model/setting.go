package model

import (
	"time"

	"github.com/google/uuid"
)

// Well-known setting keys
const (
	SettingFacilityName        = "facility_name"
	SettingCurrencySymbol      = "currency_symbol"
	SettingOverstayThresholdHr = "overstay_threshold_hours"
	SettingReportCacheEnabled  = "report_cache_enabled"
	SettingWeekStart           = "week_start"
)

// Setting is one key/value configuration row editable by administrators
type Setting struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Key       string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedBy string    `gorm:"type:varchar(255)" json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultSettings returns the rows seeded into an empty settings table
func DefaultSettings() []Setting {
	return []Setting{
		{Key: SettingFacilityName, Value: "Parking Facility"},
		{Key: SettingCurrencySymbol, Value: "Rs."},
		{Key: SettingOverstayThresholdHr, Value: "24"},
		{Key: SettingReportCacheEnabled, Value: "true"},
		{Key: SettingWeekStart, Value: "Monday"},
	}
}
