package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionVehicleCheckIn  = "VEHICLE_CHECK_IN"
	ActionVehicleCheckOut = "VEHICLE_CHECK_OUT"

	ActionCreateRateRule     = "CREATE_RATE_RULE"
	ActionUpdateRateRule     = "UPDATE_RATE_RULE"
	ActionDeactivateRateRule = "DEACTIVATE_RATE_RULE"

	ActionOpenShift  = "OPEN_SHIFT"
	ActionCloseShift = "CLOSE_SHIFT"

	ActionUpdateSetting = "UPDATE_SETTING"
)

// AuditLog tracks Who, What, and When for money-affecting changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for automated actions
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
