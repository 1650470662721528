package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shift status enum constants
const (
	ShiftOpen   = "Open"
	ShiftClosed = "Closed"
)

// Shift is one operator's cash session. Closing a shift reconciles the
// declared cash drawer against the cash fees collected during the shift.
type Shift struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OperatorID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"operator_id"`
	Operator     *User           `gorm:"foreignKey:OperatorID" json:"operator,omitempty"`
	OpenedAt     time.Time       `gorm:"not null;index" json:"opened_at"`
	ClosedAt     *time.Time      `json:"closed_at"`
	OpeningFloat decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"opening_float"`
	DeclaredCash decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"declared_cash"`
	ExpectedCash decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"expected_cash"`
	CashVariance decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cash_variance"`
	Status       string          `gorm:"type:varchar(10);not null;default:'Open';index" json:"status"`
	Notes        string          `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
