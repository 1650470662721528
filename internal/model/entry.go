package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Domain-level entry statuses. The storage schema only knows
// Parked/Exited; see StorageStatus.
const (
	StatusParked   = "Parked"
	StatusOverstay = "Overstay"
	StatusExited   = "Exited"
)

// Domain-level payment states. The storage schema only knows
// Paid/Unpaid/Pending/Refunded; see StoragePaymentStatus.
const (
	PaymentPaid     = "Paid"
	PaymentUnpaid   = "Unpaid"
	PaymentPending  = "Pending"
	PaymentPartial  = "Partial"
	PaymentFailed   = "Failed"
	PaymentRefunded = "Refunded"
)

// PaymentType enum constants
const (
	PaymentTypeCash   = "Cash"
	PaymentTypeCard   = "Card"
	PaymentTypeUPI    = "UPI"
	PaymentTypeCredit = "Credit"
	PaymentTypeNA     = "N/A"
)

// statusToStorage collapses domain statuses onto the external schema's
// CHECK (status IN ('Parked','Exited')). Overstay is a derived view of a
// still-parked vehicle, so it stores as Parked. This mapping is a
// compatibility shim with the external schema; do not extend the storage
// enum without migrating that schema.
var statusToStorage = map[string]string{
	StatusParked:   StatusParked,
	StatusOverstay: StatusParked,
	StatusExited:   StatusExited,
}

// paymentToStorage collapses domain payment states onto the external
// schema's CHECK (payment_status IN ('Paid','Unpaid','Pending','Refunded')).
// Partial and Failed both store as Pending.
var paymentToStorage = map[string]string{
	PaymentPaid:     PaymentPaid,
	PaymentUnpaid:   PaymentUnpaid,
	PaymentPending:  PaymentPending,
	PaymentPartial:  PaymentPending,
	PaymentFailed:   PaymentPending,
	PaymentRefunded: PaymentRefunded,
}

// StorageStatus maps a domain status to its storage enum value.
// Unknown statuses store as Parked, the schema default.
func StorageStatus(status string) string {
	if s, ok := statusToStorage[status]; ok {
		return s
	}
	return StatusParked
}

// StoragePaymentStatus maps a domain payment state to its storage enum value.
// Unknown states store as Pending.
func StoragePaymentStatus(status string) string {
	if s, ok := paymentToStorage[status]; ok {
		return s
	}
	return PaymentPending
}

// NormalizeVehicleNumber uppercases and trims a plate number before it is
// stored or matched.
func NormalizeVehicleNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

// ParkingEntry is one vehicle visit: created at the gate on entry,
// completed on exit with the calculated fee attached.
type ParkingEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Serial        int64           `gorm:"uniqueIndex;not null" json:"serial"` // per-facility ticket sequence
	TransportName string          `gorm:"type:varchar(255);not null;index" json:"transport_name"`
	VehicleType   string          `gorm:"type:varchar(50);not null;index" json:"vehicle_type"`
	VehicleNumber string          `gorm:"type:varchar(20);not null;index" json:"vehicle_number"` // stored uppercase
	DriverName    string          `gorm:"type:varchar(255);not null;default:'N/A'" json:"driver_name"`
	DriverPhone   string          `gorm:"type:varchar(20);not null;default:'N/A'" json:"driver_phone"`
	Notes         string          `gorm:"type:text;not null;default:'N/A'" json:"notes"`
	EntryTime     time.Time       `gorm:"not null;index" json:"entry_time"`
	ExitTime      *time.Time      `gorm:"index" json:"exit_time"`
	Status        string          `gorm:"type:varchar(10);not null;default:'Parked';index" json:"status"` // storage enum: Parked | Exited
	ParkingFee    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"parking_fee"`
	PaymentStatus string          `gorm:"type:varchar(10);not null;default:'Unpaid'" json:"payment_status"` // storage enum: Paid | Unpaid | Pending | Refunded
	PaymentType   string          `gorm:"type:varchar(20);not null;default:'N/A'" json:"payment_type"`
	ShiftID       *uuid.UUID      `gorm:"type:uuid;index" json:"shift_id"`
	CreatedBy     string          `gorm:"type:varchar(255);not null;default:'System'" json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// DurationHours returns the stay length in hours. Open entries are
// measured against the supplied clock time.
func (e *ParkingEntry) DurationHours(now time.Time) float64 {
	end := now
	if e.ExitTime != nil {
		end = *e.ExitTime
	}
	return end.Sub(e.EntryTime).Hours()
}

// IsOverstayed reports whether a still-parked vehicle has exceeded the
// overstay threshold.
func (e *ParkingEntry) IsOverstayed(now time.Time, thresholdHours int) bool {
	return e.Status == StatusParked && e.ExitTime == nil &&
		e.DurationHours(now) > float64(thresholdHours)
}
