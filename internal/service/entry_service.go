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

var (
	ErrVehicleAlreadyParked = errors.New("vehicle already has an open parking entry")
	ErrEntryNotFound        = errors.New("parking entry not found")
	ErrEntryAlreadyExited   = errors.New("parking entry already checked out")
)

// EventBroadcaster pushes realtime gate events to connected dashboards.
// Delivery is fire-and-forget; a slow or absent listener never blocks
// the gate.
type EventBroadcaster interface {
	BroadcastEvent(event string, payload interface{})
}

const (
	EventVehicleEntry = "vehicle_entry"
	EventVehicleExit  = "vehicle_exit"
)

// serialConflictRetries bounds re-runs of the check-in transaction when
// two gates race to the same ticket serial.
const serialConflictRetries = 3

// CheckInRequest captures one vehicle arriving at the gate
type CheckInRequest struct {
	TransportName string     `json:"transport_name" binding:"required"`
	VehicleType   string     `json:"vehicle_type" binding:"required"`
	VehicleNumber string     `json:"vehicle_number" binding:"required"`
	DriverName    string     `json:"driver_name"`
	DriverPhone   string     `json:"driver_phone"`
	Notes         string     `json:"notes"`
	EntryTime     *time.Time `json:"entry_time"` // backdated entry; defaults to now
}

// CheckOutRequest completes a visit at the exit gate
type CheckOutRequest struct {
	ExitTime      *time.Time `json:"exit_time"` // defaults to now
	PaymentType   string     `json:"payment_type" binding:"required"`
	PaymentStatus string     `json:"payment_status"`
	FeeOverride   *string    `json:"fee_override"` // manual fee as decimal string; audited alongside the calculated fee
	Notes         string     `json:"notes"`
}

// CheckOutResult pairs the completed entry with the full fee breakdown
// so the receipt can itemize the charge.
type CheckOutResult struct {
	Entry *model.ParkingEntry  `json:"entry"`
	Fee   FeeCalculationResult `json:"fee"`
}

// EntryService is the gate workflow: check-in creates an open visit,
// check-out prices and closes it.
type EntryService interface {
	CheckIn(ctx context.Context, req CheckInRequest, userID string) (*model.ParkingEntry, error)
	CheckOut(ctx context.Context, entryID string, req CheckOutRequest, userID string) (*CheckOutResult, error)
	GetEntry(ctx context.Context, entryID string) (*model.ParkingEntry, error)
	ListEntries(ctx context.Context, filter repository.EntryFilter, page, limit int) ([]model.ParkingEntry, int64, error)
	ListParked(ctx context.Context) ([]model.ParkingEntry, error)
	ListOverstays(ctx context.Context) ([]model.ParkingEntry, error)
}

type entryService struct {
	entries  repository.EntryRepository
	shifts   repository.ShiftRepository
	audit    repository.AuditRepository
	fees     FeeService
	settings SettingService
	tx       repository.TransactionManager
	events   EventBroadcaster
	now      func() time.Time
}

func NewEntryService(
	entries repository.EntryRepository,
	shifts repository.ShiftRepository,
	audit repository.AuditRepository,
	fees FeeService,
	settings SettingService,
	tx repository.TransactionManager,
	events EventBroadcaster,
) EntryService {
	return &entryService{
		entries:  entries,
		shifts:   shifts,
		audit:    audit,
		fees:     fees,
		settings: settings,
		tx:       tx,
		events:   events,
		now:      time.Now,
	}
}

func (s *entryService) CheckIn(ctx context.Context, req CheckInRequest, userID string) (*model.ParkingEntry, error) {
	vehicleNumber := model.NormalizeVehicleNumber(req.VehicleNumber)
	if vehicleNumber == "" {
		return nil, errors.New("vehicle number is required")
	}
	if err := validVehicleType(req.VehicleType); err != nil {
		return nil, err
	}

	entryTime := s.now()
	if req.EntryTime != nil {
		entryTime = *req.EntryTime
	}

	// One open visit per plate. A vehicle that never checked out must be
	// resolved before it can enter again.
	existing, err := s.entries.FindOpenByVehicleNumber(ctx, vehicleNumber)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check for open entry: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s (ticket #%d)", ErrVehicleAlreadyParked, vehicleNumber, existing.Serial)
	}

	entry := &model.ParkingEntry{
		TransportName: req.TransportName,
		VehicleType:   req.VehicleType,
		VehicleNumber: vehicleNumber,
		DriverName:    orNA(req.DriverName),
		DriverPhone:   orNA(req.DriverPhone),
		Notes:         orNA(req.Notes),
		EntryTime:     entryTime,
		Status:        model.StorageStatus(model.StatusParked),
		ParkingFee:    decimal.Zero,
		PaymentStatus: model.StoragePaymentStatus(model.PaymentUnpaid),
		PaymentType:   model.PaymentTypeNA,
		CreatedBy:     orSystem(userID),
	}
	if shiftID := s.activeShiftID(ctx, userID); shiftID != nil {
		entry.ShiftID = shiftID
	}

	// Serial allocation reads MAX(serial)+1, so two gates can race to
	// the same number; the unique index rejects one insert and the
	// whole transaction is retried with a fresh serial.
	for attempt := 0; ; attempt++ {
		err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			serial, err := s.entries.NextSerial(txCtx)
			if err != nil {
				return fmt.Errorf("failed to allocate ticket serial: %w", err)
			}
			entry.Serial = serial
			if err := s.entries.Create(txCtx, entry); err != nil {
				return fmt.Errorf("failed to create parking entry: %w", err)
			}
			return nil
		})
		if err == nil {
			break
		}
		if attempt >= serialConflictRetries || !repository.IsDuplicateKey(err) {
			return nil, err
		}
	}

	s.writeAudit(ctx, userID, model.ActionVehicleCheckIn, entry.ID.String(), vehicleNumber, map[string]interface{}{
		"serial":       entry.Serial,
		"vehicle_type": entry.VehicleType,
		"entry_time":   entry.EntryTime,
	})
	s.broadcast(EventVehicleEntry, entry)
	return entry, nil
}

func (s *entryService) CheckOut(ctx context.Context, entryID string, req CheckOutRequest, userID string) (*CheckOutResult, error) {
	id, err := uuid.Parse(entryID)
	if err != nil {
		return nil, fmt.Errorf("invalid entry id: %w", err)
	}
	if err := validPaymentType(req.PaymentType); err != nil {
		return nil, err
	}

	entry, err := s.entries.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to load parking entry: %w", err)
	}
	if entry.ExitTime != nil || entry.Status == model.StatusExited {
		return nil, fmt.Errorf("%w: ticket #%d", ErrEntryAlreadyExited, entry.Serial)
	}

	exitTime := s.now()
	if req.ExitTime != nil {
		exitTime = *req.ExitTime
	}

	fee, err := s.fees.CalculateFee(ctx, entry.VehicleType, entry.EntryTime, exitTime)
	if err != nil {
		return nil, err
	}

	charged := fee.TotalFee
	if req.FeeOverride != nil {
		override, err := decimal.NewFromString(*req.FeeOverride)
		if err != nil || override.IsNegative() {
			return nil, fmt.Errorf("invalid fee override %q", *req.FeeOverride)
		}
		charged = override.Round(2)
	}

	paymentStatus := req.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = model.PaymentPaid
	}

	entry.ExitTime = &exitTime
	entry.Status = model.StorageStatus(model.StatusExited)
	entry.ParkingFee = charged
	entry.PaymentStatus = model.StoragePaymentStatus(paymentStatus)
	entry.PaymentType = req.PaymentType
	if req.Notes != "" {
		entry.Notes = req.Notes
	}
	if entry.ShiftID == nil {
		entry.ShiftID = s.activeShiftID(ctx, userID)
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.entries.Update(txCtx, entry); err != nil {
			return fmt.Errorf("failed to complete parking entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, userID, model.ActionVehicleCheckOut, entry.ID.String(), entry.VehicleNumber, map[string]interface{}{
		"serial":         entry.Serial,
		"exit_time":      exitTime,
		"calculated_fee": fee.TotalFee,
		"charged_fee":    charged,
		"fee_overridden": req.FeeOverride != nil,
		"payment_type":   entry.PaymentType,
		"payment_status": entry.PaymentStatus,
	})
	s.broadcast(EventVehicleExit, entry)

	return &CheckOutResult{Entry: entry, Fee: fee}, nil
}

func (s *entryService) GetEntry(ctx context.Context, entryID string) (*model.ParkingEntry, error) {
	id, err := uuid.Parse(entryID)
	if err != nil {
		return nil, fmt.Errorf("invalid entry id: %w", err)
	}
	entry, err := s.entries.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	s.markOverstay(ctx, entry)
	return entry, nil
}

func (s *entryService) ListEntries(ctx context.Context, filter repository.EntryFilter, page, limit int) ([]model.ParkingEntry, int64, error) {
	entries, total, err := s.entries.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}
	s.markOverstays(ctx, entries)
	return entries, total, nil
}

func (s *entryService) ListParked(ctx context.Context) ([]model.ParkingEntry, error) {
	entries, err := s.entries.ListParked(ctx)
	if err != nil {
		return nil, err
	}
	s.markOverstays(ctx, entries)
	return entries, nil
}

// ListOverstays returns still-parked vehicles past the overstay
// threshold, stamped with the derived Overstay status.
func (s *entryService) ListOverstays(ctx context.Context) ([]model.ParkingEntry, error) {
	threshold := s.settings.OverstayThresholdHours(ctx)
	cutoff := s.now().Add(-time.Duration(threshold) * time.Hour)

	entries, err := s.entries.ListParkedEnteredBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Status = model.StatusOverstay
	}
	return entries, nil
}

// markOverstay projects the derived Overstay status onto a loaded entry.
// The stored status stays Parked; Overstay exists only in API responses.
func (s *entryService) markOverstay(ctx context.Context, entry *model.ParkingEntry) {
	threshold := s.settings.OverstayThresholdHours(ctx)
	if entry.IsOverstayed(s.now(), threshold) {
		entry.Status = model.StatusOverstay
	}
}

func (s *entryService) markOverstays(ctx context.Context, entries []model.ParkingEntry) {
	threshold := s.settings.OverstayThresholdHours(ctx)
	now := s.now()
	for i := range entries {
		if entries[i].IsOverstayed(now, threshold) {
			entries[i].Status = model.StatusOverstay
		}
	}
}

// activeShiftID links a gate movement to the operator's open cash
// session. No open shift is fine; the movement just goes unattributed.
func (s *entryService) activeShiftID(ctx context.Context, userID string) *uuid.UUID {
	operatorID, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	shift, err := s.shifts.FindOpenByOperator(ctx, operatorID)
	if err != nil {
		return nil
	}
	return &shift.ID
}

func (s *entryService) broadcast(event string, entry *model.ParkingEntry) {
	if s.events != nil {
		s.events.BroadcastEvent(event, entry)
	}
}

func (s *entryService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
	writeAuditLog(ctx, s.audit, userID, action, entityID, entityName, details)
}

func validVehicleType(vehicleType string) error {
	switch vehicleType {
	case model.VehicleTypeTrailer, model.VehicleTypeSixWheeler,
		model.VehicleTypeFourWheeler, model.VehicleTypeTwoWheeler:
		return nil
	default:
		return fmt.Errorf("unknown vehicle type %q", vehicleType)
	}
}

func validPaymentType(paymentType string) error {
	switch paymentType {
	case model.PaymentTypeCash, model.PaymentTypeCard,
		model.PaymentTypeUPI, model.PaymentTypeCredit:
		return nil
	default:
		return fmt.Errorf("unknown payment type %q", paymentType)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orSystem(s string) string {
	if s == "" {
		return "System"
	}
	return s
}
