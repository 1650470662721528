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

var ErrEntryStillParked = errors.New("parking entry has not checked out yet")

// TicketPayload is the print-ready entry ticket. The server renders the
// content; layout belongs to the printing client.
type TicketPayload struct {
	FacilityName  string    `json:"facility_name"`
	TicketNumber  int64     `json:"ticket_number"`
	VehicleNumber string    `json:"vehicle_number"`
	VehicleType   string    `json:"vehicle_type"`
	TransportName string    `json:"transport_name"`
	DriverName    string    `json:"driver_name"`
	EntryTime     time.Time `json:"entry_time"`
	PrintedAt     time.Time `json:"printed_at"`
}

// ReceiptLine is one labeled amount on the exit receipt
type ReceiptLine struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// ReceiptPayload is the print-ready exit receipt with the itemized fee
type ReceiptPayload struct {
	FacilityName   string          `json:"facility_name"`
	CurrencySymbol string          `json:"currency_symbol"`
	TicketNumber   int64           `json:"ticket_number"`
	VehicleNumber  string          `json:"vehicle_number"`
	VehicleType    string          `json:"vehicle_type"`
	EntryTime      time.Time       `json:"entry_time"`
	ExitTime       time.Time       `json:"exit_time"`
	DurationHours  float64         `json:"duration_hours"`
	BilledDays     int64           `json:"billed_days"`
	Lines          []ReceiptLine   `json:"lines"`
	Total          decimal.Decimal `json:"total"` // the fee actually charged
	PaymentType    string          `json:"payment_type"`
	PaymentStatus  string          `json:"payment_status"`
	PrintedAt      time.Time       `json:"printed_at"`
}

// TicketService assembles print payloads for gate tickets and exit
// receipts. Reprinting is allowed; payloads are derived, never stored.
type TicketService interface {
	EntryTicket(ctx context.Context, entryID string) (*TicketPayload, error)
	ExitReceipt(ctx context.Context, entryID string) (*ReceiptPayload, error)
}

type ticketService struct {
	entries  repository.EntryRepository
	fees     FeeService
	settings SettingService
	now      func() time.Time
}

func NewTicketService(entries repository.EntryRepository, fees FeeService, settings SettingService) TicketService {
	return &ticketService{
		entries:  entries,
		fees:     fees,
		settings: settings,
		now:      time.Now,
	}
}

func (s *ticketService) EntryTicket(ctx context.Context, entryID string) (*TicketPayload, error) {
	entry, err := s.loadEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	return &TicketPayload{
		FacilityName:  s.settings.FacilityName(ctx),
		TicketNumber:  entry.Serial,
		VehicleNumber: entry.VehicleNumber,
		VehicleType:   entry.VehicleType,
		TransportName: entry.TransportName,
		DriverName:    entry.DriverName,
		EntryTime:     entry.EntryTime,
		PrintedAt:     s.now(),
	}, nil
}

func (s *ticketService) ExitReceipt(ctx context.Context, entryID string) (*ReceiptPayload, error) {
	entry, err := s.loadEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.ExitTime == nil {
		return nil, fmt.Errorf("%w: ticket #%d", ErrEntryStillParked, entry.Serial)
	}

	// Recompute the breakdown for itemization. The stored fee is
	// authoritative; any difference (a manual override at the gate)
	// shows as an adjustment line.
	fee, err := s.fees.CalculateFee(ctx, entry.VehicleType, entry.EntryTime, *entry.ExitTime)
	if err != nil {
		return nil, err
	}

	lines := []ReceiptLine{
		{Label: fmt.Sprintf("Parking (%d day(s))", fee.CalculatedDays), Amount: fee.BaseFee},
	}
	if fee.OverstayPenalty.IsPositive() {
		lines = append(lines, ReceiptLine{Label: "Overstay penalty", Amount: fee.OverstayPenalty})
	}
	if fee.DiscountAmount.IsPositive() {
		lines = append(lines, ReceiptLine{Label: "Discount", Amount: fee.DiscountAmount.Neg()})
	}
	if adj := entry.ParkingFee.Sub(fee.TotalFee); !adj.IsZero() {
		lines = append(lines, ReceiptLine{Label: "Adjustment", Amount: adj})
	}

	return &ReceiptPayload{
		FacilityName:   s.settings.FacilityName(ctx),
		CurrencySymbol: s.settings.CurrencySymbol(ctx),
		TicketNumber:   entry.Serial,
		VehicleNumber:  entry.VehicleNumber,
		VehicleType:    entry.VehicleType,
		EntryTime:      entry.EntryTime,
		ExitTime:       *entry.ExitTime,
		DurationHours:  fee.DurationHours,
		BilledDays:     fee.CalculatedDays,
		Lines:          lines,
		Total:          entry.ParkingFee,
		PaymentType:    entry.PaymentType,
		PaymentStatus:  entry.PaymentStatus,
		PrintedAt:      s.now(),
	}, nil
}

func (s *ticketService) loadEntry(ctx context.Context, entryID string) (*model.ParkingEntry, error) {
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
	return entry, nil
}
