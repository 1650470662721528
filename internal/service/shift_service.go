package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AniketAku/parking-management-app--sub001/internal/cache"
	"github.com/AniketAku/parking-management-app--sub001/internal/model"
	"github.com/AniketAku/parking-management-app--sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrShiftAlreadyOpen   = errors.New("operator already has an open shift")
	ErrShiftNotFound      = errors.New("shift not found")
	ErrShiftAlreadyClosed = errors.New("shift already closed")
	ErrNoOpenShift        = errors.New("operator has no open shift")
)

// activeShiftTTL bounds staleness of the cached open-shift lookup; every
// gate movement hits it, so it stays short and is invalidated explicitly
// on open/close.
const activeShiftTTL = 15 * time.Second

type OpenShiftRequest struct {
	OpeningFloat string `json:"opening_float"` // decimal string; cash in the drawer at start
	Notes        string `json:"notes"`
}

type CloseShiftRequest struct {
	DeclaredCash string `json:"declared_cash" binding:"required"` // decimal string; counted drawer at close
	Notes        string `json:"notes"`
}

// ShiftCloseResult is the reconciliation summary handed back at close
type ShiftCloseResult struct {
	Shift         *model.Shift    `json:"shift"`
	CashCollected decimal.Decimal `json:"cash_collected"`
	ExpectedCash  decimal.Decimal `json:"expected_cash"`
	CashVariance  decimal.Decimal `json:"cash_variance"` // declared minus expected; negative means short
}

// ShiftService manages operator cash sessions. Closing a shift
// reconciles the counted drawer against opening float plus the cash fees
// collected on entries linked to the shift.
type ShiftService interface {
	OpenShift(ctx context.Context, req OpenShiftRequest, userID string) (*model.Shift, error)
	CloseShift(ctx context.Context, shiftID string, req CloseShiftRequest, userID string) (*ShiftCloseResult, error)
	GetShift(ctx context.Context, shiftID string) (*model.Shift, error)
	ListShifts(ctx context.Context, page, limit int) ([]model.Shift, int64, error)
	ActiveShift(ctx context.Context, userID string) (*model.Shift, error)
}

type shiftService struct {
	shifts repository.ShiftRepository
	audit  repository.AuditRepository
	tx     repository.TransactionManager
	active *cache.Store[uuid.UUID, *model.Shift]
	now    func() time.Time
}

func NewShiftService(shifts repository.ShiftRepository, audit repository.AuditRepository, tx repository.TransactionManager) ShiftService {
	return &shiftService{
		shifts: shifts,
		audit:  audit,
		tx:     tx,
		active: cache.New[uuid.UUID, *model.Shift](),
		now:    time.Now,
	}
}

func (s *shiftService) OpenShift(ctx context.Context, req OpenShiftRequest, userID string) (*model.Shift, error) {
	operatorID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid operator id: %w", err)
	}

	openingFloat := decimal.Zero
	if req.OpeningFloat != "" {
		openingFloat, err = decimal.NewFromString(req.OpeningFloat)
		if err != nil || openingFloat.IsNegative() {
			return nil, fmt.Errorf("invalid opening float %q", req.OpeningFloat)
		}
	}

	existing, err := s.shifts.FindOpenByOperator(ctx, operatorID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check for open shift: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: opened at %s", ErrShiftAlreadyOpen, existing.OpenedAt.Format(time.RFC3339))
	}

	shift := &model.Shift{
		OperatorID:   operatorID,
		OpenedAt:     s.now(),
		OpeningFloat: openingFloat.Round(2),
		Status:       model.ShiftOpen,
		Notes:        req.Notes,
	}
	if err := s.shifts.Create(ctx, shift); err != nil {
		return nil, fmt.Errorf("failed to open shift: %w", err)
	}
	s.active.Invalidate(operatorID)

	writeAuditLog(ctx, s.audit, userID, model.ActionOpenShift, shift.ID.String(), "", map[string]interface{}{
		"opening_float": shift.OpeningFloat,
		"opened_at":     shift.OpenedAt,
	})
	return shift, nil
}

func (s *shiftService) CloseShift(ctx context.Context, shiftID string, req CloseShiftRequest, userID string) (*ShiftCloseResult, error) {
	id, err := uuid.Parse(shiftID)
	if err != nil {
		return nil, fmt.Errorf("invalid shift id: %w", err)
	}
	declared, err := decimal.NewFromString(req.DeclaredCash)
	if err != nil || declared.IsNegative() {
		return nil, fmt.Errorf("invalid declared cash %q", req.DeclaredCash)
	}

	shift, err := s.shifts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, fmt.Errorf("failed to load shift: %w", err)
	}
	if shift.Status != model.ShiftOpen {
		return nil, ErrShiftAlreadyClosed
	}

	var collected decimal.Decimal
	closedAt := s.now()

	// Reconciliation and close run in one transaction so a cash payment
	// landing mid-close cannot split expected and variance.
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		collected, err = s.shifts.CashCollected(txCtx, shift.ID)
		if err != nil {
			return fmt.Errorf("failed to sum shift cash: %w", err)
		}

		shift.ClosedAt = &closedAt
		shift.DeclaredCash = declared.Round(2)
		shift.ExpectedCash = shift.OpeningFloat.Add(collected).Round(2)
		shift.CashVariance = shift.DeclaredCash.Sub(shift.ExpectedCash).Round(2)
		shift.Status = model.ShiftClosed
		if req.Notes != "" {
			shift.Notes = req.Notes
		}
		if err := s.shifts.Update(txCtx, shift); err != nil {
			return fmt.Errorf("failed to close shift: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.active.Invalidate(shift.OperatorID)

	writeAuditLog(ctx, s.audit, userID, model.ActionCloseShift, shift.ID.String(), "", map[string]interface{}{
		"closed_at":      closedAt,
		"cash_collected": collected,
		"declared_cash":  shift.DeclaredCash,
		"expected_cash":  shift.ExpectedCash,
		"cash_variance":  shift.CashVariance,
	})

	return &ShiftCloseResult{
		Shift:         shift,
		CashCollected: collected,
		ExpectedCash:  shift.ExpectedCash,
		CashVariance:  shift.CashVariance,
	}, nil
}

func (s *shiftService) GetShift(ctx context.Context, shiftID string) (*model.Shift, error) {
	id, err := uuid.Parse(shiftID)
	if err != nil {
		return nil, fmt.Errorf("invalid shift id: %w", err)
	}
	shift, err := s.shifts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}
	return shift, nil
}

func (s *shiftService) ListShifts(ctx context.Context, page, limit int) ([]model.Shift, int64, error) {
	return s.shifts.List(ctx, page, limit)
}

// ActiveShift returns the operator's open shift, served from a short
// cache since the gate consults it on every movement.
func (s *shiftService) ActiveShift(ctx context.Context, userID string) (*model.Shift, error) {
	operatorID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid operator id: %w", err)
	}

	if shift, ok := s.active.Get(operatorID); ok {
		return shift, nil
	}

	shift, err := s.shifts.FindOpenByOperator(ctx, operatorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoOpenShift
		}
		return nil, err
	}

	s.active.Set(operatorID, shift, activeShiftTTL)
	return shift, nil
}
