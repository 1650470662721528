package repository

import (
	"context"

	"github.com/AniketAku/parking-management-app--sub001/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ShiftRepository interface {
	Create(ctx context.Context, shift *model.Shift) error
	Update(ctx context.Context, shift *model.Shift) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Shift, error)
	FindOpenByOperator(ctx context.Context, operatorID uuid.UUID) (*model.Shift, error)
	List(ctx context.Context, page, limit int) ([]model.Shift, int64, error)
	CashCollected(ctx context.Context, shiftID uuid.UUID) (decimal.Decimal, error)
}

type shiftRepository struct {
	db *gorm.DB
}

func NewShiftRepository(db *gorm.DB) ShiftRepository {
	return &shiftRepository{db: db}
}

func (r *shiftRepository) Create(ctx context.Context, shift *model.Shift) error {
	return GetDB(ctx, r.db).Create(shift).Error
}

func (r *shiftRepository) Update(ctx context.Context, shift *model.Shift) error {
	return GetDB(ctx, r.db).Save(shift).Error
}

func (r *shiftRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	var shift model.Shift
	if err := GetDB(ctx, r.db).First(&shift, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shift, nil
}

// FindOpenByOperator enforces the one-open-shift-per-operator rule and
// backs the active-shift lookup.
func (r *shiftRepository) FindOpenByOperator(ctx context.Context, operatorID uuid.UUID) (*model.Shift, error) {
	var shift model.Shift
	if err := GetDB(ctx, r.db).
		Where("operator_id = ? AND status = ?", operatorID, model.ShiftOpen).
		Order("opened_at DESC").
		First(&shift).Error; err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *shiftRepository) List(ctx context.Context, page, limit int) ([]model.Shift, int64, error) {
	var shifts []model.Shift
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Shift{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Operator").Order("opened_at desc").Offset(offset).Limit(limit).Find(&shifts).Error; err != nil {
		return nil, 0, err
	}

	return shifts, total, nil
}

// CashCollected sums the cash fees taken against a shift, the basis of
// the expected-drawer figure at close.
func (r *shiftRepository) CashCollected(ctx context.Context, shiftID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := GetDB(ctx, r.db).Model(&model.ParkingEntry{}).
		Select("COALESCE(SUM(parking_fee), 0) as total").
		Where("shift_id = ? AND payment_status = ? AND payment_type = ?",
			shiftID, model.PaymentPaid, model.PaymentTypeCash).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}
