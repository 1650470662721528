package repository

import (
	"context"
	"time"

	"github.com/AniketAku/parking-management-app--sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RateRuleRepository interface {
	Create(ctx context.Context, rule *model.RateRule) error
	Update(ctx context.Context, rule *model.RateRule) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.RateRule, error)
	List(ctx context.Context, page, limit int) ([]model.RateRule, int64, error)
	ListActive(ctx context.Context, at time.Time) ([]model.RateRule, error)
	FindActiveForType(ctx context.Context, vehicleType string, at time.Time) (*model.RateRule, error)
	CountActiveOverlapping(ctx context.Context, vehicleType string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error)
	SeedDefaults(ctx context.Context) error
}

type rateRuleRepository struct {
	db *gorm.DB
}

func NewRateRuleRepository(db *gorm.DB) RateRuleRepository {
	return &rateRuleRepository{db: db}
}

func (r *rateRuleRepository) Create(ctx context.Context, rule *model.RateRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *rateRuleRepository) Update(ctx context.Context, rule *model.RateRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *rateRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.RateRule, error) {
	var rule model.RateRule
	if err := GetDB(ctx, r.db).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *rateRuleRepository) List(ctx context.Context, page, limit int) ([]model.RateRule, int64, error) {
	var rules []model.RateRule
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.RateRule{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("vehicle_type asc, effective_from desc").Offset(offset).Limit(limit).Find(&rules).Error; err != nil {
		return nil, 0, err
	}

	return rules, total, nil
}

func (r *rateRuleRepository) ListActive(ctx context.Context, at time.Time) ([]model.RateRule, error) {
	var rules []model.RateRule
	if err := GetDB(ctx, r.db).
		Where("is_active = TRUE AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", at, at).
		Order("vehicle_type asc").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// FindActiveForType resolves the rule governing a vehicle type at the
// given instant. gorm.ErrRecordNotFound signals the caller to use the
// fallback rate.
func (r *rateRuleRepository) FindActiveForType(ctx context.Context, vehicleType string, at time.Time) (*model.RateRule, error) {
	var rule model.RateRule
	if err := GetDB(ctx, r.db).
		Where("vehicle_type = ? AND is_active = TRUE AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)",
			vehicleType, at, at).
		Order("effective_from DESC").
		First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// CountActiveOverlapping backs the at-most-one-active-rule-per-type
// invariant: a new or edited rule may not overlap another active rule
// for the same vehicle type.
func (r *rateRuleRepository) CountActiveOverlapping(ctx context.Context, vehicleType string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error) {
	query := GetDB(ctx, r.db).Model(&model.RateRule{}).
		Where("vehicle_type = ? AND is_active = TRUE", vehicleType)

	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	if to != nil {
		query = query.Where("effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", *to, from)
	} else {
		query = query.Where("(effective_to IS NULL OR effective_to >= ?)", from)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SeedDefaults installs the legacy rate schedule when the table is empty,
// so a fresh deployment can bill from the first vehicle.
func (r *rateRuleRepository) SeedDefaults(ctx context.Context) error {
	db := GetDB(ctx, r.db)

	var count int64
	if err := db.Model(&model.RateRule{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	rules := model.DefaultRateRules(time.Now().Truncate(24 * time.Hour))
	return db.Create(&rules).Error
}
