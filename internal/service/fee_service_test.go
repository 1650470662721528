package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AniketAku/parking-management-app--sub001/internal/model"
	"github.com/AniketAku/parking-management-app--sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeRateRuleRepo serves rules from memory keyed by vehicle type
type fakeRateRuleRepo struct {
	rules map[string]*model.RateRule
}

func newFakeRateRuleRepo(rules ...*model.RateRule) *fakeRateRuleRepo {
	m := make(map[string]*model.RateRule)
	for _, r := range rules {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		m[r.VehicleType] = r
	}
	return &fakeRateRuleRepo{rules: m}
}

func (f *fakeRateRuleRepo) Create(ctx context.Context, rule *model.RateRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	f.rules[rule.VehicleType] = rule
	return nil
}

func (f *fakeRateRuleRepo) Update(ctx context.Context, rule *model.RateRule) error {
	f.rules[rule.VehicleType] = rule
	return nil
}

func (f *fakeRateRuleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.RateRule, error) {
	for _, r := range f.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRateRuleRepo) List(ctx context.Context, page, limit int) ([]model.RateRule, int64, error) {
	var out []model.RateRule
	for _, r := range f.rules {
		out = append(out, *r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRateRuleRepo) ListActive(ctx context.Context, at time.Time) ([]model.RateRule, error) {
	var out []model.RateRule
	for _, r := range f.rules {
		if r.IsActive {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRateRuleRepo) FindActiveForType(ctx context.Context, vehicleType string, at time.Time) (*model.RateRule, error) {
	r, ok := f.rules[vehicleType]
	if !ok || !r.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeRateRuleRepo) CountActiveOverlapping(ctx context.Context, vehicleType string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error) {
	r, ok := f.rules[vehicleType]
	if !ok || !r.IsActive {
		return 0, nil
	}
	if excludeID != nil && r.ID == *excludeID {
		return 0, nil
	}
	return 1, nil
}

func (f *fakeRateRuleRepo) SeedDefaults(ctx context.Context) error { return nil }

var _ repository.RateRuleRepository = (*fakeRateRuleRepo)(nil)

func activeRule(vehicleType string, rate int64) *model.RateRule {
	return &model.RateRule{
		ID:                     uuid.New(),
		VehicleType:            vehicleType,
		BaseRate:               decimal.NewFromInt(rate),
		MinimumCharge:          decimal.NewFromInt(rate),
		RoundingRule:           model.RoundingUp,
		OverstayThresholdHours: model.DefaultOverstayThresholdHours,
		PenaltyType:            model.PenaltyTypeMultiplier,
		OverstayPenaltyRate:    decimal.RequireFromString(model.DefaultPenaltyMultiplier),
		EffectiveFrom:          time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:               true,
	}
}

func mustEqual(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestCalculateFeeDayBoundaries(t *testing.T) {
	ctx := context.Background()
	svc := NewFeeService(newFakeRateRuleRepo(activeRule(model.VehicleTypeFourWheeler, 100)))
	entry := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		stay      time.Duration
		wantDays  int64
		wantTotal string
	}{
		{"one second", time.Second, 1, "100"},
		{"exactly 24h", 24 * time.Hour, 1, "100"},
		{"24h plus one second", 24*time.Hour + time.Second, 2, "250"}, // 2 days + overstay penalty 100*1*0.5
		{"exactly 48h", 48 * time.Hour, 2, "250"},                    // penalty day ceil(24h/24h)=1
		{"two and a half days", 60 * time.Hour, 3, "400"},            // 3 days + 100*2*0.5
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.CalculateFee(ctx, model.VehicleTypeFourWheeler, entry, entry.Add(tc.stay))
			if err != nil {
				t.Fatalf("CalculateFee: %v", err)
			}
			if got.CalculatedDays != tc.wantDays {
				t.Errorf("days: got %d, want %d", got.CalculatedDays, tc.wantDays)
			}
			mustEqual(t, got.TotalFee, tc.wantTotal)
		})
	}
}

func TestCalculateFeeInvalidDuration(t *testing.T) {
	ctx := context.Background()
	svc := NewFeeService(newFakeRateRuleRepo(activeRule(model.VehicleTypeTwoWheeler, 50)))
	at := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	if _, err := svc.CalculateFee(ctx, model.VehicleTypeTwoWheeler, at, at); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("zero duration: got %v, want ErrInvalidDuration", err)
	}
	if _, err := svc.CalculateFee(ctx, model.VehicleTypeTwoWheeler, at, at.Add(-time.Hour)); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("negative duration: got %v, want ErrInvalidDuration", err)
	}
}

func TestCalculateFeeFallbackRate(t *testing.T) {
	ctx := context.Background()
	svc := NewFeeService(newFakeRateRuleRepo()) // empty rule table
	entry := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	got, err := svc.CalculateFee(ctx, "Bulldozer", entry, entry.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	if !got.FallbackRate {
		t.Error("expected FallbackRate to be set")
	}
	if got.RuleID != nil {
		t.Errorf("expected nil RuleID on fallback, got %s", got.RuleID)
	}
	mustEqual(t, got.TotalFee, "100")
}

func TestCalculateFeeOverstayFlags(t *testing.T) {
	ctx := context.Background()
	svc := NewFeeService(newFakeRateRuleRepo(activeRule(model.VehicleTypeTrailer, 225)))
	entry := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	within, err := svc.CalculateFee(ctx, model.VehicleTypeTrailer, entry, entry.Add(23*time.Hour))
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	if within.IsOverstay {
		t.Error("23h stay flagged as overstay")
	}
	mustEqual(t, within.OverstayPenalty, "0")

	over, err := svc.CalculateFee(ctx, model.VehicleTypeTrailer, entry, entry.Add(25*time.Hour))
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	if !over.IsOverstay {
		t.Error("25h stay not flagged as overstay")
	}
	// 2 days * 225 + penalty 225*1*0.5
	mustEqual(t, over.TotalFee, "562.50")
}

func TestCalculateFeeFlatPenalty(t *testing.T) {
	ctx := context.Background()
	rule := activeRule(model.VehicleTypeSixWheeler, 150)
	rule.PenaltyType = model.PenaltyTypeFlat
	rule.OverstayPenaltyRate = decimal.NewFromInt(75)
	svc := NewFeeService(newFakeRateRuleRepo(rule))
	entry := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	got, err := svc.CalculateFee(ctx, model.VehicleTypeSixWheeler, entry, entry.Add(49*time.Hour))
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	// 3 days * 150 + flat 75, regardless of overstay length
	mustEqual(t, got.TotalFee, "525")
}

func TestCalculateFeeMinimumCharge(t *testing.T) {
	ctx := context.Background()
	rule := activeRule(model.VehicleTypeTwoWheeler, 50)
	rule.MinimumCharge = decimal.NewFromInt(80)
	svc := NewFeeService(newFakeRateRuleRepo(rule))
	entry := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	got, err := svc.CalculateFee(ctx, model.VehicleTypeTwoWheeler, entry, entry.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	if !got.MinimumApplied {
		t.Error("expected MinimumApplied")
	}
	mustEqual(t, got.TotalFee, "80")
}

func TestCalculateFeeDiscount(t *testing.T) {
	ctx := context.Background()
	rule := activeRule(model.VehicleTypeFourWheeler, 100)
	rule.DiscountPercent = decimal.NewFromInt(10)
	svc := NewFeeService(newFakeRateRuleRepo(rule))
	entry := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	got, err := svc.CalculateFee(ctx, model.VehicleTypeFourWheeler, entry, entry.Add(5*time.Hour))
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	mustEqual(t, got.DiscountAmount, "10")
	mustEqual(t, got.TotalFee, "90")
}

func TestCalculateFeeRoundingPolicies(t *testing.T) {
	ctx := context.Background()
	entry := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		rounding string
		stay     time.Duration
		wantDays int64
	}{
		{model.RoundingDown, 30 * time.Hour, 1},
		{model.RoundingDown, 20 * time.Hour, 1}, // clamps to one day minimum
		{model.RoundingNearest, 36 * time.Hour, 2},
		{model.RoundingNearest, 35 * time.Hour, 1},
	}
	for _, tc := range cases {
		rule := activeRule(model.VehicleTypeFourWheeler, 100)
		rule.RoundingRule = tc.rounding
		rule.OverstayThresholdHours = 1000 // keep penalties out of this test
		svc := NewFeeService(newFakeRateRuleRepo(rule))

		got, err := svc.CalculateFee(ctx, model.VehicleTypeFourWheeler, entry, entry.Add(tc.stay))
		if err != nil {
			t.Fatalf("CalculateFee(%s, %s): %v", tc.rounding, tc.stay, err)
		}
		if got.CalculatedDays != tc.wantDays {
			t.Errorf("%s %s: got %d days, want %d", tc.rounding, tc.stay, got.CalculatedDays, tc.wantDays)
		}
	}
}

func TestCalculateFeeIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewFeeService(newFakeRateRuleRepo(activeRule(model.VehicleTypeTrailer, 225)))
	entry := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	exit := entry.Add(37 * time.Hour)

	first, err := svc.CalculateFee(ctx, model.VehicleTypeTrailer, entry, exit)
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	second, err := svc.CalculateFee(ctx, model.VehicleTypeTrailer, entry, exit)
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	if !first.TotalFee.Equal(second.TotalFee) || first.CalculatedDays != second.CalculatedDays {
		t.Errorf("repeat calculation diverged: %s/%d vs %s/%d",
			first.TotalFee, first.CalculatedDays, second.TotalFee, second.CalculatedDays)
	}
}

func TestEstimateFee(t *testing.T) {
	ctx := context.Background()
	svc := NewFeeService(newFakeRateRuleRepo(activeRule(model.VehicleTypeTwoWheeler, 50)))
	at := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	fee, err := svc.EstimateFee(ctx, model.VehicleTypeTwoWheeler, at, 10)
	if err != nil {
		t.Fatalf("EstimateFee: %v", err)
	}
	mustEqual(t, fee, "50")

	if _, err := svc.EstimateFee(ctx, model.VehicleTypeTwoWheeler, at, 0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("zero hours: got %v, want ErrInvalidDuration", err)
	}
}
