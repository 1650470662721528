package service

import (
	"context"
	"errors"
	"testing"

	"github.com/AniketAku/parking-management-app--sub001/internal/model"
	"github.com/AniketAku/parking-management-app--sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeAuditRepo records audit writes in memory. Shared by the service
// tests in this package.
type fakeAuditRepo struct {
	logs []model.AuditLog
}

var _ repository.AuditRepository = (*fakeAuditRepo)(nil)

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	f.logs = append(f.logs, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, action string, _, _ int) ([]model.AuditLog, int64, error) {
	var out []model.AuditLog
	for _, l := range f.logs {
		if action == "" || l.Action == action {
			out = append(out, l)
		}
	}
	return out, int64(len(out)), nil
}

// fakeTxManager runs the function directly; the services under test only
// rely on the callback being invoked with a context.
type fakeTxManager struct{}

var _ repository.TransactionManager = (*fakeTxManager)(nil)

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeShiftRepo struct {
	shifts        map[uuid.UUID]*model.Shift
	cash          decimal.Decimal
	findOpenCalls int
}

var _ repository.ShiftRepository = (*fakeShiftRepo)(nil)

func newFakeShiftRepo() *fakeShiftRepo {
	return &fakeShiftRepo{shifts: make(map[uuid.UUID]*model.Shift)}
}

func (f *fakeShiftRepo) Create(_ context.Context, shift *model.Shift) error {
	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	cp := *shift
	f.shifts[shift.ID] = &cp
	return nil
}

func (f *fakeShiftRepo) Update(_ context.Context, shift *model.Shift) error {
	cp := *shift
	f.shifts[shift.ID] = &cp
	return nil
}

func (f *fakeShiftRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Shift, error) {
	shift, ok := f.shifts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *shift
	return &cp, nil
}

func (f *fakeShiftRepo) FindOpenByOperator(_ context.Context, operatorID uuid.UUID) (*model.Shift, error) {
	f.findOpenCalls++
	for _, shift := range f.shifts {
		if shift.OperatorID == operatorID && shift.Status == model.ShiftOpen {
			cp := *shift
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeShiftRepo) List(_ context.Context, _, _ int) ([]model.Shift, int64, error) {
	var out []model.Shift
	for _, shift := range f.shifts {
		out = append(out, *shift)
	}
	return out, int64(len(out)), nil
}

func (f *fakeShiftRepo) CashCollected(_ context.Context, _ uuid.UUID) (decimal.Decimal, error) {
	return f.cash, nil
}

func newShiftServiceForTest(repo *fakeShiftRepo) (*shiftService, *fakeAuditRepo) {
	audit := &fakeAuditRepo{}
	svc := NewShiftService(repo, audit, fakeTxManager{}).(*shiftService)
	return svc, audit
}

func TestOpenShiftRejectsSecondOpen(t *testing.T) {
	repo := newFakeShiftRepo()
	svc, audit := newShiftServiceForTest(repo)
	operator := uuid.NewString()

	shift, err := svc.OpenShift(context.Background(), OpenShiftRequest{OpeningFloat: "500"}, operator)
	if err != nil {
		t.Fatalf("first OpenShift failed: %v", err)
	}
	if shift.OpeningFloat.String() != "500" {
		t.Errorf("opening float = %s, want 500", shift.OpeningFloat)
	}
	if shift.Status != model.ShiftOpen {
		t.Errorf("status = %s, want %s", shift.Status, model.ShiftOpen)
	}

	if _, err := svc.OpenShift(context.Background(), OpenShiftRequest{}, operator); !errors.Is(err, ErrShiftAlreadyOpen) {
		t.Fatalf("second OpenShift error = %v, want ErrShiftAlreadyOpen", err)
	}

	// A different operator is unaffected.
	if _, err := svc.OpenShift(context.Background(), OpenShiftRequest{}, uuid.NewString()); err != nil {
		t.Fatalf("OpenShift for second operator failed: %v", err)
	}

	if len(audit.logs) != 2 || audit.logs[0].Action != model.ActionOpenShift {
		t.Errorf("expected 2 open_shift audit entries, got %d", len(audit.logs))
	}
}

func TestOpenShiftRejectsBadInput(t *testing.T) {
	svc, _ := newShiftServiceForTest(newFakeShiftRepo())

	if _, err := svc.OpenShift(context.Background(), OpenShiftRequest{}, "not-a-uuid"); err == nil {
		t.Error("expected error for malformed operator id")
	}
	if _, err := svc.OpenShift(context.Background(), OpenShiftRequest{OpeningFloat: "-10"}, uuid.NewString()); err == nil {
		t.Error("expected error for negative opening float")
	}
	if _, err := svc.OpenShift(context.Background(), OpenShiftRequest{OpeningFloat: "abc"}, uuid.NewString()); err == nil {
		t.Error("expected error for non-numeric opening float")
	}
}

func TestCloseShiftReconciliation(t *testing.T) {
	repo := newFakeShiftRepo()
	repo.cash = decimal.NewFromInt(1250)
	svc, _ := newShiftServiceForTest(repo)
	operator := uuid.NewString()

	shift, err := svc.OpenShift(context.Background(), OpenShiftRequest{OpeningFloat: "500"}, operator)
	if err != nil {
		t.Fatalf("OpenShift failed: %v", err)
	}

	// Declared 1700 against expected 500 + 1250 = 1750: short by 50.
	result, err := svc.CloseShift(context.Background(), shift.ID.String(), CloseShiftRequest{DeclaredCash: "1700"}, operator)
	if err != nil {
		t.Fatalf("CloseShift failed: %v", err)
	}
	if result.ExpectedCash.String() != "1750" {
		t.Errorf("expected cash = %s, want 1750", result.ExpectedCash)
	}
	if result.CashVariance.String() != "-50" {
		t.Errorf("variance = %s, want -50", result.CashVariance)
	}
	if result.CashCollected.String() != "1250" {
		t.Errorf("collected = %s, want 1250", result.CashCollected)
	}
	if result.Shift.Status != model.ShiftClosed {
		t.Errorf("status = %s, want %s", result.Shift.Status, model.ShiftClosed)
	}
	if result.Shift.ClosedAt == nil {
		t.Error("ClosedAt not stamped")
	}

	if _, err := svc.CloseShift(context.Background(), shift.ID.String(), CloseShiftRequest{DeclaredCash: "1700"}, operator); !errors.Is(err, ErrShiftAlreadyClosed) {
		t.Errorf("closing twice error = %v, want ErrShiftAlreadyClosed", err)
	}
}

func TestCloseShiftExactDrawerHasZeroVariance(t *testing.T) {
	repo := newFakeShiftRepo()
	repo.cash = decimal.NewFromInt(300)
	svc, _ := newShiftServiceForTest(repo)
	operator := uuid.NewString()

	shift, err := svc.OpenShift(context.Background(), OpenShiftRequest{OpeningFloat: "200"}, operator)
	if err != nil {
		t.Fatalf("OpenShift failed: %v", err)
	}
	result, err := svc.CloseShift(context.Background(), shift.ID.String(), CloseShiftRequest{DeclaredCash: "500"}, operator)
	if err != nil {
		t.Fatalf("CloseShift failed: %v", err)
	}
	if !result.CashVariance.IsZero() {
		t.Errorf("variance = %s, want 0", result.CashVariance)
	}
}

func TestCloseShiftNotFound(t *testing.T) {
	svc, _ := newShiftServiceForTest(newFakeShiftRepo())
	_, err := svc.CloseShift(context.Background(), uuid.NewString(), CloseShiftRequest{DeclaredCash: "100"}, uuid.NewString())
	if !errors.Is(err, ErrShiftNotFound) {
		t.Errorf("error = %v, want ErrShiftNotFound", err)
	}
}

func TestActiveShiftCaching(t *testing.T) {
	repo := newFakeShiftRepo()
	svc, _ := newShiftServiceForTest(repo)
	operator := uuid.NewString()

	if _, err := svc.ActiveShift(context.Background(), operator); !errors.Is(err, ErrNoOpenShift) {
		t.Fatalf("ActiveShift with no shift = %v, want ErrNoOpenShift", err)
	}

	opened, err := svc.OpenShift(context.Background(), OpenShiftRequest{}, operator)
	if err != nil {
		t.Fatalf("OpenShift failed: %v", err)
	}

	before := repo.findOpenCalls
	first, err := svc.ActiveShift(context.Background(), operator)
	if err != nil {
		t.Fatalf("ActiveShift failed: %v", err)
	}
	if first.ID != opened.ID {
		t.Fatalf("active shift id = %s, want %s", first.ID, opened.ID)
	}
	if repo.findOpenCalls != before+1 {
		t.Fatalf("first ActiveShift should hit the repository")
	}

	if _, err := svc.ActiveShift(context.Background(), operator); err != nil {
		t.Fatalf("cached ActiveShift failed: %v", err)
	}
	if repo.findOpenCalls != before+1 {
		t.Errorf("second ActiveShift hit the repository; expected cache serve")
	}

	// Closing invalidates the cached entry.
	if _, err := svc.CloseShift(context.Background(), opened.ID.String(), CloseShiftRequest{DeclaredCash: "0"}, operator); err != nil {
		t.Fatalf("CloseShift failed: %v", err)
	}
	if _, err := svc.ActiveShift(context.Background(), operator); !errors.Is(err, ErrNoOpenShift) {
		t.Errorf("ActiveShift after close = %v, want ErrNoOpenShift", err)
	}
}
