package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AniketAku/parking-management-app--sub001/internal/model"
	"github.com/AniketAku/parking-management-app--sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type fakeEntryRepo struct {
	entries    map[uuid.UUID]*model.ParkingEntry
	serial     int64
	createErrs []error // popped per Create call
}

var _ repository.EntryRepository = (*fakeEntryRepo)(nil)

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{entries: make(map[uuid.UUID]*model.ParkingEntry)}
}

func (f *fakeEntryRepo) Create(_ context.Context, entry *model.ParkingEntry) error {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	cp := *entry
	f.entries[entry.ID] = &cp
	return nil
}

func (f *fakeEntryRepo) Update(_ context.Context, entry *model.ParkingEntry) error {
	cp := *entry
	f.entries[entry.ID] = &cp
	return nil
}

func (f *fakeEntryRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ParkingEntry, error) {
	entry, ok := f.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *entry
	return &cp, nil
}

func (f *fakeEntryRepo) FindOpenByVehicleNumber(_ context.Context, vehicleNumber string) (*model.ParkingEntry, error) {
	for _, entry := range f.entries {
		if entry.VehicleNumber == vehicleNumber && entry.ExitTime == nil {
			cp := *entry
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEntryRepo) List(_ context.Context, _ repository.EntryFilter, _, _ int) ([]model.ParkingEntry, int64, error) {
	var out []model.ParkingEntry
	for _, entry := range f.entries {
		out = append(out, *entry)
	}
	return out, int64(len(out)), nil
}

func (f *fakeEntryRepo) ListParked(_ context.Context) ([]model.ParkingEntry, error) {
	var out []model.ParkingEntry
	for _, entry := range f.entries {
		if entry.ExitTime == nil {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (f *fakeEntryRepo) ListParkedEnteredBefore(_ context.Context, cutoff time.Time) ([]model.ParkingEntry, error) {
	var out []model.ParkingEntry
	for _, entry := range f.entries {
		if entry.ExitTime == nil && entry.EntryTime.Before(cutoff) {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (f *fakeEntryRepo) NextSerial(_ context.Context) (int64, error) {
	f.serial++
	return f.serial, nil
}

type fakeBroadcaster struct {
	events []string
}

func (f *fakeBroadcaster) BroadcastEvent(event string, _ interface{}) {
	f.events = append(f.events, event)
}

type entryServiceFixture struct {
	svc    *entryService
	repo   *fakeEntryRepo
	shifts *fakeShiftRepo
	events *fakeBroadcaster
	audit  *fakeAuditRepo
	clock  time.Time
}

func newEntryServiceFixture() *entryServiceFixture {
	fx := &entryServiceFixture{
		repo:   newFakeEntryRepo(),
		shifts: newFakeShiftRepo(),
		events: &fakeBroadcaster{},
		audit:  &fakeAuditRepo{},
		clock:  time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
	}
	fees := NewFeeService(newFakeRateRuleRepo(activeRule(model.VehicleTypeFourWheeler, 100)))
	settings := NewSettingService(newFakeSettingRepo(), fx.audit)
	fx.svc = NewEntryService(fx.repo, fx.shifts, fx.audit, fees, settings, fakeTxManager{}, fx.events).(*entryService)
	fx.svc.now = func() time.Time { return fx.clock }
	return fx
}

func (fx *entryServiceFixture) checkIn(t *testing.T, plate string, enteredAt time.Time) *model.ParkingEntry {
	t.Helper()
	entry, err := fx.svc.CheckIn(context.Background(), CheckInRequest{
		TransportName: "Sharma Transport",
		VehicleType:   model.VehicleTypeFourWheeler,
		VehicleNumber: plate,
		EntryTime:     &enteredAt,
	}, uuid.NewString())
	if err != nil {
		t.Fatalf("CheckIn(%s) failed: %v", plate, err)
	}
	return entry
}

func TestCheckInAssignsSerialAndNormalizesPlate(t *testing.T) {
	fx := newEntryServiceFixture()

	entry, err := fx.svc.CheckIn(context.Background(), CheckInRequest{
		TransportName: "Sharma Transport",
		VehicleType:   model.VehicleTypeFourWheeler,
		VehicleNumber: "  mh12ab1234 ",
	}, "")
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}

	if entry.Serial != 1 {
		t.Errorf("serial = %d, want 1", entry.Serial)
	}
	if entry.VehicleNumber != "MH12AB1234" {
		t.Errorf("vehicle number = %q, want normalized MH12AB1234", entry.VehicleNumber)
	}
	if entry.EntryTime != fx.clock {
		t.Errorf("entry time = %v, want clock %v", entry.EntryTime, fx.clock)
	}
	if entry.DriverName != "N/A" || entry.DriverPhone != "N/A" {
		t.Errorf("driver defaults = %q/%q, want N/A", entry.DriverName, entry.DriverPhone)
	}
	if entry.CreatedBy != "System" {
		t.Errorf("created by = %q, want System for anonymous caller", entry.CreatedBy)
	}
	if entry.Status != model.StatusParked {
		t.Errorf("status = %q, want Parked", entry.Status)
	}

	second := fx.checkIn(t, "KA01HH9999", fx.clock)
	if second.Serial != 2 {
		t.Errorf("second serial = %d, want 2", second.Serial)
	}

	if len(fx.events.events) != 2 || fx.events.events[0] != EventVehicleEntry {
		t.Errorf("broadcast events = %v, want two %s events", fx.events.events, EventVehicleEntry)
	}
}

func TestCheckInRejectsDuplicateOpenEntry(t *testing.T) {
	fx := newEntryServiceFixture()
	fx.checkIn(t, "MH12AB1234", fx.clock.Add(-time.Hour))

	// Same plate in different case is the same vehicle.
	_, err := fx.svc.CheckIn(context.Background(), CheckInRequest{
		TransportName: "Sharma Transport",
		VehicleType:   model.VehicleTypeFourWheeler,
		VehicleNumber: "mh12ab1234",
	}, uuid.NewString())
	if !errors.Is(err, ErrVehicleAlreadyParked) {
		t.Fatalf("duplicate check-in error = %v, want ErrVehicleAlreadyParked", err)
	}
}

func TestCheckInRejectsUnknownVehicleType(t *testing.T) {
	fx := newEntryServiceFixture()
	_, err := fx.svc.CheckIn(context.Background(), CheckInRequest{
		TransportName: "Sharma Transport",
		VehicleType:   "Hovercraft",
		VehicleNumber: "MH12AB1234",
	}, uuid.NewString())
	if err == nil {
		t.Fatal("expected error for unknown vehicle type")
	}
}

func TestCheckOutCalculatesFeeAndCompletesEntry(t *testing.T) {
	fx := newEntryServiceFixture()
	entry := fx.checkIn(t, "MH12AB1234", fx.clock.Add(-10*time.Hour))

	result, err := fx.svc.CheckOut(context.Background(), entry.ID.String(), CheckOutRequest{
		PaymentType: model.PaymentTypeCash,
	}, uuid.NewString())
	if err != nil {
		t.Fatalf("CheckOut failed: %v", err)
	}

	// 10 hours at 100/day bills one day.
	if result.Entry.ParkingFee.String() != "100" {
		t.Errorf("parking fee = %s, want 100", result.Entry.ParkingFee)
	}
	if result.Fee.CalculatedDays != 1 {
		t.Errorf("billable days = %d, want 1", result.Fee.CalculatedDays)
	}
	if result.Entry.Status != model.StatusExited {
		t.Errorf("status = %q, want Exited", result.Entry.Status)
	}
	if result.Entry.ExitTime == nil || !result.Entry.ExitTime.Equal(fx.clock) {
		t.Errorf("exit time = %v, want clock %v", result.Entry.ExitTime, fx.clock)
	}
	if result.Entry.PaymentStatus != model.PaymentPaid {
		t.Errorf("payment status = %q, want Paid default", result.Entry.PaymentStatus)
	}
	if last := fx.events.events[len(fx.events.events)-1]; last != EventVehicleExit {
		t.Errorf("last broadcast = %s, want %s", last, EventVehicleExit)
	}

	_, err = fx.svc.CheckOut(context.Background(), entry.ID.String(), CheckOutRequest{
		PaymentType: model.PaymentTypeCash,
	}, uuid.NewString())
	if !errors.Is(err, ErrEntryAlreadyExited) {
		t.Errorf("second CheckOut error = %v, want ErrEntryAlreadyExited", err)
	}
}

func TestCheckOutFeeOverride(t *testing.T) {
	fx := newEntryServiceFixture()
	entry := fx.checkIn(t, "MH12AB1234", fx.clock.Add(-10*time.Hour))

	override := "80.00"
	result, err := fx.svc.CheckOut(context.Background(), entry.ID.String(), CheckOutRequest{
		PaymentType: model.PaymentTypeCash,
		FeeOverride: &override,
	}, uuid.NewString())
	if err != nil {
		t.Fatalf("CheckOut failed: %v", err)
	}
	if result.Entry.ParkingFee.String() != "80" {
		t.Errorf("charged fee = %s, want override 80", result.Entry.ParkingFee)
	}
	// The calculated breakdown is preserved for the receipt.
	if result.Fee.TotalFee.String() != "100" {
		t.Errorf("calculated fee = %s, want 100", result.Fee.TotalFee)
	}
}

func TestCheckOutRejectsBadOverride(t *testing.T) {
	fx := newEntryServiceFixture()
	entry := fx.checkIn(t, "MH12AB1234", fx.clock.Add(-time.Hour))

	for _, bad := range []string{"-5", "free"} {
		override := bad
		_, err := fx.svc.CheckOut(context.Background(), entry.ID.String(), CheckOutRequest{
			PaymentType: model.PaymentTypeCash,
			FeeOverride: &override,
		}, uuid.NewString())
		if err == nil {
			t.Errorf("expected error for fee override %q", bad)
		}
	}
}

func TestCheckOutLinksActiveShift(t *testing.T) {
	fx := newEntryServiceFixture()
	operator := uuid.New()
	shift := &model.Shift{OperatorID: operator, OpenedAt: fx.clock, Status: model.ShiftOpen}
	if err := fx.shifts.Create(context.Background(), shift); err != nil {
		t.Fatalf("seed shift: %v", err)
	}

	entry := fx.checkIn(t, "MH12AB1234", fx.clock.Add(-2*time.Hour))

	result, err := fx.svc.CheckOut(context.Background(), entry.ID.String(), CheckOutRequest{
		PaymentType: model.PaymentTypeCash,
	}, operator.String())
	if err != nil {
		t.Fatalf("CheckOut failed: %v", err)
	}
	if result.Entry.ShiftID == nil || *result.Entry.ShiftID != shift.ID {
		t.Errorf("shift id = %v, want %s", result.Entry.ShiftID, shift.ID)
	}
}

func TestListOverstaysMarksDerivedStatus(t *testing.T) {
	fx := newEntryServiceFixture()
	// Default threshold is 24 hours.
	fx.checkIn(t, "MH12AB1234", fx.clock.Add(-30*time.Hour))
	fx.checkIn(t, "KA01HH9999", fx.clock.Add(-2*time.Hour))

	overstays, err := fx.svc.ListOverstays(context.Background())
	if err != nil {
		t.Fatalf("ListOverstays failed: %v", err)
	}
	if len(overstays) != 1 {
		t.Fatalf("overstay count = %d, want 1", len(overstays))
	}
	if overstays[0].VehicleNumber != "MH12AB1234" {
		t.Errorf("overstay plate = %s, want MH12AB1234", overstays[0].VehicleNumber)
	}
	if overstays[0].Status != model.StatusOverstay {
		t.Errorf("status = %q, want Overstay", overstays[0].Status)
	}
}

func TestGetEntryProjectsOverstayStatus(t *testing.T) {
	fx := newEntryServiceFixture()
	entry := fx.checkIn(t, "MH12AB1234", fx.clock.Add(-25*time.Hour))

	got, err := fx.svc.GetEntry(context.Background(), entry.ID.String())
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got.Status != model.StatusOverstay {
		t.Errorf("status = %q, want derived Overstay", got.Status)
	}

	// The stored row keeps the storage enum value.
	if fx.repo.entries[entry.ID].Status != model.StatusParked {
		t.Errorf("stored status = %q, want Parked", fx.repo.entries[entry.ID].Status)
	}

	if _, err := fx.svc.GetEntry(context.Background(), uuid.NewString()); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("missing entry error = %v, want ErrEntryNotFound", err)
	}
}

// Two gates can race NextSerial to the same ticket number; the losing
// insert hits the unique index and the check-in rerolls the serial.
func TestCheckInRetriesSerialConflict(t *testing.T) {
	fx := newEntryServiceFixture()
	fx.repo.createErrs = []error{&pgconn.PgError{Code: "23505"}}

	entry := fx.checkIn(t, "MH12AB1234", fx.clock)
	if entry.Serial != 2 {
		t.Errorf("serial = %d, want 2 after one conflict reroll", entry.Serial)
	}
}

func TestCheckInDoesNotRetryOtherErrors(t *testing.T) {
	fx := newEntryServiceFixture()
	fx.repo.createErrs = []error{errors.New("connection reset")}

	_, err := fx.svc.CheckIn(context.Background(), CheckInRequest{
		TransportName: "Sharma Transport",
		VehicleType:   model.VehicleTypeFourWheeler,
		VehicleNumber: "MH12AB1234",
	}, uuid.NewString())
	if err == nil {
		t.Fatal("expected the insert failure to surface")
	}
	if fx.repo.serial != 1 {
		t.Errorf("serial allocations = %d, want 1 (no retry)", fx.repo.serial)
	}
}
