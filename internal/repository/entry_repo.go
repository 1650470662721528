package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AniketAku/parking-management-app--sub001/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// EntryFilter narrows entry listings. Zero values mean "no filter".
type EntryFilter struct {
	Status        string
	VehicleType   string
	VehicleNumber string
	TransportName string
	From          time.Time
	To            time.Time
}

type EntryRepository interface {
	Create(ctx context.Context, entry *model.ParkingEntry) error
	Update(ctx context.Context, entry *model.ParkingEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ParkingEntry, error)
	FindOpenByVehicleNumber(ctx context.Context, vehicleNumber string) (*model.ParkingEntry, error)
	List(ctx context.Context, filter EntryFilter, page, limit int) ([]model.ParkingEntry, int64, error)
	ListParked(ctx context.Context) ([]model.ParkingEntry, error)
	ListParkedEnteredBefore(ctx context.Context, cutoff time.Time) ([]model.ParkingEntry, error)
	NextSerial(ctx context.Context) (int64, error)
}

type entryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) EntryRepository {
	return &entryRepository{db: db}
}

func (r *entryRepository) Create(ctx context.Context, entry *model.ParkingEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *entryRepository) Update(ctx context.Context, entry *model.ParkingEntry) error {
	return GetDB(ctx, r.db).Save(entry).Error
}

func (r *entryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ParkingEntry, error) {
	var entry model.ParkingEntry
	if err := GetDB(ctx, r.db).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindOpenByVehicleNumber locates the in-progress visit for a plate.
// At most one open entry may exist per vehicle number.
func (r *entryRepository) FindOpenByVehicleNumber(ctx context.Context, vehicleNumber string) (*model.ParkingEntry, error) {
	var entry model.ParkingEntry
	if err := GetDB(ctx, r.db).
		Where("vehicle_number = ? AND status = ? AND exit_time IS NULL", vehicleNumber, model.StatusParked).
		Order("entry_time DESC").
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *entryRepository) List(ctx context.Context, filter EntryFilter, page, limit int) ([]model.ParkingEntry, int64, error) {
	db := GetDB(ctx, r.db).Model(&model.ParkingEntry{})

	if filter.Status != "" {
		db = db.Where("status = ?", model.StorageStatus(filter.Status))
	}
	if filter.VehicleType != "" {
		db = db.Where("vehicle_type = ?", filter.VehicleType)
	}
	if filter.VehicleNumber != "" {
		db = db.Where("vehicle_number = ?", model.NormalizeVehicleNumber(filter.VehicleNumber))
	}
	if filter.TransportName != "" {
		db = db.Where("transport_name ILIKE ?", "%"+filter.TransportName+"%")
	}
	if !filter.From.IsZero() {
		db = db.Where("entry_time >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		db = db.Where("entry_time <= ?", filter.To)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []model.ParkingEntry
	offset := (page - 1) * limit
	if err := db.Order("entry_time desc").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *entryRepository) ListParked(ctx context.Context) ([]model.ParkingEntry, error) {
	var entries []model.ParkingEntry
	if err := GetDB(ctx, r.db).
		Where("status = ? AND exit_time IS NULL", model.StatusParked).
		Order("entry_time asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListParkedEnteredBefore feeds the overstay sweep: still-parked vehicles
// whose entry predates the cutoff have exceeded the threshold.
func (r *entryRepository) ListParkedEnteredBefore(ctx context.Context, cutoff time.Time) ([]model.ParkingEntry, error) {
	var entries []model.ParkingEntry
	if err := GetDB(ctx, r.db).
		Where("status = ? AND exit_time IS NULL AND entry_time < ?", model.StatusParked, cutoff).
		Order("entry_time asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// NextSerial proposes the next ticket number. Two concurrent check-ins
// can still race to the same value; the unique index on serial rejects
// the loser and the check-in retries with a fresh allocation (see
// IsDuplicateKey).
func (r *entryRepository) NextSerial(ctx context.Context) (int64, error) {
	var result struct {
		Next int64
	}
	if err := GetDB(ctx, r.db).Model(&model.ParkingEntry{}).
		Select("COALESCE(MAX(serial), 0) + 1 as next").
		Scan(&result).Error; err != nil {
		return 0, err
	}
	return result.Next, nil
}

// IsDuplicateKey reports whether err is a unique-constraint violation,
// either translated by gorm or surfaced raw from the Postgres driver.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" // unique_violation
}
