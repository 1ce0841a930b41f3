package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"slotshare-backend/internal/metrics"
	"slotshare-backend/internal/model"
	"slotshare-backend/internal/timeutil"
)

const dateLayout = "2006-01-02"

// BookingManager handles calendar reservations. Bookings are validated
// purely against stored time windows and are independent of live
// occupancy state.
type BookingManager struct {
	db *gorm.DB
}

// NewBookingManager creates a booking manager.
func NewBookingManager(db *gorm.DB) *BookingManager {
	return &BookingManager{db: db}
}

// Create validates and persists an active booking. A date before today
// or an unparseable start time fails with ErrBadRequest; an overlap
// with any active booking on the same slot and date fails with
// ErrConflict. Exactly-touching windows do not conflict.
func (m *BookingManager) Create(ctx context.Context, userID int64, slotID, date, startTime string, durationMin int) (*model.Booking, error) {
	today := time.Now().UTC().Format(dateLayout)
	if date < today {
		return nil, fmt.Errorf("booking date %s is in the past: %w", date, ErrBadRequest)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid booking date %q: %w", date, ErrBadRequest)
	}

	newStart, err := timeutil.MinutesSinceMidnight(startTime)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrBadRequest)
	}
	if durationMin <= 0 {
		return nil, fmt.Errorf("duration must be positive: %w", ErrBadRequest)
	}

	if err := m.checkConflict(ctx, slotID, date, newStart, newStart+durationMin, 0); err != nil {
		return nil, err
	}

	booking := model.Booking{
		UserID:      userID,
		SlotID:      slotID,
		Date:        date,
		StartTime:   startTime,
		DurationMin: durationMin,
		Status:      model.BookingStatusActive,
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.db.WithContext(ctx).Create(&booking).Error; err != nil {
		return nil, fmt.Errorf("create booking for slot %q: %w", slotID, err)
	}
	return &booking, nil
}

// checkConflict scans every active booking for the slot/date and
// applies the half-open overlap test. excludeID skips the booking being
// updated, if any.
func (m *BookingManager) checkConflict(ctx context.Context, slotID, date string, newStart, newEnd int, excludeID int64) error {
	var existing []model.Booking
	err := m.db.WithContext(ctx).
		Where("slot_id = ? AND date = ? AND status = ?", slotID, date, model.BookingStatusActive).
		Find(&existing).Error
	if err != nil {
		return fmt.Errorf("load bookings for slot %q on %s: %w", slotID, date, err)
	}

	for _, b := range existing {
		if excludeID != 0 && b.ID == excludeID {
			continue
		}
		bStart, err := timeutil.MinutesSinceMidnight(b.StartTime)
		if err != nil {
			continue
		}
		if timeutil.Overlaps(newStart, newEnd, bStart, bStart+b.DurationMin) {
			metrics.BookingConflicts.Inc()
			return fmt.Errorf("conflicts with an existing booking at %s (%d min): %w",
				b.StartTime, b.DurationMin, ErrConflict)
		}
	}
	return nil
}

// List returns the user's active bookings ordered by date, then start
// time.
func (m *BookingManager) List(ctx context.Context, userID int64) ([]model.Booking, error) {
	var bookings []model.Booking
	err := m.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.BookingStatusActive).
		Order("date, start_time").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("list bookings for user %d: %w", userID, err)
	}
	return bookings, nil
}

// Cancel soft-deletes the caller's booking. Cancelled bookings are kept
// for audit but permanently excluded from conflict checks.
func (m *BookingManager) Cancel(ctx context.Context, bookingID, userID int64) error {
	res := m.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ? AND user_id = ?", bookingID, userID).
		Update("status", model.BookingStatusCancelled)
	if res.Error != nil {
		return fmt.Errorf("cancel booking %d: %w", bookingID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("booking %d: %w", bookingID, ErrNotFound)
	}
	return nil
}

// ExpirePast marks active bookings dated strictly before now's date as
// expired and returns how many were affected. Invoked by the scheduled
// expiry job; the live path never depends on it having run.
func (m *BookingManager) ExpirePast(ctx context.Context, now time.Time) (int64, error) {
	today := now.UTC().Format(dateLayout)
	res := m.db.WithContext(ctx).Model(&model.Booking{}).
		Where("status = ? AND date < ?", model.BookingStatusActive, today).
		Update("status", model.BookingStatusExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("expire past bookings: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Get returns a booking by id regardless of status, scoped to owner.
func (m *BookingManager) Get(ctx context.Context, bookingID, userID int64) (*model.Booking, error) {
	var booking model.Booking
	err := m.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", bookingID, userID).
		First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("booking %d: %w", bookingID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	return &booking, nil
}
