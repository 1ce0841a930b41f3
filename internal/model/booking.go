package model

import "time"

// Booking statuses.
const (
	BookingStatusActive    = "active"
	BookingStatusCancelled = "cancelled"
	BookingStatusExpired   = "expired"
)

// Booking is a pre-scheduled, non-live reservation of a slot for a
// future date and time window. Date and StartTime are fixed-width
// strings ("2026-02-14", "10:00") so lexicographic order equals
// chronological order.
type Booking struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	UserID      int64     `gorm:"index;not null" json:"-"`
	SlotID      string    `gorm:"size:64;not null;index:idx_bookings_slot_date" json:"slot_id"`
	Date        string    `gorm:"size:10;not null;index:idx_bookings_slot_date" json:"date"`
	StartTime   string    `gorm:"size:5;not null" json:"start_time"`
	DurationMin int       `gorm:"not null;default:60" json:"duration_min"`
	Status      string    `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`

	User User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
