package model

import "time"

// QueueEntry is one user's position in the wait-line for an occupied
// slot. Positions are assigned from a per-slot monotonic counter and
// never reused, so relative order survives deletions.
type QueueEntry struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_queue_user_slot"`
	SlotID    string    `gorm:"size:64;not null;uniqueIndex:idx_queue_user_slot;index"`
	Position  int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
