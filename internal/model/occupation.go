package model

import "time"

// End reasons recorded when an occupation is closed.
const (
	EndReasonManual     = "manual"
	EndReasonTimeout    = "timeout"
	EndReasonDisconnect = "disconnect"
	EndReasonAdminForce = "admin_force"
	EndReasonKicked     = "kicked"
)

// Occupation is one user's exclusive claim on a slot over a time span.
// It is open while EndedAt is NULL; a partial unique index on
// (slot_id) WHERE ended_at IS NULL guarantees at most one open
// occupation per slot (see db.ApplyConstraints).
type Occupation struct {
	ID        int64      `gorm:"primaryKey"`
	UserID    int64      `gorm:"index;not null"`
	SlotID    string     `gorm:"index;size:64;not null"`
	StartedAt time.Time  `gorm:"not null"`
	EndedAt   *time.Time `gorm:"index"`
	EndReason string     `gorm:"size:32"`

	User User `gorm:"constraint:OnDelete:CASCADE"`
	Slot Slot `gorm:"constraint:OnDelete:CASCADE"`
}

// Open reports whether the occupation is still active.
func (o *Occupation) Open() bool {
	return o.EndedAt == nil
}
