package model

import "time"

// PushSubscription holds a browser push subscription together with the
// slots whose availability the subscriber wants to be notified about.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	Slots []*Slot `gorm:"many2many:subscription_slot_mapping;"`
}
