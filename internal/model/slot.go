package model

// Slot is a shareable licensed account, e.g. "ppx-1".
// Slots are never deleted once referenced by occupation history;
// administrators deactivate them via IsActive instead.
type Slot struct {
	ID             string  `gorm:"primaryKey;size:64" json:"id"`
	ServiceName    string  `gorm:"size:256;not null" json:"service_name"`
	Tier           string  `gorm:"size:64" json:"tier"`
	Category       string  `gorm:"size:128;not null" json:"category"`
	CategoryAccent string  `gorm:"size:16;default:#3b82f6" json:"category_accent"`
	MonthlyCost    float64 `gorm:"default:0" json:"monthly_cost"`
	URL            string  `gorm:"size:512" json:"-"`
	Login          string  `gorm:"size:256" json:"-"`
	Password       string  `gorm:"size:256" json:"-"`
	Profile        string  `gorm:"size:128" json:"-"`
	IsActive       bool    `gorm:"not null;default:true" json:"is_active"`
}
