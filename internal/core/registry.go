package core

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"slotshare-backend/internal/model"
)

// SlotRegistry is the catalog of shareable slots and their
// admin-editable metadata. Slots referenced by occupation history are
// never deleted; deactivation flips IsActive.
type SlotRegistry struct {
	db *gorm.DB
}

// NewSlotRegistry creates a slot registry.
func NewSlotRegistry(db *gorm.DB) *SlotRegistry {
	return &SlotRegistry{db: db}
}

// Get returns a slot by id, active or not.
func (r *SlotRegistry) Get(ctx context.Context, slotID string) (*model.Slot, error) {
	var slot model.Slot
	err := r.db.WithContext(ctx).First(&slot, "id = ?", slotID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("slot %q: %w", slotID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load slot %q: %w", slotID, err)
	}
	return &slot, nil
}

// List returns the catalog, optionally including deactivated slots.
func (r *SlotRegistry) List(ctx context.Context, includeInactive bool) ([]model.Slot, error) {
	q := r.db.WithContext(ctx).Order("id")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var slots []model.Slot
	if err := q.Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// Create adds a new slot. A duplicate id fails with ErrConflict.
func (r *SlotRegistry) Create(ctx context.Context, slot *model.Slot) error {
	if slot.ID == "" || slot.ServiceName == "" {
		return fmt.Errorf("slot id and service name are required: %w", ErrBadRequest)
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Slot{}).
		Where("id = ?", slot.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("check slot %q: %w", slot.ID, err)
	}
	if count > 0 {
		return fmt.Errorf("slot %q already exists: %w", slot.ID, ErrConflict)
	}
	if err := r.db.WithContext(ctx).Create(slot).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("slot %q already exists: %w", slot.ID, ErrConflict)
		}
		return fmt.Errorf("create slot %q: %w", slot.ID, err)
	}
	return nil
}

// SlotUpdate carries the admin-editable fields; nil pointers leave the
// stored value untouched.
type SlotUpdate struct {
	ServiceName    *string  `json:"service_name"`
	Tier           *string  `json:"tier"`
	Category       *string  `json:"category"`
	CategoryAccent *string  `json:"category_accent"`
	MonthlyCost    *float64 `json:"monthly_cost"`
	URL            *string  `json:"url"`
	Login          *string  `json:"login"`
	Password       *string  `json:"password"`
	Profile        *string  `json:"profile"`
	IsActive       *bool    `json:"is_active"`
}

// Update applies the non-nil fields of upd to the slot.
func (r *SlotRegistry) Update(ctx context.Context, slotID string, upd SlotUpdate) (*model.Slot, error) {
	slot, err := r.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if upd.ServiceName != nil {
		changes["service_name"] = *upd.ServiceName
	}
	if upd.Tier != nil {
		changes["tier"] = *upd.Tier
	}
	if upd.Category != nil {
		changes["category"] = *upd.Category
	}
	if upd.CategoryAccent != nil {
		changes["category_accent"] = *upd.CategoryAccent
	}
	if upd.MonthlyCost != nil {
		changes["monthly_cost"] = *upd.MonthlyCost
	}
	if upd.URL != nil {
		changes["url"] = *upd.URL
	}
	if upd.Login != nil {
		changes["login"] = *upd.Login
	}
	if upd.Password != nil {
		changes["password"] = *upd.Password
	}
	if upd.Profile != nil {
		changes["profile"] = *upd.Profile
	}
	if upd.IsActive != nil {
		changes["is_active"] = *upd.IsActive
	}

	if len(changes) > 0 {
		if err := r.db.WithContext(ctx).Model(slot).Updates(changes).Error; err != nil {
			return nil, fmt.Errorf("update slot %q: %w", slotID, err)
		}
	}
	return r.Get(ctx, slotID)
}
