package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"slotshare-backend/internal/broadcast"
	"slotshare-backend/internal/metrics"
	"slotshare-backend/internal/model"
)

// OccupancyManager enforces the core correctness invariant: at most one
// open occupation per slot at any instant. The check-and-create runs
// under the per-slot lock, and the partial unique index on open
// occupations catches anything that slips past it.
type OccupancyManager struct {
	db    *gorm.DB
	locks *SlotLocks
	bus   *broadcast.Broadcaster
}

// NewOccupancyManager creates an occupancy manager. It shares locks
// with the queue manager so release and promotion stay atomic per slot.
func NewOccupancyManager(db *gorm.DB, locks *SlotLocks, bus *broadcast.Broadcaster) *OccupancyManager {
	return &OccupancyManager{db: db, locks: locks, bus: bus}
}

// Occupy claims the slot exclusively for the user. Fails with
// ErrNotFound for an unknown or inactive slot and with ErrConflict,
// naming the current occupant, when the slot is already taken.
func (m *OccupancyManager) Occupy(ctx context.Context, slotID string, userID int64) (*model.Occupation, error) {
	defer m.locks.Lock(slotID)()

	var slot model.Slot
	err := m.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", slotID, true).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("slot %q: %w", slotID, ErrNotFound)
		}
		return nil, fmt.Errorf("load slot %q: %w", slotID, err)
	}

	var user model.User
	if err := m.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}

	current, err := m.CurrentOccupant(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return nil, fmt.Errorf("slot %q is already occupied by %s: %w", slotID, current.User.Name, ErrConflict)
	}

	occ := model.Occupation{
		UserID:    userID,
		SlotID:    slotID,
		StartedAt: time.Now().UTC(),
	}
	if err := m.db.WithContext(ctx).Create(&occ).Error; err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("slot %q is already occupied: %w", slotID, ErrConflict)
		}
		return nil, fmt.Errorf("create occupation for slot %q: %w", slotID, err)
	}
	occ.User = user
	metrics.Occupations.WithLabelValues(slotID).Inc()

	m.bus.Publish(broadcast.EventSlotOccupied, map[string]any{
		"slot_id":       slotID,
		"occupant_name": user.Name,
	})
	return &occ, nil
}

// Release closes the caller's open occupation of the slot, promotes the
// queue head and returns the promoted user's name (nil for an empty
// queue). Ownership is enforced: releasing a slot occupied by someone
// else fails with ErrNotFound.
func (m *OccupancyManager) Release(ctx context.Context, slotID string, userID int64) (*model.Occupation, *string, error) {
	defer m.locks.Lock(slotID)()

	var occ model.Occupation
	err := m.db.WithContext(ctx).
		Where("slot_id = ? AND user_id = ? AND ended_at IS NULL", slotID, userID).
		First(&occ).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("no active occupation of slot %q for this user: %w", slotID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("load occupation of slot %q: %w", slotID, err)
	}

	return m.close(ctx, &occ, model.EndReasonManual)
}

// ForceRelease closes the slot's open occupation regardless of owner.
// Requires an admin actor; the end reason is recorded as admin_force.
func (m *OccupancyManager) ForceRelease(ctx context.Context, slotID string, actor *model.User) (*model.Occupation, *string, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, nil, fmt.Errorf("only an administrator may force-release a slot: %w", ErrForbidden)
	}
	return m.terminate(ctx, slotID, model.EndReasonAdminForce)
}

// Terminate closes the slot's open occupation on behalf of an external
// signal (session timeout, client disconnect, kick). It follows the
// same close-promote-publish path as Release but checks neither
// ownership nor privilege; callers are trusted collaborators, not HTTP
// clients.
func (m *OccupancyManager) Terminate(ctx context.Context, slotID, reason string) (*model.Occupation, *string, error) {
	return m.terminate(ctx, slotID, reason)
}

func (m *OccupancyManager) terminate(ctx context.Context, slotID, reason string) (*model.Occupation, *string, error) {
	defer m.locks.Lock(slotID)()

	var occ model.Occupation
	err := m.db.WithContext(ctx).
		Where("slot_id = ? AND ended_at IS NULL", slotID).
		First(&occ).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("no active occupation for slot %q: %w", slotID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("load occupation of slot %q: %w", slotID, err)
	}

	return m.close(ctx, &occ, reason)
}

// close ends the occupation and promotes the queue head in one
// transaction. The caller must hold the slot lock.
func (m *OccupancyManager) close(ctx context.Context, occ *model.Occupation, reason string) (*model.Occupation, *string, error) {
	now := time.Now().UTC()
	var promoted *model.QueueEntry

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Occupation{}).
			Where("id = ? AND ended_at IS NULL", occ.ID).
			Updates(map[string]any{"ended_at": now, "end_reason": reason})
		if res.Error != nil {
			return fmt.Errorf("close occupation %d: %w", occ.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("occupation %d already closed: %w", occ.ID, ErrNotFound)
		}

		p, err := promoteHead(tx, occ.SlotID)
		if err != nil {
			return err
		}
		promoted = p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	occ.EndedAt = &now
	occ.EndReason = reason
	metrics.Releases.WithLabelValues(occ.SlotID, reason).Inc()

	var nextName *string
	payloadNext := any(nil)
	if promoted != nil {
		nextName = &promoted.User.Name
		payloadNext = promoted.User.Name
	}
	m.bus.Publish(broadcast.EventSlotReleased, map[string]any{
		"slot_id":       occ.SlotID,
		"next_in_queue": payloadNext,
	})
	return occ, nextName, nil
}

// CurrentOccupant returns the slot's open occupation with User loaded,
// or nil when the slot is free.
func (m *OccupancyManager) CurrentOccupant(ctx context.Context, slotID string) (*model.Occupation, error) {
	var occ model.Occupation
	err := m.db.WithContext(ctx).Preload("User").
		Where("slot_id = ? AND ended_at IS NULL", slotID).
		First(&occ).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load current occupant of slot %q: %w", slotID, err)
	}
	return &occ, nil
}

// ElapsedMinutes reports how long the occupation has been open, or its
// final duration once closed.
func ElapsedMinutes(occ *model.Occupation, now time.Time) int {
	end := now
	if occ.EndedAt != nil {
		end = *occ.EndedAt
	}
	return int(end.Sub(occ.StartedAt).Minutes())
}
