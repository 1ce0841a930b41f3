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

// QueueManager maintains the FIFO waiting list per slot. Positions come
// from a per-slot monotonic counter (max existing position + 1) and are
// never reused, so relative order survives deletions.
type QueueManager struct {
	db    *gorm.DB
	locks *SlotLocks
	bus   *broadcast.Broadcaster
}

// NewQueueManager creates a queue manager sharing the per-slot locks
// with the occupancy manager.
func NewQueueManager(db *gorm.DB, locks *SlotLocks, bus *broadcast.Broadcaster) *QueueManager {
	return &QueueManager{db: db, locks: locks, bus: bus}
}

// QueueStatus describes the caller's place in a slot's queue.
type QueueStatus struct {
	SlotID       string `json:"slot_id"`
	Position     int    `json:"position"`
	TotalInQueue int64  `json:"total_in_queue"`
}

// Join adds the user to the wait-line of an occupied slot. Joining a
// free slot's queue is rejected with ErrBadState. If the user already
// holds a position the call is idempotent and returns it unchanged.
func (m *QueueManager) Join(ctx context.Context, slotID string, userID int64) (*QueueStatus, error) {
	defer m.locks.Lock(slotID)()

	var slot model.Slot
	if err := m.db.WithContext(ctx).First(&slot, "id = ?", slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("slot %q: %w", slotID, ErrNotFound)
		}
		return nil, fmt.Errorf("load slot %q: %w", slotID, err)
	}

	var openCount int64
	if err := m.db.WithContext(ctx).Model(&model.Occupation{}).
		Where("slot_id = ? AND ended_at IS NULL", slotID).
		Count(&openCount).Error; err != nil {
		return nil, fmt.Errorf("check occupancy of slot %q: %w", slotID, err)
	}
	if openCount == 0 {
		return nil, fmt.Errorf("slot %q is free, occupy it directly: %w", slotID, ErrBadState)
	}

	var existing model.QueueEntry
	err := m.db.WithContext(ctx).
		Where("slot_id = ? AND user_id = ?", slotID, userID).
		First(&existing).Error
	switch {
	case err == nil:
		total, err := m.Size(ctx, slotID)
		if err != nil {
			return nil, err
		}
		return &QueueStatus{SlotID: slotID, Position: existing.Position, TotalInQueue: total}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("look up queue entry for slot %q: %w", slotID, err)
	}

	var maxPos int
	if err := m.db.WithContext(ctx).Model(&model.QueueEntry{}).
		Where("slot_id = ?", slotID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&maxPos).Error; err != nil {
		return nil, fmt.Errorf("compute queue position for slot %q: %w", slotID, err)
	}

	entry := model.QueueEntry{
		UserID:    userID,
		SlotID:    slotID,
		Position:  maxPos + 1,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.db.WithContext(ctx).Create(&entry).Error; err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("already queued for slot %q: %w", slotID, ErrConflict)
		}
		return nil, fmt.Errorf("create queue entry for slot %q: %w", slotID, err)
	}
	metrics.QueueJoins.WithLabelValues(slotID).Inc()

	total, err := m.Size(ctx, slotID)
	if err != nil {
		return nil, err
	}
	m.bus.Publish(broadcast.EventQueueChanged, map[string]any{
		"slot_id":    slotID,
		"queue_size": total,
	})
	return &QueueStatus{SlotID: slotID, Position: entry.Position, TotalInQueue: total}, nil
}

// Leave removes the caller's queue entry.
func (m *QueueManager) Leave(ctx context.Context, slotID string, userID int64) error {
	defer m.locks.Lock(slotID)()

	res := m.db.WithContext(ctx).
		Where("slot_id = ? AND user_id = ?", slotID, userID).
		Delete(&model.QueueEntry{})
	if res.Error != nil {
		return fmt.Errorf("leave queue for slot %q: %w", slotID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("not in the queue for slot %q: %w", slotID, ErrNotFound)
	}

	total, err := m.Size(ctx, slotID)
	if err == nil {
		m.bus.Publish(broadcast.EventQueueChanged, map[string]any{
			"slot_id":    slotID,
			"queue_size": total,
		})
	}
	return nil
}

// Size returns the number of entries waiting for the slot.
func (m *QueueManager) Size(ctx context.Context, slotID string) (int64, error) {
	var total int64
	if err := m.db.WithContext(ctx).Model(&model.QueueEntry{}).
		Where("slot_id = ?", slotID).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count queue for slot %q: %w", slotID, err)
	}
	return total, nil
}

// PromoteHead removes the minimum-position entry for the slot and
// returns it (with User loaded), or nil if the queue is empty.
// Promotion signals eligibility only; it never creates an occupation
// for the promoted user.
func (m *QueueManager) PromoteHead(ctx context.Context, slotID string) (*model.QueueEntry, error) {
	defer m.locks.Lock(slotID)()
	return promoteHead(m.db.WithContext(ctx), slotID)
}

// promoteHead is the lock-free variant used inside the occupancy
// manager's release transaction, which already holds the slot lock.
func promoteHead(tx *gorm.DB, slotID string) (*model.QueueEntry, error) {
	var entry model.QueueEntry
	err := tx.Preload("User").
		Where("slot_id = ?", slotID).
		Order("position ASC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load queue head for slot %q: %w", slotID, err)
	}
	if err := tx.Delete(&model.QueueEntry{}, entry.ID).Error; err != nil {
		return nil, fmt.Errorf("remove promoted queue entry %d: %w", entry.ID, err)
	}
	return &entry, nil
}
