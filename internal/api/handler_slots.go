package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"slotshare-backend/internal/auth"
	"slotshare-backend/internal/core"
	"slotshare-backend/internal/model"
)

type slotView struct {
	ID             string  `json:"id"`
	ServiceName    string  `json:"service_name"`
	Tier           string  `json:"tier"`
	Category       string  `json:"category"`
	CategoryAccent string  `json:"category_accent"`
	MonthlyCost    float64 `json:"monthly_cost"`
	URL            string  `json:"url"`
	Available      bool    `json:"available"`
	OccupantName   *string `json:"occupant_name"`
	OccupantID     *int64  `json:"occupant_id"`
	SessionMinutes *int    `json:"session_minutes"`
	QueueSize      int64   `json:"queue_size"`
}

// ListSlots returns the active slot catalog with live occupancy state.
func (h *Handler) ListSlots(c *gin.Context) {
	ctx := c.Request.Context()

	slots, err := h.registry.List(ctx, false)
	if err != nil {
		abortWithError(c, err)
		return
	}

	ids := make([]string, 0, len(slots))
	for _, s := range slots {
		ids = append(ids, s.ID)
	}

	var open []model.Occupation
	if err := h.db.WithContext(ctx).Preload("User").
		Where("slot_id IN ? AND ended_at IS NULL", ids).
		Find(&open).Error; err != nil {
		abortWithError(c, err)
		return
	}
	occBySlot := make(map[string]*model.Occupation, len(open))
	for i := range open {
		occBySlot[open[i].SlotID] = &open[i]
	}

	type queueCount struct {
		SlotID string
		N      int64
	}
	var counts []queueCount
	if err := h.db.WithContext(ctx).Model(&model.QueueEntry{}).
		Select("slot_id, COUNT(*) AS n").
		Where("slot_id IN ?", ids).
		Group("slot_id").
		Scan(&counts).Error; err != nil {
		abortWithError(c, err)
		return
	}
	queueBySlot := make(map[string]int64, len(counts))
	for _, qc := range counts {
		queueBySlot[qc.SlotID] = qc.N
	}

	now := time.Now()
	views := make([]slotView, 0, len(slots))
	for _, s := range slots {
		v := slotView{
			ID:             s.ID,
			ServiceName:    s.ServiceName,
			Tier:           s.Tier,
			Category:       s.Category,
			CategoryAccent: s.CategoryAccent,
			MonthlyCost:    s.MonthlyCost,
			URL:            s.URL,
			Available:      true,
			QueueSize:      queueBySlot[s.ID],
		}
		if occ := occBySlot[s.ID]; occ != nil {
			v.Available = false
			v.OccupantName = &occ.User.Name
			v.OccupantID = &occ.UserID
			minutes := core.ElapsedMinutes(occ, now)
			v.SessionMinutes = &minutes
		}
		views = append(views, v)
	}

	c.JSON(http.StatusOK, views)
}

// OccupySlot claims a free slot for the authenticated user.
func (h *Handler) OccupySlot(c *gin.Context) {
	user := auth.CurrentUser(c)
	occ, err := h.occupancy.Occupy(c.Request.Context(), c.Param("slot_id"), user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"slot_id":    occ.SlotID,
		"started_at": occ.StartedAt,
	})
}

// ReleaseSlot ends the authenticated user's own occupation.
func (h *Handler) ReleaseSlot(c *gin.Context) {
	user := auth.CurrentUser(c)
	occ, next, err := h.occupancy.Release(c.Request.Context(), c.Param("slot_id"), user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"slot_id":         occ.SlotID,
		"session_minutes": core.ElapsedMinutes(occ, time.Now()),
		"next_in_queue":   next,
	})
}

// ForceReleaseSlot lets an administrator evict whoever holds the slot.
func (h *Handler) ForceReleaseSlot(c *gin.Context) {
	user := auth.CurrentUser(c)
	occ, next, err := h.occupancy.ForceRelease(c.Request.Context(), c.Param("slot_id"), user)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"slot_id":         occ.SlotID,
		"evicted_user_id": occ.UserID,
		"next_in_queue":   next,
	})
}

// GetSlotCredentials returns login credentials, visible only to the
// current occupant.
func (h *Handler) GetSlotCredentials(c *gin.Context) {
	ctx := c.Request.Context()
	user := auth.CurrentUser(c)
	slotID := c.Param("slot_id")

	slot, err := h.registry.Get(ctx, slotID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	occ, err := h.occupancy.CurrentOccupant(ctx, slotID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if occ == nil || occ.UserID != user.ID {
		abortWithError(c, core.ErrForbidden)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"login":    slot.Login,
		"password": slot.Password,
		"profile":  slot.Profile,
		"url":      slot.URL,
	})
}
