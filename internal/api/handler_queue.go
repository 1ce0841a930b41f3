package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slotshare-backend/internal/auth"
)

// JoinQueue places the authenticated user in the slot's wait queue.
// Joining twice is idempotent and returns the existing position.
func (h *Handler) JoinQueue(c *gin.Context) {
	user := auth.CurrentUser(c)
	status, err := h.queue.Join(c.Request.Context(), c.Param("slot_id"), user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// LeaveQueue removes the authenticated user from the slot's wait queue.
func (h *Handler) LeaveQueue(c *gin.Context) {
	user := auth.CurrentUser(c)
	if err := h.queue.Leave(c.Request.Context(), c.Param("slot_id"), user.ID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// GetQueueInfo reports the queue length for a slot.
func (h *Handler) GetQueueInfo(c *gin.Context) {
	slotID := c.Param("slot_id")
	size, err := h.queue.Size(c.Request.Context(), slotID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"slot_id":    slotID,
		"queue_size": size,
	})
}
