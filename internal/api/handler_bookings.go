package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"slotshare-backend/internal/auth"
	"slotshare-backend/internal/core"
)

type createBookingRequest struct {
	SlotID      string `json:"slot_id" binding:"required"`
	Date        string `json:"date" binding:"required"`
	StartTime   string `json:"start_time" binding:"required"`
	DurationMin int    `json:"duration_min" binding:"required"`
}

// ListBookings returns the authenticated user's active bookings.
func (h *Handler) ListBookings(c *gin.Context) {
	user := auth.CurrentUser(c)
	bookings, err := h.bookings.List(c.Request.Context(), user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// CreateBooking reserves a slot for a future time window, rejecting
// overlaps with other active bookings on the same slot and date.
func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slot_id, date, start_time and duration_min are required"})
		return
	}

	user := auth.CurrentUser(c)
	booking, err := h.bookings.Create(c.Request.Context(), user.ID, req.SlotID, req.Date, req.StartTime, req.DurationMin)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// CancelBooking cancels one of the authenticated user's bookings.
func (h *Handler) CancelBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("booking_id"), 10, 64)
	if err != nil {
		abortWithError(c, core.ErrBadRequest)
		return
	}

	user := auth.CurrentUser(c)
	if err := h.bookings.Cancel(c.Request.Context(), id, user.ID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
