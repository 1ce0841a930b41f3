package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slotshare-backend/internal/core"
	"slotshare-backend/internal/model"
)

type adminSlotRequest struct {
	ID             string  `json:"id" binding:"required"`
	ServiceName    string  `json:"service_name" binding:"required"`
	Tier           string  `json:"tier"`
	Category       string  `json:"category"`
	CategoryAccent string  `json:"category_accent"`
	MonthlyCost    float64 `json:"monthly_cost"`
	URL            string  `json:"url"`
	Login          string  `json:"login"`
	Password       string  `json:"password"`
	Profile        string  `json:"profile"`
}

// ListAdminSlots returns every slot, deactivated ones included.
func (h *Handler) ListAdminSlots(c *gin.Context) {
	slots, err := h.registry.List(c.Request.Context(), true)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

// CreateAdminSlot adds a new slot to the catalog.
func (h *Handler) CreateAdminSlot(c *gin.Context) {
	var req adminSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id and service_name are required"})
		return
	}

	slot := model.Slot{
		ID:             req.ID,
		ServiceName:    req.ServiceName,
		Tier:           req.Tier,
		Category:       req.Category,
		CategoryAccent: req.CategoryAccent,
		MonthlyCost:    req.MonthlyCost,
		URL:            req.URL,
		Login:          req.Login,
		Password:       req.Password,
		Profile:        req.Profile,
		IsActive:       true,
	}
	if err := h.registry.Create(c.Request.Context(), &slot); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// UpdateAdminSlot patches a slot's metadata or toggles its active flag.
func (h *Handler) UpdateAdminSlot(c *gin.Context) {
	var upd core.SlotUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed slot update"})
		return
	}

	slot, err := h.registry.Update(c.Request.Context(), c.Param("slot_id"), upd)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}
