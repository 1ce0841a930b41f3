package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"slotshare-backend/config"
	"slotshare-backend/internal/broadcast"
	"slotshare-backend/internal/core"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	db        *gorm.DB
	occupancy *core.OccupancyManager
	queue     *core.QueueManager
	bookings  *core.BookingManager
	registry  *core.SlotRegistry
	bus       *broadcast.Broadcaster
	webpush   *webpush.Options
	auth      *config.AuthConfig
	userCache *cache.Cache
}

// NewHandler creates a new API handler.
func NewHandler(
	db *gorm.DB,
	occupancy *core.OccupancyManager,
	queue *core.QueueManager,
	bookings *core.BookingManager,
	registry *core.SlotRegistry,
	bus *broadcast.Broadcaster,
	webpushOptions *webpush.Options,
	authCfg *config.AuthConfig,
) *Handler {
	return &Handler{
		db:        db,
		occupancy: occupancy,
		queue:     queue,
		bookings:  bookings,
		registry:  registry,
		bus:       bus,
		webpush:   webpushOptions,
		auth:      authCfg,
		userCache: cache.New(authCfg.UserCacheTTL, 2*authCfg.UserCacheTTL),
	}
}
