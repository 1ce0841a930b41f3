package api

import (
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"slotshare-backend/config"
	"slotshare-backend/internal/auth"
	"slotshare-backend/internal/broadcast"
	"slotshare-backend/internal/core"
	"slotshare-backend/internal/mw"
)

// NewRouter creates and configures the Gin router.
func NewRouter(
	cfg *config.Config,
	db *gorm.DB,
	occupancy *core.OccupancyManager,
	queue *core.QueueManager,
	bookings *core.BookingManager,
	registry *core.SlotRegistry,
	bus *broadcast.Broadcaster,
	webpushOptions *webpush.Options,
) *gin.Engine {
	r := gin.Default()

	h := NewHandler(db, occupancy, queue, bookings, registry, bus, webpushOptions, &cfg.Auth)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	requireUser := auth.RequireUser(db, cfg.Auth.JWTSecret, h.userCache)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws/slots", h.SlotsWebSocket)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		api.POST("/auth/login", h.Login)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

		authed := api.Group("")
		authed.Use(requireUser)
		{
			authed.GET("/auth/me", h.Me)

			authed.GET("/slots", h.ListSlots)
			authed.POST("/slots/:slot_id/occupy", h.OccupySlot)
			authed.POST("/slots/:slot_id/release", h.ReleaseSlot)
			authed.POST("/slots/:slot_id/force-release", h.ForceReleaseSlot)
			authed.GET("/slots/:slot_id/credentials", h.GetSlotCredentials)

			authed.POST("/slots/:slot_id/queue", h.JoinQueue)
			authed.DELETE("/slots/:slot_id/queue", h.LeaveQueue)
			authed.GET("/slots/:slot_id/queue", h.GetQueueInfo)

			authed.GET("/bookings", h.ListBookings)
			authed.POST("/bookings", h.CreateBooking)
			authed.DELETE("/bookings/:booking_id", h.CancelBooking)

			authed.GET("/subscriptions", h.GetSubscription)
			authed.PUT("/subscriptions", h.PutSubscription)
			authed.DELETE("/subscriptions", h.DeleteSubscription)

			admin := authed.Group("/admin")
			admin.Use(auth.RequireAdmin())
			{
				admin.GET("/slots", h.ListAdminSlots)
				admin.POST("/slots", h.CreateAdminSlot)
				admin.PUT("/slots/:slot_id", h.UpdateAdminSlot)
			}
		}
	}

	return r
}
