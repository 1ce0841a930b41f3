package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"slotshare-backend/internal/broadcast"
	"slotshare-backend/internal/metrics"
	"slotshare-backend/internal/model"
)

// Sender abstracts the web push transport so tests can substitute a
// fake.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender sends notifications through the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans slot availability notifications out to push
// subscribers. Jobs are slot ids.
type WorkerPool struct {
	size    int
	jobs    chan string
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a worker pool of the given size.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan string, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("notification worker %d started", id)
	for {
		select {
		case slotID := <-wp.jobs:
			wp.sendNotificationsForSlot(ctx, slotID)
		case <-ctx.Done():
			log.Printf("notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a notification job for the slot.
func (wp *WorkerPool) Dispatch(slotID string) {
	wp.jobs <- slotID
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan string {
	return wp.jobs
}

// ConsumeReleases feeds the pool from the event bus: every
// slot_released event becomes a notification job. Runs until the
// subscription or ctx ends.
func (wp *WorkerPool) ConsumeReleases(ctx context.Context, sub *broadcast.Subscription) {
	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if ev.Kind != broadcast.EventSlotReleased {
				continue
			}
			slotID, _ := ev.Payload["slot_id"].(string)
			if slotID != "" {
				wp.Dispatch(slotID)
			}
		case <-sub.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) sendNotificationsForSlot(ctx context.Context, slotID string) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_slot_mapping ssm ON ssm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("ssm.slot_id = ?", slotID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("fetch subscriptions for slot %s: %v", slotID, err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	slotLabel := slotID
	var slot model.Slot
	if err := wp.db.WithContext(ctx).
		Select("service_name, tier").
		First(&slot, "id = ?", slotID).Error; err != nil {
		log.Printf("fetch slot %s: %v", slotID, err)
	} else if slot.ServiceName != "" {
		slotLabel = slot.ServiceName
		if slot.Tier != "" {
			slotLabel = fmt.Sprintf("%s (%s)", slot.ServiceName, slot.Tier)
		}
	}

	log.Printf("sending %d notifications for slot %s", len(subscriptions), slotID)
	message := fmt.Sprintf("Slot %s is now free", slotLabel)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("send notification to %s: %v", sub.Endpoint, err)
		metrics.PushNotifications.WithLabelValues("error").Inc()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("subscription %s expired, deleting", sub.Endpoint)
		metrics.PushNotifications.WithLabelValues("expired").Inc()
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("delete expired subscription %s: %v", sub.Endpoint, err)
		}
		return
	}

	metrics.PushNotifications.WithLabelValues("sent").Inc()
}
