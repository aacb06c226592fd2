package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"navo-system/internal/database/models"
)

const cooldownKeyPrefix = "cooldown:rule:"

// Lifecycle and commission event types the dispatcher is fed with.
const (
	EventDriverApproved    = "driver_approved"
	EventDriverRejected    = "driver_rejected"
	EventDriverSuspended   = "driver_suspended"
	EventDriverBanned      = "driver_banned"
	EventDriverReactivated = "driver_reactivated"
)

type NotifyHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewNotifyHandler(db *gorm.DB, redisClient *redis.Client) *NotifyHandler {
	return &NotifyHandler{db: db, redis: redisClient}
}

// Enqueue records an outbound notification and fans out over matching active
// automation rules. It is fire-and-forget: delivery is owned by an external
// collaborator and failures here are logged, never returned to the caller.
func (h *NotifyHandler) Enqueue(ctx context.Context, eventType, recipientType string, payload map[string]interface{}) {
	raw := "{}"
	if len(payload) > 0 {
		if data, err := json.Marshal(payload); err == nil {
			raw = string(data)
		}
	}

	entry := models.NotificationHistory{
		EventType:     eventType,
		RecipientType: recipientType,
		Payload:       raw,
		Status:        "queued",
	}
	if err := h.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("notification enqueue failed for %s: %v", eventType, err)
	}

	var rules []models.AutomationRule
	if err := h.db.WithContext(ctx).
		Where("event_type = ? AND is_active = ?", eventType, true).
		Find(&rules).Error; err != nil {
		log.Printf("automation rule lookup failed for %s: %v", eventType, err)
		return
	}

	for _, rule := range rules {
		if !h.passesCooldown(ctx, rule) {
			continue
		}
		fanout := models.NotificationHistory{
			EventType:     eventType,
			RecipientType: rule.RecipientType,
			Payload:       raw,
			Status:        "queued",
		}
		if err := h.db.WithContext(ctx).Create(&fanout).Error; err != nil {
			log.Printf("automation notification enqueue failed for rule %d: %v", rule.ID, err)
		}
	}
}

// passesCooldown claims the rule's cooldown window atomically. SetNX only
// succeeds when no claim is live, so concurrent events fire the rule once.
func (h *NotifyHandler) passesCooldown(ctx context.Context, rule models.AutomationRule) bool {
	ttl := CooldownTTL(rule.CooldownMinutes)
	if ttl == 0 {
		return true
	}
	key := fmt.Sprintf("%s%d", cooldownKeyPrefix, rule.ID)
	ok, err := h.redis.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		// Redis being down must not drop notifications.
		log.Printf("cooldown check failed for rule %d: %v", rule.ID, err)
		return true
	}
	return ok
}

// CooldownTTL converts the configured cooldown to a TTL; non-positive
// values disable the cooldown entirely.
func CooldownTTL(cooldownMinutes int) time.Duration {
	if cooldownMinutes <= 0 {
		return 0
	}
	return time.Duration(cooldownMinutes) * time.Minute
}
