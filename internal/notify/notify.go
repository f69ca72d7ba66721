// Package notify delivers "your slot is available" messages to the
// external notification collaborator. Delivery is fire-and-forget from
// the booking core's perspective: a failed push is logged, never
// propagated into the cancellation that triggered it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Message is the wire format pushed onto the notification queue.
type Message struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	UserID    int64     `json:"user_id"`
	CourtID   int64     `json:"court_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

const KindSlotAvailable = "slot_available"

// DefaultQueueKey is the redis list consumed by the notification worker.
const DefaultQueueKey = "courtside:notifications"

// Queue publishes messages onto a redis list, rate limited so a burst of
// cancellations cannot flood the downstream sender.
type Queue struct {
	rdb     *redis.Client
	key     string
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewQueue creates a notification queue publisher.
func NewQueue(rdb *redis.Client, key string, logger zerolog.Logger) *Queue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &Queue{
		rdb:     rdb,
		key:     key,
		limiter: rate.NewLimiter(rate.Limit(20), 30),
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// SlotAvailable enqueues a slot-available notification for the user.
func (q *Queue) SlotAvailable(ctx context.Context, userID, courtID int64, start, end time.Time) error {
	if err := q.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	msg := Message{
		ID:        uuid.NewString(),
		Kind:      KindSlotAvailable,
		UserID:    userID,
		CourtID:   courtID,
		StartTime: start,
		EndTime:   end,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	if err := q.rdb.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("push notification: %w", err)
	}

	q.logger.Info().
		Str("message_id", msg.ID).
		Int64("user_id", userID).
		Int64("court_id", courtID).
		Time("start", start).
		Msg("slot-available notification queued")
	return nil
}

// LogNotifier satisfies the booking service's notifier dependency when no
// redis queue is configured; it only logs.
type LogNotifier struct {
	Logger zerolog.Logger
}

// SlotAvailable logs the notification instead of delivering it.
func (n LogNotifier) SlotAvailable(_ context.Context, userID, courtID int64, start, end time.Time) error {
	n.Logger.Info().
		Int64("user_id", userID).
		Int64("court_id", courtID).
		Time("start", start).
		Time("end", end).
		Msg("slot available (notification delivery not configured)")
	return nil
}
