package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
)

const channelPrefix = "navo:changes:"

// ChangeEvent tells subscribers that a row changed. It deliberately carries
// no row data: delivery is at-least-once and may arrive out of order, so
// consumers re-fetch the authoritative state instead of trusting the payload.
type ChangeEvent struct {
	Table string `json:"table"`
	Event string `json:"event"`
	ID    string `json:"id"`
}

type Publisher struct {
	redis *redis.Client
}

func NewPublisher(redisClient *redis.Client) *Publisher {
	return &Publisher{redis: redisClient}
}

// Publish is best-effort: a lost notification only delays a re-fetch.
func (p *Publisher) Publish(ctx context.Context, table, event, id string) {
	payload, err := json.Marshal(ChangeEvent{Table: table, Event: event, ID: id})
	if err != nil {
		return
	}
	if err := p.redis.Publish(ctx, channelPrefix+table, payload).Err(); err != nil {
		log.Printf("realtime publish failed for %s: %v", table, err)
	}
}

// Subscribe returns the raw pubsub for a table's change channel.
func (p *Publisher) Subscribe(ctx context.Context, table string) *redis.PubSub {
	return p.redis.Subscribe(ctx, fmt.Sprintf("%s%s", channelPrefix, table))
}
