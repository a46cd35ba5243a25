// File: services/events/publisher.go
package events

import (
	"context"
	"encoding/json"
	"time"

	"voicedesk/models"
	"voicedesk/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const adminTopic = "events:admin"

func businessTopic(businessID string) string {
	return "events:business:" + businessID
}

// Publisher fans lifecycle and turn events out to dashboard subscribers.
type Publisher interface {
	Publish(event models.Event)
}

// RedisPublisher publishes to the admin topic and the per-business topic.
// Publishing is best-effort: it never blocks the call path and publish
// failures are logged, not propagated.
type RedisPublisher struct {
	Client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{Client: client}
}

func (p *RedisPublisher) Publish(event models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		utils.GetLogger().Warn("event marshal failed",
			zap.String("event", event.Name), zap.Error(err))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := p.Client.Publish(ctx, adminTopic, payload).Err(); err != nil {
			utils.GetLogger().Warn("event publish failed",
				zap.String("topic", adminTopic), zap.String("event", event.Name), zap.Error(err))
		}
		if event.BusinessID == "" {
			return
		}
		topic := businessTopic(event.BusinessID)
		if err := p.Client.Publish(ctx, topic, payload).Err(); err != nil {
			utils.GetLogger().Warn("event publish failed",
				zap.String("topic", topic), zap.String("event", event.Name), zap.Error(err))
		}
	}()
}
