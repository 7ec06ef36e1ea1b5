package websocket

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quizgen-backend/internal/models"
)

func channel(userID uuid.UUID) string {
	return "user_updates:" + userID.String()
}

// Publisher fans progress messages out through redis so that whichever
// instance holds the owner's socket delivers them.
type Publisher struct {
	redis *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{redis: client}
}

// Publish is fire-and-forget: a lost progress message never fails the
// operation that produced it.
func (p *Publisher) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to encode update for user %s: %v", userID, err)
		return
	}
	if err := p.redis.Publish(ctx, channel(userID), data).Err(); err != nil {
		log.Printf("Failed to publish update for user %s: %v", userID, err)
	}
}
