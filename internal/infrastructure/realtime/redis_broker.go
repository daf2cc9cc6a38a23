package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"returns-backend/internal/domains/notification/model"
)

const DefaultChannel = "notifications:push"

type envelope struct {
	UserID uuid.UUID       `json:"user_id"`
	Frame  json.RawMessage `json:"frame"`
}

// RedisBroker publishes pushes to every API instance; each instance relays
// them to its own Hub.
type RedisBroker struct {
	client  *redis.Client
	hub     *Hub
	channel string
}

func NewRedisBroker(client *redis.Client, hub *Hub, channel string) *RedisBroker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroker{
		client:  client,
		hub:     hub,
		channel: channel,
	}
}

func (b *RedisBroker) Push(ctx context.Context, userID uuid.UUID, n *model.Notification) error {
	frame, err := EncodeNotification(n)
	if err != nil {
		return err
	}

	msg, err := json.Marshal(envelope{UserID: userID, Frame: frame})
	if err != nil {
		return fmt.Errorf("encode push envelope: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, msg).Err(); err != nil {
		return fmt.Errorf("publish push: %w", err)
	}
	return nil
}

// Run relays published frames to the local hub until ctx is done
func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	log.Info().Str("channel", b.channel).Msg("[REALTIME] Relaying pushes from redis")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Warn().Err(err).Msg("[REALTIME] Malformed push envelope")
				continue
			}
			b.hub.Deliver(env.UserID, env.Frame)
		}
	}
}
