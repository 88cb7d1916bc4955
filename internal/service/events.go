package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/parley-chat/parley/internal/domain"
)

const eventChannel = "parley:events"

// MessageEvent is broadcast after a message lands in a conversation.
// Delivery is best-effort: the synchronization result never depends on
// whether anyone was listening.
type MessageEvent struct {
	ConversationID string               `json:"conversation_id"`
	Message        domain.MessageRecord `json:"message"`
}

// EventService fans message events out over redis pub/sub.
type EventService struct {
	rdb *redis.Client
}

func NewEventService(redisClient *redis.Client) *EventService {
	return &EventService{
		rdb: redisClient,
	}
}

func (s *EventService) Publish(ctx context.Context, event MessageEvent) error {
	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := s.rdb.Publish(ctx, eventChannel, jsonstr).Err(); err != nil {
		return err
	}

	return nil
}

// Realtime pumps events whose conversation id matches one of the
// currently subscribed prefixes into output. input replaces the prefix
// set; closing input or cancelling ctx ends the pump.
func (s *EventService) Realtime(ctx context.Context, input <-chan []string, output chan<- MessageEvent) {
	pubsub := s.rdb.Subscribe(ctx, eventChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	var prefixes []string

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-input:
			if !ok {
				return
			}
			prefixes = p
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event MessageEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.ErrorContext(
					ctx, "dropping undecodable event",
					slog.String("error", err.Error()),
					slog.String("module", "events"),
				)
				continue
			}
			if !matchesAny(prefixes, event.ConversationID) {
				continue
			}
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func matchesAny(prefixes []string, conversationID string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(conversationID, p) {
			return true
		}
	}
	return false
}
