package redis

import (
	"auction-settlement/internal/domain"
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
)

// EventsChannel carries settlement events for other services.
const EventsChannel = "auction_events"

type publishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type EventPublisherImpl struct {
	client publishClient
}

func NewEventPublisher(client publishClient) *EventPublisherImpl {
	return &EventPublisherImpl{client: client}
}

func (r *EventPublisherImpl) PublishSettlementEvent(ctx context.Context, event *domain.SettlementEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return r.client.Publish(ctx, EventsChannel, eventData).Err()
}
