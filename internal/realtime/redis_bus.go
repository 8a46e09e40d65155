package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wishwell/wishwell-backend/pkg/logger"
	redisclient "github.com/wishwell/wishwell-backend/pkg/redis"
)

// RedisBus fans funding events across instances over a redis channel.
// Each instance publishes to the channel and forwards inbound messages to
// its local hub.
type RedisBus struct {
	client  *redisclient.Client
	hub     *Hub
	channel string
	logg    *logger.Logger
}

// RedisBusParams bundles the bus dependencies.
type RedisBusParams struct {
	Client  *redisclient.Client
	Hub     *Hub
	Channel string
	Logger  *logger.Logger
}

// NewRedisBus validates and wires the multi-instance publisher.
func NewRedisBus(params RedisBusParams) (*RedisBus, error) {
	if params.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if params.Hub == nil {
		return nil, errors.New("hub is required")
	}
	channel := params.Channel
	if channel == "" {
		channel = "ww:funding-events"
	}
	return &RedisBus{
		client:  params.Client,
		hub:     params.Hub,
		channel: channel,
		logg:    params.Logger,
	}, nil
}

// Publish pushes the event onto the redis channel. The local hub receives
// it through the forwarder like every other instance.
func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal funding event: %w", err)
	}
	return b.client.Publish(ctx, b.channel, payload)
}

// StartForwarder subscribes to the channel and pumps inbound events into
// the local hub until ctx is cancelled.
func (b *RedisBus) StartForwarder(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)

	// confirm the subscription is live before returning
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok || msg == nil {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					if b.logg != nil {
						b.logg.Error(ctx, "bad funding event payload", err)
					}
					continue
				}
				b.hub.Broadcast(event)
			}
		}
	}()

	return nil
}
