package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBroadcaster publishes events to Redis so that every instance's Relay
// forwards them to its local clients.
type RedisBroadcaster struct {
	client *redis.Client
	prefix string
}

func NewRedisBroadcaster(client *redis.Client, prefix string) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, prefix: prefix}
}

// Publish publishes the event on <prefix><topic>
func (b *RedisBroadcaster) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, b.prefix+event.Topic, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Relay subscribes to every realtime channel and broadcasts into the local hub
type Relay struct {
	client *redis.Client
	prefix string
	hub    *Hub
	log    *logrus.Logger
}

func NewRelay(client *redis.Client, prefix string, hub *Hub, log *logrus.Logger) *Relay {
	return &Relay{client: client, prefix: prefix, hub: hub, log: log}
}

// Run blocks until ctx is cancelled or the subscription channel closes
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, r.prefix+"*")
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reporting readiness.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s*: %w", r.prefix, err)
	}
	r.log.Infof("Realtime relay subscribed to %s*", r.prefix)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("Realtime relay stopping")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.forward(msg)
		}
	}
}

func (r *Relay) forward(msg *redis.Message) {
	var event Event
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		r.log.Warnf("Failed to unmarshal event from channel %s: %+v", msg.Channel, err)
		return
	}

	topic := strings.TrimPrefix(msg.Channel, r.prefix)
	if event.Topic != "" && event.Topic != topic {
		r.log.Warnf("Event topic %s does not match channel %s, dropping", event.Topic, msg.Channel)
		return
	}
	r.hub.Broadcast(topic, event)
}
