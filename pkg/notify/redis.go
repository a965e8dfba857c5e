// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisFeed carries queue events over redis pub/sub, so that a pairing made by one
// instance reaches a session held by another.
type RedisFeed struct {
	client *redis.Client
	log    *logrus.Entry
}

func NewRedisFeed(client *redis.Client, log *logrus.Entry) *RedisFeed {
	return &RedisFeed{client: client, log: log}
}

func (f *RedisFeed) Publish(ctx context.Context, channel string, event QueueEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed, then delivers events on a
// dedicated goroutine until Unsubscribe.
func (f *RedisFeed) Subscribe(ctx context.Context, channel string, handler Handler) (Subscription, error) {
	pubsub := f.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	go func() {
		for msg := range pubsub.Channel() {
			var event QueueEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				f.log.WithError(err).WithField("channel", channel).Warn("dropping malformed queue event")
				continue
			}
			handler(event)
		}
	}()

	return redisSubscription{pubsub: pubsub}, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
}

func (s redisSubscription) Unsubscribe() error {
	return s.pubsub.Close()
}
