// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package notify

import (
	"context"
	"sort"
	"sync"
)

// Hub is an in-process Feed. Handlers run synchronously on the publishing goroutine,
// in subscription order.
type Hub struct {
	mu       sync.Mutex
	nextID   int
	channels map[string]map[int]Handler
}

func NewHub() *Hub {
	return &Hub{channels: make(map[string]map[int]Handler)}
}

func (h *Hub) Publish(_ context.Context, channel string, event QueueEvent) error {
	h.mu.Lock()
	subs := h.channels[channel]
	ids := make([]int, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, subs[id])
	}
	h.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
	return nil
}

func (h *Hub) Subscribe(_ context.Context, channel string, handler Handler) (Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[int]Handler)
	}
	h.channels[channel][id] = handler

	return hubSubscription{hub: h, channel: channel, id: id}, nil
}

// Subscribers counts live subscriptions on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels[channel])
}

type hubSubscription struct {
	hub     *Hub
	channel string
	id      int
}

func (s hubSubscription) Unsubscribe() error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	delete(s.hub.channels[s.channel], s.id)
	if len(s.hub.channels[s.channel]) == 0 {
		delete(s.hub.channels, s.channel)
	}
	return nil
}
