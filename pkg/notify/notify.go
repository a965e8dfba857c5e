// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package notify delivers row-level queue updates on participant-scoped channels.
package notify

import (
	"context"

	"github.com/vocabattle/battle-matchmaker/pkg/models"
)

// QueueEvent is an update to a participant's queue record.
type QueueEvent struct {
	EntryID       string             `json:"entry_id"`
	ParticipantID string             `json:"participant_id"`
	Mode          models.Mode        `json:"mode"`
	Status        models.QueueStatus `json:"status"`
	MatchID       string             `json:"match_id,omitempty"`
	OpponentID    string             `json:"opponent_id,omitempty"`
}

type Handler func(QueueEvent)

type Subscription interface {
	Unsubscribe() error
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event QueueEvent) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler Handler) (Subscription, error)
}

// Feed is both ends of a notification transport.
type Feed interface {
	Publisher
	Subscriber
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, string, QueueEvent) error { return nil }
