// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vocabattle/battle-matchmaker/pkg/models"
)

func TestHubDeliversToChannelSubscribersOnly(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()

	var got []QueueEvent
	sub, err := hub.Subscribe(ctx, "queue:p1", func(e QueueEvent) { got = append(got, e) })
	require.NoError(t, err)

	var other int
	_, err = hub.Subscribe(ctx, "queue:p2", func(QueueEvent) { other++ })
	require.NoError(t, err)

	require.NoError(t, hub.Publish(ctx, "queue:p1", QueueEvent{ParticipantID: "p1", Status: models.QueueStatusMatched, MatchID: "m1"}))
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].MatchID)
	assert.Equal(t, 0, other)

	require.NoError(t, sub.Unsubscribe())
	assert.Equal(t, 0, hub.Subscribers("queue:p1"))

	require.NoError(t, hub.Publish(ctx, "queue:p1", QueueEvent{ParticipantID: "p1"}))
	assert.Len(t, got, 1)
}
