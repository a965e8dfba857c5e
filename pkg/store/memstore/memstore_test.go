// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-openapi/swag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vocabattle/battle-matchmaker/pkg/models"
	"github.com/vocabattle/battle-matchmaker/pkg/notify"
	"github.com/vocabattle/battle-matchmaker/pkg/store"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func rankedRequest(id string, rating int) store.PairRequest {
	return store.PairRequest{ParticipantID: id, Mode: models.ModeRanked, GradeFilter: 7, ParticipantGrade: 7, Rating: rating, Tolerance: 50}
}

func TestPairCreatesWaitingRecordThenAttachesOpponent(t *testing.T) {
	ctx := context.Background()
	hub := notify.NewHub()
	s := New(WithClock(func() time.Time { return t0 }), WithPublisher(hub))

	var events []notify.QueueEvent
	_, err := hub.Subscribe(ctx, "queue:alice", func(e notify.QueueEvent) { events = append(events, e) })
	require.NoError(t, err)

	first, err := s.Pair(ctx, rankedRequest("alice", 1000))
	require.NoError(t, err)
	assert.False(t, first.Paired)
	require.NotEmpty(t, first.MatchID)

	waiting, err := s.GetMatch(ctx, first.MatchID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusWaiting, waiting.Status)
	assert.False(t, waiting.HasOpponent())

	second, err := s.Pair(ctx, rankedRequest("bob", 1040))
	require.NoError(t, err)
	require.True(t, second.Paired)
	assert.Equal(t, first.MatchID, second.MatchID)
	assert.Equal(t, "alice", second.OpponentID)

	live, err := s.GetMatch(ctx, first.MatchID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInProgress, live.Status)
	assert.Equal(t, "bob", *live.Player2ID)

	status, err := s.QueueStatus(ctx, "alice", models.ModeRanked)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusMatched, status.Status)
	assert.Equal(t, "bob", status.OpponentID)

	require.Len(t, events, 1)
	assert.Equal(t, first.MatchID, events[0].MatchID)

	again, err := s.Pair(ctx, rankedRequest("alice", 1000))
	require.NoError(t, err)
	assert.True(t, again.Paired, "re-issuing pair after being matched reports the same pairing")
	assert.Equal(t, first.MatchID, again.MatchID)
}

func TestPairRespectsToleranceGradeAndMode(t *testing.T) {
	ctx := context.Background()
	s := New(WithClock(func() time.Time { return t0 }))

	_, err := s.Pair(ctx, rankedRequest("alice", 1000))
	require.NoError(t, err)

	tooStrong, err := s.Pair(ctx, rankedRequest("carol", 1200))
	require.NoError(t, err)
	assert.False(t, tooStrong.Paired)

	otherGrade := rankedRequest("dave", 1000)
	otherGrade.GradeFilter, otherGrade.ParticipantGrade = 8, 8
	res, err := s.Pair(ctx, otherGrade)
	require.NoError(t, err)
	assert.False(t, res.Paired)

	free := store.PairRequest{ParticipantID: "erin", Mode: models.ModeFree, GradeFilter: models.AnyGrade, ParticipantGrade: 8, Rating: 1000, Tolerance: 50}
	res, err = s.Pair(ctx, free)
	require.NoError(t, err)
	assert.False(t, res.Paired)

	widened := rankedRequest("carol", 1200)
	widened.Tolerance = 200
	res, err = s.Pair(ctx, widened)
	require.NoError(t, err)
	assert.True(t, res.Paired)
	assert.Equal(t, "alice", res.OpponentID)

	entries := s.QueueEntries("carol")
	require.Len(t, entries, 1)
	assert.Equal(t, models.QueueStatusMatched, entries[0].Status)
}

func TestPairRejectsActiveMatchConflict(t *testing.T) {
	ctx := context.Background()
	s := New(WithClock(func() time.Time { return t0 }))
	s.PutMatch(models.MatchRecord{ID: "old", Mode: models.ModeFree, Player1ID: "alice", Player2ID: swag.String("zed"), Status: models.MatchStatusInProgress, CreatedAt: t0.Add(-time.Hour)})

	_, err := s.Pair(ctx, rankedRequest("alice", 1000))
	require.Error(t, err)
	assert.True(t, models.IsActiveMatchConflict(err))
}

func TestPairValidatesRequest(t *testing.T) {
	s := New()
	req := rankedRequest("alice", 1000)
	req.GradeFilter = models.AnyGrade

	_, err := s.Pair(context.Background(), req)
	assert.True(t, errors.Is(err, models.ErrInvalidGradeFilter))
}

func TestConcurrentPairingProducesOneMatch(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	results := make([]store.PairResult, 2)
	for i, id := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			res, err := s.Pair(ctx, rankedRequest(id, 1000))
			assert.NoError(t, err)
			results[i] = res
		}(i, id)
	}
	wg.Wait()

	paired := 0
	for _, r := range results {
		if r.Paired {
			paired++
		}
	}
	assert.Equal(t, 1, paired)
	assert.Equal(t, results[0].MatchID, results[1].MatchID)
}

func TestLeaveQueueIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.LeaveQueue(ctx, "nobody", models.ModeFree))

	res, err := s.Pair(ctx, rankedRequest("alice", 1000))
	require.NoError(t, err)
	require.NoError(t, s.LeaveQueue(ctx, "alice", models.ModeRanked))
	require.NoError(t, s.LeaveQueue(ctx, "alice", models.ModeRanked))

	status, err := s.QueueStatus(ctx, "alice", models.ModeRanked)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusCancelled, status.Status)

	m, err := s.GetMatch(ctx, res.MatchID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCancelled, m.Status)
	assert.NotNil(t, m.EndedAt)
}

func TestConditionalUpdatesAndSweeps(t *testing.T) {
	ctx := context.Background()
	s := New(WithClock(func() time.Time { return t0 }))
	s.PutMatch(models.MatchRecord{ID: "m1", Player1ID: "alice", Status: models.MatchStatusWaiting, CreatedAt: t0.Add(-6 * time.Minute)})
	s.PutMatch(models.MatchRecord{ID: "m2", Player1ID: "bob", Status: models.MatchStatusWaiting, CreatedAt: t0.Add(-4 * time.Minute)})

	ok, err := s.UpdateMatchStatus(ctx, "m1", []models.MatchStatus{models.MatchStatusInProgress}, models.MatchStatusAbandoned)
	require.NoError(t, err)
	assert.False(t, ok, "status guard must reject a record in another status")

	n, err := s.SweepMatches(ctx, store.MatchSweep{From: models.MatchStatusWaiting, To: models.MatchStatusCancelled, CreatedBefore: t0.Add(-5 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	m1, _ := s.GetMatch(ctx, "m1")
	m2, _ := s.GetMatch(ctx, "m2")
	assert.Equal(t, models.MatchStatusCancelled, m1.Status)
	assert.Equal(t, models.MatchStatusWaiting, m2.Status)

	n, err = s.SweepMatches(ctx, store.MatchSweep{ParticipantID: "bob", From: models.MatchStatusWaiting, To: models.MatchStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.PutMatch(models.MatchRecord{ID: "m1", Player1ID: "alice", Player2ID: swag.String("bob"), Status: models.MatchStatusInProgress, CreatedAt: t0})

	m, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	*m.Player2ID = "mallory"

	again, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "bob", *again.Player2ID)
}

func TestFinishMatchRequiresInProgress(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.PutMatch(models.MatchRecord{ID: "m1", Player1ID: "alice", Status: models.MatchStatusCancelled, CreatedAt: t0})

	err := s.FinishMatch(ctx, store.FinishRequest{MatchID: "m1", EndedAt: t0})
	assert.True(t, errors.Is(err, models.ErrMatchNotActive))

	_, err = s.GetMatch(ctx, "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
