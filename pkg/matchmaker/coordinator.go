// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package matchmaker is the Queue Coordinator: it joins participants to the skill-based queue and
// waits for a pairing through both polling and a push subscription.
package matchmaker

import (
	"context"
	"time"

	"github.com/vocabattle/battle-matchmaker/pkg/config"
	"github.com/vocabattle/battle-matchmaker/pkg/envelope"
	"github.com/vocabattle/battle-matchmaker/pkg/metrics"
	"github.com/vocabattle/battle-matchmaker/pkg/models"
	"github.com/vocabattle/battle-matchmaker/pkg/notify"
	"github.com/vocabattle/battle-matchmaker/pkg/scheduler"
	"github.com/vocabattle/battle-matchmaker/pkg/store"
)

// Now is a variable that holds the current time function.
// It can be overridden through WithClock.
var Now = time.Now

// ParticipantSweeper clears a participant's own stale records before a fresh search.
type ParticipantSweeper interface {
	SweepParticipant(ctx context.Context, participantID string) (int64, error)
}

// MatchFoundFunc is invoked exactly once per search with the pairing result.
type MatchFoundFunc func(matchID string, opponentID string)

type Coordinator struct {
	store        store.MatchStore
	feed         notify.Subscriber
	scheduler    scheduler.Scheduler
	sweeper      ParticipantSweeper
	metrics      metrics.MatchmakingMetrics
	scope        *envelope.Scope
	pollInterval time.Duration
	now          func() time.Time
}

type Option func(*Coordinator)

func WithSweeper(sweeper ParticipantSweeper) Option {
	return func(c *Coordinator) { c.sweeper = sweeper }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(
	scope *envelope.Scope,
	cfg *config.Config,
	matchStore store.MatchStore,
	feed notify.Subscriber,
	sched scheduler.Scheduler,
	mm metrics.MatchmakingMetrics,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		store:        matchStore,
		feed:         feed,
		scheduler:    sched,
		metrics:      mm,
		scope:        scope,
		pollInterval: cfg.PollInterval(),
		now:          Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewSession starts an idle session for one participant in one mode.
// gradeFilter must be a real grade for ranked play; models.AnyGrade lets a free search pair across grades.
func (c *Coordinator) NewSession(participant models.Participant, mode models.Mode, gradeFilter int) *Session {
	return &Session{
		c:           c,
		participant: participant,
		mode:        mode,
		gradeFilter: gradeFilter,
		state:       StateIdle,
		log: c.scope.Log.
			WithField(envelope.ParticipantTag, participant.ID).
			WithField(envelope.ModeTag, string(mode)),
	}
}
