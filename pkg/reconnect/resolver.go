// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package reconnect finds a participant's in-flight battle on (re)entry and decides whether it can be resumed.
package reconnect

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/vocabattle/battle-matchmaker/pkg/config"
	"github.com/vocabattle/battle-matchmaker/pkg/constants"
	"github.com/vocabattle/battle-matchmaker/pkg/envelope"
	"github.com/vocabattle/battle-matchmaker/pkg/metrics"
	"github.com/vocabattle/battle-matchmaker/pkg/models"
	"github.com/vocabattle/battle-matchmaker/pkg/store"
)

// Info describes a resumable battle from the reconnecting participant's side.
type Info struct {
	MatchID          string      `json:"match_id"`
	Mode             models.Mode `json:"mode"`
	OpponentID       string      `json:"opponent_id"`
	OpponentName     string      `json:"opponent_name"`
	OpponentAvatar   string      `json:"opponent_avatar,omitempty"`
	MyScore          int         `json:"my_score"`
	OpponentScore    int         `json:"opponent_score"`
	QuestionIndex    int         `json:"question_index"`
	MyFinished       bool        `json:"my_finished"`
	OpponentFinished bool        `json:"opponent_finished"`
	RemainingSeconds int         `json:"remaining_seconds"`
}

type Resolver struct {
	store   store.MatchStore
	metrics metrics.MatchmakingMetrics
	ceiling time.Duration
	now     func() time.Time
}

type Option func(*Resolver)

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func New(cfg *config.Config, matchStore store.MatchStore, mm metrics.MatchmakingMetrics, opts ...Option) *Resolver {
	r := &Resolver{
		store:   matchStore,
		metrics: mm,
		ceiling: cfg.ReconnectCeiling(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the participant's resumable battle, or nil when there is none.
// Expired battles are cancelled on the way.
func (r *Resolver) Resolve(scope *envelope.Scope, participantID string) (*Info, error) {
	log := scope.Log.WithField(envelope.ParticipantTag, participantID)

	match, err := r.store.LatestActiveMatch(scope.Ctx, participantID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up active match for %s: %w", participantID, err)
	}
	log = log.WithField(envelope.MatchTag, match.ID)

	age := match.Age(r.now())
	if age > r.ceiling {
		log.WithField("age", age).Info("active match is past the reconnect ceiling, cancelling")
		return nil, r.cancel(scope, match.ID, constants.ReapReasonReconnectExpired)
	}

	if !match.HasOpponent() {
		return nil, nil
	}

	mode := match.EffectiveMode()
	remaining := mode.MatchDuration() - age
	if remaining <= 0 {
		log.WithField("mode", mode).Info("battle time already ran out, cancelling")
		return nil, r.cancel(scope, match.ID, constants.ReapReasonReconnectExpired)
	}

	mine, theirs := match.ProgressOf(participantID)
	myFinished, questionIndex, myScore := mine.Decode()
	opponentFinished, _, opponentScore := theirs.Decode()

	info := &Info{
		MatchID:          match.ID,
		Mode:             mode,
		OpponentID:       match.OpponentOf(participantID),
		MyScore:          myScore,
		OpponentScore:    opponentScore,
		QuestionIndex:    questionIndex,
		MyFinished:       myFinished,
		OpponentFinished: opponentFinished,
		RemainingSeconds: int(math.Ceil(remaining.Seconds())),
	}

	opponent, err := r.store.GetParticipant(scope.Ctx, info.OpponentID)
	switch {
	case err == nil:
		info.OpponentName = opponent.DisplayName
		info.OpponentAvatar = opponent.AvatarURL
	case !errors.Is(err, models.ErrNotFound):
		log.WithError(err).Warn("opponent profile unavailable")
	}

	r.metrics.ReconnectOffered(string(mode))
	return info, nil
}

// Dismiss cancels the participant's battle so it is never offered again.
func (r *Resolver) Dismiss(scope *envelope.Scope, participantID string, matchID string) error {
	match, err := r.store.GetMatch(scope.Ctx, matchID)
	if err != nil {
		return fmt.Errorf("dismiss %s: %w", matchID, err)
	}
	if !match.Involves(participantID) {
		return fmt.Errorf("dismiss %s for %s: %w", matchID, participantID, models.ErrNotFound)
	}
	return r.cancel(scope, matchID, constants.ReapReasonDismissed)
}

// cancel moves a still-active match to cancelled. A record someone else already ended is left alone.
func (r *Resolver) cancel(scope *envelope.Scope, matchID string, reason string) error {
	ok, err := r.store.UpdateMatchStatus(scope.Ctx, matchID, models.ActiveMatchStatuses, models.MatchStatusCancelled)
	if err != nil {
		return fmt.Errorf("cancel match %s: %w", matchID, err)
	}
	if ok {
		r.metrics.AddReapedRecords("match", reason, 1)
	}
	return nil
}
