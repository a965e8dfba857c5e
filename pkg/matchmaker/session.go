// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package matchmaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vocabattle/battle-matchmaker/pkg/constants"
	"github.com/vocabattle/battle-matchmaker/pkg/envelope"
	"github.com/vocabattle/battle-matchmaker/pkg/models"
	"github.com/vocabattle/battle-matchmaker/pkg/notify"
	"github.com/vocabattle/battle-matchmaker/pkg/rating"
	"github.com/vocabattle/battle-matchmaker/pkg/scheduler"
	"github.com/vocabattle/battle-matchmaker/pkg/store"
)

type State string

const (
	StateIdle      State = "idle"
	StateJoining   State = "joining"
	StateSearching State = "searching"
	StateMatched   State = "matched"
)

// SearchExpiredMessage is the session error once the queue entry was cancelled server-side.
const SearchExpiredMessage = "Your search expired. Please join the queue again."

// Session is one participant's queue state machine: idle -> searching -> matched | idle.
// All transitions happen under mu; store calls and callbacks run outside it.
type Session struct {
	c           *Coordinator
	participant models.Participant
	mode        models.Mode
	gradeFilter int
	log         *logrus.Entry

	mu sync.Mutex
	// generation changes on every join and leave; results tagged with an older generation are dropped.
	generation   int
	state        State
	err          string
	found        bool
	matchID      string
	opponentID   string
	startedAt    time.Time
	tolerance    int
	onMatchFound MatchFoundFunc
	search       *envelope.Scope
	cancelPoll   scheduler.CancelFunc
	subscription notify.Subscription
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Mode() models.Mode {
	return s.mode
}

func (s *Session) GradeFilter() int {
	return s.gradeFilter
}

// Err is the session-level error of the last failed join, or "".
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Match returns the pairing once the session is matched.
func (s *Session) Match() (matchID string, opponentID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchID, s.opponentID, s.state == StateMatched
}

// Tolerance is the rating window the current search was last issued with.
func (s *Session) Tolerance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tolerance
}

func (s *Session) pairRequest(tolerance int) store.PairRequest {
	return store.PairRequest{
		ParticipantID:    s.participant.ID,
		Mode:             s.mode,
		GradeFilter:      s.gradeFilter,
		ParticipantGrade: s.participant.Grade,
		Rating:           s.participant.Rating(s.mode),
		Tolerance:        tolerance,
	}
}

// Join starts a search. It is a no-op while a join or search is already running.
// An immediate pairing calls onMatchFound before Join returns; otherwise the session
// keeps searching in the background until a pairing is observed or Leave is called.
func (s *Session) Join(scope *envelope.Scope, onMatchFound MatchFoundFunc) error {
	s.mu.Lock()
	if s.state == StateJoining || s.state == StateSearching {
		s.mu.Unlock()
		return nil
	}
	s.generation++
	generation := s.generation
	s.state = StateJoining
	s.err = ""
	s.found = false
	s.matchID, s.opponentID = "", ""
	s.startedAt = s.c.now()
	s.tolerance = rating.ToleranceWindow(0)
	s.onMatchFound = onMatchFound
	tolerance := s.tolerance
	s.mu.Unlock()

	scope.SetAttributes(envelope.ParticipantTag, s.participant.ID)
	scope.SetAttributes(envelope.ModeTag, string(s.mode))

	if s.c.sweeper != nil {
		if n, err := s.c.sweeper.SweepParticipant(scope.Ctx, s.participant.ID); err != nil {
			s.log.WithError(err).Warn("pre-join sweep failed")
		} else if n > 0 {
			s.log.WithField("records", n).Info("cleared own stale records before joining")
		}
	}

	result, err := s.c.store.Pair(scope.Ctx, s.pairRequest(tolerance))

	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		if err == nil && !result.Paired {
			// Leave ran while the pairing call was in flight and may have missed the new entry.
			if leaveErr := s.c.store.LeaveQueue(scope.Ctx, s.participant.ID, s.mode); leaveErr != nil {
				s.log.WithError(leaveErr).Warn("cancel queue entry after leave failed")
			}
		}
		return nil
	}

	if err != nil {
		s.state = StateIdle
		if models.IsActiveMatchConflict(err) {
			s.err = models.ActiveMatchConflictMessage
		} else {
			s.err = fmt.Sprintf("Failed to join the queue: %v", err)
		}
		s.mu.Unlock()
		s.log.WithError(err).Error("join queue failed")
		return err
	}

	s.c.metrics.QueueJoined(string(s.mode))

	if result.Paired {
		s.found = true
		s.state = StateMatched
		s.matchID, s.opponentID = result.MatchID, result.OpponentID
		s.mu.Unlock()

		s.c.metrics.MatchFound(string(s.mode), constants.MatchSourceImmediate)
		s.log.WithField(envelope.MatchTag, result.MatchID).Info("paired immediately")
		if onMatchFound != nil {
			onMatchFound(result.MatchID, result.OpponentID)
		}
		return nil
	}

	s.state = StateSearching
	s.search = s.c.scope.NewChildScopeWithContext(context.Background(), "matchmaker.search")
	search := s.search
	s.mu.Unlock()

	s.log.WithField(envelope.MatchTag, result.MatchID).Info("waiting for an opponent")
	s.startChannels(search, generation)
	return nil
}

// startChannels opens the push subscription and the poll job for one search generation.
func (s *Session) startChannels(search *envelope.Scope, generation int) {
	subscription, err := s.c.feed.Subscribe(search.Ctx, constants.QueueChannel(s.participant.ID), func(event notify.QueueEvent) {
		if event.Status != models.QueueStatusMatched || event.MatchID == "" || event.Mode != s.mode {
			return
		}
		s.observe(generation, event.MatchID, event.OpponentID, constants.MatchSourcePush)
	})
	if err != nil {
		s.log.WithError(err).Warn("push subscription failed, relying on polling")
	}

	cancelPoll, err := s.c.scheduler.Every("queue-poll:"+s.participant.ID, s.c.pollInterval, func() {
		s.poll(search, generation)
	})
	if err != nil {
		s.log.WithError(err).Warn("poll job failed to start, relying on push")
	}

	s.mu.Lock()
	if generation != s.generation || s.state != StateSearching {
		s.mu.Unlock()
		stopChannels(cancelPoll, subscription, s.log)
		return
	}
	s.cancelPoll = cancelPoll
	s.subscription = subscription
	s.mu.Unlock()
}

func (s *Session) poll(search *envelope.Scope, generation int) {
	s.mu.Lock()
	if generation != s.generation || s.state != StateSearching {
		s.mu.Unlock()
		return
	}
	widened := rating.ToleranceFor(s.c.now().Sub(s.startedAt))
	if widened <= s.tolerance {
		widened = 0
	}
	s.mu.Unlock()

	status, err := s.c.store.QueueStatus(search.Ctx, s.participant.ID, s.mode)
	if err != nil {
		s.log.WithError(err).Warn("queue status check failed")
		return
	}
	if status.Found && status.Status == models.QueueStatusMatched && status.MatchID != "" {
		s.observe(generation, status.MatchID, status.OpponentID, constants.MatchSourcePoll)
		return
	}
	if status.Found && status.Status == models.QueueStatusCancelled {
		s.expire(generation)
		return
	}
	if widened == 0 {
		return
	}

	result, err := s.c.store.Pair(search.Ctx, s.pairRequest(widened))
	if err != nil {
		s.log.WithError(err).WithField("tolerance", widened).Warn("widened pairing attempt failed")
		return
	}
	s.mu.Lock()
	if generation == s.generation && widened > s.tolerance {
		s.tolerance = widened
	}
	s.mu.Unlock()
	if result.Paired {
		s.observe(generation, result.MatchID, result.OpponentID, constants.MatchSourcePoll)
	}
}

// observe honours the first pairing seen by either channel and drops the rest.
func (s *Session) observe(generation int, matchID, opponentID, source string) {
	s.mu.Lock()
	if generation != s.generation || s.found || s.state != StateSearching {
		s.mu.Unlock()
		return
	}
	s.found = true
	s.state = StateMatched
	s.matchID, s.opponentID = matchID, opponentID
	callback := s.onMatchFound
	elapsed := s.c.now().Sub(s.startedAt)
	cancelPoll, subscription, search := s.detachLocked()
	s.mu.Unlock()

	stopChannels(cancelPoll, subscription, s.log)
	s.c.metrics.MatchFound(string(s.mode), source)
	s.c.metrics.AddSearchElapsedTime(string(s.mode), elapsed)
	s.log.WithField(envelope.MatchTag, matchID).WithField("source", source).Info("match found")
	if search != nil {
		search.Finish()
	}
	if callback != nil {
		callback(matchID, opponentID)
	}
}

func (s *Session) expire(generation int) {
	s.mu.Lock()
	if generation != s.generation || s.state != StateSearching {
		s.mu.Unlock()
		return
	}
	s.generation++
	s.state = StateIdle
	s.err = SearchExpiredMessage
	cancelPoll, subscription, search := s.detachLocked()
	s.mu.Unlock()

	stopChannels(cancelPoll, subscription, s.log)
	if search != nil {
		search.Finish()
	}
	s.log.Info("queue entry cancelled server-side, search stopped")
}

// Leave stops both channels, then cancels the participant's queue entry. It is safe to call in any state.
func (s *Session) Leave(scope *envelope.Scope) error {
	s.mu.Lock()
	s.generation++
	if s.state != StateMatched {
		s.state = StateIdle
	}
	cancelPoll, subscription, search := s.detachLocked()
	s.mu.Unlock()

	stopChannels(cancelPoll, subscription, s.log)
	if search != nil {
		search.Finish()
	}

	if err := s.c.store.LeaveQueue(scope.Ctx, s.participant.ID, s.mode); err != nil {
		s.log.WithError(err).Error("leave queue failed")
		return fmt.Errorf("leave queue: %w", err)
	}
	return nil
}

func (s *Session) detachLocked() (scheduler.CancelFunc, notify.Subscription, *envelope.Scope) {
	cancelPoll, subscription, search := s.cancelPoll, s.subscription, s.search
	s.cancelPoll, s.subscription, s.search = nil, nil, nil
	return cancelPoll, subscription, search
}

func stopChannels(cancelPoll scheduler.CancelFunc, subscription notify.Subscription, log *logrus.Entry) {
	if cancelPoll != nil {
		cancelPoll()
	}
	if subscription != nil {
		if err := subscription.Unsubscribe(); err != nil {
			log.WithError(err).Warn("unsubscribe queue channel failed")
		}
	}
}
