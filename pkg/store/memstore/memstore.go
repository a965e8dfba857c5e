// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package memstore is an in-process store.MatchStore for development and tests.
// It follows the same conditional-update rules as the postgres store.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	pie "github.com/elliotchance/pie/v2"
	"github.com/mitchellh/copystructure"

	"github.com/vocabattle/battle-matchmaker/pkg/common"
	"github.com/vocabattle/battle-matchmaker/pkg/constants"
	"github.com/vocabattle/battle-matchmaker/pkg/models"
	"github.com/vocabattle/battle-matchmaker/pkg/notify"
	"github.com/vocabattle/battle-matchmaker/pkg/rating"
	"github.com/vocabattle/battle-matchmaker/pkg/store"
)

type Store struct {
	mu           sync.Mutex
	now          func() time.Time
	publisher    notify.Publisher
	queue        map[string]*models.QueueEntry
	matches      map[string]*models.MatchRecord
	participants map[string]*models.Participant

	// failWith, when set, is returned by every call.
	failWith error
}

type Option func(*Store)

// WithClock overrides the time source used for created/ended timestamps and age thresholds.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithPublisher(p notify.Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:          time.Now,
		publisher:    notify.Discard{},
		queue:        make(map[string]*models.QueueEntry),
		matches:      make(map[string]*models.MatchRecord),
		participants: make(map[string]*models.Participant),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.MatchStore = (*Store)(nil)

func clone[T any](v T) T {
	c, err := copystructure.Copy(v)
	if err != nil {
		panic(fmt.Sprintf("memstore: copy %T: %v", v, err))
	}
	return c.(T)
}

func (s *Store) Pair(ctx context.Context, req store.PairRequest) (store.PairResult, error) {
	if err := s.failure(); err != nil {
		return store.PairResult{}, err
	}
	if err := req.Validate(); err != nil {
		return store.PairResult{}, err
	}

	s.mu.Lock()
	result, events, err := s.pairLocked(req)
	s.mu.Unlock()
	if err != nil {
		return store.PairResult{}, err
	}

	for _, event := range events {
		_ = s.publisher.Publish(ctx, constants.QueueChannel(event.ParticipantID), event)
	}
	return result, nil
}

func (s *Store) pairLocked(req store.PairRequest) (store.PairResult, []notify.QueueEvent, error) {
	now := s.now()

	if existing := s.liveMatchedEntryLocked(req.ParticipantID, req.Mode); existing != nil {
		return store.PairResult{Paired: true, EntryID: existing.ID, MatchID: existing.MatchID, OpponentID: existing.OpponentID}, nil, nil
	}

	mine := s.waitingEntryLocked(req.ParticipantID, req.Mode)
	ownWaitingMatch := ""
	if mine != nil {
		ownWaitingMatch = mine.MatchID
	}
	if s.hasActiveMatchLocked(req.ParticipantID, ownWaitingMatch) {
		return store.PairResult{}, nil, fmt.Errorf("pair %s: %w", req.ParticipantID, models.ErrActiveMatchConflict)
	}

	probe := req.Probe()
	candidates := pie.Filter(pie.Values(s.queue), func(e *models.QueueEntry) bool {
		return e.Status == models.QueueStatusWaiting &&
			probe.Accepts(*e) &&
			rating.WithinTolerance(req.Rating, e.Rating, req.Tolerance)
	})
	candidates = pie.SortUsing(candidates, func(a, b *models.QueueEntry) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	})

	for _, opponent := range candidates {
		match := s.matches[opponent.MatchID]
		if match == nil || match.Status != models.MatchStatusWaiting || match.HasOpponent() {
			continue
		}

		participantID, grade := req.ParticipantID, req.ParticipantGrade
		match.Player2ID = &participantID
		match.Player2Grade = &grade
		match.Status = models.MatchStatusInProgress
		match.CreatedAt = now

		opponent.Status = models.QueueStatusMatched
		opponent.OpponentID = req.ParticipantID

		if mine != nil {
			s.cancelWaitingMatchLocked(mine.MatchID, now)
		} else {
			mine = &models.QueueEntry{ID: common.GenerateUUID(), ParticipantID: req.ParticipantID, Mode: req.Mode, GradeFilter: req.GradeFilter, CreatedAt: now}
			s.queue[mine.ID] = mine
		}
		mine.Rating = req.Rating
		mine.Tolerance = req.Tolerance
		mine.Status = models.QueueStatusMatched
		mine.MatchID = match.ID
		mine.OpponentID = opponent.ParticipantID

		events := []notify.QueueEvent{
			{EntryID: opponent.ID, ParticipantID: opponent.ParticipantID, Mode: req.Mode, Status: models.QueueStatusMatched, MatchID: match.ID, OpponentID: req.ParticipantID},
			{EntryID: mine.ID, ParticipantID: req.ParticipantID, Mode: req.Mode, Status: models.QueueStatusMatched, MatchID: match.ID, OpponentID: opponent.ParticipantID},
		}
		return store.PairResult{Paired: true, EntryID: mine.ID, MatchID: match.ID, OpponentID: opponent.ParticipantID}, events, nil
	}

	if mine != nil {
		mine.Rating = req.Rating
		mine.Tolerance = req.Tolerance
		return store.PairResult{EntryID: mine.ID, MatchID: mine.MatchID}, nil, nil
	}

	match := &models.MatchRecord{
		ID:           common.GenerateULID(now),
		Mode:         req.Mode,
		Grade:        req.GradeFilter,
		Player1ID:    req.ParticipantID,
		Player1Grade: req.ParticipantGrade,
		Status:       models.MatchStatusWaiting,
		CreatedAt:    now,
	}
	s.matches[match.ID] = match

	entry := &models.QueueEntry{
		ID:            common.GenerateUUID(),
		ParticipantID: req.ParticipantID,
		Mode:          req.Mode,
		GradeFilter:   req.GradeFilter,
		Rating:        req.Rating,
		Tolerance:     req.Tolerance,
		Status:        models.QueueStatusWaiting,
		CreatedAt:     now,
		MatchID:       match.ID,
	}
	s.queue[entry.ID] = entry

	return store.PairResult{EntryID: entry.ID, MatchID: match.ID}, nil, nil
}

func (s *Store) waitingEntryLocked(participantID string, mode models.Mode) *models.QueueEntry {
	for _, e := range s.queue {
		if e.ParticipantID == participantID && e.Mode == mode && e.Status == models.QueueStatusWaiting {
			return e
		}
	}
	return nil
}

func (s *Store) liveMatchedEntryLocked(participantID string, mode models.Mode) *models.QueueEntry {
	for _, e := range s.queue {
		if e.ParticipantID != participantID || e.Mode != mode || e.Status != models.QueueStatusMatched {
			continue
		}
		if m := s.matches[e.MatchID]; m != nil && m.Status == models.MatchStatusInProgress {
			return e
		}
	}
	return nil
}

func (s *Store) hasActiveMatchLocked(participantID string, exceptMatchID string) bool {
	for _, m := range s.matches {
		if m.ID != exceptMatchID && m.Status.IsActive() && m.Involves(participantID) {
			return true
		}
	}
	return false
}

func (s *Store) cancelWaitingMatchLocked(matchID string, now time.Time) {
	m := s.matches[matchID]
	if m == nil || m.Status != models.MatchStatusWaiting || m.HasOpponent() {
		return
	}
	m.Status = models.MatchStatusCancelled
	m.EndedAt = &now
}

func (s *Store) latestEntryLocked(participantID string, mode models.Mode) *models.QueueEntry {
	var latest *models.QueueEntry
	for _, e := range s.queue {
		if e.ParticipantID != participantID || e.Mode != mode {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) ||
			(e.CreatedAt.Equal(latest.CreatedAt) && latest.Status == models.QueueStatusCancelled) {
			latest = e
		}
	}
	return latest
}

func (s *Store) QueueStatus(_ context.Context, participantID string, mode models.Mode) (store.QueueStatusResult, error) {
	if err := s.failure(); err != nil {
		return store.QueueStatusResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.latestEntryLocked(participantID, mode)
	if e == nil {
		return store.QueueStatusResult{}, nil
	}
	result := store.QueueStatusResult{Found: true, EntryID: e.ID, Status: e.Status}
	if e.Status == models.QueueStatusMatched {
		result.MatchID = e.MatchID
		result.OpponentID = e.OpponentID
	}
	return result, nil
}

func (s *Store) LeaveQueue(_ context.Context, participantID string, mode models.Mode) error {
	if err := s.failure(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, e := range s.queue {
		if e.ParticipantID == participantID && e.Mode == mode && e.Status == models.QueueStatusWaiting {
			e.Status = models.QueueStatusCancelled
			s.cancelWaitingMatchLocked(e.MatchID, now)
		}
	}
	return nil
}

func (s *Store) UpdateQueueStatus(_ context.Context, entryID string, from, to models.QueueStatus) (bool, error) {
	if err := s.failure(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.queue[entryID]
	if e == nil || e.Status != from {
		return false, nil
	}
	e.Status = to
	return true, nil
}

func (s *Store) UpdateMatchStatus(_ context.Context, matchID string, from []models.MatchStatus, to models.MatchStatus) (bool, error) {
	if err := s.failure(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.matches[matchID]
	if m == nil || !common.Contains(from, m.Status) {
		return false, nil
	}
	s.transitionLocked(m, to)
	return true, nil
}

func (s *Store) transitionLocked(m *models.MatchRecord, to models.MatchStatus) {
	m.Status = to
	if to.IsTerminal() {
		now := s.now()
		m.EndedAt = &now
	}
}

func (s *Store) SweepQueue(_ context.Context, sweep store.QueueSweep) (int64, error) {
	if err := s.failure(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, e := range s.queue {
		if e.Status != sweep.From {
			continue
		}
		if sweep.ParticipantID != "" && e.ParticipantID != sweep.ParticipantID {
			continue
		}
		if !sweep.CreatedBefore.IsZero() && !e.CreatedAt.Before(sweep.CreatedBefore) {
			continue
		}
		e.Status = sweep.To
		n++
	}
	return n, nil
}

func (s *Store) SweepMatches(_ context.Context, sweep store.MatchSweep) (int64, error) {
	if err := s.failure(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, m := range s.matches {
		if m.Status != sweep.From {
			continue
		}
		if sweep.ParticipantID != "" && !m.Involves(sweep.ParticipantID) {
			continue
		}
		if !sweep.CreatedBefore.IsZero() && !m.CreatedAt.Before(sweep.CreatedBefore) {
			continue
		}
		s.transitionLocked(m, sweep.To)
		n++
	}
	return n, nil
}

func (s *Store) LatestActiveMatch(_ context.Context, participantID string) (*models.MatchRecord, error) {
	if err := s.failure(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.MatchRecord
	for _, m := range s.matches {
		if !m.Status.IsActive() || !m.Involves(participantID) {
			continue
		}
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	return clone(latest), nil
}

func (s *Store) GetMatch(_ context.Context, matchID string) (*models.MatchRecord, error) {
	if err := s.failure(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.matches[matchID]
	if m == nil {
		return nil, models.ErrNotFound
	}
	return clone(m), nil
}

func (s *Store) UpdateProgress(_ context.Context, matchID string, participantID string, progress models.Progress) error {
	if err := s.failure(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.matches[matchID]
	if m == nil {
		return models.ErrNotFound
	}
	if m.Status != models.MatchStatusInProgress {
		return models.ErrMatchNotActive
	}
	switch {
	case m.Player1ID == participantID:
		m.Player1Progress = progress
	case m.HasOpponent() && *m.Player2ID == participantID:
		m.Player2Progress = progress
	default:
		return fmt.Errorf("participant %s in match %s: %w", participantID, matchID, models.ErrNotFound)
	}
	return nil
}

func (s *Store) FinishMatch(_ context.Context, req store.FinishRequest) error {
	if err := s.failure(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.matches[req.MatchID]
	if m == nil {
		return models.ErrNotFound
	}
	if m.Status != models.MatchStatusInProgress {
		return models.ErrMatchNotActive
	}
	endedAt := req.EndedAt
	m.Status = models.MatchStatusFinished
	m.EndedAt = &endedAt
	m.WinnerID = req.WinnerID

	for _, p := range req.Participants {
		p := p
		s.participants[p.ID] = &p
	}
	return nil
}

func (s *Store) GetParticipant(_ context.Context, participantID string) (*models.Participant, error) {
	if err := s.failure(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.participants[participantID]
	if p == nil {
		return nil, models.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *Store) SaveParticipant(_ context.Context, participant models.Participant) error {
	if err := s.failure(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.participants[participant.ID] = &participant
	return nil
}

// PutMatch inserts or replaces a match record as-is. Tests use it to seed fixtures.
func (s *Store) PutMatch(m models.MatchRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = clone(&m)
}

// PutQueueEntry inserts or replaces a queue entry as-is.
func (s *Store) PutQueueEntry(e models.QueueEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue[e.ID] = &e
}

// QueueEntries returns copies of all queue entries of a participant.
func (s *Store) QueueEntries(participantID string) []models.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.QueueEntry
	for _, e := range s.queue {
		if e.ParticipantID == participantID {
			out = append(out, *e)
		}
	}
	return out
}

func (s *Store) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failWith
}

// SetFailure makes every subsequent call return err, simulating an unavailable backend.
// nil restores normal operation.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}
