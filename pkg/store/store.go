// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package store defines the Match Store the matchmaking core reads and writes.
// The core never assumes exclusive access: every mutation is conditional on the
// record still being in the expected prior status.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/vocabattle/battle-matchmaker/pkg/models"
)

/*
MatchStore is the durable table of queue entries, match records and participants.

Pair is the atomic find-or-create pairing primitive: it either attaches the caller to the oldest
acceptable waiting opponent (within req.Tolerance rating points) and reports the pairing, or makes
sure the caller has exactly one waiting entry (plus its waiting match record) and reports that it
is waiting. Calling Pair again while waiting refreshes the entry's tolerance and retries; calling it
after a pairing already happened reports that pairing again. Two participants calling Pair for each
other concurrently must end up in one match.

Implementations publish a notify.QueueEvent on both participants' queue channels when a pairing is made.
*/
type MatchStore interface {
	Pair(ctx context.Context, req PairRequest) (PairResult, error)
	QueueStatus(ctx context.Context, participantID string, mode models.Mode) (QueueStatusResult, error)
	// LeaveQueue cancels any waiting entry (and its waiting match record). Missing entries are not an error.
	LeaveQueue(ctx context.Context, participantID string, mode models.Mode) error

	UpdateQueueStatus(ctx context.Context, entryID string, from, to models.QueueStatus) (bool, error)
	UpdateMatchStatus(ctx context.Context, matchID string, from []models.MatchStatus, to models.MatchStatus) (bool, error)
	SweepQueue(ctx context.Context, sweep QueueSweep) (int64, error)
	SweepMatches(ctx context.Context, sweep MatchSweep) (int64, error)

	// LatestActiveMatch returns the most recent waiting or in-progress match involving the
	// participant, or models.ErrNotFound.
	LatestActiveMatch(ctx context.Context, participantID string) (*models.MatchRecord, error)
	GetMatch(ctx context.Context, matchID string) (*models.MatchRecord, error)
	UpdateProgress(ctx context.Context, matchID string, participantID string, progress models.Progress) error
	// FinishMatch moves an in-progress match to finished and saves both participants in one step.
	// It returns models.ErrMatchNotActive when the match already left in_progress.
	FinishMatch(ctx context.Context, req FinishRequest) error

	GetParticipant(ctx context.Context, participantID string) (*models.Participant, error)
	SaveParticipant(ctx context.Context, participant models.Participant) error
}

type PairRequest struct {
	ParticipantID    string
	Mode             models.Mode
	GradeFilter      int
	ParticipantGrade int
	Rating           int
	Tolerance        int
}

func (r PairRequest) Validate() error {
	if r.ParticipantID == "" {
		return fmt.Errorf("pair request: empty participant id")
	}
	if _, err := models.ParseMode(string(r.Mode)); err != nil {
		return fmt.Errorf("pair request: %w", err)
	}
	if r.Mode == models.ModeRanked && r.GradeFilter == models.AnyGrade {
		return fmt.Errorf("pair request: %w", models.ErrInvalidGradeFilter)
	}
	return nil
}

// Probe is the queue entry the request would create, used to test candidate opponents.
func (r PairRequest) Probe() models.QueueEntry {
	return models.QueueEntry{
		ParticipantID: r.ParticipantID,
		Mode:          r.Mode,
		GradeFilter:   r.GradeFilter,
		Rating:        r.Rating,
		Tolerance:     r.Tolerance,
		Status:        models.QueueStatusWaiting,
	}
}

type PairResult struct {
	Paired     bool
	EntryID    string
	MatchID    string
	OpponentID string
}

type QueueStatusResult struct {
	Found      bool
	EntryID    string
	Status     models.QueueStatus
	MatchID    string
	OpponentID string
}

// QueueSweep selects queue entries in status From created before CreatedBefore (zero means any age),
// optionally only ParticipantID's, and moves them to To.
type QueueSweep struct {
	ParticipantID string
	From          models.QueueStatus
	To            models.QueueStatus
	CreatedBefore time.Time
}

// MatchSweep is QueueSweep for match records. ParticipantID matches either side.
type MatchSweep struct {
	ParticipantID string
	From          models.MatchStatus
	To            models.MatchStatus
	CreatedBefore time.Time
}

type FinishRequest struct {
	MatchID      string
	WinnerID     *string
	EndedAt      time.Time
	Participants []models.Participant
}
