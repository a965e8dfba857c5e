// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"fmt"
	"time"
)

// MatchStatus is the canonical status vocabulary of a MatchRecord.
type MatchStatus string

const (
	MatchStatusWaiting    MatchStatus = "waiting"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusFinished   MatchStatus = "finished"
	MatchStatusCancelled  MatchStatus = "cancelled"
	MatchStatusAbandoned  MatchStatus = "abandoned"
)

// ActiveMatchStatuses are the statuses that hold the "one active match per participant" slot.
var ActiveMatchStatuses = []MatchStatus{MatchStatusWaiting, MatchStatusInProgress}

// ParseMatchStatus maps stored status strings, including legacy synonyms, onto the canonical enum.
func ParseMatchStatus(s string) (MatchStatus, error) {
	switch s {
	case "waiting":
		return MatchStatusWaiting, nil
	case "in_progress", "playing":
		return MatchStatusInProgress, nil
	case "finished", "completed":
		return MatchStatusFinished, nil
	case "cancelled":
		return MatchStatusCancelled, nil
	case "abandoned":
		return MatchStatusAbandoned, nil
	}
	return "", fmt.Errorf("unknown match status %q", s)
}

func (s MatchStatus) IsActive() bool {
	return s == MatchStatusWaiting || s == MatchStatusInProgress
}

func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusFinished || s == MatchStatusCancelled || s == MatchStatusAbandoned
}

// MatchRecord is a pairing attempt or an active/finished battle.
type MatchRecord struct {
	ID              string      `json:"id"`
	Mode            Mode        `json:"mode,omitempty"`
	Grade           int         `json:"grade"`
	Player1ID       string      `json:"player1_id"`
	Player1Grade    int         `json:"player1_grade"`
	Player2ID       *string     `json:"player2_id,omitempty"`
	Player2Grade    *int        `json:"player2_grade,omitempty"`
	Player1Progress Progress    `json:"player1_score"`
	Player2Progress Progress    `json:"player2_score"`
	Status          MatchStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	EndedAt         *time.Time  `json:"ended_at,omitempty"`
	WinnerID        *string     `json:"winner_id,omitempty"`
}

// HasOpponent reports whether a second player is attached.
func (m MatchRecord) HasOpponent() bool {
	return m.Player2ID != nil && *m.Player2ID != ""
}

// Involves reports whether participantID is on either side.
func (m MatchRecord) Involves(participantID string) bool {
	return m.Player1ID == participantID || (m.HasOpponent() && *m.Player2ID == participantID)
}

// OpponentOf returns the other side's id, or "" when participantID is not in the match
// or no opponent is attached yet.
func (m MatchRecord) OpponentOf(participantID string) string {
	if !m.HasOpponent() {
		return ""
	}
	switch participantID {
	case m.Player1ID:
		return *m.Player2ID
	case *m.Player2ID:
		return m.Player1ID
	}
	return ""
}

// ProgressOf returns (mine, theirs) from participantID's point of view.
func (m MatchRecord) ProgressOf(participantID string) (mine Progress, theirs Progress) {
	if m.Player1ID == participantID {
		return m.Player1Progress, m.Player2Progress
	}
	return m.Player2Progress, m.Player1Progress
}

// EffectiveMode returns the stored mode. Older records without one are classified by comparing
// both players' grades, since free matches pair across grades.
func (m MatchRecord) EffectiveMode() Mode {
	if m.Mode != "" {
		return m.Mode
	}
	if m.Player2Grade != nil && *m.Player2Grade != m.Player1Grade {
		return ModeFree
	}
	return ModeRanked
}

// Age is the wall-clock time elapsed since the record was created.
func (m MatchRecord) Age(now time.Time) time.Duration {
	return now.Sub(m.CreatedAt)
}
