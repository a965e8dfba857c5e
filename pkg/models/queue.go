// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import "time"

// QueueStatus is the lifecycle state of a QueueEntry.
type QueueStatus string

const (
	QueueStatusWaiting   QueueStatus = "waiting"
	QueueStatusMatched   QueueStatus = "matched"
	QueueStatusCancelled QueueStatus = "cancelled"
)

// QueueEntry is a participant waiting to be paired.
// At most one waiting entry exists per participant and mode.
type QueueEntry struct {
	ID            string      `json:"id"`
	ParticipantID string      `json:"participant_id"`
	Mode          Mode        `json:"mode"`
	GradeFilter   int         `json:"grade_filter"`
	Rating        int         `json:"rating"`
	Tolerance     int         `json:"tolerance"`
	Status        QueueStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`

	// MatchID is the waiting match record while searching, the live match once matched.
	MatchID    string `json:"match_id,omitempty"`
	OpponentID string `json:"opponent_id,omitempty"`
}

// Accepts reports whether other can be paired with this entry from the point of view of the
// searcher holding this entry. Rating distance is checked separately.
func (q QueueEntry) Accepts(other QueueEntry) bool {
	if q.ParticipantID == other.ParticipantID || q.Mode != other.Mode {
		return false
	}
	if q.Mode == ModeRanked {
		return q.GradeFilter == other.GradeFilter
	}
	return q.GradeFilter == AnyGrade || other.GradeFilter == AnyGrade || q.GradeFilter == other.GradeFilter
}
