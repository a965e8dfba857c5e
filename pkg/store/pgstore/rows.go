// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package pgstore

import (
	"fmt"
	"time"

	"github.com/vocabattle/battle-matchmaker/pkg/models"
)

type queueEntryRow struct {
	ID            string `gorm:"primaryKey;type:varchar(64)"`
	ParticipantID string `gorm:"not null;index:idx_queue_participant_mode;uniqueIndex:uq_queue_waiting,where:status = 'waiting'"`
	Mode          string `gorm:"not null;index:idx_queue_participant_mode;uniqueIndex:uq_queue_waiting,where:status = 'waiting'"`
	GradeFilter   int    `gorm:"not null;default:0"`
	Rating        int    `gorm:"not null"`
	Tolerance     int    `gorm:"not null"`
	Status        string `gorm:"not null;index"`
	MatchID       string `gorm:"index"`
	OpponentID    string
	CreatedAt     time.Time `gorm:"not null;index"`
}

func (queueEntryRow) TableName() string { return "battle_queue_entries" }

type matchRow struct {
	ID           string  `gorm:"primaryKey;type:varchar(64)"`
	Mode         string  `gorm:"default:''"`
	Grade        int     `gorm:"not null;default:0"`
	Player1ID    string  `gorm:"not null;index"`
	Player1Grade int     `gorm:"not null;default:0"`
	Player2ID    *string `gorm:"index"`
	Player2Grade *int
	Player1Score int       `gorm:"not null;default:0"`
	Player2Score int       `gorm:"not null;default:0"`
	Status       string    `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"not null;index"`
	EndedAt      *time.Time
	WinnerID     *string
}

func (matchRow) TableName() string { return "battle_matches" }

type participantRow struct {
	ID           string `gorm:"primaryKey;type:varchar(64)"`
	DisplayName  string
	AvatarURL    string
	Grade        int
	RankedRating int `gorm:"not null;default:1000"`
	FreeRating   int `gorm:"not null;default:1000"`
	RankedWins   int
	RankedLosses int
	FreeWins     int
	FreeLosses   int
	WinStreak    int
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (participantRow) TableName() string { return "battle_participants" }

func (r queueEntryRow) toModel() models.QueueEntry {
	return models.QueueEntry{
		ID:            r.ID,
		ParticipantID: r.ParticipantID,
		Mode:          models.Mode(r.Mode),
		GradeFilter:   r.GradeFilter,
		Rating:        r.Rating,
		Tolerance:     r.Tolerance,
		Status:        models.QueueStatus(r.Status),
		CreatedAt:     r.CreatedAt,
		MatchID:       r.MatchID,
		OpponentID:    r.OpponentID,
	}
}

// toModel maps a stored row, normalising legacy status strings.
func (r matchRow) toModel() (*models.MatchRecord, error) {
	status, err := models.ParseMatchStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", r.ID, err)
	}
	progress1, err := models.ParseProgress(r.Player1Score)
	if err != nil {
		return nil, fmt.Errorf("match %s player one: %w", r.ID, err)
	}
	progress2, err := models.ParseProgress(r.Player2Score)
	if err != nil {
		return nil, fmt.Errorf("match %s player two: %w", r.ID, err)
	}
	return &models.MatchRecord{
		ID:              r.ID,
		Mode:            models.Mode(r.Mode),
		Grade:           r.Grade,
		Player1ID:       r.Player1ID,
		Player1Grade:    r.Player1Grade,
		Player2ID:       r.Player2ID,
		Player2Grade:    r.Player2Grade,
		Player1Progress: progress1,
		Player2Progress: progress2,
		Status:          status,
		CreatedAt:       r.CreatedAt,
		EndedAt:         r.EndedAt,
		WinnerID:        r.WinnerID,
	}, nil
}

func participantFromModel(p models.Participant) participantRow {
	return participantRow{
		ID:           p.ID,
		DisplayName:  p.DisplayName,
		AvatarURL:    p.AvatarURL,
		Grade:        p.Grade,
		RankedRating: p.RankedRating,
		FreeRating:   p.FreeRating,
		RankedWins:   p.RankedWins,
		RankedLosses: p.RankedLosses,
		FreeWins:     p.FreeWins,
		FreeLosses:   p.FreeLosses,
		WinStreak:    p.WinStreak,
	}
}

func (r participantRow) toModel() models.Participant {
	return models.Participant{
		ID:           r.ID,
		DisplayName:  r.DisplayName,
		AvatarURL:    r.AvatarURL,
		Grade:        r.Grade,
		RankedRating: r.RankedRating,
		FreeRating:   r.FreeRating,
		RankedWins:   r.RankedWins,
		RankedLosses: r.RankedLosses,
		FreeWins:     r.FreeWins,
		FreeLosses:   r.FreeLosses,
		WinStreak:    r.WinStreak,
	}
}

// statusStrings lists the stored spellings of the given statuses, legacy synonyms included.
func statusStrings(statuses ...models.MatchStatus) []string {
	out := make([]string, 0, len(statuses)+2)
	for _, s := range statuses {
		out = append(out, string(s))
		switch s {
		case models.MatchStatusInProgress:
			out = append(out, "playing")
		case models.MatchStatusFinished:
			out = append(out, "completed")
		}
	}
	return out
}
