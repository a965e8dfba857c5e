// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"fmt"
	"time"
)

// Mode is the kind of battle a participant is searching for.
type Mode string

const (
	// ModeRanked pairs same-grade participants and moves the ranked rating.
	ModeRanked Mode = "ranked"
	// ModeFree pairs across grades and moves the free (casual) rating.
	ModeFree Mode = "free"
)

// AnyGrade is the grade filter value meaning "no grade constraint". It is only valid for ModeFree.
const AnyGrade = 0

// DefaultRating is the rating every participant starts with, for both modes.
const DefaultRating = 1000

// ParseMode returns the Mode for s, or an error for unknown values.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRanked, ModeFree:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// MatchDuration is the total time allotted to one battle in this mode.
func (m Mode) MatchDuration() time.Duration {
	if m == ModeRanked {
		return 150 * time.Second
	}
	return 60 * time.Second
}

// Participant is a learner identity with its per-mode ratings and counters.
type Participant struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	Grade        int    `json:"grade"`
	RankedRating int    `json:"ranked_rating"`
	FreeRating   int    `json:"free_rating"`
	RankedWins   int    `json:"ranked_wins"`
	RankedLosses int    `json:"ranked_losses"`
	FreeWins     int    `json:"free_wins"`
	FreeLosses   int    `json:"free_losses"`
	WinStreak    int    `json:"win_streak"`
}

// NewParticipant returns a participant with default ratings.
func NewParticipant(id, name string, grade int) Participant {
	return Participant{
		ID:           id,
		DisplayName:  name,
		Grade:        grade,
		RankedRating: DefaultRating,
		FreeRating:   DefaultRating,
	}
}

// Rating returns the rating used for mode.
func (p Participant) Rating(mode Mode) int {
	if mode == ModeRanked {
		return p.RankedRating
	}
	return p.FreeRating
}

// SetRating replaces the rating used for mode.
func (p *Participant) SetRating(mode Mode, rating int) {
	if mode == ModeRanked {
		p.RankedRating = rating
		return
	}
	p.FreeRating = rating
}

// MatchesPlayed counts decided matches in mode. Draws are not recorded.
func (p Participant) MatchesPlayed(mode Mode) int {
	if mode == ModeRanked {
		return p.RankedWins + p.RankedLosses
	}
	return p.FreeWins + p.FreeLosses
}

// RecordWin bumps the win counter for mode and extends the streak.
func (p *Participant) RecordWin(mode Mode) {
	if mode == ModeRanked {
		p.RankedWins++
	} else {
		p.FreeWins++
	}
	p.WinStreak++
}

// RecordLoss bumps the loss counter for mode and breaks the streak.
func (p *Participant) RecordLoss(mode Mode) {
	if mode == ModeRanked {
		p.RankedLosses++
	} else {
		p.FreeLosses++
	}
	p.WinStreak = 0
}
