// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package settlement concludes a battle: it records the winner and applies the rating update.
package settlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/vocabattle/battle-matchmaker/pkg/envelope"
	"github.com/vocabattle/battle-matchmaker/pkg/models"
	"github.com/vocabattle/battle-matchmaker/pkg/rating"
	"github.com/vocabattle/battle-matchmaker/pkg/store"
)

// Now is a variable that holds the current time function.
var Now = time.Now

// ErrInvalidWinner is returned when the reported winner did not play the match.
var ErrInvalidWinner = errors.New("winner is not a player of the match")

// Outcome is what the battle client reports when a match ends.
type Outcome struct {
	WinnerID string `json:"winner_id"`
	Draw     bool   `json:"draw"`
}

type PlayerResult struct {
	ParticipantID string  `json:"participant_id"`
	OldRating     int     `json:"old_rating"`
	NewRating     int     `json:"new_rating"`
	Delta         int     `json:"delta"`
	WinStreak     int     `json:"win_streak"`
	StreakBonus   float64 `json:"streak_bonus"`
}

type Settlement struct {
	MatchID  string         `json:"match_id"`
	Mode     models.Mode    `json:"mode"`
	WinnerID string         `json:"winner_id,omitempty"`
	Draw     bool           `json:"draw"`
	Players  []PlayerResult `json:"players"`
}

type Settler struct {
	store store.MatchStore
}

func New(matchStore store.MatchStore) *Settler {
	return &Settler{store: matchStore}
}

// Settle finishes an in-progress match and updates both players' ratings in its mode.
// Each side is rated with its own K-factor. It fails with models.ErrMatchNotActive when the match
// already ended, so a battle is never settled twice.
func (s *Settler) Settle(scope *envelope.Scope, matchID string, outcome Outcome) (*Settlement, error) {
	log := scope.Log.WithField(envelope.MatchTag, matchID)

	match, err := s.store.GetMatch(scope.Ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("settle %s: %w", matchID, err)
	}
	if match.Status != models.MatchStatusInProgress || !match.HasOpponent() {
		return nil, fmt.Errorf("settle %s in status %s: %w", matchID, match.Status, models.ErrMatchNotActive)
	}
	if !outcome.Draw && !match.Involves(outcome.WinnerID) {
		return nil, fmt.Errorf("settle %s with winner %q: %w", matchID, outcome.WinnerID, ErrInvalidWinner)
	}

	mode := match.EffectiveMode()
	player1, err := s.participant(scope, match.Player1ID, match.Player1Grade)
	if err != nil {
		return nil, err
	}
	player2Grade := 0
	if match.Player2Grade != nil {
		player2Grade = *match.Player2Grade
	}
	player2, err := s.participant(scope, *match.Player2ID, player2Grade)
	if err != nil {
		return nil, err
	}

	// Both sides are rated against the pre-match ratings.
	rating1, rating2 := player1.Rating(mode), player2.Rating(mode)
	result1 := apply(player1, rating2, mode, outcome)
	result2 := apply(player2, rating1, mode, outcome)

	req := store.FinishRequest{
		MatchID:      matchID,
		EndedAt:      Now().UTC(),
		Participants: []models.Participant{*player1, *player2},
	}
	if !outcome.Draw {
		winner := outcome.WinnerID
		req.WinnerID = &winner
	}
	if err := s.store.FinishMatch(scope.Ctx, req); err != nil {
		return nil, fmt.Errorf("settle %s: %w", matchID, err)
	}

	log.WithField("mode", mode).
		WithField("winner", outcome.WinnerID).
		WithField("draw", outcome.Draw).
		Info("match settled")

	settlement := &Settlement{
		MatchID: matchID,
		Mode:    mode,
		Draw:    outcome.Draw,
		Players: []PlayerResult{result1, result2},
	}
	if !outcome.Draw {
		settlement.WinnerID = outcome.WinnerID
	}
	return settlement, nil
}

func (s *Settler) participant(scope *envelope.Scope, participantID string, grade int) (*models.Participant, error) {
	p, err := s.store.GetParticipant(scope.Ctx, participantID)
	if errors.Is(err, models.ErrNotFound) {
		fresh := models.NewParticipant(participantID, "", grade)
		return &fresh, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load participant %s: %w", participantID, err)
	}
	return p, nil
}

// apply rates p against an opponent rated opponentRating and updates its counters in place.
func apply(p *models.Participant, opponentRating int, mode models.Mode, outcome Outcome) PlayerResult {
	var o rating.Outcome
	switch {
	case outcome.Draw:
		o = rating.Draw
	case outcome.WinnerID == p.ID:
		o = rating.Win
	default:
		o = rating.Loss
	}

	old := p.Rating(mode)
	change := rating.Change(old, opponentRating, o, rating.IsNewParticipant(p.MatchesPlayed(mode)))
	p.SetRating(mode, change.PlayerRating)
	switch o {
	case rating.Win:
		p.RecordWin(mode)
	case rating.Loss:
		p.RecordLoss(mode)
	}

	return PlayerResult{
		ParticipantID: p.ID,
		OldRating:     old,
		NewRating:     change.PlayerRating,
		Delta:         change.PlayerRating - old,
		WinStreak:     p.WinStreak,
		StreakBonus:   rating.StreakBonus(p.WinStreak),
	}
}
