// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package rating computes skill-rating updates and matchmaking tolerance windows.
// Everything here is pure; callers own persistence.
package rating

import (
	"math"
	"time"

	"github.com/vocabattle/battle-matchmaker/pkg/mathutil"
)

const (
	// MinRating is the floor applied to ratings after an update.
	MinRating = 100
	// NewParticipantMatches is the match count below which the higher K-factor applies.
	NewParticipantMatches = 30

	kFactorNew     = 48
	kFactorDefault = 32

	baseTolerance     = 50
	toleranceStep     = 25
	toleranceStepSecs = 5
	maxTolerance      = 200
)

// Outcome is the result of a match from the rated player's point of view.
type Outcome int

const (
	Loss Outcome = iota
	Win
	Draw
)

func (o Outcome) actualScore() float64 {
	switch o {
	case Win:
		return 1
	case Draw:
		return 0.5
	}
	return 0
}

// Result is a rating update for both sides of a match.
type Result struct {
	PlayerDelta    int `json:"player_delta"`
	OpponentDelta  int `json:"opponent_delta"`
	PlayerRating   int `json:"player_rating"`
	OpponentRating int `json:"opponent_rating"`
}

// ExpectedScore is the logistic expectation of a scoring against b.
func ExpectedScore(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/400))
}

// IsNewParticipant reports whether the higher K-factor applies.
func IsNewParticipant(matchesPlayed int) bool {
	return matchesPlayed < NewParticipantMatches
}

// Change computes the update for a player rated a against an opponent rated b.
// The opponent's delta is the exact negation of the player's; both resulting ratings are floored
// at MinRating, which can break the zero-sum property at the floor.
func Change(a, b int, outcome Outcome, isNew bool) Result {
	k := float64(kFactorDefault)
	if isNew {
		k = kFactorNew
	}

	delta := int(math.Round(k * (outcome.actualScore() - ExpectedScore(float64(a), float64(b)))))

	return Result{
		PlayerDelta:    delta,
		OpponentDelta:  -delta,
		PlayerRating:   mathutil.Max(MinRating, a+delta),
		OpponentRating: mathutil.Max(MinRating, b-delta),
	}
}

// ToleranceWindow is the accepted rating distance after searchSeconds of queueing:
// ±50, widened by 25 every full 5 seconds, capped at ±200.
func ToleranceWindow(searchSeconds int) int {
	if searchSeconds < 0 {
		searchSeconds = 0
	}
	return mathutil.Min(maxTolerance, baseTolerance+(searchSeconds/toleranceStepSecs)*toleranceStep)
}

// ToleranceFor is ToleranceWindow for a queueing duration.
func ToleranceFor(elapsed time.Duration) int {
	return ToleranceWindow(int(elapsed / time.Second))
}

// WithinTolerance reports whether two ratings are close enough to pair.
func WithinTolerance(a, b, tolerance int) bool {
	return mathutil.Abs(a-b) <= tolerance
}

// StreakBonus is the presentation multiplier for a win streak. It does not feed into Change.
func StreakBonus(streak int) float64 {
	switch {
	case streak >= 4:
		return 1.3
	case streak == 3:
		return 1.2
	case streak == 2:
		return 1.1
	}
	return 1.0
}
