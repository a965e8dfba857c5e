// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package rating

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectedScoreIsSymmetric(t *testing.T) {
	ratings := []float64{100, 480, 999, 1000, 1234, 1600, 2400, 3000}
	for _, a := range ratings {
		for _, b := range ratings {
			require.InDelta(t, 1.0, ExpectedScore(a, b)+ExpectedScore(b, a), 1e-9, "a=%v b=%v", a, b)
		}
	}
	assert.InDelta(t, 0.5, ExpectedScore(1000, 1000), 1e-9)
}

func TestChange(t *testing.T) {
	tests := []struct {
		Name         string
		A, B         int
		Outcome      Outcome
		IsNew        bool
		WantDelta    int
		WantPlayer   int
		WantOpponent int
	}{
		{Name: "even win", A: 1000, B: 1000, Outcome: Win, WantDelta: 16, WantPlayer: 1016, WantOpponent: 984},
		{Name: "even win new participant", A: 1000, B: 1000, Outcome: Win, IsNew: true, WantDelta: 24, WantPlayer: 1024, WantOpponent: 976},
		{Name: "even draw", A: 1000, B: 1000, Outcome: Draw, WantDelta: 0, WantPlayer: 1000, WantOpponent: 1000},
		{Name: "upset win", A: 1000, B: 1400, Outcome: Win, WantDelta: 29, WantPlayer: 1029, WantOpponent: 1371},
		{Name: "expected loss", A: 1000, B: 1400, Outcome: Loss, WantDelta: -3, WantPlayer: 997, WantOpponent: 1403},
		{Name: "loss floored at minimum", A: 105, B: 150, Outcome: Loss, IsNew: true, WantDelta: -21, WantPlayer: MinRating, WantOpponent: 171},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			got := Change(tt.A, tt.B, tt.Outcome, tt.IsNew)

			assert.Equal(t, tt.WantDelta, got.PlayerDelta)
			assert.Equal(t, -tt.WantDelta, got.OpponentDelta)
			assert.Equal(t, tt.WantPlayer, got.PlayerRating)
			assert.Equal(t, tt.WantOpponent, got.OpponentRating)
		})
	}
}

func TestChangeIsZeroSumAwayFromFloor(t *testing.T) {
	for a := 400; a <= 2000; a += 160 {
		for b := 400; b <= 2000; b += 160 {
			for _, outcome := range []Outcome{Win, Loss, Draw} {
				for _, isNew := range []bool{false, true} {
					got := Change(a, b, outcome, isNew)
					require.Equal(t, got.PlayerDelta, -got.OpponentDelta)
					require.Equal(t, a+got.PlayerDelta, got.PlayerRating)
					require.Equal(t, b+got.OpponentDelta, got.OpponentRating)
				}
			}
		}
	}
}

func TestIsNewParticipant(t *testing.T) {
	assert.True(t, IsNewParticipant(0))
	assert.True(t, IsNewParticipant(29))
	assert.False(t, IsNewParticipant(30))
}

func TestToleranceWindow(t *testing.T) {
	tests := []struct {
		Seconds int
		Want    int
	}{
		{Seconds: -3, Want: 50},
		{Seconds: 0, Want: 50},
		{Seconds: 4, Want: 50},
		{Seconds: 5, Want: 75},
		{Seconds: 12, Want: 100},
		// 50 + 5 full steps of 25; the cap is first reached at 30 s.
		{Seconds: 25, Want: 175},
		{Seconds: 30, Want: 200},
		{Seconds: 600, Want: 200},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.Want, ToleranceWindow(tt.Seconds), "seconds=%d", tt.Seconds)
	}

	prev := ToleranceWindow(0)
	for s := 1; s <= 120; s++ {
		cur := ToleranceWindow(s)
		require.GreaterOrEqual(t, cur, prev)
		require.LessOrEqual(t, cur, 200)
		prev = cur
	}

	assert.Equal(t, 75, ToleranceFor(7500*time.Millisecond))
}

func TestWithinTolerance(t *testing.T) {
	assert.True(t, WithinTolerance(1000, 1050, 50))
	assert.True(t, WithinTolerance(1050, 1000, 50))
	assert.False(t, WithinTolerance(1000, 1051, 50))
}

func TestStreakBonus(t *testing.T) {
	want := map[int]float64{0: 1.0, 1: 1.0, 2: 1.1, 3: 1.2, 4: 1.3, 9: 1.3}
	for streak, bonus := range want {
		assert.Equal(t, bonus, StreakBonus(streak), "streak=%d", streak)
	}
}
