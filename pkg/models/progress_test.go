// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressRoundTrip(t *testing.T) {
	for _, finished := range []bool{false, true} {
		for idx := 0; idx < 100; idx += 7 {
			for score := 0; score < 100; score += 11 {
				p, err := EncodeProgress(finished, idx, score)
				require.NoError(t, err)

				gotFinished, gotIdx, gotScore := p.Decode()
				require.Equal(t, finished, gotFinished)
				require.Equal(t, idx, gotIdx)
				require.Equal(t, score, gotScore)
			}
		}
	}
}

func TestEncodeProgress(t *testing.T) {
	tests := []struct {
		Name     string
		Finished bool
		Index    int
		Score    int
		Want     Progress
		WantErr  bool
	}{
		{Name: "index 4 score 12", Index: 4, Score: 12, Want: 412},
		{Name: "finished flag adds 10000", Finished: true, Index: 9, Score: 30, Want: 10930},
		{Name: "zero", Want: 0},
		{Name: "score overflows into index", Score: 100, WantErr: true},
		{Name: "index overflows into flag", Index: 100, WantErr: true},
		{Name: "negative score", Score: -1, WantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			got, err := EncodeProgress(tt.Finished, tt.Index, tt.Score)
			if tt.WantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidProgress))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.Want, got)
		})
	}
}

func TestParseProgress(t *testing.T) {
	tests := []struct {
		Name    string
		Raw     int
		WantErr bool
	}{
		{Name: "zero", Raw: 0},
		{Name: "largest unfinished", Raw: 9999},
		{Name: "largest finished", Raw: 19999},
		{Name: "negative", Raw: -1, WantErr: true},
		{Name: "past the finished range", Raw: 20000, WantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			got, err := ParseProgress(tt.Raw)
			if tt.WantErr {
				assert.True(t, errors.Is(err, ErrInvalidProgress))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Progress(tt.Raw), got)
		})
	}
}

func TestParseMatchStatusSynonyms(t *testing.T) {
	tests := map[string]MatchStatus{
		"waiting":     MatchStatusWaiting,
		"playing":     MatchStatusInProgress,
		"in_progress": MatchStatusInProgress,
		"completed":   MatchStatusFinished,
		"finished":    MatchStatusFinished,
		"cancelled":   MatchStatusCancelled,
		"abandoned":   MatchStatusAbandoned,
	}
	for raw, want := range tests {
		got, err := ParseMatchStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseMatchStatus("paused")
	assert.Error(t, err)
}

func TestMatchRecordEffectiveMode(t *testing.T) {
	seven, eight := 7, 8
	opponent := "p2"

	assert.Equal(t, ModeFree, MatchRecord{Mode: ModeFree, Player1Grade: 7, Player2Grade: &seven}.EffectiveMode())
	assert.Equal(t, ModeFree, MatchRecord{Player1Grade: 7, Player2ID: &opponent, Player2Grade: &eight}.EffectiveMode())
	assert.Equal(t, ModeRanked, MatchRecord{Player1Grade: 7, Player2ID: &opponent, Player2Grade: &seven}.EffectiveMode())
}

func TestMatchRecordOpponentOf(t *testing.T) {
	opponent := "p2"
	m := MatchRecord{Player1ID: "p1", Player2ID: &opponent}

	assert.Equal(t, "p2", m.OpponentOf("p1"))
	assert.Equal(t, "p1", m.OpponentOf("p2"))
	assert.Equal(t, "", m.OpponentOf("p3"))
	assert.Equal(t, "", MatchRecord{Player1ID: "p1"}.OpponentOf("p1"))
}

func TestIsActiveMatchConflict(t *testing.T) {
	assert.True(t, IsActiveMatchConflict(ErrActiveMatchConflict))
	assert.True(t, IsActiveMatchConflict(errors.New(`ERROR: participant p1 is Already In An Active Match (SQLSTATE P0001)`)))
	assert.False(t, IsActiveMatchConflict(errors.New("connection refused")))
	assert.False(t, IsActiveMatchConflict(nil))
	assert.Equal(t, 510402, ErrorCode(ErrActiveMatchConflict))
	assert.Equal(t, 20002, ErrorCode(errors.New("other")))
}

func TestQueueEntryAccepts(t *testing.T) {
	ranked7 := QueueEntry{ParticipantID: "a", Mode: ModeRanked, GradeFilter: 7}
	assert.True(t, ranked7.Accepts(QueueEntry{ParticipantID: "b", Mode: ModeRanked, GradeFilter: 7}))
	assert.False(t, ranked7.Accepts(QueueEntry{ParticipantID: "b", Mode: ModeRanked, GradeFilter: 8}))
	assert.False(t, ranked7.Accepts(QueueEntry{ParticipantID: "b", Mode: ModeFree, GradeFilter: 7}))
	assert.False(t, ranked7.Accepts(QueueEntry{ParticipantID: "a", Mode: ModeRanked, GradeFilter: 7}))

	free := QueueEntry{ParticipantID: "a", Mode: ModeFree, GradeFilter: AnyGrade}
	assert.True(t, free.Accepts(QueueEntry{ParticipantID: "b", Mode: ModeFree, GradeFilter: 8}))
}
