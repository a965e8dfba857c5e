// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package watchdog

// Status is the client's view of where a battle is.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSearching Status = "searching"
	StatusCountdown Status = "countdown"
	StatusPlaying   Status = "playing"
	StatusFinished  Status = "finished"
)

// LiveState is the client-local gameplay state of one battle. The watchdog only reads it.
type LiveState struct {
	Status           Status
	Words            []string
	WordIndex        int
	TimeRemaining    int
	MyFinished       bool
	OpponentFinished bool
	QuizTypes        []string
	Options          []string
}

// StateFunc returns a snapshot of the current live state.
type StateFunc func() LiveState

func (s LiveState) preMatch() bool {
	return s.Status == StatusIdle || s.Status == StatusSearching
}

func (s LiveState) active() bool {
	return s.Status == StatusPlaying && !s.MyFinished
}
