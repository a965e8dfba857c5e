// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package constants

const (
	// QueueChannelPrefix scopes push notifications to one participant's queue record.
	QueueChannelPrefix = "queue:"
)

const (
	MatchSourceImmediate = "immediate"
	MatchSourcePoll      = "poll"
	MatchSourcePush      = "push"
)

// Reap reason constants.
const (
	ReapReasonWaitingTimeout    = "waiting_timeout"
	ReapReasonInProgressTimeout = "in_progress_timeout"
	ReapReasonPreJoin           = "pre_join"
	ReapReasonReconnectExpired  = "reconnect_expired"
	ReapReasonDismissed         = "dismissed"
)

// Watchdog outcome constants.
const (
	WatchdogOutcomeRecovered = "recovered"
	WatchdogOutcomeFatal     = "fatal"
	WatchdogOutcomeManual    = "manual"
)

// QueueChannel returns the notification channel name for a participant.
func QueueChannel(participantID string) string {
	return QueueChannelPrefix + participantID
}
