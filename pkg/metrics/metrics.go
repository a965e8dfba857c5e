// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type MatchmakingMetrics interface {
	QueueJoined(mode string)
	MatchFound(mode string, source string)
	AddSearchElapsedTime(mode string, elapsedTime time.Duration)
	AddReapedRecords(kind string, reason string, count int64)
	WatchdogRecovery(outcome string)
	ReconnectOffered(mode string)
}

func NewMetrics(registry *prometheus.Registry) MatchmakingMetrics {
	return setupPrometheusMetrics(registry)
}
