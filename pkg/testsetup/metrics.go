// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"fmt"
	"sync"
	"time"

	"github.com/vocabattle/battle-matchmaker/pkg/metrics"
)

type stubMetricsCollection struct{}

func (s stubMetricsCollection) QueueJoined(mode string) {}

func (s stubMetricsCollection) MatchFound(mode string, source string) {}

func (s stubMetricsCollection) AddSearchElapsedTime(mode string, elapsedTime time.Duration) {}

func (s stubMetricsCollection) AddReapedRecords(kind string, reason string, count int64) {}

func (s stubMetricsCollection) WatchdogRecovery(outcome string) {}

func (s stubMetricsCollection) ReconnectOffered(mode string) {}

func NewMetrics() metrics.MatchmakingMetrics {
	return stubMetricsCollection{}
}

// RecordingMetrics counts every metric call by name and labels, e.g. "match_found/ranked/push".
type RecordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{counts: map[string]int64{}}
}

func (r *RecordingMetrics) add(key string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[key] += n
}

func (r *RecordingMetrics) Count(key string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

func (r *RecordingMetrics) QueueJoined(mode string) {
	r.add("queue_joined/"+mode, 1)
}

func (r *RecordingMetrics) MatchFound(mode string, source string) {
	r.add(fmt.Sprintf("match_found/%s/%s", mode, source), 1)
}

func (r *RecordingMetrics) AddSearchElapsedTime(mode string, elapsedTime time.Duration) {
	r.add("search_elapsed/"+mode, 1)
}

func (r *RecordingMetrics) AddReapedRecords(kind string, reason string, count int64) {
	r.add(fmt.Sprintf("reaped/%s/%s", kind, reason), count)
}

func (r *RecordingMetrics) WatchdogRecovery(outcome string) {
	r.add("watchdog/"+outcome, 1)
}

func (r *RecordingMetrics) ReconnectOffered(mode string) {
	r.add("reconnect_offered/"+mode, 1)
}
