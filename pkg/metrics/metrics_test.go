// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := setupPrometheusMetrics(registry)

	m.QueueJoined("ranked")
	m.QueueJoined("ranked")
	m.MatchFound("free", "push")
	m.AddSearchElapsedTime("free", 3*time.Second)
	m.AddReapedRecords("match", "waiting_timeout", 4)
	m.AddReapedRecords("match", "waiting_timeout", 0)
	m.WatchdogRecovery("recovered")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.queueJoins.With(prometheus.Labels{"mode": "ranked"})))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.matchesFound.With(prometheus.Labels{"mode": "free", "source": "push"})))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.reapedRecords.With(prometheus.Labels{"kind": "match", "reason": "waiting_timeout"})))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.watchdogRecoveries.With(prometheus.Labels{"outcome": "recovered"})))
	assert.Equal(t, 1, testutil.CollectAndCount(registry, "battle_search_elapsed_time_ms"))
}
