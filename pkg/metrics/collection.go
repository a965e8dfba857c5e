// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type prometheusMetrics struct {
	queueJoins         prometheus.CounterVec
	matchesFound       prometheus.CounterVec
	searchElapsedTime  prometheus.HistogramVec
	reapedRecords      prometheus.CounterVec
	watchdogRecoveries prometheus.CounterVec
	reconnectsOffered  prometheus.CounterVec
}

func setupPrometheusMetrics(registry *prometheus.Registry) prometheusMetrics {
	factory := promauto.With(registry)

	queueJoins := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "battle_queue_joins_total",
			Help: "Number of queue searches started",
		}, []string{"mode"})

	matchesFound := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "battle_matches_found_total",
			Help: "Number of pairings observed by a searching session, by the path that observed it",
		}, []string{"mode", "source"})

	//nolint:promlinter
	searchElapsedTime := factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "battle_search_elapsed_time_ms",
			Help:    "A histogram of queue search time until a match is found, in milliseconds",
			Buckets: prometheus.ExponentialBuckets(250, 2, 10),
		}, []string{"mode"})

	reapedRecords := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "battle_reaped_records_total",
			Help: "Number of queue and match records moved to a terminal state because they went stale",
		}, []string{"kind", "reason"})

	watchdogRecoveries := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "battle_watchdog_recoveries_total",
			Help: "Live-state watchdog interventions by outcome",
		}, []string{"outcome"})

	reconnectsOffered := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "battle_reconnects_offered_total",
			Help: "Number of in-flight matches offered for resume",
		}, []string{"mode"})

	return prometheusMetrics{
		queueJoins:         *queueJoins,
		matchesFound:       *matchesFound,
		searchElapsedTime:  *searchElapsedTime,
		reapedRecords:      *reapedRecords,
		watchdogRecoveries: *watchdogRecoveries,
		reconnectsOffered:  *reconnectsOffered,
	}
}

func (metrics prometheusMetrics) QueueJoined(mode string) {
	metrics.queueJoins.With(prometheus.Labels{"mode": mode}).Inc()
}

func (metrics prometheusMetrics) MatchFound(mode string, source string) {
	metrics.matchesFound.With(prometheus.Labels{"mode": mode, "source": source}).Inc()
}

func (metrics prometheusMetrics) AddSearchElapsedTime(mode string, elapsedTime time.Duration) {
	metrics.searchElapsedTime.With(prometheus.Labels{"mode": mode}).Observe(float64(elapsedTime.Milliseconds()))
}

func (metrics prometheusMetrics) AddReapedRecords(kind string, reason string, count int64) {
	if count <= 0 {
		return
	}
	metrics.reapedRecords.With(prometheus.Labels{"kind": kind, "reason": reason}).Add(float64(count))
}

func (metrics prometheusMetrics) WatchdogRecovery(outcome string) {
	metrics.watchdogRecoveries.With(prometheus.Labels{"outcome": outcome}).Inc()
}

func (metrics prometheusMetrics) ReconnectOffered(mode string) {
	metrics.reconnectsOffered.With(prometheus.Labels{"mode": mode}).Inc()
}
