// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package reaper moves queue entries and match records that outlived their timeout into terminal states.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vocabattle/battle-matchmaker/pkg/common"
	"github.com/vocabattle/battle-matchmaker/pkg/config"
	"github.com/vocabattle/battle-matchmaker/pkg/constants"
	"github.com/vocabattle/battle-matchmaker/pkg/envelope"
	"github.com/vocabattle/battle-matchmaker/pkg/metrics"
	"github.com/vocabattle/battle-matchmaker/pkg/models"
	"github.com/vocabattle/battle-matchmaker/pkg/scheduler"
	"github.com/vocabattle/battle-matchmaker/pkg/store"
)

const (
	kindQueueEntry = "queue_entry"
	kindMatch      = "match"
)

// Report counts the records one sweep moved.
type Report struct {
	CancelledEntries int64 `json:"cancelled_entries"`
	CancelledMatches int64 `json:"cancelled_matches"`
	AbandonedMatches int64 `json:"abandoned_matches"`
}

func (r Report) Total() int64 {
	return r.CancelledEntries + r.CancelledMatches + r.AbandonedMatches
}

type Reaper struct {
	store             store.MatchStore
	scheduler         scheduler.Scheduler
	metrics           metrics.MatchmakingMetrics
	scope             *envelope.Scope
	interval          time.Duration
	waitingTimeout    time.Duration
	inProgressTimeout time.Duration
	now               func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
	cancel    scheduler.CancelFunc
}

type Option func(*Reaper)

func WithClock(now func() time.Time) Option {
	return func(r *Reaper) { r.now = now }
}

func New(scope *envelope.Scope, cfg *config.Config, matchStore store.MatchStore, sched scheduler.Scheduler, mm metrics.MatchmakingMetrics, opts ...Option) *Reaper {
	r := &Reaper{
		store:             matchStore,
		scheduler:         sched,
		metrics:           mm,
		scope:             scope,
		interval:          cfg.ReaperInterval(),
		waitingTimeout:    cfg.WaitingTimeout(),
		inProgressTimeout: cfg.InProgressTimeout(),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start registers the periodic sweep. Calling it again is a no-op.
func (r *Reaper) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return nil
	}

	cancel, err := r.scheduler.Every("stale-match-reaper", r.interval, func() {
		scope := r.scope.NewChildScopeWithContext(context.Background(), "reaper.periodic")
		defer scope.Finish()
		if _, _, err := r.Trigger(scope); err != nil {
			scope.Log.WithError(err).Error("periodic sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("start reaper: %w", err)
	}
	r.cancel = cancel
	return nil
}

func (r *Reaper) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Trigger sweeps unless another sweep ran within half the interval. ran reports whether it swept.
func (r *Reaper) Trigger(scope *envelope.Scope) (report Report, ran bool, err error) {
	r.mu.Lock()
	now := r.now()
	if !r.lastSweep.IsZero() && now.Sub(r.lastSweep) < r.interval/2 {
		r.mu.Unlock()
		scope.Log.Debug("sweep throttled")
		return Report{}, false, nil
	}
	r.lastSweep = now
	r.mu.Unlock()

	report, err = r.sweep(scope, now)
	return report, true, err
}

// Sweep runs all timeout sweeps unconditionally.
func (r *Reaper) Sweep(scope *envelope.Scope) (Report, error) {
	r.mu.Lock()
	now := r.now()
	r.lastSweep = now
	r.mu.Unlock()

	return r.sweep(scope, now)
}

func (r *Reaper) sweep(scope *envelope.Scope, now time.Time) (Report, error) {
	var report Report
	var errs []error

	n, err := r.store.SweepQueue(scope.Ctx, store.QueueSweep{
		From:          models.QueueStatusWaiting,
		To:            models.QueueStatusCancelled,
		CreatedBefore: now.Add(-r.waitingTimeout),
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("cancel stale queue entries: %w", err))
	}
	report.CancelledEntries = n

	n, err = r.store.SweepMatches(scope.Ctx, store.MatchSweep{
		From:          models.MatchStatusWaiting,
		To:            models.MatchStatusCancelled,
		CreatedBefore: now.Add(-r.waitingTimeout),
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("cancel stale waiting matches: %w", err))
	}
	report.CancelledMatches = n

	n, err = r.store.SweepMatches(scope.Ctx, store.MatchSweep{
		From:          models.MatchStatusInProgress,
		To:            models.MatchStatusAbandoned,
		CreatedBefore: now.Add(-r.inProgressTimeout),
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("abandon stale matches: %w", err))
	}
	report.AbandonedMatches = n

	r.metrics.AddReapedRecords(kindQueueEntry, constants.ReapReasonWaitingTimeout, report.CancelledEntries)
	r.metrics.AddReapedRecords(kindMatch, constants.ReapReasonWaitingTimeout, report.CancelledMatches)
	r.metrics.AddReapedRecords(kindMatch, constants.ReapReasonInProgressTimeout, report.AbandonedMatches)

	if report.Total() > 0 {
		scope.Log.Infof("stale records reaped: %s", common.LogJSONFormatter(report))
	}
	return report, errors.Join(errs...)
}

// SweepParticipant clears one participant's own leftovers before a fresh search: every waiting
// entry and waiting match at any age, plus in-progress matches older than the longest battle.
func (r *Reaper) SweepParticipant(ctx context.Context, participantID string) (int64, error) {
	now := r.now()
	var total int64
	var errs []error

	n, err := r.store.SweepQueue(ctx, store.QueueSweep{
		ParticipantID: participantID,
		From:          models.QueueStatusWaiting,
		To:            models.QueueStatusCancelled,
	})
	if err != nil {
		errs = append(errs, err)
	}
	r.metrics.AddReapedRecords(kindQueueEntry, constants.ReapReasonPreJoin, n)
	total += n

	n, err = r.store.SweepMatches(ctx, store.MatchSweep{
		ParticipantID: participantID,
		From:          models.MatchStatusWaiting,
		To:            models.MatchStatusCancelled,
	})
	if err != nil {
		errs = append(errs, err)
	}
	r.metrics.AddReapedRecords(kindMatch, constants.ReapReasonPreJoin, n)
	total += n

	n, err = r.store.SweepMatches(ctx, store.MatchSweep{
		ParticipantID: participantID,
		From:          models.MatchStatusInProgress,
		To:            models.MatchStatusAbandoned,
		CreatedBefore: now.Add(-models.ModeRanked.MatchDuration()),
	})
	if err != nil {
		errs = append(errs, err)
	}
	r.metrics.AddReapedRecords(kindMatch, constants.ReapReasonPreJoin, n)
	total += n

	if err := errors.Join(errs...); err != nil {
		return total, fmt.Errorf("sweep participant %s: %w", participantID, err)
	}
	return total, nil
}
