// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package watchdog detects a live battle whose client state stopped making sense and recovers it
// a bounded number of times before asking the user to restart.
package watchdog

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vocabattle/battle-matchmaker/pkg/config"
	"github.com/vocabattle/battle-matchmaker/pkg/constants"
	"github.com/vocabattle/battle-matchmaker/pkg/envelope"
	"github.com/vocabattle/battle-matchmaker/pkg/metrics"
	"github.com/vocabattle/battle-matchmaker/pkg/notice"
	"github.com/vocabattle/battle-matchmaker/pkg/scheduler"
)

// livenessSlack is how late a check may run and still count towards a stuck streak.
const livenessSlack = time.Second

type Verdict string

const (
	VerdictInactive  Verdict = "inactive"
	VerdictHealthy   Verdict = "healthy"
	VerdictRecovered Verdict = "recovered"
	VerdictFatal     Verdict = "fatal"
)

type Watchdog struct {
	state         StateFunc
	reset         func()
	surface       notice.Surface
	scheduler     scheduler.Scheduler
	metrics       metrics.MatchmakingMetrics
	log           *logrus.Entry
	interval      time.Duration
	stuckChecks   int
	maxRecoveries int
	now           func() time.Time

	mu         sync.Mutex
	attempts   int
	stuckCount int
	lastIndex  int
	lastCheck  time.Time
	fatal      bool
	cancel     scheduler.CancelFunc
}

type Option func(*Watchdog)

func WithClock(now func() time.Time) Option {
	return func(w *Watchdog) { w.now = now }
}

// New builds a watchdog over state. reset must fully reinitialise the live state.
func New(
	scope *envelope.Scope,
	cfg *config.Config,
	state StateFunc,
	reset func(),
	surface notice.Surface,
	sched scheduler.Scheduler,
	mm metrics.MatchmakingMetrics,
	opts ...Option,
) *Watchdog {
	w := &Watchdog{
		state:         state,
		reset:         reset,
		surface:       surface,
		scheduler:     sched,
		metrics:       mm,
		log:           scope.Log.WithField("component", "watchdog"),
		interval:      cfg.WatchdogInterval(),
		stuckChecks:   cfg.WatchdogStuckChecks,
		maxRecoveries: cfg.WatchdogMaxRecoveries,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watchdog) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return nil
	}
	cancel, err := w.scheduler.Every("live-state-watchdog", w.interval, func() { w.Check() })
	if err != nil {
		return fmt.Errorf("start watchdog: %w", err)
	}
	w.cancel = cancel
	return nil
}

func (w *Watchdog) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Attempts is the number of automatic recoveries used in the current play session.
func (w *Watchdog) Attempts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempts
}

func (w *Watchdog) Fatal() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fatal
}

// Check inspects the live state once.
func (w *Watchdog) Check() Verdict {
	st := w.state()
	now := w.now()

	w.mu.Lock()
	if st.preMatch() {
		w.attempts = 0
		w.fatal = false
		w.clearStreakLocked()
		w.mu.Unlock()
		return VerdictInactive
	}
	if !st.active() {
		w.clearStreakLocked()
		w.mu.Unlock()
		return VerdictInactive
	}
	if w.fatal {
		w.mu.Unlock()
		return VerdictFatal
	}

	reason := w.anomalyLocked(st, now)
	if reason == "" {
		w.mu.Unlock()
		return VerdictHealthy
	}
	w.clearStreakLocked()

	if w.attempts >= w.maxRecoveries {
		w.fatal = true
		w.mu.Unlock()

		w.log.WithField("reason", reason).Error("battle state unrecoverable, giving up automatic recovery")
		w.metrics.WatchdogRecovery(constants.WatchdogOutcomeFatal)
		w.surface.Show(notice.Notice{
			Level:   notice.LevelError,
			Title:   "Battle stopped responding",
			Message: "We could not recover this battle automatically. Please restart it manually.",
		})
		return VerdictFatal
	}
	w.attempts++
	attempt := w.attempts
	w.mu.Unlock()

	w.log.WithField("reason", reason).WithField("attempt", attempt).Warn("battle state stuck, recovering")
	w.metrics.WatchdogRecovery(constants.WatchdogOutcomeRecovered)
	w.surface.Show(notice.Notice{
		Level:   notice.LevelWarning,
		Title:   "Recovering battle",
		Message: fmt.Sprintf("Something got stuck, reloading the battle (attempt %d of %d).", attempt, w.maxRecoveries),
	})
	w.reset()
	return VerdictRecovered
}

// anomalyLocked returns why st looks stuck, or "".
func (w *Watchdog) anomalyLocked(st LiveState, now time.Time) string {
	if len(st.Words) == 0 {
		return "no words loaded"
	}
	if len(st.QuizTypes) == 0 {
		return "no quiz types generated"
	}
	if st.WordIndex < 0 || st.WordIndex >= len(st.Words) {
		return fmt.Sprintf("word index %d outside %d words", st.WordIndex, len(st.Words))
	}

	onTime := !w.lastCheck.IsZero() && now.Sub(w.lastCheck) <= w.interval+livenessSlack
	switch {
	case len(st.Options) != 0:
		w.stuckCount = 0
	case w.stuckCount > 0 && st.WordIndex == w.lastIndex && onTime:
		w.stuckCount++
	default:
		w.stuckCount = 1
	}
	w.lastIndex = st.WordIndex
	w.lastCheck = now

	if w.stuckCount >= w.stuckChecks {
		return fmt.Sprintf("no options on word %d for %d checks", st.WordIndex, w.stuckCount)
	}
	return ""
}

func (w *Watchdog) clearStreakLocked() {
	w.stuckCount = 0
	w.lastCheck = time.Time{}
}

// ManualReset reinitialises the battle on user request. It is always allowed and restores the full
// automatic recovery budget.
func (w *Watchdog) ManualReset() {
	w.mu.Lock()
	w.attempts = 0
	w.fatal = false
	w.clearStreakLocked()
	w.mu.Unlock()

	w.log.Info("manual battle reset")
	w.metrics.WatchdogRecovery(constants.WatchdogOutcomeManual)
	w.surface.Show(notice.Notice{Level: notice.LevelSuccess, Title: "Battle reset", Message: "The battle was reloaded."})
	w.reset()
}
