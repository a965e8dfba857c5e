// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package watchdog

import (
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/vocabattle/battle-matchmaker/pkg/config"
	"github.com/vocabattle/battle-matchmaker/pkg/notice"
	"github.com/vocabattle/battle-matchmaker/pkg/testsetup"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	mu      sync.Mutex
	state   LiveState
	resets  int
	ticks   int
	step    time.Duration
	notices *testsetup.NoticeRecorder
	sched   *testsetup.ManualScheduler
	metrics *testsetup.RecordingMetrics
	w       *Watchdog
}

// newHarness returns a watchdog whose clock moves forward by step on every check.
func newHarness(g testsetup.GomegaWithScope, state LiveState, step time.Duration) *harness {
	h := &harness{
		state:   state,
		step:    step,
		notices: &testsetup.NoticeRecorder{},
		sched:   testsetup.NewManualScheduler(),
		metrics: testsetup.NewRecordingMetrics(),
	}
	h.w = New(g.TestScope, config.Default(), h.snapshot, h.reset, h.notices, h.sched, h.metrics, WithClock(h.now))
	return h
}

func (h *harness) snapshot() LiveState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *harness) set(state LiveState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = state
}

func (h *harness) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resets++
}

func (h *harness) Resets() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resets
}

func (h *harness) now() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ticks++
	return t0.Add(time.Duration(h.ticks) * h.step)
}

func stuckOnWord(index int) LiveState {
	return LiveState{
		Status:    StatusPlaying,
		Words:     []string{"apple", "brave", "cargo", "delta", "eager"},
		WordIndex: index,
		QuizTypes: []string{"meaning", "spelling"},
	}
}

func TestWatchdog_SixStuckChecksRecoverOnce(t *testing.T) {
	g := testsetup.WithGomega(t)
	h := newHarness(g, stuckOnWord(2), 5*time.Second)
	g.Expect(h.w.Start()).To(Succeed())

	h.sched.Advance(25 * time.Second)
	g.Expect(h.Resets()).To(Equal(0))
	g.Expect(h.w.Attempts()).To(Equal(0))

	h.sched.Advance(5 * time.Second)
	g.Expect(h.Resets()).To(Equal(1))
	g.Expect(h.w.Attempts()).To(Equal(1))
	g.Expect(h.notices.Titles()).To(Equal([]string{"Recovering battle"}))

	h.sched.Advance(25 * time.Second)
	g.Expect(h.Resets()).To(Equal(1), "the streak starts over after a recovery")
	g.Expect(h.metrics.Count("watchdog/recovered")).To(Equal(int64(1)))

	h.w.Stop()
	g.Expect(h.sched.Jobs()).To(BeEmpty())
}

func TestWatchdog_SlowChecksDoNotCountAsStuck(t *testing.T) {
	g := testsetup.WithGomega(t)
	h := newHarness(g, stuckOnWord(2), 7*time.Second)

	for i := 0; i < 12; i++ {
		g.Expect(h.w.Check()).To(Equal(VerdictHealthy))
	}
	g.Expect(h.Resets()).To(Equal(0))
}

func TestWatchdog_ProgressOrOptionsBreakTheStreak(t *testing.T) {
	g := testsetup.WithGomega(t)
	h := newHarness(g, stuckOnWord(1), 5*time.Second)

	for i := 0; i < 5; i++ {
		h.w.Check()
	}
	h.set(stuckOnWord(2))
	for i := 0; i < 5; i++ {
		g.Expect(h.w.Check()).To(Equal(VerdictHealthy))
	}

	withOptions := stuckOnWord(2)
	withOptions.Options = []string{"a", "b", "c", "d"}
	h.set(withOptions)
	g.Expect(h.w.Check()).To(Equal(VerdictHealthy))
	h.set(stuckOnWord(2))
	for i := 0; i < 5; i++ {
		g.Expect(h.w.Check()).To(Equal(VerdictHealthy))
	}
	g.Expect(h.w.Check()).To(Equal(VerdictRecovered))
}

func TestWatchdog_FourthAnomalyIsFatal(t *testing.T) {
	g := testsetup.WithGomega(t)
	h := newHarness(g, LiveState{Status: StatusPlaying, QuizTypes: []string{"meaning"}}, 5*time.Second)

	for i := 0; i < 3; i++ {
		g.Expect(h.w.Check()).To(Equal(VerdictRecovered))
	}
	g.Expect(h.w.Check()).To(Equal(VerdictFatal))
	g.Expect(h.Resets()).To(Equal(3))
	g.Expect(h.w.Fatal()).To(BeTrue())

	g.Expect(h.w.Check()).To(Equal(VerdictFatal))
	notices := h.notices.Notices()
	g.Expect(notices).To(HaveLen(4))
	g.Expect(notices[3].Level).To(Equal(notice.LevelError))
	g.Expect(h.metrics.Count("watchdog/fatal")).To(Equal(int64(1)))
}

func TestWatchdog_AnomalyConditions(t *testing.T) {
	tests := []struct {
		Name  string
		State LiveState
		Want  Verdict
	}{
		{Name: "empty word list", State: LiveState{Status: StatusPlaying, QuizTypes: []string{"meaning"}}, Want: VerdictRecovered},
		{Name: "no quiz types", State: LiveState{Status: StatusPlaying, Words: []string{"apple"}}, Want: VerdictRecovered},
		{Name: "index past the end", State: LiveState{Status: StatusPlaying, Words: []string{"apple"}, WordIndex: 1, QuizTypes: []string{"meaning"}}, Want: VerdictRecovered},
		{Name: "healthy", State: LiveState{Status: StatusPlaying, Words: []string{"apple"}, QuizTypes: []string{"meaning"}, Options: []string{"a"}}, Want: VerdictHealthy},
		{Name: "finished locally", State: LiveState{Status: StatusPlaying, MyFinished: true}, Want: VerdictInactive},
		{Name: "countdown", State: LiveState{Status: StatusCountdown}, Want: VerdictInactive},
		{Name: "results screen", State: LiveState{Status: StatusFinished}, Want: VerdictInactive},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			g := testsetup.ParallelWithGomega(t)
			h := newHarness(g, test.State, 5*time.Second)
			g.Expect(h.w.Check()).To(Equal(test.Want))
		})
	}
}

func TestWatchdog_ReturningToIdleRestoresBudget(t *testing.T) {
	g := testsetup.WithGomega(t)
	broken := LiveState{Status: StatusPlaying, QuizTypes: []string{"meaning"}}
	h := newHarness(g, broken, 5*time.Second)

	for i := 0; i < 4; i++ {
		h.w.Check()
	}
	g.Expect(h.w.Fatal()).To(BeTrue())

	h.set(LiveState{Status: StatusIdle})
	g.Expect(h.w.Check()).To(Equal(VerdictInactive))
	g.Expect(h.w.Attempts()).To(Equal(0))
	g.Expect(h.w.Fatal()).To(BeFalse())

	h.set(broken)
	g.Expect(h.w.Check()).To(Equal(VerdictRecovered))
}

func TestWatchdog_ManualResetAlwaysAllowed(t *testing.T) {
	g := testsetup.WithGomega(t)
	h := newHarness(g, LiveState{Status: StatusPlaying, QuizTypes: []string{"meaning"}}, 5*time.Second)

	for i := 0; i < 4; i++ {
		h.w.Check()
	}
	g.Expect(h.Resets()).To(Equal(3))

	h.w.ManualReset()
	g.Expect(h.Resets()).To(Equal(4))
	g.Expect(h.w.Attempts()).To(Equal(0))
	g.Expect(h.w.Fatal()).To(BeFalse())
	g.Expect(h.metrics.Count("watchdog/manual")).To(Equal(int64(1)))
	notices := h.notices.Notices()
	g.Expect(notices[len(notices)-1].Level).To(Equal(notice.LevelSuccess))

	g.Expect(h.w.Check()).To(Equal(VerdictRecovered))
}
