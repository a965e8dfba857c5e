// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func TestManualSchedulerRunsDueJobs(t *testing.T) {
	g := WithGomega(t)
	s := NewManualScheduler()

	var fast, slow int
	_, _ = s.Every("fast", time.Second, func() { fast++ })
	cancelSlow, _ := s.Every("slow", 3*time.Second, func() { slow++ })
	g.Expect(s.Jobs()).To(Equal([]string{"fast", "slow"}))

	s.Advance(3 * time.Second)
	g.Expect(fast).To(Equal(3))
	g.Expect(slow).To(Equal(1))

	cancelSlow()
	s.Advance(3 * time.Second)
	g.Expect(fast).To(Equal(6))
	g.Expect(slow).To(Equal(1))
	g.Expect(s.Jobs()).To(Equal([]string{"fast"}))
}

func TestManualSchedulerSkipsJobsCancelledMidRun(t *testing.T) {
	g := WithGomega(t)
	s := NewManualScheduler()

	var second int
	var cancelSecond func()
	_, _ = s.Every("first", time.Second, func() { cancelSecond() })
	cancel, _ := s.Every("second", time.Second, func() { second++ })
	cancelSecond = cancel

	s.RunAll()
	g.Expect(second).To(Equal(0))
}
