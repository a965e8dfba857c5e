// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package scheduler runs periodic jobs that can be cancelled individually.
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// CancelFunc stops a job. It is safe to call more than once.
type CancelFunc func()

// Scheduler registers interval jobs.
type Scheduler interface {
	Every(name string, interval time.Duration, task func()) (CancelFunc, error)
}

// Gocron is the production Scheduler.
type Gocron struct {
	s gocron.Scheduler
}

func NewGocron() (*Gocron, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	s.Start()
	return &Gocron{s: s}, nil
}

// Every runs task each interval, skipping a run while the previous one is still executing.
func (g *Gocron) Every(name string, interval time.Duration, task func()) (CancelFunc, error) {
	job, err := g.s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", name, err)
	}

	id := job.ID()
	return func() {
		_ = g.s.RemoveJob(id)
	}, nil
}

func (g *Gocron) Shutdown() error {
	return g.s.Shutdown()
}
