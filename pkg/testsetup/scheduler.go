// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"sort"
	"sync"
	"time"

	"github.com/vocabattle/battle-matchmaker/pkg/scheduler"
)

type manualJob struct {
	id       int
	name     string
	interval time.Duration
	next     time.Duration
	task     func()
}

// ManualScheduler runs scheduled jobs only when the test advances its clock.
type ManualScheduler struct {
	mu      sync.Mutex
	elapsed time.Duration
	nextID  int
	jobs    map[int]*manualJob
}

var _ scheduler.Scheduler = (*ManualScheduler)(nil)

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{jobs: map[int]*manualJob{}}
}

func (m *ManualScheduler) Every(name string, interval time.Duration, task func()) (scheduler.CancelFunc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	job := &manualJob{id: m.nextID, name: name, interval: interval, next: m.elapsed + interval, task: task}
	m.jobs[job.id] = job
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.jobs, job.id)
	}, nil
}

// Advance moves the clock forward by d, running every job that comes due in order of due time.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.elapsed + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var due *manualJob
		for _, job := range m.jobs {
			if job.next > target {
				continue
			}
			if due == nil || job.next < due.next || (job.next == due.next && job.id < due.id) {
				due = job
			}
		}
		if due == nil {
			m.elapsed = target
			m.mu.Unlock()
			return
		}
		m.elapsed = due.next
		due.next += due.interval
		task := due.task
		m.mu.Unlock()

		task()
	}
}

// RunAll runs every registered job once without moving the clock.
func (m *ManualScheduler) RunAll() {
	m.mu.Lock()
	jobs := make([]*manualJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	m.mu.Unlock()
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].id < jobs[j].id })

	for _, job := range jobs {
		m.mu.Lock()
		_, live := m.jobs[job.id]
		m.mu.Unlock()
		if live {
			job.task()
		}
	}
}

// Jobs returns the names of the registered jobs.
func (m *ManualScheduler) Jobs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := make([]*manualJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].id < jobs[j].id })
	names := make([]string, len(jobs))
	for i, job := range jobs {
		names[i] = job.name
	}
	return names
}
