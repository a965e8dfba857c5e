// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"sync"

	"github.com/vocabattle/battle-matchmaker/pkg/notice"
)

type NoticeRecorder struct {
	mu      sync.Mutex
	notices []notice.Notice
}

func (r *NoticeRecorder) Show(n notice.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *NoticeRecorder) Notices() []notice.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notice.Notice(nil), r.notices...)
}

func (r *NoticeRecorder) Titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	titles := make([]string, len(r.notices))
	for i, n := range r.notices {
		titles[i] = n.Title
	}
	return titles
}
