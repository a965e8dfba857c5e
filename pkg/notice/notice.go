// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package notice is the transient user-visible message surface (toasts).
package notice

import "github.com/sirupsen/logrus"

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a fire-and-forget message for the user.
type Notice struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Surface displays notices. Implementations must not block the caller.
type Surface interface {
	Show(n Notice)
}

// Func adapts a plain function to a Surface.
type Func func(n Notice)

func (f Func) Show(n Notice) { f(n) }

// LogSurface writes notices to a logger, for headless deployments.
type LogSurface struct {
	Log *logrus.Entry
}

func (s LogSurface) Show(n Notice) {
	entry := s.Log.WithField("notice_title", n.Title)
	switch n.Level {
	case LevelError:
		entry.Error(n.Message)
	case LevelWarning:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}
}
