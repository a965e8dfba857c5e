// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsMatchDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 1500*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, 5*time.Minute, cfg.WaitingTimeout())
	assert.Equal(t, 10*time.Minute, cfg.InProgressTimeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("QUEUE_POLL_INTERVAL_MS", "500")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}
