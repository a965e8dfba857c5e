// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR"    envDefault:":5200" envDocs:"listen address of the matchd gateway"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:""      envDocs:"postgres DSN of the match store (empty means in-memory store)"`
	RedisAddr   string `env:"REDIS_ADDR"   envDefault:""      envDocs:"redis address for queue notifications (empty means in-process feed)"`
	ZipkinURL   string `env:"ZIPKIN_URL"   envDefault:""      envDocs:"zipkin collector endpoint (empty disables tracing export)"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"  envDocs:"logrus level"`

	PollIntervalMs          int `env:"QUEUE_POLL_INTERVAL_MS"      envDefault:"1500" envDocs:"queue-status poll cadence while searching"`
	ReaperIntervalSecond    int `env:"REAPER_INTERVAL_SECOND"      envDefault:"60"   envDocs:"periodic stale-record sweep cadence; manual triggers within half of it are ignored"`
	WaitingTimeoutSecond    int `env:"WAITING_TIMEOUT_SECOND"      envDefault:"300"  envDocs:"age after which waiting queue entries and matches are cancelled"`
	InProgressTimeoutSecond int `env:"IN_PROGRESS_TIMEOUT_SECOND"  envDefault:"600"  envDocs:"age after which in-progress matches are abandoned"`
	ReconnectCeilingSecond  int `env:"RECONNECT_CEILING_SECOND"    envDefault:"300"  envDocs:"age after which an in-flight match is no longer offered for resume"`
	WatchdogIntervalSecond  int `env:"WATCHDOG_INTERVAL_SECOND"    envDefault:"5"    envDocs:"live-state check cadence"`
	WatchdogStuckChecks     int `env:"WATCHDOG_STUCK_CHECKS"       envDefault:"6"    envDocs:"consecutive identical checks before a match is considered stuck"`
	WatchdogMaxRecoveries   int `env:"WATCHDOG_MAX_RECOVERIES"     envDefault:"3"    envDocs:"automatic recoveries per play session before a fatal notice"`
	DebugLogCapacity        int `env:"DEBUG_LOG_CAPACITY"          envDefault:"100"  envDocs:"entries kept by the debug log ring buffer"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, reading environment variables directly")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config holding the envDefault values, for tests and embedding.
func Default() *Config {
	return &Config{
		HTTPAddr:                ":5200",
		LogLevel:                "info",
		PollIntervalMs:          1500,
		ReaperIntervalSecond:    60,
		WaitingTimeoutSecond:    300,
		InProgressTimeoutSecond: 600,
		ReconnectCeilingSecond:  300,
		WatchdogIntervalSecond:  5,
		WatchdogStuckChecks:     6,
		WatchdogMaxRecoveries:   3,
		DebugLogCapacity:        100,
	}
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *Config) ReaperInterval() time.Duration {
	return time.Duration(c.ReaperIntervalSecond) * time.Second
}

func (c *Config) WaitingTimeout() time.Duration {
	return time.Duration(c.WaitingTimeoutSecond) * time.Second
}

func (c *Config) InProgressTimeout() time.Duration {
	return time.Duration(c.InProgressTimeoutSecond) * time.Second
}

func (c *Config) ReconnectCeiling() time.Duration {
	return time.Duration(c.ReconnectCeilingSecond) * time.Second
}

func (c *Config) WatchdogInterval() time.Duration {
	return time.Duration(c.WatchdogIntervalSecond) * time.Second
}
