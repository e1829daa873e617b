package config

import (
	"testing"
	"time"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost/acceptance",
		"REDIS_URL":    "redis://localhost:6379/0",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(envFrom(baseEnv()))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8083" {
		t.Errorf("Port = %q, want 8083", cfg.Port)
	}
	if cfg.PollInterval != 300*time.Second {
		t.Errorf("PollInterval = %v, want 5m", cfg.PollInterval)
	}
	if cfg.CallTimeout != 15*time.Second {
		t.Errorf("CallTimeout = %v, want 15s", cfg.CallTimeout)
	}
	if cfg.PermissionTimeout != 600*time.Second {
		t.Errorf("PermissionTimeout = %v, want 10m", cfg.PermissionTimeout)
	}
	if !cfg.PermissionDefaultApprove {
		t.Error("PermissionDefaultApprove should default to true")
	}
	if cfg.Location.String() != "Europe/Amsterdam" {
		t.Errorf("Location = %s, want Europe/Amsterdam", cfg.Location)
	}
	if cfg.JobQueueKey != "jobs:discovered" {
		t.Errorf("JobQueueKey = %q", cfg.JobQueueKey)
	}
	if cfg.PgMaxConns != 4 {
		t.Errorf("PgMaxConns = %d, want 4", cfg.PgMaxConns)
	}
}

func TestLoad_RequiredVariables(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "REDIS_URL"} {
		env := baseEnv()
		delete(env, key)
		if _, err := load(envFrom(env)); err == nil {
			t.Errorf("load without %s: expected error, got nil", key)
		}
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"POLL_INTERVAL_SECONDS":      "0",
		"CALL_TIMEOUT_SECONDS":       "abc",
		"PERMISSION_TIMEOUT_SECONDS": "-5",
		"PG_MAX_CONNS":               "0",
		"TIMEZONE":                   "Mars/Olympus",
		"ACCEPT_DRY_RUN":             "sometimes",
		"JOB_FEED_URL":               "ftp://example.com/jobs",
	}
	for key, val := range cases {
		env := baseEnv()
		env[key] = val
		if _, err := load(envFrom(env)); err == nil {
			t.Errorf("load with %s=%q: expected error, got nil", key, val)
		}
	}
}

func TestLoad_TelegramMustBePaired(t *testing.T) {
	env := baseEnv()
	env["TELEGRAM_BOT_TOKEN"] = "123:abc"
	if _, err := load(envFrom(env)); err == nil {
		t.Error("expected error when only TELEGRAM_BOT_TOKEN is set")
	}
	env["TELEGRAM_CHAT_ID"] = "42"
	cfg, err := load(envFrom(env))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TelegramChatID != "42" {
		t.Errorf("TelegramChatID = %q", cfg.TelegramChatID)
	}
}

func TestLoad_Overrides(t *testing.T) {
	env := baseEnv()
	env["POLL_INTERVAL_SECONDS"] = "60"
	env["PERMISSION_DEFAULT_APPROVE"] = "false"
	env["TIMEZONE"] = "UTC"
	env["JOB_FEED_URL"] = "https://feed.example.com/jobs"
	cfg, err := load(envFrom(env))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PollInterval != time.Minute {
		t.Errorf("PollInterval = %v, want 1m", cfg.PollInterval)
	}
	if cfg.PermissionDefaultApprove {
		t.Error("PermissionDefaultApprove should be false")
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", cfg.Location)
	}
	if cfg.JobFeedURL != "https://feed.example.com/jobs" {
		t.Errorf("JobFeedURL = %q", cfg.JobFeedURL)
	}
}
