// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config holds all runtime configuration for the acceptance service.
type Config struct {
	Port            string
	DatabaseURL     string
	RedisURL        string
	PgMaxConns      int32
	PreferencesFile string
	PollInterval    time.Duration
	CallTimeout     time.Duration
	Location        *time.Location
	LogLevel        string

	// Job source: HTTP feed when JobFeedURL is set, Redis list otherwise.
	JobFeedURL  string
	JobQueueKey string

	GoogleCredentialsFile string // empty → PostgreSQL-backed calendar
	GoogleCalendarID      string

	TelegramBotToken string
	TelegramChatID   string

	PermissionTimeout        time.Duration
	PermissionDefaultApprove bool

	AcceptDryRun bool

	KafkaBroker string // empty → no Kafka event sink
	KafkaTopic  string
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	dbURL := getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	poll, err := positiveSeconds(getenv, "POLL_INTERVAL_SECONDS", 300)
	if err != nil {
		return nil, err
	}
	callTimeout, err := positiveSeconds(getenv, "CALL_TIMEOUT_SECONDS", 15)
	if err != nil {
		return nil, err
	}
	permTimeout, err := positiveSeconds(getenv, "PERMISSION_TIMEOUT_SECONDS", 600)
	if err != nil {
		return nil, err
	}

	maxConns := 4
	if s := getenv("PG_MAX_CONNS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("PG_MAX_CONNS must be a positive integer, got %q", s)
		}
		maxConns = v
	}

	tz := getenv("TIMEZONE")
	if tz == "" {
		tz = "Europe/Amsterdam"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}

	defaultApprove, err := boolVar(getenv, "PERMISSION_DEFAULT_APPROVE", true)
	if err != nil {
		return nil, err
	}
	dryRun, err := boolVar(getenv, "ACCEPT_DRY_RUN", false)
	if err != nil {
		return nil, err
	}

	feedURL := getenv("JOB_FEED_URL")
	if feedURL != "" && !strings.HasPrefix(feedURL, "http://") && !strings.HasPrefix(feedURL, "https://") {
		return nil, fmt.Errorf("JOB_FEED_URL must be an http(s) URL, got %q", feedURL)
	}

	botToken, chatID := getenv("TELEGRAM_BOT_TOKEN"), getenv("TELEGRAM_CHAT_ID")
	if (botToken == "") != (chatID == "") {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	return &Config{
		Port:                     withDefault(getenv("ACCEPTANCE_PORT"), "8083"),
		DatabaseURL:              dbURL,
		RedisURL:                 redisURL,
		PgMaxConns:               int32(maxConns),
		PreferencesFile:          withDefault(getenv("PREFERENCES_FILE"), "data/user_preferences.yaml"),
		PollInterval:             poll,
		CallTimeout:              callTimeout,
		Location:                 loc,
		LogLevel:                 withDefault(getenv("LOG_LEVEL"), "info"),
		JobFeedURL:               feedURL,
		JobQueueKey:              withDefault(getenv("JOB_QUEUE_KEY"), "jobs:discovered"),
		GoogleCredentialsFile:    getenv("GOOGLE_CREDENTIALS_FILE"),
		GoogleCalendarID:         withDefault(getenv("GOOGLE_CALENDAR_ID"), "primary"),
		TelegramBotToken:         botToken,
		TelegramChatID:           chatID,
		PermissionTimeout:        permTimeout,
		PermissionDefaultApprove: defaultApprove,
		AcceptDryRun:             dryRun,
		KafkaBroker:              getenv("KAFKA_BROKER"),
		KafkaTopic:               withDefault(getenv("KAFKA_TOPIC"), "jobs.accepted"),
	}, nil
}

func positiveSeconds(getenv func(string) string, key string, def int) (time.Duration, error) {
	v := def
	if s := getenv(key); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
		}
		v = n
	}
	return time.Duration(v) * time.Second, nil
}

func boolVar(getenv func(string) string, key string, def bool) (bool, error) {
	s := getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, s)
	}
	return v, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
