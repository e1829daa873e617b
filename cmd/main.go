// jobmate-acceptance-service
//
// Evaluates newly discovered short-notice jobs, picks a start time that fits
// the calendar and the per-weekday cap, and accepts the job on the platform.
//
// Each pass:
//   - ranks the batch by preference score
//   - skips jobs already accepted, ineligible, or refused by the user
//   - books the earliest free slot (platform → calendar → accepted_jobs)
//   - notifies the user and publishes EVENT_JOB_ACCEPTED
//
// Passes run every POLL_INTERVAL_SECONDS and never overlap.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"jobmate/acceptance-service/internal/acceptance"
	"jobmate/acceptance-service/internal/api"
	"jobmate/acceptance-service/internal/calendar"
	"jobmate/acceptance-service/internal/config"
	"jobmate/acceptance-service/internal/confirm"
	"jobmate/acceptance-service/internal/db"
	"jobmate/acceptance-service/internal/events"
	"jobmate/acceptance-service/internal/logger"
	"jobmate/acceptance-service/internal/notify"
	"jobmate/acceptance-service/internal/preferences"
	"jobmate/acceptance-service/internal/scheduler"
	"jobmate/acceptance-service/internal/slots"
	"jobmate/acceptance-service/internal/source"
	"jobmate/acceptance-service/internal/store"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("[acceptance-service] config error")
	}
	logger.Init(cfg.LogLevel)
	lg := logger.Component("main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	lg.Info().Msg("connecting to PostgreSQL")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.PgMaxConns)
	if err != nil {
		lg.Fatal().Err(err).Msg("PostgreSQL")
	}
	defer pool.Close()

	accepted := store.NewPostgresStore(pool, cfg.Location)
	if err := accepted.EnsureSchema(ctx); err != nil {
		lg.Fatal().Err(err).Msg("accepted_jobs schema")
	}
	ledger := store.NewLedger(accepted, cfg.Location)

	// ── Redis ────────────────────────────────────────────────────────────────
	lg.Info().Msg("connecting to Redis")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		lg.Fatal().Err(err).Msg("Redis")
	}
	defer rdb.Close()

	// ── Preferences ──────────────────────────────────────────────────────────
	prefs, err := preferences.NewStore(cfg.PreferencesFile, logger.Component("preferences"))
	if err != nil {
		lg.Fatal().Err(err).Str("path", cfg.PreferencesFile).Msg("preferences")
	}

	// ── Collaborators ────────────────────────────────────────────────────────
	cal, err := newCalendar(ctx, cfg, pool)
	if err != nil {
		lg.Fatal().Err(err).Msg("calendar")
	}

	var jobs acceptance.JobSource
	if cfg.JobFeedURL != "" {
		jobs = source.NewFeedFetcher(cfg.JobFeedURL, logger.Component("feed"))
		lg.Info().Str("url", cfg.JobFeedURL).Msg("job source: HTTP feed")
	} else {
		jobs = source.NewRedisQueue(rdb, cfg.JobQueueKey, source.DefaultBatchSize, logger.Component("queue"))
		lg.Info().Str("key", cfg.JobQueueKey).Msg("job source: Redis list")
	}

	redisNotifier := notify.NewRedisNotifier(rdb, cfg.PermissionTimeout, cfg.PermissionDefaultApprove, logger.Component("notify"))
	senders := []notify.Sender{redisNotifier}
	if cfg.TelegramBotToken != "" {
		senders = append(senders, notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, logger.Component("telegram")))
	}
	notifier := notify.NewFanout(redisNotifier, logger.Component("notify"), senders...)

	publishers := events.Multi{events.NewRedisPublisher(rdb)}
	if cfg.KafkaBroker != "" {
		kp := events.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
		defer kp.Close()
		publishers = append(publishers, kp)
	}

	if cfg.AcceptDryRun {
		lg.Warn().Msg("ACCEPT_DRY_RUN is set: jobs will not be accepted on the platform")
	}
	confirmer := confirm.NewHTTPConfirmer(cfg.Location, cfg.AcceptDryRun, logger.Component("confirm"))

	selector := slots.NewSelector(cal, ledger, cfg.Location,
		slots.WithCallTimeout(cfg.CallTimeout),
		slots.WithLogger(logger.Component("slots")),
	)

	orchestrator := acceptance.New(acceptance.Deps{
		Source:      jobs,
		Preferences: prefs,
		Store:       accepted,
		Selector:    selector,
		Calendar:    cal,
		Confirmer:   confirmer,
		Notifier:    notifier,
		Publisher:   publishers,
	},
		acceptance.WithCallTimeout(cfg.CallTimeout),
		acceptance.WithLocation(cfg.Location),
		acceptance.WithLogger(logger.Component("orchestrator")),
	)

	// ── Scheduler ────────────────────────────────────────────────────────────
	sched := scheduler.New(orchestrator, prefs, cfg.PollInterval, logger.Component("scheduler"))
	if err := sched.Start(ctx); err != nil {
		lg.Fatal().Err(err).Msg("scheduler")
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	h := api.NewHandler(accepted, ledger, prefs, sched, cfg.Location, logger.Component("api"))
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info().Str("version", version).Str("port", cfg.Port).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info().Msg("shutting down")
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("shutdown error")
	}
	lg.Info().Msg("stopped")
}

// newCalendar picks Google Calendar when credentials are configured and the
// local calendar_events table otherwise.
func newCalendar(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (acceptance.Calendar, error) {
	if cfg.GoogleCredentialsFile != "" {
		gc, err := calendar.NewGoogleCalendar(ctx, cfg.GoogleCredentialsFile, cfg.GoogleCalendarID, cfg.Location, logger.Component("calendar"))
		if err != nil {
			return nil, err
		}
		return gc, nil
	}
	pc := calendar.NewPostgresCalendar(pool)
	if err := pc.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	calLog := logger.Component("calendar")
	calLog.Warn().Msg("GOOGLE_CREDENTIALS_FILE not set, using local calendar_events table")
	return pc, nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "acceptance-service",
		"version": version,
	})
}
