package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clubkit/clubkit/go/clients/rosterclient"
	"github.com/clubkit/clubkit/go/internal/config"
	"github.com/clubkit/clubkit/go/internal/dbconfig"
	"github.com/clubkit/clubkit/go/internal/notify"
	"github.com/clubkit/clubkit/go/internal/recipients"
	"github.com/clubkit/clubkit/go/internal/reminders"
	"github.com/clubkit/clubkit/go/internal/schedule"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(getEnv("CLUBKIT_CONFIG", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbCfg := dbconfig.NewConfigFromEnv()
	pool, err := dbconfig.Connect(ctx, dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	var notifier reminders.Notifier
	if cfg.NATS.URL != "" {
		conn, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			log.Fatal().Err(err).Str("nats_url", cfg.NATS.URL).Msg("failed to connect to NATS")
		}
		defer conn.Close()
		notifier = notify.NewNATSNotifier(conn, cfg.NATS.SubjectPrefix)
	} else {
		log.Warn().Msg("NATS url not configured, reminders are logged only")
		notifier = notify.NewLogNotifier()
	}

	scheduleRepo := schedule.NewRepository(pool)
	rosterClient := rosterclient.New(cfg.Roster.BaseURL)
	channels := recipients.NewPostgresChannelDirectory(pool)
	resolver := recipients.NewResolver(rosterClient, channels)
	scanner := reminders.NewScanner(scheduleRepo, resolver, notifier, clockwork.NewRealClock(), cfg.ScannerConfig())

	log.Info().Str("schedule", cfg.Reminders.Schedule).Msg("starting reminder scanner")

	// SkipIfStillRunning keeps a slow scan from overlapping the next tick.
	runner := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = runner.AddFunc(cfg.Reminders.Schedule, func() {
		scanCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := scanner.Scan(scanCtx); err != nil {
			log.Error().Err(err).Msg("reminder scan failed, retrying next tick")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid reminder schedule")
	}

	runner.Start()
	<-ctx.Done()

	log.Info().Msg("shutting down reminder scanner")
	<-runner.Stop().Done()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
