package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clubkit/clubkit/go/clients/rosterclient"
	"github.com/clubkit/clubkit/go/internal/config"
	"github.com/clubkit/clubkit/go/internal/dbconfig"
	"github.com/clubkit/clubkit/go/internal/jobs"
	"github.com/clubkit/clubkit/go/internal/models"
	"github.com/clubkit/clubkit/go/internal/notify"
	"github.com/clubkit/clubkit/go/internal/recipients"
	"github.com/clubkit/clubkit/go/internal/reminders"
	"github.com/clubkit/clubkit/go/internal/schedule"
	"github.com/clubkit/clubkit/go/internal/series"
	"github.com/clubkit/clubkit/migrations"
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

	if err := migrations.Up(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

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

	clock := clockwork.NewRealClock()
	scheduleRepo := schedule.NewRepository(pool)
	rosterClient := rosterclient.New(cfg.Roster.BaseURL)
	channels := recipients.NewPostgresChannelDirectory(pool)
	resolver := recipients.NewResolver(rosterClient, channels)

	expander := series.NewExpander(scheduleRepo)
	scanner := reminders.NewScanner(scheduleRepo, resolver, notifier, clock, cfg.ScannerConfig())

	worker := jobs.NewWorker(pool, cfg.WorkerConfig())
	worker.Register(models.JobTypeExpandSeries, expander.HandleJob)
	worker.Register(models.JobTypeNotify, scanner.HandleNotifyJob)

	if err := worker.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start job worker")
	}

	<-ctx.Done()
	if err := worker.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop job worker")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
