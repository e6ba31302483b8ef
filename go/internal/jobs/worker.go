package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/clubkit/clubkit/go/internal/models"
	"github.com/clubkit/clubkit/go/internal/sqlutil"
)

// Handler executes one job payload. Delivery is at-least-once, so handlers
// must tolerate being invoked twice with the same payload and produce the
// same end state.
type Handler func(ctx context.Context, payload []byte) error

// Config holds job worker settings.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	RetryDelay   time.Duration
}

// DefaultConfig returns the worker settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		PollInterval: 15 * time.Second,
		BatchSize:    50,
		MaxRetries:   2,
		RetryDelay:   time.Second,
	}
}

// store is the transaction-scoped view of the queue a batch runs against.
type store interface {
	ClaimBatch(ctx context.Context, max int) ([]models.Job, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Worker drains the persisted job queue on a fixed poll interval. Claiming
// happens inside a transaction with row locks, so multiple workers never
// double-claim; handlers are idempotent regardless.
type Worker struct {
	withTx   func(ctx context.Context, fn func(s store) error) error
	handlers map[models.JobType]Handler
	config   Config
	clock    clockwork.Clock

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWorker creates a job queue worker backed by the Postgres queue.
func NewWorker(pool *pgxpool.Pool, cfg Config) *Worker {
	withTx := func(ctx context.Context, fn func(s store) error) error {
		return sqlutil.WithTx(ctx, pool, func(tx pgx.Tx) error {
			return fn(NewRepository(tx))
		})
	}
	return newWorker(withTx, cfg, clockwork.NewRealClock())
}

func newWorker(withTx func(ctx context.Context, fn func(s store) error) error, cfg Config, clock clockwork.Clock) *Worker {
	return &Worker{
		withTx:   withTx,
		handlers: make(map[models.JobType]Handler),
		config:   cfg,
		clock:    clock,
		stopChan: make(chan struct{}),
	}
}

// Register binds a handler to a job type. Must be called before Start.
func (w *Worker) Register(jobType models.JobType, h Handler) {
	w.handlers[jobType] = h
}

// Start begins polling in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("job worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	log.Info().
		Dur("poll_interval", w.config.PollInterval).
		Int("batch_size", w.config.BatchSize).
		Msg("job worker started")

	return nil
}

// Stop halts polling and waits for the in-flight batch to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("job worker not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	log.Info().Msg("job worker stopped")
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := w.clock.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Drain immediately on start.
	w.ProcessBatch(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.Chan():
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch claims one batch of pending jobs and runs their handlers.
// Jobs whose handler fails stay unprocessed and are reclaimed on a later
// tick. Exposed so an external scheduler can also drive the worker.
func (w *Worker) ProcessBatch(ctx context.Context) {
	err := w.withTx(ctx, func(s store) error {
		batch, err := s.ClaimBatch(ctx, w.config.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		log.Debug().Int("count", len(batch)).Msg("processing job batch")

		processed := 0
		for _, job := range batch {
			if err := w.runWithRetry(ctx, job); err != nil {
				log.Error().
					Err(err).
					Str("job_id", job.ID.String()).
					Str("job_type", string(job.Type)).
					Msg("job handler failed, leaving unprocessed")
				continue
			}

			if err := s.MarkProcessed(ctx, job.ID, w.clock.Now()); err != nil {
				return err
			}
			processed++
		}

		log.Info().
			Int("total", len(batch)).
			Int("processed", processed).
			Msg("job batch done")
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to process job batch")
	}
}

func (w *Worker) runWithRetry(ctx context.Context, job models.Job) error {
	handler, ok := w.handlers[job.Type]
	if !ok {
		return fmt.Errorf("no handler registered for job type %s", job.Type)
	}

	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.clock.After(w.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := handler(ctx, job.Payload); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("job_id", job.ID.String()).
				Int("attempt", attempt+1).
				Msg("job attempt failed, retrying")
			continue
		}
		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", w.config.MaxRetries+1, lastErr)
}
