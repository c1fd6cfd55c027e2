// Package worker runs the consume loop on the input queue, applies the
// job-level retry policy, and sweeps expired pending-validation states back
// into the queue.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
	"github.com/alexberardi/jarvis-ocr-service/internal/schema"
	"github.com/alexberardi/jarvis-ocr-service/internal/state"
)

// JobQueue moves envelopes through the backing store.
type JobQueue interface {
	Push(ctx context.Context, queueName string, v any) error
	Pop(ctx context.Context, queueName string, timeout time.Duration) ([]byte, error)
}

// Jobs is the pipeline surface the worker drives.
type Jobs interface {
	Start(ctx context.Context, job *domain.JobEnvelope) error
	Fail(ctx context.Context, job *domain.JobEnvelope, results []domain.ImageResult, jobErr domain.ErrorInfo) error
}

// PendingStore exposes the sweepable side of the state store.
type PendingStore interface {
	Expired(ctx context.Context) ([]string, error)
	Take(ctx context.Context, correlationID string) (*state.Pending, error)
}

// Options tunes the worker loop.
type Options struct {
	MaxAttempts   int
	Slots         int
	PopTimeout    time.Duration
	SweepInterval time.Duration
}

// Worker is the long-running consumer of jarvis.ocr.jobs.
type Worker struct {
	queue  JobQueue
	jobs   Jobs
	store  PendingStore
	logger zerolog.Logger
	opts   Options

	slots chan struct{}
	wg    sync.WaitGroup
}

// New assembles a worker.
func New(q JobQueue, jobs Jobs, store PendingStore, logger zerolog.Logger, opts Options) *Worker {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Slots <= 0 {
		opts.Slots = 4
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 5 * time.Second
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 30 * time.Second
	}
	return &Worker{
		queue:  q,
		jobs:   jobs,
		store:  store,
		logger: logger,
		opts:   opts,
		slots:  make(chan struct{}, opts.Slots),
	}
}

// Run blocks consuming jobs until ctx is canceled, then waits for in-flight
// jobs to finish or persist their pending state.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Str("queue", domain.InputQueue).Int("slots", w.opts.Slots).Msg("worker started")

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.sweepLoop(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()
		case w.slots <- struct{}{}:
		}

		raw, err := w.queue.Pop(ctx, domain.InputQueue, w.opts.PopTimeout)
		if err != nil {
			<-w.slots
			if errors.Is(err, domain.ErrNoJobAvailable) {
				continue
			}
			if ctx.Err() != nil {
				w.wg.Wait()
				return ctx.Err()
			}
			w.logger.Error().Err(err).Msg("failed to pop job")
			time.Sleep(time.Second)
			continue
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-w.slots }()
			// In-flight jobs finish (or suspend) even during shutdown.
			w.handle(context.WithoutCancel(ctx), raw)
		}()
	}
}

// handle decodes one popped message and runs it through the pipeline with
// the retry policy applied.
func (w *Worker) handle(ctx context.Context, raw []byte) {
	env, err := schema.DecodeRequest(raw)
	if err != nil {
		w.rejectInvalid(ctx, raw, err)
		return
	}

	if err := w.jobs.Start(ctx, env); err != nil {
		// Anything that reaches here is job-level; uncategorized errors are
		// treated as transient just like marked ones.
		w.retryOrFail(ctx, env, err)
	}
}

// rejectInvalid fail-fasts a schema-violating message. When the envelope
// still names a reply queue a bad_request completion is emitted; otherwise
// the message can only be dropped.
func (w *Worker) rejectInvalid(ctx context.Context, raw []byte, cause error) {
	var env domain.JobEnvelope
	_ = json.Unmarshal(raw, &env)

	w.logger.Warn().Err(cause).Str("job_id", env.JobID).Msg("rejected invalid request envelope")

	if env.ReplyTo == "" {
		w.logger.Error().Str("job_id", env.JobID).Msg("invalid envelope has no reply_to, dropping")
		return
	}
	jobErr := domain.ErrorInfo{Code: domain.CodeBadRequest, Message: cause.Error()}
	if err := w.jobs.Fail(ctx, &env, nil, jobErr); err != nil {
		w.logger.Error().Err(err).Str("job_id", env.JobID).Msg("failed to emit bad_request completion")
	}
}

// retryOrFail re-queues a transiently failed job to the back of the input
// queue, or emits the terminal exhausted_retries completion once the attempt
// ceiling is reached.
func (w *Worker) retryOrFail(ctx context.Context, env *domain.JobEnvelope, cause error) {
	if env.Attempt >= w.opts.MaxAttempts {
		w.logger.Error().Err(cause).Str("job_id", env.JobID).Int("attempt", env.Attempt).Msg("job failed after final attempt")
		jobErr := domain.ErrorInfo{Code: domain.CodeExhaustedRetries, Message: cause.Error()}
		if err := w.jobs.Fail(ctx, env, nil, jobErr); err != nil {
			w.logger.Error().Err(err).Str("job_id", env.JobID).Msg("failed to emit exhausted_retries completion")
		}
		return
	}

	retry := *env
	retry.Attempt = env.Attempt + 1
	if err := w.queue.Push(ctx, domain.InputQueue, retry); err != nil {
		w.logger.Error().Err(err).Str("job_id", env.JobID).Msg("failed to re-queue job")
		return
	}
	w.logger.Warn().Err(cause).Str("job_id", env.JobID).Int("attempt", retry.Attempt).Msg("job re-queued")
}

func (w *Worker) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(w.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepExpired(context.WithoutCancel(ctx))
		}
	}
}

// sweepExpired reclaims pending states whose validator never called back.
// Taking the state is the ownership handshake: a late callback racing the
// sweep loses exactly one of the two.
func (w *Worker) sweepExpired(ctx context.Context) {
	ids, err := w.store.Expired(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("deadline sweep failed")
		return
	}

	for _, id := range ids {
		pending, err := w.store.Take(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrStateNotFound) {
				w.logger.Error().Err(err).Str("correlation_id", id).Msg("failed to take expired state")
			}
			continue
		}

		env := pending.OriginalJob
		if pending.Attempt >= w.opts.MaxAttempts {
			w.logger.Error().
				Str("job_id", env.JobID).
				Str("correlation_id", id).
				Int("attempt", pending.Attempt).
				Msg("validator timeout after final attempt")
			jobErr := domain.ErrorInfo{
				Code:    domain.CodeExhaustedRetries,
				Message: "validator callback never arrived (" + domain.CodeValidatorTimeout + ")",
			}
			if err := w.jobs.Fail(ctx, &env, pending.Results, jobErr); err != nil {
				w.logger.Error().Err(err).Str("job_id", env.JobID).Msg("failed to emit timeout completion")
			}
			continue
		}

		env.Attempt = pending.Attempt + 1
		if err := w.queue.Push(ctx, domain.InputQueue, env); err != nil {
			w.logger.Error().Err(err).Str("job_id", env.JobID).Msg("failed to re-queue timed-out job")
			continue
		}
		w.logger.Warn().
			Str("job_id", env.JobID).
			Str("correlation_id", id).
			Int("attempt", env.Attempt).
			Msg("validator timeout, job re-queued")
	}
}
