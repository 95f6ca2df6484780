package worker

import (
	"context"
	"errors"
	"time"

	"problem_solver/internal/app/service"
	"problem_solver/internal/platform/logger"
)

// Queue is the slice of the Redis solve queue the worker consumes.
type Queue interface {
	Name() string
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	Requeue(ctx context.Context, problemID string) error
	Lock(ctx context.Context, problemID string) (release func(context.Context) error, ok bool, err error)
}

// Processor runs the pipeline for one queued problem.
type Processor interface {
	Process(ctx context.Context, problemID string) (*service.SolveResult, error)
}

type SolveWorker struct {
	queue        Queue
	processor    Processor
	popTimeout   time.Duration
	errorBackoff time.Duration
}

func NewSolveWorker(queue Queue, processor Processor) *SolveWorker {
	return &SolveWorker{
		queue:        queue,
		processor:    processor,
		popTimeout:   5 * time.Second,
		errorBackoff: 5 * time.Second,
	}
}

// Start consumes problem ids until ctx is cancelled. Problems run one at a
// time per worker; the per-problem lock keeps two workers off the same id.
func (w *SolveWorker) Start(ctx context.Context) error {
	logger.Info().Str("queue", w.queue.Name()).Msg("Solve worker started")
	for {
		if ctx.Err() != nil {
			logger.Info().Msg("Solve worker stopping")
			return nil
		}

		problemID, err := w.queue.Pop(ctx, w.popTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error().Err(err).Str("queue", w.queue.Name()).Msg("Failed to pop from solve queue")
			w.sleep(ctx, w.errorBackoff)
			continue
		}
		if problemID == "" {
			continue
		}

		w.processWithLock(ctx, problemID)
	}
}

func (w *SolveWorker) processWithLock(ctx context.Context, problemID string) {
	release, ok, err := w.queue.Lock(ctx, problemID)
	if err != nil {
		logger.Error().Err(err).Str("problem_id", problemID).Msg("Failed to attempt lock acquisition")
		w.requeue(ctx, problemID)
		return
	}
	if !ok {
		// another worker holds it and will finish the problem
		logger.Info().Str("problem_id", problemID).Msg("Problem already locked by another worker, dropping duplicate")
		return
	}
	defer func() {
		// ctx may already be cancelled at shutdown
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			logger.Warn().Err(err).Str("problem_id", problemID).Msg("Did not release solve lock")
		}
	}()

	res, err := w.processor.Process(ctx, problemID)
	if err != nil {
		logger.Error().Err(err).Str("problem_id", problemID).Msg("Failed to process queued problem")
		return
	}
	logger.Info().Str("problem_id", problemID).Str("status", string(res.Problem.Status)).Msg("Queued problem finished")
}

func (w *SolveWorker) requeue(ctx context.Context, problemID string) {
	if err := w.queue.Requeue(ctx, problemID); err != nil {
		logger.Error().Err(err).Str("problem_id", problemID).Msg("Failed to re-queue problem")
		return
	}
	logger.Info().Str("problem_id", problemID).Msg("Problem re-queued")
	w.sleep(ctx, time.Second)
}

func (w *SolveWorker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
