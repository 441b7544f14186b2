package reconcile

import (
	"context"
	"time"

	apperrors "bazaar/internal/errors"

	"go.uber.org/zap"
)

type StockDecrementer interface {
	DecrementStock(ctx context.Context, id string, quantity int) error
}

type Recorder interface {
	IncReconciliation(result string)
}

const (
	ResultResolved     = "resolved"
	ResultRetried      = "retried"
	ResultDeadLettered = "dead_lettered"
)

const (
	maxBackoff        = time.Hour
	queueWriteTimeout = 5 * time.Second
)

// Worker retries the decrements a partial commit left behind. Only the
// failed items are retried; applied ones are never touched again.
type Worker struct {
	queue       Queue
	catalog     StockDecrementer
	interval    time.Duration
	maxAttempts int
	recorder    Recorder
	logger      *zap.Logger
	now         func() time.Time
}

func NewWorker(queue Queue, catalog StockDecrementer, interval time.Duration, maxAttempts int, recorder Recorder, logger *zap.Logger) *Worker {
	return &Worker{
		queue:       queue,
		catalog:     catalog,
		interval:    interval,
		maxAttempts: maxAttempts,
		recorder:    recorder,
		logger:      logger,
		now:         time.Now,
	}
}

// Run polls the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("reconcile worker started", zap.Duration("interval", w.interval))

	for {
		if _, err := w.ProcessDue(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("reconcile poll failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			w.logger.Info("reconcile worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessDue handles every task that is due now and reports how many it
// took off the queue.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	processed := 0
	for ctx.Err() == nil {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			return processed, err
		}
		if task == nil {
			return processed, nil
		}

		w.process(ctx, *task)
		processed++
	}
	return processed, ctx.Err()
}

func (w *Worker) process(ctx context.Context, task Task) {
	attempt := task.Attempts + 1
	logger := w.logger.With(zap.String("taskId", task.ID), zap.String("orderId", task.OrderID), zap.Int("attempt", attempt))

	// Queue writes outlive the run context so a shutdown never drops a task.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), queueWriteTimeout)
	defer cancel()

	var remaining []Item
	permanent := false
	lastError := task.LastError
	for i, item := range task.Items {
		if ctx.Err() != nil {
			remaining = append(remaining, task.Items[i:]...)
			break
		}

		err := w.catalog.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err == nil {
			logger.Info("reconciled stock decrement", zap.String("productId", item.ProductID), zap.Int("quantity", item.Quantity))
			continue
		}

		remaining = append(remaining, item)
		if ctx.Err() != nil {
			continue
		}
		lastError = err.Error()
		if _, ok := apperrors.IsNotFoundError(err); ok {
			permanent = true
		}
		logger.Warn("stock decrement still failing", zap.String("productId", item.ProductID), zap.Error(err))
	}

	if len(remaining) == 0 {
		w.recorder.IncReconciliation(ResultResolved)
		logger.Info("reconcile task resolved")
		return
	}

	task.Items = remaining
	task.LastError = lastError

	if ctx.Err() != nil && !permanent {
		logger.Info("reconcile task interrupted, requeued", zap.Any("items", remaining))
		if err := w.queue.EnqueueAt(writeCtx, task, w.now()); err != nil {
			logger.Error("failed to requeue interrupted reconcile task", zap.Any("items", remaining), zap.Error(err))
		}
		return
	}

	task.Attempts = attempt
	if permanent || task.Attempts >= w.maxAttempts {
		w.recorder.IncReconciliation(ResultDeadLettered)
		logger.Error("reconcile task dead-lettered", zap.Any("items", remaining), zap.String("lastError", task.LastError))
		if err := w.queue.DeadLetter(writeCtx, task); err != nil {
			logger.Error("failed to dead-letter reconcile task", zap.Any("items", remaining), zap.Error(err))
		}
		return
	}

	w.recorder.IncReconciliation(ResultRetried)
	next := w.now().Add(w.backoff(task.Attempts))
	if err := w.queue.EnqueueAt(writeCtx, task, next); err != nil {
		logger.Error("failed to reschedule reconcile task", zap.Any("items", remaining), zap.Error(err))
	}
}

func (w *Worker) backoff(attempt int) time.Duration {
	d := w.interval
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
