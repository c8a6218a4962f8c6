// Package worker implements the delivery worker (DW): the goroutine pool
// that consumes DeliveryJobs and runs the attempt protocol against each
// subscription's target URL, grounded in the worker-pool shape of the
// teacher's dispatcher (fixed goroutine count, per-job timeout, structured
// retry via re-enqueue).
package worker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ocx/webhooks/internal/cache"
	"github.com/ocx/webhooks/internal/domain"
	"github.com/ocx/webhooks/internal/events"
	"github.com/ocx/webhooks/internal/metrics"
	"github.com/ocx/webhooks/internal/queue"
	"github.com/ocx/webhooks/internal/store"
)

// Config parameterizes the attempt protocol. Defaults match
// SPEC_FULL.md §4.2 and are fixed for test determinism unless overridden.
type Config struct {
	NumWorkers      int
	HTTPTimeout     time.Duration
	MaxAttempts     int
	BackoffSchedule []time.Duration
	DequeueTimeout  time.Duration
}

// DefaultConfig returns the protocol constants named in SPEC_FULL.md §4.2.
func DefaultConfig() Config {
	return Config{
		NumWorkers:  8,
		HTTPTimeout: 5 * time.Second,
		MaxAttempts: 5,
		BackoffSchedule: []time.Duration{
			10 * time.Second,
			30 * time.Second,
			60 * time.Second,
			300 * time.Second,
			900 * time.Second,
		},
		DequeueTimeout: 2 * time.Second,
	}
}

// Dispatcher owns the delivery worker pool.
type Dispatcher struct {
	queue   queue.Queue
	cache   cache.Cache
	store   store.Store
	emitter events.EventEmitter
	metrics *metrics.Metrics
	client  *http.Client
	cfg     Config
	logger  *slog.Logger

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New builds a Dispatcher. emitter may be nil.
func New(q queue.Queue, c cache.Cache, s store.Store, emitter events.EventEmitter, m *metrics.Metrics, cfg Config) *Dispatcher {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = DefaultConfig().NumWorkers
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultConfig().HTTPTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if len(cfg.BackoffSchedule) == 0 {
		cfg.BackoffSchedule = DefaultConfig().BackoffSchedule
	}
	if cfg.DequeueTimeout <= 0 {
		cfg.DequeueTimeout = DefaultConfig().DequeueTimeout
	}
	return &Dispatcher{
		queue:   q,
		cache:   c,
		store:   s,
		emitter: emitter,
		metrics: m,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		cfg:     cfg,
		logger:  slog.Default().With("component", "dispatcher"),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the worker pool. Call Stop to drain and shut it down.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.cfg.NumWorkers; i++ {
		d.wg.Add(1)
		go d.runWorker(ctx, i)
	}
}

// Stop signals every worker to exit after its current job and waits for
// them to drain.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
}

func (d *Dispatcher) runWorker(ctx context.Context, id int) {
	defer d.wg.Done()
	log := d.logger.With("worker", id)
	for {
		select {
		case <-d.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		job, err := d.queue.DequeueBlocking(ctx, d.cfg.DequeueTimeout)
		if err != nil {
			log.Error("dequeue failed", "error", err)
			continue
		}
		if job == nil {
			continue // timed out with nothing ready
		}
		d.handleJob(ctx, *job)
	}
}

// handleJob runs the attempt protocol exactly as specified in
// SPEC_FULL.md §4.2, steps 1-6.
func (d *Dispatcher) handleJob(ctx context.Context, job domain.DeliveryJob) {
	log := d.logger.With("webhook_id", job.WebhookID, "attempt", job.Attempt)

	// Step 1: resolve the subscription via the cache-aside SC. A missing
	// subscription drops the job silently — no DeliveryLog row.
	sub, err := d.cache.Get(ctx, job.SubscriptionID)
	if err != nil {
		log.Error("subscription lookup failed, dropping job", "error", err)
		return
	}
	if sub == nil {
		log.Warn("subscription no longer exists, dropping job")
		return
	}

	// Step 2-3: build the request and execute it within HTTP_TIMEOUT.
	start := time.Now()
	status, attemptErr := d.attempt(ctx, sub.TargetURL, job)
	elapsed := time.Since(start)

	outcome, delay := d.classify(status, attemptErr, job.Attempt)

	row := &domain.DeliveryLog{
		ID:             uuid.New().String(),
		WebhookID:      job.WebhookID,
		SubscriptionID: job.SubscriptionID,
		TargetURL:      sub.TargetURL,
		Timestamp:      time.Now().UTC(),
		AttemptNumber:  job.Attempt,
		Outcome:        outcome,
		StatusCode:     status,
	}
	if attemptErr != nil {
		msg := attemptErr.Error()
		row.Error = &msg
	}

	if err := d.store.AppendDeliveryLog(ctx, row); err != nil {
		log.Error("append delivery log failed", "error", err)
	}
	if d.metrics != nil {
		d.metrics.RecordAttempt(string(outcome), elapsed.Seconds())
	}
	events.EmitDeliveryOutcome(d.emitter, row)

	if outcome == domain.OutcomeFailedAttempt {
		next := job.NextAttempt()
		if err := d.queue.EnqueueIn(ctx, next, delay); err != nil {
			log.Error("re-enqueue retry failed", "error", err)
		}
	}
}

// attempt performs the single outbound HTTP POST and reports its outcome as
// (status code, error). A non-nil error means a network/timeout/DNS
// failure; a nil error with a status outside 2xx means the target
// responded but unsuccessfully.
func (d *Dispatcher) attempt(ctx context.Context, targetURL string, job domain.DeliveryJob) (*int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, d.cfg.HTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, targetURL, bytes.NewReader(job.Payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if job.EventType != nil {
		req.Header.Set("X-Event-Type", *job.EventType)
	}
	if job.Signature != nil {
		req.Header.Set("X-Signature", *job.Signature)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	if status >= 200 && status <= 299 {
		return &status, nil
	}
	return &status, fmt.Errorf("HTTP %d", status)
}

// classify turns the raw attempt result into a terminal/non-terminal
// outcome and, for a retryable attempt, the backoff delay before the next
// one. Any non-2xx response or transport error is treated as transient —
// this implementation does not distinguish further (SPEC_FULL.md §9).
func (d *Dispatcher) classify(status *int, attemptErr error, attempt int) (domain.Outcome, time.Duration) {
	if attemptErr == nil {
		return domain.OutcomeSuccess, 0
	}
	if attempt < d.cfg.MaxAttempts {
		idx := attempt - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= len(d.cfg.BackoffSchedule) {
			idx = len(d.cfg.BackoffSchedule) - 1
		}
		return domain.OutcomeFailedAttempt, d.cfg.BackoffSchedule[idx]
	}
	return domain.OutcomeFailure, 0
}
