package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ocx/webhooks/internal/domain"
	"github.com/ocx/webhooks/internal/metrics"
)

const (
	readyListKey    = "webhooks:queue:ready"
	delayedZSetKey  = "webhooks:queue:delayed"
	promoteInterval = time.Second
)

// RedisQueue is the default JS backend: a ready LIST that DequeueBlocking
// pops with BLPOP, and a delayed ZSET (score = ready-at unix time) that a
// background promoter goroutine moves into the ready list once due. This
// mirrors the ready-list/delayed-set split in the teacher's
// internal/webhooks/cloud_dispatcher.go retry scheduling.
type RedisQueue struct {
	client  *redis.Client
	metrics *metrics.Metrics
	logger  *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewRedisQueue dials addr and starts the delayed-job promoter.
func NewRedisQueue(addr, password string, db int, m *metrics.Metrics) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second, // > BLPOP timeout headroom
		WriteTimeout: 3 * time.Second,
		PoolSize:     20,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("queue: redis ping: %w", err)
	}

	q := &RedisQueue{
		client:  client,
		metrics: m,
		logger:  slog.Default().With("component", "redis_queue"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go q.promoteLoop()
	return q, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, job domain.DeliveryJob) error {
	blob, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, readyListKey, blob).Err(); err != nil {
		q.metrics.QueueEnqueueFail.WithLabelValues("redis").Inc()
		return fmt.Errorf("queue: rpush: %w", err)
	}
	return nil
}

func (q *RedisQueue) EnqueueIn(ctx context.Context, job domain.DeliveryJob, delay time.Duration) error {
	if delay <= 0 {
		return q.Enqueue(ctx, job)
	}
	blob, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job: %w", err)
	}
	readyAt := float64(time.Now().Add(delay).Unix())
	if err := q.client.ZAdd(ctx, delayedZSetKey, redis.Z{Score: readyAt, Member: blob}).Err(); err != nil {
		q.metrics.QueueEnqueueFail.WithLabelValues("redis").Inc()
		return fmt.Errorf("queue: zadd: %w", err)
	}
	return nil
}

func (q *RedisQueue) DequeueBlocking(ctx context.Context, timeout time.Duration) (*domain.DeliveryJob, error) {
	res, err := q.client.BLPop(ctx, timeout, readyListKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue: blpop: %w", err)
	}
	// res[0] is the key name, res[1] is the value.
	var job domain.DeliveryJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("queue: unmarshal job: %w", err)
	}
	return &job, nil
}

// promoteLoop periodically moves delayed jobs whose ready-at time has
// elapsed into the ready list.
func (q *RedisQueue) promoteLoop() {
	defer close(q.doneCh)
	ticker := time.NewTicker(promoteInterval)
	defer ticker.Stop()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.promoteDue()
			q.reportDepth()
		}
	}
}

func (q *RedisQueue) promoteDue() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := float64(time.Now().Unix())
	due, err := q.client.ZRangeByScore(ctx, delayedZSetKey, &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		q.logger.Error("promote: zrangebyscore", "error", err)
		return
	}
	for _, member := range due {
		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, delayedZSetKey, member)
		pipe.RPush(ctx, readyListKey, member)
		if _, err := pipe.Exec(ctx); err != nil {
			q.logger.Error("promote: move to ready", "error", err)
		}
	}
}

// reportDepth sets the QueueDepth gauge for both the ready list and the
// delayed set so operators can see backlog growth, not just throughput.
func (q *RedisQueue) reportDepth() {
	if q.metrics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if ready, err := q.client.LLen(ctx, readyListKey).Result(); err == nil {
		q.metrics.QueueDepth.WithLabelValues("redis", "ready").Set(float64(ready))
	} else {
		q.logger.Error("report depth: llen", "error", err)
	}
	if delayed, err := q.client.ZCard(ctx, delayedZSetKey).Result(); err == nil {
		q.metrics.QueueDepth.WithLabelValues("redis", "delayed").Set(float64(delayed))
	} else {
		q.logger.Error("report depth: zcard", "error", err)
	}
}

func (q *RedisQueue) Close() error {
	close(q.stopCh)
	<-q.doneCh
	return q.client.Close()
}
