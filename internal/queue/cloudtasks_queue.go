package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/ocx/webhooks/internal/domain"
)

// CloudTasksQueue schedules delivery jobs as Cloud Tasks that POST back to
// the worker's ready-queue intake endpoint once due. Pull-style dequeue
// isn't part of the Cloud Tasks push model, so DequeueBlocking is served by
// an embedded RedisQueue that the intake endpoint (and the fallback path
// below) both write into — the same "cloud backend wraps a Redis fallback"
// shape as the teacher's internal/webhooks/cloud_dispatcher.go.
type CloudTasksQueue struct {
	client       *cloudtasks.Client
	queuePath    string // projects/{project}/locations/{location}/queues/{queue}
	targetURL    string // HTTPS endpoint the Cloud Task POSTs to on due
	serviceEmail string // OIDC service account used to authenticate the callback

	fallback *RedisQueue
	logger   *slog.Logger
}

// CloudTasksConfig parameterizes a CloudTasksQueue.
type CloudTasksConfig struct {
	Project      string
	Location     string
	QueueName    string
	TargetURL    string
	ServiceEmail string
}

// NewCloudTasksQueue builds a CloudTasksQueue backed by fallback for the
// ready-side of the protocol.
func NewCloudTasksQueue(ctx context.Context, cfg CloudTasksConfig, fallback *RedisQueue) (*CloudTasksQueue, error) {
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue: cloud tasks client: %w", err)
	}
	return &CloudTasksQueue{
		client:       client,
		queuePath:    fmt.Sprintf("projects/%s/locations/%s/queues/%s", cfg.Project, cfg.Location, cfg.QueueName),
		targetURL:    cfg.TargetURL,
		serviceEmail: cfg.ServiceEmail,
		fallback:     fallback,
		logger:       slog.Default().With("component", "cloudtasks_queue"),
	}, nil
}

func (q *CloudTasksQueue) Enqueue(ctx context.Context, job domain.DeliveryJob) error {
	return q.EnqueueIn(ctx, job, 0)
}

func (q *CloudTasksQueue) EnqueueIn(ctx context.Context, job domain.DeliveryJob, delay time.Duration) error {
	blob, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job: %w", err)
	}

	req := &cloudtaskspb.CreateTaskRequest{
		Parent: q.queuePath,
		Task: &cloudtaskspb.Task{
			MessageType: &cloudtaskspb.Task_HttpRequest{
				HttpRequest: &cloudtaskspb.HttpRequest{
					Url:        q.targetURL,
					HttpMethod: cloudtaskspb.HttpMethod_POST,
					Body:       blob,
					AuthorizationHeader: &cloudtaskspb.HttpRequest_OidcToken{
						OidcToken: &cloudtaskspb.OidcToken{ServiceAccountEmail: q.serviceEmail},
					},
				},
			},
		},
	}
	if delay > 0 {
		req.Task.ScheduleTime = timestamppb.New(time.Now().Add(delay))
	}

	if _, err := q.client.CreateTask(ctx, req); err != nil {
		q.logger.Warn("cloud tasks create failed, falling back to redis", "error", err)
		return q.fallback.EnqueueIn(ctx, job, delay)
	}
	return nil
}

// DequeueBlocking delegates to the Redis-backed ready list: the Cloud Task
// callback (and the enqueue fallback above) both land jobs there.
func (q *CloudTasksQueue) DequeueBlocking(ctx context.Context, timeout time.Duration) (*domain.DeliveryJob, error) {
	return q.fallback.DequeueBlocking(ctx, timeout)
}

// HandleCallback is invoked by the HTTP handler mounted at targetURL when a
// Cloud Task comes due; it pushes the job straight onto the fallback ready
// list so DequeueBlocking can pick it up.
func (q *CloudTasksQueue) HandleCallback(ctx context.Context, body []byte) error {
	var job domain.DeliveryJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("queue: unmarshal callback body: %w", err)
	}
	return q.fallback.Enqueue(ctx, job)
}

func (q *CloudTasksQueue) Close() error {
	q.fallback.Close()
	return q.client.Close()
}
