package jobs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
)

// Client submits tasks to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an asynq client.
func NewClient(redisOpts asynq.RedisConnOpt) (*Client, error) {
	if redisOpts == nil {
		return nil, fmt.Errorf("jobs: redis options required")
	}
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueueItineraryRender enqueues a PDF render. The task id pairs the
// itinerary with the request so a double submit of one form is collapsed.
func (c *Client) EnqueueItineraryRender(ctx context.Context, payload ItineraryRenderPayload) (*asynq.TaskInfo, error) {
	task, err := NewItineraryRenderTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueItineraries),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.TaskID("itinerary-"+strconv.FormatInt(payload.ItineraryID, 10)+"-"+payload.RequestID),
	)
}

// EnqueueSummaryWarmup requests an out-of-schedule warmup.
func (c *Client) EnqueueSummaryWarmup(ctx context.Context, payload SummaryWarmupPayload) (*asynq.TaskInfo, error) {
	task, err := NewSummaryWarmupTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(1), asynq.Unique(5*time.Minute))
}

// RequestSummaryRefresh recomputes the current month off the request path.
func (c *Client) RequestSummaryRefresh(ctx context.Context) error {
	_, err := c.EnqueueSummaryWarmup(ctx, SummaryWarmupPayload{Months: 1, Refresh: true})
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
