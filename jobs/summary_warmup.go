package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/jobs"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/management"
)

const maxWarmupMonths = 12

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SummaryWarmupJob pre-populates management summary caches for recent months.
type SummaryWarmupJob struct {
	Summary *management.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSummaryWarmupJob wires dependencies for the warmup handler.
func NewSummaryWarmupJob(summary *management.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *SummaryWarmupJob {
	return &SummaryWarmupJob{
		Summary: summary,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes summary warmup tasks.
func (j *SummaryWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Summary == nil {
		return errors.New("summary warmup: handler not configured")
	}
	var payload SummaryWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Months <= 0 {
		payload.Months = 1
	}
	if payload.Months > maxWarmupMonths {
		payload.Months = maxWarmupMonths
	}

	tracker := j.metrics().Track(TaskSummaryWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("months", payload.Months), slog.Bool("refresh", payload.Refresh))
	logger.Info("starting summary warmup")

	now := j.now()
	if payload.Refresh {
		from, to := management.MonthRange(now)
		if _, err := j.Summary.Refresh(ctx, from, to); err != nil {
			resultErr = err
			logger.Error("refresh summary", slog.Any("error", err))
			return resultErr
		}
	}
	for i := 0; i < payload.Months; i++ {
		from, to := management.MonthRange(now.AddDate(0, -i, 0))
		monthCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		_, err := j.Summary.Summary(monthCtx, from, to)
		cancel()
		if err != nil {
			resultErr = err
			logger.Error("warm month", slog.String("month", from.Format("2006-01")), slog.Any("error", err))
			return resultErr
		}
	}

	logger.Info("completed summary warmup", slog.Duration("duration", time.Since(now)))
	return resultErr
}

func (j *SummaryWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSummaryWarmup))
	}
	return slog.Default().With(slog.String("job", TaskSummaryWarmup))
}

func (j *SummaryWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SummaryWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
