package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/jobs"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/jobs"
)

// JobConfig wires dependencies required by the worker job.
type JobConfig struct {
	Service    *Service
	Renderer   *Renderer
	StorageDir string
	Agency     string
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// Job processes itinerary render requests coming from the queue.
type Job struct {
	service    *Service
	renderer   *Renderer
	storageDir string
	agency     string
	logger     *slog.Logger
	metrics    *jobmetrics.Metrics
	now        func() time.Time
}

// NewJob constructs a Job handler.
func NewJob(cfg JobConfig) *Job {
	return &Job{
		service:    cfg.Service,
		renderer:   cfg.Renderer,
		storageDir: cfg.StorageDir,
		agency:     cfg.Agency,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		now:        time.Now,
	}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *Job) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.service == nil || j.renderer == nil {
		return fmt.Errorf("itinerary job not configured")
	}
	var payload jobs.ItineraryRenderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.ItineraryID <= 0 {
		return asynq.SkipRetry
	}
	tracker := j.metrics.Track(jobs.TaskItineraryRender)
	return tracker.End(j.render(ctx, payload.ItineraryID))
}

func (j *Job) render(ctx context.Context, id int64) error {
	it, err := j.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrValidation) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return err
	}
	rendered, err := j.renderer.Render(ctx, NewDocument(it, j.agency, j.now()))
	if err != nil {
		_ = j.service.MarkFailed(ctx, it.ID, err.Error())
		return err
	}
	path, err := j.save(it.ID, rendered.PDF)
	if err != nil {
		_ = j.service.MarkFailed(ctx, it.ID, err.Error())
		return err
	}
	if err := j.service.MarkReady(ctx, it.ID, path); err != nil {
		return err
	}
	j.metrics.AddDocument("itinerary", rendered.Length)
	if j.logger != nil {
		j.logger.Info("itinerary ready", slog.Int64("itinerary_id", it.ID), slog.String("file", path), slog.Int64("bytes", rendered.Length))
	}
	return nil
}

func (j *Job) save(id int64, pdf []byte) (string, error) {
	dir := j.storageDir
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), "itineraries")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("itinerary-%d.pdf", id))
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
