package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault carries scheduled maintenance such as the summary warmup.
	QueueDefault = "default"
	// QueueItineraries carries user-triggered PDF renders and is polled first.
	QueueItineraries = "itineraries"
	// TaskItineraryRender renders a digital itinerary to PDF.
	TaskItineraryRender = "itinerary:render"
	// TaskSummaryWarmup pre-populates the management summary cache.
	TaskSummaryWarmup = "management:summary_warmup"
)

// ItineraryRenderPayload identifies the itinerary to render.
type ItineraryRenderPayload struct {
	ItineraryID int64  `json:"itinerary_id"`
	RequestedBy int64  `json:"requested_by,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// SummaryWarmupPayload selects how many trailing months are warmed.
type SummaryWarmupPayload struct {
	Months  int  `json:"months"`
	Refresh bool `json:"refresh"`
}

// NewItineraryRenderTask constructs an Asynq task.
func NewItineraryRenderTask(payload ItineraryRenderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskItineraryRender, data), nil
}

// NewSummaryWarmupTask constructs an Asynq task.
func NewSummaryWarmupTask(payload SummaryWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSummaryWarmup, data), nil
}
