package itinerary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
)

// Status captures the render state of a digital itinerary.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusReady   Status = "READY"
	StatusFailed  Status = "FAILED"
)

// Itinerary is a stored digital itinerary with its normalized content.
type Itinerary struct {
	ID           int64
	SaleID       int64
	Status       Status
	FilePath     string
	ErrorMessage string
	Content      Content
	RenderedAt   time.Time
	UpdatedAt    time.Time
}

// Service loads itineraries and records render transitions.
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService constructs a Service instance.
func NewService(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get loads a single itinerary.
func (s *Service) Get(ctx context.Context, id int64) (Itinerary, error) {
	if id <= 0 {
		return Itinerary{}, fmt.Errorf("%w: itinerary id must be positive", shared.ErrValidation)
	}
	rows, err := s.store.Query(ctx, store.DigitalItineraries, store.Where(store.Eq("id", id)).Limit(1))
	if err != nil {
		return Itinerary{}, err
	}
	if len(rows) == 0 {
		return Itinerary{}, fmt.Errorf("%w: itinerary %d", shared.ErrNotFound, id)
	}
	return fromRecord(rows[0])
}

// MarkPending flags the itinerary as queued for rendering.
func (s *Service) MarkPending(ctx context.Context, id int64) error {
	return s.transition(ctx, id, store.Record{"status": string(StatusPending), "error_message": ""})
}

// MarkReady stores the generated file path.
func (s *Service) MarkReady(ctx context.Context, id int64, path string) error {
	now := s.now()
	return s.transition(ctx, id, store.Record{"status": string(StatusReady), "file_path": path, "error_message": "", "rendered_at": now})
}

// MarkFailed records the failure message.
func (s *Service) MarkFailed(ctx context.Context, id int64, msg string) error {
	return s.transition(ctx, id, store.Record{"status": string(StatusFailed), "error_message": msg})
}

func (s *Service) transition(ctx context.Context, id int64, patch store.Record) error {
	patch["updated_at"] = s.now()
	n, err := s.store.Update(ctx, store.DigitalItineraries, store.Where(store.Eq("id", id)), patch)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: itinerary %d", shared.ErrNotFound, id)
	}
	return nil
}

func fromRecord(rec store.Record) (Itinerary, error) {
	raw := rec.Map("content")
	if raw == nil {
		if text := rec.String("content"); text != "" {
			if err := json.Unmarshal([]byte(text), &raw); err != nil {
				return Itinerary{}, fmt.Errorf("%w: itinerary %d content: %v", shared.ErrValidation, rec.Int64("id"), err)
			}
		}
	}
	status := Status(strings.ToUpper(rec.String("status")))
	if status == "" {
		status = StatusPending
	}
	return Itinerary{
		ID:           rec.Int64("id"),
		SaleID:       rec.Int64("sale_id"),
		Status:       status,
		FilePath:     rec.String("file_path"),
		ErrorMessage: rec.String("error_message"),
		Content:      Normalize(raw),
		RenderedAt:   rec.Time("rendered_at"),
		UpdatedAt:    rec.Time("updated_at"),
	}, nil
}
