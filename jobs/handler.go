package jobs

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/platform/httpx"
)

// QueueInspector is the slice of asynq.Inspector the health endpoint reads.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// QueueStatus is one row of the jobs health report.
type QueueStatus struct {
	Queue    string `json:"queue"`
	Pending  int    `json:"pending"`
	Active   int    `json:"active"`
	Retry    int    `json:"retry"`
	Archived int    `json:"archived"`
	Paused   bool   `json:"paused"`
}

// Handler exposes queue health for operators.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler constructs the jobs handler. A nil inspector reports empty queues.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	queues := []string{QueueItineraries, QueueDefault}
	out := make([]QueueStatus, 0, len(queues))
	for _, name := range queues {
		status := QueueStatus{Queue: name}
		if h.inspector != nil {
			info, err := h.inspector.GetQueueInfo(name)
			switch {
			case errors.Is(err, asynq.ErrQueueNotFound):
			case err != nil:
				h.logger.Warn("jobs health", slog.String("queue", name), slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Queue unavailable", "could not read queue "+name)
				return
			case info != nil:
				status.Pending = info.Pending
				status.Active = info.Active
				status.Retry = info.Retry
				status.Archived = info.Archived
				status.Paused = info.Paused
			}
		}
		out = append(out, status)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queues": out})
}
