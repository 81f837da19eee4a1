package operations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/providers"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
)

// ProviderResolver maps a typed name to a directory entry.
type ProviderResolver interface {
	Resolve(ctx context.Context, name string) (providers.Provider, error)
}

// Assigner attaches guides and endorsement providers to service lines.
type Assigner struct {
	store    store.Store
	resolver ProviderResolver
	audit    shared.Auditor
	logger   *slog.Logger
	now      func() time.Time
}

// NewAssigner constructs an Assigner. A nil auditor discards audit entries.
func NewAssigner(s store.Store, resolver ProviderResolver, audit shared.Auditor, logger *slog.Logger) *Assigner {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Assigner{store: s, resolver: resolver, audit: audit, logger: logger, now: time.Now}
}

// AssignGuide sets the guide of a service line. Repeating the call is idempotent.
func (a *Assigner) AssignGuide(ctx context.Context, saleID int64, line int, guideName string) MutationResult {
	if err := validateLine(saleID, line); err != nil {
		return a.fail(ctx, "assign guide", saleID, line, err)
	}
	provider, err := a.resolver.Resolve(ctx, guideName)
	if err != nil {
		return a.fail(ctx, "assign guide", saleID, line, err)
	}
	if _, err := a.upsert(ctx, a.store, saleID, line, RoleGuide, provider); err != nil {
		return a.fail(ctx, "assign guide", saleID, line, err)
	}
	a.record(ctx, "operations.assign_guide", saleID, line, map[string]any{"provider_id": provider.ID, "provider_name": provider.Name})
	return MutationResult{OK: true, Message: fmt.Sprintf("Guide %s assigned to sale %d line %d", provider.Name, saleID, line)}
}

// AssignEndorsement delegates a service line to a provider and marks it endorsed.
func (a *Assigner) AssignEndorsement(ctx context.Context, saleID int64, line int, providerName string) MutationResult {
	if err := validateLine(saleID, line); err != nil {
		return a.fail(ctx, "assign endorsement", saleID, line, err)
	}
	provider, err := a.resolver.Resolve(ctx, providerName)
	if err != nil {
		return a.fail(ctx, "assign endorsement", saleID, line, err)
	}
	err = store.RunInTx(ctx, a.store, func(tx store.Store) error {
		if _, err := a.upsert(ctx, tx, saleID, line, RoleEndorsementProvider, provider); err != nil {
			return err
		}
		return setEndorsed(ctx, tx, saleID, line, true)
	})
	if err != nil {
		return a.fail(ctx, "assign endorsement", saleID, line, err)
	}
	a.record(ctx, "operations.assign_endorsement", saleID, line, map[string]any{"provider_id": provider.ID, "provider_name": provider.Name})
	return MutationResult{OK: true, Message: fmt.Sprintf("Service endorsed to %s for sale %d line %d", provider.Name, saleID, line)}
}

// ToggleEndorsement sets is_endorsed without touching assignments.
func (a *Assigner) ToggleEndorsement(ctx context.Context, saleID int64, line int, endorsed bool) MutationResult {
	if err := validateLine(saleID, line); err != nil {
		return a.fail(ctx, "toggle endorsement", saleID, line, err)
	}
	if err := setEndorsed(ctx, a.store, saleID, line, endorsed); err != nil {
		return a.fail(ctx, "toggle endorsement", saleID, line, err)
	}
	a.record(ctx, "operations.toggle_endorsement", saleID, line, map[string]any{"is_endorsed": endorsed})
	state := "in-house"
	if endorsed {
		state = "endorsed"
	}
	return MutationResult{OK: true, Message: fmt.Sprintf("Sale %d line %d marked %s", saleID, line, state)}
}

func (a *Assigner) upsert(ctx context.Context, s store.Store, saleID int64, line int, role AssignmentRole, p providers.Provider) (store.Record, error) {
	return s.Upsert(ctx, store.Assignments, store.Record{
		"sale_id":       saleID,
		"line_number":   line,
		"role":          string(role),
		"provider_id":   p.ID,
		"provider_name": p.Name,
		"updated_at":    a.now().UTC(),
	}, "sale_id", "line_number", "role")
}

func setEndorsed(ctx context.Context, s store.Store, saleID int64, line int, endorsed bool) error {
	n, err := s.Update(ctx, store.ServiceLines,
		store.Where(store.Eq("sale_id", saleID), store.Eq("line_number", line)),
		store.Record{"is_endorsed": endorsed})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: service line %d/%d", shared.ErrNotFound, saleID, line)
	}
	return nil
}

func validateLine(saleID int64, line int) error {
	if saleID <= 0 || line <= 0 {
		return fmt.Errorf("%w: sale and line number are required", shared.ErrValidation)
	}
	return nil
}

func (a *Assigner) fail(ctx context.Context, op string, saleID int64, line int, err error) MutationResult {
	attrs := []any{slog.Int64("sale_id", saleID), slog.Int("line_number", line), slog.Any("error", err)}
	switch {
	case errors.Is(err, shared.ErrNotFound):
		a.logger.InfoContext(ctx, op, attrs...)
		return MutationResult{Message: "Not found: " + detail(err, shared.ErrNotFound)}
	case errors.Is(err, shared.ErrValidation):
		a.logger.InfoContext(ctx, op, attrs...)
		return MutationResult{Message: "Invalid request: " + detail(err, shared.ErrValidation)}
	default:
		a.logger.ErrorContext(ctx, op, attrs...)
		return MutationResult{Message: "The database is unavailable, the change was not saved"}
	}
}

// detail strips the sentinel prefix so the message reads well in a flash.
func detail(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

func (a *Assigner) record(ctx context.Context, action string, saleID int64, line int, meta map[string]any) {
	var actor int64
	if p := shared.PrincipalFromContext(ctx); p != nil {
		actor = p.UserID
	}
	entry := shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "service_line",
		EntityID: strconv.FormatInt(saleID, 10) + ":" + strconv.Itoa(line),
		Meta:     meta,
		At:       a.now().UTC(),
	}
	if err := a.audit.Record(ctx, entry); err != nil {
		a.logger.WarnContext(ctx, "audit record", slog.String("action", action), slog.Any("error", err))
	}
}
