package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
)

// AuditTrail writes audit entries into audit_logs through a Store.
type AuditTrail struct {
	store Store
	now   func() time.Time
}

// NewAuditTrail returns an auditor backed by s.
func NewAuditTrail(s Store) *AuditTrail {
	return &AuditTrail{store: s, now: time.Now}
}

// Record implements shared.Auditor.
func (a *AuditTrail) Record(ctx context.Context, entry shared.AuditLog) error {
	if a == nil || a.store == nil {
		return fmt.Errorf("%w: audit trail not configured", shared.ErrBackendUnavailable)
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return fmt.Errorf("encode audit meta: %w", err)
	}
	at := entry.At
	if at.IsZero() {
		at = a.now()
	}
	rec := Record{
		"action":      entry.Action,
		"entity":      entry.Entity,
		"entity_id":   entry.EntityID,
		"meta":        meta,
		"occurred_at": at.UTC(),
	}
	if entry.ActorID > 0 {
		rec["actor_id"] = entry.ActorID
	}
	if _, err := a.store.Insert(ctx, AuditLogs, rec); err != nil {
		return fmt.Errorf("audit %s: %w", entry.Action, err)
	}
	return nil
}

var _ shared.Auditor = (*AuditTrail)(nil)
