package shared

import (
	"context"
	"fmt"
	"time"
)

// AuditLog is one back-office change worth keeping a trail of.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// Validate checks the fields every entry must carry.
func (l AuditLog) Validate() error {
	if l.Action == "" || l.Entity == "" || l.EntityID == "" {
		return fmt.Errorf("%w: audit log requires action, entity and entity id", ErrValidation)
	}
	return nil
}

// Auditor records audit entries.
type Auditor interface {
	Record(ctx context.Context, log AuditLog) error
}

// NopAuditor discards entries.
type NopAuditor struct{}

// Record implements Auditor.
func (NopAuditor) Record(context.Context, AuditLog) error { return nil }
