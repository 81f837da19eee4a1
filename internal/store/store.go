// Package store is the data-access boundary of the back office. Every other
// package reads and writes through the generic Store contract so that the
// relational backend can be swapped for the in-memory implementation in tests.
package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Entity names a table in the relational store.
type Entity string

// Tables used by the back office.
const (
	Leads              Entity = "leads"
	Sales              Entity = "sales"
	Clients            Entity = "clients"
	Tours              Entity = "tours"
	ServiceLines       Entity = "service_lines"
	Payments           Entity = "payments"
	Providers          Entity = "providers"
	Assignments        Entity = "provider_assignments"
	DigitalItineraries Entity = "digital_itineraries"
	AuditLogs          Entity = "audit_logs"
)

// Store is the generic query/insert/update/upsert contract.
type Store interface {
	Query(ctx context.Context, entity Entity, filter Filter) ([]Record, error)
	Insert(ctx context.Context, entity Entity, rec Record) (Record, error)
	Update(ctx context.Context, entity Entity, filter Filter, patch Record) (int64, error)
	Upsert(ctx context.Context, entity Entity, rec Record, conflictKey ...string) (Record, error)
}

// Transactor is implemented by stores that can group writes atomically.
type Transactor interface {
	WithTx(ctx context.Context, fn func(Store) error) error
}

// RunInTx runs fn inside a transaction when the store supports it, otherwise directly.
func RunInTx(ctx context.Context, s Store, fn func(Store) error) error {
	if tx, ok := s.(Transactor); ok {
		return tx.WithTx(ctx, fn)
	}
	return fn(s)
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func checkIdent(kind, name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("store: invalid %s %q", kind, name)
	}
	return nil
}

// orderColumn splits "service_date DESC" into column and direction.
func orderColumn(spec string) (string, bool, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 || len(fields) > 2 {
		return "", false, fmt.Errorf("store: invalid order %q", spec)
	}
	desc := false
	if len(fields) == 2 {
		switch strings.ToUpper(fields[1]) {
		case "ASC":
		case "DESC":
			desc = true
		default:
			return "", false, fmt.Errorf("store: invalid order %q", spec)
		}
	}
	if err := checkIdent("column", fields[0]); err != nil {
		return "", false, err
	}
	return fields[0], desc, nil
}
