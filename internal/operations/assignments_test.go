package operations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/providers"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
)

type recordingAuditor struct {
	entries []shared.AuditLog
}

func (r *recordingAuditor) Record(_ context.Context, log shared.AuditLog) error {
	r.entries = append(r.entries, log)
	return nil
}

func newAssignerFixture(t *testing.T) (*Assigner, *store.Memory, *recordingAuditor) {
	t.Helper()
	m := store.NewMemory()
	m.Seed(store.Providers,
		store.Record{"id": int64(1), "name": "Juan Quispe", "kind": "GUIDE"},
		store.Record{"id": int64(2), "name": "Inka Trails Agency", "kind": "AGENCY"},
		store.Record{"id": int64(3), "name": "Juana Huamán", "kind": "GUIDE"},
	)
	m.Seed(store.ServiceLines, store.Record{"sale_id": int64(10), "line_number": 1, "service_date": boardDay})
	audit := &recordingAuditor{}
	return NewAssigner(m, providers.NewDirectory(m), audit, nil), m, audit
}

func TestAssignGuideIsIdempotent(t *testing.T) {
	a, m, audit := newAssignerFixture(t)
	ctx := shared.ContextWithPrincipal(context.Background(), &shared.Principal{UserID: 7, Role: shared.RoleOperations})

	first := a.AssignGuide(ctx, 10, 1, "quispe")
	require.True(t, first.OK, first.Message)
	second := a.AssignGuide(ctx, 10, 1, "quispe")
	require.True(t, second.OK, second.Message)

	rows := m.Rows(store.Assignments)
	require.Len(t, rows, 1)
	require.Equal(t, "GUIDE", rows[0].String("role"))
	require.Equal(t, "Juan Quispe", rows[0].String("provider_name"))
	require.Len(t, audit.entries, 2)
	require.Equal(t, int64(7), audit.entries[0].ActorID)
	require.Equal(t, "10:1", audit.entries[0].EntityID)
}

func TestAssignGuideReplacesPreviousGuide(t *testing.T) {
	a, m, _ := newAssignerFixture(t)
	ctx := context.Background()

	require.True(t, a.AssignGuide(ctx, 10, 1, "Juan Q").OK)
	require.True(t, a.AssignGuide(ctx, 10, 1, "huamán").OK)

	rows := m.Rows(store.Assignments)
	require.Len(t, rows, 1)
	require.Equal(t, int64(3), rows[0].Int64("provider_id"))
}

func TestAssignGuideFirstMatchByName(t *testing.T) {
	a, m, _ := newAssignerFixture(t)
	res := a.AssignGuide(context.Background(), 10, 1, "jua")
	require.True(t, res.OK)
	require.Equal(t, "Juan Quispe", m.Rows(store.Assignments)[0].String("provider_name"))
}

func TestAssignGuideUnknownName(t *testing.T) {
	a, m, audit := newAssignerFixture(t)
	res := a.AssignGuide(context.Background(), 10, 1, "Pedro")
	require.False(t, res.OK)
	require.Contains(t, res.Message, "Not found")
	require.Contains(t, res.Message, "Pedro")
	require.Empty(t, m.Rows(store.Assignments))
	require.Empty(t, audit.entries)
}

func TestAssignGuideWildcardNameIsNotFound(t *testing.T) {
	a, m, audit := newAssignerFixture(t)
	res := a.AssignGuide(context.Background(), 10, 1, "%%")
	require.False(t, res.OK)
	require.Contains(t, res.Message, "Not found")
	require.Empty(t, m.Rows(store.Assignments))
	require.Empty(t, audit.entries)
}

func TestAssignGuideValidation(t *testing.T) {
	a, _, _ := newAssignerFixture(t)
	require.False(t, a.AssignGuide(context.Background(), 0, 1, "Juan").OK)
	require.False(t, a.AssignGuide(context.Background(), 10, 1, "  ").OK)
}

func TestAssignEndorsementMarksLine(t *testing.T) {
	a, m, _ := newAssignerFixture(t)
	res := a.AssignEndorsement(context.Background(), 10, 1, "inka")
	require.True(t, res.OK, res.Message)

	rows := m.Rows(store.Assignments)
	require.Len(t, rows, 1)
	require.Equal(t, string(RoleEndorsementProvider), rows[0].String("role"))
	require.True(t, m.Rows(store.ServiceLines)[0].Bool("is_endorsed"))

	board := NewBuilder(m, nil, "").BuildDay(context.Background(), boardDay)
	require.Len(t, board.Rows, 1)
	require.Equal(t, "Inka Trails Agency", board.Rows[0].EndorsementName)
	require.Equal(t, FlagGreen, board.Rows[0].Flag)
}

func TestAssignEndorsementRollsBackOnMissingLine(t *testing.T) {
	a, m, _ := newAssignerFixture(t)
	res := a.AssignEndorsement(context.Background(), 10, 9, "inka")
	require.False(t, res.OK)
	require.Empty(t, m.Rows(store.Assignments))
}

func TestToggleEndorsement(t *testing.T) {
	a, m, _ := newAssignerFixture(t)
	require.True(t, a.ToggleEndorsement(context.Background(), 10, 1, true).OK)
	require.True(t, m.Rows(store.ServiceLines)[0].Bool("is_endorsed"))
	require.Empty(t, m.Rows(store.Assignments))

	require.True(t, a.ToggleEndorsement(context.Background(), 10, 1, false).OK)
	require.False(t, m.Rows(store.ServiceLines)[0].Bool("is_endorsed"))
}

func TestMutatorBackendFailure(t *testing.T) {
	a, m, _ := newAssignerFixture(t)
	m.FailOn(store.Assignments, errors.New("connection reset"))
	res := a.AssignGuide(context.Background(), 10, 1, "quispe")
	require.False(t, res.OK)
	require.Contains(t, res.Message, "unavailable")
}
