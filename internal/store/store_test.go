package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
)

func seedLines(m *Memory) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	m.Seed(ServiceLines,
		Record{"sale_id": int64(1), "line_number": 1, "service_date": day, "notes": "Machu Picchu"},
		Record{"sale_id": int64(1), "line_number": 2, "service_date": day.AddDate(0, 0, 1)},
		Record{"sale_id": int64(2), "line_number": 1, "service_date": day.AddDate(0, 0, 2)},
	)
}

func TestMemoryQueryPredicates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedLines(m)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	rows, err := m.Query(ctx, ServiceLines, Where(Gte("service_date", day), Lt("service_date", day.AddDate(0, 0, 1))))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Machu Picchu", rows[0].String("notes"))

	rows, err = m.Query(ctx, ServiceLines, Where(In("sale_id", []int64{2})))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, rows[0].Int("line_number"))

	rows, err = m.Query(ctx, ServiceLines, Where(In("sale_id", []int64{})))
	require.NoError(t, err)
	require.Empty(t, rows)

	rows, err = m.Query(ctx, ServiceLines, All().OrderBy("service_date DESC").Limit(2))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, int64(2), rows[0].Int64("sale_id"))
	require.Equal(t, 4, m.QueryCount(ServiceLines))
}

func TestMemoryILike(t *testing.T) {
	m := NewMemory()
	m.Seed(Providers, Record{"id": int64(7), "name": "Juan QUISPE"}, Record{"id": int64(8), "name": "Rosa Mamani"})

	rows, err := m.Query(context.Background(), Providers, Where(ILike("name", "%quispe%")))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(7), rows[0].Int64("id"))
}

func TestMemoryILikeEscapes(t *testing.T) {
	m := NewMemory()
	m.Seed(Providers,
		Record{"id": int64(1), "name": "Juan Quispe"},
		Record{"id": int64(2), "name": "100% Andes"},
		Record{"id": int64(3), "name": "a_b tours"},
	)
	ids := func(pattern string) []int64 {
		rows, err := m.Query(context.Background(), Providers, Where(ILike("name", pattern)).OrderBy("id"))
		require.NoError(t, err)
		out := make([]int64, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.Int64("id"))
		}
		return out
	}

	require.Equal(t, []int64{2}, ids(`%\%%`))
	require.Equal(t, []int64{3}, ids(`%a\_b%`))
	require.Equal(t, []int64{1}, ids("ju_n%"))
	require.Empty(t, ids(`%\%\%%`))
	require.Len(t, ids("%%"), 3)
}

func TestMemoryUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	rec := Record{"sale_id": int64(1), "line_number": 1, "role": "GUIDE", "provider_id": int64(3)}
	_, err := m.Upsert(ctx, Assignments, rec, "sale_id", "line_number", "role")
	require.NoError(t, err)

	rec["provider_id"] = int64(4)
	out, err := m.Upsert(ctx, Assignments, rec, "sale_id", "line_number", "role")
	require.NoError(t, err)
	require.Equal(t, int64(4), out.Int64("provider_id"))
	require.Len(t, m.Rows(Assignments), 1)

	_, err = m.Upsert(ctx, Assignments, Record{"sale_id": int64(1)}, "sale_id", "line_number")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestMemoryInsertAndUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Seed(Payments, Record{"id": int64(10), "sale_id": int64(1), "amount_paid": decimal.NewFromInt(50)})

	out, err := m.Insert(ctx, Payments, Record{"sale_id": int64(1), "amount_paid": decimal.NewFromInt(25)})
	require.NoError(t, err)
	require.Equal(t, int64(11), out.Int64("id"))

	n, err := m.Update(ctx, Payments, Where(Eq("sale_id", int64(1))), Record{"note": "checked"})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	_, err = m.Update(ctx, Payments, All(), Record{"note": "x"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestMemoryFailureIsBackendUnavailable(t *testing.T) {
	m := NewMemory()
	m.FailOn(Sales, errors.New("connection refused"))

	_, err := m.Query(context.Background(), Sales, All())
	require.ErrorIs(t, err, shared.ErrBackendUnavailable)
}

func TestRunInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedLines(m)

	err := RunInTx(ctx, m, func(tx Store) error {
		if _, err := tx.Update(ctx, ServiceLines, Where(Eq("sale_id", int64(1))), Record{"is_endorsed": true}); err != nil {
			return err
		}
		return shared.ErrNotFound
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
	for _, r := range m.Rows(ServiceLines) {
		require.False(t, r.Bool("is_endorsed"))
	}
}

func TestPostgresWithTxWithoutPoolRunsInline(t *testing.T) {
	p := &Postgres{}
	var got Store
	err := p.WithTx(context.Background(), func(tx Store) error {
		got = tx
		return shared.ErrNotFound
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Same(t, p, got)
}

func TestRecordAccessors(t *testing.T) {
	r := Record{"price": "120.50", "tour_id": nil, "pax": int32(3), "notes": "  hi "}
	require.True(t, r.Decimal("price").Equal(decimal.RequireFromString("120.5")))
	require.Nil(t, r.OptInt64("tour_id"))
	require.Equal(t, 3, r.IntOr("pax", 1))
	require.Equal(t, 1, r.IntOr("missing", 1))
	require.Equal(t, "hi", r.String("notes"))
	require.False(t, r.Has("tour_id"))
}
