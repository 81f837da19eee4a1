package management

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
)

var may = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

func seedMonth(m *store.Memory) {
	m.Seed(store.Sales,
		store.Record{"id": int64(1), "closing_price": decimal.NewFromInt(300), "created_at": may.Add(48 * time.Hour)},
		store.Record{"id": int64(2), "closing_price": decimal.NewFromInt(100), "created_at": may.Add(72 * time.Hour), "alliance_agency_id": int64(9)},
		store.Record{"id": int64(3), "closing_price": decimal.NewFromInt(500), "created_at": may.AddDate(0, 1, 2)},
	)
	m.Seed(store.Payments,
		store.Record{"sale_id": int64(1), "amount_paid": decimal.NewFromInt(100)},
		store.Record{"sale_id": int64(2), "amount_paid": decimal.NewFromInt(100)},
	)
	m.Seed(store.ServiceLines, store.Record{"sale_id": int64(1), "line_number": 1, "service_date": may.AddDate(0, 0, 10)})
}

func newTestService(t *testing.T, m *store.Memory) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(m, NewCache(client, time.Minute))
}

func TestSummaryAggregates(t *testing.T) {
	m := store.NewMemory()
	seedMonth(m)
	from, to := MonthRange(may.AddDate(0, 0, 14))

	s, err := NewService(m, nil).Summary(context.Background(), from, to)
	require.NoError(t, err)
	require.Equal(t, 2, s.SalesCount)
	require.Equal(t, 1, s.B2BCount)
	require.Equal(t, 1, s.SettledCount)
	require.Equal(t, 1, s.ServicesScheduled)
	require.True(t, s.Revenue.Equal(decimal.NewFromInt(400)))
	require.True(t, s.Collected.Equal(decimal.NewFromInt(200)))
	require.True(t, s.Outstanding.Equal(decimal.NewFromInt(200)))
	require.True(t, s.B2BShare.Equal(decimal.NewFromInt(25)))
}

func TestSummaryServedFromCache(t *testing.T) {
	m := store.NewMemory()
	seedMonth(m)
	svc := newTestService(t, m)
	from, to := MonthRange(may)
	ctx := context.Background()

	first, err := svc.Summary(ctx, from, to)
	require.NoError(t, err)
	second, err := svc.Summary(ctx, from, to)
	require.NoError(t, err)
	require.Equal(t, 1, m.QueryCount(store.Sales))
	require.True(t, first.Revenue.Equal(second.Revenue))

	_, err = svc.Refresh(ctx, from, to)
	require.NoError(t, err)
	require.Equal(t, 2, m.QueryCount(store.Sales))
}

func TestSummaryErrors(t *testing.T) {
	m := store.NewMemory()
	m.FailOn(store.Sales, errors.New("down"))
	svc := NewService(m, nil)

	_, err := svc.Summary(context.Background(), may, may.AddDate(0, 0, 5))
	require.ErrorIs(t, err, shared.ErrBackendUnavailable)

	_, err = svc.Summary(context.Background(), may, may.AddDate(0, 0, -1))
	require.ErrorIs(t, err, shared.ErrValidation)
}
