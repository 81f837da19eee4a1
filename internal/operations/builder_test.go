package operations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/accounting"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
)

var boardDay = time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)

func i64(v int64) *int64 { return &v }

func seedBoard(m *store.Memory) {
	m.Seed(store.Clients,
		store.Record{"id": int64(1), "name": "Ana Torres"},
		store.Record{"id": int64(2), "name": "Partner Tours SAC"},
	)
	m.Seed(store.Tours, store.Record{"id": int64(5), "name": "Valle Sagrado"})
	m.Seed(store.Sales,
		store.Record{"id": int64(10), "client_id": int64(1), "closing_price": decimal.NewFromInt(100), "tour_name": "Paquete Cusco", "itinerary_cloud_url": "https://files.example/10.pdf"},
		store.Record{"id": int64(11), "client_id": int64(2), "closing_price": decimal.NewFromInt(500), "alliance_agency_id": int64(3)},
	)
	m.Seed(store.ServiceLines,
		store.Record{"sale_id": int64(10), "line_number": 1, "service_date": boardDay, "tour_id": int64(5), "passenger_count": 2},
		store.Record{"sale_id": int64(11), "line_number": 1, "service_date": boardDay, "tour_id": int64(5)},
		store.Record{"sale_id": int64(10), "line_number": 2, "service_date": boardDay.AddDate(0, 0, 1), "notes": "Transfer aeropuerto", "is_endorsed": true},
	)
	m.Seed(store.Payments,
		store.Record{"sale_id": int64(10), "amount_paid": decimal.RequireFromString("60")},
		store.Record{"sale_id": int64(10), "amount_paid": decimal.RequireFromString("27.50")},
	)
}

func TestBuildDayEnrichesAndExcludesB2B(t *testing.T) {
	m := store.NewMemory()
	seedBoard(m)
	m.Seed(store.Assignments, store.Record{"id": int64(1), "sale_id": int64(10), "line_number": 1, "role": "GUIDE", "provider_name": "Juan Quispe"})

	res := NewBuilder(m, nil, "S/").BuildDay(context.Background(), boardDay.Add(15*time.Hour))
	require.Equal(t, BoardOK, res.Status)
	require.NoError(t, res.Err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	require.Equal(t, int64(10), row.SaleID)
	require.Equal(t, "Valle Sagrado", row.DisplayName)
	require.Equal(t, "Ana Torres", row.ClientName)
	require.Equal(t, 2, row.PassengerCount)
	require.Equal(t, 1, row.DayIndex)
	require.Equal(t, "Juan Quispe", row.GuideName)
	require.Equal(t, NoEndorsement, row.EndorsementName)
	require.Equal(t, FlagGreen, row.Flag)
	require.Equal(t, accounting.StatePending, row.PaymentState)
	require.Equal(t, "PENDING (S/ 12.50)", row.PaymentLabel)
	require.Equal(t, "https://files.example/10.pdf", row.ItineraryCloudURL)
}

func TestBuildDayBlankProviderNameIsUnassigned(t *testing.T) {
	m := store.NewMemory()
	seedBoard(m)
	m.Seed(store.ServiceLines, store.Record{"sale_id": int64(10), "line_number": 3, "service_date": boardDay, "is_endorsed": true})
	m.Seed(store.Assignments,
		store.Record{"id": int64(1), "sale_id": int64(10), "line_number": 1, "role": "GUIDE", "provider_name": nil},
		store.Record{"id": int64(2), "sale_id": int64(10), "line_number": 3, "role": "AGENCY_ENDORSEMENT", "provider_name": "   "},
	)

	res := NewBuilder(m, nil, "S/").BuildDay(context.Background(), boardDay)
	require.Equal(t, BoardOK, res.Status)
	require.Len(t, res.Rows, 2)
	for _, row := range res.Rows {
		require.Equal(t, Unassigned, row.GuideName)
		require.Equal(t, NoEndorsement, row.EndorsementName)
		require.Equal(t, FlagRed, row.Flag, "line %d", row.LineNumber)
	}
}

func TestBuildRangeNeverEmitsAllianceSales(t *testing.T) {
	m := store.NewMemory()
	seedBoard(m)

	res := NewBuilder(m, nil, "").BuildRange(context.Background(), boardDay, boardDay.AddDate(0, 0, 1))
	require.Equal(t, BoardOK, res.Status)
	require.Len(t, res.Rows, 2)
	for _, row := range res.Rows {
		require.NotEqual(t, int64(11), row.SaleID)
	}
	require.Equal(t, "Transfer aeropuerto", res.Rows[1].DisplayName)
	require.Equal(t, "PENDING", res.Rows[1].PaymentLabel)
	require.Equal(t, FlagRed, res.Rows[1].Flag)
	require.Equal(t, Unassigned, res.Rows[1].GuideName)
}

func TestBuildDayEmptySkipsLookups(t *testing.T) {
	m := store.NewMemory()
	seedBoard(m)

	res := NewBuilder(m, nil, "").BuildDay(context.Background(), boardDay.AddDate(0, 1, 0))
	require.Equal(t, BoardEmpty, res.Status)
	require.Empty(t, res.Rows)
	require.NoError(t, res.Err)
	require.Equal(t, 1, m.QueryCount(store.ServiceLines))
	for _, e := range []store.Entity{store.Sales, store.Tours, store.Clients, store.Payments, store.Assignments} {
		require.Zero(t, m.QueryCount(e), string(e))
	}
}

func TestBuildDayFailureIsDistinctFromEmpty(t *testing.T) {
	m := store.NewMemory()
	seedBoard(m)
	m.FailOn(store.Payments, errors.New("timeout"))

	res := NewBuilder(m, nil, "").BuildDay(context.Background(), boardDay)
	require.Equal(t, BoardFailed, res.Status)
	require.True(t, res.Failed())
	require.Empty(t, res.Rows)
	require.ErrorIs(t, res.Err, shared.ErrBackendUnavailable)

	m = store.NewMemory()
	m.FailOn(store.ServiceLines, errors.New("down"))
	res = NewBuilder(m, nil, "").BuildDay(context.Background(), boardDay)
	require.Equal(t, BoardFailed, res.Status)
}

func TestSettlementBoundary(t *testing.T) {
	cases := []struct {
		paid string
		want accounting.PaymentState
	}{
		{"99.91", accounting.StateSettled},
		{"99.90", accounting.StateSettled},
		{"99.89", accounting.StatePending},
	}
	for _, tc := range cases {
		t.Run(tc.paid, func(t *testing.T) {
			m := store.NewMemory()
			m.Seed(store.Sales, store.Record{"id": int64(1), "closing_price": "100"})
			m.Seed(store.ServiceLines, store.Record{"sale_id": int64(1), "line_number": 1, "service_date": boardDay})
			m.Seed(store.Payments, store.Record{"sale_id": int64(1), "amount_paid": tc.paid})

			res := NewBuilder(m, nil, "").BuildDay(context.Background(), boardDay)
			require.Len(t, res.Rows, 1)
			require.Equal(t, tc.want, res.Rows[0].PaymentState)
		})
	}
}

func TestDisplayNamePriority(t *testing.T) {
	m := store.NewMemory()
	m.Seed(store.Sales, store.Record{"id": int64(1), "tour_name": "Fallback"}, store.Record{"id": int64(2)})
	m.Seed(store.ServiceLines,
		store.Record{"sale_id": int64(1), "line_number": 1, "service_date": boardDay, "tour_id": int64(99)},
		store.Record{"sale_id": int64(2), "line_number": 1, "service_date": boardDay},
		store.Record{"sale_id": int64(3), "line_number": 1, "service_date": boardDay},
	)

	res := NewBuilder(m, nil, "").BuildDay(context.Background(), boardDay)
	require.Len(t, res.Rows, 3)
	require.Equal(t, "Fallback", res.Rows[0].DisplayName)
	require.Equal(t, UnknownTour, res.Rows[1].DisplayName)
	// sale 3 does not exist
	require.Equal(t, Unknown, res.Rows[2].ClientName)
	require.Equal(t, UnknownTour, res.Rows[2].DisplayName)
}

func TestLogisticsFlag(t *testing.T) {
	require.Equal(t, FlagRed, logisticsFlag(false, false, false))
	require.Equal(t, FlagGreen, logisticsFlag(false, true, false))
	require.Equal(t, FlagGreen, logisticsFlag(true, false, true))
	require.Equal(t, FlagRed, logisticsFlag(true, true, false))
}

func TestBuildRangeRejectsInvertedRange(t *testing.T) {
	m := store.NewMemory()
	res := NewBuilder(m, nil, "").BuildRange(context.Background(), boardDay, boardDay.AddDate(0, 0, -1))
	require.Equal(t, BoardFailed, res.Status)
	require.ErrorIs(t, res.Err, shared.ErrValidation)
	require.Zero(t, m.QueryCount(store.ServiceLines))
}
