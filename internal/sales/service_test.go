package sales

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/accounting"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	svc := NewService(m, accounting.NewService(m, nil))
	svc.now = func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc, m
}

func TestCreateLeadOwnedByPrincipal(t *testing.T) {
	svc, m := newTestService(t)
	ctx := shared.ContextWithPrincipal(context.Background(), &shared.Principal{UserID: 4, Role: shared.RoleSales})

	lead, err := svc.CreateLead(ctx, CreateLeadRequest{Name: " Lucía Pérez ", Phone: "984123456", Source: "whatsapp"})
	require.NoError(t, err)
	assert.Equal(t, "Lucía Pérez", lead.Name)
	assert.Equal(t, LeadNew, lead.Status)
	assert.Equal(t, int64(4), lead.SellerID)
	assert.Equal(t, "WHATSAPP", lead.Source)
	assert.Len(t, m.Rows(store.Leads), 1)

	_, err = svc.CreateLead(ctx, CreateLeadRequest{Name: "x"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestLeadStatusFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	lead, err := svc.CreateLead(ctx, CreateLeadRequest{Name: "Mark", Phone: "+1 555 0100"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateLeadStatus(ctx, lead.ID, LeadContacted))
	leads, err := svc.ListLeads(ctx, ListLeadsRequest{Status: LeadContacted})
	require.NoError(t, err)
	require.Len(t, leads, 1)

	require.ErrorIs(t, svc.UpdateLeadStatus(ctx, lead.ID, "MAYBE"), shared.ErrValidation)
	require.ErrorIs(t, svc.UpdateLeadStatus(ctx, 999, LeadWon), shared.ErrNotFound)
}

func TestListSalesWithSettlement(t *testing.T) {
	svc, m := newTestService(t)
	m.Seed(store.Clients, store.Record{"id": int64(1), "name": "Ana Torres"})
	m.Seed(store.Sales,
		store.Record{"id": int64(1), "client_id": int64(1), "closing_price": decimal.NewFromInt(300)},
		store.Record{"id": int64(2), "client_id": int64(5), "closing_price": decimal.NewFromInt(90), "alliance_agency_id": int64(2)},
	)
	m.Seed(store.Payments, store.Record{"sale_id": int64(1), "amount_paid": decimal.NewFromInt(300)})

	rows, err := svc.ListSales(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0].ID)
	assert.True(t, rows[0].B2B)
	assert.Equal(t, "Unknown", rows[0].ClientName)
	assert.Equal(t, accounting.StatePending, rows[0].Settlement.State)
	assert.Equal(t, accounting.StateSettled, rows[1].Settlement.State)
	assert.Equal(t, "Ana Torres", rows[1].ClientName)
}
