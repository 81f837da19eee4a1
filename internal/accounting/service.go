// Package accounting owns the payment ledger of sales: the settlement rule,
// receivables listing and payment registration.
package accounting

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
)

// Receivable is a sale with its collected amount and settlement.
type Receivable struct {
	SaleID     int64
	ClientName string
	TourName   string
	CreatedAt  time.Time
	Settlement
}

// Payment is a registered collection against a sale.
type Payment struct {
	ID        int64
	SaleID    int64
	Amount    decimal.Decimal
	Method    string
	Reference string
	PaidAt    time.Time
}

// PaymentInput is the validated payload of the payment form.
type PaymentInput struct {
	SaleID    int64  `validate:"required,gt=0"`
	Amount    string `validate:"required,numeric"`
	Method    string `validate:"required,oneof=CASH TRANSFER CARD YAPE"`
	Reference string `validate:"omitempty,max=80"`
}

// Service computes receivables and records payments.
type Service struct {
	store  store.Store
	audit  shared.Auditor
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the accounting service. A nil auditor discards entries.
func NewService(s store.Store, audit shared.Auditor) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	return &Service{store: s, audit: audit, logger: slog.New(slog.NewTextHandler(io.Discard, nil)), now: time.Now}
}

// WithLogger sets the logger used for audit failures.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Receivables returns direct-client sales. pendingOnly drops settled ones.
func (s *Service) Receivables(ctx context.Context, pendingOnly bool) ([]Receivable, error) {
	sales, err := s.store.Query(ctx, store.Sales, store.All().OrderBy("id DESC"))
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, sales, pendingOnly)
}

// SaleSettlements returns settlements for the given sale rows keyed by sale id.
func (s *Service) SaleSettlements(ctx context.Context, saleIDs []int64, closing map[int64]decimal.Decimal) (map[int64]Settlement, error) {
	paid, err := s.paidBySale(ctx, saleIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]Settlement, len(saleIDs))
	for _, id := range saleIDs {
		out[id] = Settle(closing[id], paid[id])
	}
	return out, nil
}

func (s *Service) settle(ctx context.Context, sales []store.Record, pendingOnly bool) ([]Receivable, error) {
	ids := make([]int64, 0, len(sales))
	clientIDs := make([]int64, 0, len(sales))
	for _, rec := range sales {
		if rec.Has("alliance_agency_id") {
			continue
		}
		ids = append(ids, rec.Int64("id"))
		clientIDs = append(clientIDs, rec.Int64("client_id"))
	}
	if len(ids) == 0 {
		return nil, nil
	}
	paid, err := s.paidBySale(ctx, ids)
	if err != nil {
		return nil, err
	}
	clients, err := s.store.Query(ctx, store.Clients, store.Where(store.In("id", clientIDs)))
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(clients))
	for _, c := range clients {
		names[c.Int64("id")] = c.String("name")
	}

	out := make([]Receivable, 0, len(ids))
	for _, rec := range sales {
		if rec.Has("alliance_agency_id") {
			continue
		}
		id := rec.Int64("id")
		st := Settle(rec.Decimal("closing_price"), paid[id])
		if pendingOnly && st.Settled() {
			continue
		}
		name := names[rec.Int64("client_id")]
		if name == "" {
			name = "Unknown"
		}
		out = append(out, Receivable{
			SaleID:     id,
			ClientName: name,
			TourName:   rec.String("tour_name"),
			CreatedAt:  rec.Time("created_at"),
			Settlement: st,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Balance.GreaterThan(out[j].Balance)
	})
	return out, nil
}

func (s *Service) paidBySale(ctx context.Context, saleIDs []int64) (map[int64]decimal.Decimal, error) {
	paid := make(map[int64]decimal.Decimal, len(saleIDs))
	if len(saleIDs) == 0 {
		return paid, nil
	}
	recs, err := s.store.Query(ctx, store.Payments, store.Where(store.In("sale_id", saleIDs)))
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		id := rec.Int64("sale_id")
		paid[id] = paid[id].Add(rec.Decimal("amount_paid"))
	}
	return paid, nil
}

// Payments lists the payments of one sale, newest first.
func (s *Service) Payments(ctx context.Context, saleID int64) ([]Payment, error) {
	recs, err := s.store.Query(ctx, store.Payments, store.Where(store.Eq("sale_id", saleID)).OrderBy("paid_at DESC"))
	if err != nil {
		return nil, err
	}
	out := make([]Payment, len(recs))
	for i, rec := range recs {
		out[i] = paymentFromRecord(rec)
	}
	return out, nil
}

// RegisterPayment records a collection. The amount must be positive and the
// sale must exist.
func (s *Service) RegisterPayment(ctx context.Context, in PaymentInput) (Payment, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil || !amount.IsPositive() {
		return Payment{}, fmt.Errorf("%w: amount must be greater than zero", shared.ErrValidation)
	}
	sales, err := s.store.Query(ctx, store.Sales, store.Where(store.Eq("id", in.SaleID)).Limit(1))
	if err != nil {
		return Payment{}, err
	}
	if len(sales) == 0 {
		return Payment{}, fmt.Errorf("%w: sale %d", shared.ErrNotFound, in.SaleID)
	}
	rec, err := s.store.Insert(ctx, store.Payments, store.Record{
		"sale_id":     in.SaleID,
		"amount_paid": amount,
		"method":      strings.ToUpper(strings.TrimSpace(in.Method)),
		"reference":   strings.TrimSpace(in.Reference),
		"paid_at":     s.now().UTC(),
	})
	if err != nil {
		return Payment{}, err
	}
	payment := paymentFromRecord(rec)

	var actor int64
	if p := shared.PrincipalFromContext(ctx); p != nil {
		actor = p.UserID
	}
	const action = "accounting.register_payment"
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "sale",
		EntityID: strconv.FormatInt(in.SaleID, 10),
		Meta:     map[string]any{"amount": amount.StringFixed(2), "method": payment.Method},
		At:       payment.PaidAt,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit record", slog.String("action", action), slog.Any("error", err))
	}
	return payment, nil
}

func paymentFromRecord(rec store.Record) Payment {
	return Payment{
		ID:        rec.Int64("id"),
		SaleID:    rec.Int64("sale_id"),
		Amount:    rec.Decimal("amount_paid"),
		Method:    rec.String("method"),
		Reference: rec.String("reference"),
		PaidAt:    rec.Time("paid_at"),
	}
}
