package operations

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/accounting"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
)

// Builder assembles the operations board from service lines and their lookups.
type Builder struct {
	store    store.Store
	logger   *slog.Logger
	currency string
}

// NewBuilder constructs a Builder. currency prefixes pending balances in the day view.
func NewBuilder(s store.Store, logger *slog.Logger, currency string) *Builder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if currency == "" {
		currency = "S/"
	}
	return &Builder{store: s, logger: logger, currency: currency}
}

// BuildDay returns the board of a single day.
func (b *Builder) BuildDay(ctx context.Context, day time.Time) BoardResult {
	start := dateOnly(day)
	filter := store.Where(
		store.Gte("service_date", start),
		store.Lt("service_date", start.AddDate(0, 0, 1)),
	)
	return b.build(ctx, filter, true)
}

// BuildRange returns the board of every day in [from, to].
func (b *Builder) BuildRange(ctx context.Context, from, to time.Time) BoardResult {
	from, to = dateOnly(from), dateOnly(to)
	if to.Before(from) {
		err := fmt.Errorf("%w: range ends before it starts", shared.ErrValidation)
		return BoardResult{Status: BoardFailed, Err: err}
	}
	filter := store.Where(
		store.Gte("service_date", from),
		store.Lte("service_date", to),
	)
	return b.build(ctx, filter, false)
}

type lookups struct {
	sales        map[int64]Sale
	clients      map[int64]string
	tours        map[int64]string
	paid         map[int64]decimal.Decimal
	guides       map[lineKey]string
	endorsements map[lineKey]string
}

func (b *Builder) build(ctx context.Context, filter store.Filter, dayView bool) BoardResult {
	recs, err := b.store.Query(ctx, store.ServiceLines, filter.OrderBy("service_date", "sale_id", "line_number"))
	if err != nil {
		b.logger.Error("operations board service lines", slog.Any("error", err))
		return BoardResult{Status: BoardFailed, Err: err}
	}
	if len(recs) == 0 {
		return BoardResult{Status: BoardEmpty}
	}

	lines := make([]ServiceLine, len(recs))
	for i, rec := range recs {
		lines[i] = serviceLineFromRecord(rec)
	}
	saleIDs, tourIDs := referencedIDs(lines)

	lk, err := b.fetchLookups(ctx, saleIDs, tourIDs)
	if err != nil {
		b.logger.Error("operations board lookups", slog.Any("error", err), slog.Int("service_lines", len(lines)))
		return BoardResult{Status: BoardFailed, Err: err}
	}

	rows := make([]BoardRow, 0, len(lines))
	for _, line := range lines {
		sale, found := lk.sales[line.SaleID]
		if found && sale.B2B() {
			continue
		}
		rows = append(rows, b.enrich(line, sale, lk, dayView))
	}
	if len(rows) == 0 {
		return BoardResult{Status: BoardEmpty}
	}
	return BoardResult{Status: BoardOK, Rows: rows}
}

func (b *Builder) enrich(line ServiceLine, sale Sale, lk lookups, dayView bool) BoardRow {
	key := lineKey{saleID: line.SaleID, line: line.LineNumber}

	clientName, ok := lk.clients[sale.ClientID]
	if !ok || clientName == "" {
		clientName = Unknown
	}
	settlement := accounting.Settle(sale.ClosingPrice, lk.paid[line.SaleID])
	label := string(settlement.State)
	if dayView && !settlement.Settled() {
		label = fmt.Sprintf("%s (%s %s)", settlement.State, b.currency, settlement.Balance.StringFixed(2))
	}

	var tourName string
	if line.TourID != nil {
		tourName = lk.tours[*line.TourID]
	}

	guide, hasGuide := lk.guides[key]
	if !hasGuide {
		guide = Unassigned
	}
	endorsement, hasEndorsement := lk.endorsements[key]
	if !hasEndorsement {
		endorsement = NoEndorsement
	}

	return BoardRow{
		SaleID:             line.SaleID,
		LineNumber:         line.LineNumber,
		ServiceDate:        line.ServiceDate,
		DisplayName:        FirstNonEmpty(line.Notes, tourName, sale.TourName, UnknownTour),
		PassengerCount:     line.PassengerCount,
		ClientName:         clientName,
		GuideName:          guide,
		EndorsementName:    endorsement,
		IsEndorsed:         line.IsEndorsed,
		PaymentState:       settlement.State,
		PaymentLabel:       label,
		Balance:            settlement.Balance,
		Flag:               logisticsFlag(line.IsEndorsed, hasGuide, hasEndorsement),
		DayIndex:           line.DayIndex,
		DigitalItineraryID: sale.DigitalItineraryID,
		ItineraryCloudURL:  sale.ItineraryCloudURL,
	}
}

// fetchLookups loads every auxiliary set concurrently. Clients wait for sales.
func (b *Builder) fetchLookups(ctx context.Context, saleIDs, tourIDs []int64) (lookups, error) {
	lk := lookups{
		sales:        map[int64]Sale{},
		clients:      map[int64]string{},
		tours:        map[int64]string{},
		paid:         map[int64]decimal.Decimal{},
		guides:       map[lineKey]string{},
		endorsements: map[lineKey]string{},
	}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		recs, err := b.store.Query(ctx, store.Sales, store.Where(store.In("id", saleIDs)))
		if err != nil {
			return fmt.Errorf("sales: %w", err)
		}
		clientIDs := make([]int64, 0, len(recs))
		seen := make(map[int64]struct{}, len(recs))
		for _, rec := range recs {
			sale := saleFromRecord(rec)
			lk.sales[sale.ID] = sale
			if _, dup := seen[sale.ClientID]; !dup && sale.ClientID != 0 {
				seen[sale.ClientID] = struct{}{}
				clientIDs = append(clientIDs, sale.ClientID)
			}
		}
		if len(clientIDs) == 0 {
			return nil
		}
		recs, err = b.store.Query(ctx, store.Clients, store.Where(store.In("id", clientIDs)))
		if err != nil {
			return fmt.Errorf("clients: %w", err)
		}
		for _, rec := range recs {
			lk.clients[rec.Int64("id")] = rec.String("name")
		}
		return nil
	})

	if len(tourIDs) > 0 {
		g.Go(func() error {
			recs, err := b.store.Query(ctx, store.Tours, store.Where(store.In("id", tourIDs)))
			if err != nil {
				return fmt.Errorf("tours: %w", err)
			}
			for _, rec := range recs {
				lk.tours[rec.Int64("id")] = rec.String("name")
			}
			return nil
		})
	}

	g.Go(func() error {
		recs, err := b.store.Query(ctx, store.Payments, store.Where(store.In("sale_id", saleIDs)))
		if err != nil {
			return fmt.Errorf("payments: %w", err)
		}
		for _, rec := range recs {
			id := rec.Int64("sale_id")
			lk.paid[id] = lk.paid[id].Add(rec.Decimal("amount_paid"))
		}
		return nil
	})

	g.Go(func() error {
		recs, err := b.store.Query(ctx, store.Assignments, store.Where(store.In("sale_id", saleIDs)).OrderBy("id"))
		if err != nil {
			return fmt.Errorf("assignments: %w", err)
		}
		for _, rec := range recs {
			a := assignmentFromRecord(rec)
			if a.ProviderName == "" {
				continue
			}
			key := lineKey{saleID: a.SaleID, line: a.LineNumber}
			switch {
			case a.Role == RoleGuide:
				lk.guides[key] = a.ProviderName
			case a.Role.Endorsement():
				lk.endorsements[key] = a.ProviderName
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return lookups{}, err
	}
	return lk, nil
}

func logisticsFlag(endorsed, hasGuide, hasEndorsement bool) LogisticsFlag {
	if endorsed && !hasEndorsement {
		return FlagRed
	}
	if !endorsed && !hasGuide {
		return FlagRed
	}
	return FlagGreen
}

func referencedIDs(lines []ServiceLine) (saleIDs, tourIDs []int64) {
	seenSale := make(map[int64]struct{}, len(lines))
	seenTour := make(map[int64]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seenSale[l.SaleID]; !ok {
			seenSale[l.SaleID] = struct{}{}
			saleIDs = append(saleIDs, l.SaleID)
		}
		if l.TourID == nil {
			continue
		}
		if _, ok := seenTour[*l.TourID]; !ok {
			seenTour[*l.TourID] = struct{}{}
			tourIDs = append(tourIDs, *l.TourID)
		}
	}
	return saleIDs, tourIDs
}

// FirstNonEmpty returns the first argument that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
