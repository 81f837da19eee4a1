package operations

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/accounting"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
)

// Display defaults for unresolved references.
const (
	Unknown       = "Unknown"
	UnknownTour   = "Unknown Tour"
	Unassigned    = "Unassigned"
	NoEndorsement = "—"
)

// AssignmentRole tags the kind of provider attached to a service line.
type AssignmentRole string

const (
	RoleGuide               AssignmentRole = "GUIDE"
	RoleEndorsementProvider AssignmentRole = "ENDORSEMENT_PROVIDER"
	RoleAgencyEndorsement   AssignmentRole = "AGENCY_ENDORSEMENT"
)

// Endorsement reports whether the role delegates execution to a third party.
func (r AssignmentRole) Endorsement() bool {
	return r == RoleEndorsementProvider || r == RoleAgencyEndorsement
}

// LogisticsFlag signals whether a service line has its execution resource.
type LogisticsFlag string

const (
	FlagGreen LogisticsFlag = "GREEN"
	FlagRed   LogisticsFlag = "RED"
)

// ServiceLine is one dated occurrence of a service within a sale.
type ServiceLine struct {
	SaleID         int64
	LineNumber     int
	ServiceDate    time.Time
	TourID         *int64
	PassengerCount int
	DayIndex       int
	IsEndorsed     bool
	Notes          string
}

// Sale is the commercial side of a booking.
type Sale struct {
	ID                 int64
	ClientID           int64
	ClosingPrice       decimal.Decimal
	AllianceAgencyID   *int64
	DigitalItineraryID *int64
	ItineraryCloudURL  string
	TourName           string
}

// B2B reports whether the sale came through an alliance agency.
func (s Sale) B2B() bool {
	return s.AllianceAgencyID != nil
}

// Assignment links a service line to a provider.
type Assignment struct {
	SaleID       int64
	LineNumber   int
	ProviderID   int64
	Role         AssignmentRole
	ProviderName string
}

type lineKey struct {
	saleID int64
	line   int
}

// BoardStatus distinguishes a populated board from an empty or failed one.
type BoardStatus string

const (
	BoardOK     BoardStatus = "OK"
	BoardEmpty  BoardStatus = "EMPTY"
	BoardFailed BoardStatus = "FAILED"
)

// BoardRow is one enriched service line ready for display.
type BoardRow struct {
	SaleID             int64
	LineNumber         int
	ServiceDate        time.Time
	DisplayName        string
	PassengerCount     int
	ClientName         string
	GuideName          string
	EndorsementName    string
	IsEndorsed         bool
	PaymentState       accounting.PaymentState
	PaymentLabel       string
	Balance            decimal.Decimal
	Flag               LogisticsFlag
	DayIndex           int
	DigitalItineraryID *int64
	ItineraryCloudURL  string
}

// BoardResult is returned by the board entry points instead of an error.
type BoardResult struct {
	Status BoardStatus
	Rows   []BoardRow
	Err    error
}

// Failed reports whether the board could not be loaded.
func (r BoardResult) Failed() bool {
	return r.Status == BoardFailed
}

// MutationResult is the outcome of an assignment mutator.
type MutationResult struct {
	OK      bool
	Message string
}

func serviceLineFromRecord(rec store.Record) ServiceLine {
	return ServiceLine{
		SaleID:         rec.Int64("sale_id"),
		LineNumber:     rec.Int("line_number"),
		ServiceDate:    rec.Time("service_date"),
		TourID:         rec.OptInt64("tour_id"),
		PassengerCount: rec.IntOr("passenger_count", 1),
		DayIndex:       rec.IntOr("day_index", 1),
		IsEndorsed:     rec.Bool("is_endorsed"),
		Notes:          rec.String("notes"),
	}
}

func saleFromRecord(rec store.Record) Sale {
	return Sale{
		ID:                 rec.Int64("id"),
		ClientID:           rec.Int64("client_id"),
		ClosingPrice:       rec.Decimal("closing_price"),
		AllianceAgencyID:   rec.OptInt64("alliance_agency_id"),
		DigitalItineraryID: rec.OptInt64("digital_itinerary_id"),
		ItineraryCloudURL:  rec.String("itinerary_cloud_url"),
		TourName:           rec.String("tour_name"),
	}
}

func assignmentFromRecord(rec store.Record) Assignment {
	return Assignment{
		SaleID:       rec.Int64("sale_id"),
		LineNumber:   rec.Int("line_number"),
		ProviderID:   rec.Int64("provider_id"),
		Role:         AssignmentRole(rec.String("role")),
		ProviderName: rec.String("provider_name"),
	}
}
