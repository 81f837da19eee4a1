package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/accounting"
)

// LeadStatus tracks a prospect through the funnel.
type LeadStatus string

const (
	LeadNew       LeadStatus = "NEW"
	LeadContacted LeadStatus = "CONTACTED"
	LeadWon       LeadStatus = "WON"
	LeadLost      LeadStatus = "LOST"
)

// LeadStatuses lists statuses in funnel order.
func LeadStatuses() []LeadStatus {
	return []LeadStatus{LeadNew, LeadContacted, LeadWon, LeadLost}
}

// Valid reports whether s is a known status.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadNew, LeadContacted, LeadWon, LeadLost:
		return true
	}
	return false
}

// Lead is a prospect captured by the sales desk.
type Lead struct {
	ID        int64
	Name      string
	Phone     string
	Source    string
	Status    LeadStatus
	SellerID  int64
	CreatedAt time.Time
}

// CreateLeadRequest is the lead form payload.
type CreateLeadRequest struct {
	Name   string `validate:"required,min=2,max=120"`
	Phone  string `validate:"required,min=6,max=30"`
	Source string `validate:"omitempty,oneof=WHATSAPP WEB REFERRAL WALK_IN SOCIAL"`
}

// ListLeadsRequest filters the lead list.
type ListLeadsRequest struct {
	Status  LeadStatus
	Page    int
	PerPage int
}

// SaleSummary is a sale row with its settlement.
type SaleSummary struct {
	ID                int64
	ClientName        string
	TourName          string
	ClosingPrice      decimal.Decimal
	B2B               bool
	ItineraryCloudURL string
	CreatedAt         time.Time
	Settlement        accounting.Settlement
}

// LeadSources lists accepted capture channels.
func LeadSources() []string {
	return []string{"WHATSAPP", "WEB", "REFERRAL", "WALK_IN", "SOCIAL"}
}
