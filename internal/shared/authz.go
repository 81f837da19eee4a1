package shared

import "strings"

// Role is the back-office role of a user.
type Role string

const (
	RoleSales      Role = "SALES"
	RoleOperations Role = "OPERATIONS"
	RoleAccounting Role = "ACCOUNTING"
	RoleManagement Role = "MANAGEMENT"
)

// ParseRole normalises a stored role string.
func ParseRole(raw string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(raw)))
}

// Valid reports whether the role is one of the known back-office roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSales, RoleOperations, RoleAccounting, RoleManagement:
		return true
	default:
		return false
	}
}

// Permissions used by RBAC guards.
const (
	PermLeadView   = "sales.lead.view"
	PermLeadCreate = "sales.lead.create"
	PermSaleView   = "sales.sale.view"
	PermPricingUse = "sales.pricing.use"

	PermItineraryView   = "itinerary.view"
	PermItineraryRender = "itinerary.render"

	PermBoardView      = "operations.board.view"
	PermBoardAssign    = "operations.board.assign"
	PermProviderView   = "operations.provider.view"
	PermProviderCreate = "operations.provider.create"

	PermPaymentView   = "accounting.payment.view"
	PermPaymentCreate = "accounting.payment.create"

	PermSummaryView = "management.summary.view"
)

// SalesScopes lists permissions granted to the sales desk.
func SalesScopes() []string {
	return []string{PermLeadView, PermLeadCreate, PermSaleView, PermPricingUse, PermItineraryView, PermItineraryRender}
}

// OperationsScopes lists permissions granted to the operations desk.
func OperationsScopes() []string {
	return []string{PermBoardView, PermBoardAssign, PermProviderView, PermProviderCreate, PermItineraryView}
}

// AccountingScopes lists permissions granted to accounting.
func AccountingScopes() []string {
	return []string{PermPaymentView, PermPaymentCreate, PermSaleView}
}

// AllScopes returns every permission; management holds all of them.
func AllScopes() []string {
	all := append([]string{}, SalesScopes()...)
	all = append(all, OperationsScopes()...)
	all = append(all, AccountingScopes()...)
	all = append(all, PermSummaryView)
	return dedupe(all)
}

func dedupe(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
