package rbac

import "github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"

// MenuItem is one entry of the role navigation.
type MenuItem struct {
	Label      string
	Path       string
	Permission string
}

// Grant lists the permissions held by a role.
type Grant struct {
	Role        shared.Role
	Permissions []string
}

var menu = []MenuItem{
	{Label: "Leads", Path: "/sales/leads", Permission: shared.PermLeadView},
	{Label: "Sales", Path: "/sales", Permission: shared.PermSaleView},
	{Label: "Pricing", Path: "/pricing", Permission: shared.PermPricingUse},
	{Label: "Operations board", Path: "/operations/board", Permission: shared.PermBoardView},
	{Label: "Providers", Path: "/providers", Permission: shared.PermProviderView},
	{Label: "Receivables", Path: "/accounting/receivables", Permission: shared.PermPaymentView},
	{Label: "Summary", Path: "/management/summary", Permission: shared.PermSummaryView},
}
