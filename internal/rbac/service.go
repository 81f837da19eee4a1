package rbac

import (
	"sort"
	"strings"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
)

// Service resolves role permissions from a static matrix.
type Service struct {
	grants map[shared.Role]map[string]struct{}
}

// NewService builds the default role matrix.
func NewService() *Service {
	return NewServiceWith(
		Grant{Role: shared.RoleSales, Permissions: shared.SalesScopes()},
		Grant{Role: shared.RoleOperations, Permissions: shared.OperationsScopes()},
		Grant{Role: shared.RoleAccounting, Permissions: shared.AccountingScopes()},
		Grant{Role: shared.RoleManagement, Permissions: shared.AllScopes()},
	)
}

// NewServiceWith builds a service from explicit grants.
func NewServiceWith(grants ...Grant) *Service {
	s := &Service{grants: make(map[shared.Role]map[string]struct{}, len(grants))}
	for _, g := range grants {
		set := s.grants[g.Role]
		if set == nil {
			set = make(map[string]struct{}, len(g.Permissions))
			s.grants[g.Role] = set
		}
		for _, p := range normalizePermissions(g.Permissions) {
			set[p] = struct{}{}
		}
	}
	return s
}

// EffectivePermissions returns the sorted permissions of role.
func (s *Service) EffectivePermissions(role shared.Role) []string {
	set := s.grants[role]
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Can reports whether the principal holds perm.
func (s *Service) Can(p *shared.Principal, perm string) bool {
	if !p.Authenticated() {
		return false
	}
	_, ok := s.grants[p.Role][strings.ToLower(strings.TrimSpace(perm))]
	return ok
}

func (s *Service) allows(p *shared.Principal, mode matchMode, required []string) bool {
	granted := s.grants[p.Role]
	for _, perm := range required {
		_, ok := granted[perm]
		if ok && mode == matchAny {
			return true
		}
		if !ok && mode == matchAll {
			return false
		}
	}
	return mode == matchAll
}

// Menu returns the navigation entries visible to the principal.
func (s *Service) Menu(p *shared.Principal) []MenuItem {
	items := make([]MenuItem, 0, len(menu))
	for _, item := range menu {
		if s.Can(p, item.Permission) {
			items = append(items, item)
		}
	}
	return items
}
