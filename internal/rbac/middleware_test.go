package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
)

func serveWith(mw func(http.Handler) http.Handler, p *shared.Principal) *httptest.ResponseRecorder {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/operations/board", nil)
	if p != nil {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), p))
	}
	rr := httptest.NewRecorder()
	mw(next).ServeHTTP(rr, req)
	return rr
}

func TestRequireAnyByRole(t *testing.T) {
	m := Middleware{Service: NewService()}
	guard := m.RequireAny(shared.PermBoardView)

	rr := serveWith(guard, &shared.Principal{UserID: 1, Role: shared.RoleSales})
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = serveWith(guard, &shared.Principal{UserID: 2, Role: shared.RoleManagement})
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = serveWith(guard, &shared.Principal{UserID: 3, Role: shared.RoleOperations})
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRequireAnyAnonymousRedirects(t *testing.T) {
	m := Middleware{Service: NewService()}
	rr := serveWith(m.RequireAny(shared.PermBoardView), nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/auth/login", rr.Header().Get("Location"))
}

func TestRequireAll(t *testing.T) {
	m := Middleware{Service: NewService()}
	guard := m.RequireAll(shared.PermPaymentView, shared.PermPaymentCreate)

	require.Equal(t, http.StatusNoContent, serveWith(guard, &shared.Principal{UserID: 1, Role: shared.RoleAccounting}).Code)
	require.Equal(t, http.StatusForbidden, serveWith(guard, &shared.Principal{UserID: 1, Role: shared.RoleOperations}).Code)
}

func TestMenuPerRole(t *testing.T) {
	svc := NewService()
	items := svc.Menu(&shared.Principal{UserID: 1, Role: shared.RoleAccounting})
	paths := make([]string, 0, len(items))
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	require.Equal(t, []string{"/sales", "/accounting/receivables"}, paths)
	require.Len(t, svc.Menu(&shared.Principal{UserID: 1, Role: shared.RoleManagement}), len(menu))
	require.Empty(t, svc.Menu(nil))
}

func TestGuardWithoutServiceFails(t *testing.T) {
	m := Middleware{}
	rr := serveWith(m.RequireAny(shared.PermBoardView), &shared.Principal{UserID: 1, Role: shared.RoleManagement})
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = serveWith(m.RequireAny(" "), nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestNormalizePermissions(t *testing.T) {
	require.Equal(t, []string{"sales.lead.view", "itinerary.view"},
		normalizePermissions([]string{" Sales.Lead.View", "", "itinerary.view", "sales.lead.view"}))
}
