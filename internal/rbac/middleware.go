package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
)

// Middleware guards routes by permission. Anonymous requests are sent to
// the login page; authenticated principals lacking the permission get 403.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

type matchMode int

const (
	matchAny matchMode = iota
	matchAll
)

// RequireAny lets the request through when the principal holds one of perms.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.guard(matchAny, perms)
}

// RequireAll lets the request through only when the principal holds every perm.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.guard(matchAll, perms)
}

func (m Middleware) guard(mode matchMode, perms []string) func(http.Handler) http.Handler {
	required := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal := shared.PrincipalFromContext(r.Context())
			switch {
			case !principal.Authenticated():
				http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			case m.Service == nil:
				m.log(r.Context(), slog.LevelError, "rbac service not configured", slog.String("path", r.URL.Path))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			case m.Service.allows(principal, mode, required):
				next.ServeHTTP(w, r)
			default:
				m.log(r.Context(), slog.LevelWarn, "permission denied",
					slog.Int64("user_id", principal.UserID),
					slog.String("role", string(principal.Role)),
					slog.String("required", strings.Join(required, ",")),
					slog.String("path", r.URL.Path))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			}
		})
	}
}

func (m Middleware) log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	if m.Logger != nil {
		m.Logger.LogAttrs(ctx, level, msg, attrs...)
	}
}

// normalizePermissions lower-cases, trims and de-duplicates perms, keeping
// their first-seen order.
func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
