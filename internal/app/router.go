package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/accounting"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/auth"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/itinerary"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/management"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/observability"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/operations"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/platform/httpx"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/pricing"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/providers"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/rbac"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/sales"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/view"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/jobs"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/report"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBAC           *rbac.Service
	RBACMiddleware rbac.Middleware

	AuthHandler       *auth.Handler
	SalesHandler      *sales.Handler
	PricingHandler    *pricing.Handler
	OperationsHandler *operations.Handler
	ProvidersHandler  *providers.Handler
	AccountingHandler *accounting.Handler
	ManagementHandler *management.Handler
	ItineraryHandler  *itinerary.Handler
	JobHandler        *jobs.Handler
	ReportHandler     *report.Handler
	Metrics           *observability.Metrics
}

type homePageData struct {
	AppEnv      string
	Permissions []string
}

// NewRouter constructs the chi.Router with back-office defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Templates != nil && params.RBAC != nil {
		params.Templates.SetMenu(NavFor(params.RBAC))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		principal := shared.PrincipalFromContext(r.Context())
		if principal == nil {
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		var flash *shared.FlashMessage
		if sess != nil {
			flash = sess.PopFlash()
		}
		data := homePageData{}
		if params.Config != nil {
			data.AppEnv = params.Config.AppEnv
		}
		if params.RBAC != nil {
			data.Permissions = params.RBAC.EffectivePermissions(principal.Role)
		}
		viewData := view.TemplateData{
			Title:       "Dashboard",
			CSRFToken:   csrfToken,
			Flash:       flash,
			CurrentPath: r.URL.Path,
			Principal:   principal,
			Data:        data,
		}
		if err := params.Templates.Render(w, "pages/home.html", viewData); err != nil {
			params.Logger.Error("render home", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.SalesHandler != nil {
		r.Route("/sales", params.SalesHandler.MountRoutes)
	}
	if params.PricingHandler != nil {
		r.Route("/pricing", params.PricingHandler.MountRoutes)
	}
	if params.OperationsHandler != nil {
		r.Route("/operations", params.OperationsHandler.MountRoutes)
	}
	if params.ProvidersHandler != nil {
		r.Route("/providers", params.ProvidersHandler.MountRoutes)
	}
	if params.AccountingHandler != nil {
		r.Route("/accounting", params.AccountingHandler.MountRoutes)
	}
	if params.ManagementHandler != nil {
		r.Route("/management", params.ManagementHandler.MountRoutes)
	}
	if params.ItineraryHandler != nil {
		r.Route("/itineraries", params.ItineraryHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAny(shared.PermSummaryView))
			params.JobHandler.MountRoutes(r)
		})
	}
	if params.ReportHandler != nil {
		r.Route("/reports", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAny(shared.PermItineraryRender))
			params.ReportHandler.MountRoutes(r)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// NavFor adapts the role menu to the template navigation type.
func NavFor(svc *rbac.Service) view.MenuFunc {
	return func(p *shared.Principal) []view.NavItem {
		items := svc.Menu(p)
		out := make([]view.NavItem, len(items))
		for i, item := range items {
			out[i] = view.NavItem{Label: item.Label, Path: item.Path}
		}
		return out
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
