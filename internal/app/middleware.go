package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/observability"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
}

// MiddlewareStack returns the chain applied to every back-office route, outermost first.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	rateLimit, timeout := 120, 30*time.Second
	if cfg.Config != nil {
		if cfg.Config.RateLimitPerMinute > 0 {
			rateLimit = cfg.Config.RateLimitPerMinute
		}
		if cfg.Config.AppRequestTimeout > 0 {
			timeout = cfg.Config.AppRequestTimeout
		}
	}

	stack := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		accessLog(cfg.Logger),
		middleware.Recoverer,
		secureHeaders(cfg),
		httprate.Limit(rateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		sessionLoader(cfg),
		middleware.Timeout(timeout),
		middleware.Compress(5, "text/html", "text/css", "application/json", "application/problem+json"),
		csrfGuard(cfg),
	}
	if cfg.Metrics != nil {
		stack = append(stack, cfg.Metrics.Middleware)
	}
	return stack
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func secureHeaders(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "same-origin",
		PermissionsPolicy:     "camera=(), microphone=(), geolocation=()",
		ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:",
		SSLRedirect:           cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:            stsSeconds(cfg.Config),
		IsDevelopment:         !cfg.Config.IsProduction(),
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sec.Process(w, r); err != nil {
				cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func stsSeconds(cfg *Config) int64 {
	if cfg.IsProduction() {
		return 31536000
	}
	return 0
}

// sessionLoader attaches the session and its principal to the request and
// commits the session just before the first byte of the response.
func sessionLoader(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess, err := cfg.SessionManager.Load(ctx, r)
			if err != nil {
				cfg.Logger.Error("load session", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			ctx = shared.ContextWithSession(ctx, sess)
			if p := sess.Principal(); p != nil {
				ctx = shared.ContextWithPrincipal(ctx, p)
			}
			r = r.WithContext(ctx)
			next.ServeHTTP(&committingWriter{ResponseWriter: w, commit: func() {
				if err := cfg.SessionManager.Commit(ctx, w, r, sess); err != nil {
					cfg.Logger.Warn("commit session", slog.Any("error", err))
				}
			}}, r)
		})
	}
}

type committingWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *committingWriter) WriteHeader(status int) {
	if !w.committed {
		w.committed = true
		w.commit()
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *committingWriter) Write(p []byte) (int, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(p)
}

func (w *committingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func csrfGuard(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if err := verifyCSRF(r.Context(), cfg.CSRFManager, r); err != nil {
				cfg.Logger.Warn("csrf validation failed", slog.String("path", r.URL.Path), slog.String("method", r.Method))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func verifyCSRF(ctx context.Context, csrf *shared.CSRFManager, r *http.Request) error {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return shared.ErrCSRFTokenMissing
	}
	token := r.Header.Get(shared.CSRFHeader)
	if token == "" {
		token = r.PostFormValue(shared.CSRFFormField)
	}
	return csrf.VerifyToken(ctx, sess, token)
}
