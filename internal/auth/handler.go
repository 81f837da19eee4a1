package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if shared.PrincipalFromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, loginPageData{}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	form, errs, ok := h.decodeLogin(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	status := http.StatusBadRequest
	if len(errs) == 0 {
		user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
		switch {
		case errors.Is(err, shared.ErrBackendUnavailable):
			h.logger.Error("authenticate", slog.Any("error", err))
			errs["general"] = "Sign-in is unavailable right now, please retry"
			status = http.StatusServiceUnavailable
		case err != nil:
			errs["general"] = "Invalid email or password"
		default:
			if h.signIn(r, user) {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			errs["general"] = "Your session expired, please try again"
		}
	}
	form.Password = ""
	h.renderLogin(w, r, loginPageData{Form: form, Errors: errs}, status)
}

func (h *Handler) decodeLogin(r *http.Request) (loginForm, map[string]string, bool) {
	if err := r.ParseForm(); err != nil {
		return loginForm{}, nil, false
	}
	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	errs := make(map[string]string)
	var verrs validator.ValidationErrors
	if err := h.validator.Struct(form); errors.As(err, &verrs) {
		for _, fieldErr := range verrs {
			errs[fieldErr.Field()] = fieldErr.Error()
		}
	}
	return form, errs, true
}

// signIn binds user to the request session under a fresh id and token.
func (h *Handler) signIn(r *http.Request, user *User) bool {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		return false
	}
	h.sessionManager.Renew(sess)
	sess.SetIdentity(user.ID, user.Email, user.Role)
	h.csrfManager.Rotate(sess)
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back, " + user.DisplayName()})

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	h.logger.Info("user signed in", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
	return true
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, data loginPageData, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	w.WriteHeader(status)
	err := h.templates.Render(w, "pages/login.html", view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	})
	if err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}
