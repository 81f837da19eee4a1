package operations

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/platform/httpx"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/rbac"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/view"
)

// BoardBuilder exposes the board entry points used by the handler.
type BoardBuilder interface {
	BuildDay(ctx context.Context, day time.Time) BoardResult
	BuildRange(ctx context.Context, from, to time.Time) BoardResult
}

// Mutator exposes the assignment operations used by the handler.
type Mutator interface {
	AssignGuide(ctx context.Context, saleID int64, line int, guideName string) MutationResult
	AssignEndorsement(ctx context.Context, saleID int64, line int, providerName string) MutationResult
	ToggleEndorsement(ctx context.Context, saleID int64, line int, endorsed bool) MutationResult
}

// Handler serves the operations board and assignment forms.
type Handler struct {
	logger    *slog.Logger
	board     BoardBuilder
	mutator   Mutator
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	validator *validator.Validate
	now       func() time.Time
}

// NewHandler constructs the operations handler.
func NewHandler(logger *slog.Logger, board BoardBuilder, mutator Mutator, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		board:     board,
		mutator:   mutator,
		templates: templates,
		csrf:      csrf,
		rbac:      rbac,
		validator: validator.New(),
		now:       time.Now,
	}
}

// MountRoutes registers operations routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermBoardView))
		r.Get("/board", h.showBoard)
		r.Get("/board.json", h.boardJSON)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermBoardAssign))
		r.Post("/assignments/guide", h.assignGuide)
		r.Post("/assignments/endorsement", h.assignEndorsement)
		r.Post("/assignments/toggle", h.toggleEndorsement)
	})
}

type boardQuery struct {
	Day    time.Time
	From   time.Time
	To     time.Time
	Ranged bool
}

type boardPageData struct {
	Query  boardQuery
	Result BoardResult
	Back   string
	Error  string
}

func (h *Handler) parseBoardQuery(r *http.Request) (boardQuery, error) {
	q := r.URL.Query()
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from != "" || to != "" {
		start, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return boardQuery{}, err
		}
		end, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return boardQuery{}, err
		}
		return boardQuery{From: start, To: end, Ranged: true}, nil
	}
	day := h.now()
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return boardQuery{}, err
		}
		day = parsed
	}
	return boardQuery{Day: dateOnly(day)}, nil
}

func (h *Handler) load(r *http.Request, q boardQuery) BoardResult {
	if q.Ranged {
		return h.board.BuildRange(r.Context(), q.From, q.To)
	}
	return h.board.BuildDay(r.Context(), q.Day)
}

func (h *Handler) showBoard(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseBoardQuery(r)
	if err != nil {
		h.render(w, r, "pages/board.html", boardPageData{Query: boardQuery{Day: dateOnly(h.now())}, Error: "Dates must use the YYYY-MM-DD format"}, http.StatusBadRequest)
		return
	}
	res := h.load(r, q)
	data := boardPageData{Query: q, Result: res, Back: r.URL.RequestURI()}
	status := http.StatusOK
	if res.Failed() {
		data.Error = "The board could not be loaded. Data shown may be incomplete; try again shortly."
		status = httpx.StatusFor(res.Err)
	}
	h.render(w, r, "pages/board.html", data, status)
}

type boardRowJSON struct {
	SaleID          int64  `json:"sale_id"`
	LineNumber      int    `json:"line_number"`
	ServiceDate     string `json:"service_date"`
	DisplayName     string `json:"display_name"`
	PassengerCount  int    `json:"passenger_count"`
	ClientName      string `json:"client_name"`
	GuideName       string `json:"guide_name"`
	EndorsementName string `json:"endorsement_name"`
	PaymentStatus   string `json:"payment_status"`
	Balance         string `json:"balance"`
	Flag            string `json:"logistics_flag"`
	DayIndex        int    `json:"day_index"`
	ItineraryURL    string `json:"itinerary_url,omitempty"`
}

func (h *Handler) boardJSON(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseBoardQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "dates must use YYYY-MM-DD")
		return
	}
	res := h.load(r, q)
	if res.Failed() {
		httpx.RespondError(w, res.Err)
		return
	}
	rows := make([]boardRowJSON, 0, len(res.Rows))
	for _, row := range res.Rows {
		rows = append(rows, boardRowJSON{
			SaleID:          row.SaleID,
			LineNumber:      row.LineNumber,
			ServiceDate:     row.ServiceDate.Format(time.DateOnly),
			DisplayName:     row.DisplayName,
			PassengerCount:  row.PassengerCount,
			ClientName:      row.ClientName,
			GuideName:       row.GuideName,
			EndorsementName: row.EndorsementName,
			PaymentStatus:   row.PaymentLabel,
			Balance:         row.Balance.StringFixed(2),
			Flag:            string(row.Flag),
			DayIndex:        row.DayIndex,
			ItineraryURL:    row.ItineraryCloudURL,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": res.Status, "rows": rows})
}

type assignmentForm struct {
	SaleID   int64  `validate:"required,gt=0"`
	Line     int    `validate:"required,gt=0"`
	Name     string `validate:"required,min=2"`
	Back     string
	Endorsed bool
}

func (h *Handler) parseAssignment(r *http.Request, needName bool) (assignmentForm, string) {
	if err := r.ParseForm(); err != nil {
		return assignmentForm{}, "Invalid form submission"
	}
	saleID, _ := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("sale_id")), 10, 64)
	line, _ := strconv.Atoi(strings.TrimSpace(r.PostFormValue("line_number")))
	form := assignmentForm{
		SaleID:   saleID,
		Line:     line,
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Back:     r.PostFormValue("back"),
		Endorsed: r.PostFormValue("endorsed") == "true" || r.PostFormValue("endorsed") == "on",
	}
	var err error
	if needName {
		err = h.validator.Struct(form)
	} else {
		err = h.validator.StructExcept(form, "Name")
	}
	if err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return form, "Invalid " + strings.ToLower(verrs[0].Field())
		}
		return form, "Invalid form submission"
	}
	return form, ""
}

func (h *Handler) assignGuide(w http.ResponseWriter, r *http.Request) {
	form, problem := h.parseAssignment(r, true)
	if problem != "" {
		h.redirectWithResult(w, r, form.Back, MutationResult{Message: problem})
		return
	}
	h.redirectWithResult(w, r, form.Back, h.mutator.AssignGuide(r.Context(), form.SaleID, form.Line, form.Name))
}

func (h *Handler) assignEndorsement(w http.ResponseWriter, r *http.Request) {
	form, problem := h.parseAssignment(r, true)
	if problem != "" {
		h.redirectWithResult(w, r, form.Back, MutationResult{Message: problem})
		return
	}
	h.redirectWithResult(w, r, form.Back, h.mutator.AssignEndorsement(r.Context(), form.SaleID, form.Line, form.Name))
}

func (h *Handler) toggleEndorsement(w http.ResponseWriter, r *http.Request) {
	form, problem := h.parseAssignment(r, false)
	if problem != "" {
		h.redirectWithResult(w, r, form.Back, MutationResult{Message: problem})
		return
	}
	h.redirectWithResult(w, r, form.Back, h.mutator.ToggleEndorsement(r.Context(), form.SaleID, form.Line, form.Endorsed))
}

func (h *Handler) redirectWithResult(w http.ResponseWriter, r *http.Request, back string, res MutationResult) {
	kind := "success"
	if !res.OK {
		kind = "error"
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: res.Message})
	}
	http.Redirect(w, r, safeBack(back), http.StatusSeeOther)
}

// safeBack only allows returning to the board with its query string.
func safeBack(back string) string {
	const fallback = "/operations/board"
	u, err := url.Parse(back)
	if err != nil || u.IsAbs() || u.Host != "" || u.Path != fallback {
		return fallback
	}
	if u.RawQuery == "" {
		return fallback
	}
	return fallback + "?" + u.Query().Encode()
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Operations board",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Principal:   shared.PrincipalFromContext(r.Context()),
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", template), slog.Any("error", err))
	}
}
