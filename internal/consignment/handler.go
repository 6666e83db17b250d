package consignment

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freteops/freteops/internal/platform/httpx"
	"github.com/freteops/freteops/internal/shared"
)

// Handler exposes the consignment grid over JSON.
type Handler struct {
	logger           *slog.Logger
	store            *Store
	engine           *Engine
	tracker          *Tracker
	agenda           *AgendaService
	sporadicClientID int64
}

// NewHandler builds the Handler instance.
func NewHandler(
	logger *slog.Logger,
	store *Store,
	engine *Engine,
	tracker *Tracker,
	agenda *AgendaService,
	sporadicClientID int64,
) *Handler {
	return &Handler{
		logger:           logger,
		store:            store,
		engine:           engine,
		tracker:          tracker,
		agenda:           agenda,
		sporadicClientID: sporadicClientID,
	}
}

// MountRoutes registers the grid routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/grid", h.loadGrid)
	r.Get("/lookups", h.lookups)
	r.Post("/filters", h.applyFilters)
	r.Delete("/filters", h.clearFilters)
	r.Put("/{id}", h.editCell)
	r.Post("/{id}/agenda", h.saveAgenda)
	r.Get("/agenda/tipos", h.agendaTypes)
}

// gridResponse carries everything the SPA grid needs in one round trip.
type gridResponse struct {
	Rows     []Row          `json:"rows"`
	Columns  []Column       `json:"columns"`
	Statuses []StatusEntry  `json:"statuses"`
	Unidades []string       `json:"unidades"`
	Periodo  periodPayload  `json:"periodo"`
	Filtros  FilterSpec     `json:"filtros"`
	Pending  int            `json:"pendingWrites"`
}

type periodPayload struct {
	DataInicio string `json:"dataInicio"`
	DataFim    string `json:"dataFim"`
}

// loadGrid refreshes the working set for the requested period and responds
// with the filtered view. With fromDashboard=1 the dashboard handoff list is
// consumed and applied as the active filter; otherwise the session's
// persisted filters are re-applied.
func (h *Handler) loadGrid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)

	period, err := parsePeriod(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Period", err.Error())
		return
	}

	if err := h.store.Load(ctx, period); err != nil {
		h.logger.Error("grid load failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Upstream Unavailable", "failed to load the working set; previous data is unchanged")
		return
	}

	if r.URL.Query().Get("fromDashboard") == "1" {
		if !h.engine.ConsumeHandoff(sess) {
			h.engine.Restore(sess)
		}
	} else {
		h.engine.Restore(sess)
	}

	h.respondGrid(w, r)
}

func (h *Handler) lookups(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"statusesEntrega": h.store.Statuses(),
	})
}

// applyFilters replaces the session's direct filter criteria. The carrier
// allow-list cannot be set through this endpoint; it only arrives via the
// dashboard handoff.
func (h *Handler) applyFilters(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())

	var spec FilterSpec
	if err := httpx.DecodeJSON(r, &spec); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filters", err.Error())
		return
	}
	spec.Ctrc = nil

	h.engine.Apply(sess, spec)
	h.respondGrid(w, r)
}

func (h *Handler) clearFilters(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	h.engine.Clear(sess)
	h.respondGrid(w, r)
}

// editRequest is one inline cell edit.
type editRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// editCell applies a cell edit optimistically and schedules its write-back.
// The response confirms only the local apply; the upstream write is
// fire-and-forget on the debounce timer.
func (h *Handler) editCell(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Identity", "record id must be an integer")
		return
	}

	var req editRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Edit", err.Error())
		return
	}
	if !Editable(req.Field) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Edit", "field is not editable: "+req.Field)
		return
	}

	if !h.tracker.OnEdit(id, req.Field, req.Value) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// agendaBody is the schedule save request body.
type agendaBody struct {
	TipoAgendaID int64  `json:"tipoAgendaId"`
	DataAgenda   string `json:"dataAgenda"`
}

func (h *Handler) saveAgenda(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Identity", "record id must be an integer")
		return
	}

	var body agendaBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Agenda", err.Error())
		return
	}

	req := AgendaRequest{CtrcID: id, TipoAgendaID: body.TipoAgendaID, DataAgenda: body.DataAgenda}
	if err := h.agenda.Save(r.Context(), req); err != nil {
		if errors.Is(err, ErrAgendaIncomplete) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", ErrAgendaIncomplete.Error())
			return
		}
		h.logger.Error("agenda save failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Upstream Unavailable", "agenda was not saved; try again")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"ctrcId":       id,
		"tipoAgendaId": body.TipoAgendaID,
		"dataAgenda":   body.DataAgenda,
	})
}

func (h *Handler) agendaTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.agenda.Types(r.Context())
	if err != nil {
		h.logger.Error("agenda types fetch failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Upstream Unavailable", "failed to load agenda types")
		return
	}
	httpx.JSON(w, http.StatusOK, types)
}

func (h *Handler) respondGrid(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	viewer := shared.ViewerFromSession(sess)
	sporadic := viewer.IsSporadic(h.sporadicClientID)

	period := h.store.Period()
	httpx.JSON(w, http.StatusOK, gridResponse{
		Rows:     BuildRows(h.engine.View(), h.store.StatusesByID(), sporadic),
		Columns:  Columns(sporadic),
		Statuses: h.store.Statuses(),
		Unidades: h.store.Unidades(),
		Periodo: periodPayload{
			DataInicio: period.DataInicio.Format(DateLayout),
			DataFim:    period.DataFim.Format(DateLayout),
		},
		Filtros: h.engine.Active(),
		Pending: h.tracker.Pending(),
	})
}

var errInvalidPeriod = errors.New("dataInicio and dataFim must both be present, valid dates, in order")

// parsePeriod reads the optional dataInicio/dataFim query pair. Both absent
// yields the zero period (the store falls back to the last 60 days); a
// half-set or unparseable pair is rejected.
func parsePeriod(r *http.Request) (Period, error) {
	start := r.URL.Query().Get("dataInicio")
	end := r.URL.Query().Get("dataFim")
	if start == "" && end == "" {
		return Period{}, nil
	}
	if start == "" || end == "" {
		return Period{}, errInvalidPeriod
	}
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return Period{}, errInvalidPeriod
	}
	to, err := time.Parse(DateLayout, end)
	if err != nil {
		return Period{}, errInvalidPeriod
	}
	if to.Before(from) {
		return Period{}, errInvalidPeriod
	}
	return Period{DataInicio: from, DataFim: to}, nil
}
