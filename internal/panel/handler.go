package panel

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freteops/freteops/internal/consignment"
	"github.com/freteops/freteops/internal/platform/httpx"
	"github.com/freteops/freteops/internal/shared"
)

const maxHandoffBody = 1 << 20

// Handler exposes the dashboard alert lists and the grid handoff.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the panel routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/alerts", h.alerts)
	r.Post("/handoff", h.handoff)
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	viewer := shared.ViewerFromSession(sess)

	alerts, err := h.service.Alerts(r.Context(), viewer)
	if err != nil {
		h.logger.Error("panel alerts load failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Upstream Unavailable", "failed to load dashboard alerts")
		return
	}
	httpx.JSON(w, http.StatusOK, alerts)
}

// handoff stores a card's waybill numbers in the session so the next grid
// load with fromDashboard=1 opens pre-filtered to exactly that list.
func (h *Handler) handoff(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxHandoffBody))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Handoff", "failed to read request body")
		return
	}

	ctrcs, err := ExtractCtrcs(body)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Handoff", err.Error())
		return
	}

	encoded, err := json.Marshal(ctrcs)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "failed to encode handoff list")
		return
	}
	sess.Set(consignment.SessionKeyHandoff, string(encoded))

	httpx.JSON(w, http.StatusOK, map[string]any{
		"ctrcs":    len(ctrcs),
		"redirect": "/consignments/grid?fromDashboard=1",
	})
}
