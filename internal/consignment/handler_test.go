package consignment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freteops/freteops/internal/shared"
)

func newTestAPI(t *testing.T) (http.Handler, *shared.Session, *mockFetcher, *mockUpdater) {
	t.Helper()
	fetcher := &mockFetcher{records: testRecords()}
	store := NewStore(fetcher, nil)
	engine := NewEngine(store, nil)
	updater := newMockUpdater()
	tracker := NewTracker(store, updater, nil, time.Hour, nil)
	agenda := NewAgendaService(store, &mockAgendaClient{}, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, store, engine, tracker, agenda, 3573)

	sess := &shared.Session{}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/consignments", handler.MountRoutes)
	return r, sess, fetcher, updater
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeGrid(t *testing.T, rec *httptest.ResponseRecorder) gridResponse {
	t.Helper()
	var resp gridResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestGridLoadRespondsWithRowsAndVocabulary(t *testing.T) {
	api, _, fetcher, _ := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/consignments/grid?dataInicio=2026-01-01&dataFim=2026-03-01", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeGrid(t, rec)
	assert.Len(t, resp.Rows, 3)
	assert.Len(t, resp.Statuses, 11)
	assert.Equal(t, []string{"REC", "SPO"}, resp.Unidades)
	assert.Equal(t, "2026-01-01", resp.Periodo.DataInicio)
	assert.Equal(t, 1, fetcher.recordsCalls)

	// The client column is absent for a non-sporadic viewer.
	for _, col := range resp.Columns {
		assert.NotEqual(t, "cliente", col.Field)
	}
}

func TestGridLoadRejectsHalfSetPeriod(t *testing.T) {
	api, _, _, _ := newTestAPI(t)
	rec := doJSON(t, api, http.MethodGet, "/consignments/grid?dataInicio=2026-01-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGridLoadFromDashboardConsumesHandoff(t *testing.T) {
	api, sess, _, _ := newTestAPI(t)
	sess.Set(SessionKeyHandoff, `["GRU100-2"]`)

	rec := doJSON(t, api, http.MethodGet, "/consignments/grid?fromDashboard=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeGrid(t, rec)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "GRU100-2", resp.Rows[0].Ctrc)
	assert.Empty(t, sess.Get(SessionKeyHandoff))
}

func TestFiltersApplyAndClear(t *testing.T) {
	api, sess, _, _ := newTestAPI(t)
	require.Equal(t, http.StatusOK, doJSON(t, api, http.MethodGet, "/consignments/grid", "").Code)

	rec := doJSON(t, api, http.MethodPost, "/consignments/filters", `{"und":["SPO"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeGrid(t, rec).Rows, 2)
	assert.NotEmpty(t, sess.Get(SessionKeyFilters))

	rec = doJSON(t, api, http.MethodDelete, "/consignments/filters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeGrid(t, rec).Rows, 3)
	assert.Empty(t, sess.Get(SessionKeyFilters))
}

func TestFiltersEndpointCannotSetAllowList(t *testing.T) {
	api, _, _, _ := newTestAPI(t)
	require.Equal(t, http.StatusOK, doJSON(t, api, http.MethodGet, "/consignments/grid", "").Code)

	rec := doJSON(t, api, http.MethodPost, "/consignments/filters", `{"ctrc":["GRU100-1"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeGrid(t, rec).Rows, 3)
}

func TestEditCell(t *testing.T) {
	api, _, _, updater := newTestAPI(t)
	require.Equal(t, http.StatusOK, doJSON(t, api, http.MethodGet, "/consignments/grid", "").Code)

	rec := doJSON(t, api, http.MethodPut, "/consignments/1", `{"field":"observacao","value":"ligar antes"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Write-back waits for the debounce; nothing went upstream yet.
	assert.Empty(t, updater.calls(1))

	rec = doJSON(t, api, http.MethodPut, "/consignments/1", `{"field":"ctrc","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, api, http.MethodPut, "/consignments/999", `{"field":"observacao","value":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, api, http.MethodPut, "/consignments/abc", `{"field":"observacao","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveAgendaEndpoint(t *testing.T) {
	api, _, _, _ := newTestAPI(t)
	require.Equal(t, http.StatusOK, doJSON(t, api, http.MethodGet, "/consignments/grid", "").Code)

	rec := doJSON(t, api, http.MethodPost, "/consignments/1/agenda", `{"tipoAgendaId":4,"dataAgenda":"2026-09-15"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, api, http.MethodPost, "/consignments/1/agenda", `{"tipoAgendaId":4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGridLoadUpstreamFailure(t *testing.T) {
	api, _, fetcher, _ := newTestAPI(t)
	require.Equal(t, http.StatusOK, doJSON(t, api, http.MethodGet, "/consignments/grid", "").Code)

	fetcher.recordsErr = context.DeadlineExceeded
	rec := doJSON(t, api, http.MethodGet, "/consignments/grid", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
