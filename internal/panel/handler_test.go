package panel

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freteops/freteops/internal/consignment"
	"github.com/freteops/freteops/internal/shared"
)

func newTestPanelAPI(t *testing.T, source *mockSource, viewer shared.Viewer) (http.Handler, *shared.Session) {
	t.Helper()
	svc := newTestService(t, source)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc)

	sess := &shared.Session{}
	require.NoError(t, shared.SaveViewer(sess, viewer))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/panel", handler.MountRoutes)
	return r, sess
}

func TestAlertsEndpointScopesToViewer(t *testing.T) {
	source := &mockSource{alerts: testAlerts()}
	api, _ := newTestPanelAPI(t, source, shared.Viewer{Cargo: "operador", Clientes: []int64{10}})

	req := httptest.NewRequest(http.MethodGet, "/panel/alerts", nil)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "GRU1-1")
	assert.NotContains(t, body, "GRU1-2")
}

func TestHandoffEndpointStoresCtrcList(t *testing.T) {
	source := &mockSource{alerts: testAlerts()}
	api, sess := newTestPanelAPI(t, source, shared.Viewer{Cargo: "gerente"})

	body := `[{"numero":"GRU1-1"},{"ctrc":"GRU1-2"}]`
	req := httptest.NewRequest(http.MethodPost, "/panel/handoff", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["GRU1-1","GRU1-2"]`, sess.Get(consignment.SessionKeyHandoff))
	assert.Contains(t, rec.Body.String(), "fromDashboard=1")
}

func TestHandoffEndpointRejectsNonArrayBody(t *testing.T) {
	source := &mockSource{alerts: testAlerts()}
	api, _ := newTestPanelAPI(t, source, shared.Viewer{Cargo: "gerente"})

	req := httptest.NewRequest(http.MethodPost, "/panel/handoff", strings.NewReader(`{"ctrc":"x"}`))
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
