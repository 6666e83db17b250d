package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	sess.Set("grid:filters", `{"und":["SPO"]}`)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "test_session", cookies[0].Name)
	assert.Equal(t, sess.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	// A follow-up request with the cookie sees the stored values.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookies[0])
	sess2, err := sm.Load(ctx, req2)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, sess2.ID)
	assert.Equal(t, `{"und":["SPO"]}`, sess2.Get("grid:filters"))
}

func TestSessionExpiredInRedisYieldsFreshValues(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "gone-from-redis"})

	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "gone-from-redis", sess.ID)
	assert.Empty(t, sess.Get("anything"))
}

func TestSessionDelete(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.Set("panel:handoff", `["GRU1-1"]`)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))

	sess.Delete("panel:handoff")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: sess.ID})
	reloaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Get("panel:handoff"))
}

func TestSessionDestroy(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.Set("viewer", "x")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: sess.ID})
	reloaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Get("viewer"))
}

func TestViewerRoundTrip(t *testing.T) {
	sess := &Session{values: make(map[string]string)}

	require.NoError(t, SaveViewer(sess, Viewer{Cargo: "Gerente", Clientes: []int64{3573, 10}}))
	viewer := ViewerFromSession(sess)
	assert.True(t, viewer.IsGerente())
	assert.True(t, viewer.IsSporadic(3573))
	assert.True(t, viewer.HasCliente(10))
	assert.False(t, viewer.HasCliente(11))

	// Absent or unreadable profiles yield the zero viewer.
	assert.Equal(t, Viewer{}, ViewerFromSession(nil))
	sess.Set("viewer", "{broken")
	assert.Equal(t, Viewer{}, ViewerFromSession(sess))
}
