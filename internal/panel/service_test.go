package panel

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freteops/freteops/internal/remote"
	"github.com/freteops/freteops/internal/shared"
)

const testSporadicID = 3573

type mockSource struct {
	alerts remote.PanelAlerts
	cfg    remote.SporadicConfig

	alertCalls int
	cfgCalls   int
}

func (m *mockSource) FetchPanelAlerts(ctx context.Context) (remote.PanelAlerts, error) {
	m.alertCalls++
	return m.alerts, nil
}

func (m *mockSource) FetchSporadicConfig(ctx context.Context) (remote.SporadicConfig, error) {
	m.cfgCalls++
	return m.cfg, nil
}

func testAlerts() remote.PanelAlerts {
	return remote.PanelAlerts{
		CtrcsParadosGRU: []remote.StalledConsignment{
			{CtrcID: 1, ClienteID: 10, UnidadeID: 100, Quantidade: 3},
			{CtrcID: 2, ClienteID: 20, UnidadeID: 200, Quantidade: 1},
		},
		CtrcsAtrasadas: []remote.DelayedConsignment{
			{Numero: "GRU1-1", ClienteID: 10, UnidadeID: 100, Destinatario: "Loja Centro"},
			{Numero: "GRU1-2", ClienteID: 20, UnidadeID: 100, Destinatario: "CD NORTE"},
		},
		CtrcsVaiAtrasar: []remote.AtRiskConsignment{
			{Numero: "GRU1-3", ClienteID: 30, UnidadeID: 300, Destinatario: "DEPOSITO SUL"},
		},
	}
}

func newTestService(t *testing.T, source *mockSource) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(source, NewCache(client, time.Minute), nil, testSporadicID)
}

func TestAlertsManagerSeesEverything(t *testing.T) {
	source := &mockSource{alerts: testAlerts()}
	svc := newTestService(t, source)

	alerts, err := svc.Alerts(context.Background(), shared.Viewer{Cargo: "Gerente"})
	require.NoError(t, err)
	assert.Len(t, alerts.CtrcsParadosGRU, 2)
	assert.Len(t, alerts.CtrcsAtrasadas, 2)
	assert.Len(t, alerts.CtrcsVaiAtrasar, 1)

	// No exclusion config is needed for a manager.
	assert.Equal(t, 0, source.cfgCalls)
}

func TestAlertsSporadicViewerAppliesExclusions(t *testing.T) {
	source := &mockSource{
		alerts: testAlerts(),
		cfg: remote.SporadicConfig{
			ClientesExcluidos:      []int64{20},
			UnidadesExcluidas:      []int64{300},
			DestinatariosExcluidos: []string{"LOJA CENTRO"},
		},
	}
	svc := newTestService(t, source)

	viewer := shared.Viewer{Cargo: "operador", Clientes: []int64{testSporadicID}}
	alerts, err := svc.Alerts(context.Background(), viewer)
	require.NoError(t, err)

	// Stalled rows carry no recipient, so only client and branch rules apply.
	require.Len(t, alerts.CtrcsParadosGRU, 1)
	assert.Equal(t, int64(1), alerts.CtrcsParadosGRU[0].CtrcID)

	// GRU1-1 falls to the recipient rule, GRU1-2 to the client rule.
	assert.Empty(t, alerts.CtrcsAtrasadas)

	// The at-risk row falls to the branch rule.
	assert.Empty(t, alerts.CtrcsVaiAtrasar)
}

func TestAlertsRegularViewerKeepsOwnClients(t *testing.T) {
	source := &mockSource{alerts: testAlerts()}
	svc := newTestService(t, source)

	viewer := shared.Viewer{Cargo: "operador", Clientes: []int64{10}}
	alerts, err := svc.Alerts(context.Background(), viewer)
	require.NoError(t, err)

	require.Len(t, alerts.CtrcsParadosGRU, 1)
	assert.Equal(t, int64(10), alerts.CtrcsParadosGRU[0].ClienteID)
	require.Len(t, alerts.CtrcsAtrasadas, 1)
	assert.Equal(t, "GRU1-1", alerts.CtrcsAtrasadas[0].Numero)
	assert.Empty(t, alerts.CtrcsVaiAtrasar)
}

func TestAlertsServedFromCache(t *testing.T) {
	source := &mockSource{alerts: testAlerts()}
	svc := newTestService(t, source)

	ctx := context.Background()
	_, err := svc.Alerts(ctx, shared.Viewer{Cargo: "gerente"})
	require.NoError(t, err)
	_, err = svc.Alerts(ctx, shared.Viewer{Cargo: "operador", Clientes: []int64{10}})
	require.NoError(t, err)
	assert.Equal(t, 1, source.alertCalls)

	// Invalidation forces a reload.
	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Alerts(ctx, shared.Viewer{Cargo: "gerente"})
	require.NoError(t, err)
	assert.Equal(t, 2, source.alertCalls)
}

func TestWarmPrimesBothEntries(t *testing.T) {
	source := &mockSource{alerts: testAlerts()}
	svc := newTestService(t, source)

	ctx := context.Background()
	require.NoError(t, svc.Warm(ctx))
	assert.Equal(t, 1, source.alertCalls)
	assert.Equal(t, 1, source.cfgCalls)

	// Later reads hit the cache.
	viewer := shared.Viewer{Cargo: "operador", Clientes: []int64{testSporadicID}}
	_, err := svc.Alerts(ctx, viewer)
	require.NoError(t, err)
	assert.Equal(t, 1, source.alertCalls)
	assert.Equal(t, 1, source.cfgCalls)
}
