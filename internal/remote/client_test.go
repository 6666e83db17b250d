package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freteops/freteops/internal/consignment"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "test-token", time.Second)
}

func TestFetchConsignmentsDecodesLooseUpstreamRows(t *testing.T) {
	var gotPath, gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `[
			{"id":1,"ctrc":"GRU1-1","clienteNome":"ACME","numeroNotaFiscal":12345,
			 "dataEmissao":"2026-08-01T00:00:00Z","statusEntregaId":"2"},
			{"id":2,"ctrc":"GRU1-2","razaoSocialCliente":"GLOBEX SA",
			 "dataEmissao":"2026-08-02","dataEntregaRealizada":"não sei"}
		]`)
	})

	period := consignment.Period{
		DataInicio: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		DataFim:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	records, err := client.FetchConsignments(context.Background(), period)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Contains(t, gotPath, "/api/ctrcs/grid")
	assert.Contains(t, gotPath, "dataInicio=2026-08-01")
	assert.Contains(t, gotPath, "dataFim=2026-09-01")
	assert.Equal(t, "Bearer test-token", gotAuth)

	// Invoice numbers arrive as numbers, status ids as strings.
	require.NotNil(t, records[0].NumeroNotaFiscal)
	assert.Equal(t, "12345", *records[0].NumeroNotaFiscal)
	require.NotNil(t, records[0].StatusEntregaID)
	assert.Equal(t, int64(2), *records[0].StatusEntregaID)
	require.NotNil(t, records[0].Cliente)
	assert.Equal(t, "ACME", *records[0].Cliente)

	// Plain dates parse; garbage timestamps decode to nil, not an error.
	require.NotNil(t, records[1].DataEmissao)
	assert.Equal(t, time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC), *records[1].DataEmissao)
	assert.Nil(t, records[1].DataEntregaRealizada)
	require.NotNil(t, records[1].Cliente)
	assert.Equal(t, "GLOBEX SA", *records[1].Cliente)
}

func TestFetchLookups(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ctrcs/lookups", r.URL.Path)
		_, _ = io.WriteString(w, `{"statusesEntrega":[{"id":2,"nome":"ATRASADA"}]}`)
	})

	statuses, err := client.FetchLookups(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "ATRASADA", statuses[0].Nome)
}

func TestUpdateConsignmentSendsFixedPayloadShape(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]json.RawMessage
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	})

	obs := "cliente avisado"
	desc := "destinatário ausente"
	tipo := int64(1)
	payload := consignment.UpdatePayload{
		Observacao:                     &obs,
		DescricaoOcorrenciaAtendimento: &desc,
		TipoOcorrenciaID:               &tipo,
	}
	require.NoError(t, client.UpdateConsignment(context.Background(), 42, payload))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/ctrcs/42", gotPath)

	// All five keys go out on every write, absent values as null.
	for _, key := range []string{
		"DataEntregaRealizada", "StatusEntregaId", "Observacao",
		"DescricaoOcorrenciaAtendimento", "tipoOcorrenciaId",
	} {
		assert.Contains(t, gotBody, key)
	}
	assert.Equal(t, "null", string(gotBody["DataEntregaRealizada"]))
	assert.Equal(t, "null", string(gotBody["StatusEntregaId"]))
	assert.Equal(t, `"cliente avisado"`, string(gotBody["Observacao"]))
	assert.Equal(t, "1", string(gotBody["tipoOcorrenciaId"]))
}

func TestCreateAgenda(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/agenda", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	})

	req := consignment.AgendaRequest{CtrcID: 7, TipoAgendaID: 4, DataAgenda: "2026-09-15"}
	require.NoError(t, client.CreateAgenda(context.Background(), req))
	assert.Equal(t, float64(7), gotBody["ctrcId"])
	assert.Equal(t, "2026-09-15", gotBody["dataAgenda"])
}

func TestUpstreamErrorStatusSurfacesAsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := client.FetchConsignments(context.Background(), consignment.Period{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	err = client.UpdateConsignment(context.Background(), 1, consignment.UpdatePayload{})
	require.Error(t, err)
}

func TestDecodeSporadicConfigShapes(t *testing.T) {
	object := []byte(`{"clientesExcluidos":[1],"destinatariosExcluidos":["loja centro"]}`)
	cfg, err := decodeSporadicConfig(object)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, cfg.ClientesExcluidos)
	assert.Equal(t, []string{"LOJA CENTRO"}, cfg.DestinatariosExcluidos)

	array := []byte(`[{"unidadesExcluidas":[9]}]`)
	cfg, err = decodeSporadicConfig(array)
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, cfg.UnidadesExcluidas)

	cfg, err = decodeSporadicConfig([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, cfg.ClientesExcluidos)

	cfg, err = decodeSporadicConfig([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, cfg.ClientesExcluidos)
}
