package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// StalledConsignment is one waybill held at the hub (GRU) or at a branch,
// with no recipient attached.
type StalledConsignment struct {
	ID               int64      `json:"id"`
	CtrcID           int64      `json:"ctrcId"`
	Numero           flexString `json:"numero"`
	Data             flexTime   `json:"data"`
	ClienteID        int64      `json:"clienteId"`
	UnidadeID        int64      `json:"unidadeId"`
	NumeroNotaFiscal flexString `json:"numeroNotaFiscal"`
	Cliente          string     `json:"cliente"`
	Descricao        string     `json:"descricao"`
	Quantidade       int        `json:"quantidade"`
}

// DelayedConsignment is an already-late waybill.
type DelayedConsignment struct {
	Numero                      string     `json:"numero"`
	Destinatario                string     `json:"destinatario"`
	NumeroNotaFiscal            flexString `json:"numeroNotaFiscal"`
	CidadeDestino               string     `json:"cidadeDestino"`
	EstadoDestino               string     `json:"estadoDestino"`
	Cliente                     string     `json:"cliente"`
	UnidadeID                   int64      `json:"unidadeId"`
	ClienteID                   int64      `json:"clienteId"`
	DiasAtraso                  int        `json:"diasAtraso"`
	UltimaOcorrenciaAtendimento *string    `json:"ultimaOcorrenciaAtendimento"`
}

// AtRiskConsignment is a waybill projected to miss its promised date.
type AtRiskConsignment struct {
	Numero           string     `json:"numero"`
	Destinatario     string     `json:"destinatario"`
	NumeroNotaFiscal flexString `json:"numeroNotaFiscal"`
	CidadeDestinoID  int64      `json:"cidadeDestinoId"`
	EstadoDestinoID  int64      `json:"estadoDestinoId"`
	UnidadeID        int64      `json:"unidadeId"`
	ClienteID        int64      `json:"clienteId"`
	Nome             string     `json:"nome"`
}

// PanelAlerts mirrors the upstream painel/avisos envelope.
type PanelAlerts struct {
	CtrcsParadosGRU []StalledConsignment `json:"ctrcsParadosGRU"`
	CtrcsParadosUND []StalledConsignment `json:"ctrcsParadosUND"`
	CtrcsAtrasadas  []DelayedConsignment `json:"ctrcsAtrasadas"`
	CtrcsVaiAtrasar []AtRiskConsignment  `json:"ctrcsVaiAtrasar"`
}

// FetchPanelAlerts loads the anomaly lists for the dashboard.
func (c *Client) FetchPanelAlerts(ctx context.Context) (PanelAlerts, error) {
	var alerts PanelAlerts
	if err := c.getJSON(ctx, "/api/painel/avisos", &alerts); err != nil {
		return PanelAlerts{}, fmt.Errorf("fetch panel alerts: %w", err)
	}
	return alerts, nil
}

// SporadicConfig lists the clients, branches and recipients excluded from a
// sporadic viewer's dashboard.
type SporadicConfig struct {
	ClientesExcluidos      []int64  `json:"clientesExcluidos"`
	UnidadesExcluidas      []int64  `json:"unidadesExcluidas"`
	DestinatariosExcluidos []string `json:"destinatariosExcluidos"`
}

// FetchSporadicConfig loads the exclusion config. The upstream returns
// either a bare object or a single-element array; both are accepted.
func (c *Client) FetchSporadicConfig(ctx context.Context) (SporadicConfig, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/api/configuracoes-esporadico", &raw); err != nil {
		return SporadicConfig{}, fmt.Errorf("fetch sporadic config: %w", err)
	}

	cfg, err := decodeSporadicConfig(raw)
	if err != nil {
		return SporadicConfig{}, fmt.Errorf("fetch sporadic config: %w", err)
	}
	return cfg, nil
}

func decodeSporadicConfig(raw json.RawMessage) (SporadicConfig, error) {
	var cfg SporadicConfig
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return cfg, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []SporadicConfig
		if err := json.Unmarshal(raw, &list); err != nil {
			return cfg, err
		}
		if len(list) > 0 {
			cfg = list[0]
		}
	} else if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	for i, d := range cfg.DestinatariosExcluidos {
		cfg.DestinatariosExcluidos[i] = strings.ToUpper(d)
	}
	return cfg, nil
}
