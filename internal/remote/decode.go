package remote

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/freteops/freteops/internal/consignment"
)

// flexTime decodes the handful of timestamp shapes the upstream emits:
// RFC3339 instants, zone-less instants and plain dates. Anything else
// decodes to nil rather than failing the whole grid load.
type flexTime struct {
	t *time.Time
}

var flexTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range flexTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			utc := parsed.UTC()
			f.t = &utc
			return nil
		}
	}
	return nil
}

// flexString decodes values the upstream serializes inconsistently as either
// strings or numbers (invoice numbers, grouped invoice lists).
type flexString struct {
	s *string
}

func (f *flexString) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		if raw != "" {
			f.s = &raw
		}
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		s := num.String()
		f.s = &s
		return nil
	}
	return nil
}

// consignmentWire mirrors one upstream grid row. The client name arrives
// under several possibly-present keys; canonical() collapses them.
type consignmentWire struct {
	ID                                   int64      `json:"id"`
	Ctrc                                 string     `json:"ctrc"`
	DataEmissao                          flexTime   `json:"dataEmissao"`
	ClienteNome                          *string    `json:"clienteNome"`
	Cliente                              *string    `json:"cliente"`
	NomeCliente                          *string    `json:"nomeCliente"`
	RazaoSocialCliente                   *string    `json:"razaoSocialCliente"`
	Destinatario                         *string    `json:"destinatario"`
	CidadeEntrega                        *string    `json:"cidadeEntrega"`
	UF                                   *string    `json:"uf"`
	Unidade                              *string    `json:"unidade"`
	NumeroNotaFiscal                     flexString `json:"numeroNotaFiscal"`
	UltimaOcorrenciaSistema              *string    `json:"ultimaOcorrenciaSistema"`
	UltimaDescricaoOcorrenciaAtendimento *string    `json:"ultimaDescricaoOcorrenciaAtendimento"`
	DataPrevistaEntrega                  flexTime   `json:"dataPrevistaEntrega"`
	DataAgenda                           *string    `json:"dataAgenda"`
	TipoAgendaID                         *int64     `json:"tipoAgendaId"`
	DataEntregaRealizada                 flexTime   `json:"dataEntregaRealizada"`
	Observacao                           *string    `json:"observacao"`
	DesvioPrazoDias                      *int       `json:"desvioPrazoDias"`
	StatusEntregaID                      flexID     `json:"statusEntregaId"`
	NotasFiscais                         flexString `json:"notasFiscais"`
}

// flexID tolerates numeric identifiers serialized as strings.
type flexID struct {
	id *int64
}

func (f *flexID) UnmarshalJSON(data []byte) error {
	var num int64
	if err := json.Unmarshal(data, &num); err == nil {
		f.id = &num
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			f.id = &parsed
		}
	}
	return nil
}

func (w consignmentWire) canonical() consignment.Consignment {
	return consignment.Consignment{
		ID:                                   w.ID,
		Ctrc:                                 w.Ctrc,
		DataEmissao:                          w.DataEmissao.t,
		Cliente:                              w.clientName(),
		Destinatario:                         w.Destinatario,
		CidadeEntrega:                        w.CidadeEntrega,
		UF:                                   w.UF,
		Unidade:                              w.Unidade,
		NumeroNotaFiscal:                     w.NumeroNotaFiscal.s,
		UltimaOcorrenciaSistema:              w.UltimaOcorrenciaSistema,
		UltimaDescricaoOcorrenciaAtendimento: w.UltimaDescricaoOcorrenciaAtendimento,
		DataPrevistaEntrega:                  w.DataPrevistaEntrega.t,
		DataAgenda:                           w.DataAgenda,
		TipoAgendaID:                         w.TipoAgendaID,
		DataEntregaRealizada:                 w.DataEntregaRealizada.t,
		Observacao:                           w.Observacao,
		DesvioPrazoDias:                      w.DesvioPrazoDias,
		StatusEntregaID:                      w.StatusEntregaID.id,
		NotasFiscais:                         w.NotasFiscais.s,
	}
}

// clientName picks the first populated client alias.
func (w consignmentWire) clientName() *string {
	for _, candidate := range []*string{w.ClienteNome, w.Cliente, w.NomeCliente, w.RazaoSocialCliente} {
		if candidate != nil && *candidate != "" {
			return candidate
		}
	}
	return nil
}
