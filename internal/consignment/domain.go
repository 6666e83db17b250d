package consignment

import (
	"time"
)

// DateLayout is the wire format for plain dates exchanged with the upstream
// freight service (query parameters and agenda dates).
const DateLayout = "2006-01-02"

// DisplayDateLayout is the fixed pt-BR rendering used by the grid.
const DisplayDateLayout = "02/01/2006"

// ============================================================================
// CONSIGNMENT ENTITY
// ============================================================================

// Consignment is one freight waybill (CTRC) tracked by the console. Identity
// is the upstream id; every other field may be absent.
type Consignment struct {
	ID                                   int64      `json:"id"`
	Ctrc                                 string     `json:"ctrc"`
	DataEmissao                          *time.Time `json:"dataEmissao,omitempty"`
	Cliente                              *string    `json:"cliente,omitempty"`
	Destinatario                         *string    `json:"destinatario,omitempty"`
	CidadeEntrega                        *string    `json:"cidadeEntrega,omitempty"`
	UF                                   *string    `json:"uf,omitempty"`
	Unidade                              *string    `json:"unidade,omitempty"`
	NumeroNotaFiscal                     *string    `json:"numeroNotaFiscal,omitempty"`
	UltimaOcorrenciaSistema              *string    `json:"ultimaOcorrenciaSistema,omitempty"`
	UltimaDescricaoOcorrenciaAtendimento *string    `json:"ultimaDescricaoOcorrenciaAtendimento,omitempty"`
	DataPrevistaEntrega                  *time.Time `json:"dataPrevistaEntrega,omitempty"`
	DataAgenda                           *string    `json:"dataAgenda,omitempty"`
	TipoAgendaID                         *int64     `json:"tipoAgendaId,omitempty"`
	DataEntregaRealizada                 *time.Time `json:"dataEntregaRealizada,omitempty"`
	Observacao                           *string    `json:"observacao,omitempty"`
	DesvioPrazoDias                      *int       `json:"desvioPrazoDias,omitempty"`
	StatusEntregaID                      *int64     `json:"statusEntregaId,omitempty"`
	NotasFiscais                         *string    `json:"notasFiscais,omitempty"`
}

// StatusEntry is one lookup vocabulary item (delivery status or agenda type).
type StatusEntry struct {
	ID   int64  `json:"id"`
	Nome string `json:"nome"`
}

// Period is the inclusive date range a grid load covers.
type Period struct {
	DataInicio time.Time `json:"dataInicio"`
	DataFim    time.Time `json:"dataFim"`
}

// DefaultPeriod returns the range used on first load: the last 60 days up to
// and including today.
func DefaultPeriod(now time.Time) Period {
	end := now
	return Period{DataInicio: end.AddDate(0, 0, -60), DataFim: end}
}

// IsZero reports whether the period was never set.
func (p Period) IsZero() bool {
	return p.DataInicio.IsZero() && p.DataFim.IsZero()
}

// ============================================================================
// LOOKUP VOCABULARY
// ============================================================================

// FallbackStatuses is the built-in delivery status vocabulary used whenever
// the upstream lookup list comes back empty.
func FallbackStatuses() []StatusEntry {
	return []StatusEntry{
		{ID: 1, Nome: "ENTREGUE NO PRAZO"},
		{ID: 2, Nome: "ATRASADA"},
		{ID: 3, Nome: "ENTREGUE COM ATRASO"},
		{ID: 4, Nome: "AG. AGENDA"},
		{ID: 5, Nome: "HOJE"},
		{ID: 6, Nome: "OCORRENCIA"},
		{ID: 7, Nome: "NO PRAZO"},
		{ID: 8, Nome: "ENTR. AGENDADA"},
		{ID: 9, Nome: "PENDENTE BAIXA"},
		{ID: 10, Nome: "CANCELADA"},
		{ID: 11, Nome: "REAGENDAR"},
	}
}

// ============================================================================
// EDITABLE FIELDS & REMOTE FIELD MAP
// ============================================================================

// Client-side field names accepted by the edit endpoint.
const (
	FieldUltimaDescricaoOcorrencia = "ultimaDescricaoOcorrenciaAtendimento"
	FieldDescricaoOcorrencia       = "descricaoOcorrenciaAtendimento"
	FieldObservacao                = "observacao"
	FieldStatusEntregaID           = "statusEntregaId"
	FieldDataEntregaRealizada      = "dataEntregaRealizada"
)

// Upstream field names carried by the write-back payload.
const (
	RemoteFieldDescricaoOcorrencia  = "DescricaoOcorrenciaAtendimento"
	RemoteFieldObservacao           = "Observacao"
	RemoteFieldStatusEntregaID      = "StatusEntregaId"
	RemoteFieldDataEntregaRealizada = "DataEntregaRealizada"
)

// remoteFieldMap translates grid field names into the names the upstream
// service expects. Both occurrence description variants collapse into the
// same upstream column.
var remoteFieldMap = map[string]string{
	FieldUltimaDescricaoOcorrencia: RemoteFieldDescricaoOcorrencia,
	FieldDescricaoOcorrencia:       RemoteFieldDescricaoOcorrencia,
	FieldObservacao:                RemoteFieldObservacao,
	FieldStatusEntregaID:           RemoteFieldStatusEntregaID,
	FieldDataEntregaRealizada:      RemoteFieldDataEntregaRealizada,
}

// RemoteField resolves a grid field name to its upstream counterpart.
// Unmapped names pass through unchanged.
func RemoteField(field string) string {
	if mapped, ok := remoteFieldMap[field]; ok {
		return mapped
	}
	return field
}

// Editable reports whether the grid accepts inline edits for the field.
func Editable(field string) bool {
	switch field {
	case FieldUltimaDescricaoOcorrencia, FieldDescricaoOcorrencia,
		FieldObservacao, FieldStatusEntregaID, FieldDataEntregaRealizada:
		return true
	default:
		return false
	}
}
