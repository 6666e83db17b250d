package consignment

import (
	"regexp"
	"strings"
	"time"
)

// ============================================================================
// STATUS COLORS
// ============================================================================

const neutralStatusColor = "#94a3b8"

// statusColors is the closed status-name to color table used by the grid.
var statusColors = map[string]string{
	"ENTREGUE NO PRAZO":   "#22c55e",
	"ATRASADA":            "#f97316",
	"ENTREGUE COM ATRASO": "#ef4444",
	"AG. AGENDA":          "#eab308",
	"ENTR. AGENDADA":      "#a855f7",
	"OCORRENCIA":          "#facc15",
	"CANCELADA":           "#6b7280",
	"REAGENDAR":           "#dc2626",
	"NO PRAZO":            "#22c55e",
	"PENDENTE BAIXA":      "#0ea5e9",
	"HOJE":                "#22c55e",
}

// StatusColor resolves the display color for a status label. Unknown labels
// get the neutral gray.
func StatusColor(label string) string {
	if color, ok := statusColors[strings.ToUpper(label)]; ok {
		return color
	}
	return neutralStatusColor
}

// ============================================================================
// COLUMN METADATA
// ============================================================================

// Column describes one grid column to the SPA.
type Column struct {
	Field    string `json:"field"`
	Header   string `json:"headerName"`
	Editable bool   `json:"editable"`
	MinWidth int    `json:"minWidth"`
}

// Columns returns the column set. The client column is present only for
// sporadic-client viewers.
func Columns(sporadic bool) []Column {
	cols := []Column{
		{Field: "ctrc", Header: "CTRC", MinWidth: 130},
		{Field: "dataEmissao", Header: "Emissão", MinWidth: 130},
	}
	if sporadic {
		cols = append(cols, Column{Field: "cliente", Header: "Cliente", MinWidth: 220})
	}
	cols = append(cols,
		Column{Field: "destinatario", Header: "Destinatário", MinWidth: 220},
		Column{Field: "cidadeEntrega", Header: "Cidade Entrega", MinWidth: 180},
		Column{Field: "uf", Header: "UF", MinWidth: 70},
		Column{Field: "unidade", Header: "UND", MinWidth: 90},
		Column{Field: "numeroNotaFiscal", Header: "NF", MinWidth: 130},
		Column{Field: "ultimaOcorrenciaSistema", Header: "Ocorrência Sistema", MinWidth: 260},
		Column{Field: FieldUltimaDescricaoOcorrencia, Header: "Ocorrência Atendimento", Editable: true, MinWidth: 260},
		Column{Field: "dataPrevistaEntrega", Header: "Lead Time", MinWidth: 130},
		Column{Field: "dataAgenda", Header: "Agenda", MinWidth: 150},
		Column{Field: FieldDataEntregaRealizada, Header: "Data Entrega", Editable: true, MinWidth: 130},
		Column{Field: FieldStatusEntregaID, Header: "Status", Editable: true, MinWidth: 160},
		Column{Field: FieldObservacao, Header: "Observações", Editable: true, MinWidth: 260},
		Column{Field: "desvioPrazoDias", Header: "Dias Atraso", MinWidth: 110},
		Column{Field: "notasFiscais", Header: "Notas Agrupadas", MinWidth: 180},
	)
	return cols
}

// ============================================================================
// ROW PROJECTION
// ============================================================================

// StatusCell is the rendered status column value.
type StatusCell struct {
	ID    *int64 `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Row is one view record projected onto display cells. Dates are
// pre-rendered in the fixed pt-BR format.
type Row struct {
	ID                                   int64      `json:"id"`
	Ctrc                                 string     `json:"ctrc"`
	DataEmissao                          string     `json:"dataEmissao"`
	Cliente                              string     `json:"cliente,omitempty"`
	Destinatario                         string     `json:"destinatario"`
	CidadeEntrega                        string     `json:"cidadeEntrega"`
	UF                                   string     `json:"uf"`
	Unidade                              string     `json:"unidade"`
	NumeroNotaFiscal                     string     `json:"numeroNotaFiscal"`
	UltimaOcorrenciaSistema              string     `json:"ultimaOcorrenciaSistema"`
	UltimaDescricaoOcorrenciaAtendimento string     `json:"ultimaDescricaoOcorrenciaAtendimento"`
	DataPrevistaEntrega                  string     `json:"dataPrevistaEntrega"`
	DataAgenda                           string     `json:"dataAgenda"`
	DataEntregaRealizada                 string     `json:"dataEntregaRealizada"`
	Status                               StatusCell `json:"status"`
	Observacao                           string     `json:"observacao"`
	DesvioPrazoDias                      *int       `json:"desvioPrazoDias"`
	NotasFiscais                         string     `json:"notasFiscais"`
}

// BuildRows projects view records onto rows. The client cell is populated
// only for sporadic viewers.
func BuildRows(view []Consignment, statusesByID map[int64]string, sporadic bool) []Row {
	rows := make([]Row, 0, len(view))
	for _, c := range view {
		row := Row{
			ID:                                   c.ID,
			Ctrc:                                 c.Ctrc,
			DataEmissao:                          FormatDate(c.DataEmissao),
			Destinatario:                         deref(c.Destinatario),
			CidadeEntrega:                        deref(c.CidadeEntrega),
			UF:                                   deref(c.UF),
			Unidade:                              deref(c.Unidade),
			NumeroNotaFiscal:                     deref(c.NumeroNotaFiscal),
			UltimaOcorrenciaSistema:              deref(c.UltimaOcorrenciaSistema),
			UltimaDescricaoOcorrenciaAtendimento: deref(c.UltimaDescricaoOcorrenciaAtendimento),
			DataPrevistaEntrega:                  FormatDate(c.DataPrevistaEntrega),
			DataAgenda:                           FormatPlainDate(c.DataAgenda),
			DataEntregaRealizada:                 FormatDate(c.DataEntregaRealizada),
			Observacao:                           deref(c.Observacao),
			DesvioPrazoDias:                      c.DesvioPrazoDias,
			NotasFiscais:                         deref(c.NotasFiscais),
		}
		if sporadic {
			row.Cliente = deref(c.Cliente)
		}
		row.Status = statusCell(c.StatusEntregaID, statusesByID)
		rows = append(rows, row)
	}
	return rows
}

func statusCell(id *int64, statusesByID map[int64]string) StatusCell {
	if id == nil {
		return StatusCell{Color: neutralStatusColor}
	}
	label := statusesByID[*id]
	return StatusCell{ID: id, Label: label, Color: StatusColor(label)}
}

// FormatDate renders an instant as DD/MM/YYYY in UTC. Nil renders empty.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(DisplayDateLayout)
}

var plainDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// FormatPlainDate renders an upstream date string as DD/MM/YYYY. A pure
// YYYY-MM-DD value is split and reassembled without constructing a time so
// timezone interpretation can never shift it by a day. Instants fall back to
// UTC formatting; anything else renders verbatim.
func FormatPlainDate(value *string) string {
	if value == nil || *value == "" {
		return ""
	}
	v := *value
	if plainDatePattern.MatchString(v) {
		parts := strings.SplitN(v, "-", 3)
		return parts[2] + "/" + parts[1] + "/" + parts[0]
	}
	if parsed, err := time.Parse(time.RFC3339, v); err == nil {
		return parsed.UTC().Format(DisplayDateLayout)
	}
	return v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
