package consignment

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is the quiet window after the last edit before a flush.
const DefaultDebounce = 2 * time.Second

// tipoOcorrenciaAtendimento is the occurrence-type sentinel attached to any
// patch that carries a non-empty attendance description.
const tipoOcorrenciaAtendimento int64 = 1

// UpdatePayload is the autosave body sent upstream, one per dirty record.
// All five fields are always serialized; absent values go out as null.
type UpdatePayload struct {
	DataEntregaRealizada           *string `json:"DataEntregaRealizada"`
	StatusEntregaID                *int64  `json:"StatusEntregaId"`
	Observacao                     *string `json:"Observacao"`
	DescricaoOcorrenciaAtendimento *string `json:"DescricaoOcorrenciaAtendimento"`
	TipoOcorrenciaID               *int64  `json:"tipoOcorrenciaId"`
}

// Updater issues the per-record upstream write.
type Updater interface {
	UpdateConsignment(ctx context.Context, id int64, payload UpdatePayload) error
}

// FlushObserver counts flush outcomes. Implementations must be safe for
// concurrent use.
type FlushObserver interface {
	RecordFlushed()
	RecordFlushFailed()
}

// Tracker accumulates field-level edits per record identity and writes them
// back on a trailing debounce. Edits apply to the working set immediately;
// the upstream write is fire-and-forget: failures are logged and counted but
// never retried and never surfaced to the editor.
//
// Lifecycle per cycle: idle (empty buffer, no timer), accumulating (buffer
// populated, timer restarting on every edit), flushing (buffer swapped out,
// requests in flight). Edits arriving mid-flush open a fresh cycle; an
// in-flight flush is never cancelled, so two cycles can overlap when the
// debounce window is shorter than upstream latency. Accepted, see DESIGN.md.
type Tracker struct {
	store    *Store
	updater  Updater
	logger   *slog.Logger
	observer FlushObserver
	debounce time.Duration

	mu     sync.Mutex
	buffer map[int64]map[string]any
	timer  *time.Timer

	inflight sync.WaitGroup
}

// NewTracker constructs an idle tracker. observer may be nil.
func NewTracker(store *Store, updater Updater, logger *slog.Logger, debounce time.Duration, observer FlushObserver) *Tracker {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Tracker{
		store:    store,
		updater:  updater,
		logger:   logger,
		observer: observer,
		debounce: debounce,
		buffer:   make(map[int64]map[string]any),
	}
}

// OnEdit records one cell edit: the raw value is coerced per field
// semantics, applied to the working set synchronously, and merged into the
// record's pending patch under the upstream field name. The debounce timer
// restarts. Unknown records are ignored.
func (t *Tracker) OnEdit(id int64, field string, raw any) bool {
	value := CoerceFieldValue(field, raw)

	applied := t.store.Apply(id, func(c *Consignment) {
		applyField(c, field, value)
	})
	if !applied {
		if t.logger != nil {
			t.logger.Warn("edit for unknown record dropped", slog.Int64("id", id), slog.String("field", field))
		}
		return false
	}

	remoteField := RemoteField(field)

	t.mu.Lock()
	entry, ok := t.buffer[id]
	if !ok {
		entry = make(map[string]any)
		t.buffer[id] = entry
	}
	entry[remoteField] = value

	if t.timer == nil {
		t.timer = time.AfterFunc(t.debounce, t.flushExpired)
	} else {
		t.timer.Reset(t.debounce)
	}
	t.mu.Unlock()
	return true
}

// Pending returns the number of records with unflushed patches.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buffer)
}

// PendingPatch returns a copy of the accumulated patch for a record.
func (t *Tracker) PendingPatch(id int64) (map[string]any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.buffer[id]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(entry))
	for k, v := range entry {
		out[k] = v
	}
	return out, true
}

// Flush forces an immediate flush of the current buffer and waits for every
// in-flight write to settle. Used on shutdown to drain pending edits.
func (t *Tracker) Flush(ctx context.Context) {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	batch := t.buffer
	t.buffer = make(map[int64]map[string]any)
	t.mu.Unlock()

	t.flush(ctx, batch)
	t.inflight.Wait()
}

// flushExpired runs on the debounce timer goroutine.
func (t *Tracker) flushExpired() {
	t.mu.Lock()
	t.timer = nil
	batch := t.buffer
	t.buffer = make(map[int64]map[string]any)
	t.mu.Unlock()

	t.inflight.Add(1)
	defer t.inflight.Done()
	t.flush(context.Background(), batch)
}

// flush issues one write per dirty identity. Requests are independent: the
// failure of one never affects the others, and every buffer entry is dropped
// regardless of outcome.
func (t *Tracker) flush(ctx context.Context, batch map[int64]map[string]any) {
	if len(batch) == 0 {
		return
	}
	for id, patch := range batch {
		payload := buildUpdatePayload(patch)
		if err := t.updater.UpdateConsignment(ctx, id, payload); err != nil {
			if t.logger != nil {
				t.logger.Error("write-back failed, edit dropped",
					slog.Int64("id", id), slog.Any("error", err))
			}
			if t.observer != nil {
				t.observer.RecordFlushFailed()
			}
			continue
		}
		if t.observer != nil {
			t.observer.RecordFlushed()
		}
	}
}

// buildUpdatePayload maps an accumulated patch onto the fixed autosave
// shape. The occurrence-type sentinel is set exactly when the attendance
// description is non-empty.
func buildUpdatePayload(patch map[string]any) UpdatePayload {
	var payload UpdatePayload

	if v, ok := patch[RemoteFieldDataEntregaRealizada]; ok {
		if instant, ok := v.(time.Time); ok {
			iso := instant.UTC().Format(time.RFC3339)
			payload.DataEntregaRealizada = &iso
		}
	}
	if v, ok := patch[RemoteFieldStatusEntregaID]; ok {
		if id, ok := v.(int64); ok {
			payload.StatusEntregaID = &id
		}
	}
	if v, ok := patch[RemoteFieldObservacao]; ok {
		if s, ok := v.(string); ok {
			payload.Observacao = &s
		}
	}
	if v, ok := patch[RemoteFieldDescricaoOcorrencia]; ok {
		if s, ok := v.(string); ok {
			payload.DescricaoOcorrenciaAtendimento = &s
			if s != "" {
				tipo := tipoOcorrenciaAtendimento
				payload.TipoOcorrenciaID = &tipo
			}
		}
	}
	return payload
}

// ============================================================================
// FIELD COERCION
// ============================================================================

var (
	brDatePattern  = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// CoerceFieldValue normalizes a raw edit value per field semantics. Status
// ids coerce to integers, delivery dates to UTC instants; unparseable input
// coerces to nil instead of being rejected. Text fields pass through.
func CoerceFieldValue(field string, raw any) any {
	switch field {
	case FieldStatusEntregaID:
		return coerceStatusID(raw)
	case FieldDataEntregaRealizada:
		return coerceDeliveryDate(raw)
	default:
		if raw == nil {
			return nil
		}
		if s, ok := raw.(string); ok {
			return s
		}
		return nil
	}
}

func coerceStatusID(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		if parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return parsed
		}
		return nil
	default:
		return nil
	}
}

func coerceDeliveryDate(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case time.Time:
		return v.UTC()
	case string:
		v = strings.TrimSpace(v)
		switch {
		case brDatePattern.MatchString(v):
			if parsed, err := time.Parse(DisplayDateLayout, v); err == nil {
				return parsed.UTC()
			}
		case isoDatePattern.MatchString(v):
			if parsed, err := time.Parse(DateLayout, v); err == nil {
				return parsed.UTC()
			}
		default:
			if parsed, err := time.Parse(time.RFC3339, v); err == nil {
				return parsed.UTC()
			}
		}
		return nil
	default:
		return nil
	}
}

// applyField writes a coerced value onto the matching record field.
func applyField(c *Consignment, field string, value any) {
	switch field {
	case FieldUltimaDescricaoOcorrencia, FieldDescricaoOcorrencia:
		c.UltimaDescricaoOcorrenciaAtendimento = asStringPtr(value)
	case FieldObservacao:
		c.Observacao = asStringPtr(value)
	case FieldStatusEntregaID:
		if id, ok := value.(int64); ok {
			c.StatusEntregaID = &id
		} else {
			c.StatusEntregaID = nil
		}
	case FieldDataEntregaRealizada:
		if instant, ok := value.(time.Time); ok {
			c.DataEntregaRealizada = &instant
		} else {
			c.DataEntregaRealizada = nil
		}
	}
}

func asStringPtr(value any) *string {
	if s, ok := value.(string); ok {
		return &s
	}
	return nil
}
