package consignment

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
)

// Session keys used for filter persistence and the dashboard handoff. The
// values live for the current browsing session only.
const (
	SessionKeyFilters = "grid:filters"
	SessionKeyHandoff = "panel:handoff"
)

// KV is the per-session key-value store the filter engine persists state
// in. The shared session satisfies it.
type KV interface {
	Get(key string) string
	Set(key, value string)
	Delete(key string)
}

// FilterSpec names the active criteria. Each slice is either empty (no
// constraint) or a set of accepted values. Ctrc is the allow-list form: when
// populated it suppresses every direct criterion.
type FilterSpec struct {
	Ctrc         []string `json:"ctrc,omitempty"`
	Und          []string `json:"und,omitempty"`
	Status       []string `json:"status,omitempty"`
	Cliente      []string `json:"cliente,omitempty"`
	Destinatario []string `json:"destinatario,omitempty"`
	NF           []string `json:"nf,omitempty"`
	UF           []string `json:"uf,omitempty"`
}

// IsEmpty reports whether no criterion is populated.
func (f FilterSpec) IsEmpty() bool {
	return len(f.Ctrc) == 0 && len(f.Und) == 0 && len(f.Status) == 0 &&
		len(f.Cliente) == 0 && len(f.Destinatario) == 0 &&
		len(f.NF) == 0 && len(f.UF) == 0
}

// IsAllowList reports whether the carrier-number allow-list form is active.
func (f FilterSpec) IsAllowList() bool {
	return len(f.Ctrc) > 0
}

// Matches reports whether a record passes the specification. A populated
// criterion passes when the record's coerced field value is a member of the
// accepted set; an empty criterion always passes; criteria combine with AND.
func (f FilterSpec) Matches(r Consignment) bool {
	if f.IsAllowList() {
		return member(f.Ctrc, r.Ctrc)
	}
	if len(f.Und) > 0 && !memberPtr(f.Und, r.Unidade) {
		return false
	}
	if len(f.Status) > 0 {
		if r.StatusEntregaID == nil || !member(f.Status, strconv.FormatInt(*r.StatusEntregaID, 10)) {
			return false
		}
	}
	if len(f.Cliente) > 0 && !memberPtr(f.Cliente, r.Cliente) {
		return false
	}
	if len(f.Destinatario) > 0 && !memberPtr(f.Destinatario, r.Destinatario) {
		return false
	}
	if len(f.NF) > 0 && !memberPtr(f.NF, r.NumeroNotaFiscal) {
		return false
	}
	if len(f.UF) > 0 && !memberPtr(f.UF, r.UF) {
		return false
	}
	return true
}

func member(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}

func memberPtr(set []string, value *string) bool {
	if value == nil {
		return false
	}
	return member(set, *value)
}

// ============================================================================
// FILTER ENGINE
// ============================================================================

// Engine derives the filtered view from the store's working set. The view
// is recomputed whenever the working set or the active specification
// changes; it is always a subset of the working set in load order.
type Engine struct {
	store  *Store
	logger *slog.Logger

	mu     sync.RWMutex
	active FilterSpec
	view   []Consignment
}

// NewEngine constructs the engine and subscribes it to working-set changes.
func NewEngine(store *Store, logger *slog.Logger) *Engine {
	e := &Engine{store: store, logger: logger}
	store.OnChange(e.Recompute)
	return e
}

// Apply replaces the active specification, persists it for the session and
// recomputes the view. Applying the same specification twice yields an
// identical view.
func (e *Engine) Apply(sess KV, spec FilterSpec) {
	e.mu.Lock()
	e.active = spec
	e.mu.Unlock()

	if sess != nil {
		if data, err := json.Marshal(spec); err == nil {
			sess.Set(SessionKeyFilters, string(data))
		}
	}
	e.Recompute()
}

// Clear drops the active specification and its persisted copy.
func (e *Engine) Clear(sess KV) {
	e.mu.Lock()
	e.active = FilterSpec{}
	e.mu.Unlock()

	if sess != nil {
		sess.Delete(SessionKeyFilters)
	}
	e.Recompute()
}

// Restore re-applies the specification persisted in the session, if any.
func (e *Engine) Restore(sess KV) {
	if sess == nil {
		return
	}
	raw := sess.Get(SessionKeyFilters)
	if raw == "" {
		e.mu.Lock()
		e.active = FilterSpec{}
		e.mu.Unlock()
		e.Recompute()
		return
	}
	var spec FilterSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		if e.logger != nil {
			e.logger.Warn("discarding unreadable persisted filters", slog.Any("error", err))
		}
		sess.Delete(SessionKeyFilters)
		spec = FilterSpec{}
	}
	e.mu.Lock()
	e.active = spec
	e.mu.Unlock()
	e.Recompute()
}

// ConsumeHandoff activates the dashboard allow-list stored in the session,
// if present. The stored value is a JSON array of carrier numbers and is
// consumed at most once: it is deleted on read. The allow-list overrides any
// persisted direct criteria without disturbing their stored copy. Reports
// whether a handoff was applied.
func (e *Engine) ConsumeHandoff(sess KV) bool {
	if sess == nil {
		return false
	}
	raw := sess.Get(SessionKeyHandoff)
	if raw == "" {
		return false
	}
	sess.Delete(SessionKeyHandoff)

	var ctrcs []string
	if err := json.Unmarshal([]byte(raw), &ctrcs); err != nil || len(ctrcs) == 0 {
		if err != nil && e.logger != nil {
			e.logger.Warn("discarding unreadable dashboard handoff", slog.Any("error", err))
		}
		return false
	}

	e.mu.Lock()
	e.active = FilterSpec{Ctrc: ctrcs}
	e.mu.Unlock()
	e.Recompute()
	return true
}

// Recompute rebuilds the view from the current working set and active
// specification. With no active criteria the view equals the working set.
func (e *Engine) Recompute() {
	records := e.store.Snapshot()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active.IsEmpty() {
		e.view = records
		return
	}
	view := make([]Consignment, 0, len(records))
	for _, r := range records {
		if e.active.Matches(r) {
			view = append(view, r)
		}
	}
	e.view = view
}

// View returns a copy of the derived view.
func (e *Engine) View() []Consignment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Consignment, len(e.view))
	copy(out, e.view)
	return out
}

// Active returns the specification currently in force.
func (e *Engine) Active() FilterSpec {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}
