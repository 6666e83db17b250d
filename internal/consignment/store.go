package consignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrFetch wraps any failure to load the working set or lookups from the
// upstream service. Callers surface it as a retryable condition; prior
// state is always left intact.
var ErrFetch = errors.New("upstream fetch failed")

// Fetcher loads grid data from the upstream freight service.
type Fetcher interface {
	FetchConsignments(ctx context.Context, period Period) ([]Consignment, error)
	FetchLookups(ctx context.Context) ([]StatusEntry, error)
}

// Store owns the working set and the lookup vocabulary. Both are replaced
// atomically by Load and mutated field-by-field by the write-back tracker
// and the agenda merge path.
type Store struct {
	fetcher Fetcher
	logger  *slog.Logger
	clock   func() time.Time

	mu           sync.RWMutex
	records      []Consignment
	index        map[int64]int
	statuses     []StatusEntry
	statusesByID map[int64]string
	unidades     []string
	period       Period

	listenerMu sync.Mutex
	listeners  []func()
}

// NewStore constructs an empty store.
func NewStore(fetcher Fetcher, logger *slog.Logger) *Store {
	return &Store{
		fetcher:      fetcher,
		logger:       logger,
		index:        make(map[int64]int),
		statusesByID: make(map[int64]string),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// OnChange registers a listener invoked after every working-set mutation
// (load, optimistic edit, agenda merge). Listeners run synchronously on the
// mutating goroutine and must not call back into the store's write paths.
func (s *Store) OnChange(fn func()) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify() {
	s.listenerMu.Lock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.listenerMu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Load fetches the working set and lookup vocabulary for the period and
// swaps both in atomically. A zero period defaults to the last 60 days.
// On any failure the previous state is left untouched.
//
// Concurrent Loads are permitted: whichever call completes last wins the
// whole working set, even if it was not the last one initiated. A stricter
// generation-token scheme was considered and rejected; see DESIGN.md.
func (s *Store) Load(ctx context.Context, period Period) error {
	if period.IsZero() {
		period = DefaultPeriod(s.clock())
	}

	var (
		records  []Consignment
		statuses []StatusEntry
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		records, err = s.fetcher.FetchConsignments(groupCtx, period)
		return err
	})
	group.Go(func() error {
		var err error
		statuses, err = s.fetcher.FetchLookups(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}

	if len(statuses) == 0 {
		statuses = FallbackStatuses()
	}
	byID := make(map[int64]string, len(statuses))
	for _, st := range statuses {
		byID[st.ID] = st.Nome
	}

	s.mu.Lock()
	s.records = records
	s.index = make(map[int64]int, len(records))
	for i := range records {
		s.index[records[i].ID] = i
	}
	s.statuses = statuses
	s.statusesByID = byID
	s.unidades = distinctUnits(records)
	s.period = period
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("working set loaded",
			slog.Int("records", len(records)),
			slog.String("dataInicio", period.DataInicio.Format(DateLayout)),
			slog.String("dataFim", period.DataFim.Format(DateLayout)))
	}

	s.notify()
	return nil
}

// Snapshot returns a copy of the working set in load order.
func (s *Store) Snapshot() []Consignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Consignment, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns the record with the given identity.
func (s *Store) Get(id int64) (Consignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Consignment{}, false
	}
	return s.records[i], true
}

// Apply mutates the record with the given identity in place and notifies
// listeners. It reports whether the record was found.
func (s *Store) Apply(id int64, mutate func(*Consignment)) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if ok {
		mutate(&s.records[i])
	}
	s.mu.Unlock()
	if ok {
		s.notify()
	}
	return ok
}

// Statuses returns the active vocabulary.
func (s *Store) Statuses() []StatusEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StatusEntry, len(s.statuses))
	copy(out, s.statuses)
	return out
}

// StatusName resolves a status id against the active vocabulary.
func (s *Store) StatusName(id int64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusesByID[id]
}

// StatusesByID returns a copy of the id to name map.
func (s *Store) StatusesByID() map[int64]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]string, len(s.statusesByID))
	for k, v := range s.statusesByID {
		out[k] = v
	}
	return out
}

// Unidades returns the distinct branch codes present in the working set,
// collated for pt-BR.
func (s *Store) Unidades() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.unidades))
	copy(out, s.unidades)
	return out
}

// Period returns the range covered by the last successful load.
func (s *Store) Period() Period {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.period
}

// Len returns the working set size.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var ptBR = collate.New(language.BrazilianPortuguese)

func distinctUnits(records []Consignment) []string {
	seen := make(map[string]struct{})
	units := make([]string, 0)
	for _, r := range records {
		if r.Unidade == nil || *r.Unidade == "" {
			continue
		}
		if _, ok := seen[*r.Unidade]; ok {
			continue
		}
		seen[*r.Unidade] = struct{}{}
		units = append(units, *r.Unidade)
	}
	ptBR.SortStrings(units)
	return units
}
