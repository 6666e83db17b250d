package consignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// ErrAgendaIncomplete rejects a schedule save missing its type or date. No
// upstream request is issued and no local state changes.
var ErrAgendaIncomplete = errors.New("agenda type and date are required")

// AgendaRequest creates or replaces the schedule sub-entity of one record.
type AgendaRequest struct {
	CtrcID       int64  `json:"ctrcId" validate:"required,gt=0"`
	TipoAgendaID int64  `json:"tipoAgendaId" validate:"required,gt=0"`
	DataAgenda   string `json:"dataAgenda" validate:"required,datetime=2006-01-02"`
}

// AgendaClient is the upstream schedule write path.
type AgendaClient interface {
	CreateAgenda(ctx context.Context, req AgendaRequest) error
	FetchAgendaTypes(ctx context.Context) ([]StatusEntry, error)
}

// AgendaService handles the schedule attachment path. Unlike cell edits this
// path is synchronous: the upstream write happens before the local merge,
// and a failure leaves local state untouched so the editor can retry.
type AgendaService struct {
	store    *Store
	client   AgendaClient
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAgendaService constructs the service.
func NewAgendaService(store *Store, client AgendaClient, logger *slog.Logger) *AgendaService {
	return &AgendaService{
		store:    store,
		client:   client,
		validate: validator.New(),
		logger:   logger,
	}
}

// Save validates and writes the schedule upstream, then merges the echoed
// date and type into the working set directly, bypassing the dirty buffer.
func (s *AgendaService) Save(ctx context.Context, req AgendaRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrAgendaIncomplete, err)
	}

	if err := s.client.CreateAgenda(ctx, req); err != nil {
		return fmt.Errorf("save agenda: %w", err)
	}

	merged := s.store.Apply(req.CtrcID, func(c *Consignment) {
		date := req.DataAgenda
		tipo := req.TipoAgendaID
		c.DataAgenda = &date
		c.TipoAgendaID = &tipo
	})
	if !merged && s.logger != nil {
		s.logger.Warn("agenda saved for record outside working set", slog.Int64("ctrcId", req.CtrcID))
	}
	return nil
}

// Types returns the schedule-type vocabulary.
func (s *AgendaService) Types(ctx context.Context) ([]StatusEntry, error) {
	return s.client.FetchAgendaTypes(ctx)
}
