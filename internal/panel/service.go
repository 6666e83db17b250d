package panel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/freteops/freteops/internal/remote"
	"github.com/freteops/freteops/internal/shared"
)

// Source is the upstream read path for the dashboard.
type Source interface {
	FetchPanelAlerts(ctx context.Context) (remote.PanelAlerts, error)
	FetchSporadicConfig(ctx context.Context) (remote.SporadicConfig, error)
}

// Service assembles the dashboard alert lists for a viewer. Raw upstream
// data is cached once and shared; visibility rules run per request.
type Service struct {
	source           Source
	cache            *Cache
	logger           *slog.Logger
	sporadicClientID int64
}

// NewService constructs the panel service.
func NewService(source Source, cache *Cache, logger *slog.Logger, sporadicClientID int64) *Service {
	return &Service{source: source, cache: cache, logger: logger, sporadicClientID: sporadicClientID}
}

// Alerts returns the four anomaly lists scoped to the viewer. A manager sees
// everything; a sporadic viewer sees everything minus the configured
// exclusions; anyone else sees only their own clients.
func (s *Service) Alerts(ctx context.Context, viewer shared.Viewer) (remote.PanelAlerts, error) {
	alerts, err := s.rawAlerts(ctx)
	if err != nil {
		return remote.PanelAlerts{}, err
	}

	if viewer.IsGerente() {
		return alerts, nil
	}

	if viewer.IsSporadic(s.sporadicClientID) {
		cfg, err := s.sporadicConfig(ctx)
		if err != nil {
			return remote.PanelAlerts{}, err
		}
		return remote.PanelAlerts{
			CtrcsParadosGRU: filterStalled(alerts.CtrcsParadosGRU, cfg),
			CtrcsParadosUND: filterStalled(alerts.CtrcsParadosUND, cfg),
			CtrcsAtrasadas:  filterDelayed(alerts.CtrcsAtrasadas, cfg),
			CtrcsVaiAtrasar: filterAtRisk(alerts.CtrcsVaiAtrasar, cfg),
		}, nil
	}

	return remote.PanelAlerts{
		CtrcsParadosGRU: ownStalled(alerts.CtrcsParadosGRU, viewer),
		CtrcsParadosUND: ownStalled(alerts.CtrcsParadosUND, viewer),
		CtrcsAtrasadas:  ownDelayed(alerts.CtrcsAtrasadas, viewer),
		CtrcsVaiAtrasar: ownAtRisk(alerts.CtrcsVaiAtrasar, viewer),
	}, nil
}

// Warm primes the shared cache entries ahead of the first dashboard hit.
func (s *Service) Warm(ctx context.Context) error {
	if _, err := s.rawAlerts(ctx); err != nil {
		return fmt.Errorf("warm panel alerts: %w", err)
	}
	if _, err := s.sporadicConfig(ctx); err != nil {
		return fmt.Errorf("warm sporadic config: %w", err)
	}
	return nil
}

// Invalidate drops every cached panel entry.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) rawAlerts(ctx context.Context) (remote.PanelAlerts, error) {
	key, err := s.cache.BuildKey(ctx, "panel", "avisos")
	if err != nil {
		return remote.PanelAlerts{}, err
	}
	var alerts remote.PanelAlerts
	err = s.cache.FetchJSON(ctx, key, &alerts, func(ctx context.Context) (interface{}, error) {
		return s.source.FetchPanelAlerts(ctx)
	})
	if err != nil {
		return remote.PanelAlerts{}, fmt.Errorf("load panel alerts: %w", err)
	}
	return alerts, nil
}

func (s *Service) sporadicConfig(ctx context.Context) (remote.SporadicConfig, error) {
	key, err := s.cache.BuildKey(ctx, "panel", "sporadic-config")
	if err != nil {
		return remote.SporadicConfig{}, err
	}
	var cfg remote.SporadicConfig
	err = s.cache.FetchJSON(ctx, key, &cfg, func(ctx context.Context) (interface{}, error) {
		return s.source.FetchSporadicConfig(ctx)
	})
	if err != nil {
		return remote.SporadicConfig{}, fmt.Errorf("load sporadic config: %w", err)
	}
	return cfg, nil
}

// Stalled rows carry no recipient, so only the client and branch exclusions
// apply to them.
func filterStalled(list []remote.StalledConsignment, cfg remote.SporadicConfig) []remote.StalledConsignment {
	out := make([]remote.StalledConsignment, 0, len(list))
	for _, r := range list {
		if containsID(cfg.ClientesExcluidos, r.ClienteID) || containsID(cfg.UnidadesExcluidas, r.UnidadeID) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func filterDelayed(list []remote.DelayedConsignment, cfg remote.SporadicConfig) []remote.DelayedConsignment {
	out := make([]remote.DelayedConsignment, 0, len(list))
	for _, r := range list {
		if containsID(cfg.ClientesExcluidos, r.ClienteID) || containsID(cfg.UnidadesExcluidas, r.UnidadeID) {
			continue
		}
		if containsFold(cfg.DestinatariosExcluidos, r.Destinatario) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func filterAtRisk(list []remote.AtRiskConsignment, cfg remote.SporadicConfig) []remote.AtRiskConsignment {
	out := make([]remote.AtRiskConsignment, 0, len(list))
	for _, r := range list {
		if containsID(cfg.ClientesExcluidos, r.ClienteID) || containsID(cfg.UnidadesExcluidas, r.UnidadeID) {
			continue
		}
		if containsFold(cfg.DestinatariosExcluidos, r.Destinatario) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func ownStalled(list []remote.StalledConsignment, viewer shared.Viewer) []remote.StalledConsignment {
	out := make([]remote.StalledConsignment, 0, len(list))
	for _, r := range list {
		if viewer.HasCliente(r.ClienteID) {
			out = append(out, r)
		}
	}
	return out
}

func ownDelayed(list []remote.DelayedConsignment, viewer shared.Viewer) []remote.DelayedConsignment {
	out := make([]remote.DelayedConsignment, 0, len(list))
	for _, r := range list {
		if viewer.HasCliente(r.ClienteID) {
			out = append(out, r)
		}
	}
	return out
}

func ownAtRisk(list []remote.AtRiskConsignment, viewer shared.Viewer) []remote.AtRiskConsignment {
	out := make([]remote.AtRiskConsignment, 0, len(list))
	for _, r := range list {
		if viewer.HasCliente(r.ClienteID) {
			out = append(out, r)
		}
	}
	return out
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// containsFold matches case-insensitively; the exclusion list is stored
// upper-cased on decode.
func containsFold(values []string, v string) bool {
	upper := strings.ToUpper(v)
	for _, candidate := range values {
		if candidate == upper {
			return true
		}
	}
	return false
}
