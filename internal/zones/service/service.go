// Package service manages zones and the collection centers inside them.
package service

import (
	"context"
	"errors"
	"log/slog"

	"recensement/internal/models"
	"recensement/internal/platform/metrics"
	"recensement/internal/policy"
	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
	"recensement/pkg/platform/sentinel"
	"recensement/pkg/requestcontext"
)

type ZoneStore interface {
	CreateZone(ctx context.Context, zone *models.Zone) error
	FindZoneByID(ctx context.Context, zoneID id.ZoneID) (*models.Zone, error)
	ListZones(ctx context.Context) ([]*models.Zone, error)
	DeleteZone(ctx context.Context, zoneID id.ZoneID) error
	CreateCenter(ctx context.Context, center *models.Center) error
	ListCentersByZone(ctx context.Context, zoneID id.ZoneID) ([]*models.Center, error)
	DeleteCenter(ctx context.Context, centerID id.CenterID) error
}

type Service struct {
	store   ZoneStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store ZoneStore, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateZone adds a zone. A nil objective means the zone has no target.
func (s *Service) CreateZone(ctx context.Context, caller models.Identity, name string, objective *int) (*models.Zone, error) {
	if err := authorize(caller, policy.ActionZoneCreate); err != nil {
		return nil, err
	}
	zone, err := models.NewZone(name, objective, requestcontext.Now(ctx))
	if err != nil {
		return nil, asValidation(err)
	}
	if err := s.store.CreateZone(ctx, zone); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "zone already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create zone")
	}

	s.logEvent(ctx, "zone_created",
		"zone_id", zone.ID.String(),
		"actor_id", caller.ID.String(),
	)
	if s.metrics != nil {
		s.metrics.IncrementZonesCreated()
	}
	return zone, nil
}

// ListZones returns zones ordered by name.
func (s *Service) ListZones(ctx context.Context, caller models.Identity) ([]*models.Zone, error) {
	if err := authorize(caller, policy.ActionZoneList); err != nil {
		return nil, err
	}
	zones, err := s.store.ListZones(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list zones")
	}
	return zones, nil
}

func (s *Service) GetZone(ctx context.Context, caller models.Identity, zoneID id.ZoneID) (*models.Zone, error) {
	if err := authorize(caller, policy.ActionZoneList); err != nil {
		return nil, err
	}
	zone, err := s.store.FindZoneByID(ctx, zoneID)
	if err != nil {
		return nil, translate(err, "zone not found", "failed to load zone")
	}
	return zone, nil
}

// DeleteZone removes the zone together with its centers. Records in the zone
// survive with their zone and center cleared.
func (s *Service) DeleteZone(ctx context.Context, caller models.Identity, zoneID id.ZoneID) error {
	if err := authorize(caller, policy.ActionZoneDelete); err != nil {
		return err
	}
	if err := s.store.DeleteZone(ctx, zoneID); err != nil {
		return translate(err, "zone not found", "failed to delete zone")
	}
	s.logEvent(ctx, "zone_deleted",
		"zone_id", zoneID.String(),
		"actor_id", caller.ID.String(),
	)
	return nil
}

// CreateCenter adds a center to an existing zone. The code is optional.
func (s *Service) CreateCenter(ctx context.Context, caller models.Identity, zoneID id.ZoneID, name, code string) (*models.Center, error) {
	if err := authorize(caller, policy.ActionCenterCreate); err != nil {
		return nil, err
	}
	center, err := models.NewCenter(zoneID, name, code, requestcontext.Now(ctx))
	if err != nil {
		return nil, asValidation(err)
	}
	if err := s.store.CreateCenter(ctx, center); err != nil {
		return nil, translate(err, "zone not found", "failed to create center")
	}

	s.logEvent(ctx, "center_created",
		"center_id", center.ID.String(),
		"zone_id", zoneID.String(),
		"actor_id", caller.ID.String(),
	)
	if s.metrics != nil {
		s.metrics.IncrementCentersCreated()
	}
	return center, nil
}

// ListCenters returns the centers of a zone. An unknown zone has none.
func (s *Service) ListCenters(ctx context.Context, caller models.Identity, zoneID id.ZoneID) ([]*models.Center, error) {
	if err := authorize(caller, policy.ActionCenterList); err != nil {
		return nil, err
	}
	centers, err := s.store.ListCentersByZone(ctx, zoneID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list centers")
	}
	return centers, nil
}

func (s *Service) DeleteCenter(ctx context.Context, caller models.Identity, centerID id.CenterID) error {
	if err := authorize(caller, policy.ActionCenterDelete); err != nil {
		return err
	}
	if err := s.store.DeleteCenter(ctx, centerID); err != nil {
		return translate(err, "center not found", "failed to delete center")
	}
	s.logEvent(ctx, "center_deleted",
		"center_id", centerID.String(),
		"actor_id", caller.ID.String(),
	)
	return nil
}

func authorize(caller models.Identity, action policy.Action) error {
	if err := caller.Validate(); err != nil {
		return err
	}
	return policy.Authorize(caller.Role, action)
}

func asValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return err
}

func translate(err error, notFound, internal string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFound)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internal)
}

func (s *Service) logEvent(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event)
	s.logger.InfoContext(ctx, event, args...)
}
