// Package service computes per-zone progression against objectives.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"recensement/internal/models"
	"recensement/internal/policy"
	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
	"recensement/pkg/platform/sentinel"
)

type Store interface {
	FindZoneByID(ctx context.Context, zoneID id.ZoneID) (*models.Zone, error)
	CountRecordsByZone(ctx context.Context, zoneID id.ZoneID) (total int, approved int, err error)
}

type Service struct {
	store  Store
	logger *slog.Logger
	tracer trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, tracer: otel.Tracer("recensement/stats")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ZoneStats counts the zone's records and approvals. An unknown zone is not an
// error: it reports zero counts with no objective and no progression.
func (s *Service) ZoneStats(ctx context.Context, caller models.Identity, zoneID id.ZoneID) (models.ZoneStats, error) {
	ctx, span := s.tracer.Start(ctx, "stats.ZoneStats", trace.WithAttributes(
		attribute.Int64("zone.id", int64(zoneID)),
	))
	defer span.End()

	stats, err := s.zoneStats(ctx, caller, zoneID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return models.ZoneStats{}, err
	}
	span.SetAttributes(
		attribute.Int("stats.total", stats.Total),
		attribute.Int("stats.approved", stats.Approved),
	)
	return stats, nil
}

func (s *Service) zoneStats(ctx context.Context, caller models.Identity, zoneID id.ZoneID) (models.ZoneStats, error) {
	if err := caller.Validate(); err != nil {
		return models.ZoneStats{}, err
	}
	if err := policy.Authorize(caller.Role, policy.ActionZoneStats); err != nil {
		return models.ZoneStats{}, err
	}

	var objective *int
	zone, err := s.store.FindZoneByID(ctx, zoneID)
	switch {
	case err == nil:
		objective = zone.Objective
	case errors.Is(err, sentinel.ErrNotFound):
		if s.logger != nil {
			s.logger.DebugContext(ctx, "stats requested for unknown zone", "zone_id", zoneID.String())
		}
	default:
		return models.ZoneStats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load zone")
	}

	total, approved, err := s.store.CountRecordsByZone(ctx, zoneID)
	if err != nil {
		return models.ZoneStats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count records")
	}
	return models.NewZoneStats(zoneID, total, approved, objective), nil
}
