// Package service implements the record workflow: submission by any
// authenticated caller and a single approve/reject decision by a supervisor
// or admin.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"recensement/internal/models"
	"recensement/internal/platform/metrics"
	"recensement/internal/policy"
	"recensement/internal/storage"
	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
	"recensement/pkg/platform/sentinel"
	"recensement/pkg/requestcontext"
)

// FlagLockDecided, when enabled, refuses to overwrite an approved or rejected
// record. Off by default: a later decision replaces the earlier one.
const FlagLockDecided = "records.lock_decided"

type RecordStore interface {
	CreateRecord(ctx context.Context, record *models.Record) error
	FindRecordByID(ctx context.Context, recordID id.RecordID) (*models.Record, error)
	ListRecords(ctx context.Context, filter storage.RecordFilter) ([]*models.Record, error)
	ExecuteRecord(ctx context.Context, recordID id.RecordID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error)
}

type FlagReader interface {
	Bool(ctx context.Context, name string, def bool) bool
}

type Service struct {
	records RecordStore
	flags   FlagReader
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
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

func WithFlags(flags FlagReader) Option {
	return func(s *Service) {
		s.flags = flags
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(records RecordStore, opts ...Option) *Service {
	s := &Service{
		records: records,
		tracer:  otel.Tracer("recensement/records"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRecord stores a pending record owned by the caller. zoneID and
// centerID are optional; the store rejects ones that do not exist.
func (s *Service) CreateRecord(ctx context.Context, caller models.Identity, zoneID id.ZoneID, centerID id.CenterID, payload json.RawMessage) (*models.Record, error) {
	if err := s.authorize(caller, policy.ActionRecordCreate); err != nil {
		return nil, err
	}

	rec, err := models.NewRecord(caller.ID, zoneID, centerID, payload, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.records.CreateRecord(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "zone, center or agent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create record")
	}

	s.logEvent(ctx, "record_created",
		"record_id", rec.ID.String(),
		"agent_id", caller.ID.String(),
		"zone_id", zoneID.String(),
	)
	if s.metrics != nil {
		s.metrics.IncrementRecordsCreated()
	}
	return rec, nil
}

// ListRecords returns at most storage.RecordPageSize records, most recently
// updated first. A nil zoneID lists every zone.
func (s *Service) ListRecords(ctx context.Context, caller models.Identity, zoneID id.ZoneID) ([]*models.Record, error) {
	if err := s.authorize(caller, policy.ActionRecordList); err != nil {
		return nil, err
	}
	records, err := s.records.ListRecords(ctx, storage.RecordFilter{ZoneID: zoneID, Limit: storage.RecordPageSize})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list records")
	}
	return records, nil
}

func (s *Service) GetRecord(ctx context.Context, caller models.Identity, recordID id.RecordID) (*models.Record, error) {
	if err := s.authorize(caller, policy.ActionRecordRead); err != nil {
		return nil, err
	}
	rec, err := s.records.FindRecordByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load record")
	}
	return rec, nil
}

// DecideRecord applies an approve or reject decision and records the caller as
// supervisor. The read-check-write runs under the store's per-record lock.
func (s *Service) DecideRecord(ctx context.Context, caller models.Identity, recordID id.RecordID, decision models.Decision) (*models.Record, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "records.DecideRecord", trace.WithAttributes(
		attribute.Int64("record.id", int64(recordID)),
		attribute.String("record.decision", decision.String()),
		attribute.String("caller.role", caller.Role.String()),
	))
	defer span.End()

	rec, err := s.decide(ctx, caller, recordID, decision)
	if s.metrics != nil {
		s.metrics.ObserveDecide(start)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	return rec, nil
}

func (s *Service) decide(ctx context.Context, caller models.Identity, recordID id.RecordID, decision models.Decision) (*models.Record, error) {
	if err := s.authorize(caller, policy.ActionRecordDecide); err != nil {
		return nil, err
	}
	if !decision.Status().IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "decision must be approve or reject")
	}

	lockDecided := false
	if s.flags != nil {
		lockDecided = s.flags.Bool(ctx, FlagLockDecided, false)
	}
	now := requestcontext.Now(ctx)

	var (
		previous models.RecordStatus
		found    bool
	)
	rec, err := s.records.ExecuteRecord(ctx, recordID,
		func(r *models.Record) error {
			found = true
			previous = r.Status
			return r.CanDecide(lockDecided)
		},
		func(r *models.Record) {
			r.ApplyDecision(decision, caller.ID, now)
		},
	)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound) && found:
			// The record exists, so the missing reference is the deciding user.
			return nil, dErrors.New(dErrors.CodeUnauthorized, "caller account no longer exists")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
		case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
			return nil, dErrors.New(dErrors.CodeConflict, "record already decided")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decide record")
	}

	s.logEvent(ctx, "record_decided",
		"record_id", rec.ID.String(),
		"decision", decision.String(),
		"previous_status", previous.String(),
		"supervisor_id", caller.ID.String(),
	)
	if s.metrics != nil {
		s.metrics.IncrementRecordDecision(decision.String())
	}
	return rec, nil
}

// authorize checks the caller is a resolved identity and allowed the action.
func (s *Service) authorize(caller models.Identity, action policy.Action) error {
	if err := caller.Validate(); err != nil {
		return err
	}
	return policy.Authorize(caller.Role, action)
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
