package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks RecordStore,FlagReader

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"recensement/internal/kv"
	"recensement/internal/models"
	"recensement/internal/platform/metrics"
	"recensement/internal/records/service/mocks"
	"recensement/internal/storage"
	"recensement/internal/storage/memory"
	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
	"recensement/pkg/requestcontext"
)

type RecordServiceSuite struct {
	suite.Suite
	store   *memory.InMemory
	flags   *kv.Flags
	metrics *metrics.Metrics
	service *Service
	ctx     context.Context

	admin      models.Identity
	supervisor models.Identity
	agent      models.Identity
	zone       *models.Zone
}

func TestRecordServiceSuite(t *testing.T) {
	suite.Run(t, new(RecordServiceSuite))
}

func (s *RecordServiceSuite) SetupTest() {
	s.store = memory.NewInMemory()
	s.flags = kv.NewFlags(kv.NewInMemory())
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.store, WithFlags(s.flags), WithMetrics(s.metrics))
	s.ctx = context.Background()

	s.admin = s.seedUser("admin", id.RoleAdmin)
	s.supervisor = s.seedUser("chef", id.RoleSupervisor)
	s.agent = s.seedUser("agent", id.RoleAgent)

	objective := 4
	zone, err := models.NewZone("North", &objective, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateZone(s.ctx, zone))
	s.zone = zone
}

func (s *RecordServiceSuite) seedUser(username string, role id.Role) models.Identity {
	u, err := models.NewUser(username, "", role, "hash", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateUser(s.ctx, u))
	return u.Identity()
}

func (s *RecordServiceSuite) submit() *models.Record {
	rec, err := s.service.CreateRecord(s.ctx, s.agent, s.zone.ID, 0, json.RawMessage(`{"name":"X"}`))
	s.Require().NoError(err)
	return rec
}

// =============================================================================
// CreateRecord
// =============================================================================

func (s *RecordServiceSuite) TestCreateRecord() {
	s.Run("agent submission starts pending and owned by the caller", func() {
		rec := s.submit()
		s.NotZero(rec.ID)
		s.Equal(models.RecordStatusPending, rec.Status)
		s.Equal(s.agent.ID, rec.AgentID)
		s.True(rec.SupervisorID.IsNil())
		s.Equal(s.zone.ID, rec.ZoneID)
		s.JSONEq(`{"name":"X"}`, string(rec.Payload))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.RecordsCreated))
	})

	s.Run("missing payload is stored as an empty object", func() {
		rec, err := s.service.CreateRecord(s.ctx, s.supervisor, 0, 0, nil)
		s.Require().NoError(err)
		s.JSONEq(`{}`, string(rec.Payload))
		s.True(rec.ZoneID.IsNil())
	})

	s.Run("uses the request time", func() {
		at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		rec, err := s.service.CreateRecord(requestcontext.WithTime(s.ctx, at), s.agent, 0, 0, nil)
		s.Require().NoError(err)
		s.Equal(at, rec.CreatedAt)
		s.Equal(at, rec.UpdatedAt)
	})

	s.Run("requires an authenticated identity", func() {
		_, err := s.service.CreateRecord(s.ctx, models.Identity{}, s.zone.ID, 0, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		_, err = s.service.CreateRecord(s.ctx, models.Identity{ID: s.agent.ID, Role: "chief"}, s.zone.ID, 0, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("invalid payload is a validation error", func() {
		_, err := s.service.CreateRecord(s.ctx, s.agent, 0, 0, json.RawMessage(`{"broken"`))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown zone is not found", func() {
		_, err := s.service.CreateRecord(s.ctx, s.agent, id.ZoneID(9999), 0, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// ListRecords / GetRecord
// =============================================================================

func (s *RecordServiceSuite) TestListRecords() {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	other, err := models.NewZone("South", nil, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateZone(s.ctx, other))

	var ids []id.RecordID
	for i, zoneID := range []id.ZoneID{s.zone.ID, other.ID, s.zone.ID} {
		ctx := requestcontext.WithTime(s.ctx, base.Add(time.Duration(i)*time.Minute))
		rec, err := s.service.CreateRecord(ctx, s.agent, zoneID, 0, nil)
		s.Require().NoError(err)
		ids = append(ids, rec.ID)
	}

	s.Run("most recently updated first", func() {
		records, err := s.service.ListRecords(s.ctx, s.agent, 0)
		s.Require().NoError(err)
		s.Require().Len(records, 3)
		s.Equal(ids[2], records[0].ID)
		s.Equal(ids[1], records[1].ID)
		s.Equal(ids[0], records[2].ID)
	})

	s.Run("zone filter", func() {
		records, err := s.service.ListRecords(s.ctx, s.agent, other.ID)
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal(ids[1], records[0].ID)
	})

	s.Run("a decision moves the record to the front", func() {
		ctx := requestcontext.WithTime(s.ctx, base.Add(time.Hour))
		_, err := s.service.DecideRecord(ctx, s.supervisor, ids[0], models.DecisionApprove)
		s.Require().NoError(err)

		records, err := s.service.ListRecords(s.ctx, s.agent, 0)
		s.Require().NoError(err)
		s.Equal(ids[0], records[0].ID)
	})

	s.Run("requires an authenticated identity", func() {
		_, err := s.service.ListRecords(s.ctx, models.Identity{}, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *RecordServiceSuite) TestListRecordsIsBoundedToOnePage() {
	for i := 0; i < storage.RecordPageSize+5; i++ {
		_, err := s.service.CreateRecord(s.ctx, s.agent, s.zone.ID, 0, nil)
		s.Require().NoError(err)
	}
	records, err := s.service.ListRecords(s.ctx, s.admin, 0)
	s.Require().NoError(err)
	s.Len(records, storage.RecordPageSize)
}

func (s *RecordServiceSuite) TestGetRecord() {
	rec := s.submit()

	found, err := s.service.GetRecord(s.ctx, s.agent, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.ID, found.ID)

	_, err = s.service.GetRecord(s.ctx, s.agent, id.RecordID(9999))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// =============================================================================
// DecideRecord
// =============================================================================

func (s *RecordServiceSuite) TestDecideRecord() {
	s.Run("supervisor approves", func() {
		rec := s.submit()
		decided, err := s.service.DecideRecord(s.ctx, s.supervisor, rec.ID, models.DecisionApprove)
		s.Require().NoError(err)
		s.Equal(models.RecordStatusApproved, decided.Status)
		s.Equal(s.supervisor.ID, decided.SupervisorID)
		s.True(decided.UpdatedAt.After(rec.UpdatedAt) || decided.UpdatedAt.Equal(rec.UpdatedAt))

		stored, err := s.store.FindRecordByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(models.RecordStatusApproved, stored.Status)
		s.Equal(s.supervisor.ID, stored.SupervisorID)
	})

	s.Run("admin rejects", func() {
		rec := s.submit()
		decided, err := s.service.DecideRecord(s.ctx, s.admin, rec.ID, models.DecisionReject)
		s.Require().NoError(err)
		s.Equal(models.RecordStatusRejected, decided.Status)
		s.Equal(s.admin.ID, decided.SupervisorID)
	})

	s.Run("agent is forbidden regardless of record state", func() {
		rec := s.submit()
		_, err := s.service.DecideRecord(s.ctx, s.agent, rec.ID, models.DecisionApprove)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		_, err = s.service.DecideRecord(s.ctx, s.agent, id.RecordID(9999), models.DecisionApprove)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		_, err = s.service.DecideRecord(s.ctx, s.agent, rec.ID, models.Decision("maybe"))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		stored, err := s.store.FindRecordByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(models.RecordStatusPending, stored.Status)
	})

	s.Run("unknown record is not found", func() {
		_, err := s.service.DecideRecord(s.ctx, s.supervisor, id.RecordID(9999), models.DecisionApprove)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("invalid decision is a bad request", func() {
		rec := s.submit()
		_, err := s.service.DecideRecord(s.ctx, s.supervisor, rec.ID, models.Decision("maybe"))
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unauthenticated caller", func() {
		rec := s.submit()
		_, err := s.service.DecideRecord(s.ctx, models.Identity{}, rec.ID, models.DecisionApprove)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *RecordServiceSuite) TestDecideByDeletedUserIsUnauthorized() {
	rec := s.submit()
	gone := s.seedUser("former-chef", id.RoleSupervisor)
	s.Require().NoError(s.store.DeleteUser(s.ctx, gone.ID))

	_, err := s.service.DecideRecord(s.ctx, gone, rec.ID, models.DecisionApprove)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.NotContains(err.Error(), "record not found")

	stored, err := s.store.FindRecordByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(models.RecordStatusPending, stored.Status)
	s.True(stored.SupervisorID.IsNil())
}

func (s *RecordServiceSuite) TestRedecisionOverwritesByDefault() {
	rec := s.submit()
	_, err := s.service.DecideRecord(s.ctx, s.supervisor, rec.ID, models.DecisionApprove)
	s.Require().NoError(err)

	decided, err := s.service.DecideRecord(s.ctx, s.admin, rec.ID, models.DecisionReject)
	s.Require().NoError(err)
	s.Equal(models.RecordStatusRejected, decided.Status)
	s.Equal(s.admin.ID, decided.SupervisorID)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.RecordDecisions.WithLabelValues("approve")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RecordDecisions.WithLabelValues("reject")))
}

func (s *RecordServiceSuite) TestLockDecidedFlagRefusesRedecision() {
	s.Require().NoError(s.flags.SetBool(s.ctx, FlagLockDecided, true))

	rec := s.submit()
	_, err := s.service.DecideRecord(s.ctx, s.supervisor, rec.ID, models.DecisionApprove)
	s.Require().NoError(err)

	_, err = s.service.DecideRecord(s.ctx, s.admin, rec.ID, models.DecisionReject)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	stored, err := s.store.FindRecordByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(models.RecordStatusApproved, stored.Status)
	s.Equal(s.supervisor.ID, stored.SupervisorID)
}

func (s *RecordServiceSuite) TestConcurrentDecisionsLastWriteWins() {
	rec := s.submit()
	const goroutines = 20

	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		decision := models.DecisionApprove
		if i%2 == 1 {
			decision = models.DecisionReject
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.DecideRecord(s.ctx, s.supervisor, rec.ID, decision)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}
	stored, err := s.store.FindRecordByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.True(stored.Status.IsDecided())
	s.Equal(s.supervisor.ID, stored.SupervisorID)
}

// =============================================================================
// Store and flag collaborators (mocked)
// =============================================================================

func TestDecideRecordWithMocks(t *testing.T) {
	supervisor := models.Identity{ID: id.UserID(7), Role: id.RoleSupervisor}

	t.Run("store failure is an internal error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockRecordStore(ctrl)
		flags := mocks.NewMockFlagReader(ctrl)
		svc := New(store, WithFlags(flags))

		flags.EXPECT().Bool(gomock.Any(), FlagLockDecided, false).Return(false)
		store.EXPECT().
			ExecuteRecord(gomock.Any(), id.RecordID(1), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("connection reset"))

		_, err := svc.DecideRecord(context.Background(), supervisor, id.RecordID(1), models.DecisionApprove)
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			t.Fatalf("expected internal error, got %v", err)
		}
	})

	t.Run("lock flag is consulted and passed to the transition check", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockRecordStore(ctrl)
		flags := mocks.NewMockFlagReader(ctrl)
		svc := New(store, WithFlags(flags))

		decided := &models.Record{ID: 1, Status: models.RecordStatusApproved}
		flags.EXPECT().Bool(gomock.Any(), FlagLockDecided, false).Return(true)
		store.EXPECT().
			ExecuteRecord(gomock.Any(), id.RecordID(1), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ id.RecordID, validate func(*models.Record) error, _ func(*models.Record)) (*models.Record, error) {
				if err := validate(decided); err != nil {
					return nil, err
				}
				return decided, nil
			})

		_, err := svc.DecideRecord(context.Background(), supervisor, id.RecordID(1), models.DecisionReject)
		if !dErrors.HasCode(err, dErrors.CodeConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("list failure is an internal error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockRecordStore(ctrl)
		svc := New(store)

		store.EXPECT().
			ListRecords(gomock.Any(), storage.RecordFilter{Limit: storage.RecordPageSize}).
			Return(nil, errors.New("timeout"))

		_, err := svc.ListRecords(context.Background(), supervisor, 0)
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			t.Fatalf("expected internal error, got %v", err)
		}
	})
}
