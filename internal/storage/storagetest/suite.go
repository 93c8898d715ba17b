// Package storagetest holds the behavioral suite every storage.Store
// implementation must pass.
package storagetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/suite"

	"recensement/internal/models"
	"recensement/internal/storage"
	id "recensement/pkg/domain"
	"recensement/pkg/platform/sentinel"
)

// StoreSuite runs against a fresh, empty store for every test method.
type StoreSuite struct {
	suite.Suite

	// NewStore returns an empty store. It is called from SetupTest.
	NewStore func() storage.Store

	store storage.Store
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	s.Require().NotNil(s.NewStore, "NewStore must be set")
	s.store = s.NewStore()
	s.ctx = context.Background()
}

func (s *StoreSuite) createUser(username string, role id.Role) *models.User {
	u, err := models.NewUser(username, "", role, "hash", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateUser(s.ctx, u))
	return u
}

func (s *StoreSuite) createZone(name string, objective *int) *models.Zone {
	z, err := models.NewZone(name, objective, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateZone(s.ctx, z))
	return z
}

func (s *StoreSuite) createCenter(zoneID id.ZoneID, name string) *models.Center {
	c, err := models.NewCenter(zoneID, name, "", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateCenter(s.ctx, c))
	return c
}

func (s *StoreSuite) createRecord(agentID id.UserID, zoneID id.ZoneID, centerID id.CenterID, at time.Time) *models.Record {
	r, err := models.NewRecord(agentID, zoneID, centerID, json.RawMessage(`{"household":3}`), at)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateRecord(s.ctx, r))
	return r
}

func (s *StoreSuite) TestUsers() {
	s.Run("assigns increasing ids and finds by id and username", func() {
		first := s.createUser("amina", id.RoleAgent)
		second := s.createUser("moussa", id.RoleSupervisor)
		s.Greater(int64(second.ID), int64(first.ID))

		byID, err := s.store.FindUserByID(s.ctx, first.ID)
		s.Require().NoError(err)
		s.Equal("amina", byID.Username)
		s.True(byID.IsActive)

		byName, err := s.store.FindUserByUsername(s.ctx, "moussa")
		s.Require().NoError(err)
		s.Equal(second.ID, byName.ID)
		s.Equal(id.RoleSupervisor, byName.Role)
	})

	s.Run("rejects a duplicate username", func() {
		u, err := models.NewUser("amina", "", id.RoleAgent, "hash", time.Now())
		s.Require().NoError(err)
		s.ErrorIs(s.store.CreateUser(s.ctx, u), sentinel.ErrAlreadyUsed)
	})

	s.Run("lists newest first", func() {
		users, err := s.store.ListUsers(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(users, 2)
		s.Equal("moussa", users[0].Username)
		s.Equal("amina", users[1].Username)
	})

	s.Run("returns ErrNotFound for unknown users", func() {
		_, err := s.store.FindUserByID(s.ctx, id.UserID(9999))
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindUserByUsername(s.ctx, "nobody")
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.ErrorIs(s.store.DeleteUser(s.ctx, id.UserID(9999)), sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestExecuteUser() {
	u := s.createUser("awa", id.RoleAgent)

	s.Run("validate error leaves the user untouched", func() {
		blocked := errors.New("blocked")
		_, err := s.store.ExecuteUser(s.ctx, u.ID, func(*models.User) error { return blocked }, func(m *models.User) { m.Deactivate() })
		s.ErrorIs(err, blocked)

		found, err := s.store.FindUserByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.True(found.IsActive)
	})

	s.Run("mutate is persisted", func() {
		updated, err := s.store.ExecuteUser(s.ctx, u.ID, nil, func(m *models.User) { m.Deactivate() })
		s.Require().NoError(err)
		s.False(updated.IsActive)

		found, err := s.store.FindUserByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.False(found.IsActive)
	})

	s.Run("unknown user", func() {
		_, err := s.store.ExecuteUser(s.ctx, id.UserID(9999), nil, func(*models.User) {})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestDeleteUserNullifiesRecordReferences() {
	agent := s.createUser("agent", id.RoleAgent)
	supervisor := s.createUser("chef", id.RoleSupervisor)
	zone := s.createZone("Nord", nil)
	rec := s.createRecord(agent.ID, zone.ID, 0, time.Now())
	_, err := s.store.ExecuteRecord(s.ctx, rec.ID, nil, func(r *models.Record) {
		r.ApplyDecision(models.DecisionApprove, supervisor.ID, time.Now())
	})
	s.Require().NoError(err)

	s.Require().NoError(s.store.DeleteUser(s.ctx, agent.ID))
	s.Require().NoError(s.store.DeleteUser(s.ctx, supervisor.ID))

	found, err := s.store.FindRecordByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.True(found.AgentID.IsNil())
	s.True(found.SupervisorID.IsNil())
	s.Equal(zone.ID, found.ZoneID)
	s.Equal(models.RecordStatusApproved, found.Status)

	_, err = s.store.FindUserByUsername(s.ctx, "agent")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestZonesAndCenters() {
	objective := 4
	north := s.createZone("North", &objective)
	s.createZone("East", nil)

	s.Run("rejects a duplicate zone name", func() {
		z, err := models.NewZone("North", nil, time.Now())
		s.Require().NoError(err)
		s.ErrorIs(s.store.CreateZone(s.ctx, z), sentinel.ErrAlreadyUsed)
	})

	s.Run("lists zones by name and keeps the objective", func() {
		zones, err := s.store.ListZones(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(zones, 2)
		s.Equal("East", zones[0].Name)
		s.Nil(zones[0].Objective)
		s.Equal("North", zones[1].Name)
		s.Require().NotNil(zones[1].Objective)
		s.Equal(4, *zones[1].Objective)
	})

	s.Run("center requires an existing zone", func() {
		c, err := models.NewCenter(id.ZoneID(9999), "Orphan", "", time.Now())
		s.Require().NoError(err)
		s.ErrorIs(s.store.CreateCenter(s.ctx, c), sentinel.ErrNotFound)
	})

	s.Run("lists centers of one zone by name", func() {
		s.createCenter(north.ID, "School B")
		s.createCenter(north.ID, "School A")

		centers, err := s.store.ListCentersByZone(s.ctx, north.ID)
		s.Require().NoError(err)
		s.Require().Len(centers, 2)
		s.Equal("School A", centers[0].Name)
		s.Equal("School B", centers[1].Name)

		empty, err := s.store.ListCentersByZone(s.ctx, id.ZoneID(9999))
		s.Require().NoError(err)
		s.Empty(empty)
	})

	s.Run("unknown ids", func() {
		_, err := s.store.FindZoneByID(s.ctx, id.ZoneID(9999))
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindCenterByID(s.ctx, id.CenterID(9999))
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.ErrorIs(s.store.DeleteZone(s.ctx, id.ZoneID(9999)), sentinel.ErrNotFound)
		s.ErrorIs(s.store.DeleteCenter(s.ctx, id.CenterID(9999)), sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestDeleteZoneCascadesCentersAndNullifiesRecords() {
	agent := s.createUser("agent", id.RoleAgent)
	zone := s.createZone("Z", nil)
	other := s.createZone("Other", nil)
	c1 := s.createCenter(zone.ID, "C1")
	c2 := s.createCenter(zone.ID, "C2")
	kept := s.createCenter(other.ID, "Kept")

	r1 := s.createRecord(agent.ID, zone.ID, c1.ID, time.Now())
	r2 := s.createRecord(agent.ID, zone.ID, c2.ID, time.Now())
	r3 := s.createRecord(agent.ID, other.ID, kept.ID, time.Now())

	s.Require().NoError(s.store.DeleteZone(s.ctx, zone.ID))

	_, err := s.store.FindZoneByID(s.ctx, zone.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindCenterByID(s.ctx, c1.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindCenterByID(s.ctx, c2.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	for _, recID := range []id.RecordID{r1.ID, r2.ID} {
		found, err := s.store.FindRecordByID(s.ctx, recID)
		s.Require().NoError(err)
		s.True(found.ZoneID.IsNil())
		s.True(found.CenterID.IsNil())
		s.Equal(agent.ID, found.AgentID)
	}

	untouched, err := s.store.FindRecordByID(s.ctx, r3.ID)
	s.Require().NoError(err)
	s.Equal(other.ID, untouched.ZoneID)
	s.Equal(kept.ID, untouched.CenterID)

	// name is free again
	s.createZone("Z", nil)
}

func (s *StoreSuite) TestDeleteCenterNullifiesRecords() {
	agent := s.createUser("agent", id.RoleAgent)
	zone := s.createZone("Z", nil)
	center := s.createCenter(zone.ID, "C")
	rec := s.createRecord(agent.ID, zone.ID, center.ID, time.Now())

	s.Require().NoError(s.store.DeleteCenter(s.ctx, center.ID))

	found, err := s.store.FindRecordByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.True(found.CenterID.IsNil())
	s.Equal(zone.ID, found.ZoneID)
}

func (s *StoreSuite) TestRecords() {
	agent := s.createUser("agent", id.RoleAgent)
	zone := s.createZone("Z", nil)
	other := s.createZone("Other", nil)
	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Millisecond)

	older := s.createRecord(agent.ID, zone.ID, 0, base)
	newer := s.createRecord(agent.ID, zone.ID, 0, base.Add(time.Minute))
	elsewhere := s.createRecord(agent.ID, other.ID, 0, base.Add(2*time.Minute))

	s.Run("round trips payload and status", func() {
		found, err := s.store.FindRecordByID(s.ctx, older.ID)
		s.Require().NoError(err)
		s.Equal(models.RecordStatusPending, found.Status)
		s.JSONEq(`{"household":3}`, string(found.Payload))
		s.True(found.SupervisorID.IsNil())
		s.True(found.CenterID.IsNil())
	})

	s.Run("lists most recently updated first", func() {
		all, err := s.store.ListRecords(s.ctx, storage.RecordFilter{})
		s.Require().NoError(err)
		s.Require().Len(all, 3)
		s.Equal(elsewhere.ID, all[0].ID)
		s.Equal(newer.ID, all[1].ID)
		s.Equal(older.ID, all[2].ID)
	})

	s.Run("filters by zone", func() {
		inZone, err := s.store.ListRecords(s.ctx, storage.RecordFilter{ZoneID: zone.ID})
		s.Require().NoError(err)
		s.Require().Len(inZone, 2)
		s.Equal(newer.ID, inZone[0].ID)
	})

	s.Run("applies the limit", func() {
		limited, err := s.store.ListRecords(s.ctx, storage.RecordFilter{Limit: 1})
		s.Require().NoError(err)
		s.Len(limited, 1)
	})

	s.Run("a mutation moves the record to the front", func() {
		_, err := s.store.ExecuteRecord(s.ctx, older.ID, nil, func(r *models.Record) {
			r.ApplyDecision(models.DecisionReject, agent.ID, time.Now())
		})
		s.Require().NoError(err)

		all, err := s.store.ListRecords(s.ctx, storage.RecordFilter{})
		s.Require().NoError(err)
		s.Equal(older.ID, all[0].ID)
		s.Equal(models.RecordStatusRejected, all[0].Status)
	})

	s.Run("rejects references that do not resolve", func() {
		for _, r := range []*models.Record{
			{AgentID: agent.ID, ZoneID: id.ZoneID(9999)},
			{AgentID: agent.ID, CenterID: id.CenterID(9999)},
			{AgentID: id.UserID(9999)},
		} {
			r.Status = models.RecordStatusPending
			r.Payload = json.RawMessage(`{}`)
			r.CreatedAt, r.UpdatedAt = base, base
			s.ErrorIs(s.store.CreateRecord(s.ctx, r), sentinel.ErrNotFound)
		}
	})

	s.Run("unknown record", func() {
		_, err := s.store.FindRecordByID(s.ctx, id.RecordID(9999))
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.ExecuteRecord(s.ctx, id.RecordID(9999), nil, func(*models.Record) {})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestExecuteRecordRefreshesUpdatedAt() {
	agent := s.createUser("agent", id.RoleAgent)
	created := time.Now().Add(-time.Hour).UTC().Truncate(time.Millisecond)
	rec := s.createRecord(agent.ID, 0, 0, created)

	s.Run("validate error writes nothing", func() {
		blocked := errors.New("blocked")
		_, err := s.store.ExecuteRecord(s.ctx, rec.ID, func(*models.Record) error { return blocked }, func(r *models.Record) {
			r.Status = models.RecordStatusApproved
		})
		s.ErrorIs(err, blocked)

		found, err := s.store.FindRecordByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(models.RecordStatusPending, found.Status)
	})

	s.Run("updated_at moves even when mutate leaves it alone", func() {
		updated, err := s.store.ExecuteRecord(s.ctx, rec.ID, nil, func(r *models.Record) {
			r.Status = models.RecordStatusApproved
		})
		s.Require().NoError(err)
		s.True(updated.UpdatedAt.After(created))
		s.WithinDuration(created, updated.CreatedAt, time.Millisecond)
	})
}

func (s *StoreSuite) TestConcurrentDuplicateUsernameHasOneWinner() {
	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := models.NewUser("twin", "", id.RoleAgent, "hash", time.Now())
			if err != nil {
				return
			}
			err = s.store.CreateUser(s.ctx, u)
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrAlreadyUsed) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *StoreSuite) TestConcurrentDecisionsSerialize() {
	agent := s.createUser("agent", id.RoleAgent)
	rec := s.createRecord(agent.ID, 0, 0, time.Now())

	const goroutines = 20
	var wg sync.WaitGroup
	var firstDecisions atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.ExecuteRecord(s.ctx, rec.ID, func(r *models.Record) error {
				if r.Status.IsDecided() {
					return fmt.Errorf("already decided")
				}
				return nil
			}, func(r *models.Record) {
				r.ApplyDecision(models.DecisionApprove, agent.ID, time.Now())
			})
			if err == nil {
				firstDecisions.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), firstDecisions.Load(), "validate must observe the previous mutation")
}

func (s *StoreSuite) TestCountRecordsByZone() {
	agent := s.createUser("agent", id.RoleAgent)
	zone := s.createZone("North", nil)
	for i := 0; i < 3; i++ {
		rec := s.createRecord(agent.ID, zone.ID, 0, time.Now())
		if i == 0 {
			_, err := s.store.ExecuteRecord(s.ctx, rec.ID, nil, func(r *models.Record) {
				r.ApplyDecision(models.DecisionApprove, agent.ID, time.Now())
			})
			s.Require().NoError(err)
		}
	}
	s.createRecord(agent.ID, 0, 0, time.Now())

	total, approved, err := s.store.CountRecordsByZone(s.ctx, zone.ID)
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Equal(1, approved)

	total, approved, err = s.store.CountRecordsByZone(s.ctx, id.ZoneID(9999))
	s.Require().NoError(err)
	s.Zero(total)
	s.Zero(approved)

	// Records without a zone never count toward the nil zone.
	total, approved, err = s.store.CountRecordsByZone(s.ctx, 0)
	s.Require().NoError(err)
	s.Zero(total)
	s.Zero(approved)
}
