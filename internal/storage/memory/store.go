// Package memory is the in-process entity store used by tests and by the server
// when no database is configured.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"recensement/internal/models"
	"recensement/internal/storage"
	id "recensement/pkg/domain"
	"recensement/pkg/platform/sentinel"
)

// InMemory keeps every entity behind one lock so that cascades and
// nullification happen atomically with the delete that triggers them.
// Callers always receive copies; the maps are the only mutable state.
type InMemory struct {
	mu sync.RWMutex

	users     map[id.UserID]*models.User
	usernames map[string]id.UserID
	zones     map[id.ZoneID]*models.Zone
	zoneNames map[string]id.ZoneID
	centers   map[id.CenterID]*models.Center
	records   map[id.RecordID]*models.Record

	lastUserID   id.UserID
	lastZoneID   id.ZoneID
	lastCenterID id.CenterID
	lastRecordID id.RecordID

	now func() time.Time
}

var _ storage.Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		users:     make(map[id.UserID]*models.User),
		usernames: make(map[string]id.UserID),
		zones:     make(map[id.ZoneID]*models.Zone),
		zoneNames: make(map[string]id.ZoneID),
		centers:   make(map[id.CenterID]*models.Center),
		records:   make(map[id.RecordID]*models.Record),
		now:       time.Now,
	}
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

func (s *InMemory) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.usernames[user.Username]; taken {
		return sentinel.ErrAlreadyUsed
	}
	s.lastUserID++
	user.ID = s.lastUserID
	stored := *user
	s.users[user.ID] = &stored
	s.usernames[user.Username] = user.ID
	return nil
}

func (s *InMemory) FindUserByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *InMemory) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.usernames[username]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *s.users[userID]
	return &out, nil
}

// ListUsers returns users newest first (id descending).
func (s *InMemory) ListUsers(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ExecuteUser runs validate then mutate on the stored user under the write lock.
// When validate fails nothing is written and its error is returned unchanged.
func (s *InMemory) ExecuteUser(_ context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := *u
	if validate != nil {
		if err := validate(&working); err != nil {
			return nil, err
		}
	}
	mutate(&working)
	working.ID = u.ID
	working.Username = u.Username
	*u = working
	out := working
	return &out, nil
}

// DeleteUser removes the user and clears agent_id/supervisor_id on its records.
func (s *InMemory) DeleteUser(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.usernames, u.Username)
	delete(s.users, userID)
	for _, r := range s.records {
		if r.AgentID == userID {
			r.AgentID = 0
		}
		if r.SupervisorID == userID {
			r.SupervisorID = 0
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Zones and centers
// -----------------------------------------------------------------------------

func (s *InMemory) CreateZone(_ context.Context, zone *models.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.zoneNames[zone.Name]; taken {
		return sentinel.ErrAlreadyUsed
	}
	s.lastZoneID++
	zone.ID = s.lastZoneID
	s.zones[zone.ID] = copyZone(zone)
	s.zoneNames[zone.Name] = zone.ID
	return nil
}

func (s *InMemory) FindZoneByID(_ context.Context, zoneID id.ZoneID) (*models.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.zones[zoneID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyZone(z), nil
}

// ListZones returns zones ordered by name.
func (s *InMemory) ListZones(_ context.Context) ([]*models.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Zone, 0, len(s.zones))
	for _, z := range s.zones {
		out = append(out, copyZone(z))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteZone removes the zone, cascades to its centers, and clears zone_id and
// center_id on records that referenced them.
func (s *InMemory) DeleteZone(_ context.Context, zoneID id.ZoneID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[zoneID]
	if !ok {
		return sentinel.ErrNotFound
	}
	removed := make(map[id.CenterID]bool)
	for cid, c := range s.centers {
		if c.ZoneID == zoneID {
			removed[cid] = true
			delete(s.centers, cid)
		}
	}
	for _, r := range s.records {
		if r.ZoneID == zoneID {
			r.ZoneID = 0
		}
		if removed[r.CenterID] {
			r.CenterID = 0
		}
	}
	delete(s.zoneNames, z.Name)
	delete(s.zones, zoneID)
	return nil
}

// CreateCenter fails with ErrNotFound when the zone does not exist.
func (s *InMemory) CreateCenter(_ context.Context, center *models.Center) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.zones[center.ZoneID]; !ok {
		return sentinel.ErrNotFound
	}
	s.lastCenterID++
	center.ID = s.lastCenterID
	stored := *center
	s.centers[center.ID] = &stored
	return nil
}

func (s *InMemory) FindCenterByID(_ context.Context, centerID id.CenterID) (*models.Center, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.centers[centerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *c
	return &out, nil
}

// ListCentersByZone returns the zone's centers ordered by name.
func (s *InMemory) ListCentersByZone(_ context.Context, zoneID id.ZoneID) ([]*models.Center, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Center, 0)
	for _, c := range s.centers {
		if c.ZoneID == zoneID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// DeleteCenter removes the center and clears center_id on its records.
func (s *InMemory) DeleteCenter(_ context.Context, centerID id.CenterID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.centers[centerID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.centers, centerID)
	for _, r := range s.records {
		if r.CenterID == centerID {
			r.CenterID = 0
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Records
// -----------------------------------------------------------------------------

// CreateRecord fails with ErrNotFound when a non-nil zone, center or agent
// reference does not resolve.
func (s *InMemory) CreateRecord(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.referencesExist(record) {
		return sentinel.ErrNotFound
	}
	s.lastRecordID++
	record.ID = s.lastRecordID
	s.records[record.ID] = copyRecord(record)
	return nil
}

func (s *InMemory) FindRecordByID(_ context.Context, recordID id.RecordID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyRecord(r), nil
}

// ListRecords returns records ordered by updated_at descending, newest ID first
// on ties, bounded by the filter limit.
func (s *InMemory) ListRecords(_ context.Context, filter storage.RecordFilter) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Record, 0)
	for _, r := range s.records {
		if !filter.ZoneID.IsNil() && r.ZoneID != filter.ZoneID {
			continue
		}
		out = append(out, copyRecord(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit := filter.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ExecuteRecord runs validate then mutate on the stored record under the write
// lock, so concurrent decisions on one record serialize. UpdatedAt always moves.
func (s *InMemory) ExecuteRecord(_ context.Context, recordID id.RecordID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := copyRecord(r)
	if validate != nil {
		if err := validate(working); err != nil {
			return nil, err
		}
	}
	before := r.UpdatedAt
	mutate(working)
	working.ID = r.ID
	working.CreatedAt = r.CreatedAt
	if !s.referencesExist(working) {
		return nil, sentinel.ErrNotFound
	}
	storage.TouchRecord(working, before, s.now())
	s.records[recordID] = working
	return copyRecord(working), nil
}

// CountRecordsByZone returns the total and approved record counts for a zone.
// The nil zone matches nothing, as zone_id = 0 never matches NULL in SQL.
func (s *InMemory) CountRecordsByZone(_ context.Context, zoneID id.ZoneID) (total int, approved int, err error) {
	if zoneID.IsNil() {
		return 0, 0, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ZoneID != zoneID {
			continue
		}
		total++
		if r.Status == models.RecordStatusApproved {
			approved++
		}
	}
	return total, approved, nil
}

// referencesExist mirrors the foreign keys of the relational schema.
// Caller must hold the lock.
func (s *InMemory) referencesExist(r *models.Record) bool {
	if !r.ZoneID.IsNil() {
		if _, ok := s.zones[r.ZoneID]; !ok {
			return false
		}
	}
	if !r.CenterID.IsNil() {
		if _, ok := s.centers[r.CenterID]; !ok {
			return false
		}
	}
	for _, userID := range []id.UserID{r.AgentID, r.SupervisorID} {
		if userID.IsNil() {
			continue
		}
		if _, ok := s.users[userID]; !ok {
			return false
		}
	}
	return true
}

func copyZone(z *models.Zone) *models.Zone {
	out := *z
	if z.Objective != nil {
		v := *z.Objective
		out.Objective = &v
	}
	return &out
}

func copyRecord(r *models.Record) *models.Record {
	out := *r
	out.Payload = append(json.RawMessage(nil), r.Payload...)
	return &out
}
