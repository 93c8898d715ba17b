// Package storage holds the entity store contract shared by the in-memory and
// PostgreSQL implementations.
//
// Stores are pure I/O: they assign IDs, enforce uniqueness, and apply the
// cascade (zone → centers) and nullify (records → zone, center, users) rules
// atomically with a delete. Domain rules belong to the services.
//
// Records may only reference rows that exist at write time. Errors are
// infrastructure sentinels from pkg/platform/sentinel:
//   - sentinel.ErrNotFound when an ID or a reference does not resolve
//   - sentinel.ErrAlreadyUsed on a username or zone name collision
package storage

import (
	"context"
	"time"

	"recensement/internal/models"
	id "recensement/pkg/domain"
)

// RecordPageSize bounds every record listing.
const RecordPageSize = 200

// RecordFilter narrows ListRecords. A nil ZoneID lists every zone.
type RecordFilter struct {
	ZoneID id.ZoneID
	Limit  int
}

// EffectiveLimit clamps Limit into (0, RecordPageSize].
func (f RecordFilter) EffectiveLimit() int {
	if f.Limit <= 0 || f.Limit > RecordPageSize {
		return RecordPageSize
	}
	return f.Limit
}

// TouchRecord guarantees that a mutation moves UpdatedAt forward even when the
// mutate callback did not set it.
func TouchRecord(r *models.Record, before time.Time, now time.Time) {
	if r.UpdatedAt.After(before) {
		return
	}
	if !now.After(before) {
		now = before.Add(time.Microsecond)
	}
	r.UpdatedAt = now
}

// Store is the full entity store surface. Services depend on narrower views of it.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	ExecuteUser(ctx context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error)
	DeleteUser(ctx context.Context, userID id.UserID) error

	CreateZone(ctx context.Context, zone *models.Zone) error
	FindZoneByID(ctx context.Context, zoneID id.ZoneID) (*models.Zone, error)
	ListZones(ctx context.Context) ([]*models.Zone, error)
	DeleteZone(ctx context.Context, zoneID id.ZoneID) error

	CreateCenter(ctx context.Context, center *models.Center) error
	FindCenterByID(ctx context.Context, centerID id.CenterID) (*models.Center, error)
	ListCentersByZone(ctx context.Context, zoneID id.ZoneID) ([]*models.Center, error)
	DeleteCenter(ctx context.Context, centerID id.CenterID) error

	CreateRecord(ctx context.Context, record *models.Record) error
	FindRecordByID(ctx context.Context, recordID id.RecordID) (*models.Record, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]*models.Record, error)
	ExecuteRecord(ctx context.Context, recordID id.RecordID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error)
	CountRecordsByZone(ctx context.Context, zoneID id.ZoneID) (total int, approved int, err error)
}
