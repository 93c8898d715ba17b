// Package postgres is the PostgreSQL entity store.
//
// Uniqueness, cascades and nullification are enforced by the schema
// (UNIQUE, ON DELETE CASCADE, ON DELETE SET NULL) so each delete is a single
// atomic statement. Read-modify-write operations lock the row with FOR UPDATE.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"recensement/internal/models"
	"recensement/internal/storage"
	id "recensement/pkg/domain"
	"recensement/pkg/platform/sentinel"
	txcontext "recensement/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// Schema returns the DDL applied by Migrate.
func Schema() string { return schema }

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// PostgresStore persists users, zones, centers and records.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.Store = (*PostgresStore)(nil)

func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Migrate applies the embedded schema. Safe to call on every start.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// RunInTx runs fn inside a transaction. Store calls made with the context
// passed to fn join it. A transaction already present in ctx is reused.
// The error returned by fn is passed through unchanged.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, fn)
}

// translate maps constraint violations to store sentinels.
func translate(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return sentinel.ErrAlreadyUsed
		case pqForeignKeyViolation:
			return sentinel.ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

const selectUser = `SELECT id, username, phone, password_hash, role, is_active, created_at FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u     models.User
		rawID int64
		phone sql.NullString
		role  string
	)
	if err := row.Scan(&rawID, &u.Username, &phone, &u.PasswordHash, &role, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := id.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", rawID, err)
	}
	u.ID = id.UserID(rawID)
	u.Phone = phone.String
	u.Role = parsed
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, phone, password_hash, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var rawID int64
	err := s.conn(ctx).QueryRowContext(ctx, query,
		user.Username,
		nullString(user.Phone),
		user.PasswordHash,
		user.Role.String(),
		user.IsActive,
		user.CreatedAt,
	).Scan(&rawID)
	if err != nil {
		return translate(err, "create user")
	}
	user.ID = id.UserID(rawID)
	return nil
}

func (s *PostgresStore) FindUserByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findUser(ctx, selectUser+` WHERE id = $1`, int64(userID))
}

func (s *PostgresStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, selectUser+` WHERE username = $1`, username)
}

func (s *PostgresStore) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	u, err := scanUser(s.conn(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, selectUser+` ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) ExecuteUser(ctx context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error) {
	var out *models.User
	err := s.RunInTx(ctx, func(ctx context.Context) error {
		u, err := scanUser(s.conn(ctx).QueryRowContext(ctx, selectUser+` WHERE id = $1 FOR UPDATE`, int64(userID)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock user: %w", err)
		}
		if validate != nil {
			if err := validate(u); err != nil {
				return err
			}
		}
		mutate(u)
		u.ID = userID

		_, err = s.conn(ctx).ExecContext(ctx, `
			UPDATE users
			SET phone = $2, password_hash = $3, role = $4, is_active = $5
			WHERE id = $1
		`, int64(u.ID), nullString(u.Phone), u.PasswordHash, u.Role.String(), u.IsActive)
		if err != nil {
			return translate(err, "update user")
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUser removes the user; records keep their rows with agent_id and
// supervisor_id set to NULL by the foreign keys.
func (s *PostgresStore) DeleteUser(ctx context.Context, userID id.UserID) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, int64(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectAffected(res, "delete user")
}

// -----------------------------------------------------------------------------
// Zones and centers
// -----------------------------------------------------------------------------

const selectZone = `SELECT id, name, objective, created_at FROM zones`

func scanZone(row rowScanner) (*models.Zone, error) {
	var (
		z         models.Zone
		rawID     int64
		objective sql.NullInt64
	)
	if err := row.Scan(&rawID, &z.Name, &objective, &z.CreatedAt); err != nil {
		return nil, err
	}
	z.ID = id.ZoneID(rawID)
	if objective.Valid {
		v := int(objective.Int64)
		z.Objective = &v
	}
	return &z, nil
}

func (s *PostgresStore) CreateZone(ctx context.Context, zone *models.Zone) error {
	var objective sql.NullInt64
	if zone.Objective != nil {
		objective = sql.NullInt64{Int64: int64(*zone.Objective), Valid: true}
	}
	var rawID int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO zones (name, objective, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, zone.Name, objective, zone.CreatedAt).Scan(&rawID)
	if err != nil {
		return translate(err, "create zone")
	}
	zone.ID = id.ZoneID(rawID)
	return nil
}

func (s *PostgresStore) FindZoneByID(ctx context.Context, zoneID id.ZoneID) (*models.Zone, error) {
	z, err := scanZone(s.conn(ctx).QueryRowContext(ctx, selectZone+` WHERE id = $1`, int64(zoneID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find zone: %w", err)
	}
	return z, nil
}

func (s *PostgresStore) ListZones(ctx context.Context) ([]*models.Zone, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, selectZone+` ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	zones := make([]*models.Zone, 0)
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zones: %w", err)
	}
	return zones, nil
}

// DeleteZone removes the zone. Centers go with it (ON DELETE CASCADE) and the
// records that referenced the zone or those centers keep their rows with the
// references set to NULL, all inside the one DELETE statement.
func (s *PostgresStore) DeleteZone(ctx context.Context, zoneID id.ZoneID) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM zones WHERE id = $1`, int64(zoneID))
	if err != nil {
		return fmt.Errorf("delete zone: %w", err)
	}
	return expectAffected(res, "delete zone")
}

const selectCenter = `SELECT id, zone_id, code, name, created_at FROM centers`

func scanCenter(row rowScanner) (*models.Center, error) {
	var (
		c      models.Center
		rawID  int64
		zoneID int64
		code   sql.NullString
	)
	if err := row.Scan(&rawID, &zoneID, &code, &c.Name, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ID = id.CenterID(rawID)
	c.ZoneID = id.ZoneID(zoneID)
	c.Code = code.String
	return &c, nil
}

func (s *PostgresStore) CreateCenter(ctx context.Context, center *models.Center) error {
	var rawID int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO centers (zone_id, code, name, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, int64(center.ZoneID), nullString(center.Code), center.Name, center.CreatedAt).Scan(&rawID)
	if err != nil {
		return translate(err, "create center")
	}
	center.ID = id.CenterID(rawID)
	return nil
}

func (s *PostgresStore) FindCenterByID(ctx context.Context, centerID id.CenterID) (*models.Center, error) {
	c, err := scanCenter(s.conn(ctx).QueryRowContext(ctx, selectCenter+` WHERE id = $1`, int64(centerID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find center: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListCentersByZone(ctx context.Context, zoneID id.ZoneID) ([]*models.Center, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, selectCenter+` WHERE zone_id = $1 ORDER BY name ASC, id ASC`, int64(zoneID))
	if err != nil {
		return nil, fmt.Errorf("list centers: %w", err)
	}
	defer rows.Close()

	centers := make([]*models.Center, 0)
	for rows.Next() {
		c, err := scanCenter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan center: %w", err)
		}
		centers = append(centers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate centers: %w", err)
	}
	return centers, nil
}

func (s *PostgresStore) DeleteCenter(ctx context.Context, centerID id.CenterID) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM centers WHERE id = $1`, int64(centerID))
	if err != nil {
		return fmt.Errorf("delete center: %w", err)
	}
	return expectAffected(res, "delete center")
}

// -----------------------------------------------------------------------------
// Records
// -----------------------------------------------------------------------------

const selectRecord = `
	SELECT id, zone_id, center_id, agent_id, supervisor_id, status, payload, created_at, updated_at
	FROM records`

func scanRecord(row rowScanner) (*models.Record, error) {
	var r models.Record
	var rawID int64
	var zoneID, centerID, agentID, supervisor sql.NullInt64
	var status string
	var payload []byte
	if err := row.Scan(&rawID, &zoneID, &centerID, &agentID, &supervisor, &status, &payload, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ID = id.RecordID(rawID)
	r.ZoneID = id.ZoneID(zoneID.Int64)
	r.CenterID = id.CenterID(centerID.Int64)
	r.AgentID = id.UserID(agentID.Int64)
	r.SupervisorID = id.UserID(supervisor.Int64)
	r.Status = models.RecordStatus(status)
	r.Payload = payload
	return &r, nil
}

func (s *PostgresStore) CreateRecord(ctx context.Context, record *models.Record) error {
	var rawID int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO records (zone_id, center_id, agent_id, supervisor_id, status, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)
		RETURNING id
	`,
		nullInt64(int64(record.ZoneID)),
		nullInt64(int64(record.CenterID)),
		nullInt64(int64(record.AgentID)),
		nullInt64(int64(record.SupervisorID)),
		record.Status.String(),
		string(record.Payload),
		record.CreatedAt,
		record.UpdatedAt,
	).Scan(&rawID)
	if err != nil {
		return translate(err, "create record")
	}
	record.ID = id.RecordID(rawID)
	return nil
}

func (s *PostgresStore) FindRecordByID(ctx context.Context, recordID id.RecordID) (*models.Record, error) {
	r, err := scanRecord(s.conn(ctx).QueryRowContext(ctx, selectRecord+` WHERE id = $1`, int64(recordID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, filter storage.RecordFilter) ([]*models.Record, error) {
	query := selectRecord + `
		WHERE ($1::bigint IS NULL OR zone_id = $1)
		ORDER BY updated_at DESC, id DESC
		LIMIT $2`
	rows, err := s.conn(ctx).QueryContext(ctx, query, nullInt64(int64(filter.ZoneID)), filter.EffectiveLimit())
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// ExecuteRecord locks the row, runs validate then mutate, and writes the
// result back in the same transaction. Concurrent callers on one record
// serialize on the row lock.
func (s *PostgresStore) ExecuteRecord(ctx context.Context, recordID id.RecordID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error) {
	var out *models.Record
	err := s.RunInTx(ctx, func(ctx context.Context) error {
		r, err := scanRecord(s.conn(ctx).QueryRowContext(ctx, selectRecord+` WHERE id = $1 FOR UPDATE`, int64(recordID)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock record: %w", err)
		}
		if validate != nil {
			if err := validate(r); err != nil {
				return err
			}
		}
		before := r.UpdatedAt
		created := r.CreatedAt
		mutate(r)
		r.ID = recordID
		r.CreatedAt = created
		storage.TouchRecord(r, before, s.now())

		_, err = s.conn(ctx).ExecContext(ctx, `
			UPDATE records
			SET zone_id = $2, center_id = $3, agent_id = $4, supervisor_id = $5,
			    status = $6, payload = $7::jsonb, updated_at = $8
			WHERE id = $1
		`,
			int64(r.ID),
			nullInt64(int64(r.ZoneID)),
			nullInt64(int64(r.CenterID)),
			nullInt64(int64(r.AgentID)),
			nullInt64(int64(r.SupervisorID)),
			r.Status.String(),
			string(r.Payload),
			r.UpdatedAt,
		)
		if err != nil {
			return translate(err, "update record")
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) CountRecordsByZone(ctx context.Context, zoneID id.ZoneID) (total int, approved int, err error) {
	err = s.conn(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $2)
		FROM records
		WHERE zone_id = $1
	`, int64(zoneID), models.RecordStatusApproved.String()).Scan(&total, &approved)
	if err != nil {
		return 0, 0, fmt.Errorf("count records: %w", err)
	}
	return total, approved, nil
}
