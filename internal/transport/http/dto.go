package httptransport

import (
	"encoding/json"
	"time"

	"recensement/internal/models"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createUserRequest struct {
	Username string `json:"username"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type createZoneRequest struct {
	Name      string `json:"name"`
	Objective *int   `json:"objective"`
}

type createCenterRequest struct {
	ZoneID int64  `json:"zone_id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
}

type createRecordRequest struct {
	ZoneID   int64           `json:"zone_id"`
	CenterID int64           `json:"center_id"`
	Payload  json.RawMessage `json:"payload"`
}

type idResponse struct {
	ID int64 `json:"id"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

var ok = okResponse{OK: true}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type zoneResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Objective *int   `json:"objective"`
}

type centerResponse struct {
	ID     int64  `json:"id"`
	ZoneID int64  `json:"zone_id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
}

// recordResponse renders unset references as null.
type recordResponse struct {
	ID           int64           `json:"id"`
	ZoneID       *int64          `json:"zone_id"`
	CenterID     *int64          `json:"center_id"`
	AgentID      *int64          `json:"agent_id"`
	SupervisorID *int64          `json:"supervisor_id"`
	Status       string          `json:"status"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type statsResponse struct {
	Total       int      `json:"total"`
	Approved    int      `json:"approved"`
	Objective   *int     `json:"objective"`
	Progression *float64 `json:"progression"`
}

func nullable[T ~int64](v T) *int64 {
	if v == 0 {
		return nil
	}
	n := int64(v)
	return &n
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        int64(u.ID),
		Username:  u.Username,
		Phone:     u.Phone,
		Role:      u.Role.String(),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

func toZoneResponse(z *models.Zone) zoneResponse {
	return zoneResponse{ID: int64(z.ID), Name: z.Name, Objective: z.Objective}
}

func toCenterResponse(c *models.Center) centerResponse {
	return centerResponse{ID: int64(c.ID), ZoneID: int64(c.ZoneID), Code: c.Code, Name: c.Name}
}

func toRecordResponse(r *models.Record) recordResponse {
	return recordResponse{
		ID:           int64(r.ID),
		ZoneID:       nullable(r.ZoneID),
		CenterID:     nullable(r.CenterID),
		AgentID:      nullable(r.AgentID),
		SupervisorID: nullable(r.SupervisorID),
		Status:       r.Status.String(),
		Payload:      r.Payload,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toStatsResponse(s models.ZoneStats) statsResponse {
	return statsResponse{
		Total:       s.Total,
		Approved:    s.Approved,
		Objective:   s.Objective,
		Progression: s.Progression,
	}
}
