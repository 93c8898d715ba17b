package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recensement/internal/models"
	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
	"recensement/pkg/platform/httputil"
)

type ZoneService interface {
	CreateZone(ctx context.Context, caller models.Identity, name string, objective *int) (*models.Zone, error)
	ListZones(ctx context.Context, caller models.Identity) ([]*models.Zone, error)
	GetZone(ctx context.Context, caller models.Identity, zoneID id.ZoneID) (*models.Zone, error)
	DeleteZone(ctx context.Context, caller models.Identity, zoneID id.ZoneID) error
	CreateCenter(ctx context.Context, caller models.Identity, zoneID id.ZoneID, name, code string) (*models.Center, error)
	ListCenters(ctx context.Context, caller models.Identity, zoneID id.ZoneID) ([]*models.Center, error)
	DeleteCenter(ctx context.Context, caller models.Identity, centerID id.CenterID) error
}

type ZoneHandler struct {
	zones  ZoneService
	logger *slog.Logger
}

func NewZoneHandler(zones ZoneService, logger *slog.Logger) *ZoneHandler {
	return &ZoneHandler{zones: zones, logger: logger}
}

func (h *ZoneHandler) Register(r chi.Router) {
	r.Get("/zones", h.handleListZones)
	r.Post("/zones", h.handleCreateZone)
	r.Get("/zones/{id}", h.handleGetZone)
	r.Delete("/zones/{id}", h.handleDeleteZone)
	r.Get("/zones/{id}/centers", h.handleListCenters)
	r.Post("/centers", h.handleCreateCenter)
	r.Delete("/centers/{id}", h.handleDeleteCenter)
}

func (h *ZoneHandler) handleListZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.zones.ListZones(r.Context(), caller(r))
	if err != nil {
		respondError(r.Context(), h.logger, w, "list zones", err)
		return
	}
	out := make([]zoneResponse, 0, len(zones))
	for _, z := range zones {
		out = append(out, toZoneResponse(z))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *ZoneHandler) handleCreateZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createZoneRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		respondError(ctx, h.logger, w, "create zone", err)
		return
	}
	z, err := h.zones.CreateZone(ctx, caller(r), req.Name, req.Objective)
	if err != nil {
		respondError(ctx, h.logger, w, "create zone", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, idResponse{ID: int64(z.ID)})
}

func (h *ZoneHandler) handleGetZone(w http.ResponseWriter, r *http.Request) {
	zoneID, err := pathID(r, "id", id.ParseZoneID)
	if err != nil {
		respondError(r.Context(), h.logger, w, "get zone", err)
		return
	}
	z, err := h.zones.GetZone(r.Context(), caller(r), zoneID)
	if err != nil {
		respondError(r.Context(), h.logger, w, "get zone", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toZoneResponse(z))
}

func (h *ZoneHandler) handleDeleteZone(w http.ResponseWriter, r *http.Request) {
	zoneID, err := pathID(r, "id", id.ParseZoneID)
	if err != nil {
		respondError(r.Context(), h.logger, w, "delete zone", err)
		return
	}
	if err := h.zones.DeleteZone(r.Context(), caller(r), zoneID); err != nil {
		respondError(r.Context(), h.logger, w, "delete zone", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ok)
}

func (h *ZoneHandler) handleListCenters(w http.ResponseWriter, r *http.Request) {
	zoneID, err := pathID(r, "id", id.ParseZoneID)
	if err != nil {
		respondError(r.Context(), h.logger, w, "list centers", err)
		return
	}
	centers, err := h.zones.ListCenters(r.Context(), caller(r), zoneID)
	if err != nil {
		respondError(r.Context(), h.logger, w, "list centers", err)
		return
	}
	out := make([]centerResponse, 0, len(centers))
	for _, c := range centers {
		out = append(out, toCenterResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *ZoneHandler) handleCreateCenter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createCenterRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		respondError(ctx, h.logger, w, "create center", err)
		return
	}
	if req.ZoneID < 0 {
		respondError(ctx, h.logger, w, "create center", dErrors.New(dErrors.CodeValidation, "zone_id must be positive"))
		return
	}
	c, err := h.zones.CreateCenter(ctx, caller(r), id.ZoneID(req.ZoneID), req.Name, req.Code)
	if err != nil {
		respondError(ctx, h.logger, w, "create center", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, idResponse{ID: int64(c.ID)})
}

func (h *ZoneHandler) handleDeleteCenter(w http.ResponseWriter, r *http.Request) {
	centerID, err := pathID(r, "id", id.ParseCenterID)
	if err != nil {
		respondError(r.Context(), h.logger, w, "delete center", err)
		return
	}
	if err := h.zones.DeleteCenter(r.Context(), caller(r), centerID); err != nil {
		respondError(r.Context(), h.logger, w, "delete center", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ok)
}
