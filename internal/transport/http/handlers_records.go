package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recensement/internal/models"
	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
	"recensement/pkg/platform/httputil"
)

type RecordService interface {
	CreateRecord(ctx context.Context, caller models.Identity, zoneID id.ZoneID, centerID id.CenterID, payload json.RawMessage) (*models.Record, error)
	ListRecords(ctx context.Context, caller models.Identity, zoneID id.ZoneID) ([]*models.Record, error)
	GetRecord(ctx context.Context, caller models.Identity, recordID id.RecordID) (*models.Record, error)
	DecideRecord(ctx context.Context, caller models.Identity, recordID id.RecordID, decision models.Decision) (*models.Record, error)
}

type StatsService interface {
	ZoneStats(ctx context.Context, caller models.Identity, zoneID id.ZoneID) (models.ZoneStats, error)
}

type RecordHandler struct {
	records RecordService
	stats   StatsService
	logger  *slog.Logger
}

func NewRecordHandler(records RecordService, stats StatsService, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{records: records, stats: stats, logger: logger}
}

func (h *RecordHandler) Register(r chi.Router) {
	r.Post("/records", h.handleCreate)
	r.Get("/records", h.handleList)
	r.Get("/records/{id}", h.handleGet)
	r.Post("/records/{id}/approve", h.handleDecide(models.DecisionApprove))
	r.Post("/records/{id}/reject", h.handleDecide(models.DecisionReject))
	r.Get("/stats/zone/{id}", h.handleZoneStats)
}

func (h *RecordHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRecordRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		respondError(ctx, h.logger, w, "create record", err)
		return
	}
	if req.ZoneID < 0 || req.CenterID < 0 {
		respondError(ctx, h.logger, w, "create record", dErrors.New(dErrors.CodeValidation, "zone_id and center_id must be positive"))
		return
	}
	rec, err := h.records.CreateRecord(ctx, caller(r), id.ZoneID(req.ZoneID), id.CenterID(req.CenterID), req.Payload)
	if err != nil {
		respondError(ctx, h.logger, w, "create record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, idResponse{ID: int64(rec.ID)})
}

// handleList accepts an optional zone_id query parameter.
func (h *RecordHandler) handleList(w http.ResponseWriter, r *http.Request) {
	var zoneID id.ZoneID
	if raw := r.URL.Query().Get("zone_id"); raw != "" {
		parsed, err := id.ParseZoneID(raw)
		if err != nil {
			respondError(r.Context(), h.logger, w, "list records", dErrors.New(dErrors.CodeBadRequest, err.Error()))
			return
		}
		zoneID = parsed
	}
	records, err := h.records.ListRecords(r.Context(), caller(r), zoneID)
	if err != nil {
		respondError(r.Context(), h.logger, w, "list records", err)
		return
	}
	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *RecordHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	recordID, err := pathID(r, "id", id.ParseRecordID)
	if err != nil {
		respondError(r.Context(), h.logger, w, "get record", err)
		return
	}
	rec, err := h.records.GetRecord(r.Context(), caller(r), recordID)
	if err != nil {
		respondError(r.Context(), h.logger, w, "get record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *RecordHandler) handleDecide(decision models.Decision) http.HandlerFunc {
	op := decision.String() + " record"
	return func(w http.ResponseWriter, r *http.Request) {
		recordID, err := pathID(r, "id", id.ParseRecordID)
		if err != nil {
			respondError(r.Context(), h.logger, w, op, err)
			return
		}
		if _, err := h.records.DecideRecord(r.Context(), caller(r), recordID, decision); err != nil {
			respondError(r.Context(), h.logger, w, op, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, ok)
	}
}

func (h *RecordHandler) handleZoneStats(w http.ResponseWriter, r *http.Request) {
	zoneID, err := pathID(r, "id", id.ParseZoneID)
	if err != nil {
		respondError(r.Context(), h.logger, w, "zone stats", err)
		return
	}
	stats, err := h.stats.ZoneStats(r.Context(), caller(r), zoneID)
	if err != nil {
		respondError(r.Context(), h.logger, w, "zone stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStatsResponse(stats))
}
