package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"timeclock/recon"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type VerificationHandler struct {
	engine *recon.Engine
	log    *zap.Logger
}

func NewVerificationHandler(engine *recon.Engine, log *zap.Logger) *VerificationHandler {
	return &VerificationHandler{engine: engine, log: log}
}

func (h *VerificationHandler) Queue(w http.ResponseWriter, r *http.Request) {
	q, err := h.engine.VerificationQueue(r.Context())
	if err != nil {
		h.log.Error("verification queue load failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load queue")
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (h *VerificationHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	var upd recon.RecordUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	rec, err := h.engine.UpdateRecord(r.Context(), uint(id), upd)
	if errors.Is(err, recon.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		h.log.Error("record update failed", zap.Uint64("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to update record")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

type idsRequest struct {
	IDs []uint `json:"ids"`
}

func (h *VerificationHandler) MarkAdvised(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeIDs(w, r)
	if !ok {
		return
	}
	updated, err := h.engine.MarkAdvised(r.Context(), ids)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to mark advised")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (h *VerificationHandler) DeleteRecords(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeIDs(w, r)
	if !ok {
		return
	}
	deleted, err := h.engine.DeleteRecords(r.Context(), ids)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete records")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (h *VerificationHandler) ResolveScans(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeIDs(w, r)
	if !ok {
		return
	}
	resolved, err := h.engine.ResolveScans(r.Context(), ids)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to resolve scans")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"resolved": resolved})
}

// Stats aggregates record counts by status over a shift-date range given as
// `from` and `to` query parameters.
func (h *VerificationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}

	counts, err := h.engine.StatusCounts(r.Context(), from, to)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to aggregate stats")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
		"counts": counts,
	})
}

func decodeIDs(w http.ResponseWriter, r *http.Request) ([]uint, bool) {
	var req idsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "ids are required")
		return nil, false
	}
	return req.IDs, true
}
