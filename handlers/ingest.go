package handlers

import (
	"net/http"
	"time"

	"timeclock/config"
	"timeclock/parser"
	"timeclock/recon"

	"go.uber.org/zap"
)

type IngestHandler struct {
	config *config.Config
	engine *recon.Engine
	log    *zap.Logger
}

func NewIngestHandler(cfg *config.Config, engine *recon.Engine, log *zap.Logger) *IngestHandler {
	return &IngestHandler{config: cfg, engine: engine, log: log}
}

// Ingest accepts a multipart upload: `file` (the punch dump), `file_date`
// (required, "2006-01-02") and optional `site`. Responds with the batch
// summary counts.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	fileDateStr := r.FormValue("file_date")
	if fileDateStr == "" {
		respondError(w, http.StatusBadRequest, "file_date is required")
		return
	}
	fileDate, err := time.Parse("2006-01-02", fileDateStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "file_date must be YYYY-MM-DD")
		return
	}

	site := r.FormValue("site")
	if site == "" {
		site = h.config.DefaultSite
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	parsed, err := parser.Parse(file, header.Filename)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable file: "+err.Error())
		return
	}

	scans := make([]recon.Scan, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		scans = append(scans, recon.Scan{
			DeviceID:   row.DeviceNo,
			DeviceUser: row.UserID,
			RawName:    row.Name,
			Mode:       row.Mode,
			Timestamp:  row.Timestamp,
		})
	}

	summary, err := h.engine.Ingest(r.Context(), scans, fileDate, site, parsed.Warnings)
	if err != nil {
		h.log.Error("ingest failed", zap.String("file", header.Filename), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "ingest failed")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// CloseOutAbsences marks ncns for a fully elapsed shift-date with no
// punches. Body-less; `date` query parameter, defaulting to yesterday.
func (h *IngestHandler) CloseOutAbsences(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	var date time.Time
	var err error
	if dateStr == "" {
		now := time.Now()
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
	} else if date, err = time.Parse("2006-01-02", dateStr); err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	created, err := h.engine.CloseOutAbsences(r.Context(), date, time.Now())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "close-out failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"shift_date":   date.Format("2006-01-02"),
		"ncns_records": created,
	})
}
