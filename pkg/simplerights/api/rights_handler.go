package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-rights/pkg/simplerights"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// RightsHandler handles HTTP requests for rights records, downloads and reports
type RightsHandler struct {
	service simplerights.Service
}

// NewRightsHandler creates a new rights handler
func NewRightsHandler(service simplerights.Service) *RightsHandler {
	return &RightsHandler{service: service}
}

// Routes returns the routes for the rights API
func (h *RightsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/rights", h.ListRights)
	r.Get("/rights/expiring", h.GetExpiringRights)
	r.Put("/rights/{assetID}", h.PutRights)
	r.Get("/rights/{assetID}", h.GetRights)
	r.Delete("/rights/{assetID}", h.DeleteRights)
	r.Get("/rights/{assetID}/status", h.GetRightsStatus)

	r.Put("/assets/{assetID}", h.RegisterAsset)

	r.Post("/downloads/validate", h.ValidateDownload)
	r.Post("/downloads", h.RecordDownload)
	r.Get("/downloads", h.ListAuditLogs)

	r.Get("/reports/rights", h.GenerateReport)
	r.Post("/reports/rights/archive", h.ArchiveReport)
	r.Get("/reports/archive/*", h.GetArchivedReport)

	return r
}

// RightsStatusResponse is the response body for a status lookup
type RightsStatusResponse struct {
	AssetID string                    `json:"asset_id"`
	Status  simplerights.RightsStatus `json:"status"`
}

// ExpiringRightsResponse is the response body for the expiring rights listing
type ExpiringRightsResponse struct {
	WindowDays int                        `json:"window_days"`
	Rights     []simplerights.AssetRights `json:"rights"`
}

// RegisterAssetRequest is the request body for registering an asset name
type RegisterAssetRequest struct {
	Name string `json:"name"`
}

// DownloadRequestBody is the request body for validating a download
type DownloadRequestBody struct {
	AssetID       string `json:"asset_id"`
	RequesterID   string `json:"requester_id"`
	IntendedUsage string `json:"intended_usage"`
	Territory     string `json:"territory"`
	ProjectID     string `json:"project_id,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

func (b DownloadRequestBody) input() simplerights.ValidateDownloadInput {
	return simplerights.ValidateDownloadInput{
		AssetID:       b.AssetID,
		RequesterID:   b.RequesterID,
		IntendedUsage: simplerights.UsageType(b.IntendedUsage),
		Territory:     simplerights.Territory(b.Territory),
		ProjectID:     b.ProjectID,
		Notes:         b.Notes,
	}
}

// RecordDownloadBody is the request body for recording a completed download
type RecordDownloadBody struct {
	DownloadRequestBody
	File simplerights.DownloadFile `json:"file"`
}

// PutRights creates or replaces the rights record of an asset
func (h *RightsHandler) PutRights(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	var rights simplerights.AssetRights
	if err := json.NewDecoder(r.Body).Decode(&rights); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if rights.AssetID != "" && rights.AssetID != assetID {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "asset_id in body does not match URL")
		return
	}
	rights.AssetID = assetID

	saved, err := h.service.PutRights(r.Context(), &rights)
	if err != nil {
		slog.Error("Failed to save rights", "asset_id", assetID, "err", err)
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, saved)
}

// GetRights returns the rights record of an asset
func (h *RightsHandler) GetRights(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	rights, err := h.service.GetRights(r.Context(), assetID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, rights)
}

// DeleteRights removes the rights record of an asset
func (h *RightsHandler) DeleteRights(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	if err := h.service.DeleteRights(r.Context(), assetID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("Rights deleted", "asset_id", assetID)
	w.WriteHeader(http.StatusNoContent)
}

// ListRights pages through rights records ordered by asset ID
func (h *RightsHandler) ListRights(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
		return
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "offset must be a non-negative integer")
		return
	}

	rights, err := h.service.ListRights(r.Context(), simplerights.ListRightsRequest{Limit: limit, Offset: offset})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if rights == nil {
		rights = []*simplerights.AssetRights{}
	}

	render.JSON(w, r, rights)
}

// GetRightsStatus returns the derived status of an asset's rights
func (h *RightsHandler) GetRightsStatus(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	status, err := h.service.GetRightsStatus(r.Context(), assetID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, RightsStatusResponse{AssetID: assetID, Status: status})
}

// GetExpiringRights lists records expiring within ?days= (default window when absent)
func (h *RightsHandler) GetExpiringRights(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", simplerights.DefaultExpiryWindowDays)
	if err != nil || days <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "days must be a positive integer")
		return
	}

	rights, err := h.service.GetExpiringRights(r.Context(), days)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if rights == nil {
		rights = []simplerights.AssetRights{}
	}

	render.JSON(w, r, ExpiringRightsResponse{WindowDays: days, Rights: rights})
}

// RegisterAsset records the display name of an asset
func (h *RightsHandler) RegisterAsset(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	var req RegisterAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	asset := simplerights.Asset{ID: assetID, Name: req.Name}
	if err := h.service.RegisterAsset(r.Context(), asset); err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, asset)
}

// ValidateDownload evaluates a download request without recording it
func (h *RightsHandler) ValidateDownload(w http.ResponseWriter, r *http.Request) {
	var body DownloadRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.service.ValidateDownload(r.Context(), body.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

// RecordDownload validates and records a completed download. A denied
// download answers 403 with the validation result.
func (h *RightsHandler) RecordDownload(w http.ResponseWriter, r *http.Request) {
	var body RecordDownloadBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	entry, err := h.service.RecordDownload(r.Context(), simplerights.RecordDownloadRequest{
		Request:   body.input(),
		File:      body.File,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		var denied *simplerights.DownloadDeniedError
		if errors.As(err, &denied) {
			slog.Warn("Download denied", "asset_id", denied.AssetID, "blockers", len(denied.Result.Blockers))
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, denied.Result)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, entry)
}

// ListAuditLogs lists recorded downloads, optionally for one asset
func (h *RightsHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.ListAuditLogs(r.Context(), simplerights.AuditLogFilter{
		AssetID: r.URL.Query().Get("asset_id"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if logs == nil {
		logs = []*simplerights.DownloadAuditLog{}
	}

	render.JSON(w, r, logs)
}

// GenerateReport builds a compliance report over all rights records
func (h *RightsHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GenerateReport(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, report)
}

// ArchiveReport generates a report and stores it in the archive
func (h *RightsHandler) ArchiveReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GenerateReport(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	archived, err := h.service.ArchiveReport(r.Context(), report)
	if err != nil {
		slog.Error("Failed to archive report", "report_id", report.ID.String(), "err", err)
		writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, archived)
}

// GetArchivedReport streams an archived report by object key
func (h *RightsHandler) GetArchivedReport(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if key == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "object key is required")
		return
	}

	rc, err := h.service.OpenArchivedReport(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("Archived report copy error", "key", key, "err", err)
	}
}

func queryInt(r *http.Request, name string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(raw)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
