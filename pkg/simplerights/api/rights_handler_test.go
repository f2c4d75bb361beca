package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-rights/pkg/simplerights"
	"github.com/tendant/simple-rights/pkg/simplerights/repo/memory"
	fsstorage "github.com/tendant/simple-rights/pkg/simplerights/storage/fs"
	memorystorage "github.com/tendant/simple-rights/pkg/simplerights/storage/memory"
)

var handlerNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

// setupRightsHandlerTest creates a router over an in-memory service with a fixed clock
func setupRightsHandlerTest(t *testing.T, opts ...simplerights.Option) (http.Handler, simplerights.Service) {
	t.Helper()
	base := []simplerights.Option{
		simplerights.WithRepository(memory.New()),
		simplerights.WithClock(simplerights.FixedClock(handlerNow)),
		simplerights.WithEventSink(simplerights.NewNoopEventSink()),
	}
	svc, err := simplerights.New(append(base, opts...)...)
	require.NoError(t, err)
	return NewRightsHandler(svc).Routes(), svc
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

const harborRights = `{
	"asset_name": "Harbor Timelapse",
	"rights_holder": {"name": "Northwind Pictures", "contact_email": "legal@northwind.example"},
	"valid_from": "2024-01-01T00:00:00Z",
	"valid_until": "2026-01-01T00:00:00Z",
	"allowed_usage_types": ["internal", "digital"],
	"restricted_usage_types": [],
	"allowed_territories": ["US", "CA"],
	"restricted_territories": [],
	"max_downloads": 10,
	"current_downloads": 0
}`

func putHarbor(t *testing.T, router http.Handler) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/rights/asset-1", strings.NewReader(harborRights))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRightsHandler_PutAndGetRights(t *testing.T) {
	router, _ := setupRightsHandlerTest(t)
	putHarbor(t, router)

	w := doJSON(t, router, http.MethodGet, "/rights/asset-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rights simplerights.AssetRights
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rights))
	assert.Equal(t, "asset-1", rights.AssetID)
	assert.Equal(t, "Northwind Pictures", rights.RightsHolder.Name)
	assert.False(t, rights.AllowedTerritories.IsWorldwide())
	assert.Equal(t, []simplerights.Territory{"US", "CA"}, rights.AllowedTerritories.Codes())
	require.NotNil(t, rights.MaxDownloads)
	assert.Equal(t, 10, *rights.MaxDownloads)
	assert.Equal(t, handlerNow, rights.CreatedAt)
}

func TestRightsHandler_PutRights_Errors(t *testing.T) {
	router, _ := setupRightsHandlerTest(t)

	tests := []struct {
		name string
		path string
		body string
		code string
	}{
		{name: "malformed json", path: "/rights/asset-1", body: "{", code: "invalid_request"},
		{name: "mismatched asset id", path: "/rights/asset-1", body: `{"asset_id": "asset-2"}`, code: "invalid_request"},
		{
			name: "inverted validity",
			path: "/rights/asset-1",
			body: `{"valid_from": "2026-01-01T00:00:00Z", "valid_until": "2025-01-01T00:00:00Z"}`,
			code: "invalid_rights",
		},
		{name: "bad territory scope", path: "/rights/asset-1", body: `{"allowed_territories": "mars"}`, code: "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Error)
		})
	}
}

func TestRightsHandler_GetRights_NotFound(t *testing.T) {
	router, _ := setupRightsHandlerTest(t)

	w := doJSON(t, router, http.MethodGet, "/rights/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "rights_not_found", resp.Error)
	assert.NotEmpty(t, resp.Message)
}

func TestRightsHandler_DeleteRights(t *testing.T) {
	router, _ := setupRightsHandlerTest(t)
	putHarbor(t, router)

	w := doJSON(t, router, http.MethodDelete, "/rights/asset-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/rights/asset-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRightsHandler_ListRights(t *testing.T) {
	router, svc := setupRightsHandlerTest(t)
	for _, id := range []string{"c", "a", "b"} {
		_, err := svc.PutRights(t.Context(), &simplerights.AssetRights{
			AssetID:            id,
			AllowedTerritories: simplerights.Worldwide(),
		})
		require.NoError(t, err)
	}

	w := doJSON(t, router, http.MethodGet, "/rights?limit=2&offset=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rights []simplerights.AssetRights
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rights))
	require.Len(t, rights, 2)
	assert.Equal(t, "b", rights[0].AssetID)
	assert.Equal(t, "c", rights[1].AssetID)

	w = doJSON(t, router, http.MethodGet, "/rights?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/rights?offset=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRightsHandler_GetRightsStatus(t *testing.T) {
	router, _ := setupRightsHandlerTest(t)
	putHarbor(t, router)

	tests := []struct {
		assetID string
		want    simplerights.RightsStatus
	}{
		{assetID: "asset-1", want: simplerights.RightsStatusValid},
		{assetID: "missing", want: simplerights.RightsStatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.assetID, func(t *testing.T) {
			w := doJSON(t, router, http.MethodGet, "/rights/"+tt.assetID+"/status", nil)
			require.Equal(t, http.StatusOK, w.Code)

			var resp RightsStatusResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.assetID, resp.AssetID)
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestRightsHandler_GetExpiringRights(t *testing.T) {
	router, svc := setupRightsHandlerTest(t)
	soon := handlerNow.AddDate(0, 0, 10)
	later := handlerNow.AddDate(0, 0, 60)
	for id, until := range map[string]time.Time{"soon": soon, "later": later} {
		until := until
		_, err := svc.PutRights(t.Context(), &simplerights.AssetRights{
			AssetID:            id,
			ValidUntil:         &until,
			AllowedTerritories: simplerights.Worldwide(),
		})
		require.NoError(t, err)
	}

	w := doJSON(t, router, http.MethodGet, "/rights/expiring", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp ExpiringRightsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, simplerights.DefaultExpiryWindowDays, resp.WindowDays)
	require.Len(t, resp.Rights, 1)
	assert.Equal(t, "soon", resp.Rights[0].AssetID)

	w = doJSON(t, router, http.MethodGet, "/rights/expiring?days=90", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Rights, 2)

	w = doJSON(t, router, http.MethodGet, "/rights/expiring?days=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRightsHandler_ValidateDownload(t *testing.T) {
	router, _ := setupRightsHandlerTest(t)
	putHarbor(t, router)

	tests := []struct {
		name    string
		body    DownloadRequestBody
		allowed bool
		blocker string
	}{
		{
			name:    "allowed",
			body:    DownloadRequestBody{AssetID: "asset-1", RequesterID: "u1", IntendedUsage: "digital", Territory: "us"},
			allowed: true,
		},
		{
			name:    "usage not allowed",
			body:    DownloadRequestBody{AssetID: "asset-1", RequesterID: "u1", IntendedUsage: "broadcast", Territory: "US"},
			blocker: "broadcast",
		},
		{
			name:    "territory not licensed",
			body:    DownloadRequestBody{AssetID: "asset-1", RequesterID: "u1", IntendedUsage: "digital", Territory: "FR"},
			blocker: "FR",
		},
		{
			name:    "no rights",
			body:    DownloadRequestBody{AssetID: "missing", RequesterID: "u1", IntendedUsage: "digital", Territory: "US"},
			blocker: "rights",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/downloads/validate", tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var result simplerights.DownloadValidationResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			assert.Equal(t, tt.allowed, result.Allowed)
			if tt.allowed {
				assert.Empty(t, result.Blockers)
				return
			}
			require.NotEmpty(t, result.Blockers)
			assert.Contains(t, strings.Join(result.Blockers, " "), tt.blocker)
		})
	}
}

func TestRightsHandler_ValidateDownload_MissingFields(t *testing.T) {
	router, _ := setupRightsHandlerTest(t)

	w := doJSON(t, router, http.MethodPost, "/downloads/validate", DownloadRequestBody{AssetID: "asset-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_download_request", decodeError(t, w).Error)
}

func TestRightsHandler_RecordDownload(t *testing.T) {
	router, svc := setupRightsHandlerTest(t)
	putHarbor(t, router)

	body := RecordDownloadBody{
		DownloadRequestBody: DownloadRequestBody{
			AssetID:       "asset-1",
			RequesterID:   "editor-7",
			IntendedUsage: "internal",
			Territory:     "CA",
			ProjectID:     "spring-campaign",
		},
		File: simplerights.DownloadFile{SizeBytes: 2048, Format: "mp4", Resolution: "1080p"},
	}
	w := doJSON(t, router, http.MethodPost, "/downloads", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var entry simplerights.DownloadAuditLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, "asset-1", entry.AssetID)
	assert.Equal(t, "editor-7", entry.DownloadedBy)
	assert.Equal(t, simplerights.Territory("CA"), entry.Territory)
	assert.Equal(t, "192.0.2.1", entry.IPAddress)
	assert.Equal(t, int64(2048), entry.File.SizeBytes)

	rights, err := svc.GetRights(t.Context(), "asset-1")
	require.NoError(t, err)
	assert.Equal(t, 1, rights.CurrentDownloads)

	w = doJSON(t, router, http.MethodGet, "/downloads?asset_id=asset-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []simplerights.DownloadAuditLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	assert.Len(t, logs, 1)
}

func TestRightsHandler_RecordDownload_Denied(t *testing.T) {
	router, svc := setupRightsHandlerTest(t)
	putHarbor(t, router)

	body := RecordDownloadBody{
		DownloadRequestBody: DownloadRequestBody{
			AssetID:       "asset-1",
			RequesterID:   "editor-7",
			IntendedUsage: "theatrical",
			Territory:     "US",
		},
	}
	w := doJSON(t, router, http.MethodPost, "/downloads", body)
	require.Equal(t, http.StatusForbidden, w.Code)

	var result simplerights.DownloadValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Allowed)
	assert.NotEmpty(t, result.Blockers)

	logs, err := svc.ListAuditLogs(t.Context(), simplerights.AuditLogFilter{AssetID: "asset-1"})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestRightsHandler_RegisterAssetAndReport(t *testing.T) {
	router, _ := setupRightsHandlerTest(t)
	putHarbor(t, router)

	w := doJSON(t, router, http.MethodPut, "/assets/asset-2", RegisterAssetRequest{Name: "Unlicensed Still"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/reports/rights", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report simplerights.RightsReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Summary.TotalAssets)
	assert.Equal(t, 1, report.Summary.AssetsWithRights)
	assert.Equal(t, 1, report.Summary.AssetsWithNoRights)
	assert.Equal(t, handlerNow, report.GeneratedAt)
}

func TestRightsHandler_ArchiveReport(t *testing.T) {
	archive := memorystorage.New()
	router, _ := setupRightsHandlerTest(t, simplerights.WithArchive(archive))
	putHarbor(t, router)

	w := doJSON(t, router, http.MethodPost, "/reports/rights/archive", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var archived simplerights.ArchivedReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &archived))
	assert.Contains(t, archived.ObjectKey, "reports/rights-report/2025/01/15/")
	assert.Empty(t, archived.DownloadURL)

	w = doJSON(t, router, http.MethodGet, "/reports/archive/"+archived.ObjectKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var report simplerights.RightsReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, archived.ReportID, report.ID)

	w = doJSON(t, router, http.MethodGet, "/reports/archive/reports/missing.json", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRightsHandler_GetArchivedReport_KeyOutsideStore(t *testing.T) {
	archive, err := fsstorage.New(fsstorage.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	router, _ := setupRightsHandlerTest(t, simplerights.WithArchive(archive))

	w := doJSON(t, router, http.MethodGet, "/reports/archive/../outside.json", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_object_key", decodeError(t, w).Error)
}

func TestRightsHandler_ArchiveReport_NotConfigured(t *testing.T) {
	router, _ := setupRightsHandlerTest(t)

	w := doJSON(t, router, http.MethodPost, "/reports/rights/archive", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "archive_not_configured", decodeError(t, w).Error)
}
