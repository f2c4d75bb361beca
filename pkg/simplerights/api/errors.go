package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-rights/pkg/simplerights"
)

// ErrorResponse is the JSON body of every error answer
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps service errors onto HTTP status codes
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, simplerights.ErrRightsNotFound):
		writeError(w, r, http.StatusNotFound, "rights_not_found", err.Error())
	case errors.Is(err, simplerights.ErrObjectNotFound):
		writeError(w, r, http.StatusNotFound, "object_not_found", err.Error())
	case errors.Is(err, simplerights.ErrInvalidObjectKey):
		writeError(w, r, http.StatusBadRequest, "invalid_object_key", err.Error())
	case errors.Is(err, simplerights.ErrInvalidRights):
		writeError(w, r, http.StatusBadRequest, "invalid_rights", err.Error())
	case errors.Is(err, simplerights.ErrInvalidDownloadRequest):
		writeError(w, r, http.StatusBadRequest, "invalid_download_request", err.Error())
	case errors.Is(err, simplerights.ErrDownloadDenied):
		writeError(w, r, http.StatusForbidden, "download_denied", err.Error())
	case errors.Is(err, simplerights.ErrArchiveNotConfigured):
		writeError(w, r, http.StatusServiceUnavailable, "archive_not_configured", err.Error())
	default:
		slog.Error("Unhandled service error", "path", r.URL.Path, "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
