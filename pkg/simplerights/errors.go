package simplerights

import (
	"errors"
	"fmt"
	"strings"
)

// Error types
var (
	// ErrRightsNotFound indicates no rights record exists for an asset
	ErrRightsNotFound = errors.New("rights not found")

	// ErrInvalidRights indicates a rights record violates its invariants
	ErrInvalidRights = errors.New("invalid rights")

	// ErrInvalidDownloadRequest indicates a download request is missing required fields
	ErrInvalidDownloadRequest = errors.New("invalid download request")

	// ErrDownloadDenied indicates a download was refused by rights validation
	ErrDownloadDenied = errors.New("download denied")

	// ErrArchiveNotConfigured indicates no report archive store was configured
	ErrArchiveNotConfigured = errors.New("report archive not configured")

	// ErrQuotaExhausted indicates a download counter already reached MaxDownloads
	ErrQuotaExhausted = errors.New("download quota exhausted")

	// ErrObjectNotFound indicates an archive object key does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidObjectKey indicates an archive key resolves outside its store
	ErrInvalidObjectKey = errors.New("invalid object key")

	// ErrArchiveURLUnsupported indicates a backend cannot hand out download URLs
	ErrArchiveURLUnsupported = errors.New("archive backend does not provide download URLs")
)

// RightsError represents an error related to a rights record operation
type RightsError struct {
	AssetID string
	Op      string
	Err     error
}

func (e *RightsError) Error() string {
	return fmt.Sprintf("rights operation %s failed for asset %s: %v", e.Op, e.AssetID, e.Err)
}

func (e *RightsError) Unwrap() error {
	return e.Err
}

// DownloadDeniedError carries the validation result that refused a download.
type DownloadDeniedError struct {
	AssetID string
	Result  DownloadValidationResult
}

func (e *DownloadDeniedError) Error() string {
	return fmt.Sprintf("download denied for asset %s: %s", e.AssetID, strings.Join(e.Result.Blockers, "; "))
}

func (e *DownloadDeniedError) Unwrap() error {
	return ErrDownloadDenied
}

// ArchiveError represents an error storing or reading an archived report
type ArchiveError struct {
	Key string
	Op  string
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}
