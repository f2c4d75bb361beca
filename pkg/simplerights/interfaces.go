package simplerights

import (
	"context"
	"io"
)

// Repository defines the interface for rights, asset and audit-log persistence
type Repository interface {
	// Rights operations
	PutRights(ctx context.Context, rights *AssetRights) error
	GetRights(ctx context.Context, assetID string) (*AssetRights, error)
	DeleteRights(ctx context.Context, assetID string) error
	ListRights(ctx context.Context, filter ListRightsFilter) ([]*AssetRights, error)

	// Asset catalog operations
	PutAsset(ctx context.Context, asset Asset) error
	ListAssets(ctx context.Context) ([]Asset, error)

	// Audit log operations
	// RecordDownload appends entry and increments the asset's download
	// counter as one unit. It returns ErrQuotaExhausted without writing
	// anything when the counter has already reached MaxDownloads.
	RecordDownload(ctx context.Context, entry *DownloadAuditLog) error
	ListAuditLogs(ctx context.Context, filter AuditLogFilter) ([]*DownloadAuditLog, error)
}

// EventSink defines the interface for rights event handling
type EventSink interface {
	// RightsUpdated is fired when a rights record is created or replaced
	RightsUpdated(ctx context.Context, rights *AssetRights) error

	// RightsDeleted is fired when a rights record is removed
	RightsDeleted(ctx context.Context, assetID string) error

	// DownloadValidated is fired after every validation
	DownloadValidated(ctx context.Context, req DownloadRequest, result DownloadValidationResult) error

	// DownloadRecorded is fired when an audit log entry is appended
	DownloadRecorded(ctx context.Context, entry *DownloadAuditLog) error

	// RightsExpiring is fired by the expiry sweep for records inside the window
	RightsExpiring(ctx context.Context, rights *AssetRights, daysLeft int) error
}

// BlobStore defines the interface for report archive backends
type BlobStore interface {
	// Upload stores content under objectKey
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams stores content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download reads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// GetDownloadURL returns a URL for downloading content
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)

	// Delete deletes content
	Delete(ctx context.Context, objectKey string) error
}

// UploadParams contains parameters for uploading an archived object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}

// ListRightsFilter pages through rights records ordered by asset ID.
// A zero Limit returns every record.
type ListRightsFilter struct {
	Limit  int
	Offset int
}

// AuditLogFilter narrows audit log listings. Empty fields match everything.
type AuditLogFilter struct {
	AssetID string
}
