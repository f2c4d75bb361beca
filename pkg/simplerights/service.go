package simplerights

import (
	"context"
	"io"
)

// Service defines the main interface for the simple-rights library
type Service interface {
	// Rights operations
	PutRights(ctx context.Context, rights *AssetRights) (*AssetRights, error)
	GetRights(ctx context.Context, assetID string) (*AssetRights, error)
	DeleteRights(ctx context.Context, assetID string) error
	ListRights(ctx context.Context, req ListRightsRequest) ([]*AssetRights, error)
	GetRightsStatus(ctx context.Context, assetID string) (RightsStatus, error)
	GetExpiringRights(ctx context.Context, windowDays int) ([]AssetRights, error)

	// Asset catalog operations
	RegisterAsset(ctx context.Context, asset Asset) error

	// Download operations
	ValidateDownload(ctx context.Context, in ValidateDownloadInput) (DownloadValidationResult, error)
	RecordDownload(ctx context.Context, req RecordDownloadRequest) (*DownloadAuditLog, error)
	ListAuditLogs(ctx context.Context, filter AuditLogFilter) ([]*DownloadAuditLog, error)

	// Reporting operations
	GenerateReport(ctx context.Context) (RightsReport, error)
	ArchiveReport(ctx context.Context, report RightsReport) (*ArchivedReport, error)
	OpenArchivedReport(ctx context.Context, objectKey string) (io.ReadCloser, error)
}
