package simplerights

import "github.com/google/uuid"

// Request/Response DTOs

// ValidateDownloadInput contains the user-entered fields of a download request
type ValidateDownloadInput struct {
	AssetID       string
	RequesterID   string
	IntendedUsage UsageType
	Territory     Territory
	ProjectID     string
	Notes         string
}

// RecordDownloadRequest contains parameters for recording a completed download
type RecordDownloadRequest struct {
	Request   ValidateDownloadInput
	File      DownloadFile
	IPAddress string
	UserAgent string
}

// ListRightsRequest contains parameters for listing rights records
type ListRightsRequest struct {
	Limit  int
	Offset int
}

// ArchivedReport describes a report stored in the archive
type ArchivedReport struct {
	ReportID    uuid.UUID `json:"report_id"`
	ObjectKey   string    `json:"object_key"`
	DownloadURL string    `json:"download_url,omitempty"`
}
