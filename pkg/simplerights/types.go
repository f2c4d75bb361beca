package simplerights

import (
	"time"

	"github.com/google/uuid"
)

// UsageType is the intended use of a downloaded asset.
type UsageType string

// Usage type constants (typed).
const (
	UsageInternal    UsageType = "internal"
	UsageBroadcast   UsageType = "broadcast"
	UsageDigital     UsageType = "digital"
	UsageTheatrical  UsageType = "theatrical"
	UsagePrint       UsageType = "print"
	UsageSocialMedia UsageType = "social_media"
	UsageArchive     UsageType = "archive"
)

// Territory is a territory code such as "US" or "GB".
type Territory string

// RightsStatus is the derived, non-stored status of a rights record.
type RightsStatus string

// Rights status constants (typed).
const (
	RightsStatusValid      RightsStatus = "valid"
	RightsStatusExpired    RightsStatus = "expired"
	RightsStatusPending    RightsStatus = "pending"
	RightsStatusRestricted RightsStatus = "restricted"
	RightsStatusUnknown    RightsStatus = "unknown"
)

// CheckStatus is the outcome of a single validation check.
type CheckStatus string

// Check status constants (typed).
const (
	CheckPassed  CheckStatus = "passed"
	CheckFailed  CheckStatus = "failed"
	CheckWarning CheckStatus = "warning"
)

// Check names, in evaluation order.
const (
	CheckRightsExists   = "rights_exists"
	CheckValidityPeriod = "validity_period"
	CheckUsageType      = "usage_type"
	CheckTerritory      = "territory"
	CheckDownloadQuota  = "download_quota"
	CheckApproval       = "approval"
	CheckWatermark      = "watermark"
)

// RightsHolder identifies the party that licensed an asset.
type RightsHolder struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
	ContractID   string `json:"contract_id,omitempty"`
}

// AssetRights holds the licensing terms governing one asset.
//
// A nil ValidUntil means the grant is perpetual and a nil MaxDownloads means
// downloads are unlimited. CurrentDownloads may exceed MaxDownloads for
// grandfathered downloads; the validator reports it rather than rejecting the
// record.
type AssetRights struct {
	AssetID               string         `json:"asset_id"`
	AssetName             string         `json:"asset_name,omitempty"`
	RightsHolder          RightsHolder   `json:"rights_holder"`
	ValidFrom             *time.Time     `json:"valid_from,omitempty"`
	ValidUntil            *time.Time     `json:"valid_until,omitempty"`
	AllowedUsageTypes     []UsageType    `json:"allowed_usage_types"`
	RestrictedUsageTypes  []UsageType    `json:"restricted_usage_types"`
	AllowedTerritories    TerritoryScope `json:"allowed_territories"`
	RestrictedTerritories []Territory    `json:"restricted_territories"`
	MaxDownloads          *int           `json:"max_downloads,omitempty"`
	CurrentDownloads      int            `json:"current_downloads"`
	RequiresWatermark     bool           `json:"requires_watermark"`
	WatermarkText         string         `json:"watermark_text,omitempty"`
	RequiresApproval      bool           `json:"requires_approval"`
	ApproverRoles         []string       `json:"approver_roles,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	CreatedBy             string         `json:"created_by,omitempty"`
}

// Asset is the display information for an asset referenced by rights
// records, audit logs or reports.
type Asset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DownloadRequest is an ephemeral proposal to download an asset.
type DownloadRequest struct {
	ID            uuid.UUID `json:"id"`
	AssetID       string    `json:"asset_id"`
	RequesterID   string    `json:"requester_id"`
	RequestedAt   time.Time `json:"requested_at"`
	IntendedUsage UsageType `json:"intended_usage"`
	Territory     Territory `json:"territory"`
	ProjectID     string    `json:"project_id,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

// CheckResult is the outcome of one named validation check.
type CheckResult struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
}

// DownloadValidationResult is the verdict for one DownloadRequest.
// Blockers is non-empty if and only if Allowed is false.
type DownloadValidationResult struct {
	Allowed     bool          `json:"allowed"`
	Checks      []CheckResult `json:"checks"`
	Blockers    []string      `json:"blockers"`
	Warnings    []string      `json:"warnings"`
	Suggestions []string      `json:"suggestions"`
	ValidatedAt time.Time     `json:"validated_at"`
}

// DownloadFile describes the file that was delivered.
type DownloadFile struct {
	SizeBytes  int64  `json:"size_bytes"`
	Format     string `json:"format,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// RightsSnapshot freezes the terms in effect at download time.
type RightsSnapshot struct {
	ValidUntil    *time.Time     `json:"valid_until,omitempty"`
	AllowedUsages []UsageType    `json:"allowed_usages"`
	Territories   TerritoryScope `json:"territories"`
}

// DownloadAuditLog records a download that actually happened. It is created
// once and never mutated.
type DownloadAuditLog struct {
	ID             uuid.UUID      `json:"id"`
	AssetID        string         `json:"asset_id"`
	AssetName      string         `json:"asset_name,omitempty"`
	DownloadedBy   string         `json:"downloaded_by"`
	DownloadedAt   time.Time      `json:"downloaded_at"`
	UsageType      UsageType      `json:"usage_type"`
	Territory      Territory      `json:"territory"`
	ProjectID      string         `json:"project_id,omitempty"`
	File           DownloadFile   `json:"file"`
	RightsSnapshot RightsSnapshot `json:"rights_snapshot"`
	IPAddress      string         `json:"ip_address,omitempty"`
	UserAgent      string         `json:"user_agent,omitempty"`
}

// RightsSummary holds the aggregate counts of a RightsReport.
type RightsSummary struct {
	TotalAssets             int `json:"total_assets"`
	AssetsWithRights        int `json:"assets_with_rights"`
	AssetsWithValidRights   int `json:"assets_with_valid_rights"`
	AssetsExpiringSoon      int `json:"assets_expiring_soon"`
	AssetsWithExpiredRights int `json:"assets_with_expired_rights"`
	AssetsWithNoRights      int `json:"assets_with_no_rights"`
	TotalDownloads          int `json:"total_downloads"`
}

// AssetReport is the per-asset detail row of a RightsReport.
type AssetReport struct {
	AssetID        string       `json:"asset_id"`
	AssetName      string       `json:"asset_name"`
	Status         RightsStatus `json:"status"`
	Issues         []string     `json:"issues"`
	TotalDownloads int          `json:"total_downloads"`
	LastDownloadAt *time.Time   `json:"last_download_at,omitempty"`
}

// RightsReport is the compliance report over all rights records and
// download history.
type RightsReport struct {
	ID          uuid.UUID     `json:"id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Summary     RightsSummary `json:"summary"`
	Assets      []AssetReport `json:"assets"`
}
