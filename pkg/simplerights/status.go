package simplerights

import (
	"fmt"
	"strings"
	"time"
)

// GetRightsStatus classifies a rights record at the given instant.
// Rules are applied in priority order: expired, pending, restricted, valid.
func GetRightsStatus(rights AssetRights, now time.Time) RightsStatus {
	if rights.ValidUntil != nil && rights.ValidUntil.Before(now) {
		return RightsStatusExpired
	}
	if rights.ValidFrom != nil && rights.ValidFrom.After(now) {
		return RightsStatusPending
	}
	if effective, worldwide := effectiveTerritories(rights.AllowedTerritories, rights.RestrictedTerritories); !worldwide && len(effective) == 0 {
		return RightsStatusRestricted
	}
	return RightsStatusValid
}

// StatusOf is GetRightsStatus for an optional record; nil yields unknown.
func StatusOf(rights *AssetRights, now time.Time) RightsStatus {
	if rights == nil {
		return RightsStatusUnknown
	}
	return GetRightsStatus(*rights, now)
}

// Validate checks the invariants of a rights record.
func (r *AssetRights) Validate() error {
	if strings.TrimSpace(r.AssetID) == "" {
		return fmt.Errorf("%w: asset_id is required", ErrInvalidRights)
	}
	if r.ValidFrom != nil && r.ValidUntil != nil && r.ValidFrom.After(*r.ValidUntil) {
		return fmt.Errorf("%w: valid_from %s is after valid_until %s", ErrInvalidRights,
			r.ValidFrom.Format(time.RFC3339), r.ValidUntil.Format(time.RFC3339))
	}
	if r.CurrentDownloads < 0 {
		return fmt.Errorf("%w: current_downloads cannot be negative", ErrInvalidRights)
	}
	if r.MaxDownloads != nil && *r.MaxDownloads < 0 {
		return fmt.Errorf("%w: max_downloads cannot be negative", ErrInvalidRights)
	}
	return nil
}

// Snapshot freezes the terms recorded on an audit log.
func (r *AssetRights) Snapshot() RightsSnapshot {
	snap := RightsSnapshot{
		AllowedUsages: append([]UsageType(nil), r.AllowedUsageTypes...),
		Territories:   r.AllowedTerritories,
	}
	if !r.AllowedTerritories.IsWorldwide() {
		snap.Territories = Territories(r.AllowedTerritories.Codes()...)
	}
	if r.ValidUntil != nil {
		until := *r.ValidUntil
		snap.ValidUntil = &until
	}
	return snap
}

// Clone returns a deep copy of the record.
func (r *AssetRights) Clone() *AssetRights {
	c := *r
	if r.ValidFrom != nil {
		v := *r.ValidFrom
		c.ValidFrom = &v
	}
	if r.ValidUntil != nil {
		v := *r.ValidUntil
		c.ValidUntil = &v
	}
	if r.MaxDownloads != nil {
		v := *r.MaxDownloads
		c.MaxDownloads = &v
	}
	c.AllowedUsageTypes = append([]UsageType(nil), r.AllowedUsageTypes...)
	c.RestrictedUsageTypes = append([]UsageType(nil), r.RestrictedUsageTypes...)
	c.RestrictedTerritories = append([]Territory(nil), r.RestrictedTerritories...)
	c.ApproverRoles = append([]string(nil), r.ApproverRoles...)
	if !r.AllowedTerritories.IsWorldwide() {
		c.AllowedTerritories = Territories(r.AllowedTerritories.Codes()...)
	}
	return &c
}

// NormalizeUsage trims and lower-cases a usage type.
func NormalizeUsage(s string) UsageType {
	return UsageType(strings.ToLower(strings.TrimSpace(s)))
}

func containsUsage(list []UsageType, u UsageType) bool {
	for _, v := range list {
		if NormalizeUsage(string(v)) == u {
			return true
		}
	}
	return false
}
