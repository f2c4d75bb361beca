package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tendant/simple-rights/pkg/simplerights"
)

// Repository implements simplerights.Repository using in-memory storage
type Repository struct {
	mu        sync.RWMutex
	rights    map[string]*simplerights.AssetRights
	assets    map[string]simplerights.Asset
	auditLogs []*simplerights.DownloadAuditLog
}

// New creates a new in-memory repository
func New() simplerights.Repository {
	return &Repository{
		rights: make(map[string]*simplerights.AssetRights),
		assets: make(map[string]simplerights.Asset),
	}
}

// Rights operations

func (r *Repository) PutRights(ctx context.Context, rights *simplerights.AssetRights) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rights[rights.AssetID] = rights.Clone()
	return nil
}

func (r *Repository) GetRights(ctx context.Context, assetID string) (*simplerights.AssetRights, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rights, exists := r.rights[assetID]
	if !exists {
		return nil, simplerights.ErrRightsNotFound
	}
	return rights.Clone(), nil
}

func (r *Repository) DeleteRights(ctx context.Context, assetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rights[assetID]; !exists {
		return simplerights.ErrRightsNotFound
	}
	delete(r.rights, assetID)
	return nil
}

func (r *Repository) ListRights(ctx context.Context, filter simplerights.ListRightsFilter) ([]*simplerights.AssetRights, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.rights))
	for id := range r.rights {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start, end := page(len(ids), filter.Offset, filter.Limit)
	result := make([]*simplerights.AssetRights, 0, end-start)
	for _, id := range ids[start:end] {
		result = append(result, r.rights[id].Clone())
	}
	return result, nil
}

// Asset catalog operations

func (r *Repository) PutAsset(ctx context.Context, asset simplerights.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.assets[asset.ID] = asset
	return nil
}

func (r *Repository) ListAssets(ctx context.Context) ([]simplerights.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]simplerights.Asset, 0, len(r.assets))
	for _, a := range r.assets {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Audit log operations

func (r *Repository) RecordDownload(ctx context.Context, entry *simplerights.DownloadAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rights, exists := r.rights[entry.AssetID]
	if !exists {
		return simplerights.ErrRightsNotFound
	}
	if rights.MaxDownloads != nil && rights.CurrentDownloads >= *rights.MaxDownloads {
		return simplerights.ErrQuotaExhausted
	}
	rights.CurrentDownloads++

	entryCopy := *entry
	r.auditLogs = append(r.auditLogs, &entryCopy)
	return nil
}

func (r *Repository) ListAuditLogs(ctx context.Context, filter simplerights.AuditLogFilter) ([]*simplerights.DownloadAuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simplerights.DownloadAuditLog, 0, len(r.auditLogs))
	for _, entry := range r.auditLogs {
		if filter.AssetID != "" && entry.AssetID != filter.AssetID {
			continue
		}
		entryCopy := *entry
		result = append(result, &entryCopy)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DownloadedAt.Before(result[j].DownloadedAt)
	})
	return result, nil
}

// page clamps offset and limit to [0, n]. A non-positive limit means no limit.
func page(n, offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}
