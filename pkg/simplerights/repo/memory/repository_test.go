package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-rights/pkg/simplerights"
	"github.com/tendant/simple-rights/pkg/simplerights/repo/memory"
)

func newRights(assetID string) *simplerights.AssetRights {
	until := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &simplerights.AssetRights{
		AssetID:            assetID,
		AssetName:          "Asset " + assetID,
		ValidUntil:         &until,
		AllowedUsageTypes:  []simplerights.UsageType{simplerights.UsageInternal},
		AllowedTerritories: simplerights.Territories("US", "CA"),
	}
}

func TestMemoryRepository_RightsOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	t.Run("PutAndGet", func(t *testing.T) {
		rights := newRights("asset-1")
		require.NoError(t, repo.PutRights(ctx, rights))

		retrieved, err := repo.GetRights(ctx, "asset-1")
		require.NoError(t, err)
		assert.Equal(t, rights.AssetName, retrieved.AssetName)
		assert.Equal(t, []simplerights.Territory{"US", "CA"}, retrieved.AllowedTerritories.Codes())
	})

	t.Run("StoredCopyIsIsolated", func(t *testing.T) {
		rights := newRights("asset-2")
		require.NoError(t, repo.PutRights(ctx, rights))
		rights.AllowedUsageTypes[0] = simplerights.UsageBroadcast

		retrieved, err := repo.GetRights(ctx, "asset-2")
		require.NoError(t, err)
		assert.Equal(t, simplerights.UsageInternal, retrieved.AllowedUsageTypes[0])

		retrieved.AssetName = "mutated"
		again, err := repo.GetRights(ctx, "asset-2")
		require.NoError(t, err)
		assert.Equal(t, "Asset asset-2", again.AssetName)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.GetRights(ctx, "missing")
		assert.ErrorIs(t, err, simplerights.ErrRightsNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.PutRights(ctx, newRights("asset-3")))
		require.NoError(t, repo.DeleteRights(ctx, "asset-3"))

		_, err := repo.GetRights(ctx, "asset-3")
		assert.ErrorIs(t, err, simplerights.ErrRightsNotFound)
		assert.ErrorIs(t, repo.DeleteRights(ctx, "asset-3"), simplerights.ErrRightsNotFound)
	})
}

func TestMemoryRepository_ListRightsPaging(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	for i := 5; i >= 1; i-- {
		require.NoError(t, repo.PutRights(ctx, newRights(fmt.Sprintf("asset-%d", i))))
	}

	tests := []struct {
		name   string
		filter simplerights.ListRightsFilter
		want   []string
	}{
		{name: "all", filter: simplerights.ListRightsFilter{}, want: []string{"asset-1", "asset-2", "asset-3", "asset-4", "asset-5"}},
		{name: "first page", filter: simplerights.ListRightsFilter{Limit: 2}, want: []string{"asset-1", "asset-2"}},
		{name: "second page", filter: simplerights.ListRightsFilter{Limit: 2, Offset: 2}, want: []string{"asset-3", "asset-4"}},
		{name: "past the end", filter: simplerights.ListRightsFilter{Limit: 2, Offset: 10}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListRights(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.AssetID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMemoryRepository_Assets(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	require.NoError(t, repo.PutAsset(ctx, simplerights.Asset{ID: "b", Name: "Beta"}))
	require.NoError(t, repo.PutAsset(ctx, simplerights.Asset{ID: "a", Name: "Alpha"}))
	require.NoError(t, repo.PutAsset(ctx, simplerights.Asset{ID: "a", Name: "Alpha v2"}))

	assets, err := repo.ListAssets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []simplerights.Asset{{ID: "a", Name: "Alpha v2"}, {ID: "b", Name: "Beta"}}, assets)
}

func TestMemoryRepository_RecordDownload(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	require.NoError(t, repo.PutRights(ctx, newRights("asset-1")))

	base := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := repo.RecordDownload(ctx, &simplerights.DownloadAuditLog{
			ID:           uuid.New(),
			AssetID:      "asset-1",
			DownloadedBy: "user-1",
			DownloadedAt: base.Add(time.Duration(-i) * time.Hour),
		})
		require.NoError(t, err)
	}
	require.NoError(t, repo.PutRights(ctx, newRights("asset-2")))
	require.NoError(t, repo.RecordDownload(ctx, &simplerights.DownloadAuditLog{
		ID:           uuid.New(),
		AssetID:      "asset-2",
		DownloadedAt: base,
	}))

	rights, err := repo.GetRights(ctx, "asset-1")
	require.NoError(t, err)
	assert.Equal(t, 3, rights.CurrentDownloads)

	logs, err := repo.ListAuditLogs(ctx, simplerights.AuditLogFilter{AssetID: "asset-1"})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.True(t, logs[0].DownloadedAt.Before(logs[2].DownloadedAt))

	all, err := repo.ListAuditLogs(ctx, simplerights.AuditLogFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	err = repo.RecordDownload(ctx, &simplerights.DownloadAuditLog{ID: uuid.New(), AssetID: "missing"})
	assert.ErrorIs(t, err, simplerights.ErrRightsNotFound)
	all, err = repo.ListAuditLogs(ctx, simplerights.AuditLogFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestMemoryRepository_ConcurrentRecordDownload(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	require.NoError(t, repo.PutRights(ctx, newRights("asset-1")))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.RecordDownload(ctx, &simplerights.DownloadAuditLog{ID: uuid.New(), AssetID: "asset-1"})
		}()
	}
	wg.Wait()

	rights, err := repo.GetRights(ctx, "asset-1")
	require.NoError(t, err)
	assert.Equal(t, 50, rights.CurrentDownloads)
}

func TestMemoryRepository_RecordDownloadStopsAtQuota(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	rights := newRights("asset-1")
	quota := 5
	rights.MaxDownloads = &quota
	require.NoError(t, repo.PutRights(ctx, rights))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		recorded  int
		exhausted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.RecordDownload(ctx, &simplerights.DownloadAuditLog{ID: uuid.New(), AssetID: "asset-1"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				recorded++
			} else if assert.ErrorIs(t, err, simplerights.ErrQuotaExhausted) {
				exhausted++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, quota, recorded)
	assert.Equal(t, 15, exhausted)

	stored, err := repo.GetRights(ctx, "asset-1")
	require.NoError(t, err)
	assert.Equal(t, quota, stored.CurrentDownloads)

	logs, err := repo.ListAuditLogs(ctx, simplerights.AuditLogFilter{AssetID: "asset-1"})
	require.NoError(t, err)
	assert.Len(t, logs, quota)
}
