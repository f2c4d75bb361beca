package presets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-rights/pkg/simplerights"
)

var presetNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func TestNewDevelopment(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dev-data")
	svc, cleanup, err := NewDevelopment(WithDevArchive(dir))
	require.NoError(t, err)
	require.NotNil(t, cleanup)

	ctx := context.Background()
	report, err := svc.GenerateReport(ctx)
	require.NoError(t, err)

	archived, err := svc.ArchiveReport(ctx, report)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, archived.ObjectKey))
	require.NoError(t, err)

	cleanup()
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "archive directory should be removed after cleanup")
}

func TestNewTesting(t *testing.T) {
	svc := NewTesting(t, WithTestClock(presetNow))

	rights, err := svc.ListRights(context.Background(), simplerights.ListRightsRequest{})
	require.NoError(t, err)
	assert.Empty(t, rights)
}

func TestNewTesting_Fixtures(t *testing.T) {
	svc := NewTesting(t, WithTestClock(presetNow), WithTestFixtures())
	ctx := context.Background()

	tests := []struct {
		assetID string
		want    simplerights.RightsStatus
	}{
		{assetID: "fixture-valid", want: simplerights.RightsStatusValid},
		{assetID: "fixture-expiring", want: simplerights.RightsStatusValid},
		{assetID: "fixture-expired", want: simplerights.RightsStatusExpired},
		{assetID: "fixture-pending", want: simplerights.RightsStatusPending},
		{assetID: "fixture-restricted", want: simplerights.RightsStatusRestricted},
	}
	for _, tt := range tests {
		t.Run(tt.assetID, func(t *testing.T) {
			status, err := svc.GetRightsStatus(ctx, tt.assetID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}

	expiring, err := svc.GetExpiringRights(ctx, 30)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "fixture-expiring", expiring[0].AssetID)
}

func TestNewProduction_RejectsMemoryBackends(t *testing.T) {
	t.Setenv("DATABASE_URL", "memory")
	_, err := NewProduction(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}
