// Package presets builds ready-to-use rights services for common setups.
package presets

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/tendant/simple-rights/pkg/simplerights"
	"github.com/tendant/simple-rights/pkg/simplerights/config"
	memoryrepo "github.com/tendant/simple-rights/pkg/simplerights/repo/memory"
	fsstorage "github.com/tendant/simple-rights/pkg/simplerights/storage/fs"
	memorystorage "github.com/tendant/simple-rights/pkg/simplerights/storage/memory"
)

// NewDevelopment creates a service for local development: in-memory rights,
// reports archived under ./dev-data and event logging on.
//
// The returned cleanup removes the archive directory.
//
//	svc, cleanup, err := presets.NewDevelopment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func NewDevelopment(opts ...DevelopmentOption) (simplerights.Service, func(), error) {
	cfg := &devConfig{archiveDir: "./dev-data"}
	for _, opt := range opts {
		opt(cfg)
	}

	archive, err := fsstorage.New(fsstorage.Config{BaseDir: cfg.archiveDir})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create filesystem archive: %w", err)
	}

	svc, err := simplerights.New(
		simplerights.WithRepository(memoryrepo.New()),
		simplerights.WithArchive(archive),
		simplerights.WithEventSink(simplerights.NewLogEventSink(nil)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}

	cleanup := func() {
		os.RemoveAll(cfg.archiveDir)
	}
	return svc, cleanup, nil
}

// NewTesting creates an isolated in-memory service for tests. Reports are
// archived in memory and events are discarded.
//
//	func TestMyFeature(t *testing.T) {
//	    svc := presets.NewTesting(t, presets.WithTestClock(now))
//	}
func NewTesting(t testing.TB, opts ...TestingOption) simplerights.Service {
	t.Helper()
	cfg := &testConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	options := []simplerights.Option{
		simplerights.WithRepository(memoryrepo.New()),
		simplerights.WithArchive(memorystorage.New()),
	}
	if !cfg.now.IsZero() {
		options = append(options, simplerights.WithClock(simplerights.FixedClock(cfg.now)))
	}

	svc, err := simplerights.New(options...)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}

	if cfg.fixtures {
		now := cfg.now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		for _, rights := range Fixtures(now) {
			if _, err := svc.PutRights(context.Background(), rights); err != nil {
				t.Fatalf("failed to load fixture %s: %v", rights.AssetID, err)
			}
		}
	}
	return svc
}

// NewProduction builds a service from the environment and refuses
// non-durable backends.
//
// Required: DATABASE_URL (postgres) and ARCHIVE_URL (file:// or s3://).
func NewProduction(ctx context.Context, opts ...config.Option) (simplerights.Service, error) {
	all := append([]config.Option{config.WithEnvironment("production"), config.WithEnv()}, opts...)
	cfg, err := config.Load(all...)
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseType != "postgres" {
		return nil, fmt.Errorf("production preset requires a postgres DATABASE_URL, got %s", cfg.DatabaseType)
	}
	if cfg.ArchiveStorage.Type != "fs" && cfg.ArchiveStorage.Type != "s3" {
		return nil, fmt.Errorf("production preset requires a persistent report archive (fs or s3), got %q", cfg.ArchiveStorage.Type)
	}
	return cfg.BuildService(ctx)
}

// Fixtures returns sample rights records covering every status relative to now.
func Fixtures(now time.Time) []*simplerights.AssetRights {
	at := func(days int) *time.Time {
		t := now.AddDate(0, 0, days)
		return &t
	}
	quota := 10

	return []*simplerights.AssetRights{
		{
			AssetID:            "fixture-valid",
			AssetName:          "Harbor Timelapse",
			RightsHolder:       simplerights.RightsHolder{Name: "Northwind Pictures", ContactEmail: "licensing@northwind.example"},
			ValidFrom:          at(-365),
			ValidUntil:         at(365),
			AllowedUsageTypes:  []simplerights.UsageType{simplerights.UsageInternal, simplerights.UsageDigital},
			AllowedTerritories: simplerights.Worldwide(),
			MaxDownloads:       &quota,
		},
		{
			AssetID:            "fixture-expiring",
			AssetName:          "Festival Crowd",
			RightsHolder:       simplerights.RightsHolder{Name: "Contoso Stock"},
			ValidUntil:         at(10),
			AllowedUsageTypes:  []simplerights.UsageType{simplerights.UsageDigital, simplerights.UsageSocialMedia},
			AllowedTerritories: simplerights.Territories("US", "CA"),
			RequiresWatermark:  true,
			WatermarkText:      "Contoso Stock",
		},
		{
			AssetID:            "fixture-expired",
			AssetName:          "Archive Interview",
			RightsHolder:       simplerights.RightsHolder{Name: "Fabrikam Media"},
			ValidFrom:          at(-400),
			ValidUntil:         at(-5),
			AllowedUsageTypes:  []simplerights.UsageType{simplerights.UsageBroadcast},
			AllowedTerritories: simplerights.Worldwide(),
		},
		{
			AssetID:            "fixture-pending",
			AssetName:          "Product Launch",
			RightsHolder:       simplerights.RightsHolder{Name: "Northwind Pictures"},
			ValidFrom:          at(20),
			AllowedUsageTypes:  []simplerights.UsageType{simplerights.UsageDigital},
			AllowedTerritories: simplerights.Worldwide(),
			RequiresApproval:   true,
			ApproverRoles:      []string{"legal"},
		},
		{
			AssetID:            "fixture-restricted",
			AssetName:          "Embargoed Still",
			RightsHolder:       simplerights.RightsHolder{Name: "Fabrikam Media"},
			AllowedUsageTypes:  []simplerights.UsageType{simplerights.UsageInternal},
			AllowedTerritories: simplerights.Territories(),
		},
	}
}

// devConfig holds development preset configuration
type devConfig struct {
	archiveDir string
}

// testConfig holds testing preset configuration
type testConfig struct {
	now      time.Time
	fixtures bool
}

// DevelopmentOption is a functional option for NewDevelopment
type DevelopmentOption func(*devConfig)

// WithDevArchive sets the development archive directory
func WithDevArchive(dir string) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.archiveDir = dir
	}
}

// TestingOption is a functional option for NewTesting
type TestingOption func(*testConfig)

// WithTestClock pins the service clock
func WithTestClock(now time.Time) TestingOption {
	return func(cfg *testConfig) {
		cfg.now = now
	}
}

// WithTestFixtures loads the records returned by Fixtures
func WithTestFixtures() TestingOption {
	return func(cfg *testConfig) {
		cfg.fixtures = true
	}
}
