package simplerights

import "time"

var testNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func day(year int, month time.Month, d int) *time.Time {
	t := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func daysFromNow(n int) *time.Time {
	t := testNow.AddDate(0, 0, n)
	return &t
}

func intPtr(v int) *int {
	return &v
}

// openRights returns a record that permits internal and digital use worldwide.
func openRights(assetID string) AssetRights {
	return AssetRights{
		AssetID:            assetID,
		AssetName:          "Asset " + assetID,
		RightsHolder:       RightsHolder{Name: "Northwind Pictures", ContactEmail: "legal@northwind.example"},
		ValidFrom:          day(2024, 1, 1),
		ValidUntil:         day(2026, 1, 1),
		AllowedUsageTypes:  []UsageType{UsageInternal, UsageDigital},
		AllowedTerritories: Worldwide(),
	}
}

func requestFor(assetID string, usage UsageType, territory Territory) DownloadRequest {
	return DownloadRequest{
		AssetID:       assetID,
		RequesterID:   "user-1",
		RequestedAt:   testNow,
		IntendedUsage: usage,
		Territory:     territory,
	}
}
