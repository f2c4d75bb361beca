package simplerights

import (
	"fmt"
	"sort"
	"time"
)

// Report issue texts.
const (
	IssueNoRights           = "No rights on file"
	IssueExpired            = "Rights expired"
	IssuePending            = "Rights not yet active"
	IssueRestricted         = "All licensed territories are restricted"
	IssueQuotaExhausted     = "Download quota exhausted"
	IssueQuotaApproaching   = "Approaching download quota"
	issueExpiresInFormat    = "Rights expire in %d days"
	issueAfterExpiryFormat  = "%d downloads recorded after rights expired"
	issueOutsideScopeFormat = "%d downloads recorded outside licensed usage or territory"
)

// ReportOption configures GenerateRightsReport.
type ReportOption func(*reportConfig)

type reportConfig struct {
	expiringWindowDays    int
	quotaWarningThreshold float64
}

// WithExpiringWindowDays sets the lookahead used for "expiring soon".
func WithExpiringWindowDays(days int) ReportOption {
	return func(c *reportConfig) {
		if days > 0 {
			c.expiringWindowDays = days
		}
	}
}

// WithReportQuotaThreshold sets the quota fraction flagged as approaching.
func WithReportQuotaThreshold(threshold float64) ReportOption {
	return func(c *reportConfig) {
		if threshold > 0 && threshold <= 1 {
			c.quotaWarningThreshold = threshold
		}
	}
}

// assetLedger accumulates the download history of one asset.
type assetLedger struct {
	name           string
	downloads      int
	lastDownloadAt *time.Time
	afterExpiry    int
	outsideScope   int
}

// GenerateRightsReport aggregates rights statuses and download history.
//
// Every asset present in rights, assetNames or logs gets exactly one detail
// row; an asset with no record and no downloads still appears as unknown.
// GeneratedAt is now.
func GenerateRightsReport(rights []AssetRights, assetNames map[string]string, logs []DownloadAuditLog, now time.Time, opts ...ReportOption) RightsReport {
	cfg := reportConfig{
		expiringWindowDays:    DefaultExpiryWindowDays,
		quotaWarningThreshold: DefaultQuotaWarningThreshold,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	byAsset := make(map[string]*AssetRights, len(rights))
	for i := range rights {
		// The last record for an asset is the current one.
		byAsset[rights[i].AssetID] = &rights[i]
	}

	ledgers := make(map[string]*assetLedger)
	ledgerFor := func(id string) *assetLedger {
		l, ok := ledgers[id]
		if !ok {
			l = &assetLedger{}
			ledgers[id] = l
		}
		return l
	}
	for id := range byAsset {
		ledgerFor(id)
	}
	for id := range assetNames {
		ledgerFor(id)
	}
	for _, entry := range logs {
		l := ledgerFor(entry.AssetID)
		l.downloads++
		at := entry.DownloadedAt
		if l.lastDownloadAt == nil || at.After(*l.lastDownloadAt) {
			l.lastDownloadAt = &at
			if entry.AssetName != "" {
				l.name = entry.AssetName
			}
		}
		if downloadedAfterExpiry(entry) {
			l.afterExpiry++
		}
		if downloadedOutsideScope(entry) {
			l.outsideScope++
		}
	}

	horizon := now.AddDate(0, 0, cfg.expiringWindowDays)
	report := RightsReport{
		GeneratedAt: now,
		Assets:      make([]AssetReport, 0, len(ledgers)),
	}
	report.Summary.TotalAssets = len(ledgers)
	report.Summary.AssetsWithRights = len(byAsset)
	report.Summary.TotalDownloads = len(logs)

	for id, ledger := range ledgers {
		record := byAsset[id]
		row := AssetReport{
			AssetID:        id,
			AssetName:      displayName(id, assetNames, record, ledger),
			Status:         StatusOf(record, now),
			Issues:         []string{},
			TotalDownloads: ledger.downloads,
			LastDownloadAt: ledger.lastDownloadAt,
		}

		switch row.Status {
		case RightsStatusUnknown:
			report.Summary.AssetsWithNoRights++
			row.Issues = append(row.Issues, IssueNoRights)
		case RightsStatusExpired:
			report.Summary.AssetsWithExpiredRights++
			row.Issues = append(row.Issues, IssueExpired)
		case RightsStatusPending:
			row.Issues = append(row.Issues, IssuePending)
		case RightsStatusRestricted:
			row.Issues = append(row.Issues, IssueRestricted)
		case RightsStatusValid:
			report.Summary.AssetsWithValidRights++
			if isExpiringWithin(*record, now, horizon) {
				report.Summary.AssetsExpiringSoon++
				row.Issues = append(row.Issues, fmt.Sprintf(issueExpiresInFormat, daysUntil(*record.ValidUntil, now)))
			}
		}

		if record != nil && record.MaxDownloads != nil {
			switch {
			case record.CurrentDownloads >= *record.MaxDownloads:
				row.Issues = append(row.Issues, IssueQuotaExhausted)
			case quotaApproaching(record.CurrentDownloads, *record.MaxDownloads, cfg.quotaWarningThreshold):
				row.Issues = append(row.Issues, IssueQuotaApproaching)
			}
		}
		if ledger.afterExpiry > 0 {
			row.Issues = append(row.Issues, fmt.Sprintf(issueAfterExpiryFormat, ledger.afterExpiry))
		}
		if ledger.outsideScope > 0 {
			row.Issues = append(row.Issues, fmt.Sprintf(issueOutsideScopeFormat, ledger.outsideScope))
		}

		report.Assets = append(report.Assets, row)
	}

	sort.Slice(report.Assets, func(i, j int) bool {
		if report.Assets[i].AssetName != report.Assets[j].AssetName {
			return report.Assets[i].AssetName < report.Assets[j].AssetName
		}
		return report.Assets[i].AssetID < report.Assets[j].AssetID
	})

	return report
}

func displayName(id string, names map[string]string, record *AssetRights, ledger *assetLedger) string {
	if n := names[id]; n != "" {
		return n
	}
	if record != nil && record.AssetName != "" {
		return record.AssetName
	}
	if ledger.name != "" {
		return ledger.name
	}
	return id
}

// downloadedAfterExpiry checks a download against the terms frozen on it.
func downloadedAfterExpiry(entry DownloadAuditLog) bool {
	until := entry.RightsSnapshot.ValidUntil
	return until != nil && entry.DownloadedAt.After(*until)
}

// downloadedOutsideScope reports a download whose usage or territory was not
// covered by the terms frozen on it.
func downloadedOutsideScope(entry DownloadAuditLog) bool {
	snap := entry.RightsSnapshot
	if entry.UsageType != "" && len(snap.AllowedUsages) > 0 &&
		!containsUsage(snap.AllowedUsages, NormalizeUsage(string(entry.UsageType))) {
		return true
	}
	if entry.Territory != "" && !snap.Territories.IsWorldwide() && len(snap.Territories.Codes()) > 0 &&
		!snap.Territories.Contains(entry.Territory) {
		return true
	}
	return false
}
