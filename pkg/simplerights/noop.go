package simplerights

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) RightsUpdated(ctx context.Context, rights *AssetRights) error {
	return nil
}

func (n *NoopEventSink) RightsDeleted(ctx context.Context, assetID string) error {
	return nil
}

func (n *NoopEventSink) DownloadValidated(ctx context.Context, req DownloadRequest, result DownloadValidationResult) error {
	return nil
}

func (n *NoopEventSink) DownloadRecorded(ctx context.Context, entry *DownloadAuditLog) error {
	return nil
}

func (n *NoopEventSink) RightsExpiring(ctx context.Context, rights *AssetRights, daysLeft int) error {
	return nil
}

// LogEventSink writes every event as a structured log record.
type LogEventSink struct {
	logger *slog.Logger
}

// NewLogEventSink creates an event sink backed by logger, or slog.Default when nil.
func NewLogEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEventSink{logger: logger.With("component", "rights_events")}
}

func (l *LogEventSink) RightsUpdated(ctx context.Context, rights *AssetRights) error {
	l.logger.InfoContext(ctx, "rights.updated", "asset_id", rights.AssetID, "updated_at", rights.UpdatedAt)
	return nil
}

func (l *LogEventSink) RightsDeleted(ctx context.Context, assetID string) error {
	l.logger.InfoContext(ctx, "rights.deleted", "asset_id", assetID)
	return nil
}

func (l *LogEventSink) DownloadValidated(ctx context.Context, req DownloadRequest, result DownloadValidationResult) error {
	level := slog.LevelInfo
	if !result.Allowed {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "download.validated",
		"request_id", req.ID.String(),
		"asset_id", req.AssetID,
		"requester_id", req.RequesterID,
		"allowed", result.Allowed,
		"blockers", result.Blockers)
	return nil
}

func (l *LogEventSink) DownloadRecorded(ctx context.Context, entry *DownloadAuditLog) error {
	l.logger.InfoContext(ctx, "download.recorded",
		"audit_id", entry.ID.String(),
		"asset_id", entry.AssetID,
		"downloaded_by", entry.DownloadedBy,
		"usage", entry.UsageType,
		"territory", entry.Territory)
	return nil
}

func (l *LogEventSink) RightsExpiring(ctx context.Context, rights *AssetRights, daysLeft int) error {
	l.logger.WarnContext(ctx, "rights.expiring", "asset_id", rights.AssetID, "days_left", daysLeft)
	return nil
}
