package simplerights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/simple-rights/pkg/simplerights/archivekey"
)

// service implements the Service interface
type service struct {
	repository Repository
	eventSink  EventSink
	archive    BlobStore
	keyGen     archivekey.Generator
	logger     *slog.Logger
	clock      Clock
	engineOpts []EngineOption
	engine     *Engine
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithArchive sets the blob store used by ArchiveReport
func WithArchive(store BlobStore) Option {
	return func(s *service) {
		s.archive = store
	}
}

// WithArchiveKeyGenerator overrides the archive key strategy
func WithArchiveKeyGenerator(gen archivekey.Generator) Option {
	return func(s *service) {
		s.keyGen = gen
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithClock sets the clock used for every rights evaluation
func WithClock(clock Clock) Option {
	return func(s *service) {
		s.clock = clock
	}
}

// WithQuotaThreshold sets the quota fraction that raises a warning
func WithQuotaThreshold(threshold float64) Option {
	return func(s *service) {
		s.engineOpts = append(s.engineOpts, WithEngineQuotaThreshold(threshold))
	}
}

// WithExpiringWindow sets the default lookahead, in days, for expiring rights
func WithExpiringWindow(days int) Option {
	return func(s *service) {
		s.engineOpts = append(s.engineOpts, WithEngineExpiringWindow(days))
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		keyGen: archivekey.NewRecommendedGenerator(),
		clock:  SystemClock(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}

	s.engine = NewEngine(append([]EngineOption{WithEngineClock(s.clock)}, s.engineOpts...)...)
	return s, nil
}

// Rights operations

func (s *service) PutRights(ctx context.Context, rights *AssetRights) (*AssetRights, error) {
	if rights == nil {
		return nil, fmt.Errorf("%w: rights record is required", ErrInvalidRights)
	}
	record := rights.Clone()
	record.AssetID = strings.TrimSpace(record.AssetID)
	if err := record.Validate(); err != nil {
		return nil, err
	}

	now := s.engine.Now()
	existing, err := s.repository.GetRights(ctx, record.AssetID)
	switch {
	case err == nil:
		// CreatedAt and CreatedBy are immutable after creation.
		record.CreatedAt = existing.CreatedAt
		record.CreatedBy = existing.CreatedBy
	case errors.Is(err, ErrRightsNotFound):
		record.CreatedAt = now
	default:
		return nil, &RightsError{AssetID: record.AssetID, Op: "get", Err: err}
	}
	record.UpdatedAt = now

	if err := s.repository.PutRights(ctx, record); err != nil {
		return nil, &RightsError{AssetID: record.AssetID, Op: "put", Err: err}
	}
	if record.AssetName != "" {
		if err := s.repository.PutAsset(ctx, Asset{ID: record.AssetID, Name: record.AssetName}); err != nil {
			s.logger.Warn("Failed to register asset name", "asset_id", record.AssetID, "err", err)
		}
	}

	if err := s.eventSink.RightsUpdated(ctx, record); err != nil {
		s.logger.Warn("Event sink failed", "event", "rights_updated", "asset_id", record.AssetID, "err", err)
	}
	s.logger.Info("Rights saved", "asset_id", record.AssetID, "status", s.engine.Status(record))

	return record, nil
}

func (s *service) GetRights(ctx context.Context, assetID string) (*AssetRights, error) {
	return s.repository.GetRights(ctx, strings.TrimSpace(assetID))
}

func (s *service) DeleteRights(ctx context.Context, assetID string) error {
	assetID = strings.TrimSpace(assetID)
	if err := s.repository.DeleteRights(ctx, assetID); err != nil {
		return &RightsError{AssetID: assetID, Op: "delete", Err: err}
	}
	if err := s.eventSink.RightsDeleted(ctx, assetID); err != nil {
		s.logger.Warn("Event sink failed", "event", "rights_deleted", "asset_id", assetID, "err", err)
	}
	return nil
}

func (s *service) ListRights(ctx context.Context, req ListRightsRequest) ([]*AssetRights, error) {
	return s.repository.ListRights(ctx, ListRightsFilter{Limit: req.Limit, Offset: req.Offset})
}

func (s *service) GetRightsStatus(ctx context.Context, assetID string) (RightsStatus, error) {
	rights, err := s.lookupRights(ctx, assetID)
	if err != nil {
		return RightsStatusUnknown, err
	}
	return s.engine.Status(rights), nil
}

func (s *service) GetExpiringRights(ctx context.Context, windowDays int) ([]AssetRights, error) {
	all, err := s.allRights(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Expiring(all, windowDays), nil
}

// Asset catalog operations

func (s *service) RegisterAsset(ctx context.Context, asset Asset) error {
	asset.ID = strings.TrimSpace(asset.ID)
	if asset.ID == "" {
		return fmt.Errorf("%w: asset id is required", ErrInvalidRights)
	}
	return s.repository.PutAsset(ctx, asset)
}

// Download operations

func (s *service) ValidateDownload(ctx context.Context, in ValidateDownloadInput) (DownloadValidationResult, error) {
	req, err := s.newDownloadRequest(in)
	if err != nil {
		return DownloadValidationResult{}, err
	}
	rights, err := s.lookupRights(ctx, req.AssetID)
	if err != nil {
		return DownloadValidationResult{}, err
	}

	result := s.engine.Validate(req, rights)
	if err := s.eventSink.DownloadValidated(ctx, req, result); err != nil {
		s.logger.Warn("Event sink failed", "event", "download_validated", "asset_id", req.AssetID, "err", err)
	}
	s.logger.Info("Download validated",
		"request_id", req.ID.String(),
		"asset_id", req.AssetID,
		"usage", req.IntendedUsage,
		"territory", req.Territory,
		"allowed", result.Allowed,
		"blockers", len(result.Blockers),
		"warnings", len(result.Warnings))

	return result, nil
}

func (s *service) RecordDownload(ctx context.Context, in RecordDownloadRequest) (*DownloadAuditLog, error) {
	req, err := s.newDownloadRequest(in.Request)
	if err != nil {
		return nil, err
	}
	if req.RequesterID == "" {
		return nil, fmt.Errorf("%w: requester_id is required", ErrInvalidDownloadRequest)
	}
	rights, err := s.lookupRights(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}

	result := s.engine.Validate(req, rights)
	if !result.Allowed {
		s.logger.Warn("Download refused", "asset_id", req.AssetID, "blockers", result.Blockers)
		return nil, &DownloadDeniedError{AssetID: req.AssetID, Result: result}
	}

	entry := &DownloadAuditLog{
		ID:             uuid.New(),
		AssetID:        req.AssetID,
		AssetName:      rights.AssetName,
		DownloadedBy:   req.RequesterID,
		DownloadedAt:   req.RequestedAt,
		UsageType:      req.IntendedUsage,
		Territory:      req.Territory,
		ProjectID:      req.ProjectID,
		File:           in.File,
		RightsSnapshot: rights.Snapshot(),
		IPAddress:      in.IPAddress,
		UserAgent:      in.UserAgent,
	}
	if err := s.repository.RecordDownload(ctx, entry); err != nil {
		if errors.Is(err, ErrQuotaExhausted) {
			return nil, s.quotaDenied(ctx, req)
		}
		return nil, &RightsError{AssetID: req.AssetID, Op: "record_download", Err: err}
	}

	if err := s.eventSink.DownloadRecorded(ctx, entry); err != nil {
		s.logger.Warn("Event sink failed", "event", "download_recorded", "asset_id", req.AssetID, "err", err)
	}
	s.logger.Info("Download recorded", "audit_id", entry.ID.String(), "asset_id", entry.AssetID, "downloaded_by", entry.DownloadedBy)

	return entry, nil
}

// quotaDenied builds the refusal for a download that passed validation but
// lost the race for the last slot of the quota.
func (s *service) quotaDenied(ctx context.Context, req DownloadRequest) error {
	result := DownloadValidationResult{ValidatedAt: req.RequestedAt}
	if latest, err := s.lookupRights(ctx, req.AssetID); err == nil {
		result = s.engine.Validate(req, latest)
	}
	if result.Allowed || len(result.Blockers) == 0 {
		result.Allowed = false
		result.Blockers = append(result.Blockers, "Download quota exhausted")
	}
	s.logger.Warn("Download refused", "asset_id", req.AssetID, "blockers", result.Blockers)
	return &DownloadDeniedError{AssetID: req.AssetID, Result: result}
}

func (s *service) ListAuditLogs(ctx context.Context, filter AuditLogFilter) ([]*DownloadAuditLog, error) {
	return s.repository.ListAuditLogs(ctx, filter)
}

// Reporting operations

func (s *service) GenerateReport(ctx context.Context) (RightsReport, error) {
	rights, err := s.allRights(ctx)
	if err != nil {
		return RightsReport{}, err
	}

	assets, err := s.repository.ListAssets(ctx)
	if err != nil {
		return RightsReport{}, fmt.Errorf("failed to list assets: %w", err)
	}
	names := make(map[string]string, len(assets))
	for _, a := range assets {
		names[a.ID] = a.Name
	}

	entries, err := s.repository.ListAuditLogs(ctx, AuditLogFilter{})
	if err != nil {
		return RightsReport{}, fmt.Errorf("failed to list audit logs: %w", err)
	}
	logs := make([]DownloadAuditLog, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, *e)
	}

	report := s.engine.Report(rights, names, logs)
	report.ID = uuid.New()
	s.logger.Info("Rights report generated",
		"report_id", report.ID.String(),
		"total_assets", report.Summary.TotalAssets,
		"expired", report.Summary.AssetsWithExpiredRights,
		"no_rights", report.Summary.AssetsWithNoRights)
	return report, nil
}

func (s *service) ArchiveReport(ctx context.Context, report RightsReport) (*ArchivedReport, error) {
	if s.archive == nil {
		return nil, ErrArchiveNotConfigured
	}
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}

	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}

	key := s.keyGen.GenerateKey(report.ID, report.GeneratedAt, nil)
	if err := s.archive.UploadWithParams(ctx, bytes.NewReader(body), UploadParams{
		ObjectKey: key,
		MimeType:  "application/json",
	}); err != nil {
		return nil, &ArchiveError{Key: key, Op: "upload", Err: err}
	}

	archived := &ArchivedReport{ReportID: report.ID, ObjectKey: key}
	filename := fmt.Sprintf("rights-report-%s.json", report.GeneratedAt.UTC().Format("20060102"))
	if url, err := s.archive.GetDownloadURL(ctx, key, filename); err == nil {
		archived.DownloadURL = url
	}
	s.logger.Info("Rights report archived", "report_id", report.ID.String(), "key", key)
	return archived, nil
}

func (s *service) OpenArchivedReport(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	if s.archive == nil {
		return nil, ErrArchiveNotConfigured
	}
	rc, err := s.archive.Download(ctx, objectKey)
	if err != nil {
		return nil, &ArchiveError{Key: objectKey, Op: "download", Err: err}
	}
	return rc, nil
}

// lookupRights resolves the current record for an asset; absence is nil.
func (s *service) lookupRights(ctx context.Context, assetID string) (*AssetRights, error) {
	rights, err := s.repository.GetRights(ctx, strings.TrimSpace(assetID))
	if err != nil {
		if errors.Is(err, ErrRightsNotFound) {
			return nil, nil
		}
		return nil, &RightsError{AssetID: assetID, Op: "get", Err: err}
	}
	return rights, nil
}

func (s *service) allRights(ctx context.Context) ([]AssetRights, error) {
	records, err := s.repository.ListRights(ctx, ListRightsFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list rights: %w", err)
	}
	out := make([]AssetRights, 0, len(records))
	for _, r := range records {
		out = append(out, *r)
	}
	return out, nil
}

func (s *service) newDownloadRequest(in ValidateDownloadInput) (DownloadRequest, error) {
	req := DownloadRequest{
		ID:            uuid.New(),
		AssetID:       strings.TrimSpace(in.AssetID),
		RequesterID:   strings.TrimSpace(in.RequesterID),
		RequestedAt:   s.engine.Now(),
		IntendedUsage: NormalizeUsage(string(in.IntendedUsage)),
		Territory:     NormalizeTerritory(string(in.Territory)),
		ProjectID:     in.ProjectID,
		Notes:         in.Notes,
	}
	if req.AssetID == "" {
		return DownloadRequest{}, fmt.Errorf("%w: asset_id is required", ErrInvalidDownloadRequest)
	}
	if req.IntendedUsage == "" {
		return DownloadRequest{}, fmt.Errorf("%w: intended_usage is required", ErrInvalidDownloadRequest)
	}
	if req.Territory == "" {
		return DownloadRequest{}, fmt.Errorf("%w: territory is required", ErrInvalidDownloadRequest)
	}
	return req, nil
}
