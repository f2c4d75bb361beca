package sweep

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-rights/pkg/simplerights"
)

// Sweeper pages through rights records and hands each to a processor.
type Sweeper struct {
	svc    simplerights.Service
	logger *slog.Logger
}

// New creates a new Sweeper instance.
func New(svc simplerights.Service, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{svc: svc, logger: logger}
}

// SweepOptions configures the sweep operation.
type SweepOptions struct {
	// Processor defines the processing logic (required unless DryRun is true)
	Processor RightsProcessor

	// Filter selects records to process; nil selects every record
	Filter func(*simplerights.AssetRights) bool

	// BatchSize controls how many records to query at once (default: 100)
	BatchSize int

	// DryRun logs what would be processed without calling the processor
	DryRun bool

	// OnProgress is called after each batch (optional)
	OnProgress func(processed, total int64)
}

// SweepResult contains statistics about the sweep operation.
type SweepResult struct {
	// TotalFound is the number of records that passed the filter
	TotalFound int64

	// TotalProcessed is the number of records successfully processed
	TotalProcessed int64

	// TotalFailed is the number of records that failed processing
	TotalFailed int64

	// FailedIDs contains the asset IDs that failed processing
	FailedIDs []string
}

// Sweep lists rights records in batches and processes each matching one.
// A failed record is recorded and the sweep continues.
func (s *Sweeper) Sweep(ctx context.Context, opts SweepOptions) (*SweepResult, error) {
	result := &SweepResult{}

	if !opts.DryRun && opts.Processor == nil {
		return result, fmt.Errorf("processor is required when DryRun is false")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch, err := s.svc.ListRights(ctx, simplerights.ListRightsRequest{
			Limit:  opts.BatchSize,
			Offset: offset,
		})
		if err != nil {
			return result, fmt.Errorf("failed to list rights: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, rights := range batch {
			if opts.Filter != nil && !opts.Filter(rights) {
				continue
			}
			result.TotalFound++

			if opts.DryRun {
				s.logger.Info("Dry run: would process rights", "asset_id", rights.AssetID, "valid_until", rights.ValidUntil)
				result.TotalProcessed++
				continue
			}

			if err := opts.Processor.Process(ctx, rights); err != nil {
				result.TotalFailed++
				result.FailedIDs = append(result.FailedIDs, rights.AssetID)
				s.logger.Error("Failed to process rights", "asset_id", rights.AssetID, "err", err)
				continue
			}
			result.TotalProcessed++
		}

		if opts.OnProgress != nil {
			opts.OnProgress(result.TotalProcessed+result.TotalFailed, result.TotalFound)
		}

		if len(batch) < opts.BatchSize {
			break
		}
		offset += opts.BatchSize
	}

	return result, nil
}

// ForEach processes every rights record with fn.
func (s *Sweeper) ForEach(ctx context.Context, fn func(context.Context, *simplerights.AssetRights) error) (*SweepResult, error) {
	return s.Sweep(ctx, SweepOptions{Processor: funcProcessor(fn)})
}

// NotifyExpiring runs an ExpiryNotifier over the records it matches.
func (s *Sweeper) NotifyExpiring(ctx context.Context, notifier *ExpiryNotifier, dryRun bool) (*SweepResult, error) {
	result, err := s.Sweep(ctx, SweepOptions{
		Processor: notifier,
		Filter:    notifier.Matches,
		DryRun:    dryRun,
	})
	if err != nil {
		return result, err
	}
	s.logger.Info("Expiry sweep finished",
		"found", result.TotalFound,
		"notified", result.TotalProcessed,
		"failed", result.TotalFailed,
		"dry_run", dryRun)
	return result, nil
}

// funcProcessor adapts a function to the RightsProcessor interface.
type funcProcessor func(context.Context, *simplerights.AssetRights) error

func (f funcProcessor) Process(ctx context.Context, rights *simplerights.AssetRights) error {
	return f(ctx, rights)
}
