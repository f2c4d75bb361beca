package simplerights

import "time"

// Engine binds the pure rights functions to a clock and a set of tunables.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	clock                 Clock
	quotaWarningThreshold float64
	expiringWindowDays    int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineClock sets the clock used for every evaluation.
func WithEngineClock(clock Clock) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithEngineQuotaThreshold sets the quota warning fraction.
func WithEngineQuotaThreshold(threshold float64) EngineOption {
	return func(e *Engine) {
		if threshold > 0 && threshold <= 1 {
			e.quotaWarningThreshold = threshold
		}
	}
}

// WithEngineExpiringWindow sets the default expiry lookahead in days.
func WithEngineExpiringWindow(days int) EngineOption {
	return func(e *Engine) {
		if days > 0 {
			e.expiringWindowDays = days
		}
	}
}

// NewEngine creates an Engine using the system clock and library defaults
// unless overridden.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		clock:                 SystemClock(),
		quotaWarningThreshold: DefaultQuotaWarningThreshold,
		expiringWindowDays:    DefaultExpiryWindowDays,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Status classifies rights; nil yields unknown.
func (e *Engine) Status(rights *AssetRights) RightsStatus {
	return StatusOf(rights, e.clock.Now())
}

// Expiring returns records expiring within windowDays. A non-positive
// window uses the engine default.
func (e *Engine) Expiring(rights []AssetRights, windowDays int) []AssetRights {
	if windowDays <= 0 {
		windowDays = e.expiringWindowDays
	}
	return GetExpiringRights(rights, windowDays, e.clock.Now())
}

// Validate runs the download checks.
func (e *Engine) Validate(req DownloadRequest, rights *AssetRights) DownloadValidationResult {
	return ValidateDownloadRequest(req, rights, e.clock.Now(), WithQuotaWarningThreshold(e.quotaWarningThreshold))
}

// Report builds the compliance report.
func (e *Engine) Report(rights []AssetRights, assetNames map[string]string, logs []DownloadAuditLog) RightsReport {
	return GenerateRightsReport(rights, assetNames, logs, e.clock.Now(),
		WithExpiringWindowDays(e.expiringWindowDays),
		WithReportQuotaThreshold(e.quotaWarningThreshold))
}

// Now reports the engine clock.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// ExpiringWindowDays reports the default lookahead.
func (e *Engine) ExpiringWindowDays() int {
	return e.expiringWindowDays
}
