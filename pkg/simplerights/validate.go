package simplerights

import (
	"fmt"
	"strings"
	"time"
)

// DefaultQuotaWarningThreshold is the fraction of MaxDownloads at which the
// quota check starts warning.
const DefaultQuotaWarningThreshold = 0.9

const dateLayout = "2006-01-02"

// ValidatorOption configures ValidateDownloadRequest.
type ValidatorOption func(*validatorConfig)

type validatorConfig struct {
	quotaWarningThreshold float64
}

// WithQuotaWarningThreshold sets the fraction of the quota at which a
// warning is raised. Values outside (0, 1] are ignored.
func WithQuotaWarningThreshold(threshold float64) ValidatorOption {
	return func(c *validatorConfig) {
		if threshold > 0 && threshold <= 1 {
			c.quotaWarningThreshold = threshold
		}
	}
}

// checkOutcome is the tagged result of a single check.
type checkOutcome struct {
	result      CheckResult
	suggestions []string
}

func passed(name, message string) checkOutcome {
	return checkOutcome{result: CheckResult{Name: name, Status: CheckPassed, Message: message}}
}

func failed(name, message string, suggestions ...string) checkOutcome {
	return checkOutcome{result: CheckResult{Name: name, Status: CheckFailed, Message: message}, suggestions: suggestions}
}

func warning(name, message string, suggestions ...string) checkOutcome {
	return checkOutcome{result: CheckResult{Name: name, Status: CheckWarning, Message: message}, suggestions: suggestions}
}

// rightsCheck evaluates one rule against a request and an existing record.
type rightsCheck func(req DownloadRequest, rights *AssetRights, now time.Time, cfg validatorConfig) checkOutcome

// rightsChecks is the fixed, ordered battery run after the existence check.
var rightsChecks = []rightsCheck{
	checkValidityPeriod,
	checkUsageType,
	checkTerritory,
	checkDownloadQuota,
	checkApproval,
	checkWatermark,
}

// ValidateDownloadRequest decides whether req may proceed under rights.
// A nil rights record denies the request without running further checks.
// The result is deterministic for identical inputs and now.
func ValidateDownloadRequest(req DownloadRequest, rights *AssetRights, now time.Time, opts ...ValidatorOption) DownloadValidationResult {
	cfg := validatorConfig{quotaWarningThreshold: DefaultQuotaWarningThreshold}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if rights == nil {
		return reduce([]checkOutcome{checkRightsMissing()}, now)
	}

	outcomes := make([]checkOutcome, 0, len(rightsChecks)+1)
	outcomes = append(outcomes, passed(CheckRightsExists, "Rights information on file"))
	for _, check := range rightsChecks {
		outcomes = append(outcomes, check(req, rights, now, cfg))
	}
	return reduce(outcomes, now)
}

// reduce folds check outcomes into a validation result.
func reduce(outcomes []checkOutcome, now time.Time) DownloadValidationResult {
	res := DownloadValidationResult{
		Allowed:     true,
		Checks:      make([]CheckResult, 0, len(outcomes)),
		Blockers:    []string{},
		Warnings:    []string{},
		Suggestions: []string{},
		ValidatedAt: now,
	}
	for _, o := range outcomes {
		res.Checks = append(res.Checks, o.result)
		switch o.result.Status {
		case CheckFailed:
			res.Allowed = false
			res.Blockers = append(res.Blockers, o.result.Message)
		case CheckWarning:
			res.Warnings = append(res.Warnings, o.result.Message)
		}
		res.Suggestions = appendUnique(res.Suggestions, o.suggestions...)
	}
	return res
}

func checkRightsMissing() checkOutcome {
	return failed(CheckRightsExists,
		"No rights information on file for this asset",
		"Contact the rights management team to register licensing terms for this asset")
}

func checkValidityPeriod(_ DownloadRequest, rights *AssetRights, now time.Time, _ validatorConfig) checkOutcome {
	switch GetRightsStatus(*rights, now) {
	case RightsStatusExpired:
		return failed(CheckValidityPeriod,
			fmt.Sprintf("Rights expired on %s", rights.ValidUntil.Format(dateLayout)),
			fmt.Sprintf("Contact %s to renew or extend the license", holderName(rights)))
	case RightsStatusPending:
		return failed(CheckValidityPeriod,
			fmt.Sprintf("Rights not yet active until %s", rights.ValidFrom.Format(dateLayout)),
			fmt.Sprintf("Wait until %s or request early access from %s", rights.ValidFrom.Format(dateLayout), holderName(rights)))
	}
	if rights.ValidUntil == nil {
		return passed(CheckValidityPeriod, "Rights are active with no expiry date")
	}
	return passed(CheckValidityPeriod, fmt.Sprintf("Rights are active until %s", rights.ValidUntil.Format(dateLayout)))
}

func checkUsageType(req DownloadRequest, rights *AssetRights, _ time.Time, _ validatorConfig) checkOutcome {
	usage := NormalizeUsage(string(req.IntendedUsage))
	if containsUsage(rights.RestrictedUsageTypes, usage) {
		return failed(CheckUsageType,
			fmt.Sprintf("Usage type %q is restricted for this asset", usage),
			fmt.Sprintf("Request a license amendment from %s to permit %s usage", holderName(rights), usage))
	}
	if !containsUsage(rights.AllowedUsageTypes, usage) {
		return failed(CheckUsageType,
			fmt.Sprintf("Usage type %q not explicitly permitted", usage),
			fmt.Sprintf("Choose one of the permitted usage types: %s", joinUsages(rights.AllowedUsageTypes)))
	}
	return passed(CheckUsageType, fmt.Sprintf("Usage type %q is permitted", usage))
}

func checkTerritory(req DownloadRequest, rights *AssetRights, _ time.Time, _ validatorConfig) checkOutcome {
	territory := NormalizeTerritory(string(req.Territory))
	if containsTerritory(rights.RestrictedTerritories, territory) {
		return failed(CheckTerritory,
			fmt.Sprintf("Territory %s is restricted for this asset", territory),
			"Contact rights holder to request territory extension")
	}
	if !rights.AllowedTerritories.Contains(territory) {
		return failed(CheckTerritory,
			fmt.Sprintf("Territory %s is not in the allowed list (%s)", territory, rights.AllowedTerritories),
			"Contact rights holder to request territory extension")
	}
	return passed(CheckTerritory, fmt.Sprintf("Territory %s is licensed", territory))
}

func checkDownloadQuota(_ DownloadRequest, rights *AssetRights, _ time.Time, cfg validatorConfig) checkOutcome {
	if rights.MaxDownloads == nil {
		return passed(CheckDownloadQuota, "No download limit")
	}
	current, limit := rights.CurrentDownloads, *rights.MaxDownloads
	if current >= limit {
		return failed(CheckDownloadQuota,
			fmt.Sprintf("Download quota exhausted (%d/%d)", current, limit),
			"Request a quota increase from the rights holder")
	}
	if quotaApproaching(current, limit, cfg.quotaWarningThreshold) {
		return warning(CheckDownloadQuota,
			fmt.Sprintf("Approaching download quota (%d/%d)", current, limit),
			"Plan remaining downloads or request a quota increase")
	}
	return passed(CheckDownloadQuota, fmt.Sprintf("%d of %d downloads remaining", limit-current, limit))
}

func checkApproval(_ DownloadRequest, rights *AssetRights, _ time.Time, _ validatorConfig) checkOutcome {
	if !rights.RequiresApproval {
		return passed(CheckApproval, "No approval required")
	}
	roles := approverList(rights.ApproverRoles)
	return warning(CheckApproval,
		fmt.Sprintf("This download requires approval from: %s", roles),
		fmt.Sprintf("Submit for approval to: %s", roles))
}

func checkWatermark(_ DownloadRequest, rights *AssetRights, _ time.Time, _ validatorConfig) checkOutcome {
	if !rights.RequiresWatermark {
		return passed(CheckWatermark, "No watermark required")
	}
	text := strings.TrimSpace(rights.WatermarkText)
	if text == "" {
		return warning(CheckWatermark,
			"Delivered file must carry a watermark",
			fmt.Sprintf("Apply the %s watermark before delivery", holderName(rights)))
	}
	return warning(CheckWatermark,
		fmt.Sprintf("Delivered file must carry watermark %q", text),
		fmt.Sprintf("Apply watermark text %q before delivery", text))
}

func quotaApproaching(current, limit int, threshold float64) bool {
	if limit <= 0 {
		return false
	}
	return float64(current) >= threshold*float64(limit)
}

func holderName(rights *AssetRights) string {
	if name := strings.TrimSpace(rights.RightsHolder.Name); name != "" {
		return name
	}
	return "the rights holder"
}

func approverList(roles []string) string {
	cleaned := make([]string, 0, len(roles))
	for _, r := range roles {
		if r = strings.TrimSpace(r); r != "" {
			cleaned = append(cleaned, r)
		}
	}
	if len(cleaned) == 0 {
		return "an authorized approver"
	}
	return strings.Join(cleaned, ", ")
}

func joinUsages(list []UsageType) string {
	if len(list) == 0 {
		return "none"
	}
	parts := make([]string, len(list))
	for i, u := range list {
		parts[i] = string(u)
	}
	return strings.Join(parts, ", ")
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		dup := false
		for _, d := range dst {
			if d == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
