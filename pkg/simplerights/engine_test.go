package simplerights

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineDefaults(t *testing.T) {
	e := NewEngine(WithEngineClock(FixedClock(testNow)))
	assert.Equal(t, testNow, e.Now())
	assert.Equal(t, DefaultExpiryWindowDays, e.ExpiringWindowDays())

	r := openRights("a1")
	r.ValidUntil = daysFromNow(45)
	assert.Empty(t, e.Expiring([]AssetRights{r}, 0))
	assert.Len(t, e.Expiring([]AssetRights{r}, 60), 1)
	assert.Equal(t, RightsStatusValid, e.Status(&r))
	assert.Equal(t, RightsStatusUnknown, e.Status(nil))
}

func TestEngineOptions(t *testing.T) {
	e := NewEngine(
		WithEngineClock(FixedClock(testNow)),
		WithEngineQuotaThreshold(0.5),
		WithEngineExpiringWindow(60),
		WithEngineClock(nil),
	)
	assert.Equal(t, testNow, e.Now())
	assert.Equal(t, 60, e.ExpiringWindowDays())

	r := openRights("a1")
	r.MaxDownloads = intPtr(10)
	r.CurrentDownloads = 5
	res := e.Validate(requestFor("a1", UsageInternal, "US"), &r)
	assert.True(t, res.Allowed)
	assert.Len(t, res.Warnings, 1)

	r.ValidUntil = daysFromNow(45)
	report := e.Report([]AssetRights{r}, nil, nil)
	assert.Equal(t, 1, report.Summary.AssetsExpiringSoon)
}
