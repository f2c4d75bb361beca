package simplerights

import (
	"sort"
	"time"
)

// DefaultExpiryWindowDays is the default lookahead for expiring rights.
const DefaultExpiryWindowDays = 30

// GetExpiringRights returns the records whose ValidUntil falls between now
// and now+windowDays inclusive, ordered by ValidUntil then AssetID.
// Perpetual and already expired records are never returned.
func GetExpiringRights(rights []AssetRights, windowDays int, now time.Time) []AssetRights {
	horizon := now.AddDate(0, 0, windowDays)
	out := make([]AssetRights, 0)
	for _, r := range rights {
		if isExpiringWithin(r, now, horizon) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ValidUntil.Equal(*out[j].ValidUntil) {
			return out[i].ValidUntil.Before(*out[j].ValidUntil)
		}
		return out[i].AssetID < out[j].AssetID
	})
	return out
}

func isExpiringWithin(r AssetRights, now, horizon time.Time) bool {
	if r.ValidUntil == nil {
		return false
	}
	return !r.ValidUntil.Before(now) && !r.ValidUntil.After(horizon)
}

// daysUntil rounds the remaining time up to whole days.
func daysUntil(t, now time.Time) int {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// ExpiresWithin reports whether rights expire between now and now+windowDays
// and, if so, how many whole days remain, rounded up.
func ExpiresWithin(rights AssetRights, windowDays int, now time.Time) (int, bool) {
	if !isExpiringWithin(rights, now, now.AddDate(0, 0, windowDays)) {
		return 0, false
	}
	return daysUntil(*rights.ValidUntil, now), true
}
