package sweep

import (
	"context"

	"github.com/tendant/simple-rights/pkg/simplerights"
)

// RightsProcessor processes individual rights records.
// Return an error to mark the record as failed; the sweep continues.
type RightsProcessor interface {
	Process(ctx context.Context, rights *simplerights.AssetRights) error
}

// ExpiryNotifier emits RightsExpiring for every record expiring inside the
// window. Records outside the window are ignored.
type ExpiryNotifier struct {
	sink       simplerights.EventSink
	clock      simplerights.Clock
	windowDays int
}

// NewExpiryNotifier creates a notifier. A non-positive window uses
// simplerights.DefaultExpiryWindowDays and a nil clock the system clock.
func NewExpiryNotifier(sink simplerights.EventSink, clock simplerights.Clock, windowDays int) *ExpiryNotifier {
	if clock == nil {
		clock = simplerights.SystemClock()
	}
	if windowDays <= 0 {
		windowDays = simplerights.DefaultExpiryWindowDays
	}
	return &ExpiryNotifier{sink: sink, clock: clock, windowDays: windowDays}
}

func (n *ExpiryNotifier) Process(ctx context.Context, rights *simplerights.AssetRights) error {
	daysLeft, ok := simplerights.ExpiresWithin(*rights, n.windowDays, n.clock.Now())
	if !ok {
		return nil
	}
	return n.sink.RightsExpiring(ctx, rights, daysLeft)
}

// Matches reports whether the record would trigger a notification.
func (n *ExpiryNotifier) Matches(rights *simplerights.AssetRights) bool {
	_, ok := simplerights.ExpiresWithin(*rights, n.windowDays, n.clock.Now())
	return ok
}
