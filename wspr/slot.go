package wspr

import (
	"context"
	"time"
)

// SlotOffset is how far into an even UTC minute a transmission starts.
const SlotOffset = time.Second

// NextSlot returns the first transmit slot start at or after t.
func NextSlot(t time.Time) time.Time {
	t = t.UTC()
	start := t.Truncate(2 * time.Minute).Add(SlotOffset)
	if start.Before(t) {
		start = start.Add(2 * time.Minute)
	}
	return start
}

// WaitForSlot blocks until the next transmit slot or until ctx is done, reporting
// whether the slot was reached.
func WaitForSlot(ctx context.Context) bool {
	timer := time.NewTimer(time.Until(NextSlot(time.Now())))
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
