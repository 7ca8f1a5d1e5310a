package tracker

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/nearwatch/internal/logfields"
)

// RunViolationWatcher consumes store snapshots and records one violation
// each time the live distance crosses from at-or-above the target (or
// unavailable) to below it. Edge-triggered so a user sitting too close for
// a minute counts once, not thirty times. Blocks until ctx is done or the
// store closes.
func (t *Tracker) RunViolationWatcher(ctx context.Context) {
	sub := t.store.Subscribe()
	defer sub.Close()

	wasBelow := false
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.Updates():
			if !ok {
				return
			}
			below := snap.DistanceAvailable() && snap.LiveDistanceCm < float64(snap.DistanceTargetCm)
			if below && !wasBelow {
				t.RecordViolation(ctx)
				slog.Debug("Distance violation recorded",
					logfields.Component("tracker"),
					logfields.DistanceCm(snap.LiveDistanceCm))
			}
			wasBelow = below
		}
	}
}
