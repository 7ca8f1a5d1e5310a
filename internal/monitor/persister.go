package monitor

import (
	"context"
	"time"

	"git.home.luguber.info/inful/nearwatch/internal/state"
	"git.home.luguber.info/inful/nearwatch/internal/tracker"
)

// settingsPersister watches the live state and writes user-tunable fields
// to durable storage. Writes are debounced: a slider being dragged commits
// many snapshots per second, and only the settled value matters.
type settingsPersister struct {
	store    *state.Store
	tracker  *tracker.Tracker
	debounce time.Duration
}

func newSettingsPersister(store *state.Store, tr *tracker.Tracker, debounce time.Duration) *settingsPersister {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &settingsPersister{store: store, tracker: tr, debounce: debounce}
}

// run persists tunable-field changes until ctx is done or the store closes.
func (p *settingsPersister) run(ctx context.Context) {
	sub := p.store.Subscribe()
	defer sub.Close()

	last := p.store.Current()
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.Updates():
			if !ok {
				return
			}
			if tunablesEqual(snap, last) {
				continue
			}
			last = snap
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(p.debounce, func() {
				p.tracker.PersistSettings(ctx, p.store.Current())
			})
		}
	}
}

// tunablesEqual compares only the fields the persister owns. Live fields
// (counter, distance, tracker flag) churn constantly and are persisted
// elsewhere.
func tunablesEqual(a, b state.Settings) bool {
	return a.TargetHours == b.TargetHours &&
		a.TargetMinutes == b.TargetMinutes &&
		a.DistanceTargetCm == b.DistanceTargetCm &&
		a.WindowTransparency == b.WindowTransparency &&
		a.WindowTintHue == b.WindowTintHue &&
		a.FontColor == b.FontColor &&
		a.WindowShape == b.WindowShape
}
