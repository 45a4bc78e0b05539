package daemon

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/omen-linux/omend/pkg/battery"
	"github.com/omen-linux/omend/pkg/policy"
	"github.com/omen-linux/omend/pkg/state"
)

// runLoop drives periodic evaluation until Stop. The first tick runs
// immediately so a fresh daemon does not wait a full interval to notice an
// already-over-limit battery.
func (d *Daemon) runLoop() {
	ticker := time.NewTicker(d.tickInterval)
	defer ticker.Stop()

	d.Tick()

	for {
		select {
		case <-ticker.C:
			d.Tick()
		case <-d.stopCh:
			return
		}
	}
}

// Tick performs one read-load-evaluate-persist-notify sequence. It is an
// idempotent, synchronous unit of work; tickLock keeps it mutually
// exclusive with the user toggle and with forced ticks from the API.
func (d *Daemon) Tick() {
	d.tickLock.Lock()
	defer d.tickLock.Unlock()

	snap := d.source.Read()
	d.setLastSnapshot(snap)

	st := d.store.Load()
	dec := policy.Evaluate(snap, st)

	if dec.StateAfter != st {
		if err := d.store.Save(dec.StateAfter); err != nil {
			// The in-memory decision already took effect for this tick;
			// the next tick recomputes from the last persisted state. At
			// worst a notification repeats, never silently lost.
			logrus.Errorf("failed to persist state: %v", err)
		}
	}

	if dec.ShouldNotify {
		d.notifier.Send(dec.Notification)
	}

	if err := d.rec.Record(snap, time.Now()); err != nil {
		logrus.Warnf("failed to record telemetry sample: %v", err)
	}

	d.logTickStatus(snap, dec.StateAfter)
}

// SetLimit changes the configured unplug threshold. The caller is expected
// to trigger a Tick afterwards so the new limit takes effect immediately.
func (d *Daemon) SetLimit(limit int) error {
	d.tickLock.Lock()
	defer d.tickLock.Unlock()

	st := d.store.Load()
	st.Limit = limit
	if err := d.store.Save(st); err != nil {
		return err
	}

	logrus.Infof("set unplug limit to %d%%", limit)
	return nil
}

// SetTopUp engages or cancels the top-up override through the same critical
// section as ordinary ticks; it is never applied to a stale in-memory copy.
// Activation dispatches the informational notification immediately.
func (d *Daemon) SetTopUp(active bool) state.State {
	d.tickLock.Lock()
	defer d.tickLock.Unlock()

	st := d.store.Load()

	var next state.State
	if active {
		var n policy.Notification
		next, n = policy.ActivateTopUp(st)
		d.notifier.Send(n)
	} else {
		next = policy.CancelTopUp(st)
	}

	if err := d.store.Save(next); err != nil {
		logrus.Errorf("failed to persist state: %v", err)
	}

	logrus.WithFields(next.LogrusFields()).Info("top-up toggled")
	return next
}

type tickStatus struct {
	capacity    int
	status      battery.Status
	acOnline    bool
	limit       int
	topUpActive bool
	notifiedAt  int
}

// logTickStatus logs the tick outcome at debug, demoting to trace when
// nothing changed since the last log within one interval, so a stable
// battery does not flood the log.
func (d *Daemon) logTickStatus(snap battery.Snapshot, st state.State) {
	current := tickStatus{
		capacity:    snap.CapacityPct,
		status:      snap.Status,
		acOnline:    snap.ACOnline,
		limit:       st.Limit,
		topUpActive: st.TopUpActive,
		notifiedAt:  st.NotifiedAt,
	}

	fields := logrus.Fields{
		"capacity":    snap.CapacityPct,
		"status":      snap.Status.String(),
		"acOnline":    snap.ACOnline,
		"limit":       st.Limit,
		"topUpActive": st.TopUpActive,
		"notifiedAt":  st.NotifiedAt,
	}

	defer func() {
		d.lastLogged = current
		d.lastLogTime = time.Now()
	}()

	if time.Since(d.lastLogTime) < d.tickInterval+time.Second && current == d.lastLogged {
		logrus.WithFields(fields).Trace("tick status")
		return
	}

	logrus.WithFields(fields).Debug("tick status")
}
