package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omen-linux/omend/pkg/battery"
	"github.com/omen-linux/omend/pkg/state"
)

func snap(capacity int, acOnline bool) battery.Snapshot {
	return battery.Snapshot{CapacityPct: capacity, ACOnline: acOnline}
}

func TestEvaluateLimitReached(t *testing.T) {
	s := state.State{Limit: 80, NotifiedAt: state.NotNotified}

	d := Evaluate(snap(80, true), s)

	assert.True(t, d.ShouldNotify)
	assert.Equal(t, UrgencyCritical, d.Notification.Urgency)
	assert.Equal(t, "80% - Unplug Now", d.Notification.Title)
	assert.Contains(t, d.Notification.Body, "80% limit")
	assert.Equal(t, 80, d.StateAfter.NotifiedAt)
	assert.Equal(t, 80, d.StateAfter.Limit)
	assert.False(t, d.StateAfter.TopUpActive)
}

func TestEvaluateBelowLimit(t *testing.T) {
	s := state.State{Limit: 80, NotifiedAt: state.NotNotified}

	d := Evaluate(snap(79, true), s)

	assert.False(t, d.ShouldNotify)
	assert.Equal(t, s, d.StateAfter)
}

func TestEvaluateUnpluggedNeverNotifiesAndResetsSentinel(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		s        state.State
	}{
		{name: "below limit", capacity: 60, s: state.State{Limit: 80, NotifiedAt: 80}},
		{name: "above limit", capacity: 95, s: state.State{Limit: 80, NotifiedAt: 80}},
		{name: "already reset", capacity: 95, s: state.State{Limit: 80, NotifiedAt: state.NotNotified}},
		{name: "top-up active", capacity: 100, s: state.State{Limit: 80, TopUpActive: true, NotifiedAt: 90}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(snap(tt.capacity, false), tt.s)

			assert.False(t, d.ShouldNotify)
			assert.Equal(t, state.NotNotified, d.StateAfter.NotifiedAt)
			// Unplugging alone never cancels top-up.
			assert.Equal(t, tt.s.TopUpActive, d.StateAfter.TopUpActive)
		})
	}
}

func TestEvaluateDedupIsIdempotent(t *testing.T) {
	s := state.State{Limit: 80, NotifiedAt: state.NotNotified}

	first := Evaluate(snap(80, true), s)
	assert.True(t, first.ShouldNotify)

	// Same snapshot, just-produced state: dedup must hold.
	second := Evaluate(snap(80, true), first.StateAfter)
	assert.False(t, second.ShouldNotify)
	assert.Equal(t, first.StateAfter, second.StateAfter)
}

func TestEvaluateReArmsOnDifferentCapacity(t *testing.T) {
	s := state.State{Limit: 80, NotifiedAt: 80}

	d := Evaluate(snap(81, true), s)

	assert.True(t, d.ShouldNotify)
	assert.Equal(t, 81, d.StateAfter.NotifiedAt)
}

func TestEvaluateFlickerAroundLimit(t *testing.T) {
	// 80 -> 79 -> 80 while plugged in: the sentinel only resets on unplug,
	// so the return to the same value stays deduplicated.
	s := state.State{Limit: 80, NotifiedAt: state.NotNotified}

	d := Evaluate(snap(80, true), s)
	assert.True(t, d.ShouldNotify)

	d = Evaluate(snap(79, true), d.StateAfter)
	assert.False(t, d.ShouldNotify)
	assert.Equal(t, 80, d.StateAfter.NotifiedAt)

	d = Evaluate(snap(80, true), d.StateAfter)
	assert.False(t, d.ShouldNotify)
}

func TestEvaluateTopUpRaisesEffectiveLimit(t *testing.T) {
	s := state.State{Limit: 80, TopUpActive: true, NotifiedAt: state.NotNotified}

	// Well above the configured limit, but below the 100% target.
	d := Evaluate(snap(93, true), s)

	assert.False(t, d.ShouldNotify)
	assert.True(t, d.StateAfter.TopUpActive)
}

func TestEvaluateTopUpAutoClearsAtFull(t *testing.T) {
	s := state.State{Limit: 80, TopUpActive: true, NotifiedAt: state.NotNotified}

	d := Evaluate(snap(100, true), s)

	assert.True(t, d.ShouldNotify)
	assert.Equal(t, "Battery Full", d.Notification.Title)
	assert.Equal(t, UrgencyNormal, d.Notification.Urgency)
	assert.False(t, d.StateAfter.TopUpActive)
	assert.Equal(t, 100, d.StateAfter.NotifiedAt)
}

func TestActivateTopUp(t *testing.T) {
	s, n := ActivateTopUp(state.State{Limit: 80, NotifiedAt: 80})

	assert.True(t, s.TopUpActive)
	assert.Equal(t, state.NotNotified, s.NotifiedAt)
	assert.Equal(t, "Top Up activated", n.Title)
	assert.Equal(t, UrgencyNormal, n.Urgency)
}

func TestCancelTopUp(t *testing.T) {
	s := CancelTopUp(state.State{Limit: 80, TopUpActive: true, NotifiedAt: 91})

	assert.False(t, s.TopUpActive)
	assert.Equal(t, state.NotNotified, s.NotifiedAt)
}

func TestUrgencyString(t *testing.T) {
	assert.Equal(t, "normal", UrgencyNormal.String())
	assert.Equal(t, "critical", UrgencyCritical.String())
}
