// Package policy decides, from one battery snapshot and the persisted
// threshold state, whether the user should be alerted. Evaluate is a pure
// function: it performs no I/O and returns the state to persist instead of
// mutating anything, so the daemon loop and the user toggle can share one
// serialized mutation path.
package policy

import (
	"fmt"

	"github.com/omen-linux/omend/pkg/battery"
	"github.com/omen-linux/omend/pkg/state"
)

// Urgency is the notification urgency understood by desktop notification
// sinks (maps onto notify-send --urgency).
type Urgency int

const (
	UrgencyNormal Urgency = iota
	UrgencyCritical
)

func (u Urgency) String() string {
	if u == UrgencyCritical {
		return "critical"
	}
	return "normal"
}

// Notification is a fire-and-forget alert. Delivery is the sink's problem;
// the policy considers it delivered the moment it is decided, so a flaky
// sink cannot cause repeat spam.
type Notification struct {
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	Urgency Urgency `json:"urgency"`
	Icon    string  `json:"icon"`
}

// Decision is the outcome of one evaluation. StateAfter must be persisted
// by the caller whether or not a notification fired.
type Decision struct {
	ShouldNotify bool
	Notification Notification
	StateAfter   state.State
}

const (
	iconCaution = "battery-caution"
	iconFull    = "battery-full"
)

// Evaluate applies the threshold state machine to one snapshot.
//
// Dedup is keyed on the literal capacity value: a sustained plateau at the
// same percentage never re-notifies, while any different reading (even 1%
// away) re-arms. The notified-at sentinel resets on unplug so every
// plug-in cycle can notify again.
func Evaluate(snap battery.Snapshot, s state.State) Decision {
	d := Decision{StateAfter: s}

	if !snap.ACOnline {
		d.StateAfter.NotifiedAt = state.NotNotified
		return d
	}

	// >= so a limit of 80 fires at exactly 80 and at any higher reading,
	// even if a missed tick lands above the limit.
	if snap.CapacityPct < s.EffectiveLimit() {
		return d
	}
	if s.NotifiedAt == snap.CapacityPct {
		return d
	}

	d.ShouldNotify = true
	d.StateAfter.NotifiedAt = snap.CapacityPct

	if s.TopUpActive {
		// The override reached its 100% goal: auto-exit it.
		d.StateAfter.TopUpActive = false
		d.Notification = Notification{
			Title:   "Battery Full",
			Body:    "Reached 100%. Safe to unplug now.",
			Urgency: UrgencyNormal,
			Icon:    iconFull,
		}
		return d
	}

	d.Notification = Notification{
		Title:   fmt.Sprintf("%d%% - Unplug Now", snap.CapacityPct),
		Body:    fmt.Sprintf("Battery hit your %d%% limit. Unplug to protect battery life.", s.Limit),
		Urgency: UrgencyCritical,
		Icon:    iconCaution,
	}
	return d
}

// ActivateTopUp engages the one-cycle override: the effective limit becomes
// 100 and the dedup sentinel is cleared so the new target can notify. The
// returned notification confirms activation to the user.
func ActivateTopUp(s state.State) (state.State, Notification) {
	s.TopUpActive = true
	s.NotifiedAt = state.NotNotified
	return s, Notification{
		Title:   "Top Up activated",
		Body:    "Will notify when battery reaches 100%.",
		Urgency: UrgencyNormal,
		Icon:    iconFull,
	}
}

// CancelTopUp disengages the override before it reached 100%. No
// notification: the user asked for this explicitly.
func CancelTopUp(s state.State) state.State {
	s.TopUpActive = false
	s.NotifiedAt = state.NotNotified
	return s
}
