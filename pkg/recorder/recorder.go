// Package recorder keeps a bounded log of raw telemetry samples so the CLI
// can show recent readings. It is strictly a sample log: no aggregation or
// cycle analytics happen here.
package recorder

import (
	"time"

	"github.com/omen-linux/omend/pkg/battery"
)

// Sample is one recorded snapshot with its capture time.
type Sample struct {
	TakenAt time.Time `json:"takenAt"`
	battery.Snapshot
}

// Recorder persists telemetry samples. Failures are reported so the daemon
// can log them, but recording never affects the decision path.
type Recorder interface {
	Record(snap battery.Snapshot, at time.Time) error
	// Recent returns up to n samples, newest first.
	Recent(n int) ([]Sample, error)
	Close() error
}

// Noop is used when the history database cannot be opened. The daemon keeps
// running without history rather than failing.
type Noop struct{}

func (Noop) Record(battery.Snapshot, time.Time) error { return nil }
func (Noop) Recent(int) ([]Sample, error)             { return nil, nil }
func (Noop) Close() error                             { return nil }
