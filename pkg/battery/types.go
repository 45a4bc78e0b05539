// Package battery reads raw power-supply telemetry from Linux sysfs and
// exposes it as an immutable per-tick snapshot. Reads are total: an
// unreadable attribute yields its zero value, never an error, because the
// sensor layer is inherently flaky (missing files, permission races,
// suspend/resume gaps) and nothing downstream should branch on I/O failure.
package battery

import (
	"encoding/json"
	"math"
	"time"
)

// Status is the firmware-reported charging state. Sysfs "Full" is folded
// into NotCharging; the capacity field already says 100.
type Status int

const (
	Unknown Status = iota
	Charging
	Discharging
	NotCharging
)

func (s Status) String() string {
	switch s {
	case Charging:
		return "Charging"
	case Discharging:
		return "Discharging"
	case NotCharging:
		return "Not charging"
	default:
		return "Unknown"
	}
}

// ParseStatus maps a sysfs status string to a Status. Unrecognized input
// maps to Unknown.
func ParseStatus(raw string) Status {
	switch raw {
	case "Charging":
		return Charging
	case "Discharging":
		return Discharging
	case "Not charging", "Full":
		return NotCharging
	default:
		return Unknown
	}
}

// MarshalJSON serializes the status as its string form so API consumers do
// not need to know the enum values.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

// Snapshot is one battery reading. It is recreated on every tick and never
// mutated afterwards.
type Snapshot struct {
	CapacityPct  int     `json:"capacityPct"`
	Status       Status  `json:"status"`
	EnergyNowWh  float64 `json:"energyNowWh"`
	EnergyFullWh float64 `json:"energyFullWh"`
	// EnergyDesignWh is the factory capacity, used to derive battery wear.
	EnergyDesignWh float64 `json:"energyDesignWh"`
	PowerW         float64 `json:"powerW"`
	VoltageV       float64 `json:"voltageV"`
	CycleCount     int     `json:"cycleCount"`
	ACOnline       bool    `json:"acOnline"`
	// BIOSCapacityPct is the full-charge capacity relative to design,
	// rounded to one decimal. 0 when the design capacity is unreadable.
	BIOSCapacityPct float64 `json:"biosCapacityPct"`
}

// minEstimatePowerW guards the time estimate against near-zero power
// readings, which make the energy/power ratio numerically meaningless.
const minEstimatePowerW = 0.1

// TimeEstimate returns the time to empty (discharging) or to full
// (charging / not charging). ok is false when the reading cannot support
// an estimate.
func (s Snapshot) TimeEstimate() (d time.Duration, ok bool) {
	if s.PowerW <= minEstimatePowerW {
		return 0, false
	}

	var hours float64
	switch s.Status {
	case Discharging:
		hours = s.EnergyNowWh / s.PowerW
	case Charging, NotCharging:
		hours = math.Max(0, (s.EnergyFullWh-s.EnergyNowWh)/s.PowerW)
	default:
		return 0, false
	}

	if hours <= 0 {
		return 0, false
	}
	return time.Duration(hours * float64(time.Hour)), true
}

func biosCapacityPct(energyFullWh, energyDesignWh float64) float64 {
	if energyDesignWh <= 0 {
		return 0
	}
	return math.Round(energyFullWh/energyDesignWh*1000) / 10
}
