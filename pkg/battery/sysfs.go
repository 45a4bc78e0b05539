package battery

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const defaultSysfsRoot = "/sys/class/power_supply"

// microPerUnit converts sysfs micro-units (uWh, uW, uV) to Wh/W/V.
const microPerUnit = 1_000_000

// Source reads battery telemetry from a fixed pair of power-supply
// directories. Discovery happens once at construction; there is exactly one
// sensor source for the life of the process.
type Source struct {
	batteryDir string
	acDir      string
}

// NewSource creates a Source with explicit battery and AC adapter
// directories.
func NewSource(batteryDir, acDir string) *Source {
	return &Source{batteryDir: batteryDir, acDir: acDir}
}

// DiscoverSource finds the first battery (BAT*) and AC adapter
// (AC*, ACAD*, ADP*) under the sysfs power-supply root. Missing supplies are
// tolerated; the corresponding reads will just report zero values.
func DiscoverSource() *Source {
	return discoverSource(defaultSysfsRoot)
}

func discoverSource(root string) *Source {
	s := &Source{
		batteryDir: globFirst(filepath.Join(root, "BAT*")),
		acDir:      globFirst(filepath.Join(root, "AC*")),
	}
	if s.acDir == "" {
		s.acDir = globFirst(filepath.Join(root, "ADP*"))
	}

	logrus.WithFields(logrus.Fields{
		"battery": s.batteryDir,
		"ac":      s.acDir,
	}).Debug("discovered power supplies")

	return s
}

func globFirst(pattern string) string {
	matches, _ := filepath.Glob(pattern)
	if len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// Read takes one snapshot. It never fails: every unreadable attribute is
// substituted with its zero value (status becomes Unknown).
func (s *Source) Read() Snapshot {
	snap := Snapshot{
		CapacityPct:    s.readInt("capacity"),
		Status:         ParseStatus(s.readString("status")),
		EnergyNowWh:    float64(s.readInt("energy_now")) / microPerUnit,
		EnergyFullWh:   float64(s.readInt("energy_full")) / microPerUnit,
		EnergyDesignWh: float64(s.readInt("energy_full_design")) / microPerUnit,
		PowerW:         float64(s.readInt("power_now")) / microPerUnit,
		VoltageV:       float64(s.readInt("voltage_now")) / microPerUnit,
		CycleCount:     s.readInt("cycle_count"),
		ACOnline:       s.readACOnline(),
	}
	snap.BIOSCapacityPct = biosCapacityPct(snap.EnergyFullWh, snap.EnergyDesignWh)
	return snap
}

func (s *Source) readString(attr string) string {
	if s.batteryDir == "" {
		return ""
	}
	b, err := os.ReadFile(filepath.Join(s.batteryDir, attr))
	if err != nil {
		logrus.Debugf("sysfs attribute %s unreadable: %v", attr, err)
		return ""
	}
	return strings.TrimSpace(string(b))
}

func (s *Source) readInt(attr string) int {
	raw := s.readString(attr)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		logrus.Debugf("sysfs attribute %s not an integer: %q", attr, raw)
		return 0
	}
	if v < 0 {
		return 0
	}
	return v
}

func (s *Source) readACOnline() bool {
	if s.acDir == "" {
		return false
	}
	b, err := os.ReadFile(filepath.Join(s.acDir, "online"))
	if err != nil {
		logrus.Debugf("sysfs attribute online unreadable: %v", err)
		return false
	}
	return strings.TrimSpace(string(b)) == "1"
}
