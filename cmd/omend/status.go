package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/omen-linux/omend/pkg/battery"
	"github.com/omen-linux/omend/pkg/client"
	"github.com/omen-linux/omend/pkg/state"
)

type statusData struct {
	snapshot *battery.Snapshot
	state    *state.State
	schedule *client.TopUpSchedule
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	c := apiClient()

	snap, err := c.GetSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to get battery snapshot: %w", err)
	}

	st, err := c.GetState()
	if err != nil {
		return nil, fmt.Errorf("failed to get daemon state: %w", err)
	}

	sched, err := c.GetTopUpSchedule()
	if err != nil {
		return nil, fmt.Errorf("failed to get top-up schedule: %w", err)
	}

	return &statusData{
		snapshot: snap,
		state:    st,
		schedule: sched,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of omend",
		Long:    `Get battery readings, the unplug limit, and top-up status.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			snap := data.snapshot
			st := data.state

			// Battery readings.
			cmd.Println(bold("Battery status:"))

			cmd.Printf("  Current charge: %s\n", bold("%d%%", snap.CapacityPct))

			stateText := "not charging"
			switch snap.Status {
			case battery.Charging:
				stateText = color.GreenString("charging")
			case battery.Discharging:
				stateText = color.RedString("discharging")
			case battery.NotCharging:
				stateText = "not charging"
			default:
				stateText = "unknown"
			}
			cmd.Printf("  State: %s\n", bold("%s", stateText))
			cmd.Println("  Plugged in: " + bool2Text(snap.ACOnline))

			if est, ok := snap.TimeEstimate(); ok {
				if snap.Status == battery.Discharging {
					cmd.Printf("  Time to empty: %s\n", bold("%s", formatDuration(est)))
				} else {
					cmd.Printf("  Time to full: %s\n", bold("%s", formatDuration(est)))
				}
			}

			var rateStr string
			switch {
			case snap.Status == battery.Charging && snap.PowerW > 0:
				rateStr = color.New(color.Bold, color.FgGreen).Sprintf("+%.1f W", snap.PowerW)
			case snap.Status == battery.Discharging && snap.PowerW > 0:
				rateStr = color.New(color.Bold, color.FgRed).Sprintf("-%.1f W", snap.PowerW)
			default:
				rateStr = bold("%.1f W", snap.PowerW)
			}
			cmd.Printf("  Power draw: %s\n", rateStr)
			cmd.Printf("  Voltage: %s\n", bold("%.2f V", snap.VoltageV))

			if snap.BIOSCapacityPct > 0 {
				cmd.Printf("  Full-charge capacity: %s of design (%0.1f / %0.1f Wh)\n",
					bold("%.1f%%", snap.BIOSCapacityPct), snap.EnergyFullWh, snap.EnergyDesignWh)
			}
			if snap.CycleCount > 0 {
				cmd.Printf("  Cycle count: %s\n", bold("%d", snap.CycleCount))
			}

			cmd.Println()

			// Limit and top-up.
			cmd.Println(bold("Alert configuration:"))
			cmd.Printf("  Unplug limit: %s\n", bold("%d%%", st.Limit))
			cmd.Println("  Top-up active: " + bool2Text(st.TopUpActive))
			if st.TopUpActive {
				cmd.Println("    The unplug alert is suppressed until the battery reaches 100%.")
			}
			if data.schedule.Expr != "" {
				cmd.Printf("  Top-up schedule: %s (next run %s)\n",
					bold("%q", data.schedule.Expr), data.schedule.Next.Local().Format(time.RFC1123))
			}

			return nil
		},
	}
}

// formatDuration renders an estimate as e.g. "1h 05m" or "42m".
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
