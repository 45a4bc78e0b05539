package main

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func parseIntArg(args []string, valueName string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("invalid number of arguments")
	}

	value, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}

	return value, nil
}

func NewLimitCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "limit [percentage]",
		Short:   "Set unplug alert limit",
		GroupID: gBasic,
		Long: `Set the unplug alert limit.

This is a percentage from 0 to 100. When the battery reaches it while on AC
power, omend sends a critical notification telling you to unplug. The
firmware cannot cap charging itself, so unplugging is on you; omend just
makes sure you know when.`,
		RunE: func(_ *cobra.Command, args []string) error {
			limit, err := parseIntArg(args, "limit")
			if err != nil {
				return err
			}

			ret, err := apiClient().SetLimit(limit)
			if err != nil {
				return fmt.Errorf("failed to set limit: %w", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			logrus.Infof("successfully set unplug limit to %d%%", limit)

			return nil
		},
	}
}

func NewTopUpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "topup",
		Short:   "Control the one-cycle Top Up override",
		GroupID: gBasic,
		Long: `Control the Top Up override.

Top Up suppresses the unplug alert for one charge cycle and notifies at
100% instead, for when you want a full battery before going mobile. It
disengages automatically once 100% is reached.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "on",
			Short: "Activate Top Up for the current charge cycle",
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := apiClient().SetTopUp(true)
				if err != nil {
					return fmt.Errorf("failed to activate top-up: %w", err)
				}
				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}
				logrus.Info("top-up activated, you will be notified at 100%")
				return nil
			},
		},
		&cobra.Command{
			Use:   "off",
			Short: "Cancel Top Up before it completes",
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := apiClient().SetTopUp(false)
				if err != nil {
					return fmt.Errorf("failed to cancel top-up: %w", err)
				}
				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}
				logrus.Info("top-up cancelled")
				return nil
			},
		},
		newTopUpScheduleCommand(),
	)

	return cmd
}

func newTopUpScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule [cron expression]",
		Short: "Schedule automatic Top Up activation",
		Long: `Schedule automatic Top Up activation with a cron expression,
e.g. "0 8 * * 5" to top up every Friday morning before a commute.
Run with no argument to show the current schedule; use "omend topup
schedule clear" to remove it.`,
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				sched, err := apiClient().GetTopUpSchedule()
				if err != nil {
					return fmt.Errorf("failed to get top-up schedule: %w", err)
				}
				if sched.Expr == "" {
					logrus.Info("no top-up schedule set")
					return nil
				}
				logrus.Infof("top-up schedule: %q, next run %s", sched.Expr, sched.Next.Local())
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("invalid number of arguments")
			}

			expr := args[0]
			if expr == "clear" {
				expr = ""
			}

			ret, err := apiClient().SetTopUpSchedule(expr)
			if err != nil {
				return fmt.Errorf("failed to set top-up schedule: %w", err)
			}
			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}
			return nil
		},
	}

	return cmd
}
