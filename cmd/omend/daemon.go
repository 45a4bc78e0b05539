package main

import (
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/omen-linux/omend/pkg/daemon"
	"github.com/omen-linux/omend/pkg/version"
)

func NewDaemonCommand() *cobra.Command {
	var (
		statePath    = filepath.Join(defaultDataDir(), "state.json")
		historyPath  = filepath.Join(defaultDataDir(), "history.db")
		tickInterval = daemon.DefaultTickInterval
	)

	cmd := &cobra.Command{
		Use:     "daemon",
		Short:   "Run the omend daemon in the foreground",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("omend daemon starting")
			return daemon.Run(daemon.Options{
				StatePath:    statePath,
				SocketPath:   socketPath,
				HistoryPath:  historyPath,
				TickInterval: tickInterval,
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&statePath, "state", statePath, "state file path")
	f.StringVar(&historyPath, "history", historyPath, "telemetry history database path")
	f.DurationVar(&tickInterval, "tick-interval", tickInterval, "how often the policy is evaluated")

	return cmd
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}
