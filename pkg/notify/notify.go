// Package notify dispatches desktop alerts. Dispatch is fire-and-forget:
// failures are logged and never reach the policy, which already considers
// the notification delivered.
package notify

import (
	"os/exec"

	"github.com/sirupsen/logrus"

	"github.com/omen-linux/omend/pkg/policy"
)

// Notifier delivers one notification. Implementations must not block the
// caller.
type Notifier interface {
	Send(n policy.Notification)
}

// Func adapts a plain function to a Notifier. Used in tests to capture
// dispatched notifications.
type Func func(n policy.Notification)

func (f Func) Send(n policy.Notification) { f(n) }

// Discard drops every notification.
var Discard = Func(func(policy.Notification) {})

// NotifySend delivers notifications through the freedesktop notify-send
// command, the same sink the desktop itself uses.
type NotifySend struct {
	appName string
	bin     string
}

func NewNotifySend(appName string) *NotifySend {
	return &NotifySend{appName: appName, bin: "notify-send"}
}

func (ns *NotifySend) Send(n policy.Notification) {
	cmd := exec.Command(ns.bin,
		"--urgency="+n.Urgency.String(),
		"--icon="+n.Icon,
		"--app-name="+ns.appName,
		n.Title, n.Body,
	)

	if err := cmd.Start(); err != nil {
		logrus.Errorf("failed to dispatch notification %q: %v", n.Title, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"title":   n.Title,
		"urgency": n.Urgency.String(),
	}).Debug("notification dispatched")

	// Reap the child without blocking the tick loop.
	go func() {
		if err := cmd.Wait(); err != nil {
			logrus.Warnf("notify-send exited with error: %v", err)
		}
	}()
}
