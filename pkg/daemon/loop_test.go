package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omen-linux/omend/pkg/battery"
	"github.com/omen-linux/omend/pkg/policy"
	"github.com/omen-linux/omend/pkg/recorder"
	"github.com/omen-linux/omend/pkg/state"
)

// fakeSysfs is a writable power-supply fixture backing a battery.Source.
type fakeSysfs struct {
	t      *testing.T
	batDir string
	acDir  string
}

func newFakeSysfs(t *testing.T) *fakeSysfs {
	t.Helper()
	root := t.TempDir()
	f := &fakeSysfs{
		t:      t,
		batDir: filepath.Join(root, "BAT1"),
		acDir:  filepath.Join(root, "ACAD"),
	}
	require.NoError(t, os.MkdirAll(f.batDir, 0o755))
	require.NoError(t, os.MkdirAll(f.acDir, 0o755))
	return f
}

func (f *fakeSysfs) set(capacity int, status string, acOnline bool) {
	f.t.Helper()
	write := func(dir, attr, val string) {
		require.NoError(f.t, os.WriteFile(filepath.Join(dir, attr), []byte(val+"\n"), 0o644))
	}
	write(f.batDir, "capacity", strconv.Itoa(capacity))
	write(f.batDir, "status", status)
	online := "0"
	if acOnline {
		online = "1"
	}
	write(f.acDir, "online", online)
}

// captureNotifier records dispatched notifications.
type captureNotifier struct {
	mu   sync.Mutex
	sent []policy.Notification
}

func (c *captureNotifier) Send(n policy.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
}

func (c *captureNotifier) all() []policy.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]policy.Notification(nil), c.sent...)
}

func newTestDaemon(t *testing.T, fs *fakeSysfs) (*Daemon, *captureNotifier) {
	t.Helper()
	captured := &captureNotifier{}
	d := &Daemon{
		source:       battery.NewSource(fs.batDir, fs.acDir),
		store:        state.NewStore(filepath.Join(t.TempDir(), "state.json")),
		notifier:     captured,
		rec:          recorder.Noop{},
		tickInterval: time.Second,
		stopCh:       make(chan struct{}),
	}
	d.sched = NewScheduler(d.scheduledTopUp)
	return d, captured
}

func TestTickNotifiesAtLimit(t *testing.T) {
	fs := newFakeSysfs(t)
	fs.set(80, "Charging", true)
	d, captured := newTestDaemon(t, fs)

	d.Tick()

	sent := captured.all()
	require.Len(t, sent, 1)
	assert.Equal(t, policy.UrgencyCritical, sent[0].Urgency)

	st := d.State()
	assert.Equal(t, 80, st.NotifiedAt)

	snap := d.Snapshot()
	assert.Equal(t, 80, snap.CapacityPct)
	assert.True(t, snap.ACOnline)
}

func TestTickDeduplicatesAcrossTicks(t *testing.T) {
	fs := newFakeSysfs(t)
	fs.set(80, "Not charging", true)
	d, captured := newTestDaemon(t, fs)

	d.Tick()
	d.Tick()
	d.Tick()

	assert.Len(t, captured.all(), 1)
}

func TestTickUnplugResetsSentinel(t *testing.T) {
	fs := newFakeSysfs(t)
	fs.set(80, "Charging", true)
	d, captured := newTestDaemon(t, fs)

	d.Tick()
	require.Len(t, captured.all(), 1)

	fs.set(79, "Discharging", false)
	d.Tick()

	assert.Len(t, captured.all(), 1)
	assert.Equal(t, state.NotNotified, d.State().NotifiedAt)

	// Next plug-in cycle notifies again.
	fs.set(80, "Charging", true)
	d.Tick()
	assert.Len(t, captured.all(), 2)
}

func TestTopUpCycle(t *testing.T) {
	fs := newFakeSysfs(t)
	fs.set(85, "Charging", true)
	d, captured := newTestDaemon(t, fs)

	// Activation notifies immediately, independent of the poll tick.
	d.SetTopUp(true)
	sent := captured.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "Top Up activated", sent[0].Title)

	// 85% is over the configured limit but under the 100% target.
	d.Tick()
	assert.Len(t, captured.all(), 1)

	fs.set(99, "Charging", true)
	d.Tick()
	assert.Len(t, captured.all(), 1)

	fs.set(100, "Full", true) // sysfs reports Full at 100
	d.Tick()
	sent = captured.all()
	require.Len(t, sent, 2)
	assert.Equal(t, "Battery Full", sent[1].Title)
	assert.False(t, d.State().TopUpActive)
}

func TestCancelTopUpNoNotification(t *testing.T) {
	fs := newFakeSysfs(t)
	fs.set(70, "Charging", true)
	d, captured := newTestDaemon(t, fs)

	d.SetTopUp(true)
	require.Len(t, captured.all(), 1)

	d.SetTopUp(false)
	assert.Len(t, captured.all(), 1)
	assert.False(t, d.State().TopUpActive)
	assert.Equal(t, state.NotNotified, d.State().NotifiedAt)
}

func TestSetLimitTakesEffectOnNextTick(t *testing.T) {
	fs := newFakeSysfs(t)
	fs.set(70, "Charging", true)
	d, captured := newTestDaemon(t, fs)

	d.Tick()
	require.Empty(t, captured.all())

	require.NoError(t, d.SetLimit(70))
	d.Tick()

	sent := captured.all()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "70% limit")
}

func TestTickSurvivesPersistenceFailure(t *testing.T) {
	fs := newFakeSysfs(t)
	fs.set(80, "Charging", true)
	d, captured := newTestDaemon(t, fs)

	// A directory at the state path makes every Save fail.
	d.store = state.NewStore(t.TempDir())

	d.Tick()

	// The decision still took effect for this tick.
	require.Len(t, captured.all(), 1)

	// Nothing was persisted, so the next tick recomputes from defaults and
	// the notification repeats. Best-effort dedup, never silently lost.
	d.Tick()
	assert.Len(t, captured.all(), 2)
}

func TestRunLoopStops(t *testing.T) {
	fs := newFakeSysfs(t)
	fs.set(50, "Discharging", false)
	d, _ := newTestDaemon(t, fs)
	d.tickInterval = 10 * time.Millisecond

	done := make(chan struct{})
	go func() {
		d.runLoop()
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	d.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runLoop did not stop")
	}

	// The loop ran at least the immediate first tick.
	assert.Equal(t, 50, d.Snapshot().CapacityPct)
}
