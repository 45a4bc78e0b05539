// Package daemon runs the telemetry-to-decision pipeline: a serialized tick
// loop that reads the battery, applies the threshold policy, persists state
// and dispatches notifications, plus an HTTP API over a unix socket for the
// CLI and any other presentation layer to poll.
package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/omen-linux/omend/pkg/battery"
	"github.com/omen-linux/omend/pkg/notify"
	"github.com/omen-linux/omend/pkg/recorder"
	"github.com/omen-linux/omend/pkg/state"
)

// DefaultTickInterval is how often the policy is evaluated. Battery
// capacity moves slowly; 30s is more than enough resolution.
const DefaultTickInterval = 30 * time.Second

// Options configures a Daemon.
type Options struct {
	StatePath    string
	SocketPath   string
	HistoryPath  string
	TickInterval time.Duration
}

// Daemon owns the persisted state for the life of the process. Every state
// transition, periodic tick or user toggle alike, runs under tickLock so a
// load/decide/save sequence can never interleave with another.
type Daemon struct {
	source   *battery.Source
	store    *state.Store
	notifier notify.Notifier
	rec      recorder.Recorder
	sched    *Scheduler

	tickInterval time.Duration

	tickLock sync.Mutex

	snapMu   sync.RWMutex
	lastSnap battery.Snapshot

	// tick status log dedup, see logTickStatus
	lastLogged  tickStatus
	lastLogTime time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New wires a Daemon from options. A history database that cannot be
// opened downgrades to a no-op recorder; it never prevents startup.
func New(opts Options) *Daemon {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}

	var rec recorder.Recorder
	rec, err := recorder.OpenSQLite(opts.HistoryPath)
	if err != nil {
		logrus.Warnf("history disabled, failed to open database: %v", err)
		rec = recorder.Noop{}
	}

	d := &Daemon{
		source:       battery.DiscoverSource(),
		store:        state.NewStore(opts.StatePath),
		notifier:     notify.NewNotifySend("omend"),
		rec:          rec,
		tickInterval: opts.TickInterval,
		stopCh:       make(chan struct{}),
	}
	d.sched = NewScheduler(d.scheduledTopUp)

	return d
}

func (d *Daemon) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/snapshot", d.getSnapshot)
	router.GET("/state", d.getState)
	router.GET("/limit", d.getLimit)
	router.PUT("/limit", d.setLimit)
	router.PUT("/top-up", d.setTopUp)
	router.GET("/top-up-schedule", d.getTopUpSchedule)
	router.PUT("/top-up-schedule", d.setTopUpSchedule)
	router.GET("/history", d.getHistory)
	router.GET("/version", d.getVersion)

	return router
}

// Run starts the daemon and blocks until SIGINT or SIGTERM. State persisted
// up to the last completed tick is authoritative; shutdown flushes nothing
// further.
func Run(opts Options) error {
	d := New(opts)

	logrus.WithFields(d.store.Load().LogrusFields()).Info("state loaded")

	router := d.setupRoutes()

	// A stale socket from an unclean shutdown would make Listen fail.
	if err := os.Remove(opts.SocketPath); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "failed to remove stale socket %s", opts.SocketPath)
	}

	l, err := net.Listen("unix", opts.SocketPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to listen on %s", opts.SocketPath)
	}

	srv := &http.Server{Handler: router}
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// SIGHUP logs the state re-read from disk, so external edits to the
	// state file can be confirmed without restarting.
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			logrus.WithFields(d.store.Load().LogrusFields()).Info("state reloaded")
		}
	}()

	d.sched.Start()

	go func() {
		logrus.Debug("tick loop starts")
		d.runLoop()
		logrus.Debug("tick loop stopped")
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	logrus.Infof("caught signal %q: shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	d.sched.Stop()
	d.Stop()

	if err := d.rec.Close(); err != nil {
		logrus.Errorf("failed to close history database: %v", err)
	}

	if err := os.Remove(opts.SocketPath); err != nil && !os.IsNotExist(err) {
		logrus.Errorf("failed to remove socket: %v", err)
	}

	logrus.Info("exiting")
	return nil
}

// Stop terminates the tick loop. Safe to call more than once.
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
}

// Snapshot returns the latest battery reading. Presentation consumers may
// poll this at any cadence; it never triggers an evaluation.
func (d *Daemon) Snapshot() battery.Snapshot {
	d.snapMu.RLock()
	defer d.snapMu.RUnlock()
	return d.lastSnap
}

// State returns the current persisted state.
func (d *Daemon) State() state.State {
	return d.store.Load()
}

func (d *Daemon) setLastSnapshot(snap battery.Snapshot) {
	d.snapMu.Lock()
	d.lastSnap = snap
	d.snapMu.Unlock()
}

func (d *Daemon) scheduledTopUp() {
	logrus.Info("scheduled top-up firing")
	d.SetTopUp(true)
	d.Tick()
}
