// Package state persists the threshold/top-up record across restarts.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultLimit is the unplug threshold used until the user configures one.
	DefaultLimit = 80

	// NotNotified is the NotifiedAt sentinel meaning no notification has
	// been issued since the battery was last unplugged.
	NotNotified = -1
)

// State is the durable policy record. It is a small value type: the daemon
// loads it, hands it to the policy, and writes the result back explicitly.
type State struct {
	Limit       int  `json:"limit"`
	TopUpActive bool `json:"top_up_active"`
	NotifiedAt  int  `json:"notified_at"`
}

// Default returns the state used on first run and whenever the backing file
// is missing or fails validation.
func Default() State {
	return State{
		Limit:       DefaultLimit,
		TopUpActive: false,
		NotifiedAt:  NotNotified,
	}
}

// EffectiveLimit is the threshold currently in force: the configured limit,
// or 100 while the top-up override is active.
func (s State) EffectiveLimit() int {
	if s.TopUpActive {
		return 100
	}
	return s.Limit
}

// LogrusFields exposes the state for structured logging.
func (s State) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"limit":       s.Limit,
		"topUpActive": s.TopUpActive,
		"notifiedAt":  s.NotifiedAt,
	}
}

// rawState mirrors State with pointer fields so a structurally incomplete
// document (missing keys, wrong types) is detectable after unmarshal.
type rawState struct {
	Limit       *int  `json:"limit"`
	TopUpActive *bool `json:"top_up_active"`
	NotifiedAt  *int  `json:"notified_at"`
}

// Store reads and writes the state file. Load never fails; Save reports
// errors so the caller can log and carry on (the next tick retries
// naturally).
type Store struct {
	mu   sync.RWMutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (st *Store) Path() string {
	return st.path
}

// Load returns the persisted state, or defaults when the file is absent,
// unreadable, or structurally invalid. A corrupt file is not an error: it
// is simply overwritten by the next Save.
func (st *Store) Load() State {
	st.mu.RLock()
	defer st.mu.RUnlock()

	b, err := os.ReadFile(st.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.Warnf("failed to read state file %s, using defaults: %v", st.path, err)
		}
		return Default()
	}

	var raw rawState
	if err := json.Unmarshal(b, &raw); err != nil {
		logrus.Warnf("state file %s is corrupt, using defaults: %v", st.path, err)
		return Default()
	}

	if raw.Limit == nil || raw.TopUpActive == nil || raw.NotifiedAt == nil {
		logrus.Warnf("state file %s is missing fields, using defaults", st.path)
		return Default()
	}
	if *raw.Limit < 0 || *raw.Limit > 100 {
		logrus.Warnf("state file %s has limit %d out of [0,100], using defaults", st.path, *raw.Limit)
		return Default()
	}

	return State{
		Limit:       *raw.Limit,
		TopUpActive: *raw.TopUpActive,
		NotifiedAt:  *raw.NotifiedAt,
	}
}

// Save durably writes the full state, creating the containing directory if
// needed.
func (st *Store) Save(s State) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create state directory for %s", st.path)
	}

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal state")
	}

	if err := os.WriteFile(st.path, b, 0o644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write state file %s", st.path)
	}

	return nil
}
