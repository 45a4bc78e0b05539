package recorder

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/omen-linux/omend/pkg/battery"
)

// retention bounds the sample log; anything older is pruned on open.
const retention = 7 * 24 * time.Hour

// SQLite persists samples to a single-table SQLite database.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

var _ Recorder = (*SQLite)(nil)

// OpenSQLite opens (or creates) the history database, runs the migration
// and prunes samples past retention.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to create history directory for %s", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to open history database")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, pkgerrors.Wrap(err, "failed to set WAL mode")
	}

	r := &SQLite{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, pkgerrors.Wrap(err, "failed to migrate history database")
	}
	if err := r.prune(time.Now().Add(-retention)); err != nil {
		logrus.Warnf("failed to prune history database: %v", err)
	}

	logrus.Debugf("history database opened: %s", path)
	return r, nil
}

func (r *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS samples (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			taken_at     INTEGER NOT NULL,
			capacity_pct INTEGER NOT NULL,
			status       TEXT NOT NULL,
			ac_online    INTEGER NOT NULL,
			energy_now   REAL,
			energy_full  REAL,
			energy_design REAL,
			power        REAL,
			voltage      REAL,
			cycle_count  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_taken_at ON samples(taken_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLite) prune(before time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`DELETE FROM samples WHERE taken_at < ?`, before.Unix())
	return err
}

func (r *SQLite) Record(snap battery.Snapshot, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO samples
		(taken_at, capacity_pct, status, ac_online,
		 energy_now, energy_full, energy_design, power, voltage, cycle_count)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		at.Unix(), snap.CapacityPct, snap.Status.String(), boolToInt(snap.ACOnline),
		snap.EnergyNowWh, snap.EnergyFullWh, snap.EnergyDesignWh,
		snap.PowerW, snap.VoltageV, snap.CycleCount,
	)
	return err
}

func (r *SQLite) Recent(n int) ([]Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT taken_at, capacity_pct, status, ac_online,
		energy_now, energy_full, energy_design, power, voltage, cycle_count
		FROM samples ORDER BY taken_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var (
			s        Sample
			takenAt  int64
			status   string
			acOnline int
		)
		if err := rows.Scan(&takenAt, &s.CapacityPct, &status, &acOnline,
			&s.EnergyNowWh, &s.EnergyFullWh, &s.EnergyDesignWh,
			&s.PowerW, &s.VoltageV, &s.CycleCount); err != nil {
			return nil, err
		}
		s.TakenAt = time.Unix(takenAt, 0)
		s.Status = battery.ParseStatus(status)
		s.ACOnline = acOnline != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLite) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
