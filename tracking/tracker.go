package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/yoanbernabeu/rtk/config"
)

// busyTimeoutMs bounds how long a writer waits for a concurrent rtk process
// holding the database lock.
const busyTimeoutMs = 5000

// Tracker owns a connection to the tracking database.
// A Tracker is safe for concurrent use by multiple goroutines.
type Tracker struct {
	db     *sql.DB
	path   string
	logger *log.Logger
	now    func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock overrides the time source used to stamp records and compute
// the retention cutoff.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

func newTracker(path string, opts []Option) *Tracker {
	t := &Tracker{
		path:   path,
		logger: log.Default().WithPrefix("tracking"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open opens (creating if needed) the database at path and migrates its schema.
func Open(path string, opts ...Option) (*Tracker, error) {
	t := newTracker(path, opts)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("tracking: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("tracking: open %s: %w", path, err)
	}
	// One connection serializes writers inside this process; busy_timeout
	// covers other processes.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("tracking: open %s: %w", path, err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("tracking: migrate: %w", err)
	}
	t.db = db
	t.logger.Debug("database ready", "path", path)
	return t, nil
}

// OpenDefault opens the database at the location resolved from the
// environment and the user config. An unreadable config file is logged and
// treated as absent, so RTK_DB_PATH and the platform default still apply.
func OpenDefault(opts ...Option) (*Tracker, error) {
	cfg, err := config.Load()
	if err != nil {
		newTracker("", opts).logger.Debug("ignoring config file", "err", err)
		cfg = nil
	}
	return Open(config.DatabasePath(cfg), opts...)
}

// dsn builds a SQLite URI for path. The path is percent-encoded so that
// '#', '?' and '%' in directory names reach the filesystem unchanged.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMs))
	q.Add("_pragma", "journal_mode(WAL)")

	p := filepath.ToSlash(path)
	if filepath.VolumeName(path) != "" {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", OmitHost: true, Path: p, RawQuery: q.Encode()}
	return u.String()
}

// Path returns the database file location.
func (t *Tracker) Path() string { return t.path }

// Close releases the database connection.
func (t *Tracker) Close() error {
	return t.db.Close()
}

const insertCommand = `
INSERT INTO commands (timestamp, original_cmd, rtk_cmd, input_tokens, output_tokens,
	saved_tokens, savings_pct, exec_time_ms, working_dir)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const deleteExpired = `DELETE FROM commands WHERE timestamp < ?`

// Record inserts one entry stamped with the current time, then deletes every
// record older than HistoryDays.
func (t *Tracker) Record(ctx context.Context, e Entry) error {
	now := t.now()
	rec := newCommandRecord(e, now)

	_, err := t.db.ExecContext(ctx, insertCommand,
		FormatTimestamp(rec.Timestamp),
		rec.OriginalCmd,
		rec.RtkCmd,
		rec.InputTokens,
		rec.OutputTokens,
		rec.SavedTokens,
		rec.SavingsPct,
		rec.ExecTimeMs,
		rec.WorkingDir,
	)
	if err != nil {
		return fmt.Errorf("tracking: insert: %w", err)
	}

	if err := t.cleanup(ctx, now); err != nil {
		return fmt.Errorf("tracking: cleanup: %w", err)
	}
	return nil
}

func (t *Tracker) cleanup(ctx context.Context, now time.Time) error {
	cutoff := FormatTimestamp(now.UTC().AddDate(0, 0, -HistoryDays))
	res, err := t.db.ExecContext(ctx, deleteExpired, cutoff)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		t.logger.Debug("pruned expired records", "count", n, "cutoff", cutoff)
	}
	return nil
}
