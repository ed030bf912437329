// Package journal records capture runs in SQLite: the timeline geometry,
// every document sampled after each press, and the output digest. A
// journaled run can be replayed without a browser.
package journal

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/animexport/animexport/internal/host"
)

// ErrRunNotFound is returned for unknown run ids.
var ErrRunNotFound = errors.New("journal: run not found")

// Run statuses.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Schema for the journal tables.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	editor_url     TEXT NOT NULL DEFAULT '',
	session_token  TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'running',
	key_count      INTEGER NOT NULL DEFAULT 0,
	total_time     REAL NOT NULL DEFAULT 0,
	output_path    TEXT NOT NULL DEFAULT '',
	output_sha256  TEXT NOT NULL DEFAULT '',
	output_size    INTEGER NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT '',
	settings       TEXT NOT NULL DEFAULT '',
	started_at     INTEGER NOT NULL,
	finished_at    INTEGER
);

CREATE TABLE IF NOT EXISTS run_rects (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	selector TEXT NOT NULL,
	min_x    REAL NOT NULL,
	min_y    REAL NOT NULL,
	max_x    REAL NOT NULL,
	max_y    REAL NOT NULL,
	PRIMARY KEY (run_id, selector)
);

CREATE TABLE IF NOT EXISTS run_frames (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	html        TEXT NOT NULL,
	html_hash   TEXT NOT NULL,
	captured_at INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// Run is a row of the runs table.
type Run struct {
	ID           string
	EditorURL    string
	SessionToken string
	Status       string
	KeyCount     int
	TotalTime    float64
	OutputPath   string
	OutputSHA256 string
	OutputSize   int64
	Error        string
	Settings     string // YAML of the settings replay must reuse, empty for old runs
	StartedAt    time.Time
	FinishedAt   time.Time // zero while running
}

// Outcome is what Finish records.
type Outcome struct {
	KeyCount   int
	TotalTime  float64
	OutputPath string
	SHA256     string
	Size       int64
	Err        error
}

// Store is the journal database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New wraps an open database and applies the schema.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	if err := addColumn(db, "runs", "settings", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// addColumn upgrades journals created before the column existed.
func addColumn(db *sql.DB, table, column, decl string) error {
	rows, err := db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()
	_, err = db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl))
	return err
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Begin inserts a running run.
func (s *Store) Begin(ctx context.Context, id, editorURL, token string) error {
	_, err := exec(ctx, s.db, `
		INSERT INTO runs (id, editor_url, session_token, status, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, editorURL, token, StatusRunning, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("journal: begin %s: %w", id, err)
	}
	return nil
}

// SetSettings stores the settings a replay of the run must reuse.
func (s *Store) SetSettings(ctx context.Context, id, settings string) error {
	res, err := exec(ctx, s.db, `UPDATE runs SET settings = ? WHERE id = ?`, settings, id)
	if err != nil {
		return fmt.Errorf("journal: settings %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Finish marks the run done, or failed when o.Err is set.
func (s *Store) Finish(ctx context.Context, id string, o Outcome) error {
	status, msg := StatusDone, ""
	if o.Err != nil {
		status, msg = StatusFailed, o.Err.Error()
	}
	res, err := exec(ctx, s.db, `
		UPDATE runs
		SET status = ?, key_count = ?, total_time = ?, output_path = ?,
		    output_sha256 = ?, output_size = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		status, o.KeyCount, o.TotalTime, o.OutputPath, o.SHA256, o.Size, msg, s.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("journal: finish %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// PutRect stores the rectangle a selector resolved to.
func (s *Store) PutRect(ctx context.Context, runID, selector string, r host.Rect) error {
	_, err := exec(ctx, s.db, `
		INSERT INTO run_rects (run_id, selector, min_x, min_y, max_x, max_y)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, selector) DO UPDATE SET
			min_x = excluded.min_x, min_y = excluded.min_y,
			max_x = excluded.max_x, max_y = excluded.max_y`,
		runID, selector, r.Left, r.Top, r.Right, r.Bottom)
	if err != nil {
		return fmt.Errorf("journal: put rect %s: %w", selector, err)
	}
	return nil
}

// PutFrame stores the document read after seq presses. A later read for
// the same seq replaces the earlier one.
func (s *Store) PutFrame(ctx context.Context, runID string, seq int, html string) error {
	_, err := exec(ctx, s.db, `
		INSERT INTO run_frames (run_id, seq, html, html_hash, captured_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO UPDATE SET
			html = excluded.html, html_hash = excluded.html_hash,
			captured_at = excluded.captured_at`,
		runID, seq, html, hashHTML(html), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("journal: put frame %d: %w", seq, err)
	}
	return nil
}

// Get returns one run.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, runColumns+` WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("journal: get %s: %w", id, err)
	}
	return r, nil
}

// List returns the most recent runs first. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, runColumns+` ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("journal: list: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// Rects returns the recorded rectangles by selector.
func (s *Store) Rects(ctx context.Context, runID string) (map[string]host.Rect, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT selector, min_x, min_y, max_x, max_y
		FROM run_rects WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: rects: %w", err)
	}
	defer rows.Close()

	out := make(map[string]host.Rect)
	for rows.Next() {
		var sel string
		var r host.Rect
		if err := rows.Scan(&sel, &r.Left, &r.Top, &r.Right, &r.Bottom); err != nil {
			return nil, fmt.Errorf("journal: rects: %w", err)
		}
		out[sel] = r
	}
	return out, rows.Err()
}

// Frames returns the recorded documents indexed by press count. A press
// count with no recorded read repeats the previous document.
func (s *Store) Frames(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, html FROM run_frames WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: frames: %w", err)
	}
	defer rows.Close()

	var frames []string
	for rows.Next() {
		var seq int
		var html string
		if err := rows.Scan(&seq, &html); err != nil {
			return nil, fmt.Errorf("journal: frames: %w", err)
		}
		for len(frames) < seq {
			prev := html
			if len(frames) > 0 {
				prev = frames[len(frames)-1]
			}
			frames = append(frames, prev)
		}
		frames = append(frames, html)
	}
	return frames, rows.Err()
}

// LoadHost rebuilds a static host from a journaled run.
func (s *Store) LoadHost(ctx context.Context, runID string) (*host.Static, *Run, error) {
	run, err := s.Get(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	rects, err := s.Rects(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	frames, err := s.Frames(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if len(frames) == 0 {
		return nil, nil, fmt.Errorf("journal: run %s has no frames", runID)
	}
	return host.NewStatic(rects, frames...), run, nil
}

const runColumns = `
	SELECT id, editor_url, session_token, status, key_count, total_time,
	       output_path, output_sha256, output_size, error, settings, started_at, finished_at
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var r Run
	var started int64
	var finished sql.NullInt64
	if err := sc.Scan(&r.ID, &r.EditorURL, &r.SessionToken, &r.Status, &r.KeyCount, &r.TotalTime,
		&r.OutputPath, &r.OutputSHA256, &r.OutputSize, &r.Error, &r.Settings, &started, &finished); err != nil {
		return nil, err
	}
	r.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		r.FinishedAt = time.UnixMilli(finished.Int64)
	}
	return &r, nil
}

func hashHTML(html string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(html)))
}
