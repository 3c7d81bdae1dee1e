package spacetraveling

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNoBuild is returned by LatestBuild before the first build.
var ErrNoBuild = errors.New("spacetraveling: no build recorded")

// Page sources.
const (
	SourceBuild    = "build"
	SourceFallback = "fallback"
)

// Build statuses.
const (
	BuildRunning  = "running"
	BuildFinished = "finished"
	BuildFailed   = "failed"
)

// Build is one run of the static generator.
type Build struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Status     string
	Pages      int
	Error      string
}

// PageRecord says which file in the output tree serves a route and how it
// got there.
type PageRecord struct {
	Route       string // e.g. "/post/hello/"
	File        string // relative to the output dir
	BuildID     string
	Source      string // SourceBuild or SourceFallback
	GeneratedAt time.Time
}

// Manifest is a SQLite record of builds and the pages they wrote.
type Manifest struct {
	db *sql.DB
}

// OpenManifest opens (or creates) the manifest database at path, ensures the
// data directory exists, and creates the schema.
func OpenManifest(path string) (*Manifest, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the server read while a build or a fallback writes;
	// busy_timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	m := &Manifest{db: db}
	if err := m.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// Close closes the underlying database connection.
func (m *Manifest) Close() error {
	return m.db.Close()
}

func (m *Manifest) ensureSchema() error {
	_, err := m.db.Exec(`
CREATE TABLE IF NOT EXISTS builds (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    pages INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS pages (
    route TEXT PRIMARY KEY,
    file TEXT NOT NULL,
    build_id TEXT NOT NULL,
    source TEXT NOT NULL,
    generated_at TEXT NOT NULL
);
`)
	return err
}

// BeginBuild records a new running build with a fresh ID and forgets every
// page of earlier builds, since a build replaces the whole output tree.
func (m *Manifest) BeginBuild(ctx context.Context) (Build, error) {
	b := Build{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    BuildRunning,
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return Build{}, err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM pages`); err != nil {
		return Build{}, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO builds (id, started_at, status) VALUES (?, ?, ?)`,
		b.ID, b.StartedAt.Format(time.RFC3339Nano), b.Status); err != nil {
		return Build{}, err
	}
	if err := tx.Commit(); err != nil {
		return Build{}, fmt.Errorf("begin build: %w", err)
	}
	return b, nil
}

// FinishBuild marks a build finished, or failed when buildErr is non-nil.
func (m *Manifest) FinishBuild(ctx context.Context, id string, pages int, buildErr error) error {
	status, msg := BuildFinished, ""
	if buildErr != nil {
		status, msg = BuildFailed, buildErr.Error()
	}
	_, err := m.db.ExecContext(ctx, `UPDATE builds SET finished_at = ?, status = ?, pages = ?, error = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), status, pages, msg, id)
	return err
}

// LatestBuild returns the most recently started build.
func (m *Manifest) LatestBuild(ctx context.Context) (Build, error) {
	var b Build
	var started, finished string
	err := m.db.QueryRowContext(ctx, `SELECT id, started_at, finished_at, status, pages, error FROM builds ORDER BY started_at DESC LIMIT 1`).
		Scan(&b.ID, &started, &finished, &b.Status, &b.Pages, &b.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, ErrNoBuild
	}
	if err != nil {
		return Build{}, err
	}
	b.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finished != "" {
		b.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	}
	return b, nil
}

// RecordPage upserts the page serving p.Route.
func (m *Manifest) RecordPage(ctx context.Context, p PageRecord) error {
	if p.GeneratedAt.IsZero() {
		p.GeneratedAt = time.Now().UTC()
	}
	_, err := m.db.ExecContext(ctx, `INSERT OR REPLACE INTO pages (route, file, build_id, source, generated_at) VALUES (?, ?, ?, ?, ?)`,
		p.Route, p.File, p.BuildID, p.Source, p.GeneratedAt.Format(time.RFC3339Nano))
	return err
}

// LookupPage returns the record for route. ok is false when no page serves it.
func (m *Manifest) LookupPage(ctx context.Context, route string) (p PageRecord, ok bool, err error) {
	var generated string
	err = m.db.QueryRowContext(ctx, `SELECT route, file, build_id, source, generated_at FROM pages WHERE route = ?`, route).
		Scan(&p.Route, &p.File, &p.BuildID, &p.Source, &generated)
	if errors.Is(err, sql.ErrNoRows) {
		return PageRecord{}, false, nil
	}
	if err != nil {
		return PageRecord{}, false, err
	}
	p.GeneratedAt, _ = time.Parse(time.RFC3339Nano, generated)
	return p, true, nil
}

// Pages lists every recorded page ordered by route.
func (m *Manifest) Pages(ctx context.Context) ([]PageRecord, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT route, file, build_id, source, generated_at FROM pages ORDER BY route`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var p PageRecord
		var generated string
		if err := rows.Scan(&p.Route, &p.File, &p.BuildID, &p.Source, &generated); err != nil {
			return nil, err
		}
		p.GeneratedAt, _ = time.Parse(time.RFC3339Nano, generated)
		pages = append(pages, p)
	}
	return pages, rows.Err()
}
