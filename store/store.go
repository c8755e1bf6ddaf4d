// Package store persists domain profiles in a single-file embedded
// database under the data directory.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/use-agent/gofetch/models"
)

// DBFile is the database name under the data directory.
const DBFile = "crawler.db"

const schema = `
CREATE TABLE IF NOT EXISTS domain_profiles (
	domain           TEXT PRIMARY KEY,
	engine           TEXT NOT NULL,
	render_js        INTEGER NOT NULL DEFAULT 0,
	render_delay_ms  INTEGER NOT NULL DEFAULT 0,
	use_proxy        INTEGER NOT NULL DEFAULT 0,
	preset           TEXT NOT NULL DEFAULT '',
	hit_count        INTEGER NOT NULL DEFAULT 1,
	last_status_code INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);
`

// Store is the sqlite-backed domain profile store. WAL journaling tolerates
// concurrent readers; callers treat every operation as atomic.
type Store struct {
	db *sql.DB
}

// Open creates the data directory and database file if needed and applies
// the schema.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := "file:" + filepath.Join(dataDir, DBFile) + "?" + url.Values{
		"_pragma": []string{"journal_mode(WAL)", "busy_timeout(5000)", "synchronous(NORMAL)"},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY on concurrent upserts.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const profileColumns = `domain, engine, render_js, render_delay_ms, use_proxy, preset, hit_count, last_status_code, created_at, updated_at`

// Get returns the profile for a canonical domain, or nil when absent.
func (s *Store) Get(ctx context.Context, domain string) (*models.DomainProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM domain_profiles WHERE domain = ?`, domain)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %q: %w", domain, err)
	}
	return p, nil
}

// Upsert inserts the profile or, on conflict, overwrites the configuration
// fields, bumps the hit counter and refreshes updated_at.
func (s *Store) Upsert(ctx context.Context, p *models.DomainProfile) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO domain_profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET
			engine           = excluded.engine,
			render_js        = excluded.render_js,
			render_delay_ms  = excluded.render_delay_ms,
			use_proxy        = excluded.use_proxy,
			preset           = excluded.preset,
			hit_count        = hit_count + 1,
			last_status_code = excluded.last_status_code,
			updated_at       = excluded.updated_at`,
		p.Domain, p.Engine, boolInt(p.RenderJs), p.RenderDelayMs, boolInt(p.UseProxy),
		p.Preset, p.LastStatusCode, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert profile %q: %w", p.Domain, err)
	}
	return nil
}

// IncrementHit bumps the hit counter for a cached reuse and records the
// latest status code.
func (s *Store) IncrementHit(ctx context.Context, domain string, statusCode int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE domain_profiles
		SET hit_count = hit_count + 1, last_status_code = ?, updated_at = ?
		WHERE domain = ?`,
		statusCode, time.Now().UTC(), domain,
	)
	if err != nil {
		return fmt.Errorf("increment hit %q: %w", domain, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("increment hit %q: no such profile", domain)
	}
	return nil
}

// Delete removes a profile. Reports whether one existed.
func (s *Store) Delete(ctx context.Context, domain string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM domain_profiles WHERE domain = ?`, domain)
	if err != nil {
		return false, fmt.Errorf("delete profile %q: %w", domain, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// All returns every profile, most recently updated first.
func (s *Store) All(ctx context.Context) ([]models.DomainProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM domain_profiles ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []models.DomainProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*models.DomainProfile, error) {
	var p models.DomainProfile
	var renderJs, useProxy int
	err := row.Scan(&p.Domain, &p.Engine, &renderJs, &p.RenderDelayMs, &useProxy,
		&p.Preset, &p.HitCount, &p.LastStatusCode, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.RenderJs = renderJs != 0
	p.UseProxy = useProxy != 0
	return &p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
