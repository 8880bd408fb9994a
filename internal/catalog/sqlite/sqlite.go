// Package sqlite is a catalog backend persisting entities and usage to a
// local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/crimson-sun/lookout/internal/catalog"
	"github.com/crimson-sun/lookout/internal/model"
	"github.com/crimson-sun/lookout/internal/usage"
)

func init() {
	catalog.Register("sqlite", func(cfg catalog.Config) (catalog.Catalog, error) {
		if cfg.Path == "" {
			return nil, errors.New("sqlite catalog: missing path")
		}
		return New(cfg.Path)
	})
}

// Store is a SQLite-backed catalog.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite catalog: open %s: %w", path, err)
	}
	// The pure-Go driver serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite catalog: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS charts (
			fqn TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS dashboards (
			id TEXT PRIMARY KEY,
			fqn TEXT NOT NULL UNIQUE,
			body TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS usage_summary (
			dashboard_id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			daily_count INTEGER NOT NULL,
			FOREIGN KEY (dashboard_id) REFERENCES dashboards(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS usage_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			dashboard_id TEXT NOT NULL,
			date TEXT NOT NULL,
			count INTEGER NOT NULL,
			cumulative INTEGER NOT NULL,
			recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (dashboard_id) REFERENCES dashboards(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_events_dashboard_date ON usage_events(dashboard_id, date)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) PutChart(ctx context.Context, req model.CreateChartRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("sqlite catalog: marshal chart: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO charts (fqn, body) VALUES (?, ?)
		 ON CONFLICT(fqn) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`,
		catalog.ChartKey(req), string(body))
	return err
}

func (s *Store) PutDashboard(ctx context.Context, req model.CreateDashboardRequest) (model.DashboardRef, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return model.DashboardRef{}, fmt.Errorf("sqlite catalog: marshal dashboard: %w", err)
	}
	key := catalog.DashboardKey(req)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dashboards (id, fqn, body) VALUES (?, ?, ?)
		 ON CONFLICT(fqn) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`,
		uuid.NewString(), key, string(body))
	if err != nil {
		return model.DashboardRef{}, err
	}
	return s.Resolve(ctx, key)
}

func (s *Store) Resolve(ctx context.Context, fqn string) (model.DashboardRef, error) {
	ref := model.DashboardRef{FQN: fqn}
	err := s.db.QueryRowContext(ctx, "SELECT id FROM dashboards WHERE fqn = ?", fqn).Scan(&ref.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DashboardRef{}, fmt.Errorf("resolve %q: %w", fqn, usage.ErrDashboardNotFound)
	}
	if err != nil {
		return model.DashboardRef{}, err
	}
	return ref, nil
}

func (s *Store) exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dashboards WHERE id = ?", id).Scan(&n)
	return n > 0, err
}

// PersistedUsage fails with usage.ErrDashboardNotFound for a dashboard never
// put, and returns a nil summary when no usage row exists yet.
func (s *Store) PersistedUsage(ctx context.Context, ref model.DashboardRef) (*model.PersistedUsageSummary, error) {
	ok, err := s.exists(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("usage of %q: %w", ref.FQN, usage.ErrDashboardNotFound)
	}

	var date string
	var count int64
	err = s.db.QueryRowContext(ctx,
		"SELECT date, daily_count FROM usage_summary WHERE dashboard_id = ?", ref.ID).Scan(&date, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d, err := civil.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("sqlite catalog: summary date %q: %w", date, err)
	}
	return &model.PersistedUsageSummary{Date: d, DailyCount: count}, nil
}

func (s *Store) RecordUsage(ctx context.Context, ev model.UsageEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM dashboards WHERE id = ?", ev.Dashboard.ID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("record usage of %q: %w", ev.Dashboard.FQN, usage.ErrDashboardNotFound)
	}

	summary := ev.Summary()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO usage_summary (dashboard_id, date, daily_count) VALUES (?, ?, ?)
		 ON CONFLICT(dashboard_id) DO UPDATE SET date = excluded.date, daily_count = excluded.daily_count`,
		ev.Dashboard.ID, summary.Date.String(), summary.DailyCount); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO usage_events (dashboard_id, date, count, cumulative) VALUES (?, ?, ?, ?)",
		ev.Dashboard.ID, ev.Date.String(), ev.Count, ev.Cumulative); err != nil {
		return err
	}
	return tx.Commit()
}

// History returns the recorded events of a dashboard, oldest first.
func (s *Store) History(ctx context.Context, ref model.DashboardRef) ([]model.UsageEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT date, count, cumulative FROM usage_events WHERE dashboard_id = ? ORDER BY id", ref.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UsageEvent
	for rows.Next() {
		var date string
		ev := model.UsageEvent{Dashboard: ref}
		if err := rows.Scan(&date, &ev.Count, &ev.Cumulative); err != nil {
			return nil, err
		}
		if ev.Date, err = civil.ParseDate(date); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
