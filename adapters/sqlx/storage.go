package sqlx

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	// Registered drivers for the supported databases.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"hanzikit/core"
)

// Driver names the SQL dialect and database/sql driver in use.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite"
)

// Config describes an SQL connection.
type Config struct {
	Driver          Driver
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store keeps one row per user in the user_progress table. Unlocked ids and
// statistics are JSON text columns so every dialect stores them the same way.
type Store struct {
	db     *sqlx.DB
	driver Driver
}

type progressRow struct {
	UserID      int64  `db:"user_id"`
	Unlocked    string `db:"unlocked"`
	Stats       string `db:"stats"`
	TotalPoints int64  `db:"total_points"`
	UpdatedAt   int64  `db:"updated_at"`
}

// New opens and pings the database.
func New(ctx context.Context, cfg Config) (*Store, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}
	db, err := sqlx.Open(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	return NewWithDB(db, cfg.Driver), nil
}

// NewWithDB wraps an existing handle (useful for testing).
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the progress table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS user_progress (
	user_id BIGINT NOT NULL PRIMARY KEY,
	unlocked TEXT NOT NULL,
	stats TEXT NOT NULL,
	total_points BIGINT NOT NULL DEFAULT 0,
	updated_at BIGINT NOT NULL
)`)
	return err
}

func (s *Store) Load(ctx context.Context, user core.UserID) (core.Record, bool, error) {
	var row progressRow
	q := s.db.Rebind(`SELECT user_id, unlocked, stats, total_points, updated_at FROM user_progress WHERE user_id = ?`)
	if err := s.db.GetContext(ctx, &row, q, int64(user)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Record{}, false, nil
		}
		return core.Record{}, false, err
	}
	rec, err := row.record()
	if err != nil {
		return core.Record{}, false, fmt.Errorf("user_progress %d: %w: %v", user, core.ErrMalformedRecord, err)
	}
	return rec, true, nil
}

func (s *Store) Save(ctx context.Context, rec core.Record) error {
	unlocked, err := json.Marshal(rec.UnlockedIDs())
	if err != nil {
		return err
	}
	stats, err := json.Marshal(rec.Stats)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(s.upsertQuery()),
		int64(rec.UserID), string(unlocked), string(stats), rec.TotalPoints, rec.Updated.UnixMilli())
	return err
}

// Users lists every user with a stored row, ascending.
func (s *Store) Users(ctx context.Context) ([]core.UserID, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, `SELECT user_id FROM user_progress ORDER BY user_id`); err != nil {
		return nil, err
	}
	out := make([]core.UserID, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.UserID(id))
	}
	return out, nil
}

func (s *Store) upsertQuery() string {
	const insert = `INSERT INTO user_progress (user_id, unlocked, stats, total_points, updated_at) VALUES (?, ?, ?, ?, ?)`
	if s.driver == DriverMySQL {
		return insert + ` ON DUPLICATE KEY UPDATE unlocked = VALUES(unlocked), stats = VALUES(stats), total_points = VALUES(total_points), updated_at = VALUES(updated_at)`
	}
	return insert + ` ON CONFLICT (user_id) DO UPDATE SET unlocked = excluded.unlocked, stats = excluded.stats, total_points = excluded.total_points, updated_at = excluded.updated_at`
}

func (r progressRow) record() (core.Record, error) {
	var ids []core.AchievementID
	if err := json.Unmarshal([]byte(r.Unlocked), &ids); err != nil {
		return core.Record{}, fmt.Errorf("unlocked: %w", err)
	}
	stats := core.Stats{}
	if err := json.Unmarshal([]byte(r.Stats), &stats); err != nil {
		return core.Record{}, fmt.Errorf("stats: %w", err)
	}
	rec := core.Record{
		UserID:      core.UserID(r.UserID),
		Unlocked:    make(map[core.AchievementID]struct{}, len(ids)),
		Stats:       stats,
		TotalPoints: r.TotalPoints,
		Updated:     time.UnixMilli(r.UpdatedAt).UTC(),
	}
	for _, id := range ids {
		rec.Unlocked[id] = struct{}{}
	}
	return rec, nil
}
