// Package sqlite implements domain.HazardStore on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
)

// newHazardWindow matches domain.HazardEvent.IsNew.
const newHazardWindow = 24 * time.Hour

// HazardStore indexes wildfire incidents by their upstream identifier.
type HazardStore struct {
	db *sql.DB
}

// NewHazardStore opens the database at path and applies the schema. Use
// ":memory:" for a throwaway store.
func NewHazardStore(path string) (*HazardStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &HazardStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *HazardStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS hazards (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			acres REAL NOT NULL DEFAULT 0,
			discovered_at INTEGER,
			status TEXT NOT NULL DEFAULT '',
			fire_type TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			agency TEXT NOT NULL DEFAULT '',
			fetched_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_hazards_discovered_at ON hazards(discovered_at);
		CREATE INDEX IF NOT EXISTS idx_hazards_acres ON hazards(acres);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert inserts the hazard or replaces the stored row with the same ID.
func (s *HazardStore) Upsert(ctx context.Context, h domain.HazardEvent) error {
	if h.ID == "" {
		return errors.New("upsert hazard: empty id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hazards (id, name, latitude, longitude, acres, discovered_at, status, fire_type, state, agency, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			acres = excluded.acres,
			discovered_at = excluded.discovered_at,
			status = excluded.status,
			fire_type = excluded.fire_type,
			state = excluded.state,
			agency = excluded.agency,
			fetched_at = excluded.fetched_at`,
		h.ID, h.Name, h.Location.Lat, h.Location.Lon, h.Acres, toMillis(h.DiscoveredAt),
		h.Status, h.FireType, h.State, h.Agency, h.FetchedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert hazard %s: %w", h.ID, err)
	}
	return nil
}

// GetByID returns the hazard with the given ID or domain.ErrHazardNotFound.
func (s *HazardStore) GetByID(ctx context.Context, id string) (domain.HazardEvent, error) {
	row := s.db.QueryRowContext(ctx, selectHazards+` WHERE id = ?`, id)
	h, err := scanHazard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HazardEvent{}, fmt.Errorf("%w: %s", domain.ErrHazardNotFound, id)
	}
	if err != nil {
		return domain.HazardEvent{}, fmt.Errorf("get hazard %s: %w", id, err)
	}
	return h, nil
}

// List returns hazards matching filter, most recently discovered first.
// Hazards without a discovery time sort last.
func (s *HazardStore) List(ctx context.Context, filter domain.HazardFilter) ([]domain.HazardEvent, error) {
	var (
		where []string
		args  []any
	)
	if filter.NewOnly {
		where = append(where, "discovered_at > ?")
		args = append(args, domain.Now().Add(-newHazardWindow).UnixMilli())
	}
	if filter.MinAcres > 0 {
		where = append(where, "acres >= ?")
		args = append(args, filter.MinAcres)
	}

	query := selectHazards
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY discovered_at IS NULL, discovered_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list hazards: %w", err)
	}
	defer rows.Close()

	hazards := []domain.HazardEvent{}
	for rows.Next() {
		h, err := scanHazard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hazard: %w", err)
		}
		hazards = append(hazards, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list hazards: %w", err)
	}
	return hazards, nil
}

// CheckReadiness pings the database.
func (s *HazardStore) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *HazardStore) Close() error {
	return s.db.Close()
}

const selectHazards = `SELECT id, name, latitude, longitude, acres, discovered_at, status, fire_type, state, agency, fetched_at FROM hazards`

type scanner interface {
	Scan(dest ...any) error
}

func scanHazard(sc scanner) (domain.HazardEvent, error) {
	var (
		h          domain.HazardEvent
		discovered sql.NullInt64
		fetched    int64
	)
	err := sc.Scan(&h.ID, &h.Name, &h.Location.Lat, &h.Location.Lon, &h.Acres, &discovered,
		&h.Status, &h.FireType, &h.State, &h.Agency, &fetched)
	if err != nil {
		return domain.HazardEvent{}, err
	}
	if discovered.Valid {
		h.DiscoveredAt = time.UnixMilli(discovered.Int64).UTC()
	}
	h.FetchedAt = time.UnixMilli(fetched).UTC()
	return h, nil
}

func toMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}
