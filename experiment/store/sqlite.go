//go:build sqlite

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/samuelfneumann/psiracing/environment/psi"
	"github.com/samuelfneumann/psiracing/experiment"
)

// SQLiteStore is a Store backed by an SQLite database
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if run.ID == "" {
		return errors.New("run id is required")
	}

	aggregate, err := json.Marshal(run.Aggregate)
	if err != nil {
		return fmt.Errorf("encode aggregate %s: %w", run.ID, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, config, aggregate)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			config = excluded.config,
			aggregate = excluded.aggregate
	`, run.ID, run.CreatedAt.UTC().Format(time.RFC3339Nano), []byte(run.Config), aggregate)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM episodes WHERE run_id = ?`, run.ID); err != nil {
		return err
	}

	for _, ep := range run.Episodes {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO episodes (
				run_id, episode, curvature_rate, obstacle_probability, score,
				steps, grass_steps, contact_steps, obstacle_steps,
				tiles_visited, elapsed_time, min_obstacle_distance
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, ep.Episode, ep.Psi.CurvatureRate, ep.Psi.ObstacleProbability, ep.Score,
			ep.Steps, ep.GrassSteps, ep.ContactSteps, ep.ObstacleSteps,
			ep.TilesVisited, ep.ElapsedTime, distance(ep.MinObstacleDistance))
		if err != nil {
			return fmt.Errorf("insert episode %d of run %s: %w", ep.Episode, run.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (Run, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Run{}, false, err
	}

	var (
		createdAt string
		config    []byte
		aggregate []byte
	)
	err = db.QueryRowContext(ctx, `SELECT created_at, config, aggregate FROM runs WHERE id = ?`, id).
		Scan(&createdAt, &config, &aggregate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}

	run := Run{ID: id, Config: config}
	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, false, fmt.Errorf("decode created_at of run %s: %w", id, err)
	}
	if err := json.Unmarshal(aggregate, &run.Aggregate); err != nil {
		return Run{}, false, fmt.Errorf("decode aggregate of run %s: %w", id, err)
	}

	run.Episodes, err = queryEpisodes(ctx, db, id)
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

func (s *SQLiteStore) ListEpisodes(ctx context.Context, runID string) ([]experiment.EpisodeMetrics, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var exists int
	err = db.QueryRowContext(ctx, `SELECT COUNT(1) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, false, err
	}
	if exists == 0 {
		return nil, false, nil
	}

	episodes, err := queryEpisodes(ctx, db, runID)
	if err != nil {
		return nil, false, err
	}
	return episodes, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func queryEpisodes(ctx context.Context, db *sql.DB, runID string) ([]experiment.EpisodeMetrics, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT episode, curvature_rate, obstacle_probability, score,
			steps, grass_steps, contact_steps, obstacle_steps,
			tiles_visited, elapsed_time, min_obstacle_distance
		FROM episodes WHERE run_id = ? ORDER BY episode
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []experiment.EpisodeMetrics
	for rows.Next() {
		var (
			ep       experiment.EpisodeMetrics
			pair     psi.Pair
			obstacle sql.NullFloat64
		)
		err := rows.Scan(&ep.Episode, &pair.CurvatureRate, &pair.ObstacleProbability, &ep.Score,
			&ep.Steps, &ep.GrassSteps, &ep.ContactSteps, &ep.ObstacleSteps,
			&ep.TilesVisited, &ep.ElapsedTime, &obstacle)
		if err != nil {
			return nil, err
		}
		ep.Psi = pair
		ep.MinObstacleDistance = math.Inf(1)
		if obstacle.Valid {
			ep.MinObstacleDistance = obstacle.Float64
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

// distance stores an infinite obstacle distance as NULL
func distance(d float64) sql.NullFloat64 {
	if math.IsInf(d, 0) || math.IsNaN(d) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: d, Valid: true}
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			config BLOB NOT NULL,
			aggregate BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS episodes (
			run_id TEXT NOT NULL,
			episode INTEGER NOT NULL,
			curvature_rate REAL NOT NULL,
			obstacle_probability REAL NOT NULL,
			score REAL NOT NULL,
			steps INTEGER NOT NULL,
			grass_steps INTEGER NOT NULL,
			contact_steps INTEGER NOT NULL,
			obstacle_steps INTEGER NOT NULL,
			tiles_visited INTEGER NOT NULL,
			elapsed_time REAL NOT NULL,
			min_obstacle_distance REAL,
			PRIMARY KEY (run_id, episode)
		);
	`)
	return err
}
