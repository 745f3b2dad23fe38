package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/transitlab/routeopt/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds the connection parameters PostgresStore needs, in
// the same shape as the teacher's internal/db.Config.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MinConns int32
	MaxConns int32
}

// LoadPostgresConfigFromEnv loads PostgresConfig from the environment,
// adapting the teacher's internal/db.LoadConfigFromEnv.
func LoadPostgresConfigFromEnv() PostgresConfig {
	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	minConns, _ := strconv.Atoi(getEnv("DB_MIN_CONNS", "2"))
	maxConns, _ := strconv.Atoi(getEnv("DB_MAX_CONNS", "10"))
	return PostgresConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     port,
		Database: getEnv("DB_NAME", "routeopt"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
		MinConns: int32(minConns),
		MaxConns: int32(maxConns),
	}
}

// PostgresStore writes a run's metadata, iteration rows, and population
// snapshots into SQL-queryable tables instead of df.csv/meta.json files,
// for operators comparing many experiments at once. Adapted from the
// teacher's internal/db/connection.go (pooled connection set-up) and
// internal/graph/builder.go's pgx.Batch batching pattern, here batching
// population-snapshot route inserts instead of graph edges.
type PostgresStore struct {
	pool *pgxpool.Pool
	name string
}

const batchSize = 500

// NewPostgresStore opens a pooled connection and ensures the run_meta,
// run_iteration, and run_population tables exist.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, experimentName string) (*PostgresStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode,
	)
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, models.NewError(models.CheckpointIO, "parse postgres config: %w", err)
	}
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, models.NewError(models.CheckpointIO, "connect to postgres: %w", err)
	}

	store := &PostgresStore{pool: pool, name: experimentName}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS run_meta (
			experiment TEXT PRIMARY KEY,
			date TIMESTAMPTZ NOT NULL,
			loaded_from TEXT,
			config JSONB NOT NULL,
			nroutes INT NOT NULL,
			updated_on TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS run_iteration (
			id BIGSERIAL PRIMARY KEY,
			experiment TEXT NOT NULL,
			fitness DOUBLE PRECISION NOT NULL,
			satisfied_demand_pct DOUBLE PRECISION NOT NULL,
			satisfied_stops_pct DOUBLE PRECISION NOT NULL,
			satisfied_od_pairs_pct DOUBLE PRECISION NOT NULL,
			average_travel_time DOUBLE PRECISION NOT NULL,
			mean_transfers DOUBLE PRECISION NOT NULL,
			time DOUBLE PRECISION NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS run_population (
			experiment TEXT NOT NULL,
			iteration INT NOT NULL,
			member_idx INT NOT NULL,
			route JSONB NOT NULL,
			PRIMARY KEY (experiment, iteration, member_idx)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return models.NewError(models.CheckpointIO, "ensure schema: %w", err)
		}
	}
	return nil
}

// SaveMeta upserts the run_meta row for this experiment.
func (s *PostgresStore) SaveMeta(meta models.RunMeta) error {
	ctx := context.Background()
	config, err := json.Marshal(meta.Config)
	if err != nil {
		return models.NewError(models.CheckpointIO, "marshal meta config: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO run_meta (experiment, date, loaded_from, config, nroutes, updated_on)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (experiment) DO UPDATE SET
			loaded_from = EXCLUDED.loaded_from,
			config = EXCLUDED.config,
			nroutes = EXCLUDED.nroutes,
			updated_on = EXCLUDED.updated_on
	`, s.name, meta.Date, meta.LoadedFrom, config, meta.NRoutes, meta.UpdatedOn)
	if err != nil {
		return models.NewError(models.CheckpointIO, "upsert run_meta: %w", err)
	}
	return nil
}

// AppendRow inserts one run_iteration row.
func (s *PostgresStore) AppendRow(row models.IterationRow) error {
	ctx := context.Background()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO run_iteration
			(experiment, fitness, satisfied_demand_pct, satisfied_stops_pct,
			 satisfied_od_pairs_pct, average_travel_time, mean_transfers, time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.name, row.Fitness, row.SatisfiedDemandPct, row.SatisfiedStopsPct,
		row.SatisfiedODPairsPct, row.AverageTravelTime, row.MeanTransfers, row.Time)
	if err != nil {
		return models.NewError(models.CheckpointIO, "insert run_iteration: %w", err)
	}
	return nil
}

// SavePopulation batches one insert per individual into run_population
// (its whole route list as one JSONB value), using the teacher's pgx.Batch
// pattern (batched in groups of batchSize) instead of one round trip per
// individual.
func (s *PostgresStore) SavePopulation(iteration int, routes [][]models.Route) error {
	ctx := context.Background()
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM run_population WHERE experiment = $1 AND iteration = $2`, s.name, iteration); err != nil {
		return models.NewError(models.CheckpointIO, "clear run_population: %w", err)
	}

	batch := &pgx.Batch{}
	for idx, route := range routes {
		data, err := json.Marshal(route)
		if err != nil {
			return models.NewError(models.CheckpointIO, "marshal route %d: %w", idx, err)
		}
		batch.Queue(`
			INSERT INTO run_population (experiment, iteration, member_idx, route)
			VALUES ($1, $2, $3, $4)
		`, s.name, iteration, idx, data)

		if batch.Len() >= batchSize {
			if err := s.execBatch(ctx, batch); err != nil {
				return err
			}
			batch = &pgx.Batch{}
		}
	}
	if batch.Len() > 0 {
		if err := s.execBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) execBatch(ctx context.Context, batch *pgx.Batch) error {
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return models.NewError(models.CheckpointIO, "batch insert at index %d: %w", i, err)
		}
	}
	return nil
}

// LoadPopulation reads back the highest-iteration snapshot for this
// experiment, ordered by member_idx.
func (s *PostgresStore) LoadPopulation() ([][]models.Route, error) {
	ctx := context.Background()
	var iteration int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(iteration), -1) FROM run_population WHERE experiment = $1`, s.name,
	).Scan(&iteration)
	if err != nil {
		return nil, models.NewError(models.CheckpointIO, "find latest iteration: %w", err)
	}
	if iteration < 0 {
		return nil, models.NewError(models.CheckpointIO, "no saved population for experiment %s", s.name)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT route FROM run_population WHERE experiment = $1 AND iteration = $2 ORDER BY member_idx`,
		s.name, iteration)
	if err != nil {
		return nil, models.NewError(models.CheckpointIO, "query run_population: %w", err)
	}
	defer rows.Close()

	var routes [][]models.Route
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, models.NewError(models.CheckpointIO, "scan route: %w", err)
		}
		var route []models.Route
		if err := json.Unmarshal(data, &route); err != nil {
			return nil, models.NewError(models.CheckpointIO, "unmarshal route: %w", err)
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
