package checkpoint

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/transitlab/routeopt/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection parameters RedisStore needs, in the
// same shape as the teacher's internal/cache.Config.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TLS      bool
}

// LoadRedisConfigFromEnv loads RedisConfig from the environment, adapting
// the teacher's internal/cache.LoadConfigFromEnv.
func LoadRedisConfigFromEnv() RedisConfig {
	port, _ := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     port,
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
		TLS:      getEnv("REDIS_TLS_ENABLED", "false") == "true",
	}
}

// RedisStore keeps a run's meta, iteration rows, and population snapshots
// in Redis, keyed by experiment name, so multiple cooperating processes
// (or a dashboard) can observe a run without touching the local
// filesystem. Adapted from the teacher's internal/cache/redis.go: the same
// client construction and SetNX-based locking, now guarding the
// population snapshot write instead of a route cache entry.
type RedisStore struct {
	client  *redis.Client
	name    string
	ctx     context.Context
	lockTTL time.Duration
}

// NewRedisStore connects to Redis and returns a Store scoped to one
// experiment name.
func NewRedisStore(cfg RedisConfig, experimentName string) (*RedisStore, error) {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, models.NewError(models.CheckpointIO, "connect to redis: %w", err)
	}

	return &RedisStore{client: client, name: experimentName, ctx: context.Background(), lockTTL: 5 * time.Second}, nil
}

func (s *RedisStore) metaKey() string { return fmt.Sprintf("experiment:%s:meta", s.name) }
func (s *RedisStore) rowsKey() string { return fmt.Sprintf("experiment:%s:rows", s.name) }
func (s *RedisStore) genKey(iteration int) string {
	return fmt.Sprintf("experiment:%s:gen:%d", s.name, iteration)
}
func (s *RedisStore) memberKey(iteration, member int) string {
	return fmt.Sprintf("experiment:%s:gen:%d:member:%d", s.name, iteration, member)
}
func (s *RedisStore) latestGenKey() string { return fmt.Sprintf("experiment:%s:latest_gen", s.name) }
func (s *RedisStore) lockKey(key string) string { return fmt.Sprintf("lock:%s", key) }

// SaveMeta writes the run metadata as one JSON value.
func (s *RedisStore) SaveMeta(meta models.RunMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return models.NewError(models.CheckpointIO, "marshal meta: %w", err)
	}
	if err := s.client.Set(s.ctx, s.metaKey(), data, 0).Err(); err != nil {
		return models.NewError(models.CheckpointIO, "set %s: %w", s.metaKey(), err)
	}
	return nil
}

// AppendRow pushes one iteration row onto the experiment's row list.
func (s *RedisStore) AppendRow(row models.IterationRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return models.NewError(models.CheckpointIO, "marshal row: %w", err)
	}
	if err := s.client.RPush(s.ctx, s.rowsKey(), data).Err(); err != nil {
		return models.NewError(models.CheckpointIO, "rpush %s: %w", s.rowsKey(), err)
	}
	return nil
}

// SavePopulation acquires a short-lived distributed lock on the
// generation as a whole (guarding against two cooperating processes
// writing the same generation's snapshot at once) before writing one
// member:<j> key per individual, per SPEC_FULL.md §4.7's
// experiment:<name>:gen:<i>:member:<j> key scheme.
func (s *RedisStore) SavePopulation(iteration int, routes [][]models.Route) error {
	genKey := s.genKey(iteration)
	lockKey := s.lockKey(genKey)

	acquired, err := s.client.SetNX(s.ctx, lockKey, "1", s.lockTTL).Result()
	if err != nil {
		return models.NewError(models.CheckpointIO, "acquire lock %s: %w", lockKey, err)
	}
	if !acquired {
		return models.NewError(models.CheckpointIO, "population snapshot %s already being written", genKey)
	}
	defer s.client.Del(s.ctx, lockKey)

	for member, individualRoutes := range routes {
		data, err := json.Marshal(individualRoutes)
		if err != nil {
			return models.NewError(models.CheckpointIO, "marshal member %d: %w", member, err)
		}
		if err := s.client.Set(s.ctx, s.memberKey(iteration, member), data, 0).Err(); err != nil {
			return models.NewError(models.CheckpointIO, "set %s: %w", s.memberKey(iteration, member), err)
		}
	}
	if err := s.client.Set(s.ctx, fmt.Sprintf("%s:size", genKey), len(routes), 0).Err(); err != nil {
		return models.NewError(models.CheckpointIO, "set %s:size: %w", genKey, err)
	}
	return s.client.Set(s.ctx, s.latestGenKey(), iteration, 0).Err()
}

// LoadPopulation reads back every member:<j> key of the most recently
// saved generation, in member order.
func (s *RedisStore) LoadPopulation() ([][]models.Route, error) {
	latest, err := s.client.Get(s.ctx, s.latestGenKey()).Int()
	if err != nil {
		return nil, models.NewError(models.CheckpointIO, "get latest generation: %w", err)
	}
	size, err := s.client.Get(s.ctx, fmt.Sprintf("%s:size", s.genKey(latest))).Int()
	if err != nil {
		return nil, models.NewError(models.CheckpointIO, "get generation %d size: %w", latest, err)
	}

	routes := make([][]models.Route, size)
	for member := 0; member < size; member++ {
		key := s.memberKey(latest, member)
		data, err := s.client.Get(s.ctx, key).Bytes()
		if err != nil {
			return nil, models.NewError(models.CheckpointIO, "get %s: %w", key, err)
		}
		var individualRoutes []models.Route
		if err := json.Unmarshal(data, &individualRoutes); err != nil {
			return nil, models.NewError(models.CheckpointIO, "unmarshal %s: %w", key, err)
		}
		routes[member] = individualRoutes
	}
	return routes, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
