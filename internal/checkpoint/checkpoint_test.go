package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitlab/routeopt/internal/models"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "exp1")
	require.NoError(t, err)

	meta := models.RunMeta{
		Date:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		NRoutes: 3,
		Config:  map[string]any{"pop_size": float64(50)},
	}
	require.NoError(t, store.SaveMeta(meta))

	row := models.IterationRow{Fitness: 123.5, SatisfiedDemandPct: 0.8, Time: 1.5}
	require.NoError(t, store.AppendRow(row))
	require.NoError(t, store.AppendRow(row))

	routes := [][]models.Route{
		{{1, 2, 3}, {3, 4}},
		{{1, 2, 3}},
	}
	require.NoError(t, store.SavePopulation(0, routes))
	require.NoError(t, store.SavePopulation(1, routes))

	loaded, err := store.LoadPopulation()
	require.NoError(t, err)
	assert.Equal(t, routes, loaded)

	assert.NoError(t, store.Close())
}

func TestFileStoreLoadPopulationPicksHighestIteration(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "exp2")
	require.NoError(t, err)

	first := [][]models.Route{{{1, 2}}}
	second := [][]models.Route{{{5, 6, 7}}}
	require.NoError(t, store.SavePopulation(2, first))
	require.NoError(t, store.SavePopulation(10, second))

	loaded, err := store.LoadPopulation()
	require.NoError(t, err)
	assert.Equal(t, second, loaded)
}

func TestFileStoreCSVHeaderWrittenOnce(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "exp3")
	require.NoError(t, err)

	require.NoError(t, store.AppendRow(models.IterationRow{Fitness: 1}))
	require.NoError(t, store.AppendRow(models.IterationRow{Fitness: 2}))

	data, err := os.ReadFile(filepath.Join(dir, "exp3", "df.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(string(data), "fitness,satisfied_demand_pct"))
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}
	return count
}

// Interface conformance: every backend must satisfy Store without a live
// connection being required to construct the *type*.
var (
	_ Store = (*FileStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

func TestLoadRedisConfigFromEnvDefaults(t *testing.T) {
	cfg := LoadRedisConfigFromEnv()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6379, cfg.Port)
	assert.False(t, cfg.TLS)
}

func TestLoadPostgresConfigFromEnvDefaults(t *testing.T) {
	cfg := LoadPostgresConfigFromEnv()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "routeopt", cfg.Database)
	assert.Equal(t, int32(2), cfg.MinConns)
	assert.Equal(t, int32(10), cfg.MaxConns)
}
