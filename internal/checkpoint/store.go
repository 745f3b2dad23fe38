// Package checkpoint persists run metadata, per-iteration metrics, and
// population snapshots so a long-running evolutionary search can be
// resumed. Failures here are logged and do not abort the run, per
// spec.md §7's CheckpointIO handling rule.
package checkpoint

import "github.com/transitlab/routeopt/internal/models"

// Store is the persistence surface one run's checkpointing drives. All
// three implementations (FileStore, RedisStore, PostgresStore) satisfy
// it; a run picks one at start-up based on --checkpoint/--metrics-sink.
type Store interface {
	// SaveMeta writes or overwrites the run's meta.json-equivalent record.
	SaveMeta(meta models.RunMeta) error
	// AppendRow appends one per-iteration metrics row.
	AppendRow(row models.IterationRow) error
	// SavePopulation snapshots every individual's route list at iteration i.
	SavePopulation(iteration int, routes [][]models.Route) error
	// LoadPopulation reads back the most recently saved population snapshot.
	LoadPopulation() ([][]models.Route, error)
	// Close releases any held resources (file handles, connections).
	Close() error
}
