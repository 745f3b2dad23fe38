package checkpoint

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/transitlab/routeopt/internal/models"
)

// FileStore is the default checkpoint backend: meta.json, an appended
// df.csv, and one saved_population/<i>.json snapshot per save, mirroring
// the original's experiments/<name>/ directory layout (JSON in place of
// the original's pickle snapshots — see DESIGN.md).
type FileStore struct {
	dir      string
	csvPath  string
	metaPath string
	popDir   string
}

var csvColumns = []string{
	"fitness", "satisfied_demand_pct", "satisfied_stops_pct",
	"satisfied_od_pairs_pct", "average_travel_time", "mean_transfers", "time",
}

// NewFileStore returns a FileStore rooted at experiments/<name>, creating
// the directory tree if it doesn't already exist.
func NewFileStore(experimentsRoot, name string) (*FileStore, error) {
	dir := filepath.Join(experimentsRoot, name)
	popDir := filepath.Join(dir, "saved_population")
	if err := os.MkdirAll(popDir, 0o755); err != nil {
		return nil, models.NewError(models.CheckpointIO, "create experiment dir %s: %w", dir, err)
	}
	return &FileStore{
		dir:      dir,
		csvPath:  filepath.Join(dir, "df.csv"),
		metaPath: filepath.Join(dir, "meta.json"),
		popDir:   popDir,
	}, nil
}

// SaveMeta writes meta.json, overwriting any previous content.
func (s *FileStore) SaveMeta(meta models.RunMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return models.NewError(models.CheckpointIO, "marshal meta: %w", err)
	}
	if err := os.WriteFile(s.metaPath, data, 0o644); err != nil {
		return models.NewError(models.CheckpointIO, "write %s: %w", s.metaPath, err)
	}
	return nil
}

// AppendRow appends one row to df.csv, writing the header first if the
// file doesn't exist yet.
func (s *FileStore) AppendRow(row models.IterationRow) error {
	_, statErr := os.Stat(s.csvPath)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.csvPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return models.NewError(models.CheckpointIO, "open %s: %w", s.csvPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvColumns); err != nil {
			return models.NewError(models.CheckpointIO, "write csv header: %w", err)
		}
	}
	record := []string{
		strconv.FormatFloat(row.Fitness, 'g', -1, 64),
		strconv.FormatFloat(row.SatisfiedDemandPct, 'g', -1, 64),
		strconv.FormatFloat(row.SatisfiedStopsPct, 'g', -1, 64),
		strconv.FormatFloat(row.SatisfiedODPairsPct, 'g', -1, 64),
		strconv.FormatFloat(row.AverageTravelTime, 'g', -1, 64),
		strconv.FormatFloat(row.MeanTransfers, 'g', -1, 64),
		strconv.FormatFloat(row.Time, 'g', -1, 64),
	}
	if err := w.Write(record); err != nil {
		return models.NewError(models.CheckpointIO, "write csv row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// SavePopulation writes saved_population/<iteration>.json, one JSON array
// of route lists, one per individual.
func (s *FileStore) SavePopulation(iteration int, routes [][]models.Route) error {
	path := filepath.Join(s.popDir, fmt.Sprintf("%d.json", iteration))
	data, err := json.Marshal(routes)
	if err != nil {
		return models.NewError(models.CheckpointIO, "marshal population: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return models.NewError(models.CheckpointIO, "write %s: %w", path, err)
	}
	return nil
}

// LoadPopulation reads the highest-numbered saved_population/<i>.json
// snapshot in the experiment directory.
func (s *FileStore) LoadPopulation() ([][]models.Route, error) {
	entries, err := os.ReadDir(s.popDir)
	if err != nil {
		return nil, models.NewError(models.CheckpointIO, "read %s: %w", s.popDir, err)
	}
	best := -1
	for _, e := range entries {
		n, err := strconv.Atoi(trimJSONExt(e.Name()))
		if err != nil {
			continue
		}
		if n > best {
			best = n
		}
	}
	if best < 0 {
		return nil, models.NewError(models.CheckpointIO, "no saved population in %s", s.popDir)
	}
	path := filepath.Join(s.popDir, fmt.Sprintf("%d.json", best))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewError(models.CheckpointIO, "read %s: %w", path, err)
	}
	var routes [][]models.Route
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, models.NewError(models.CheckpointIO, "unmarshal %s: %w", path, err)
	}
	return routes, nil
}

// Close is a no-op: FileStore holds no long-lived handles between calls.
func (s *FileStore) Close() error { return nil }

func trimJSONExt(name string) string {
	const ext = ".json"
	if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
		return name[:len(name)-len(ext)]
	}
	return name
}
