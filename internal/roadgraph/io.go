package roadgraph

import (
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/transitlab/routeopt/internal/models"
)

// edgePayload is one entry of the persisted adjacency list:
// {"duration": seconds, "distance": meters}.
type edgePayload struct {
	Duration float64 `json:"duration"`
	Distance float64 `json:"distance"`
}

// Load reads a road graph serialized as a nested JSON adjacency list,
// {"from": {"to": {"duration": ..., "distance": ...}}}, the Go-native
// substitute for the original graph-tool .gt binary format.
func Load(r io.Reader) (*RoadGraph, error) {
	var raw map[string]map[string]edgePayload
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, models.NewError(models.InvalidInput, "decode road graph: %w", err)
	}
	rg := New()
	for fromStr, adj := range raw {
		from, err := parseStopId(fromStr)
		if err != nil {
			return nil, err
		}
		rg.AddStop(from)
		for toStr, edge := range adj {
			to, err := parseStopId(toStr)
			if err != nil {
				return nil, err
			}
			rg.AddEdge(from, to, edge.Duration, edge.Distance)
		}
	}
	return rg, nil
}

// LoadFile opens path and loads a RoadGraph from it.
func LoadFile(path string) (*RoadGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.NewError(models.InvalidInput, "open road graph %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

func parseStopId(s string) (models.StopId, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, models.NewError(models.InvalidInput, "road graph: malformed stop id %q: %w", s, err)
	}
	return models.StopId(id), nil
}
