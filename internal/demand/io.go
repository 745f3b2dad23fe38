package demand

import (
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/transitlab/routeopt/internal/models"
)

// LoadODXFile reads a StopId -> StopId -> count JSON matrix and builds an
// ODX, excluding pairs dominated by the given circular routes.
func LoadODXFile(path string, circular []models.Route) (*ODX, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.NewError(models.InvalidInput, "open odx %s: %w", path, err)
	}
	defer f.Close()
	return LoadODX(f, circular)
}

// LoadODX decodes an ODX matrix from r.
func LoadODX(r io.Reader, circular []models.Route) (*ODX, error) {
	var raw map[string]map[string]int
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, models.NewError(models.InvalidInput, "decode odx: %w", err)
	}
	table, err := convertIntTable(raw)
	if err != nil {
		return nil, err
	}
	return NewODX(table, circular), nil
}

// dsPairJSON mirrors the persisted [[m, n], ...] shape for one (o, d) entry.
type dsPairJSON [2]int64

// LoadDSFile reads a StopId -> StopId -> [[m,n],...] JSON table and builds
// a DS, excluding pairs dominated by the given circular routes.
func LoadDSFile(path string, odx *ODX, circular []models.Route) (*DS, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.NewError(models.InvalidInput, "open ds %s: %w", path, err)
	}
	defer f.Close()
	return LoadDS(f, odx, circular)
}

// LoadDS decodes a DS table from r.
func LoadDS(r io.Reader, odx *ODX, circular []models.Route) (*DS, error) {
	var raw map[string]map[string][]dsPairJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, models.NewError(models.InvalidInput, "decode ds: %w", err)
	}
	table := make(map[models.StopId]map[models.StopId][]Pair, len(raw))
	for oStr, row := range raw {
		o, err := parseStopId(oStr)
		if err != nil {
			return nil, err
		}
		table[o] = make(map[models.StopId][]Pair, len(row))
		for dStr, list := range row {
			d, err := parseStopId(dStr)
			if err != nil {
				return nil, err
			}
			pairs := make([]Pair, len(list))
			for i, mn := range list {
				pairs[i] = Pair{O: models.StopId(mn[0]), D: models.StopId(mn[1])}
			}
			table[o][d] = pairs
		}
	}
	return NewDS(table, odx, circular), nil
}

// LoadDurationsFile reads a StopId -> StopId -> seconds JSON table.
func LoadDurationsFile(path string) (*Durations, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.NewError(models.InvalidInput, "open durations %s: %w", path, err)
	}
	defer f.Close()
	return LoadDurations(f)
}

// LoadDurations decodes a duration table from r.
func LoadDurations(r io.Reader) (*Durations, error) {
	var raw map[string]map[string]float64
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, models.NewError(models.InvalidInput, "decode durations: %w", err)
	}
	table := make(map[models.StopId]map[models.StopId]float64, len(raw))
	for oStr, row := range raw {
		o, err := parseStopId(oStr)
		if err != nil {
			return nil, err
		}
		table[o] = make(map[models.StopId]float64, len(row))
		for dStr, v := range row {
			d, err := parseStopId(dStr)
			if err != nil {
				return nil, err
			}
			table[o][d] = v
		}
	}
	return NewDurations(table), nil
}

// LoadCircularRoutesFile reads a JSON array of stop-id sequences
// identifying the closed-loop routes used for exclusion preprocessing.
func LoadCircularRoutesFile(path string) ([]models.Route, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, models.NewError(models.InvalidInput, "open circular routes %s: %w", path, err)
	}
	defer f.Close()
	var raw [][]int64
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, models.NewError(models.InvalidInput, "decode circular routes: %w", err)
	}
	routes := make([]models.Route, len(raw))
	for i, r := range raw {
		route := make(models.Route, len(r))
		for j, id := range r {
			route[j] = models.StopId(id)
		}
		routes[i] = route
	}
	return routes, nil
}

func convertIntTable(raw map[string]map[string]int) (map[models.StopId]map[models.StopId]int, error) {
	table := make(map[models.StopId]map[models.StopId]int, len(raw))
	for oStr, row := range raw {
		o, err := parseStopId(oStr)
		if err != nil {
			return nil, err
		}
		table[o] = make(map[models.StopId]int, len(row))
		for dStr, v := range row {
			d, err := parseStopId(dStr)
			if err != nil {
				return nil, err
			}
			table[o][d] = v
		}
	}
	return table, nil
}

func parseStopId(s string) (models.StopId, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, models.NewError(models.InvalidInput, "malformed stop id %q: %w", s, err)
	}
	return models.StopId(id), nil
}
