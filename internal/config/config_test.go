package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("pop_size: 100\nseed: 7\n"), 0o644))

	p, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, 100, p.PopSize)
	assert.Equal(t, int64(7), p.Seed)
	assert.Equal(t, Default().EliteSize, p.EliteSize) // untouched field keeps its default
}

func TestRouteSetAndEvolutionProjections(t *testing.T) {
	p := Default()

	rs := p.RouteSet()
	assert.Equal(t, p.BusStopTime, rs.BusStopTime)
	assert.Equal(t, p.TransferTime, rs.TransferTime)
	assert.Equal(t, p.W2Offset, rs.W2Offset)

	ev := p.Evolution()
	assert.Equal(t, p.PopSize, ev.PopSize)
	assert.Equal(t, p.MinRouteSize, ev.MinRouteSize)
}
