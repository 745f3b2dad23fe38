package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitlab/routeopt/internal/config"
)

func TestScratchRejectsMissingRoutes(t *testing.T) {
	var flags inputFlags
	cmd := newScratchCmd(&flags)
	cmd.SetArgs([]string{"--iterations", "5"})
	err := cmd.Execute()
	assert.Error(t, err)
}

func TestScratchRejectsMissingIterations(t *testing.T) {
	var flags inputFlags
	cmd := newScratchCmd(&flags)
	cmd.SetArgs([]string{"--routes", "3"})
	err := cmd.Execute()
	assert.Error(t, err)
}

func TestResumeRequiresName(t *testing.T) {
	var flags inputFlags
	cmd := newResumeCmd(&flags)
	cmd.SetArgs([]string{"--iterations", "5"})
	err := cmd.Execute()
	assert.Error(t, err)
}

func TestFromRoutesRequiresRoutesPath(t *testing.T) {
	var flags inputFlags
	cmd := newFromRoutesCmd(&flags)
	cmd.SetArgs([]string{"--iterations", "5"})
	err := cmd.Execute()
	assert.Error(t, err)
}

func TestLoadRoutesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.json")
	data, err := json.Marshal([][]int64{{1, 2, 3}, {3, 4}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	routes, err := loadRoutesFile(path)
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, 3, len(routes[0]))
	assert.Equal(t, 2, len(routes[1]))
}

func TestLoadRoutesFileMissing(t *testing.T) {
	_, err := loadRoutesFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestConfigAsMapRoundTripsFields(t *testing.T) {
	cfg := config.Default()
	m := configAsMap(cfg)
	assert.Equal(t, cfg.PopSize, m["pop_size"])
	assert.Equal(t, cfg.Seed, m["seed"])
}

func TestNewRootCmdRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["scratch"])
	assert.True(t, names["resume"])
	assert.True(t, names["from-routes"])
}
