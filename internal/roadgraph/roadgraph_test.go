package roadgraph

import (
	"strings"
	"testing"

	"github.com/transitlab/routeopt/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRoadGraphNeighbors(t *testing.T) {
	rg := New()
	rg.AddEdge(1, 2, 60, 400)
	rg.AddEdge(1, 3, 60, 400)
	rg.AddEdge(3, 2, 30, 200)

	t.Run("out neighbors sorted by stop id", func(t *testing.T) {
		assert.Equal(t, []models.StopId{2, 3}, rg.OutNeighbors(1))
	})

	t.Run("in neighbors sorted by stop id", func(t *testing.T) {
		assert.Equal(t, []models.StopId{1, 3}, rg.InNeighbors(2))
	})

	t.Run("edge lookup", func(t *testing.T) {
		e, ok := rg.Edge(1, 2)
		assert.True(t, ok)
		assert.Equal(t, 60.0, e.Duration)
		assert.Equal(t, 400.0, e.Distance)
	})

	t.Run("missing edge", func(t *testing.T) {
		_, ok := rg.Edge(2, 1)
		assert.False(t, ok)
	})
}

func TestShortestPathUniformChain(t *testing.T) {
	rg := New()
	for i := models.StopId(1); i < 6; i++ {
		rg.AddEdge(i, i+1, 60, 400)
	}

	route, weight, err := rg.ShortestPath(1, 5)
	assert.NoError(t, err)
	assert.Equal(t, models.Route{1, 2, 3, 4, 5}, route)
	assert.Equal(t, 240.0, weight)
}

func TestShortestPathPrefersLowerStopIndexOnTie(t *testing.T) {
	rg := New()
	// Two equal-cost routes from 1 to 4: via 2, and via 3.
	rg.AddEdge(1, 2, 60, 100)
	rg.AddEdge(2, 4, 60, 100)
	rg.AddEdge(1, 3, 60, 100)
	rg.AddEdge(3, 4, 60, 100)

	route, weight, err := rg.ShortestPath(1, 4)
	assert.NoError(t, err)
	assert.Equal(t, models.Route{1, 2, 4}, route)
	assert.Equal(t, 120.0, weight)
}

func TestShortestPathPrefersLowerStopIndexOnThreeWayTie(t *testing.T) {
	rg := New()
	// Stops 2, 3 and 4 are all reached from stop 1 at the same cost.
	// Only 3 and 4 continue on to 5, and they tie there too: the chosen
	// predecessor of 5 must be 3, the lower of the two.
	rg.AddEdge(1, 2, 10, 10)
	rg.AddEdge(1, 3, 10, 10)
	rg.AddEdge(1, 4, 10, 10)
	rg.AddEdge(3, 5, 5, 5)
	rg.AddEdge(4, 5, 5, 5)

	route, weight, err := rg.ShortestPath(1, 5)
	assert.NoError(t, err)
	assert.Equal(t, models.Route{1, 3, 5}, route)
	assert.Equal(t, 15.0, weight)
}

func TestShortestPathUnreachable(t *testing.T) {
	rg := New()
	rg.AddEdge(1, 2, 60, 400)
	rg.AddStop(3)

	_, _, err := rg.ShortestPath(1, 3)
	assert.Error(t, err)
	assert.True(t, models.Is(err, models.Unreachable))
}

func TestShortestPathUnknownStop(t *testing.T) {
	rg := New()
	rg.AddEdge(1, 2, 60, 400)

	_, _, err := rg.ShortestPath(1, 99)
	assert.Error(t, err)
	assert.True(t, models.Is(err, models.InvalidInput))
}

func TestShortestPathTreeReuse(t *testing.T) {
	rg := New()
	rg.AddEdge(1, 2, 60, 400)
	rg.AddEdge(2, 3, 60, 400)
	rg.AddEdge(2, 4, 90, 600)

	tree := rg.ShortestPathTree(1)

	route, weight, ok := tree.To(3)
	assert.True(t, ok)
	assert.Equal(t, models.Route{1, 2, 3}, route)
	assert.Equal(t, 120.0, weight)

	route, weight, ok = tree.To(4)
	assert.True(t, ok)
	assert.Equal(t, models.Route{1, 2, 4}, route)
	assert.Equal(t, 150.0, weight)
}

func TestLoad(t *testing.T) {
	payload := `{
		"1": {"2": {"duration": 60, "distance": 400}},
		"2": {"3": {"duration": 45, "distance": 300}}
	}`

	rg, err := Load(strings.NewReader(payload))
	assert.NoError(t, err)
	assert.True(t, rg.HasStop(1))
	assert.True(t, rg.HasStop(3))

	e, ok := rg.Edge(1, 2)
	assert.True(t, ok)
	assert.Equal(t, 60.0, e.Duration)
}

func TestLoadMalformedStopId(t *testing.T) {
	_, err := Load(strings.NewReader(`{"abc": {"2": {"duration": 1, "distance": 1}}}`))
	assert.Error(t, err)
	assert.True(t, models.Is(err, models.InvalidInput))
}
