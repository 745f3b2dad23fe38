package demand

import (
	"strings"
	"testing"

	"github.com/transitlab/routeopt/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestODXGetAndDests(t *testing.T) {
	odx, err := LoadODX(strings.NewReader(`{"1": {"5": 10}, "2": {"3": 3}}`), nil)
	assert.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		v, ok := odx.Get(1, 5)
		assert.True(t, ok)
		assert.Equal(t, 10, v)
	})

	t.Run("missing", func(t *testing.T) {
		_, ok := odx.Get(9, 9)
		assert.False(t, ok)
	})

	t.Run("origins sorted", func(t *testing.T) {
		assert.Equal(t, []models.StopId{1, 2}, odx.Origins())
	})

	t.Run("dests sorted", func(t *testing.T) {
		assert.Equal(t, []models.StopId{5}, odx.Dests(1))
	})
}

func TestCircularRouteExclusion(t *testing.T) {
	circular := []models.Route{{10, 11, 12, 13}}

	odx, err := LoadODX(strings.NewReader(`{
		"10": {"11": 5},
		"12": {"10": 4, "11": 6},
		"13": {"12": 2}
	}`), circular)
	assert.NoError(t, err)

	t.Run("pair dominated by the loop is excluded", func(t *testing.T) {
		_, ok := odx.Get(12, 10)
		assert.False(t, ok)
		_, ok = odx.Get(12, 11)
		assert.False(t, ok)
		_, ok = odx.Get(13, 12)
		assert.False(t, ok)
	})

	t.Run("pair not preceded in the loop survives", func(t *testing.T) {
		v, ok := odx.Get(10, 11)
		assert.True(t, ok)
		assert.Equal(t, 5, v)
	})
}

func TestDSTotals(t *testing.T) {
	odx, err := LoadODX(strings.NewReader(`{"1": {"2": 4}, "2": {"3": 6}}`), nil)
	assert.NoError(t, err)

	ds, err := LoadDS(strings.NewReader(`{"1": {"5": [[1,2],[2,3],[1,2]]}}`), odx, nil)
	assert.NoError(t, err)

	t.Run("total dedups repeated pairs and weights by odx", func(t *testing.T) {
		total, ok := ds.Total(1, 5)
		assert.True(t, ok)
		assert.Equal(t, 10.0, total) // 4 + 6, the duplicate (1,2) counted once
	})

	t.Run("pairs preserves the raw list", func(t *testing.T) {
		assert.Len(t, ds.Pairs(1, 5), 3)
	})

	t.Run("origins", func(t *testing.T) {
		assert.Equal(t, []models.StopId{1}, ds.Origins())
	})
}

func TestDurations(t *testing.T) {
	d, err := LoadDurations(strings.NewReader(`{"1": {"2": 60.5}}`))
	assert.NoError(t, err)

	v, ok := d.Get(1, 2)
	assert.True(t, ok)
	assert.Equal(t, 60.5, v)

	_, ok = d.Get(1, 3)
	assert.False(t, ok)
}
