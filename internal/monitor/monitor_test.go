package monitor

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitlab/routeopt/internal/models"
)

func TestStatusBeforePublishReturnsNotStarted(t *testing.T) {
	status := &Status{}
	server := NewServer(status)

	req := httptest.NewRequest("GET", "/status", nil)
	resp, err := server.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestStatusAfterPublishReturnsSnapshot(t *testing.T) {
	status := &Status{}
	status.Publish(Snapshot{
		Iteration:   5,
		BestFitness: 42.0,
		BestReport:  models.FitnessReport{SatisfiedDemand: 80, UnsatisfiedDemand: 20},
		Elapsed:     2 * time.Second,
	})
	server := NewServer(status)

	req := httptest.NewRequest("GET", "/status", nil)
	resp, err := server.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	server := NewServer(&Status{})
	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := server.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestPublishIsConcurrencySafe(t *testing.T) {
	status := &Status{}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			status.Publish(Snapshot{Iteration: i})
		}
		close(done)
	}()
	for i := 0; i < 100; i++ {
		status.current()
	}
	<-done
}
