// Package monitor exposes an optional, read-only HTTP status surface for
// an in-progress run, started with --serve alongside the evolutionary
// loop. It never touches RouteSetGraph mutation: the loop publishes an
// atomically-swapped snapshot that the handlers read under a mutex, the
// same single-writer/many-reader shape as the teacher's InMemoryGraph.
package monitor

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/transitlab/routeopt/internal/models"
)

// Snapshot is the latest published state of a running optimization.
type Snapshot struct {
	Iteration   int
	BestFitness float64
	BestReport  models.FitnessReport
	Elapsed     time.Duration
}

// Status holds the single writer/many reader snapshot the HTTP handlers
// read from. The evolutionary loop calls Publish once per iteration; the
// monitor never calls back into the loop or the RouteSetGraph.
type Status struct {
	mu       sync.RWMutex
	snapshot Snapshot
	started  bool
}

// Publish swaps in the latest snapshot. Safe for concurrent use.
func (s *Status) Publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	s.started = true
}

func (s *Status) current() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.started
}

// Server wraps the Fiber app and the shared Status it reads from.
type Server struct {
	app    *fiber.App
	status *Status
}

// NewServer builds the Fiber app with the teacher's recover/logger/cors
// middleware stack and the /health and /status routes.
func NewServer(status *Status) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "routeopt monitor",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	s := &Server{app: app, status: status}
	app.Get("/health", s.health)
	app.Get("/status", s.status_)
	return s
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

func (s *Server) status_(c *fiber.Ctx) error {
	snap, started := s.status.current()
	if !started {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not started",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"iteration":             snap.Iteration,
		"best_fitness":          snap.BestFitness,
		"satisfied_demand_pct":  snap.BestReport.SatisfiedDemandPct(),
		"satisfied_stops_pct":   snap.BestReport.SatisfiedStopsPct(),
		"satisfied_od_pairs_pct": snap.BestReport.SatisfiedODPairsPct(),
		"mean_transfers":        snap.BestReport.MeanTransfers(),
		"elapsed_seconds":       snap.Elapsed.Seconds(),
	})
}

// Listen starts the app on addr. Intended to run in its own goroutine;
// callers should log the returned error once the run (or the process) is
// shutting down.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
