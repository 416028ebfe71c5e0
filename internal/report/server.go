// Package report serves run results over HTTP: stored figures, the
// combined duration dataset and the live task table of the current run.
package report

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/quafel/quafel/internal/dag"
	"github.com/quafel/quafel/internal/results"
	"github.com/quafel/quafel/internal/runstore"
	"github.com/quafel/quafel/internal/viz"
)

// Server exposes the reporting API.
type Server struct {
	app    *fiber.App
	paths  results.Paths
	store  *runstore.Store
	logger *slog.Logger
}

// NewServer wires the reporting routes. store may be nil when serving a
// finished data directory without a live run.
func NewServer(paths results.Paths, store *runstore.Store, logger *slog.Logger) *Server {
	s := &Server{
		paths:  paths,
		store:  store,
		logger: logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "quafel-report",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(cors.New())
	s.app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${status} - ${method} ${path} (${latency})\n",
		Output: requestLogWriter{logger: logger},
	}))

	s.app.Get("/healthz", s.health)
	api := s.app.Group("/api")
	api.Get("/figures", s.listFigures)
	api.Get("/figures/:name", s.getFigure)
	api.Get("/durations", s.getDurations)
	api.Get("/tasks", s.listTasks)

	return s
}

// Listen serves until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("Report server listening.", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// App exposes the underlying fiber app, used by tests to issue in-memory
// requests.
func (s *Server) App() *fiber.App {
	return s.app
}

// requestLogWriter routes fiber's request log lines through slog so they
// land in the same stream as the rest of the application's logs.
type requestLogWriter struct {
	logger *slog.Logger
}

func (w requestLogWriter) Write(p []byte) (int, error) {
	w.logger.Info("Request handled.", "request", strings.TrimSpace(string(p)))
	return len(p), nil
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("Request failed.", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) listFigures(c *fiber.Ctx) error {
	figures, err := viz.ListFigures(s.paths.Reporting())
	if err != nil {
		return err
	}
	if figures == nil {
		figures = []viz.FigureInfo{}
	}
	return c.JSON(fiber.Map{"figures": figures})
}

func (s *Server) getFigure(c *fiber.Ctx) error {
	name := c.Params("name")

	version := c.Query("version")
	if version == "" {
		latest, err := viz.LatestVersion(s.paths.Reporting(), name)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "figure not found: "+name)
		}
		version = latest
	}

	fig, err := viz.ReadFigure(s.paths.Reporting(), name, version)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "figure not found: "+name)
	}
	return c.JSON(fiber.Map{"name": name, "version": version, "figure": fig})
}

type durationJSON struct {
	Framework  string  `json:"framework"`
	Qubits     int     `json:"qubits"`
	Depth      int     `json:"depth"`
	Shots      int     `json:"shots"`
	Evaluation int     `json:"evaluation"`
	DurationMS float64 `json:"duration_ms"`
}

func (s *Server) getDurations(c *fiber.Ctx) error {
	path := s.paths.CombinedDurations()
	if _, err := os.Stat(path); err != nil {
		return fiber.NewError(fiber.StatusNotFound, "combined durations not available, run the combine pipeline")
	}

	rows, err := results.ReadDurations(path)
	if err != nil {
		return err
	}

	out := make([]durationJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, durationJSON{
			Framework:  row.Framework,
			Qubits:     row.Qubits,
			Depth:      row.Depth,
			Shots:      row.Shots,
			Evaluation: row.Evaluation,
			DurationMS: float64(row.Duration.Nanoseconds()) / 1e6,
		})
	}
	return c.JSON(fiber.Map{"durations": out})
}

type taskJSON struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	Framework  string  `json:"framework,omitempty"`
	Partition  int     `json:"partition"`
	State      string  `json:"state"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

func (s *Server) listTasks(c *fiber.Ctx) error {
	if s.store == nil {
		return fiber.NewError(fiber.StatusNotFound, "no run in progress")
	}

	state := c.Query("state")
	var (
		tasks []runstore.Task
		err   error
	)
	if state == "" {
		tasks, err = s.store.List()
	} else {
		if !validState(state) {
			return fiber.NewError(fiber.StatusBadRequest, "unknown task state: "+state)
		}
		tasks, err = s.store.ListByState(state)
	}
	if err != nil {
		return err
	}

	out := make([]taskJSON, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, taskJSON{
			ID:         task.ID,
			Kind:       task.Kind,
			Framework:  task.Framework,
			Partition:  task.Partition,
			State:      task.State,
			DurationMS: float64(task.Duration.Nanoseconds()) / 1e6,
			Error:      task.Error,
		})
	}
	return c.JSON(fiber.Map{"tasks": out})
}

func validState(state string) bool {
	for _, s := range []dag.State{dag.Pending, dag.Running, dag.Done, dag.Failed} {
		if s.String() == state {
			return true
		}
	}
	return false
}
