package server

import (
	"context"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/repositories"
	"github.com/desertthunder/passtheaux/internal/services"
	"github.com/desertthunder/passtheaux/internal/tasks"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RunStore reads recorded runs.
//
// Implemented by repositories.RunRepository.
type RunStore interface {
	Get(ctx context.Context, id string) (*models.Run, error)
	List(ctx context.Context, filter repositories.RunFilter) ([]*models.Run, error)
}

// Deps holds everything [NewRouter] wires into handlers.
type Deps struct {
	Engine    tasks.Generator
	Streaming services.Streaming
	Runs      RunStore     // optional; history routes answer 503 without it
	Metrics   http.Handler // optional; served at /metrics
	Logger    *log.Logger
}

// NewRouter builds the service's route table.
//
//	GET  /health
//	GET  /metrics
//	GET  /api/moods
//	POST /api/generate     (bearer)
//	GET  /api/playlists    (bearer)
//	GET  /api/runs         (bearer)
//	GET  /api/runs/{id}    (bearer)
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	h := &handlers{deps: deps, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Get("/health", h.health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/moods", h.moods)

		r.Group(func(r chi.Router) {
			r.Use(RequireCredential(deps.Streaming))

			r.Post("/generate", h.generate)
			r.Get("/playlists", h.playlists)
			r.Get("/runs", h.listRuns)
			r.Get("/runs/{id}", h.getRun)
		})
	})

	return r
}
