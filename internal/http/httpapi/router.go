package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"datasetgen/internal/http/handlers"
	"datasetgen/internal/infra"
	"datasetgen/internal/middleware"
)

func NewRouter(app *handlers.App, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(logger),
		chimw.Recoverer,
	)

	r.Get("/v1/healthz", app.Health)
	r.Post("/generateDataset", app.GenerateDataset)
	r.Get("/runs", app.ListRuns)

	return r
}
