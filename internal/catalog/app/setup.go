// Package app contains the application setup for the catalog service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/partsfinder/internal/catalog/config"
	"github.com/abgdnv/partsfinder/internal/catalog/sentiment"
	"github.com/abgdnv/partsfinder/internal/catalog/service"
	"github.com/abgdnv/partsfinder/internal/catalog/store"
	"github.com/abgdnv/partsfinder/internal/catalog/transport/rest"
	"github.com/abgdnv/partsfinder/pkg/server"
)

const ServiceName = "catalog"

type Dependencies struct {
	CatalogService service.CatalogService
	Logger         *slog.Logger
}

// SetupDependencies wires the in-memory catalog, seeded with the demo stores when seed is set.
func SetupDependencies(seed bool, logger *slog.Logger) *Dependencies {
	repo := store.NewInMemoryStore()
	if seed {
		repo = store.NewSeededStore()
	}
	return &Dependencies{
		CatalogService: service.NewService(repo, sentiment.NewLexicon(), logger),
		Logger:         logger,
	}
}

// SetupHttpHandler initializes the routes for the catalog service.
// Used by E2E tests to serve the catalog in-process.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	rest.NewHandler(deps.CatalogService, deps.Logger).RegisterRoutes(mux)
	return mux
}

// SetupHttpServer creates and configures an HTTP server for the catalog service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, ServiceName, SetupHttpHandler(deps))
}
