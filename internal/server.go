package internal

import (
	"context"
	"embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"hardware-inventory/internal/handlers"
	"hardware-inventory/internal/inventory"
)

//go:embed openapi
var openapiFS embed.FS

// Options configures NewServer.
type Options struct {
	Metrics     *Metrics // nil disables /metrics
	Logger      *zap.Logger
	MappingPath string // Excel import header mapping, empty for the built-in one
	EnableDocs  bool
}

type Server struct {
	Store   *inventory.Store
	Router  *chi.Mux
	Metrics *Metrics
	Logger  *zap.Logger
}

// NewServer wires the HTTP routes around store. The server owns store from
// here on and closes it in Close.
func NewServer(store *inventory.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		Store:   store,
		Router:  chi.NewRouter(),
		Metrics: opts.Metrics,
		Logger:  logger,
	}

	s.Router.Use(middleware.RequestID)
	s.Router.Use(RequestLogger(logger))
	s.Router.Use(middleware.Recoverer)
	if s.Metrics != nil {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	if opts.EnableDocs {
		s.mountDocs(s.Router)
	}

	s.Router.Get("/groups", s.listGroups)
	s.Router.Get("/cost-lock", s.costLock)
	s.Router.Get("/export.xlsx", s.exportExcel)

	s.Router.Route("/items", func(r chi.Router) {
		r.Post("/", s.createItem)
		r.Get("/{id}", s.getItem)
		r.Put("/{id}", s.updateItem)
		r.Delete("/{id}", s.deleteItem)
	})

	imports := handlers.NewImportsHandler(store, opts.MappingPath, logger)
	s.Router.Post("/imports/excel", imports.UploadExcel)

	return s
}

// Close flushes pending writes and stops the store.
func (s *Server) Close(ctx context.Context) error {
	return s.Store.Close(ctx)
}

// mountDocs serves the OpenAPI document and a Swagger UI page.
func (s *Server) mountDocs(mux *chi.Mux) {
	mux.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		data, err := openapiFS.ReadFile("openapi/openapi.yaml")
		if err != nil {
			http.Error(w, "Failed to read OpenAPI spec", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		if _, err := w.Write(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	mux.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`<!doctype html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>Hardware Inventory API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({ url: '/openapi.yaml', dom_id: '#swagger-ui' });
        };
    </script>
</body>
</html>`))
	})
}
