package adapter

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gooze.dev/pkg/testbench/internal/loader"
)

// CodeServer exposes code sources over HTTP for HTTPCodeSource clients.
// Sources are looked up by key.
type CodeServer struct {
	sources map[string]loader.CodeSource
	router  chi.Router
}

// NewCodeServer serves the given sources.
func NewCodeServer(sources ...loader.CodeSource) *CodeServer {
	s := &CodeServer{sources: map[string]loader.CodeSource{}}
	for _, src := range sources {
		s.sources[src.Key()] = src
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/units/{key}/*", s.getUnit)

	s.router = r

	return s
}

// ServeHTTP implements http.Handler.
func (s *CodeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *CodeServer) getUnit(w http.ResponseWriter, r *http.Request) {
	key, kerr := url.PathUnescape(chi.URLParam(r, "key"))
	name, nerr := url.PathUnescape(chi.URLParam(r, "*"))

	if kerr != nil || nerr != nil || name == "" {
		http.Error(w, "malformed unit path", http.StatusBadRequest)

		return
	}

	src, ok := s.sources[key]
	if !ok {
		http.Error(w, "unknown source "+key, http.StatusNotFound)

		return
	}

	data, err := src.GetUnit(r.Context(), key, name)
	if err != nil {
		if errors.Is(err, loader.ErrUnitNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)

			return
		}

		slog.Error("Failed to serve unit", "key", key, "unit", name, "error", err)
		http.Error(w, "cannot read unit", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(data)
}
