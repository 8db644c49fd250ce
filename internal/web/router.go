package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NewRouter assembles the chi router for the handlers, applying the
// structured request-logging middleware to every route. Extensions
// (.json, .jsono, .db) are part of the path segment chi captures; each
// handler strips its own trailing suffix rather than relying on chi's
// route matching to split on a dot, since a database or table name is
// free to contain one.
func NewRouter(h *Handlers, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware(log))

	r.Get("/", h.Index)
	r.Get("/.json", h.Index)
	r.Get("/.jsono", h.Index)

	r.Get("/{dbSlug}", func(w http.ResponseWriter, r *http.Request) {
		h.Database(w, r, chi.URLParam(r, "dbSlug"))
	})
	r.Get("/{dbSlug}/{table}", func(w http.ResponseWriter, r *http.Request) {
		h.Table(w, r, chi.URLParam(r, "dbSlug"), chi.URLParam(r, "table"))
	})
	r.Get("/{dbSlug}/{table}/{pkPath}", func(w http.ResponseWriter, r *http.Request) {
		h.Row(w, r, chi.URLParam(r, "dbSlug"), chi.URLParam(r, "table"), chi.URLParam(r, "pkPath"))
	})

	return r
}
