package profile

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the handlers use. It is implemented by
// *pgxpool.Pool and can be mocked for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Server struct {
	db DB
}

func NewServer(db DB) *Server {
	return &Server{db: db}
}

// Router wires the profile routes. requireAuth guards the /me endpoints;
// the username lookup stays open to anonymous callers.
func (s *Server) Router(requireAuth func(http.Handler) http.Handler, middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Group(func(g chi.Router) {
		if requireAuth != nil {
			g.Use(requireAuth)
		}
		g.Get("/me", s.handleGetMe)
		g.Patch("/me", s.handlePatchMe)
	})
	r.Get("/{username}", s.handleGetByUsername)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"severity": "error",
		"error":    msg,
	})
}
