package catalog

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

// SearchClient is implemented by *AniListClient.
type SearchClient interface {
	Search(ctx context.Context, p SearchParams) (SearchResult, error)
}

type Server struct {
	client   SearchClient
	store    *Store
	rdb      *redis.Client
	cacheTTL time.Duration
}

func NewServer(client SearchClient, store *Store, rdb *redis.Client) *Server {
	return &Server{
		client:   client,
		store:    store,
		rdb:      rdb,
		cacheTTL: time.Minute,
	}
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/search", s.handleSearch)
	r.Post("/cache", s.handleCacheUpsert)

	return r
}
