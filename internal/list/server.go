package list

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"animelist-service/internal/catalog"
)

// DB is the subset of *pgxpool.Pool the handlers use. It is implemented by
// *pgxpool.Pool and can be mocked for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// MediaStore is the passive anime metadata cache, implemented by
// catalog.Store. Upserts are best effort; list views tolerate a missing row.
type MediaStore interface {
	Upsert(ctx context.Context, m catalog.Media) error
}

type Server struct {
	db    DB
	rdb   *redis.Client
	media MediaStore
}

func NewServer(db DB, rdb *redis.Client, media MediaStore) *Server {
	return &Server{
		db:    db,
		rdb:   rdb,
		media: media,
	}
}

// Router wires the list routes. Authentication is carried in the X-User-Id
// header set by the auth middleware; handlers that mutate state reject an
// empty identity themselves.
func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/", s.handleExploreLists)
	r.Post("/", s.handleCreateList)
	r.Get("/{id}", s.handleGetList)
	r.Patch("/{id}", s.handlePatchList)
	r.Delete("/{id}", s.handleDeleteList)

	r.Post("/{id}/entries", s.handleAddEntry)
	r.Patch("/{id}/entries/{entryId}", s.handlePatchEntry)
	r.Delete("/{id}/entries/{entryId}", s.handleDeleteEntry)
	r.Post("/{id}/entries/copy", s.handleCopyEntries)

	r.Post("/{id}/like", s.handleToggleLike)

	r.Get("/{id}/comments", s.handleListComments)
	r.Post("/{id}/comments", s.handleCreateComment)
	r.Patch("/{id}/comments/{commentId}", s.handleEditComment)
	r.Delete("/{id}/comments/{commentId}", s.handleDeleteComment)

	return r
}
