package list

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

// handleToggleLike flips the caller's like on a list. The cached counter
// on the list is only adjusted when a row was actually inserted or
// deleted, so repeated or concurrent toggles cannot make it drift.
func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	listID := chi.URLParam(r, "id")

	info, err := s.getListInfo(ctx, listID)
	if errors.Is(err, errListNotFound) {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	if err != nil {
		log.Printf("animelist-service: toggle like fetch list: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if !info.canView(userID) {
		writeError(w, http.StatusForbidden, "list is private")
		return
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Printf("animelist-service: toggle like begin tx: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		INSERT INTO likes (list_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (list_id, user_id) DO NOTHING
	`, listID, userID)
	if err != nil {
		log.Printf("animelist-service: toggle like insert: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	liked := ct.RowsAffected() == 1
	var likeCount int

	if liked {
		err = tx.QueryRow(ctx, `
			UPDATE lists SET like_count = like_count + 1
			WHERE id = $1
			RETURNING like_count
		`, listID).Scan(&likeCount)
	} else {
		// Row already existed: this toggle removes it. The decrement is
		// conditioned on the delete actually removing a row.
		var dct int64
		delTag, derr := tx.Exec(ctx, `
			DELETE FROM likes WHERE list_id = $1 AND user_id = $2
		`, listID, userID)
		if derr != nil {
			log.Printf("animelist-service: toggle like delete: %v", derr)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		dct = delTag.RowsAffected()
		if dct == 1 {
			err = tx.QueryRow(ctx, `
				UPDATE lists SET like_count = GREATEST(like_count - 1, 0)
				WHERE id = $1
				RETURNING like_count
			`, listID).Scan(&likeCount)
		} else {
			err = tx.QueryRow(ctx, `
				SELECT like_count FROM lists WHERE id = $1
			`, listID).Scan(&likeCount)
		}
	}
	if err != nil {
		log.Printf("animelist-service: toggle like count: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("animelist-service: toggle like commit: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "list.like_toggled",
		"payload": map[string]any{
			"listId":    listID,
			"userId":    userID,
			"liked":     liked,
			"likeCount": likeCount,
		},
	})

	if !liked {
		writeInfo(w, "like removed", map[string]any{
			"liked":     false,
			"likeCount": likeCount,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"liked":     true,
		"likeCount": likeCount,
	})
}
