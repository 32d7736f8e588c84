package list

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

// handleCopyEntries copies every entry of a source list that the target
// list does not already hold (by anilist_id). Copies made from someone
// else's list start fresh: scores, notes and watched status reset to
// their defaults instead of carrying the source owner's annotations.
func (s *Server) handleCopyEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	targetID := chi.URLParam(r, "id")

	var body struct {
		SourceListID string `json:"sourceListId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !validID(body.SourceListID) {
		writeError(w, http.StatusNotFound, "source list not found")
		return
	}
	if body.SourceListID == targetID {
		writeError(w, http.StatusBadRequest, "cannot copy a list into itself")
		return
	}

	target, err := s.getListInfo(ctx, targetID)
	if errors.Is(err, errListNotFound) {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	if err != nil {
		log.Printf("animelist-service: copy entries fetch target: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if target.OwnerID != userID {
		writeError(w, http.StatusForbidden, "only the owner can modify a list")
		return
	}

	source, err := s.getListInfo(ctx, body.SourceListID)
	if errors.Is(err, errListNotFound) {
		writeError(w, http.StatusNotFound, "source list not found")
		return
	}
	if err != nil {
		log.Printf("animelist-service: copy entries fetch source: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if !source.canView(userID) {
		writeError(w, http.StatusForbidden, "source list is private")
		return
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Printf("animelist-service: copy entries begin tx: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback(ctx)

	var query string
	if source.OwnerID == userID {
		query = `
			INSERT INTO list_entries
				(list_id, anilist_id, score_technical, score_storytelling,
				 score_enjoyment, score_xfactor, watched, notes, streaming_services)
			SELECT $1, e.anilist_id, e.score_technical, e.score_storytelling,
			       e.score_enjoyment, e.score_xfactor, e.watched, e.notes,
			       e.streaming_services
			FROM list_entries e
			WHERE e.list_id = $2
			  AND NOT EXISTS (
				SELECT 1 FROM list_entries t
				WHERE t.list_id = $1 AND t.anilist_id = e.anilist_id
			  )
		`
	} else {
		query = `
			INSERT INTO list_entries
				(list_id, anilist_id, score_technical, score_storytelling,
				 score_enjoyment, score_xfactor, watched, notes, streaming_services)
			SELECT $1, e.anilist_id, 0, 0, 0, 0, FALSE, '', e.streaming_services
			FROM list_entries e
			WHERE e.list_id = $2
			  AND NOT EXISTS (
				SELECT 1 FROM list_entries t
				WHERE t.list_id = $1 AND t.anilist_id = e.anilist_id
			  )
		`
	}

	ct, err := tx.Exec(ctx, query, targetID, body.SourceListID)
	if err != nil {
		log.Printf("animelist-service: copy entries insert: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	copied := ct.RowsAffected()

	if copied > 0 {
		touchList(ctx, tx, targetID)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("animelist-service: copy entries commit: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if copied == 0 {
		writeInfo(w, "nothing to copy", map[string]any{"copied": 0})
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "list.entries_copied",
		"payload": map[string]any{
			"listId":       targetID,
			"sourceListId": body.SourceListID,
			"copied":       copied,
		},
	})

	writeJSON(w, http.StatusOK, map[string]any{"copied": copied})
}
