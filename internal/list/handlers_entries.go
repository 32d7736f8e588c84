package list

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"animelist-service/internal/catalog"
	"animelist-service/internal/ranking"
)

const entryColumns = `id, list_id, anilist_id,
	score_technical, score_storytelling, score_enjoyment, score_xfactor,
	watched, notes, position, streaming_services, added_at, updated_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID,
		&e.ListID,
		&e.AnilistID,
		&e.Scores.Technical,
		&e.Scores.Storytelling,
		&e.Scores.Enjoyment,
		&e.Scores.XFactor,
		&e.Watched,
		&e.Notes,
		&e.Position,
		&e.StreamingServices,
		&e.AddedAt,
		&e.UpdatedAt,
	)
	return e, err
}

// handleAddEntry adds an anime to a list. Adding one that is already on
// the list is a no-op reported as an informational outcome, never a second
// row. When the request carries the catalog media record, it is upserted
// into the shared anime cache best-effort before the insert.
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
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
		log.Printf("animelist-service: add entry fetch list: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if info.OwnerID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var body struct {
		AnilistID         int64          `json:"anilistId"`
		StreamingServices []string       `json:"streamingServices"`
		Media             *catalog.Media `json:"media"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.AnilistID <= 0 {
		writeError(w, http.StatusBadRequest, "anilistId is required")
		return
	}

	// Passive cache upsert. The list view tolerates a missing snapshot, so
	// a failed upsert only costs the entry its media until the next one.
	if s.media != nil && body.Media != nil && body.Media.ID == body.AnilistID {
		if err := s.media.Upsert(ctx, *body.Media); err != nil {
			log.Printf("animelist-service: add entry cache upsert: %v", err)
		}
	}

	// Streaming links default to the media record's STREAMING external
	// links; an explicit streamingServices field in the body wins.
	streaming := body.StreamingServices
	if streaming == nil && body.Media != nil {
		streaming = body.Media.StreamingServices()
	}
	if streaming == nil {
		streaming = []string{}
	}

	e, err := scanEntry(s.db.QueryRow(ctx, `
		INSERT INTO list_entries (list_id, anilist_id, streaming_services)
		VALUES ($1, $2, $3)
		ON CONFLICT (list_id, anilist_id) DO NOTHING
		RETURNING `+entryColumns+`
	`, listID, body.AnilistID, streaming))
	if errors.Is(err, pgx.ErrNoRows) {
		writeInfo(w, "already on this list", nil)
		return
	}
	if err != nil {
		log.Printf("animelist-service: add entry insert: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	touchList(ctx, s.db, listID)

	s.publishEvent(ctx, map[string]any{
		"type": "entry.added",
		"payload": map[string]any{
			"listId": listID,
			"entry":  e,
		},
	})

	writeJSON(w, http.StatusCreated, e)
}

// handlePatchEntry updates scores, notes, the watched flag and the manual
// position of an entry. Only the list owner can update.
func (s *Server) handlePatchEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	listID := chi.URLParam(r, "id")
	entryID := chi.URLParam(r, "entryId")
	if !validID(entryID) {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	info, err := s.getListInfo(ctx, listID)
	if errors.Is(err, errListNotFound) {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	if err != nil {
		log.Printf("animelist-service: patch entry fetch list: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if info.OwnerID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var body struct {
		Scores   *ranking.Scores `json:"scores"`
		Watched  *bool           `json:"watched"`
		Notes    *string         `json:"notes"`
		Position *int            `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Printf("animelist-service: patch entry begin tx: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback(ctx)

	existing, err := scanEntry(tx.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM list_entries
		WHERE id = $1 AND list_id = $2
	`, entryID, listID))
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	if err != nil {
		log.Printf("animelist-service: patch entry fetch: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if body.Scores != nil {
		if !validScores(*body.Scores) {
			writeError(w, http.StatusBadRequest, "scores must be between 0 and 10")
			return
		}
		existing.Scores = *body.Scores
	}
	if body.Watched != nil {
		existing.Watched = *body.Watched
	}
	if body.Notes != nil {
		notes := strings.TrimSpace(*body.Notes)
		if utf8.RuneCountInString(notes) > maxNotesLen {
			writeError(w, http.StatusBadRequest, "notes are too long")
			return
		}
		existing.Notes = notes
	}
	if body.Position != nil {
		if *body.Position < 0 {
			writeError(w, http.StatusBadRequest, "position must be non-negative")
			return
		}
		existing.Position = body.Position
	}

	err = tx.QueryRow(ctx, `
		UPDATE list_entries
		SET score_technical = $3,
			score_storytelling = $4,
			score_enjoyment = $5,
			score_xfactor = $6,
			watched = $7,
			notes = $8,
			position = $9,
			updated_at = now()
		WHERE id = $1 AND list_id = $2
		RETURNING updated_at
	`, entryID, listID,
		existing.Scores.Technical, existing.Scores.Storytelling,
		existing.Scores.Enjoyment, existing.Scores.XFactor,
		existing.Watched, existing.Notes, existing.Position,
	).Scan(&existing.UpdatedAt)
	if err != nil {
		log.Printf("animelist-service: patch entry update: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	touchList(ctx, tx, listID)

	if err := tx.Commit(ctx); err != nil {
		log.Printf("animelist-service: patch entry commit: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "entry.updated",
		"payload": map[string]any{
			"listId": listID,
			"entry":  existing,
		},
	})

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteEntry removes an entry from a list. Only the list owner can
// delete.
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	listID := chi.URLParam(r, "id")
	entryID := chi.URLParam(r, "entryId")
	if !validID(entryID) {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	info, err := s.getListInfo(ctx, listID)
	if errors.Is(err, errListNotFound) {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	if err != nil {
		log.Printf("animelist-service: delete entry fetch list: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if info.OwnerID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	ct, err := s.db.Exec(ctx, `
		DELETE FROM list_entries WHERE id = $1 AND list_id = $2
	`, entryID, listID)
	if err != nil {
		log.Printf("animelist-service: delete entry: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if ct.RowsAffected() == 0 {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	touchList(ctx, s.db, listID)

	s.publishEvent(ctx, map[string]any{
		"type": "entry.deleted",
		"payload": map[string]any{
			"listId":  listID,
			"entryId": entryID,
		},
	})

	w.WriteHeader(http.StatusNoContent)
}

func validScores(s ranking.Scores) bool {
	for _, v := range []float64{s.Technical, s.Storytelling, s.Enjoyment, s.XFactor} {
		if v < 0 || v > maxScore {
			return false
		}
	}
	return true
}
