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

	"animelist-service/internal/ranking"
)

const (
	listColumns = `id, owner_id, title, description, is_public, list_type,
		weight_technical, weight_storytelling, weight_enjoyment, weight_xfactor,
		custom_order, like_count, created_at, updated_at`
)

func scanList(row pgx.Row) (List, error) {
	var l List
	err := row.Scan(
		&l.ID,
		&l.OwnerID,
		&l.Title,
		&l.Description,
		&l.IsPublic,
		&l.ListType,
		&l.Weights.Technical,
		&l.Weights.Storytelling,
		&l.Weights.Enjoyment,
		&l.Weights.XFactor,
		&l.CustomOrder,
		&l.LikeCount,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	return l, err
}

// handleExploreLists lists public lists, newest first, or by like count
// with ?sort=likes.
func (s *Server) handleExploreLists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	order := "l.updated_at DESC"
	if r.URL.Query().Get("sort") == "likes" {
		order = "l.like_count DESC, l.updated_at DESC"
	}

	rows, err := s.db.Query(ctx, `
		SELECT l.id, l.owner_id, l.title, l.description, l.is_public, l.list_type,
		       l.weight_technical, l.weight_storytelling, l.weight_enjoyment, l.weight_xfactor,
		       l.custom_order, l.like_count, l.created_at, l.updated_at,
		       COALESCE(p.username, '')
		FROM lists l
		LEFT JOIN profiles p ON p.user_id = l.owner_id
		WHERE l.is_public = TRUE
		ORDER BY `+order+`
		LIMIT 100
	`)
	if err != nil {
		log.Printf("animelist-service: explore lists: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer rows.Close()

	lists := []List{}
	for rows.Next() {
		var l List
		if err := rows.Scan(
			&l.ID,
			&l.OwnerID,
			&l.Title,
			&l.Description,
			&l.IsPublic,
			&l.ListType,
			&l.Weights.Technical,
			&l.Weights.Storytelling,
			&l.Weights.Enjoyment,
			&l.Weights.XFactor,
			&l.CustomOrder,
			&l.LikeCount,
			&l.CreatedAt,
			&l.UpdatedAt,
			&l.OwnerUsername,
		); err != nil {
			log.Printf("animelist-service: explore lists scan: %v", err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		log.Printf("animelist-service: explore lists rows: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, lists)
}

// handleCreateList creates a list owned by the current user. When the body
// carries no weights, the owner's preference weights are used as the
// list's defaults (1.0 each when no profile row exists yet).
func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := r.Header.Get("X-User-Id")
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var body struct {
		Title       string           `json:"title"`
		Description string           `json:"description"`
		IsPublic    *bool            `json:"isPublic"`
		ListType    *string          `json:"listType"`
		Weights     *ranking.Weights `json:"weights"`
		CustomOrder *bool            `json:"customOrder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	body.Title = strings.TrimSpace(body.Title)
	body.Description = strings.TrimSpace(body.Description)

	if body.Title == "" || utf8.RuneCountInString(body.Title) > maxTitleLen {
		writeError(w, http.StatusBadRequest, "title must be between 1 and 120 characters")
		return
	}
	if utf8.RuneCountInString(body.Description) > maxDescriptionLen {
		writeError(w, http.StatusBadRequest, "description is too long")
		return
	}

	listType := listTypeRanked
	if body.ListType != nil {
		lt := strings.ToLower(strings.TrimSpace(*body.ListType))
		if lt != listTypeRanked && lt != listTypeWatch {
			writeError(w, http.StatusBadRequest, `invalid listType (must be "ranked" or "watch")`)
			return
		}
		listType = lt
	}

	var weights ranking.Weights
	if body.Weights != nil {
		if !validWeights(*body.Weights) {
			writeError(w, http.StatusBadRequest, "weights must be non-negative")
			return
		}
		weights = *body.Weights
	} else {
		var err error
		weights, err = s.viewerWeights(ctx, ownerID)
		if err != nil {
			log.Printf("animelist-service: create list default weights: %v", err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
	}

	isPublic := false
	if body.IsPublic != nil {
		isPublic = *body.IsPublic
	}
	customOrder := false
	if body.CustomOrder != nil {
		customOrder = *body.CustomOrder
	}

	l, err := scanList(s.db.QueryRow(ctx, `
		INSERT INTO lists (
			owner_id, title, description, is_public, list_type,
			weight_technical, weight_storytelling, weight_enjoyment, weight_xfactor,
			custom_order
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING `+listColumns+`
	`, ownerID, body.Title, body.Description, isPublic, listType,
		weights.Technical, weights.Storytelling, weights.Enjoyment, weights.XFactor,
		customOrder))
	if err != nil {
		log.Printf("animelist-service: create list: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type":    "list.created",
		"payload": map[string]any{"list": l},
	})

	writeJSON(w, http.StatusCreated, l)
}

// handlePatchList updates list metadata, weights and the custom-order
// flag. Only the owner can update.
func (s *Server) handlePatchList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	listID := chi.URLParam(r, "id")
	if !validID(listID) {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	var body struct {
		Title       *string          `json:"title"`
		Description *string          `json:"description"`
		IsPublic    *bool            `json:"isPublic"`
		Weights     *ranking.Weights `json:"weights"`
		CustomOrder *bool            `json:"customOrder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Printf("animelist-service: patch list begin tx: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback(ctx)

	existing, err := scanList(tx.QueryRow(ctx, `
		SELECT `+listColumns+`
		FROM lists
		WHERE id = $1
	`, listID))
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	if err != nil {
		log.Printf("animelist-service: patch list fetch: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if existing.OwnerID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if body.Title != nil {
		title := strings.TrimSpace(*body.Title)
		if title == "" || utf8.RuneCountInString(title) > maxTitleLen {
			writeError(w, http.StatusBadRequest, "title must be between 1 and 120 characters")
			return
		}
		existing.Title = title
	}
	if body.Description != nil {
		desc := strings.TrimSpace(*body.Description)
		if utf8.RuneCountInString(desc) > maxDescriptionLen {
			writeError(w, http.StatusBadRequest, "description is too long")
			return
		}
		existing.Description = desc
	}
	if body.IsPublic != nil {
		existing.IsPublic = *body.IsPublic
	}
	if body.Weights != nil {
		if !validWeights(*body.Weights) {
			writeError(w, http.StatusBadRequest, "weights must be non-negative")
			return
		}
		existing.Weights = *body.Weights
	}
	if body.CustomOrder != nil {
		existing.CustomOrder = *body.CustomOrder
	}

	_, err = tx.Exec(ctx, `
		UPDATE lists
		SET title = $2,
			description = $3,
			is_public = $4,
			weight_technical = $5,
			weight_storytelling = $6,
			weight_enjoyment = $7,
			weight_xfactor = $8,
			custom_order = $9,
			updated_at = now()
		WHERE id = $1
	`, existing.ID, existing.Title, existing.Description, existing.IsPublic,
		existing.Weights.Technical, existing.Weights.Storytelling,
		existing.Weights.Enjoyment, existing.Weights.XFactor,
		existing.CustomOrder)
	if err != nil {
		log.Printf("animelist-service: patch list update: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("animelist-service: patch list commit: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type":    "list.updated",
		"payload": map[string]any{"list": existing},
	})

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteList deletes a list; entries, likes and comments cascade.
// Only the owner can delete.
func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
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
		log.Printf("animelist-service: delete list fetch: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if info.OwnerID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM lists WHERE id = $1`, listID); err != nil {
		log.Printf("animelist-service: delete list: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type":    "list.deleted",
		"payload": map[string]any{"listId": listID},
	})

	w.WriteHeader(http.StatusNoContent)
}

func validWeights(w ranking.Weights) bool {
	return w.Technical >= 0 && w.Storytelling >= 0 && w.Enjoyment >= 0 && w.XFactor >= 0
}
