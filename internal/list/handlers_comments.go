package list

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	listID := chi.URLParam(r, "id")

	info, err := s.getListInfo(ctx, listID)
	if errors.Is(err, errListNotFound) {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	if err != nil {
		log.Printf("animelist-service: list comments fetch list: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if !info.canView(userID) {
		writeError(w, http.StatusForbidden, "list is private")
		return
	}

	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.list_id, c.user_id, c.body, c.created_at, c.updated_at,
		       p.username, p.display_name, p.avatar_url
		FROM comments c
		LEFT JOIN profiles p ON p.user_id = c.user_id
		WHERE c.list_id = $1
		ORDER BY c.created_at ASC
	`, listID)
	if err != nil {
		log.Printf("animelist-service: list comments: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var c Comment
		var username, displayName, avatarURL *string
		if err := rows.Scan(
			&c.ID,
			&c.ListID,
			&c.UserID,
			&c.Body,
			&c.CreatedAt,
			&c.UpdatedAt,
			&username,
			&displayName,
			&avatarURL,
		); err != nil {
			log.Printf("animelist-service: list comments scan: %v", err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		c.Edited = c.UpdatedAt.After(c.CreatedAt)
		if username != nil || displayName != nil {
			c.Author = &CommentAuthor{
				Username:    deref(username),
				DisplayName: deref(displayName),
				AvatarURL:   deref(avatarURL),
			}
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		log.Printf("animelist-service: list comments rows: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
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
		log.Printf("animelist-service: create comment fetch list: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if !info.canView(userID) {
		writeError(w, http.StatusForbidden, "list is private")
		return
	}

	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	body.Body = strings.TrimSpace(body.Body)
	if body.Body == "" || utf8.RuneCountInString(body.Body) > maxCommentLen {
		writeError(w, http.StatusBadRequest, "comment must be between 1 and 2000 characters")
		return
	}

	var c Comment
	err = s.db.QueryRow(ctx, `
		INSERT INTO comments (list_id, user_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, list_id, user_id, body, created_at, updated_at
	`, listID, userID, body.Body).Scan(
		&c.ID, &c.ListID, &c.UserID, &c.Body, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		log.Printf("animelist-service: create comment: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "comment.created",
		"payload": map[string]any{
			"listId":  listID,
			"comment": c,
		},
	})

	writeJSON(w, http.StatusCreated, c)
}

// handleEditComment replaces a comment's body. Only the author may edit;
// the ownership predicate is part of the UPDATE itself so the rule holds
// at the data layer, not just in this handler.
func (s *Server) handleEditComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	listID := chi.URLParam(r, "id")
	commentID := chi.URLParam(r, "commentId")
	if !validID(listID) || !validID(commentID) {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}

	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	body.Body = strings.TrimSpace(body.Body)
	if body.Body == "" || utf8.RuneCountInString(body.Body) > maxCommentLen {
		writeError(w, http.StatusBadRequest, "comment must be between 1 and 2000 characters")
		return
	}

	var c Comment
	err := s.db.QueryRow(ctx, `
		UPDATE comments
		SET body = $4, updated_at = now()
		WHERE id = $1 AND list_id = $2 AND user_id = $3
		RETURNING id, list_id, user_id, body, created_at, updated_at
	`, commentID, listID, userID, body.Body).Scan(
		&c.ID, &c.ListID, &c.UserID, &c.Body, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		s.rejectCommentMutation(ctx, w, commentID, listID)
		return
	}
	if err != nil {
		log.Printf("animelist-service: edit comment: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	c.Edited = c.UpdatedAt.After(c.CreatedAt)

	s.publishEvent(ctx, map[string]any{
		"type": "comment.updated",
		"payload": map[string]any{
			"listId":  listID,
			"comment": c,
		},
	})

	writeJSON(w, http.StatusOK, c)
}

// handleDeleteComment removes a comment. Only the author may delete.
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	listID := chi.URLParam(r, "id")
	commentID := chi.URLParam(r, "commentId")
	if !validID(listID) || !validID(commentID) {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}

	ct, err := s.db.Exec(ctx, `
		DELETE FROM comments
		WHERE id = $1 AND list_id = $2 AND user_id = $3
	`, commentID, listID, userID)
	if err != nil {
		log.Printf("animelist-service: delete comment: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if ct.RowsAffected() == 0 {
		s.rejectCommentMutation(ctx, w, commentID, listID)
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "comment.deleted",
		"payload": map[string]any{
			"listId":    listID,
			"commentId": commentID,
		},
	})

	w.WriteHeader(http.StatusNoContent)
}

// rejectCommentMutation distinguishes "no such comment" from "someone
// else's comment" after an ownership-guarded mutation matched no row.
func (s *Server) rejectCommentMutation(ctx context.Context, w http.ResponseWriter, commentID, listID string) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM comments WHERE id = $1 AND list_id = $2)
	`, commentID, listID).Scan(&exists)
	if err != nil {
		log.Printf("animelist-service: comment exists check: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if exists {
		writeError(w, http.StatusForbidden, "only the author can modify a comment")
		return
	}
	writeError(w, http.StatusNotFound, "comment not found")
}
