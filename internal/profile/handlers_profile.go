package profile

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"animelist-service/internal/ranking"
)

const (
	maxDisplayNameLen = 60
	maxBioLen         = 500
)

var usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	prof, err := s.getOrCreate(r.Context(), userID)
	if err != nil {
		log.Printf("animelist-service: get profile: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, prof)
}

func (s *Server) handlePatchMe(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var req struct {
		Username      *string          `json:"username"`
		DisplayName   *string          `json:"displayName"`
		AvatarURL     *string          `json:"avatarUrl"`
		Bio           *string          `json:"bio"`
		PrefWeights   *ranking.Weights `json:"prefWeights"`
		SetupComplete *bool            `json:"setupComplete"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Username != nil {
		*req.Username = strings.ToLower(strings.TrimSpace(*req.Username))
		if !usernameRe.MatchString(*req.Username) {
			writeError(w, http.StatusBadRequest, "username must be 3-20 lowercase letters, digits or underscores")
			return
		}
	}
	if req.DisplayName != nil && utf8.RuneCountInString(strings.TrimSpace(*req.DisplayName)) > maxDisplayNameLen {
		writeError(w, http.StatusBadRequest, "display name is too long")
		return
	}
	if req.Bio != nil && utf8.RuneCountInString(*req.Bio) > maxBioLen {
		writeError(w, http.StatusBadRequest, "bio is too long")
		return
	}
	if req.PrefWeights != nil {
		wts := *req.PrefWeights
		if wts.Technical < 0 || wts.Storytelling < 0 || wts.Enjoyment < 0 || wts.XFactor < 0 {
			writeError(w, http.StatusBadRequest, "weights must be non-negative")
			return
		}
	}

	prof, err := s.getOrCreate(r.Context(), userID)
	if err != nil {
		log.Printf("animelist-service: get profile: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if req.Username != nil {
		prof.Username = *req.Username
	}
	if req.DisplayName != nil {
		prof.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.AvatarURL != nil {
		prof.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}
	if req.Bio != nil {
		prof.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.PrefWeights != nil {
		prof.PrefWeights = *req.PrefWeights
	}
	if req.SetupComplete != nil {
		prof.SetupComplete = *req.SetupComplete
	}
	prof.UpdatedAt = time.Now().UTC()

	if err := s.save(r.Context(), prof); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeError(w, http.StatusConflict, "username is taken")
			return
		}
		log.Printf("animelist-service: save profile: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, prof)
}

// handleGetByUsername is the public profile view. The bio and weights are
// public; there is no private profile state beyond the setup flag.
func (s *Server) handleGetByUsername(w http.ResponseWriter, r *http.Request) {
	username := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "username")))
	if username == "" {
		writeError(w, http.StatusBadRequest, "invalid username")
		return
	}

	prof, err := s.findByUsername(r.Context(), username)
	if errors.Is(err, ErrProfileNotFound) {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		log.Printf("animelist-service: get profile by username: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":      prof.UserID,
		"username":    prof.Username,
		"displayName": prof.DisplayName,
		"avatarUrl":   prof.AvatarURL,
		"bio":         prof.Bio,
	})
}
