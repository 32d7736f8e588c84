package list

import (
	"context"
	"errors"
	"log"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"animelist-service/internal/ranking"
)

// Watch lists do not rank by score; they expose these orderings instead.
const (
	watchSortAlphabetical = "alphabetical"
	watchSortCustom       = "custom"
)

// handleGetList returns a list together with its entries in viewing order.
// Ranked lists resolve a weight vector from ?mode= (creator, viewer, even,
// or custom when the list allows manual ordering); watch lists order
// alphabetically or by manual position. Mode switching never persists
// anything, it only recomputes the ordering.
func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	listID := chi.URLParam(r, "id")
	if !validID(listID) {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	l, err := scanList(s.db.QueryRow(ctx, `
		SELECT `+listColumns+`
		FROM lists
		WHERE id = $1
	`, listID))
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	if err != nil {
		log.Printf("animelist-service: get list: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if !l.IsPublic && userID != l.OwnerID {
		writeError(w, http.StatusForbidden, "list is private")
		return
	}

	entries, err := s.loadEntries(ctx, listID)
	if err != nil {
		log.Printf("animelist-service: get list entries: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	signedIn := userID != ""

	var mode string
	var available []string
	if l.ListType == listTypeWatch {
		available = []string{watchSortAlphabetical}
		if l.CustomOrder {
			available = append(available, watchSortCustom)
		}
		mode = r.URL.Query().Get("mode")
		if mode == "" {
			mode = watchSortAlphabetical
			if l.CustomOrder {
				mode = watchSortCustom
			}
		}
	} else {
		for _, m := range ranking.AvailableModes(l.CustomOrder, signedIn) {
			available = append(available, string(m))
		}
		mode = r.URL.Query().Get("mode")
		if mode == "" {
			mode = string(ranking.InitialMode(l.CustomOrder))
		}
	}
	if !slices.Contains(available, mode) {
		writeError(w, http.StatusBadRequest, "mode not available for this list")
		return
	}

	var ordered []Entry
	switch {
	case mode == watchSortAlphabetical:
		ordered = applyOrder(entries, ranking.SortAlphabetical(toRankingEntries(entries)), false)
	case mode == watchSortCustom || mode == string(ranking.ModeCustom):
		ordered = applyOrder(entries, ranking.SortCustom(toRankingEntries(entries)), false)
	default:
		var viewerPrefs *ranking.Weights
		if signedIn {
			prefs, err := s.viewerWeights(ctx, userID)
			if err != nil {
				log.Printf("animelist-service: get list viewer weights: %v", err)
				writeError(w, http.StatusInternalServerError, "database error")
				return
			}
			viewerPrefs = &prefs
		}
		weights, ok := ranking.ResolveWeights(ranking.Mode(mode), l.Weights, viewerPrefs)
		if !ok {
			writeError(w, http.StatusBadRequest, "mode not available for this list")
			return
		}
		ordered = applyOrder(entries, ranking.Rank(toRankingEntries(entries), weights), true)
	}

	liked := false
	if signedIn {
		err := s.db.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM likes WHERE list_id = $1 AND user_id = $2)
		`, listID, userID).Scan(&liked)
		if err != nil {
			log.Printf("animelist-service: get list liked check: %v", err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"list":           l,
		"entries":        ordered,
		"mode":           mode,
		"availableModes": available,
		"likedByViewer":  liked,
		"canEdit":        signedIn && userID == l.OwnerID,
	})
}

func (s *Server) loadEntries(ctx context.Context, listID string) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT e.id, e.list_id, e.anilist_id,
		       e.score_technical, e.score_storytelling, e.score_enjoyment, e.score_xfactor,
		       e.watched, e.notes, e.position, e.streaming_services, e.added_at, e.updated_at,
		       c.anilist_id, c.title_english, c.title_romaji, c.title_native,
		       c.cover_image_url, c.format, c.episodes, c.average_score
		FROM list_entries e
		LEFT JOIN anime_cache c ON c.anilist_id = e.anilist_id
		WHERE e.list_id = $1
		ORDER BY e.added_at ASC
	`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var (
			cacheID      *int64
			titleEN      *string
			titleRomaji  *string
			titleNative  *string
			coverURL     *string
			format       *string
			episodes     *int
			averageScore *int
		)
		if err := rows.Scan(
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
			&cacheID,
			&titleEN,
			&titleRomaji,
			&titleNative,
			&coverURL,
			&format,
			&episodes,
			&averageScore,
		); err != nil {
			return nil, err
		}
		if cacheID != nil {
			e.Media = &MediaSnapshot{
				AnilistID:     *cacheID,
				TitleEnglish:  deref(titleEN),
				TitleRomaji:   deref(titleRomaji),
				TitleNative:   deref(titleNative),
				CoverImageURL: deref(coverURL),
				Format:        deref(format),
				Episodes:      derefInt(episodes),
				AverageScore:  derefInt(averageScore),
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func toRankingEntries(entries []Entry) []ranking.Entry {
	out := make([]ranking.Entry, len(entries))
	for i, e := range entries {
		re := ranking.Entry{
			ID:       e.ID,
			Scores:   e.Scores,
			Position: e.Position,
			AddedAt:  e.AddedAt,
			HasMedia: e.Media != nil,
		}
		if e.Media != nil {
			re.Title = e.Media.DisplayTitle()
		}
		out[i] = re
	}
	return out
}

// applyOrder maps the ranker's output back onto the full entries, carrying
// the computed overall score for weight-driven views. Entries the ranker
// skipped (missing cache snapshot) are left out.
func applyOrder(entries []Entry, ordered []ranking.Entry, withScores bool) []Entry {
	byID := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	out := make([]Entry, 0, len(ordered))
	for _, re := range ordered {
		e, ok := byID[re.ID]
		if !ok {
			continue
		}
		if withScores {
			overall := re.Overall
			e.OverallScore = &overall
		}
		out = append(out, e)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
