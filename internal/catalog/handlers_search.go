package catalog

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// searchCacheKey derives a stable key from the full query signature so
// equivalent requests share one cached page.
func searchCacheKey(q url.Values) string {
	keys := []string{"query", "page", "perPage", "genres", "year", "season", "format", "status", "sort"}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+q.Get(k))
	}
	return "anime:search:" + strings.Join(parts, "&")
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("query"))
	if utf8.RuneCountInString(query) > 200 {
		writeError(w, http.StatusBadRequest, "query is too long")
		return
	}

	p := SearchParams{Query: query}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("perPage")); err == nil && v > 0 && v <= 50 {
		p.PerPage = v
	}
	if g := strings.TrimSpace(q.Get("genres")); g != "" {
		for _, part := range strings.Split(g, ",") {
			if part = strings.TrimSpace(part); part != "" {
				p.Genres = append(p.Genres, part)
			}
		}
	}
	if v, err := strconv.Atoi(q.Get("year")); err == nil && v > 0 {
		p.Year = v
	}
	p.Season = strings.ToUpper(strings.TrimSpace(q.Get("season")))
	p.Format = strings.ToUpper(strings.TrimSpace(q.Get("format")))
	p.Status = strings.ToUpper(strings.TrimSpace(q.Get("status")))
	p.Sort = strings.ToUpper(strings.TrimSpace(q.Get("sort")))

	key := searchCacheKey(q)
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(cached))
			return
		}
	}

	result, err := s.client.Search(ctx, p)
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":      "catalog rate limited",
			"retryAfter": rateErr.RetryAfter,
		})
		return
	}
	if err != nil {
		log.Printf("animelist-service: anime search: %v", err)
		writeError(w, http.StatusBadGateway, "failed to query catalog")
		return
	}

	if s.rdb != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := s.rdb.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
				log.Printf("animelist-service: cache search page: %v", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// handleCacheUpsert is the passive metadata write path. Entry adds call it
// with the record the client already holds from a search.
func (s *Server) handleCacheUpsert(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-User-Id") == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var m Media
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if m.ID <= 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := s.store.Upsert(r.Context(), m); err != nil {
		log.Printf("animelist-service: cache upsert: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
