package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RateLimitError signals an AniList 429. RetryAfter is the number of
// seconds from the Retry-After header, or a default when the header is
// missing or unreadable.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("anilist rate limited, retry after %ds", e.RetryAfter)
}

const defaultRetryAfter = 60

type AniListClient struct {
	endpoint string
	http     *http.Client
}

func NewAniListClient(endpoint string) *AniListClient {
	return &AniListClient{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SearchParams are the supported AniList search filters. Zero values are
// left out of the GraphQL variables so AniList does not filter on them.
type SearchParams struct {
	Query   string
	Page    int
	PerPage int
	Genres  []string
	Year    int
	Season  string
	Format  string
	Status  string
	Sort    string
}

const searchQuery = `query ($page: Int, $perPage: Int, $search: String, $genres: [String], $seasonYear: Int, $season: MediaSeason, $format: MediaFormat, $status: MediaStatus, $sort: [MediaSort]) {
  Page(page: $page, perPage: $perPage) {
    pageInfo { total currentPage lastPage hasNextPage perPage }
    media(type: ANIME, isAdult: false, search: $search, genre_in: $genres, seasonYear: $seasonYear, season: $season, format: $format, status: $status, sort: $sort) {
      id
      title { english romaji native }
      coverImage { large }
      bannerImage
      format
      episodes
      averageScore
      genres
      season
      seasonYear
      status
      description(asHtml: false)
      externalLinks { site url type }
    }
  }
}`

type gqlSearchResponse struct {
	Data struct {
		Page struct {
			PageInfo PageInfo `json:"pageInfo"`
			Media    []struct {
				ID    int64 `json:"id"`
				Title struct {
					English string `json:"english"`
					Romaji  string `json:"romaji"`
					Native  string `json:"native"`
				} `json:"title"`
				CoverImage struct {
					Large string `json:"large"`
				} `json:"coverImage"`
				BannerImage   string         `json:"bannerImage"`
				Format        string         `json:"format"`
				Episodes      int            `json:"episodes"`
				AverageScore  int            `json:"averageScore"`
				Genres        []string       `json:"genres"`
				Season        string         `json:"season"`
				SeasonYear    int            `json:"seasonYear"`
				Status        string         `json:"status"`
				Description   string         `json:"description"`
				ExternalLinks []ExternalLink `json:"externalLinks"`
			} `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *AniListClient) Search(ctx context.Context, p SearchParams) (SearchResult, error) {
	var out SearchResult

	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PerPage <= 0 || p.PerPage > 50 {
		p.PerPage = 20
	}

	vars := map[string]any{
		"page":    p.Page,
		"perPage": p.PerPage,
	}
	if p.Query != "" {
		vars["search"] = p.Query
	}
	if len(p.Genres) > 0 {
		vars["genres"] = p.Genres
	}
	if p.Year != 0 {
		vars["seasonYear"] = p.Year
	}
	if p.Season != "" {
		vars["season"] = p.Season
	}
	if p.Format != "" {
		vars["format"] = p.Format
	}
	if p.Status != "" {
		vars["status"] = p.Status
	}
	if p.Sort != "" {
		vars["sort"] = []string{p.Sort}
	} else if p.Query == "" {
		vars["sort"] = []string{"POPULARITY_DESC"}
	}

	payload, err := json.Marshal(map[string]any{
		"query":     searchQuery,
		"variables": vars,
	})
	if err != nil {
		return out, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := defaultRetryAfter
		if v, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && v > 0 {
			retryAfter = v
		}
		return out, &RateLimitError{RetryAfter: retryAfter}
	}
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("anilist status %d", resp.StatusCode)
	}

	var body gqlSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return out, err
	}
	if len(body.Errors) > 0 {
		return out, fmt.Errorf("anilist: %s", body.Errors[0].Message)
	}

	out.PageInfo = body.Data.Page.PageInfo
	out.Media = make([]Media, 0, len(body.Data.Page.Media))
	for _, m := range body.Data.Page.Media {
		out.Media = append(out.Media, Media{
			ID:             m.ID,
			TitleEnglish:   m.Title.English,
			TitleRomaji:    m.Title.Romaji,
			TitleNative:    m.Title.Native,
			CoverImageURL:  m.CoverImage.Large,
			BannerImageURL: m.BannerImage,
			Format:         m.Format,
			Episodes:       m.Episodes,
			AverageScore:   m.AverageScore,
			Genres:         m.Genres,
			Season:         m.Season,
			SeasonYear:     m.SeasonYear,
			Status:         m.Status,
			Description:    m.Description,
			ExternalLinks:  m.ExternalLinks,
		})
	}
	return out, nil
}
