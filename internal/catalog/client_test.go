package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchMapsResponse(t *testing.T) {
	var gotVars map[string]any

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotVars = body.Variables

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": {
				"Page": {
					"pageInfo": { "total": 2, "currentPage": 1, "lastPage": 1, "hasNextPage": false, "perPage": 20 },
					"media": [
						{
							"id": 21,
							"title": { "english": "One Piece", "romaji": "One Piece", "native": "ワンピース" },
							"coverImage": { "large": "http://img/21.jpg" },
							"format": "TV",
							"episodes": 1000,
							"averageScore": 88,
							"genres": ["Action", "Adventure"],
							"season": "FALL",
							"seasonYear": 1999,
							"status": "RELEASING",
							"externalLinks": [
								{ "site": "Crunchyroll", "url": "http://cr/21", "type": "STREAMING" },
								{ "site": "Netflix", "url": "http://nf/21", "type": "STREAMING" },
								{ "site": "Official Site", "url": "http://op", "type": "INFO" }
							]
						},
						{
							"id": 1,
							"title": { "english": null, "romaji": "Cowboy Bebop", "native": null },
							"coverImage": { "large": "http://img/1.jpg" },
							"format": "TV",
							"episodes": 26,
							"averageScore": 86,
							"genres": ["Action"],
							"season": "SPRING",
							"seasonYear": 1998,
							"status": "FINISHED"
						}
					]
				}
			}
		}`))
	}))
	defer upstream.Close()

	client := NewAniListClient(upstream.URL)

	result, err := client.Search(context.Background(), SearchParams{
		Query:  "bebop",
		Genres: []string{"Action"},
		Year:   1998,
	})
	require.NoError(t, err)

	assert.Equal(t, "bebop", gotVars["search"])
	assert.Equal(t, float64(1998), gotVars["seasonYear"])
	assert.Equal(t, float64(1), gotVars["page"])
	assert.Equal(t, float64(20), gotVars["perPage"])

	require.Len(t, result.Media, 2)
	assert.Equal(t, int64(21), result.Media[0].ID)
	assert.Equal(t, "One Piece", result.Media[0].TitleEnglish)
	assert.Equal(t, []string{"Action", "Adventure"}, result.Media[0].Genres)
	require.Len(t, result.Media[0].ExternalLinks, 3)
	assert.Equal(t, ExternalLink{Site: "Crunchyroll", URL: "http://cr/21", Type: "STREAMING"}, result.Media[0].ExternalLinks[0])
	assert.Equal(t, []string{"Crunchyroll", "Netflix"}, result.Media[0].StreamingServices())
	assert.Equal(t, "", result.Media[1].TitleEnglish)
	assert.Empty(t, result.Media[1].StreamingServices())
	assert.Equal(t, "Cowboy Bebop", result.Media[1].TitleRomaji)
	assert.Equal(t, 2, result.PageInfo.Total)
	assert.False(t, result.PageInfo.HasNextPage)
}

func TestSearchRateLimited(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	client := NewAniListClient(upstream.URL)

	_, err := client.Search(context.Background(), SearchParams{Query: "naruto"})

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 30, rateErr.RetryAfter)
}

func TestSearchRateLimitedWithoutHeader(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	client := NewAniListClient(upstream.URL)

	_, err := client.Search(context.Background(), SearchParams{Query: "naruto"})

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, defaultRetryAfter, rateErr.RetryAfter)
}

func TestSearchUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	client := NewAniListClient(upstream.URL)

	_, err := client.Search(context.Background(), SearchParams{Query: "naruto"})
	require.Error(t, err)

	var rateErr *RateLimitError
	assert.False(t, errors.As(err, &rateErr))
}

func TestSearchGraphQLError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": null, "errors": [{"message": "Invalid season"}]}`))
	}))
	defer upstream.Close()

	client := NewAniListClient(upstream.URL)

	_, err := client.Search(context.Background(), SearchParams{Season: "WINTERR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid season")
}

func TestSearchDefaultsSortForBrowse(t *testing.T) {
	var gotVars map[string]any

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Variables map[string]any `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotVars = body.Variables
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"Page": {"pageInfo": {}, "media": []}}}`))
	}))
	defer upstream.Close()

	client := NewAniListClient(upstream.URL)

	_, err := client.Search(context.Background(), SearchParams{})
	require.NoError(t, err)

	assert.Equal(t, []any{"POPULARITY_DESC"}, gotVars["sort"])
	assert.NotContains(t, gotVars, "search")
}
