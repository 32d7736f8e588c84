package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSearchClient struct {
	mock.Mock
}

func (m *MockSearchClient) Search(ctx context.Context, p SearchParams) (SearchResult, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(SearchResult), args.Error(1)
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestHandleSearch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockC := new(MockSearchClient)
		srv := NewServer(mockC, nil, nil)

		result := SearchResult{
			PageInfo: PageInfo{Total: 1, CurrentPage: 1, LastPage: 1, PerPage: 20},
			Media:    []Media{{ID: 1, TitleRomaji: "Cowboy Bebop"}},
		}
		mockC.On("Search", mock.Anything, SearchParams{Query: "bebop"}).Return(result, nil)

		req, _ := http.NewRequest("GET", "/anime/search?query=bebop", nil)
		rr := httptest.NewRecorder()

		srv.handleSearch(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp SearchResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, result.Media, resp.Media)
		mockC.AssertExpectations(t)
	})

	t.Run("filters forwarded", func(t *testing.T) {
		mockC := new(MockSearchClient)
		srv := NewServer(mockC, nil, nil)

		want := SearchParams{
			Query:   "slime",
			Page:    2,
			PerPage: 10,
			Genres:  []string{"Fantasy", "Comedy"},
			Year:    2018,
			Season:  "FALL",
			Format:  "TV",
			Status:  "FINISHED",
			Sort:    "SCORE_DESC",
		}
		mockC.On("Search", mock.Anything, want).Return(SearchResult{}, nil)

		req, _ := http.NewRequest("GET", "/anime/search?query=slime&page=2&perPage=10&genres=Fantasy,Comedy&year=2018&season=fall&format=tv&status=finished&sort=score_desc", nil)
		rr := httptest.NewRecorder()

		srv.handleSearch(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockC.AssertExpectations(t)
	})

	t.Run("query too long", func(t *testing.T) {
		srv := NewServer(new(MockSearchClient), nil, nil)
		long := make([]byte, 201)
		for i := range long {
			long[i] = 'a'
		}
		req, _ := http.NewRequest("GET", "/anime/search?query="+string(long), nil)
		rr := httptest.NewRecorder()

		srv.handleSearch(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "too long")
	})

	t.Run("rate limited surfaces retryAfter", func(t *testing.T) {
		mockC := new(MockSearchClient)
		srv := NewServer(mockC, nil, nil)

		mockC.On("Search", mock.Anything, mock.Anything).
			Return(SearchResult{}, &RateLimitError{RetryAfter: 42})

		req, _ := http.NewRequest("GET", "/anime/search?query=test", nil)
		rr := httptest.NewRecorder()

		srv.handleSearch(rr, req)

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, float64(42), resp["retryAfter"])
		mockC.AssertExpectations(t)
	})

	t.Run("upstream error", func(t *testing.T) {
		mockC := new(MockSearchClient)
		srv := NewServer(mockC, nil, nil)

		mockC.On("Search", mock.Anything, mock.Anything).
			Return(SearchResult{}, errors.New("anilist status 500"))

		req, _ := http.NewRequest("GET", "/anime/search?query=test", nil)
		rr := httptest.NewRecorder()

		srv.handleSearch(rr, req)

		assert.Equal(t, http.StatusBadGateway, rr.Code)
		assert.Contains(t, rr.Body.String(), "failed to query catalog")
	})

	t.Run("second request served from cache", func(t *testing.T) {
		mockC := new(MockSearchClient)
		srv := NewServer(mockC, nil, testRedis(t))

		result := SearchResult{Media: []Media{{ID: 5, TitleRomaji: "Monster"}}}
		mockC.On("Search", mock.Anything, SearchParams{Query: "monster"}).
			Return(result, nil).Once()

		for i := 0; i < 2; i++ {
			req, _ := http.NewRequest("GET", "/anime/search?query=monster", nil)
			rr := httptest.NewRecorder()

			srv.handleSearch(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)

			var resp SearchResult
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, result.Media, resp.Media)
		}

		mockC.AssertExpectations(t)
	})

	t.Run("different pages cached separately", func(t *testing.T) {
		mockC := new(MockSearchClient)
		srv := NewServer(mockC, nil, testRedis(t))

		mockC.On("Search", mock.Anything, SearchParams{Query: "monster"}).
			Return(SearchResult{PageInfo: PageInfo{CurrentPage: 1}}, nil).Once()
		mockC.On("Search", mock.Anything, SearchParams{Query: "monster", Page: 2}).
			Return(SearchResult{PageInfo: PageInfo{CurrentPage: 2}}, nil).Once()

		for _, target := range []string{"/anime/search?query=monster", "/anime/search?query=monster&page=2"} {
			req, _ := http.NewRequest("GET", target, nil)
			rr := httptest.NewRecorder()
			srv.handleSearch(rr, req)
			assert.Equal(t, http.StatusOK, rr.Code)
		}

		mockC.AssertExpectations(t)
	})
}

func TestHandleCacheUpsert(t *testing.T) {
	t.Run("requires identity", func(t *testing.T) {
		srv := NewServer(nil, nil, nil)
		req := httptest.NewRequest("POST", "/anime/cache", nil)
		rr := httptest.NewRecorder()

		srv.handleCacheUpsert(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("requires id", func(t *testing.T) {
		srv := NewServer(nil, nil, nil)
		req := httptest.NewRequest("POST", "/anime/cache", bytes.NewBufferString(`{"titleRomaji":"Monster"}`))
		req.Header.Set("X-User-Id", "user-1")
		rr := httptest.NewRecorder()

		srv.handleCacheUpsert(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "id is required")
	})
}
