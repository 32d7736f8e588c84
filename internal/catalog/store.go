package catalog

import (
	"context"
	"encoding/json"
	"log"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StoreDB is the subset of *pgxpool.Pool the store uses.
type StoreDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is the passive anime metadata cache. Rows are written when an
// entry is added and overwritten whenever a fresher record arrives.
type Store struct {
	db StoreDB
}

func NewStore(db StoreDB) *Store {
	return &Store{db: db}
}

func AutoMigrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS anime_cache (
          anilist_id       BIGINT PRIMARY KEY,
          title_english    TEXT NOT NULL DEFAULT '',
          title_romaji     TEXT NOT NULL DEFAULT '',
          title_native     TEXT NOT NULL DEFAULT '',
          cover_image_url  TEXT NOT NULL DEFAULT '',
          banner_image_url TEXT NOT NULL DEFAULT '',
          format           TEXT NOT NULL DEFAULT '',
          episodes         INT NOT NULL DEFAULT 0,
          average_score    INT NOT NULL DEFAULT 0,
          genres           TEXT[] NOT NULL DEFAULT '{}',
          season           TEXT NOT NULL DEFAULT '',
          season_year      INT NOT NULL DEFAULT 0,
          status           TEXT NOT NULL DEFAULT '',
          description      TEXT NOT NULL DEFAULT '',
          external_links   JSONB NOT NULL DEFAULT '[]',
          updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		log.Printf("migrate anime_cache: %v", err)
		return err
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, m Media) error {
	genres := m.Genres
	if genres == nil {
		genres = []string{}
	}
	links := m.ExternalLinks
	if links == nil {
		links = []ExternalLink{}
	}
	linksJSON, err := json.Marshal(links)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO anime_cache
			(anilist_id, title_english, title_romaji, title_native,
			 cover_image_url, banner_image_url, format, episodes,
			 average_score, genres, season, season_year, status, description,
			 external_links)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (anilist_id) DO UPDATE SET
			title_english    = EXCLUDED.title_english,
			title_romaji     = EXCLUDED.title_romaji,
			title_native     = EXCLUDED.title_native,
			cover_image_url  = EXCLUDED.cover_image_url,
			banner_image_url = EXCLUDED.banner_image_url,
			format           = EXCLUDED.format,
			episodes         = EXCLUDED.episodes,
			average_score    = EXCLUDED.average_score,
			genres           = EXCLUDED.genres,
			season           = EXCLUDED.season,
			season_year      = EXCLUDED.season_year,
			status           = EXCLUDED.status,
			description      = EXCLUDED.description,
			external_links   = EXCLUDED.external_links,
			updated_at       = now()
	`, m.ID, m.TitleEnglish, m.TitleRomaji, m.TitleNative,
		m.CoverImageURL, m.BannerImageURL, m.Format, m.Episodes,
		m.AverageScore, genres, m.Season, m.SeasonYear, m.Status, m.Description,
		linksJSON)
	return err
}
