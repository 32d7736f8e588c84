package list

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

func AutoMigrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS pgcrypto`); err != nil {
		log.Printf("list: extension: %v", err)
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS lists (
          id                  uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          owner_id            TEXT NOT NULL,
          title               TEXT NOT NULL,
          description         TEXT NOT NULL DEFAULT '',
          is_public           BOOLEAN NOT NULL DEFAULT FALSE,
          list_type           TEXT NOT NULL DEFAULT 'ranked',
          weight_technical    DOUBLE PRECISION NOT NULL DEFAULT 1 CHECK (weight_technical >= 0),
          weight_storytelling DOUBLE PRECISION NOT NULL DEFAULT 1 CHECK (weight_storytelling >= 0),
          weight_enjoyment    DOUBLE PRECISION NOT NULL DEFAULT 1 CHECK (weight_enjoyment >= 0),
          weight_xfactor      DOUBLE PRECISION NOT NULL DEFAULT 1 CHECK (weight_xfactor >= 0),
          custom_order        BOOLEAN NOT NULL DEFAULT FALSE,
          like_count          INT NOT NULL DEFAULT 0,
          created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
          updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		log.Printf("migrate lists: %v", err)
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS list_entries (
          id                  uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          list_id             uuid NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
          anilist_id          BIGINT NOT NULL,
          score_technical     DOUBLE PRECISION NOT NULL DEFAULT 0,
          score_storytelling  DOUBLE PRECISION NOT NULL DEFAULT 0,
          score_enjoyment     DOUBLE PRECISION NOT NULL DEFAULT 0,
          score_xfactor       DOUBLE PRECISION NOT NULL DEFAULT 0,
          watched             BOOLEAN NOT NULL DEFAULT FALSE,
          notes               TEXT NOT NULL DEFAULT '',
          position            INT,
          streaming_services  TEXT[] NOT NULL DEFAULT '{}',
          added_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
          updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
          UNIQUE (list_id, anilist_id)
      )
    `); err != nil {
		log.Printf("migrate list_entries: %v", err)
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS likes (
          list_id    uuid NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
          user_id    TEXT NOT NULL,
          created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
          PRIMARY KEY (list_id, user_id)
      )
    `); err != nil {
		log.Printf("migrate likes: %v", err)
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS comments (
          id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          list_id    uuid NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
          user_id    TEXT NOT NULL,
          body       TEXT NOT NULL,
          created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
          updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		log.Printf("migrate comments: %v", err)
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE INDEX IF NOT EXISTS idx_lists_owner ON lists(owner_id);
      CREATE INDEX IF NOT EXISTS idx_list_entries_list ON list_entries(list_id);
      CREATE INDEX IF NOT EXISTS idx_comments_list ON comments(list_id)
    `); err != nil {
		log.Printf("migrate list indexes: %v", err)
		return err
	}

	return nil
}
