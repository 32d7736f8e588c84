package profile

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"animelist-service/internal/ranking"
)

type Profile struct {
	UserID      string `json:"userId"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Bio         string `json:"bio,omitempty"`

	// PrefWeights seed the default weights of new lists and drive the
	// viewer ranking mode on other people's lists.
	PrefWeights ranking.Weights `json:"prefWeights"`

	SetupComplete bool      `json:"setupComplete"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

var ErrProfileNotFound = errors.New("profile not found")

func AutoMigrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS profiles (
          user_id                  TEXT PRIMARY KEY,
          username                 TEXT UNIQUE,
          display_name             TEXT NOT NULL DEFAULT '',
          avatar_url               TEXT NOT NULL DEFAULT '',
          bio                      TEXT NOT NULL DEFAULT '',
          pref_weight_technical    DOUBLE PRECISION NOT NULL DEFAULT 1 CHECK (pref_weight_technical >= 0),
          pref_weight_storytelling DOUBLE PRECISION NOT NULL DEFAULT 1 CHECK (pref_weight_storytelling >= 0),
          pref_weight_enjoyment    DOUBLE PRECISION NOT NULL DEFAULT 1 CHECK (pref_weight_enjoyment >= 0),
          pref_weight_xfactor      DOUBLE PRECISION NOT NULL DEFAULT 1 CHECK (pref_weight_xfactor >= 0),
          setup_complete           BOOLEAN NOT NULL DEFAULT FALSE,
          created_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
          updated_at               TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		log.Printf("migrate profiles: %v", err)
		return err
	}
	return nil
}

const profileColumns = `user_id, username, display_name, avatar_url, bio,
       pref_weight_technical, pref_weight_storytelling,
       pref_weight_enjoyment, pref_weight_xfactor,
       setup_complete, created_at, updated_at`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	var username *string
	err := row.Scan(
		&p.UserID,
		&username,
		&p.DisplayName,
		&p.AvatarURL,
		&p.Bio,
		&p.PrefWeights.Technical,
		&p.PrefWeights.Storytelling,
		&p.PrefWeights.Enjoyment,
		&p.PrefWeights.XFactor,
		&p.SetupComplete,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	if username != nil {
		p.Username = *username
	}
	return p, nil
}

func (s *Server) findByUserID(ctx context.Context, userID string) (Profile, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE user_id = $1
	`, userID)
	return scanProfile(row)
}

func (s *Server) findByUsername(ctx context.Context, username string) (Profile, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE username = $1
	`, username)
	return scanProfile(row)
}

// getOrCreate returns the user's profile, inserting a default row on
// first sight. A concurrent first request may win the insert; the
// follow-up read covers that case.
func (s *Server) getOrCreate(ctx context.Context, userID string) (Profile, error) {
	prof, err := s.findByUserID(ctx, userID)
	if err == nil {
		return prof, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return Profile{}, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING `+profileColumns+`
	`, userID)

	prof, err = scanProfile(row)
	if errors.Is(err, ErrProfileNotFound) {
		return s.findByUserID(ctx, userID)
	}
	if err != nil {
		return Profile{}, err
	}
	return prof, nil
}

func (s *Server) save(ctx context.Context, p Profile) error {
	var username *string
	if p.Username != "" {
		username = &p.Username
	}
	_, err := s.db.Exec(ctx, `
		UPDATE profiles
		SET username = $1,
		    display_name = $2,
		    avatar_url = $3,
		    bio = $4,
		    pref_weight_technical = $5,
		    pref_weight_storytelling = $6,
		    pref_weight_enjoyment = $7,
		    pref_weight_xfactor = $8,
		    setup_complete = $9,
		    updated_at = $10
		WHERE user_id = $11
	`,
		username,
		p.DisplayName,
		p.AvatarURL,
		p.Bio,
		p.PrefWeights.Technical,
		p.PrefWeights.Storytelling,
		p.PrefWeights.Enjoyment,
		p.PrefWeights.XFactor,
		p.SetupComplete,
		p.UpdatedAt,
		p.UserID,
	)
	return err
}
