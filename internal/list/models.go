package list

import (
	"time"

	"animelist-service/internal/ranking"
)

// List is a named collection of anime owned by exactly one user. A list is
// either score-ranked or a watch checklist; the two variants share storage
// and differ in which entry fields are meaningful.
type List struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"ownerId"`
	OwnerUsername string          `json:"ownerUsername,omitempty"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	IsPublic      bool            `json:"isPublic"`
	ListType      string          `json:"listType"` // "ranked" | "watch"
	Weights       ranking.Weights `json:"weights"`
	CustomOrder   bool            `json:"customOrder"`
	LikeCount     int             `json:"likeCount"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Entry is one anime's membership in a list. Scores matter only on ranked
// lists, the watched flag only on watch lists, Position only when the list
// has custom ordering enabled.
type Entry struct {
	ID                string         `json:"id"`
	ListID            string         `json:"listId"`
	AnilistID         int64          `json:"anilistId"`
	Scores            ranking.Scores `json:"scores"`
	Watched           bool           `json:"watched"`
	Notes             string         `json:"notes"`
	Position          *int           `json:"position,omitempty"`
	StreamingServices []string       `json:"streamingServices"`
	AddedAt           time.Time      `json:"addedAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`

	// Media is the joined anime_cache snapshot. It is nil while the cache
	// upsert for a freshly added anime is still in flight.
	Media *MediaSnapshot `json:"media,omitempty"`

	// OverallScore is set on ranked views only.
	OverallScore *float64 `json:"overallScore,omitempty"`
}

// MediaSnapshot is the slice of the anime_cache row that list views render.
type MediaSnapshot struct {
	AnilistID     int64  `json:"anilistId"`
	TitleEnglish  string `json:"titleEnglish,omitempty"`
	TitleRomaji   string `json:"titleRomaji,omitempty"`
	TitleNative   string `json:"titleNative,omitempty"`
	CoverImageURL string `json:"coverImageUrl,omitempty"`
	Format        string `json:"format,omitempty"`
	Episodes      int    `json:"episodes,omitempty"`
	AverageScore  int    `json:"averageScore,omitempty"`
}

// DisplayTitle prefers the english title, then romaji, then native.
func (m *MediaSnapshot) DisplayTitle() string {
	if m.TitleEnglish != "" {
		return m.TitleEnglish
	}
	if m.TitleRomaji != "" {
		return m.TitleRomaji
	}
	return m.TitleNative
}

// Comment belongs to a list. Only its author may edit or delete it.
type Comment struct {
	ID        string         `json:"id"`
	ListID    string         `json:"listId"`
	UserID    string         `json:"userId"`
	Body      string         `json:"body"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Edited    bool           `json:"edited"`
	Author    *CommentAuthor `json:"author,omitempty"`
}

// CommentAuthor is the joined profile of a comment's author.
type CommentAuthor struct {
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

const (
	listTypeRanked = "ranked"
	listTypeWatch  = "watch"

	maxTitleLen       = 120
	maxDescriptionLen = 1000
	maxNotesLen       = 4000
	maxCommentLen     = 2000

	maxScore = 10.0
)
