package catalog

// Media is one anime as the service knows it: the fields AniList returns
// for a search hit, which are also the fields anime_cache persists.
type Media struct {
	ID             int64          `json:"id"`
	TitleEnglish   string         `json:"titleEnglish,omitempty"`
	TitleRomaji    string         `json:"titleRomaji,omitempty"`
	TitleNative    string         `json:"titleNative,omitempty"`
	CoverImageURL  string         `json:"coverImageUrl,omitempty"`
	BannerImageURL string         `json:"bannerImageUrl,omitempty"`
	Format         string         `json:"format,omitempty"`
	Episodes       int            `json:"episodes,omitempty"`
	AverageScore   int            `json:"averageScore,omitempty"`
	Genres         []string       `json:"genres,omitempty"`
	Season         string         `json:"season,omitempty"`
	SeasonYear     int            `json:"seasonYear,omitempty"`
	Status         string         `json:"status,omitempty"`
	Description    string         `json:"description,omitempty"`
	ExternalLinks  []ExternalLink `json:"externalLinks,omitempty"`
}

// ExternalLink is one of AniList's external site links for a show.
type ExternalLink struct {
	Site string `json:"site"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

const linkTypeStreaming = "STREAMING"

// StreamingServices returns the site names of the media's STREAMING links,
// in the order AniList lists them. These become the streaming-services
// annotation on a list entry when the client adds the show without
// overriding them.
func (m Media) StreamingServices() []string {
	out := []string{}
	for _, l := range m.ExternalLinks {
		if l.Type == linkTypeStreaming && l.Site != "" {
			out = append(out, l.Site)
		}
	}
	return out
}

// PageInfo mirrors AniList's pagination block.
type PageInfo struct {
	Total       int  `json:"total"`
	CurrentPage int  `json:"currentPage"`
	LastPage    int  `json:"lastPage"`
	HasNextPage bool `json:"hasNextPage"`
	PerPage     int  `json:"perPage"`
}

// SearchResult is one page of search hits.
type SearchResult struct {
	PageInfo PageInfo `json:"pageInfo"`
	Media    []Media  `json:"media"`
}
