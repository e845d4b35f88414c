package models

// CardCategory groups cards in the gallery views.
type CardCategory string

const (
	CategoryRecentlyPublished    CardCategory = "recently_published"
	CategoryCommunityResearch    CardCategory = "community_research"
	CategoryEnterpriseRepository CardCategory = "enterprise_repository"
	CategoryUserAnalyses         CardCategory = "user_analyses"
)

// CardCounters are cosmetic engagement counters. They are never sent to the
// analysis backend.
type CardCounters struct {
	Likes  int64 `json:"likes"`
	Shares int64 `json:"shares"`
	Views  int64 `json:"views"`
}

// AnalysisCard is the display model for a session or gallery item.
type AnalysisCard struct {
	SessionID    string       `json:"session_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Tags         []string     `json:"tags"`
	Category     CardCategory `json:"category"`
	LocationName string       `json:"location_name"`
	Query        string       `json:"query,omitempty"`
	StartYear    int          `json:"start_year"`
	EndYear      int          `json:"end_year"`
	CreatedAt    string       `json:"created_at"`
	ThumbnailURL string       `json:"thumbnail_url"`
	MapURL       string       `json:"map_url"`
	ChartURL     string       `json:"chart_url"`
	DownloadURL  string       `json:"download_url"`
	CardCounters
}

// CardPage is one page of a user's gallery rendered as cards.
type CardPage struct {
	UserID string         `json:"user_id"`
	Cards  []AnalysisCard `json:"cards"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Notice string         `json:"notice,omitempty"`
}
