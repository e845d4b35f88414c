package models

// GalleryItem is the list-view projection of a session returned by
// GET /gallery/{user_id}.
type GalleryItem struct {
	SessionID    string `json:"session_id" validate:"required"`
	LocationName string `json:"location_name"`
	Query        string `json:"query"`
	StartYear    int    `json:"start_year"`
	EndYear      int    `json:"end_year"`
	CreatedAt    string `json:"created_at"`
	ThumbnailURL string `json:"thumbnail_url"`
	MapURL       string `json:"map_url"`
	ChartURL     string `json:"chart_url"`
	DownloadURL  string `json:"download_url"`
}

// GalleryPage is one page of a user's gallery. Notice is set when the
// backend could not be reached and the page was replaced by an empty list.
type GalleryPage struct {
	UserID string        `json:"user_id"`
	Items  []GalleryItem `json:"items"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Notice string        `json:"notice,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}
