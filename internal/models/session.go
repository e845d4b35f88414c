package models

// Range is an inclusive numeric interval in degrees.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max" validate:"gtefield=Min"`
}

// Location describes the analysed area of interest.
type Location struct {
	Name      string `json:"name" validate:"required"`
	Latitude  Range  `json:"latitude"`
	Longitude Range  `json:"longitude"`
}

// AnalysisInfo is the immutable description of what a session analysed.
type AnalysisInfo struct {
	Location  Location `json:"location" validate:"required"`
	StartYear int      `json:"start_year" validate:"required"`
	EndYear   int      `json:"end_year" validate:"required,gtefield=StartYear"`
}

// SessionFiles lists the backend resources derived from a session id.
type SessionFiles struct {
	PreviewURL  string `json:"preview_url"`
	MapURL      string `json:"map_url"`
	ChartURL    string `json:"chart_url"`
	DownloadURL string `json:"download_url"`
	MetadataURL string `json:"metadata_url"`
}

// SessionAnalysis is one completed backend analysis run.
type SessionAnalysis struct {
	SessionID string       `json:"session_id" validate:"required"`
	UserID    string       `json:"user_id"`
	Analysis  AnalysisInfo `json:"analysis" validate:"required"`
	Files     SessionFiles `json:"files"`
	CreatedAt string       `json:"created_at" validate:"required"`
	Status    string       `json:"status"`
}

// StatusCompleted is the status the backend reports for a finished session.
const StatusCompleted = "completed"
