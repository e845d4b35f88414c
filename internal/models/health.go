package models

// HealthStatus mirrors the backend's GET /health payload.
type HealthStatus struct {
	Status                 string  `json:"status" validate:"required"`
	AnalyzerInitialized    bool    `json:"analyzer_initialized"`
	GeminiModelInitialized bool    `json:"gemini_model_initialized"`
	ProjectID              *string `json:"project_id,omitempty"`
}

// AnalysisMetadata is the free-form metadata document of a session.
type AnalysisMetadata map[string]interface{}
