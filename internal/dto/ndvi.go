package dto

import "github.com/noah-isme/ndvi-gateway/internal/models"

// IdentityResponse reports the client user id bound to the caller.
type IdentityResponse struct {
	UserID string `json:"user_id"`
}

// SetIdentityRequest replaces the caller's user id.
type SetIdentityRequest struct {
	UserID string `json:"user_id" validate:"required,min=3,max=128,printascii"`
}

// PageQuery carries limit/offset paging parameters.
type PageQuery struct {
	Limit  int `form:"limit" validate:"gte=0,lte=500"`
	Offset int `form:"offset" validate:"gte=0"`
}

// ExportQuery selects the export encoding.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf CSV PDF"`
}

// ReadyResponse mirrors backend health for load balancers and the front end.
type ReadyResponse struct {
	Status   string               `json:"status"`
	DemoMode bool                 `json:"demo_mode"`
	Backend  *models.HealthStatus `json:"backend,omitempty"`
	Message  string               `json:"message,omitempty"`
}

// CounterResponse returns card counters after an update.
type CounterResponse struct {
	SessionID string `json:"session_id"`
	models.CardCounters
}
