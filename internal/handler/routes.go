package handler

import "github.com/gin-gonic/gin"

// Handlers groups every HTTP handler the gateway mounts.
type Handlers struct {
	Health   *HealthHandler
	Identity *IdentityHandler
	Analyses *AnalysisHandler
	Gallery  *GalleryHandler
	Results  *ResultHandler
}

// RegisterRoutes mounts the probes at the root and the NDVI API under
// prefix. identity resolves the client user id for the API group.
func RegisterRoutes(r gin.IRouter, prefix string, identity gin.HandlerFunc, h Handlers) {
	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", h.Health.Prometheus)

	api := r.Group(prefix)
	if identity != nil {
		api.Use(identity)
	}

	api.GET("/identity", h.Identity.Get)
	api.PUT("/identity", h.Identity.Set)
	api.DELETE("/identity", h.Identity.Reset)

	api.POST("/analyses", h.Analyses.Submit)
	api.POST("/analyses/jobs", h.Analyses.SubmitAsync)
	api.GET("/analyses/jobs/:id", h.Analyses.JobStatus)

	api.GET("/gallery", h.Gallery.List)
	api.GET("/gallery/cards", h.Gallery.Cards)
	api.GET("/gallery/export", h.Gallery.Export)
	api.POST("/cards/:id/:counter", h.Gallery.Counter)

	results := api.Group("/results/:id")
	results.GET("/urls", h.Results.URLs)
	results.GET("/metadata", h.Results.Metadata)
	results.GET("/download", h.Results.Download)
	results.GET("/preview/wait", h.Results.WaitPreview)
	results.DELETE("", h.Results.Delete)
}
