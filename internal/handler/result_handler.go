package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ndvi-gateway/internal/client"
	"github.com/noah-isme/ndvi-gateway/internal/models"
	"github.com/noah-isme/ndvi-gateway/internal/service"
	"github.com/noah-isme/ndvi-gateway/pkg/response"
)

type resultService interface {
	URLs(sessionID string) (models.SessionFiles, error)
	Metadata(ctx context.Context, sessionID string) (models.AnalysisMetadata, error)
	Download(ctx context.Context, sessionID string) (*client.Download, error)
	WaitForPreview(ctx context.Context, sessionID string) (*service.PreviewWait, error)
	Delete(ctx context.Context, sessionID string) error
}

// ResultHandler exposes the artefacts of a finished session.
type ResultHandler struct {
	service resultService
}

// NewResultHandler builds the handler.
func NewResultHandler(svc resultService) *ResultHandler {
	return &ResultHandler{service: svc}
}

// URLs godoc
// @Summary Resource URLs of a session
// @Description Derived locally from the session id; the backend is not contacted.
// @Tags Results
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /results/{id}/urls [get]
func (h *ResultHandler) URLs(c *gin.Context) {
	files, err := h.service.URLs(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, files, nil)
}

// Metadata godoc
// @Summary Session metadata document
// @Tags Results
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /results/{id}/metadata [get]
func (h *ResultHandler) Metadata(c *gin.Context) {
	meta, err := h.service.Metadata(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meta, nil)
}

// Download godoc
// @Summary Download the result bundle
// @Tags Results
// @Produce application/zip
// @Param id path string true "Session ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /results/{id}/download [get]
func (h *ResultHandler) Download(c *gin.Context) {
	dl, err := h.service.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer dl.Body.Close()

	contentType := dl.ContentType
	if contentType == "" {
		contentType = "application/zip"
	}
	c.DataFromReader(http.StatusOK, dl.Size, contentType, dl.Body, map[string]string{
		"Content-Disposition": attachment(dl.Filename),
		"Cache-Control":       "no-store",
	})
}

// WaitPreview godoc
// @Summary Wait for the preview image
// @Description Polls the preview a bounded number of times. ready=false means a placeholder should be shown.
// @Tags Results
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /results/{id}/preview/wait [get]
func (h *ResultHandler) WaitPreview(c *gin.Context) {
	wait, err := h.service.WaitForPreview(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, wait, nil)
}

// Delete godoc
// @Summary Delete an analysis
// @Tags Results
// @Param id path string true "Session ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /results/{id} [delete]
func (h *ResultHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
