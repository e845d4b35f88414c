package handler

import (
	"context"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ndvi-gateway/internal/dto"
	"github.com/noah-isme/ndvi-gateway/internal/models"
	"github.com/noah-isme/ndvi-gateway/internal/service"
	"github.com/noah-isme/ndvi-gateway/internal/validation"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
	"github.com/noah-isme/ndvi-gateway/pkg/response"
)

// NoticeHeader carries the degraded-mode notice on binary responses.
const NoticeHeader = "X-Gallery-Notice"

type galleryService interface {
	List(ctx context.Context, limit, offset int) (*models.GalleryPage, error)
	Cards(ctx context.Context, limit, offset int) (*models.CardPage, error)
	Increment(ctx context.Context, sessionID, counter string) (models.CardCounters, error)
}

type exportService interface {
	Render(ctx context.Context, format string) (*service.ExportFile, error)
}

// GalleryHandler serves the caller's past analyses.
type GalleryHandler struct {
	gallery galleryService
	exports exportService
}

// NewGalleryHandler builds the handler.
func NewGalleryHandler(gallery galleryService, exports exportService) *GalleryHandler {
	return &GalleryHandler{gallery: gallery, exports: exports}
}

// List godoc
// @Summary List the caller's analyses
// @Description Returns raw gallery items. When the backend is unreachable the list is empty and meta.notice explains why.
// @Tags Gallery
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Items to skip"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /gallery [get]
func (h *GalleryHandler) List(c *gin.Context) {
	query, ok := bindPage(c)
	if !ok {
		return
	}
	page, err := h.gallery.List(c.Request.Context(), query.Limit, query.Offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Limit: page.Limit, Offset: page.Offset, Count: len(page.Items)}
	response.JSON(c, http.StatusOK, page.Items, pagination, noticeMeta(page.UserID, page.Notice))
}

// Cards godoc
// @Summary List the caller's analyses as cards
// @Tags Gallery
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Items to skip"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /gallery/cards [get]
func (h *GalleryHandler) Cards(c *gin.Context) {
	query, ok := bindPage(c)
	if !ok {
		return
	}
	page, err := h.gallery.Cards(c.Request.Context(), query.Limit, query.Offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Limit: page.Limit, Offset: page.Offset, Count: len(page.Cards)}
	response.JSON(c, http.StatusOK, page.Cards, pagination, noticeMeta(page.UserID, page.Notice))
}

// Counter godoc
// @Summary Bump a card counter
// @Description Counters are cosmetic and never reach the analysis backend.
// @Tags Gallery
// @Produce json
// @Param id path string true "Session ID"
// @Param counter path string true "like, share or view"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /cards/{id}/{counter} [post]
func (h *GalleryHandler) Counter(c *gin.Context) {
	sessionID := c.Param("id")
	counters, err := h.gallery.Increment(c.Request.Context(), sessionID, c.Param("counter"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CounterResponse{SessionID: sessionID, CardCounters: counters}, nil)
}

// Export godoc
// @Summary Export the caller's gallery
// @Tags Gallery
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /gallery/export [get]
func (h *GalleryHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	if err := validation.ValidateStruct(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	file, err := h.exports.Render(c.Request.Context(), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	if file.Notice != "" {
		c.Header(NoticeHeader, file.Notice)
	}
	c.Header("Content-Disposition", attachment(file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func bindPage(c *gin.Context) (dto.PageQuery, bool) {
	var query dto.PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit and offset must be integers"))
		return query, false
	}
	if err := validation.ValidateStruct(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return query, false
	}
	return query, true
}

func noticeMeta(userID, notice string) map[string]interface{} {
	meta := map[string]interface{}{"user_id": userID}
	if notice != "" {
		meta["notice"] = notice
	}
	return meta
}

func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
