package handler

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ndvi-gateway/internal/models"
	"github.com/noah-isme/ndvi-gateway/internal/service"
	"github.com/noah-isme/ndvi-gateway/internal/validation"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
	"github.com/noah-isme/ndvi-gateway/pkg/response"
)

const (
	formQuery           = "query"
	formCredentialsFile = "credentials_file"
	formDownloadData    = "download_data"

	// multipartOverhead leaves room for the query and part headers on top of
	// the largest accepted credentials file.
	multipartOverhead int64 = 1 << 20
)

type analysisService interface {
	Submit(ctx context.Context, req service.SubmitRequest, progress models.ProgressFunc) (*service.SubmitResult, error)
	SubmitAsync(ctx context.Context, req service.SubmitRequest) (*models.SubmissionJob, error)
	Job(ctx context.Context, id string) (*models.SubmissionJob, error)
}

// AnalysisHandler accepts NDVI analysis submissions.
type AnalysisHandler struct {
	service analysisService
}

// NewAnalysisHandler builds the handler.
func NewAnalysisHandler(svc analysisService) *AnalysisHandler {
	return &AnalysisHandler{service: svc}
}

// Submit godoc
// @Summary Submit an NDVI analysis and wait for it
// @Description Forwards the natural-language query and the service account key to the backend. A 202 STILL_PROCESSING error means the request timed out while the backend may still finish; check the gallery later.
// @Tags Analyses
// @Accept multipart/form-data
// @Produce json
// @Param query formData string true "Natural-language analysis request"
// @Param credentials_file formData file true "Service account key (.json)"
// @Param download_data formData bool false "Ask the backend to prepare the download bundle"
// @Success 201 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /analyses [post]
func (h *AnalysisHandler) Submit(c *gin.Context) {
	req, closeFn, err := parseSubmission(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()

	result, err := h.service.Submit(c.Request.Context(), req, nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// SubmitAsync godoc
// @Summary Queue an NDVI analysis
// @Description Validates and buffers the submission, then returns a job that can be polled.
// @Tags Analyses
// @Accept multipart/form-data
// @Produce json
// @Param query formData string true "Natural-language analysis request"
// @Param credentials_file formData file true "Service account key (.json)"
// @Param download_data formData bool false "Ask the backend to prepare the download bundle"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /analyses/jobs [post]
func (h *AnalysisHandler) SubmitAsync(c *gin.Context) {
	req, closeFn, err := parseSubmission(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()

	job, err := h.service.SubmitAsync(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job, map[string]interface{}{
		"status_url": strings.TrimSuffix(c.Request.URL.Path, "/") + "/" + job.ID,
	})
}

// JobStatus godoc
// @Summary Poll a queued analysis
// @Tags Analyses
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /analyses/jobs/{id} [get]
func (h *AnalysisHandler) JobStatus(c *gin.Context) {
	job, err := h.service.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

func parseSubmission(c *gin.Context) (service.SubmitRequest, func(), error) {
	noop := func() {}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, validation.MaxCredentialsSize+multipartOverhead)

	header, err := c.FormFile(formCredentialsFile)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return service.SubmitRequest{}, noop, appErrors.Clone(appErrors.ErrFileTooLarge, "")
		case errors.Is(err, http.ErrMissingFile):
			return service.SubmitRequest{}, noop, appErrors.Clone(appErrors.ErrValidation, "a credentials file is required")
		default:
			return service.SubmitRequest{}, noop, appErrors.Clone(appErrors.ErrValidation, "request must be multipart/form-data")
		}
	}

	req := service.SubmitRequest{Query: c.PostForm(formQuery)}
	if raw := strings.TrimSpace(c.PostForm(formDownloadData)); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return service.SubmitRequest{}, noop, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("download_data must be a boolean, got %q", raw))
		}
		req.DownloadData = &v
	}

	file, err := header.Open()
	if err != nil {
		return service.SubmitRequest{}, noop, appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to read uploaded credentials")
	}
	req.CredentialsFile = credentialsFromUpload(header, file)
	return req, func() { _ = file.Close() }, nil
}

func credentialsFromUpload(header *multipart.FileHeader, file multipart.File) *models.CredentialsFile {
	return &models.CredentialsFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	}
}
