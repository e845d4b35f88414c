package client

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/noah-isme/ndvi-gateway/internal/models"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
)

const (
	opHealth   = "health"
	opMetadata = "metadata"
	opDownload = "download"
	opDelete   = "delete"
	opPreview  = "preview"
)

// Download is an open result bundle. The caller must close Body.
type Download struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// DefaultDownloadName is used when the backend sends no usable filename.
func DefaultDownloadName(sessionID string) string {
	return "ndvi_analysis_" + sessionID + ".zip"
}

// Health reports backend liveness and readiness.
func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	req, err := c.newRequest(ctx, http.MethodGet, c.urls.Base()+"/health", http.NoBody)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to build health request")
	}
	resp, err := c.do(opHealth, req, false)
	if err != nil {
		return nil, err
	}
	return decodeValidated[models.HealthStatus](resp, opHealth)
}

// GetAnalysisMetadata fetches the metadata document of a session.
func (c *Client) GetAnalysisMetadata(ctx context.Context, sessionID string) (models.AnalysisMetadata, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	req, err := c.newRequest(ctx, http.MethodGet, c.urls.MetadataURL(sessionID), http.NoBody)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to build metadata request")
	}
	resp, err := c.do(opMetadata, req, false)
	if err != nil {
		return nil, err
	}
	meta, err := decodeJSON[models.AnalysisMetadata](resp, opMetadata)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, malformed(opMetadata, errNullDocument)
	}
	return meta, nil
}

// DownloadAnalysisZip opens the result bundle of a session. The download is
// bounded by ctx only, since bundles can be large.
func (c *Client) DownloadAnalysisZip(ctx context.Context, sessionID string) (*Download, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.urls.DownloadURL(sessionID), http.NoBody)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to build download request")
	}
	req.Header.Set("Accept", "application/zip, application/octet-stream")
	resp, err := c.do(opDownload, req, false)
	if err != nil {
		return nil, err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/zip"
	}
	return &Download{
		Filename:    filenameFromDisposition(resp.Header.Get("Content-Disposition"), sessionID),
		ContentType: contentType,
		Size:        resp.ContentLength,
		Body:        resp.Body,
	}, nil
}

// DeleteAnalysis asks the backend to delete a session on behalf of userID.
// Ownership is decided by the backend alone.
func (c *Client) DeleteAnalysis(ctx context.Context, sessionID, userID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	endpoint := c.urls.SessionURL(sessionID) + "?user_id=" + url.QueryEscape(userID)
	req, err := c.newRequest(ctx, http.MethodDelete, endpoint, http.NoBody)
	if err != nil {
		return appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to build delete request")
	}
	resp, err := c.do(opDelete, req, false)
	if err != nil {
		return err
	}
	drain(resp.Body)
	return nil
}

// PreviewAvailable succeeds once the preview image of a session can be
// fetched.
func (c *Client) PreviewAvailable(ctx context.Context, sessionID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	req, err := c.newRequest(ctx, http.MethodGet, c.urls.PreviewURL(sessionID), http.NoBody)
	if err != nil {
		return appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to build preview request")
	}
	req.Header.Set("Accept", "image/*")
	resp, err := c.do(opPreview, req, false)
	if err != nil {
		return err
	}
	drain(resp.Body)
	return nil
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "a session id is required")
	}
	return nil
}

func filenameFromDisposition(header, sessionID string) string {
	if header != "" {
		if _, params, err := mime.ParseMediaType(header); err == nil {
			if name := filepath.Base(strings.ReplaceAll(params["filename"], "\\", "/")); name != "" && name != "." && name != "/" && name != ".." {
				return name
			}
		}
	}
	return DefaultDownloadName(sessionID)
}
