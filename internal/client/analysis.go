package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptrace"
	"net/textproto"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/ndvi-gateway/internal/models"
	"github.com/noah-isme/ndvi-gateway/internal/validation"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
)

const opSubmit = "analyze"

// Progress milestones reported during a submission. They describe what the
// client did, not how far the backend got.
const (
	ProgressPrepared   = 10
	ProgressSent       = 30
	ProgressProcessing = 60
	ProgressReceived   = 100
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// SubmitAnalysis posts a query and credentials file to /analyze and returns
// the completed session. Nothing is sent when the trimmed query is empty or
// the credentials file fails local validation.
func (c *Client) SubmitAnalysis(ctx context.Context, sub models.AnalysisSubmission, progress models.ProgressFunc) (*models.SessionAnalysis, error) {
	report := func(pct int, msg string) {
		if progress != nil {
			progress(pct, msg)
		}
	}

	query := strings.TrimSpace(sub.Query)
	if query == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enter a question describing the area and years to analyse")
	}
	if err := validation.ValidateCredentialsFile(sub.CredentialsFile); err != nil {
		return nil, err
	}
	if sub.CredentialsFile.Content == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "credentials file has no content")
	}
	if strings.TrimSpace(sub.UserID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a client user id is required")
	}

	body, contentType, err := buildSubmission(query, sub)
	if err != nil {
		return nil, err
	}
	report(ProgressPrepared, "Analysis request prepared")

	ctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	var once sync.Once
	trace := &httptrace.ClientTrace{
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err == nil {
				once.Do(func() { report(ProgressProcessing, "Server is processing the analysis") })
			}
		},
	}
	ctx = httptrace.WithClientTrace(ctx, trace)

	req, err := c.newRequest(ctx, http.MethodPost, c.urls.Base()+"/analyze", body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to build analysis request")
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(body.Len())

	report(ProgressSent, "Request sent to analysis backend")
	resp, err := c.do(opSubmit, req, true)
	if err != nil {
		return nil, err
	}
	session, err := decodeValidated[models.SessionAnalysis](resp, opSubmit)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.logger.Warn("analysis response cut short by submit timeout", zap.Error(err))
			return nil, classifyTransport(ctx.Err(), true)
		}
		c.logger.Error("analysis response rejected", zap.Error(err))
		return nil, err
	}
	if mismatches := c.urls.Verify(session.SessionID, session.Files); len(mismatches) > 0 {
		c.logger.Warn("backend result URLs differ from derived URLs",
			zap.String("session_id", session.SessionID),
			zap.Strings("mismatches", mismatches))
	}
	session.Files = c.urls.Complete(session.SessionID, session.Files)
	report(ProgressReceived, "Analysis response received")
	return session, nil
}

func buildSubmission(query string, sub models.AnalysisSubmission) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := [][2]string{
		{"query", query},
		{"user_id", sub.UserID},
		{"download_data", strconv.FormatBool(sub.DownloadData)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to encode analysis request")
		}
	}

	file := sub.CredentialsFile
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="credentials_file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	header.Set("Content-Type", "application/json")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to encode credentials file")
	}
	written, err := io.Copy(part, io.LimitReader(file.Content, validation.MaxCredentialsSize+1))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.CodeValidation, appErrors.ErrValidation.Status, "failed to read credentials file")
	}
	if written > validation.MaxCredentialsSize {
		return nil, "", appErrors.Clone(appErrors.ErrFileTooLarge, "credentials file exceeds the 10 MB limit")
	}
	if written < validation.MinCredentialsSize {
		return nil, "", appErrors.Clone(appErrors.ErrFileTooSmall, fmt.Sprintf("credentials file is %d bytes; at least %d bytes are expected", written, validation.MinCredentialsSize))
	}
	if err := w.Close(); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to finish analysis request")
	}
	return buf, w.FormDataContentType(), nil
}
