package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/ndvi-gateway/internal/client"
	"github.com/noah-isme/ndvi-gateway/internal/models"
	"github.com/noah-isme/ndvi-gateway/internal/poller"
	"github.com/noah-isme/ndvi-gateway/internal/resolver"
	"github.com/noah-isme/ndvi-gateway/pkg/config"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
)

type resultClient interface {
	Resolver() resolver.Resolver
	GetAnalysisMetadata(ctx context.Context, sessionID string) (models.AnalysisMetadata, error)
	DownloadAnalysisZip(ctx context.Context, sessionID string) (*client.Download, error)
	DeleteAnalysis(ctx context.Context, sessionID, userID string) error
	PreviewAvailable(ctx context.Context, sessionID string) error
}

type downloadStorage interface {
	SaveStream(filename string, r io.Reader) (string, int64, error)
	Path(filename string) string
}

// SavedDownload describes a result bundle written to local storage.
type SavedDownload struct {
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
}

// PreviewWait reports the outcome of a bounded preview poll. Ready is false
// when every attempt failed; callers show a placeholder in that case.
type PreviewWait struct {
	SessionID  string `json:"session_id"`
	Ready      bool   `json:"ready"`
	Attempts   int    `json:"attempts"`
	PreviewURL string `json:"preview_url"`
	LastError  string `json:"last_error,omitempty"`
}

// ResultService exposes everything derived from a finished session.
type ResultService struct {
	client  resultClient
	ids     userIDResolver
	storage downloadStorage
	metrics *MetricsService
	logger  *zap.Logger
	preview config.PreviewConfig
}

// NewResultService constructs the service. storage may be nil when bundles
// are only streamed.
func NewResultService(client resultClient, ids userIDResolver, storage downloadStorage, metrics *MetricsService, preview config.PreviewConfig, logger *zap.Logger) *ResultService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		client:  client,
		ids:     ids,
		storage: storage,
		metrics: metrics,
		logger:  logger,
		preview: preview,
	}
}

// URLs derives the five resource URLs of a session without a round trip.
func (s *ResultService) URLs(sessionID string) (models.SessionFiles, error) {
	if err := requireSessionID(sessionID); err != nil {
		return models.SessionFiles{}, err
	}
	return s.client.Resolver().Files(sessionID), nil
}

// Metadata fetches the session metadata document.
func (s *ResultService) Metadata(ctx context.Context, sessionID string) (models.AnalysisMetadata, error) {
	if err := requireSessionID(sessionID); err != nil {
		return nil, err
	}
	meta, err := s.client.GetAnalysisMetadata(ctx, sessionID)
	if err != nil {
		s.logFailure("metadata", sessionID, err)
		return nil, err
	}
	return meta, nil
}

// Download opens the result bundle for streaming. The caller closes Body.
func (s *ResultService) Download(ctx context.Context, sessionID string) (*client.Download, error) {
	if err := requireSessionID(sessionID); err != nil {
		return nil, err
	}
	dl, err := s.client.DownloadAnalysisZip(ctx, sessionID)
	if err != nil {
		s.logFailure("download", sessionID, err)
		return nil, err
	}
	return dl, nil
}

// SaveDownload writes the result bundle into local storage under the name
// the backend suggested.
func (s *ResultService) SaveDownload(ctx context.Context, sessionID string) (*SavedDownload, error) {
	if s.storage == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "no download directory configured")
	}
	dl, err := s.Download(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer dl.Body.Close()

	name, size, err := s.storage.SaveStream(dl.Filename, dl.Body)
	if err != nil {
		s.logger.Error("failed to save result bundle", zap.String("session_id", sessionID), zap.Error(err))
		if ctx.Err() != nil {
			return nil, appErrors.Wrap(err, appErrors.CodeInternal, 499, "download cancelled")
		}
		return nil, appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to save result bundle")
	}
	s.logger.Info("result bundle saved", zap.String("session_id", sessionID), zap.String("file", name), zap.Int64("bytes", size))
	return &SavedDownload{SessionID: sessionID, Filename: name, Path: s.storage.Path(name), Size: size}, nil
}

// Delete removes a session on behalf of the current user.
func (s *ResultService) Delete(ctx context.Context, sessionID string) error {
	if err := requireSessionID(sessionID); err != nil {
		return err
	}
	userID, err := resolveUserID(ctx, s.ids, s.logger)
	if err != nil {
		return err
	}
	if err := s.client.DeleteAnalysis(ctx, sessionID, userID); err != nil {
		s.logFailure("delete", sessionID, err)
		return err
	}
	s.logger.Info("analysis deleted", zap.String("session_id", sessionID), zap.String("user_id", userID))
	return nil
}

// WaitForPreview probes the preview image a bounded number of times and
// stops at the first success.
func (s *ResultService) WaitForPreview(ctx context.Context, sessionID string) (*PreviewWait, error) {
	if err := requireSessionID(sessionID); err != nil {
		return nil, err
	}
	p := poller.New(poller.Config{
		MaxAttempts: s.preview.MaxAttempts,
		Interval:    s.preview.Interval,
		MaxInterval: s.preview.MaxInterval,
		Exponential: s.preview.Exponential,
	})
	err := p.Run(ctx, func(ctx context.Context, attempt int) error {
		return s.client.PreviewAvailable(ctx, sessionID)
	})
	s.metrics.ObservePreviewAttempts(p.Attempts)

	result := &PreviewWait{
		SessionID:  sessionID,
		Ready:      p.State == poller.StateSucceeded,
		Attempts:   p.Attempts,
		PreviewURL: s.client.Resolver().PreviewURL(sessionID),
	}
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, poller.ErrExhausted):
		result.LastError = appErrors.FromError(p.LastErr).Message
		s.logger.Info("preview not available",
			zap.String("session_id", sessionID),
			zap.Int("attempts", p.Attempts),
			zap.Error(p.LastErr))
		return result, nil
	default:
		return nil, appErrors.Wrap(err, appErrors.CodeInternal, 499, "preview wait cancelled")
	}
}

func (s *ResultService) logFailure(op, sessionID string, err error) {
	appErr := appErrors.FromError(err)
	s.logger.Warn("result request failed",
		zap.String("operation", op),
		zap.String("session_id", sessionID),
		zap.String("code", appErr.Code),
		zap.Error(err))
}

func requireSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "a session id is required")
	}
	return nil
}
