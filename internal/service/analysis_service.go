package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ndvi-gateway/internal/cards"
	"github.com/noah-isme/ndvi-gateway/internal/identity"
	"github.com/noah-isme/ndvi-gateway/internal/models"
	"github.com/noah-isme/ndvi-gateway/internal/validation"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
	"github.com/noah-isme/ndvi-gateway/pkg/jobs"
)

// JobTypeSubmission tags queued analysis submissions.
const JobTypeSubmission = "analysis_submission"

type analysisClient interface {
	SubmitAnalysis(ctx context.Context, sub models.AnalysisSubmission, progress models.ProgressFunc) (*models.SessionAnalysis, error)
}

type userIDResolver interface {
	Resolve(ctx context.Context) (string, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// AnalysisConfig holds submission defaults.
type AnalysisConfig struct {
	DownloadData bool
}

// SubmitRequest is a submission as received from a caller. UserID and
// DownloadData are optional overrides.
type SubmitRequest struct {
	Query           string
	UserID          string
	CredentialsFile *models.CredentialsFile
	DownloadData    *bool
}

// SubmitResult is a completed submission with its display card.
type SubmitResult struct {
	UserID  string                  `json:"user_id"`
	Session *models.SessionAnalysis `json:"session"`
	Card    models.AnalysisCard     `json:"card"`
}

// AnalysisService submits analyses synchronously or through the job queue.
type AnalysisService struct {
	client  analysisClient
	ids     userIDResolver
	queue   jobDispatcher
	store   *JobStore
	metrics *MetricsService
	logger  *zap.Logger
	cfg     AnalysisConfig
	now     func() time.Time
}

// NewAnalysisService constructs the service. queue and store may be nil when
// only synchronous submissions are needed.
func NewAnalysisService(client analysisClient, ids userIDResolver, queue jobDispatcher, store *JobStore, metrics *MetricsService, cfg AnalysisConfig, logger *zap.Logger) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{
		client:  client,
		ids:     ids,
		queue:   queue,
		store:   store,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Submit sends the analysis and waits for the backend to finish it.
func (s *AnalysisService) Submit(ctx context.Context, req SubmitRequest, progress models.ProgressFunc) (*SubmitResult, error) {
	sub, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	session, err := s.client.SubmitAnalysis(ctx, sub, progress)
	if err != nil {
		s.recordFailure(sub, err)
		return nil, err
	}

	s.metrics.RecordSubmission(string(models.JobStatusCompleted))
	s.logger.Info("analysis completed",
		zap.String("session_id", session.SessionID),
		zap.String("user_id", sub.UserID),
		zap.String("location", session.Analysis.Location.Name))
	return &SubmitResult{
		UserID:  sub.UserID,
		Session: session,
		Card:    cards.FromSession(*session, s.now()),
	}, nil
}

// SubmitAsync validates the request, buffers the credentials file and
// queues the submission. The returned job can be polled with Job.
func (s *AnalysisService) SubmitAsync(ctx context.Context, req SubmitRequest) (*models.SubmissionJob, error) {
	if s.queue == nil || s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "asynchronous submissions are not enabled")
	}
	sub, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	buffered, err := bufferCredentials(sub.CredentialsFile)
	if err != nil {
		s.recordFailure(sub, err)
		return nil, err
	}
	sub.CredentialsFile = buffered

	now := s.now().UTC()
	job := &models.SubmissionJob{
		ID:        uuid.NewString(),
		UserID:    sub.UserID,
		Query:     sub.Query,
		Status:    models.JobStatusQueued,
		Message:   "Waiting for a free worker",
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store.Put(job)

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeSubmission, Payload: sub}); err != nil {
		s.store.Update(job.ID, func(j *models.SubmissionJob) {
			j.Status = models.JobStatusFailed
			j.ErrorCode = appErrors.CodeInternal
			j.Error = "failed to enqueue analysis"
		})
		s.logger.Error("failed to enqueue analysis", zap.String("job_id", job.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "analysis queue is busy, try again shortly")
	}
	s.logger.Info("analysis queued", zap.String("job_id", job.ID), zap.String("user_id", sub.UserID))
	return job, nil
}

// Job returns a submission job owned by the current user.
func (s *AnalysisService) Job(ctx context.Context, id string) (*models.SubmissionJob, error) {
	if s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
	}
	userID, err := s.userID(ctx, "")
	if err != nil {
		return nil, err
	}
	job, ok := s.store.Get(id)
	if !ok || job.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
	}
	return job, nil
}

func (s *AnalysisService) prepare(ctx context.Context, req SubmitRequest) (models.AnalysisSubmission, error) {
	sub := models.AnalysisSubmission{
		Query:           strings.TrimSpace(req.Query),
		CredentialsFile: req.CredentialsFile,
		DownloadData:    s.cfg.DownloadData,
	}
	if req.DownloadData != nil {
		sub.DownloadData = *req.DownloadData
	}
	if sub.Query == "" {
		err := appErrors.Clone(appErrors.ErrValidation, "enter a question describing the area and years to analyse")
		s.recordFailure(sub, err)
		return sub, err
	}
	if err := validation.ValidateCredentialsFile(sub.CredentialsFile); err != nil {
		s.recordFailure(sub, err)
		return sub, err
	}
	userID, err := s.userID(ctx, req.UserID)
	if err != nil {
		return sub, err
	}
	sub.UserID = userID
	return sub, nil
}

func (s *AnalysisService) userID(ctx context.Context, override string) (string, error) {
	if id := strings.TrimSpace(override); id != "" {
		return id, nil
	}
	return resolveUserID(ctx, s.ids, s.logger)
}

func resolveUserID(ctx context.Context, ids userIDResolver, logger *zap.Logger) (string, error) {
	if ids == nil {
		return identity.AnonymousUserID, nil
	}
	id, err := ids.Resolve(ctx)
	if err != nil {
		logger.Error("failed to resolve client user id", zap.Error(err))
		return "", appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to resolve client identity")
	}
	return id, nil
}

func (s *AnalysisService) recordFailure(sub models.AnalysisSubmission, err error) {
	appErr := appErrors.FromError(err)
	status := models.JobStatusFailed
	if appErr.Code == appErrors.CodeStillProcessing {
		status = models.JobStatusStillProcessing
	}
	s.metrics.RecordSubmission(string(status))
	s.logger.Warn("analysis submission failed",
		zap.String("user_id", sub.UserID),
		zap.String("code", appErr.Code),
		zap.String("message", appErr.Message),
		zap.Error(err))
}

func bufferCredentials(file *models.CredentialsFile) (*models.CredentialsFile, error) {
	if file.Content == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "credentials file has no content")
	}
	data, err := io.ReadAll(io.LimitReader(file.Content, validation.MaxCredentialsSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeValidation, appErrors.ErrValidation.Status, "failed to read credentials file")
	}
	cp := *file
	cp.Size = int64(len(data))
	cp.Content = bytes.NewReader(data)
	if err := validation.ValidateCredentialsFile(&cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// SubmissionWorker runs queued submissions and records their progress.
type SubmissionWorker struct {
	client  analysisClient
	store   *JobStore
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewSubmissionWorker constructs a worker.
func NewSubmissionWorker(client analysisClient, store *JobStore, metrics *MetricsService, logger *zap.Logger) *SubmissionWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionWorker{client: client, store: store, metrics: metrics, logger: logger, now: time.Now}
}

// Handle processes a queue job. Submissions are never retried: a failed
// POST /analyze may still have produced a session.
func (w *SubmissionWorker) Handle(ctx context.Context, job jobs.Job) error {
	sub, ok := job.Payload.(models.AnalysisSubmission)
	if !ok {
		w.store.Update(job.ID, func(j *models.SubmissionJob) {
			j.Status = models.JobStatusFailed
			j.ErrorCode = appErrors.CodeInternal
			j.Error = "invalid job payload"
		})
		return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
	}

	w.store.Update(job.ID, func(j *models.SubmissionJob) {
		j.Status = models.JobStatusRunning
		j.Message = "Submitting analysis"
	})

	session, err := w.client.SubmitAnalysis(ctx, sub, func(pct int, msg string) {
		w.store.Update(job.ID, func(j *models.SubmissionJob) {
			j.Progress = pct
			j.Message = msg
		})
	})
	if err != nil {
		appErr := appErrors.FromError(err)
		status := models.JobStatusFailed
		if appErr.Code == appErrors.CodeStillProcessing {
			status = models.JobStatusStillProcessing
		}
		w.store.Update(job.ID, func(j *models.SubmissionJob) {
			j.Status = status
			j.ErrorCode = appErr.Code
			j.Error = appErr.Message
			j.Message = appErr.Message
		})
		w.metrics.RecordSubmission(string(status))
		if status == models.JobStatusStillProcessing {
			w.logger.Info("queued analysis still processing", zap.String("job_id", job.ID))
			return nil
		}
		return err
	}

	card := cards.FromSession(*session, w.now())
	w.store.Update(job.ID, func(j *models.SubmissionJob) {
		j.Status = models.JobStatusCompleted
		j.Progress = 100
		j.Message = "Analysis complete"
		j.Session = session
		j.Card = &card
	})
	w.metrics.RecordSubmission(string(models.JobStatusCompleted))
	w.logger.Info("queued analysis completed", zap.String("job_id", job.ID), zap.String("session_id", session.SessionID))
	return nil
}
