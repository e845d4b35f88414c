package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ndvi-gateway/internal/models"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
	"github.com/noah-isme/ndvi-gateway/pkg/jobs"
)

func TestSubmitThenGalleryListsSession(t *testing.T) {
	backend, c := newBackendClient(t)
	ids := userProvider(t, "user_abc")
	analyses := NewAnalysisService(c, ids, nil, nil, nil, AnalysisConfig{}, nil)
	gallery := NewGalleryService(c, ids, nil, nil, GalleryConfig{}, nil)

	result, err := analyses.Submit(context.Background(), SubmitRequest{
		Query:           "NDVI in Zurich 2020-2024",
		CredentialsFile: credentialsFile(2048),
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "user_abc", result.UserID)
	require.Equal(t, "Zurich NDVI Analysis (2020-2024)", result.Card.Title)
	require.Equal(t, models.CategoryRecentlyPublished, result.Card.Category)

	page, err := gallery.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Empty(t, page.Notice)
	require.NotEmpty(t, page.Items)
	found := false
	for _, item := range page.Items {
		if item.SessionID == result.Session.SessionID {
			found = true
		}
	}
	require.True(t, found)
	require.Equal(t, "false", backend.Submissions()[0].DownloadData)
}

func TestSubmitOverrides(t *testing.T) {
	backend, c := newBackendClient(t)
	analyses := NewAnalysisService(c, userProvider(t, "user_abc"), nil, nil, nil, AnalysisConfig{DownloadData: false}, nil)

	download := true
	_, err := analyses.Submit(context.Background(), SubmitRequest{
		Query:           "NDVI in Bern",
		UserID:          "user_override",
		CredentialsFile: credentialsFile(512),
		DownloadData:    &download,
	}, nil)
	require.NoError(t, err)
	sub := backend.Submissions()[0]
	require.Equal(t, "user_override", sub.UserID)
	require.Equal(t, "true", sub.DownloadData)
}

func TestSubmitRejectsBlankQueryWithoutNetwork(t *testing.T) {
	backend, c := newBackendClient(t)
	analyses := NewAnalysisService(c, userProvider(t, "user_abc"), nil, nil, nil, AnalysisConfig{}, nil)

	_, err := analyses.Submit(context.Background(), SubmitRequest{Query: " \t ", CredentialsFile: credentialsFile(2048)}, nil)
	require.True(t, appErrors.IsCode(err, appErrors.CodeValidation))
	require.Zero(t, backend.Requests())
}

func TestSubmitAsyncCompletes(t *testing.T) {
	_, c := newBackendClient(t)
	ids := userProvider(t, "user_abc")
	store := NewJobStore(time.Hour, nil)
	worker := NewSubmissionWorker(c, store, nil, nil)
	queue := jobs.NewQueue("submissions", worker.Handle, jobs.QueueConfig{Workers: 1, BufferSize: 4})
	queue.Start(context.Background())
	defer queue.Stop()

	analyses := NewAnalysisService(c, ids, queue, store, nil, AnalysisConfig{}, nil)
	job, err := analyses.SubmitAsync(context.Background(), SubmitRequest{
		Query:           "NDVI in Zurich 2020-2024",
		CredentialsFile: credentialsFile(2048),
	})
	require.NoError(t, err)
	require.Equal(t, models.JobStatusQueued, job.Status)
	require.NotEmpty(t, job.ID)

	require.Eventually(t, func() bool {
		current, err := analyses.Job(context.Background(), job.ID)
		return err == nil && current.Status == models.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	done, err := analyses.Job(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, 100, done.Progress)
	require.NotNil(t, done.Session)
	require.Equal(t, "Zurich NDVI Analysis (2020-2024)", done.Card.Title)
}

func TestSubmitAsyncStillProcessing(t *testing.T) {
	backend, _ := newBackendClient(t)
	backend.AnalyzeDelay = time.Second
	c := newSlowClient(backend.URL(), 30*time.Millisecond)
	store := NewJobStore(time.Hour, nil)
	worker := NewSubmissionWorker(c, store, nil, nil)
	queue := jobs.NewQueue("submissions", worker.Handle, jobs.QueueConfig{Workers: 1})
	queue.Start(context.Background())
	defer queue.Stop()

	analyses := NewAnalysisService(c, userProvider(t, "user_abc"), queue, store, nil, AnalysisConfig{}, nil)
	job, err := analyses.SubmitAsync(context.Background(), SubmitRequest{Query: "NDVI", CredentialsFile: credentialsFile(512)})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		current, _ := store.Get(job.ID)
		return current != nil && current.Terminal()
	}, 2*time.Second, 10*time.Millisecond)
	current, _ := store.Get(job.ID)
	require.Equal(t, models.JobStatusStillProcessing, current.Status)
	require.Equal(t, appErrors.CodeStillProcessing, current.ErrorCode)
}

func TestJobIsScopedToUser(t *testing.T) {
	_, c := newBackendClient(t)
	store := NewJobStore(time.Hour, nil)
	store.Put(&models.SubmissionJob{ID: "job-1", UserID: "someone_else", Status: models.JobStatusQueued})
	analyses := NewAnalysisService(c, userProvider(t, "user_abc"), &dispatcherStub{}, store, nil, AnalysisConfig{}, nil)

	_, err := analyses.Job(context.Background(), "job-1")
	require.True(t, appErrors.IsCode(err, appErrors.CodeNotFound))
	_, err = analyses.Job(context.Background(), "missing")
	require.True(t, appErrors.IsCode(err, appErrors.CodeNotFound))
}

type dispatcherStub struct {
	err  error
	jobs []jobs.Job
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

func TestSubmitAsyncQueueFull(t *testing.T) {
	_, c := newBackendClient(t)
	store := NewJobStore(time.Hour, nil)
	analyses := NewAnalysisService(c, userProvider(t, "user_abc"), &dispatcherStub{err: errors.New("queue full")}, store, nil, AnalysisConfig{}, nil)

	_, err := analyses.SubmitAsync(context.Background(), SubmitRequest{Query: "NDVI", CredentialsFile: credentialsFile(512)})
	require.True(t, appErrors.IsCode(err, appErrors.CodeInternal))
}

func TestSubmitAsyncBuffersCredentials(t *testing.T) {
	_, c := newBackendClient(t)
	dispatcher := &dispatcherStub{}
	analyses := NewAnalysisService(c, userProvider(t, "user_abc"), dispatcher, NewJobStore(time.Hour, nil), nil, AnalysisConfig{}, nil)

	file := credentialsFile(512)
	file.Size = 4096
	_, err := analyses.SubmitAsync(context.Background(), SubmitRequest{Query: "NDVI", CredentialsFile: file})
	require.NoError(t, err)
	require.Len(t, dispatcher.jobs, 1)
	sub := dispatcher.jobs[0].Payload.(models.AnalysisSubmission)
	require.Equal(t, int64(512), sub.CredentialsFile.Size)
	require.Equal(t, "user_abc", sub.UserID)
}

func TestJobStoreCleanup(t *testing.T) {
	store := NewJobStore(time.Minute, nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	store.Put(&models.SubmissionJob{ID: "old", Status: models.JobStatusCompleted, UpdatedAt: base.Add(-2 * time.Minute)})
	store.Put(&models.SubmissionJob{ID: "running", Status: models.JobStatusRunning, UpdatedAt: base.Add(-2 * time.Minute)})
	store.Put(&models.SubmissionJob{ID: "fresh", Status: models.JobStatusFailed, UpdatedAt: base})

	require.Equal(t, 1, store.Cleanup())
	_, ok := store.Get("old")
	require.False(t, ok)
	_, ok = store.Get("running")
	require.True(t, ok)

	require.False(t, store.Update("fresh", func(j *models.SubmissionJob) { j.Status = models.JobStatusRunning }))
}
