package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ndvi-gateway/internal/models"
)

// JobStore keeps submission jobs in memory until they expire.
type JobStore struct {
	mu     sync.RWMutex
	jobs   map[string]*models.SubmissionJob
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewJobStore builds a store that forgets terminal jobs after ttl.
func NewJobStore(ttl time.Duration, logger *zap.Logger) *JobStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobStore{
		jobs:   make(map[string]*models.SubmissionJob),
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Put inserts or replaces a job.
func (s *JobStore) Put(job *models.SubmissionJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
}

// Get returns a copy of the job.
func (s *JobStore) Get(id string) (*models.SubmissionJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	cp := *job
	return &cp, true
}

// Update applies fn to the stored job under the store lock. Terminal jobs
// are left untouched.
func (s *JobStore) Update(id string, fn func(*models.SubmissionJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Terminal() {
		return false
	}
	fn(job)
	job.UpdatedAt = s.now().UTC()
	return true
}

// Cleanup drops terminal jobs last updated before the TTL window.
func (s *JobStore) Cleanup() int {
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if job.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// StartCleanup boots a goroutine that purges expired jobs periodically.
func (s *JobStore) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Cleanup(); n > 0 {
					s.logger.Debug("expired submission jobs removed", zap.Int("count", n))
				}
			}
		}
	}()
}
