package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tieubaoca/embedding-be/types"
)

var ErrJobNotFound = errors.New("job not found")

// JobService tracks asynchronous processing jobs in memory and fans
// status updates out to websocket subscribers. Finished jobs are
// swept after their TTL.
type JobService struct {
	mu          sync.RWMutex
	jobs        map[string]*types.Job
	subscribers map[string][]chan types.JobUpdate
	ttl         time.Duration
}

func NewJobService(ttl time.Duration) *JobService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JobService{
		jobs:        make(map[string]*types.Job),
		subscribers: make(map[string][]chan types.JobUpdate),
		ttl:         ttl,
	}
}

// Create registers a new pending job and returns it.
func (s *JobService) Create(filename string) *types.Job {
	now := time.Now()
	job := &types.Job{
		ID:        uuid.NewString(),
		Filename:  filename,
		Status:    types.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job
}

// Get returns a copy of the job state.
func (s *JobService) Get(id string) (*types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

// Update moves a job to a new status and notifies subscribers.
func (s *JobService) Update(id string, status types.JobStatus, message string, progress float64) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	job.Status = status
	job.Message = message
	job.Progress = progress
	job.UpdatedAt = time.Now()
	update := types.JobUpdate{JobID: id, Status: status, Message: message, Progress: progress}
	subs := append([]chan types.JobUpdate(nil), s.subscribers[id]...)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- update:
		default:
			// Slow subscriber, drop the update rather than block the
			// processing worker.
		}
	}
}

// Complete marks a job finished and records the resulting document id.
func (s *JobService) Complete(id, documentID string) {
	s.mu.Lock()
	if job, ok := s.jobs[id]; ok {
		job.DocumentID = documentID
	}
	s.mu.Unlock()
	s.Update(id, types.JobStatusCompleted, "document processed", 1)
}

// Fail marks a job failed with the error message.
func (s *JobService) Fail(id string, err error) {
	s.mu.Lock()
	if job, ok := s.jobs[id]; ok {
		job.Error = err.Error()
	}
	s.mu.Unlock()
	s.Update(id, types.JobStatusFailed, err.Error(), 0)
}

// Subscribe returns a channel of updates for the job and a cancel
// function that must be called when the subscriber disconnects.
func (s *JobService) Subscribe(id string) (<-chan types.JobUpdate, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return nil, nil, ErrJobNotFound
	}

	ch := make(chan types.JobUpdate, 16)
	s.subscribers[id] = append(s.subscribers[id], ch)

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subscribers[id]
		for i, sub := range subs {
			if sub == ch {
				s.subscribers[id] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
	return ch, cancel, nil
}

// StartSweeper periodically removes finished jobs older than the TTL.
func (s *JobService) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(time.Now())
			}
		}
	}()
}

func (s *JobService) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, job := range s.jobs {
		done := job.Status == types.JobStatusCompleted || job.Status == types.JobStatusFailed
		if done && now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
			delete(s.subscribers, id)
		}
	}
}
