package store

import (
	"context"

	"github.com/inkwellpress/inkwell/internal/domain"
)

// ActiveJob returns the pending or running enhancement job of a project,
// or ErrNotFound.
func (s *Store) ActiveJob(ctx context.Context, projectID string) (*domain.EnhanceJob, error) {
	return s.Jobs.GetByIndex(ctx, "active", projectID)
}

// ProjectJobs returns every enhancement job of a project.
func (s *Store) ProjectJobs(ctx context.Context, projectID string) ([]*domain.EnhanceJob, error) {
	var jobs []*domain.EnhanceJob
	for job, err := range s.Jobs.List(ctx) {
		if err != nil {
			return nil, err
		}
		if job.ProjectID == projectID {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

func (s *Store) jobIDs(ctx context.Context, projectID string) ([]string, error) {
	jobs, err := s.ProjectJobs(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return ids, nil
}
