package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/inkwellpress/inkwell/internal/domain"
)

// DeleteProject removes a project together with its cover set and jobs.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	jobIDs, err := s.jobIDs(ctx, projectID)
	if err != nil {
		return err
	}
	for _, id := range jobIDs {
		if err := s.Jobs.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete job %s: %w", id, err)
		}
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefixCoverSet + projectID))
	}); err != nil {
		return fmt.Errorf("failed to delete cover set: %w", err)
	}

	s.logger.Info("project deleted", "project_id", projectID, "jobs", len(jobIDs))
	return s.Projects.Delete(ctx, projectID)
}

// ListProjects returns every project in ID order.
func (s *Store) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	var projects []*domain.Project
	for p, err := range s.Projects.List(ctx) {
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}
