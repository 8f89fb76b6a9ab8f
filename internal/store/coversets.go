package store

import (
	"context"

	"github.com/inkwellpress/inkwell/internal/coverset"
	"github.com/inkwellpress/inkwell/internal/errors"
)

// LoadCoverSet reads the cover set of a project. A project without covers
// yields an empty set.
func (s *Store) LoadCoverSet(ctx context.Context, projectID string) (coverset.CoverSet, error) {
	if err := ctx.Err(); err != nil {
		return coverset.CoverSet{}, err
	}

	key := buildKey(prefixCoverSet, projectID)
	defer releaseKey(key)

	var set coverset.CoverSet
	if err := s.get(key, &set); err != nil {
		if errors.Is(err, ErrNotFound) {
			return coverset.CoverSet{ProjectID: projectID}, nil
		}
		return coverset.CoverSet{}, err
	}
	return set, nil
}

// SaveCoverSet writes set under its project ID.
func (s *Store) SaveCoverSet(ctx context.Context, set coverset.CoverSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if set.ProjectID == "" {
		return errors.Validation("cover set has no project")
	}
	return s.set([]byte(prefixCoverSet+set.ProjectID), set)
}
